// Package memory provides in-memory implementations of the repository
// interfaces. They back the guard and facade tests, where the decisions
// under test are about visibility, not SQL — and they double as executable
// documentation of each contract (tenant scoping, nil-on-miss, idempotent
// writes).
//
// Not safe for concurrent use; tests drive them from one goroutine.
package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/models"
)

// Store holds every entity type in plain maps and slices. One Store per
// test; construct with New and seed through the repository methods or the
// Seed* helpers.
type Store struct {
	Tenants     map[uuid.UUID]*models.Tenant
	Users       map[uuid.UUID]*models.User
	Channels    map[uuid.UUID]*models.Channel
	Members     []models.ChannelMember
	DmThreads   map[uuid.UUID]*models.DmThread
	DmMembers   []models.DmMember
	Messages    map[int64]*models.Message
	Pins        []models.Pin
	Reactions   []models.Reaction
	ReadMarkers []models.ReadMarker

	nextMessageID int64
}

func New() *Store {
	return &Store{
		Tenants:   map[uuid.UUID]*models.Tenant{},
		Users:     map[uuid.UUID]*models.User{},
		Channels:  map[uuid.UUID]*models.Channel{},
		DmThreads: map[uuid.UUID]*models.DmThread{},
		Messages:  map[int64]*models.Message{},
	}
}

// ---- TenantRepository ----

func (s *Store) Create(ctx context.Context, name string) (*models.Tenant, error) {
	t := &models.Tenant{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	s.Tenants[t.ID] = t
	return t, nil
}

// ---- UserRepository ----

type Users struct{ *Store }

func (s *Store) UserRepo() *Users { return &Users{s} }

func (u *Users) Create(ctx context.Context, tenantID uuid.UUID, email, displayName, role, passwordHash string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        email,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	u.Store.Users[user.ID] = user
	return user, nil
}

func (u *Users) GetByID(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	user, ok := u.Store.Users[userID]
	if !ok || user.TenantID != tenantID {
		return nil, nil
	}
	return user, nil
}

func (u *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range u.Store.Users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

// ---- ChannelRepository ----

type Channels struct{ *Store }

func (s *Store) ChannelRepo() *Channels { return &Channels{s} }

// Create mirrors the store contract: the creator's owner membership is
// written together with the channel, never as a separate caller step.
func (c *Channels) Create(ctx context.Context, tenantID uuid.UUID, name string, isPrivate bool, createdBy uuid.UUID) (*models.Channel, error) {
	ch := &models.Channel{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		IsPrivate: isPrivate,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	c.Store.Channels[ch.ID] = ch
	c.Store.Members = append(c.Store.Members, models.ChannelMember{
		TenantID:  tenantID,
		ChannelID: ch.ID,
		UserID:    createdBy,
		Role:      models.ChannelRoleOwner,
		CreatedAt: time.Now(),
	})
	return ch, nil
}

func (c *Channels) GetByID(ctx context.Context, tenantID, channelID uuid.UUID) (*models.Channel, error) {
	ch, ok := c.Store.Channels[channelID]
	if !ok || ch.TenantID != tenantID {
		return nil, nil
	}
	return ch, nil
}

func (c *Channels) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Channel, error) {
	out := make([]models.Channel, 0)
	for _, ch := range c.Store.Channels {
		if ch.TenantID == tenantID {
			out = append(out, *ch)
		}
	}
	return out, nil
}

func (c *Channels) ListByMember(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	out := make([]models.Channel, 0)
	for _, m := range c.Store.Members {
		if m.TenantID != tenantID || m.UserID != userID {
			continue
		}
		if ch, ok := c.Store.Channels[m.ChannelID]; ok && ch.TenantID == tenantID {
			out = append(out, *ch)
		}
	}
	return out, nil
}

// ---- MembershipRepository ----

type Memberships struct{ *Store }

func (s *Store) MembershipRepo() *Memberships { return &Memberships{s} }

func (m *Memberships) AddMember(ctx context.Context, tenantID, channelID, userID uuid.UUID, role string) error {
	for _, mem := range m.Store.Members {
		if mem.ChannelID == channelID && mem.UserID == userID {
			return nil
		}
	}
	m.Store.Members = append(m.Store.Members, models.ChannelMember{
		TenantID:  tenantID,
		ChannelID: channelID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *Memberships) RemoveMember(ctx context.Context, tenantID, channelID, userID uuid.UUID) error {
	kept := m.Store.Members[:0]
	for _, mem := range m.Store.Members {
		if mem.TenantID == tenantID && mem.ChannelID == channelID && mem.UserID == userID {
			continue
		}
		kept = append(kept, mem)
	}
	m.Store.Members = kept
	return nil
}

func (m *Memberships) ListMembers(ctx context.Context, tenantID, channelID uuid.UUID) ([]models.ChannelMember, error) {
	out := make([]models.ChannelMember, 0)
	for _, mem := range m.Store.Members {
		if mem.TenantID == tenantID && mem.ChannelID == channelID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *Memberships) IsMember(ctx context.Context, tenantID, channelID, userID uuid.UUID) (bool, error) {
	for _, mem := range m.Store.Members {
		if mem.TenantID == tenantID && mem.ChannelID == channelID && mem.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memberships) CountMembers(ctx context.Context, tenantID, channelID uuid.UUID) (int, error) {
	count := 0
	for _, mem := range m.Store.Members {
		if mem.TenantID == tenantID && mem.ChannelID == channelID {
			count++
		}
	}
	return count, nil
}

// ---- DmRepository ----

type Dms struct{ *Store }

func (s *Store) DmRepo() *Dms { return &Dms{s} }

func (d *Dms) CreateThread(ctx context.Context, tenantID, userA, userB uuid.UUID) (*models.DmThread, error) {
	t := &models.DmThread{ID: uuid.New(), TenantID: tenantID, CreatedAt: time.Now()}
	d.Store.DmThreads[t.ID] = t
	for _, userID := range []uuid.UUID{userA, userB} {
		d.Store.DmMembers = append(d.Store.DmMembers, models.DmMember{
			TenantID:  tenantID,
			ThreadID:  t.ID,
			UserID:    userID,
			CreatedAt: time.Now(),
		})
	}
	return t, nil
}

func (d *Dms) GetThread(ctx context.Context, tenantID, threadID uuid.UUID) (*models.DmThread, error) {
	t, ok := d.Store.DmThreads[threadID]
	if !ok || t.TenantID != tenantID {
		return nil, nil
	}
	return t, nil
}

func (d *Dms) FindThreadBetween(ctx context.Context, tenantID, userA, userB uuid.UUID) (*models.DmThread, error) {
	for id, t := range d.Store.DmThreads {
		if t.TenantID != tenantID {
			continue
		}
		var hasA, hasB bool
		count := 0
		for _, m := range d.Store.DmMembers {
			if m.ThreadID != id {
				continue
			}
			count++
			if m.UserID == userA {
				hasA = true
			}
			if m.UserID == userB {
				hasB = true
			}
		}
		if hasA && hasB && count == 2 {
			return t, nil
		}
	}
	return nil, nil
}

func (d *Dms) ListThreadsByMember(ctx context.Context, tenantID, userID uuid.UUID) ([]models.DmThread, error) {
	out := make([]models.DmThread, 0)
	for _, m := range d.Store.DmMembers {
		if m.TenantID != tenantID || m.UserID != userID {
			continue
		}
		if t, ok := d.Store.DmThreads[m.ThreadID]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (d *Dms) IsMember(ctx context.Context, tenantID, threadID, userID uuid.UUID) (bool, error) {
	for _, m := range d.Store.DmMembers {
		if m.TenantID == tenantID && m.ThreadID == threadID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (d *Dms) ListMembers(ctx context.Context, tenantID, threadID uuid.UUID) ([]models.DmMember, error) {
	out := make([]models.DmMember, 0)
	for _, m := range d.Store.DmMembers {
		if m.TenantID == tenantID && m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ---- MessageRepository ----

type Messages struct{ *Store }

func (s *Store) MessageRepo() *Messages { return &Messages{s} }

func (m *Messages) Create(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, senderID uuid.UUID, body string, parentID *int64) (*models.Message, error) {
	m.Store.nextMessageID++
	msg := &models.Message{
		ID:              m.Store.nextMessageID,
		TenantID:        tenantID,
		SenderID:        senderID,
		ParentMessageID: parentID,
		Body:            body,
		CreatedAt:       time.Now(),
	}
	id := ref.ID
	switch ref.Kind {
	case models.ContainerChannel:
		msg.ChannelID = &id
	case models.ContainerDm:
		msg.DmThreadID = &id
	}
	m.Store.Messages[msg.ID] = msg
	return msg, nil
}

func (m *Messages) GetByID(ctx context.Context, tenantID uuid.UUID, messageID int64) (*models.Message, error) {
	msg, ok := m.Store.Messages[messageID]
	if !ok || msg.TenantID != tenantID {
		return nil, nil
	}
	return msg, nil
}

func (m *Messages) List(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, before int64, limit int) ([]models.Message, error) {
	out := make([]models.Message, 0)
	for id := m.Store.nextMessageID; id > 0 && len(out) < limit; id-- {
		msg, ok := m.Store.Messages[id]
		if !ok || msg.TenantID != tenantID {
			continue
		}
		if before > 0 && msg.ID >= before {
			continue
		}
		if mref, ok := msg.Container(); ok && mref == ref {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *Messages) UpdateBody(ctx context.Context, tenantID uuid.UUID, messageID int64, body string) (*models.Message, error) {
	msg, ok := m.Store.Messages[messageID]
	if !ok || msg.TenantID != tenantID {
		return nil, apperr.NotFound("Message not found")
	}
	now := time.Now()
	msg.Body = body
	msg.EditedAt = &now
	return msg, nil
}

func (m *Messages) SoftDelete(ctx context.Context, tenantID uuid.UUID, messageID int64) error {
	msg, ok := m.Store.Messages[messageID]
	if !ok || msg.TenantID != tenantID || msg.Deleted() {
		return nil
	}
	now := time.Now()
	msg.Body = ""
	msg.DeletedAt = &now
	return nil
}

func (m *Messages) ThreadSummaries(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef) ([]models.ThreadSummary, error) {
	byParent := map[int64]*models.ThreadSummary{}
	for _, msg := range m.Store.Messages {
		if msg.TenantID != tenantID || msg.ParentMessageID == nil {
			continue
		}
		parent, ok := m.Store.Messages[*msg.ParentMessageID]
		if !ok {
			continue
		}
		if pref, ok := parent.Container(); !ok || pref != ref {
			continue
		}
		ts := byParent[*msg.ParentMessageID]
		if ts == nil {
			ts = &models.ThreadSummary{ParentMessageID: *msg.ParentMessageID}
			byParent[*msg.ParentMessageID] = ts
		}
		ts.ReplyCount++
		t := msg.CreatedAt
		if ts.LastReplyAt == nil || t.After(*ts.LastReplyAt) {
			ts.LastReplyAt = &t
		}
	}
	out := make([]models.ThreadSummary, 0, len(byParent))
	for _, ts := range byParent {
		out = append(out, *ts)
	}
	return out, nil
}

func (m *Messages) ListReplies(ctx context.Context, tenantID uuid.UUID, parentID int64) ([]models.Message, error) {
	out := make([]models.Message, 0)
	for id := int64(1); id <= m.Store.nextMessageID; id++ {
		msg, ok := m.Store.Messages[id]
		if !ok || msg.TenantID != tenantID {
			continue
		}
		if msg.ParentMessageID != nil && *msg.ParentMessageID == parentID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *Messages) FirstIDAfter(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, after int64) (int64, error) {
	for id := after + 1; id <= m.Store.nextMessageID; id++ {
		msg, ok := m.Store.Messages[id]
		if !ok || msg.TenantID != tenantID {
			continue
		}
		if mref, ok := msg.Container(); ok && mref == ref {
			return id, nil
		}
	}
	return 0, nil
}

// ---- PinRepository ----

type Pins struct{ *Store }

func (s *Store) PinRepo() *Pins { return &Pins{s} }

func (p *Pins) Create(ctx context.Context, tenantID, channelID uuid.UUID, messageID int64, pinnedBy uuid.UUID) (*models.Pin, error) {
	for _, pin := range p.Store.Pins {
		if pin.ChannelID == channelID && pin.MessageID == messageID {
			// Mirrors the unique-violation mapping in the postgres store.
			return nil, apperr.Conflict("Message is already pinned")
		}
	}
	pin := models.Pin{
		TenantID:  tenantID,
		ChannelID: channelID,
		MessageID: messageID,
		PinnedBy:  pinnedBy,
		CreatedAt: time.Now(),
	}
	p.Store.Pins = append(p.Store.Pins, pin)
	return &pin, nil
}

func (p *Pins) Delete(ctx context.Context, tenantID, channelID uuid.UUID, messageID int64) error {
	kept := p.Store.Pins[:0]
	for _, pin := range p.Store.Pins {
		if pin.TenantID == tenantID && pin.ChannelID == channelID && pin.MessageID == messageID {
			continue
		}
		kept = append(kept, pin)
	}
	p.Store.Pins = kept
	return nil
}

func (p *Pins) ListByChannel(ctx context.Context, tenantID, channelID uuid.UUID) ([]models.Pin, error) {
	out := make([]models.Pin, 0)
	for _, pin := range p.Store.Pins {
		if pin.TenantID == tenantID && pin.ChannelID == channelID {
			out = append(out, pin)
		}
	}
	return out, nil
}

// ---- ReactionRepository ----

type Reactions struct{ *Store }

func (s *Store) ReactionRepo() *Reactions { return &Reactions{s} }

func (r *Reactions) Add(ctx context.Context, tenantID uuid.UUID, messageID int64, userID uuid.UUID, emoji string) error {
	for _, re := range r.Store.Reactions {
		if re.MessageID == messageID && re.UserID == userID && re.Emoji == emoji {
			return nil
		}
	}
	r.Store.Reactions = append(r.Store.Reactions, models.Reaction{
		TenantID:  tenantID,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *Reactions) Remove(ctx context.Context, tenantID uuid.UUID, messageID int64, userID uuid.UUID, emoji string) error {
	kept := r.Store.Reactions[:0]
	for _, re := range r.Store.Reactions {
		if re.TenantID == tenantID && re.MessageID == messageID && re.UserID == userID && re.Emoji == emoji {
			continue
		}
		kept = append(kept, re)
	}
	r.Store.Reactions = kept
	return nil
}

func (r *Reactions) ListByMessage(ctx context.Context, tenantID uuid.UUID, messageID int64) ([]models.Reaction, error) {
	out := make([]models.Reaction, 0)
	for _, re := range r.Store.Reactions {
		if re.TenantID == tenantID && re.MessageID == messageID {
			out = append(out, re)
		}
	}
	return out, nil
}

// ---- ReadMarkerRepository ----

type ReadMarkerRepo struct{ *Store }

func (s *Store) MarkerRepo() *ReadMarkerRepo { return &ReadMarkerRepo{s} }

func (r *ReadMarkerRepo) Upsert(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, userID uuid.UUID, lastReadID int64) error {
	for i := range r.Store.ReadMarkers {
		rm := &r.Store.ReadMarkers[i]
		if rm.Container == ref && rm.UserID == userID {
			rm.LastReadID = lastReadID
			rm.UpdatedAt = time.Now()
			return nil
		}
	}
	r.Store.ReadMarkers = append(r.Store.ReadMarkers, models.ReadMarker{
		TenantID:   tenantID,
		Container:  ref,
		UserID:     userID,
		LastReadID: lastReadID,
		UpdatedAt:  time.Now(),
	})
	return nil
}

func (r *ReadMarkerRepo) Get(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, userID uuid.UUID) (int64, error) {
	for _, rm := range r.Store.ReadMarkers {
		if rm.TenantID == tenantID && rm.Container == ref && rm.UserID == userID {
			return rm.LastReadID, nil
		}
	}
	return 0, nil
}
