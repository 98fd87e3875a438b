// Package chat exposes the per-request, guard-enforcing facade over the
// chat repositories.
//
// A Scoped value is bound to one (tenant, user) pair at construction and
// re-runs the relevant guard before every persistence call. Route handlers
// go through Scoped, never through the repositories directly, so no chat
// feature can be implemented by skipping authorization. There is no
// skip-auth flag on any method — authorization is unconditional per method,
// not configurable per call site.
//
// Scoped holds no decision cache. Every call re-validates against current
// persisted state: a user removed from a private channel mid-session loses
// access on the very next call.
package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/guard"
	"github.com/teamstream-hq/teamstream/internal/models"
	"github.com/teamstream-hq/teamstream/internal/repository"
)

// Repos groups every repository the chat features touch.
type Repos struct {
	Channels    repository.ChannelRepository
	Memberships repository.MembershipRepository
	Dms         repository.DmRepository
	Messages    repository.MessageRepository
	Pins        repository.PinRepository
	Reactions   repository.ReactionRepository
	Markers     repository.ReadMarkerRepository
	Users       repository.UserRepository
}

// Scoped is the facade. Cheap to construct — build one per request.
type Scoped struct {
	tenantID uuid.UUID
	userID   uuid.UUID
	guard    *guard.Guard
	repos    Repos
}

func NewScoped(tenantID, userID uuid.UUID, g *guard.Guard, repos Repos) *Scoped {
	return &Scoped{tenantID: tenantID, userID: userID, guard: g, repos: repos}
}

// ---------------------------------------------------------------
// Channels
// ---------------------------------------------------------------

// ListChannels returns every channel in the tenant. Tenant scoping alone is
// the filter here — listing reveals private channels' names to tenant
// members, which is the product's chosen visibility for the directory.
func (s *Scoped) ListChannels(ctx context.Context) ([]models.Channel, error) {
	return s.repos.Channels.ListByTenant(ctx, s.tenantID)
}

// ListMyChannels returns only channels the bound user belongs to.
func (s *Scoped) ListMyChannels(ctx context.Context) ([]models.Channel, error) {
	return s.repos.Channels.ListByMember(ctx, s.tenantID, s.userID)
}

// CreateChannel creates a channel. The store writes the creator's
// owner-role membership in the same transaction, so the
// at-least-one-member invariant holds from birth.
func (s *Scoped) CreateChannel(ctx context.Context, name string, isPrivate bool) (*models.Channel, error) {
	return s.repos.Channels.Create(ctx, s.tenantID, name, isPrivate, s.userID)
}

// GetChannel applies the lenient membership check and returns the channel
// the guard already fetched — one read serves both.
func (s *Scoped) GetChannel(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	return s.guard.RequireChannelMember(ctx, s.tenantID, s.userID, channelID)
}

// GetChannelStrict applies the strict check — explicit membership required
// even on public channels.
func (s *Scoped) GetChannelStrict(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	return s.guard.RequireChannelMemberStrict(ctx, s.tenantID, s.userID, channelID)
}

// ListChannelMembers exposes the full roster, which is why it runs the
// strict guard: seeing who is in a channel demands more than seeing that
// the channel exists.
func (s *Scoped) ListChannelMembers(ctx context.Context, channelID uuid.UUID) ([]models.ChannelMember, error) {
	if _, err := s.guard.RequireChannelMemberStrict(ctx, s.tenantID, s.userID, channelID); err != nil {
		return nil, err
	}
	return s.repos.Memberships.ListMembers(ctx, s.tenantID, channelID)
}

// JoinChannel is self-service join. Lenient guard: you can join a public
// channel you can see; a private channel you're not in reads as NotFound,
// so you cannot join your way into it.
func (s *Scoped) JoinChannel(ctx context.Context, channelID uuid.UUID) error {
	if _, err := s.guard.RequireChannelMember(ctx, s.tenantID, s.userID, channelID); err != nil {
		return err
	}
	return s.repos.Memberships.AddMember(ctx, s.tenantID, channelID, s.userID, models.ChannelRoleMember)
}

// AddChannelMember adds someone else; that takes pin-level authority
// (tenant admin or channel creator). The target must exist in this tenant.
func (s *Scoped) AddChannelMember(ctx context.Context, channelID, targetUserID uuid.UUID) error {
	if _, err := s.guard.RequirePinAuthority(ctx, s.tenantID, s.userID, channelID); err != nil {
		return err
	}
	target, err := s.repos.Users.GetByID(ctx, s.tenantID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return apperr.NotFound("User not found")
	}
	return s.repos.Memberships.AddMember(ctx, s.tenantID, channelID, targetUserID, models.ChannelRoleMember)
}

// RemoveChannelMember removes a member. Self-removal (leave) only needs
// membership; removing someone else needs admin or owner authority. Either
// way the channel must keep at least one member.
func (s *Scoped) RemoveChannelMember(ctx context.Context, channelID, targetUserID uuid.UUID) error {
	if targetUserID == s.userID {
		if _, err := s.guard.RequireChannelMemberStrict(ctx, s.tenantID, s.userID, channelID); err != nil {
			return err
		}
	} else {
		if _, err := s.guard.RequirePinAuthority(ctx, s.tenantID, s.userID, channelID); err != nil {
			return err
		}
	}

	count, err := s.repos.Memberships.CountMembers(ctx, s.tenantID, channelID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return apperr.Conflict("Cannot remove the last channel member")
	}
	return s.repos.Memberships.RemoveMember(ctx, s.tenantID, channelID, targetUserID)
}

// ---------------------------------------------------------------
// Messages
// ---------------------------------------------------------------

// ListChannelMessages pages through a channel's messages after the lenient
// membership check.
func (s *Scoped) ListChannelMessages(ctx context.Context, channelID uuid.UUID, before int64, limit int) ([]models.Message, error) {
	if _, err := s.guard.RequireChannelMember(ctx, s.tenantID, s.userID, channelID); err != nil {
		return nil, err
	}
	ref := models.ContainerRef{Kind: models.ContainerChannel, ID: channelID}
	return s.repos.Messages.List(ctx, s.tenantID, ref, before, limit)
}

// PostChannelMessage writes a message (or single-level reply) to a channel.
func (s *Scoped) PostChannelMessage(ctx context.Context, channelID uuid.UUID, body string, parentID *int64) (*models.Message, error) {
	if _, err := s.guard.RequireChannelMember(ctx, s.tenantID, s.userID, channelID); err != nil {
		return nil, err
	}
	ref := models.ContainerRef{Kind: models.ContainerChannel, ID: channelID}
	if err := s.validateParent(ctx, parentID, ref); err != nil {
		return nil, err
	}
	return s.repos.Messages.Create(ctx, s.tenantID, ref, s.userID, body, parentID)
}

// GetMessage runs the composite access check and returns both the message
// and its resolved container, so callers need not re-resolve.
func (s *Scoped) GetMessage(ctx context.Context, messageID int64) (*models.Message, models.ContainerRef, error) {
	return s.guard.RequireMessageAccess(ctx, s.tenantID, s.userID, messageID)
}

// RequireMessageOwnership layers authorship on top of access. A visible
// message with a different author fails Forbidden, not NotFound — the
// caller has already legitimately observed the message, so ownership
// failures are allowed to be distinguishable from existence failures.
func (s *Scoped) RequireMessageOwnership(ctx context.Context, messageID int64) (*models.Message, models.ContainerRef, error) {
	msg, ref, err := s.guard.RequireMessageAccess(ctx, s.tenantID, s.userID, messageID)
	if err != nil {
		return nil, models.ContainerRef{}, err
	}
	if msg.SenderID != s.userID {
		return nil, models.ContainerRef{}, apperr.Forbidden("Can only modify your own messages")
	}
	return msg, ref, nil
}

// EditMessage is ownership-gated and refuses deleted targets.
func (s *Scoped) EditMessage(ctx context.Context, messageID int64, body string) (*models.Message, error) {
	msg, _, err := s.RequireMessageOwnership(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted() {
		return nil, apperr.BadRequest("Cannot edit a deleted message")
	}
	return s.repos.Messages.UpdateBody(ctx, s.tenantID, messageID, body)
}

// DeleteMessage soft-deletes the caller's own message.
func (s *Scoped) DeleteMessage(ctx context.Context, messageID int64) error {
	if _, _, err := s.RequireMessageOwnership(ctx, messageID); err != nil {
		return err
	}
	return s.repos.Messages.SoftDelete(ctx, s.tenantID, messageID)
}

// ListReplies returns a message's reply thread after the access check on
// the parent; replies live in the same container by construction.
func (s *Scoped) ListReplies(ctx context.Context, messageID int64) ([]models.Message, error) {
	if _, _, err := s.guard.RequireMessageAccess(ctx, s.tenantID, s.userID, messageID); err != nil {
		return nil, err
	}
	return s.repos.Messages.ListReplies(ctx, s.tenantID, messageID)
}

// validateParent enforces the single-level threading invariant: the parent
// must exist in the same container and must not itself be a reply.
func (s *Scoped) validateParent(ctx context.Context, parentID *int64, ref models.ContainerRef) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.repos.Messages.GetByID(ctx, s.tenantID, *parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return apperr.NotFound("Message not found")
	}
	pref, ok := parent.Container()
	if !ok || pref != ref {
		return apperr.NotFound("Message not found")
	}
	if parent.ParentMessageID != nil {
		return apperr.BadRequest("Cannot reply to a reply")
	}
	return nil
}

// ---------------------------------------------------------------
// Reactions
// ---------------------------------------------------------------

// AddReaction reacts to any message the user can access, unless the
// message is deleted.
func (s *Scoped) AddReaction(ctx context.Context, messageID int64, emoji string) error {
	msg, _, err := s.guard.RequireMessageAccess(ctx, s.tenantID, s.userID, messageID)
	if err != nil {
		return err
	}
	if msg.Deleted() {
		return apperr.BadRequest("Cannot react to a deleted message")
	}
	return s.repos.Reactions.Add(ctx, s.tenantID, messageID, s.userID, emoji)
}

// RemoveReaction removes the caller's own reaction.
func (s *Scoped) RemoveReaction(ctx context.Context, messageID int64, emoji string) error {
	if _, _, err := s.guard.RequireMessageAccess(ctx, s.tenantID, s.userID, messageID); err != nil {
		return err
	}
	return s.repos.Reactions.Remove(ctx, s.tenantID, messageID, s.userID, emoji)
}

func (s *Scoped) ListReactions(ctx context.Context, messageID int64) ([]models.Reaction, error) {
	if _, _, err := s.guard.RequireMessageAccess(ctx, s.tenantID, s.userID, messageID); err != nil {
		return nil, err
	}
	return s.repos.Reactions.ListByMessage(ctx, s.tenantID, messageID)
}

// ---------------------------------------------------------------
// Pins
// ---------------------------------------------------------------

// ListPins needs only the lenient membership check — reading pins is
// reading the channel.
func (s *Scoped) ListPins(ctx context.Context, channelID uuid.UUID) ([]models.Pin, error) {
	if _, err := s.guard.RequireChannelMember(ctx, s.tenantID, s.userID, channelID); err != nil {
		return nil, err
	}
	return s.repos.Pins.ListByChannel(ctx, s.tenantID, channelID)
}

// PinMessage composes the stricter pin policy: pin authority on the
// channel (admin or creator), message must live in that channel, must be
// top-level, and must not be deleted. A duplicate pin surfaces as the
// store's Conflict — under a race, the uniqueness constraint decides.
func (s *Scoped) PinMessage(ctx context.Context, channelID uuid.UUID, messageID int64) (*models.Pin, error) {
	if _, err := s.guard.RequirePinAuthority(ctx, s.tenantID, s.userID, channelID); err != nil {
		return nil, err
	}

	msg, ref, err := s.guard.ResolveMessageContainer(ctx, s.tenantID, messageID)
	if err != nil {
		return nil, err
	}
	if ref.Kind != models.ContainerChannel || ref.ID != channelID {
		return nil, apperr.NotFound("Message not found")
	}
	if msg.ParentMessageID != nil {
		return nil, apperr.BadRequest("Cannot pin a reply")
	}
	if msg.Deleted() {
		return nil, apperr.BadRequest("Cannot pin a deleted message")
	}

	return s.repos.Pins.Create(ctx, s.tenantID, channelID, messageID, s.userID)
}

// UnpinMessage requires the same authority as pinning.
func (s *Scoped) UnpinMessage(ctx context.Context, channelID uuid.UUID, messageID int64) error {
	if _, err := s.guard.RequirePinAuthority(ctx, s.tenantID, s.userID, channelID); err != nil {
		return err
	}
	return s.repos.Pins.Delete(ctx, s.tenantID, channelID, messageID)
}

// ---------------------------------------------------------------
// Direct messages
// ---------------------------------------------------------------

func (s *Scoped) ListDmThreads(ctx context.Context) ([]models.DmThread, error) {
	return s.repos.Dms.ListThreadsByMember(ctx, s.tenantID, s.userID)
}

// OpenDmThread finds or creates the two-person thread between the caller
// and another tenant member. An unknown or cross-tenant peer is NotFound —
// opening a DM must not confirm user IDs in other tenants.
func (s *Scoped) OpenDmThread(ctx context.Context, otherUserID uuid.UUID) (*models.DmThread, error) {
	if otherUserID == s.userID {
		return nil, apperr.BadRequest("Cannot open a conversation with yourself")
	}
	other, err := s.repos.Users.GetByID(ctx, s.tenantID, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, apperr.NotFound("User not found")
	}

	existing, err := s.repos.Dms.FindThreadBetween(ctx, s.tenantID, s.userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// Thread and both membership rows land in one store transaction.
	return s.repos.Dms.CreateThread(ctx, s.tenantID, s.userID, otherUserID)
}

func (s *Scoped) ListDmMessages(ctx context.Context, threadID uuid.UUID, before int64, limit int) ([]models.Message, error) {
	if err := s.guard.RequireDmMember(ctx, s.tenantID, s.userID, threadID); err != nil {
		return nil, err
	}
	ref := models.ContainerRef{Kind: models.ContainerDm, ID: threadID}
	return s.repos.Messages.List(ctx, s.tenantID, ref, before, limit)
}

func (s *Scoped) PostDmMessage(ctx context.Context, threadID uuid.UUID, body string, parentID *int64) (*models.Message, error) {
	if err := s.guard.RequireDmMember(ctx, s.tenantID, s.userID, threadID); err != nil {
		return nil, err
	}
	ref := models.ContainerRef{Kind: models.ContainerDm, ID: threadID}
	if err := s.validateParent(ctx, parentID, ref); err != nil {
		return nil, err
	}
	return s.repos.Messages.Create(ctx, s.tenantID, ref, s.userID, body, parentID)
}

// ---------------------------------------------------------------
// Thread summaries and unread tracking
// ---------------------------------------------------------------

// ThreadSummaries dispatches on the caller-supplied discriminant — the
// container is named directly, not resolved from a message.
func (s *Scoped) ThreadSummaries(ctx context.Context, ref models.ContainerRef) ([]models.ThreadSummary, error) {
	if err := s.guard.RequireContainerMember(ctx, s.tenantID, s.userID, ref); err != nil {
		return nil, err
	}
	return s.repos.Messages.ThreadSummaries(ctx, s.tenantID, ref)
}

// FirstUnread returns the ID of the first message past the caller's read
// cursor, or 0 when fully caught up.
func (s *Scoped) FirstUnread(ctx context.Context, ref models.ContainerRef) (int64, error) {
	if err := s.guard.RequireContainerMember(ctx, s.tenantID, s.userID, ref); err != nil {
		return 0, err
	}
	lastRead, err := s.repos.Markers.Get(ctx, s.tenantID, ref, s.userID)
	if err != nil {
		return 0, err
	}
	return s.repos.Messages.FirstIDAfter(ctx, s.tenantID, ref, lastRead)
}

// MarkRead moves the caller's read cursor.
func (s *Scoped) MarkRead(ctx context.Context, ref models.ContainerRef, messageID int64) error {
	if err := s.guard.RequireContainerMember(ctx, s.tenantID, s.userID, ref); err != nil {
		return err
	}
	return s.repos.Markers.Upsert(ctx, s.tenantID, ref, s.userID, messageID)
}
