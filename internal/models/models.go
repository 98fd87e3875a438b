package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the top-level isolation boundary (like a Slack workspace).
// Every user, channel, thread, and message belongs to exactly one tenant.
// Company A must never be able to observe that company B's data exists.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Tenant-wide user roles. These are distinct from per-channel roles:
// a tenant admin can pin in any channel they can see, a channel owner
// only in their own.
const (
	RoleMember     = "member"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// User is a person within a tenant.
//
// Why TenantID here?
//   - So every query can be scoped: "give me users WHERE tenant_id = X".
//   - Prevents cross-tenant data leaks at the query level.
//
// Role is the tenant-wide role. It is only meaningful together with
// TenantID — a raw role string without a tenant match is never trusted
// (see guard.IsAdmin).
type User struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Channel is a chat room within a tenant (like #general or #incident-123).
//
// Why IsPrivate?
//   - Public channels: any tenant member can read and list them.
//   - Private channels: membership required for any access, and they must
//     be indistinguishable from nonexistent channels to non-members.
//   - This one boolean drives the authorization logic in internal/guard.
//
// CreatedBy is the channel creator. Creator identity gates owner-only
// actions (pinning, removing members) independently of tenant role.
type Channel struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"is_private"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Per-channel roles, carried on the membership row. Not to be confused
// with the tenant-wide roles above.
const (
	ChannelRoleOwner  = "owner"
	ChannelRoleMember = "member"
)

// ChannelMember is the join table between channels and users.
//
// Why TenantID on a join row when channel and user already carry it?
//   - Defense in depth: membership lookups filter on tenant too, so a
//     membership row can never satisfy a check issued for another tenant,
//     even if IDs collide or data is stale.
type ChannelMember struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DmThread is a direct-message conversation within a tenant.
//
// There is no privacy flag: every DM thread is implicitly private.
// Access always requires a DmMember row — a thread you are not part of
// must look exactly like a thread that does not exist.
type DmThread struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DmMember joins users to DM threads. No role distinction — all
// participants are equal.
type DmMember struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ContainerKind discriminates the two places a message can live.
type ContainerKind string

const (
	ContainerChannel ContainerKind = "channel"
	ContainerDm      ContainerKind = "dm"
)

// ContainerRef is a tagged reference to a message container — a channel
// or a DM thread. Guards resolve messages to one of these, and callers
// dispatch membership checks on Kind.
type ContainerRef struct {
	Kind ContainerKind `json:"kind"`
	ID   uuid.UUID     `json:"id"`
}

// Message is a single chat message in a channel or DM thread.
//
// Why int64 for ID (not UUID)?
//   - Messages are the highest-volume table. bigserial is smaller,
//     naturally ordered (higher ID = newer), and index-friendly.
//   - The monotonic ID doubles as the pagination cursor and the
//     unread-marker position.
//
// Exactly one of ChannelID / DmThreadID is set — a message lives in one
// container, never both, never neither. A row violating that is treated
// as absent by the guard layer, not surfaced as a distinct error.
//
// ParentMessageID marks a threaded reply. Threads are single-level:
// a reply may not itself have replies.
//
// DeletedAt is the soft-delete marker. Deleted messages keep their row
// (so replies and pins stay resolvable) but lose their body.
type Message struct {
	ID              int64      `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	ChannelID       *uuid.UUID `json:"channel_id,omitempty"`
	DmThreadID      *uuid.UUID `json:"dm_thread_id,omitempty"`
	SenderID        uuid.UUID  `json:"sender_id"`
	ParentMessageID *int64     `json:"parent_message_id,omitempty"`
	Body            string     `json:"body"`
	EditedAt        *time.Time `json:"edited_at,omitempty"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Deleted reports whether the message has been soft-deleted.
func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}

// Container returns the tagged container reference for the message, and
// false when the row is malformed (neither or both container columns set).
func (m *Message) Container() (ContainerRef, bool) {
	switch {
	case m.ChannelID != nil && m.DmThreadID == nil:
		return ContainerRef{Kind: ContainerChannel, ID: *m.ChannelID}, true
	case m.DmThreadID != nil && m.ChannelID == nil:
		return ContainerRef{Kind: ContainerDm, ID: *m.DmThreadID}, true
	default:
		return ContainerRef{}, false
	}
}

// Pin marks a message as pinned within a channel.
//
// Only top-level messages may be pinned, and a message may be pinned at
// most once per channel — the (tenant, channel, message) uniqueness lives
// in the database, and the store surfaces violations as a Conflict.
type Pin struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	ChannelID uuid.UUID `json:"channel_id"`
	MessageID int64     `json:"message_id"`
	PinnedBy  uuid.UUID `json:"pinned_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Reaction is an emoji reaction on a message. (message, user, emoji) is
// unique; adding the same reaction twice is a no-op.
type Reaction struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	MessageID int64     `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadMarker records how far a user has read in a container.
// LastReadID is a message ID cursor: everything at or below it is read.
type ReadMarker struct {
	TenantID   uuid.UUID    `json:"tenant_id"`
	Container  ContainerRef `json:"container"`
	UserID     uuid.UUID    `json:"user_id"`
	LastReadID int64        `json:"last_read_id"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// ThreadSummary aggregates a reply thread under a top-level message.
type ThreadSummary struct {
	ParentMessageID int64      `json:"parent_message_id"`
	ReplyCount      int        `json:"reply_count"`
	LastReplyAt     *time.Time `json:"last_reply_at,omitempty"`
}
