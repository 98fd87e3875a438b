package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/teamstream-hq/teamstream/internal/models"
)

// Why context.Context as the first parameter on every method?
//
//   - It's idiomatic Go for anything that does I/O (DB, Redis, HTTP).
//   - It carries deadlines: if the HTTP request is cancelled, the DB
//     query gets cancelled too. No wasted work.

// Why tenantID appears in every method signature?
//
//   - Multi-tenancy safety. Every query MUST be scoped to a tenant.
//   - Even if someone guesses a channel UUID, they can't access it unless
//     their tenantID matches. This is defense-in-depth at the data layer —
//     the guard layer above enforces visibility, this layer enforces the
//     tenant boundary even if a guard is ever bypassed by mistake.
//   - Fetch-by-id methods return nil, nil when the row is absent OR when
//     it belongs to another tenant. The store cannot tell the difference,
//     and neither may the caller.

// ChannelRepository defines the contract for channel data operations.
type ChannelRepository interface {
	// Create inserts a new channel and the creator's owner membership in
	// one transaction, so a channel can never be observed without at least
	// one member.
	Create(ctx context.Context, tenantID uuid.UUID, name string, isPrivate bool, createdBy uuid.UUID) (*models.Channel, error)

	// GetByID returns a single channel. Returns nil, nil if not found
	// in this tenant.
	GetByID(ctx context.Context, tenantID uuid.UUID, channelID uuid.UUID) (*models.Channel, error)

	// ListByTenant returns all channels in the tenant, newest first.
	// Returns empty slice (not nil) so JSON serializes to [] not null.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Channel, error)

	// ListByMember returns only the channels the user belongs to.
	ListByMember(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) ([]models.Channel, error)
}

// MembershipRepository handles who belongs to which channel.
type MembershipRepository interface {
	// AddMember adds a user to a channel with the given role. Idempotent:
	// adding an existing member is a no-op.
	AddMember(ctx context.Context, tenantID, channelID, userID uuid.UUID, role string) error

	// RemoveMember removes a user from a channel. No-op if not a member.
	RemoveMember(ctx context.Context, tenantID, channelID, userID uuid.UUID) error

	// ListMembers returns all members of a channel.
	ListMembers(ctx context.Context, tenantID, channelID uuid.UUID) ([]models.ChannelMember, error)

	// IsMember checks if a user belongs to a channel. Hot-path check —
	// called by the guards before every read and write.
	IsMember(ctx context.Context, tenantID, channelID, userID uuid.UUID) (bool, error)

	// CountMembers returns the channel's member count. Used to refuse
	// removing the last member.
	CountMembers(ctx context.Context, tenantID, channelID uuid.UUID) (int, error)
}

// DmRepository handles direct-message threads and their membership.
type DmRepository interface {
	// CreateThread creates a thread with both participants' membership
	// rows in one transaction — a thread is never visible half-formed.
	CreateThread(ctx context.Context, tenantID, userA, userB uuid.UUID) (*models.DmThread, error)

	// GetThread returns nil, nil if the thread is absent in this tenant.
	GetThread(ctx context.Context, tenantID, threadID uuid.UUID) (*models.DmThread, error)

	// FindThreadBetween returns the existing two-person thread between the
	// users, or nil, nil if none exists yet.
	FindThreadBetween(ctx context.Context, tenantID, userA, userB uuid.UUID) (*models.DmThread, error)

	// ListThreadsByMember returns all threads the user participates in.
	ListThreadsByMember(ctx context.Context, tenantID, userID uuid.UUID) ([]models.DmThread, error)

	IsMember(ctx context.Context, tenantID, threadID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, tenantID, threadID uuid.UUID) ([]models.DmMember, error)
}

// MessageRepository handles chat message persistence for both container
// kinds. Methods take a models.ContainerRef so channel and DM paths share
// one contract; the store picks the column from ref.Kind.
type MessageRepository interface {
	// Create persists a message in the given container and returns it with
	// ID and CreatedAt populated.
	Create(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, senderID uuid.UUID, body string, parentID *int64) (*models.Message, error)

	// GetByID returns nil, nil if absent in this tenant. Soft-deleted
	// messages are still returned — visibility of deleted rows is a
	// caller decision, not a store decision.
	GetByID(ctx context.Context, tenantID uuid.UUID, messageID int64) (*models.Message, error)

	// List returns messages in a container, newest first, cursor-paginated:
	// before=0 means "from the top" (latest).
	List(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, before int64, limit int) ([]models.Message, error)

	// UpdateBody replaces the body and stamps edited_at.
	UpdateBody(ctx context.Context, tenantID uuid.UUID, messageID int64, body string) (*models.Message, error)

	// SoftDelete blanks the body and stamps deleted_at. The row survives so
	// replies and pins stay resolvable.
	SoftDelete(ctx context.Context, tenantID uuid.UUID, messageID int64) error

	// ThreadSummaries aggregates reply counts per top-level message in the
	// container.
	ThreadSummaries(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef) ([]models.ThreadSummary, error)

	// ListReplies returns the replies under a top-level message, oldest first.
	ListReplies(ctx context.Context, tenantID uuid.UUID, parentID int64) ([]models.Message, error)

	// FirstIDAfter returns the lowest message ID in the container greater
	// than after, or 0 if there is none.
	FirstIDAfter(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, after int64) (int64, error)
}

// PinRepository handles pinned messages.
type PinRepository interface {
	// Create pins a message in a channel. Returns a Conflict error if the
	// message is already pinned there — the database uniqueness constraint
	// is the source of truth for the race between two pinners.
	Create(ctx context.Context, tenantID, channelID uuid.UUID, messageID int64, pinnedBy uuid.UUID) (*models.Pin, error)

	// Delete unpins. No-op if not pinned.
	Delete(ctx context.Context, tenantID, channelID uuid.UUID, messageID int64) error

	ListByChannel(ctx context.Context, tenantID, channelID uuid.UUID) ([]models.Pin, error)
}

// ReactionRepository handles emoji reactions.
type ReactionRepository interface {
	// Add is idempotent: reacting twice with the same emoji is a no-op.
	Add(ctx context.Context, tenantID uuid.UUID, messageID int64, userID uuid.UUID, emoji string) error

	// Remove is idempotent as well.
	Remove(ctx context.Context, tenantID uuid.UUID, messageID int64, userID uuid.UUID, emoji string) error

	ListByMessage(ctx context.Context, tenantID uuid.UUID, messageID int64) ([]models.Reaction, error)
}

// ReadMarkerRepository tracks per-user read cursors per container.
type ReadMarkerRepository interface {
	// Upsert moves the user's cursor forward. Moving it backward is
	// allowed — "mark unread" is a legitimate client action.
	Upsert(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, userID uuid.UUID, lastReadID int64) error

	// Get returns the cursor, or 0 if the user has never read here.
	Get(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, userID uuid.UUID) (int64, error)
}

// UserRepository handles user data.
type UserRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, email, displayName, role, passwordHash string) (*models.User, error)

	// GetByID returns a user by their ID, scoped to the tenant.
	// Returns nil, nil when absent — including when the user exists but
	// in a different tenant, which is what makes guard.IsAdmin safe
	// against stale cross-tenant role data.
	GetByID(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error)

	// GetByEmail looks up a user by email (globally, not tenant-scoped).
	// Used for login — you type your email, we find you.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// TenantRepository handles workspace records.
type TenantRepository interface {
	Create(ctx context.Context, name string) (*models.Tenant, error)
}
