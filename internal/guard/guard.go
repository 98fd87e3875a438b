// Package guard holds the access-control decision core for chat.
//
// Every guard takes (tenantID, userID, targetID) and either returns nil or
// an *apperr.Error. Two failure kinds exist and they are NOT interchangeable:
//
//   - NotFound: the caller must not be able to distinguish "does not exist"
//     from "exists but you may not see it". This is the default for every
//     check whose violation could leak existence to an unauthorized party.
//   - Forbidden: the caller already legitimately knows the target exists
//     and is being told a specific action is denied on top of that.
//
// Getting the conventional abstraction "right" — always surfacing the most
// specific error — would be a regression here: the overloaded NotFound is a
// deliberate anti-enumeration measure. Route handlers translate kinds to
// statuses mechanically and never reinterpret them.
package guard

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/models"
	"github.com/teamstream-hq/teamstream/internal/observ"
	"github.com/teamstream-hq/teamstream/internal/repository"
)

// Guard bundles the tenant-scoped fetches the decisions need, plus the
// audit sink. It holds no per-request state and no cache: authorization is
// a pure function of current persisted state at call time, so a user
// removed from a private channel loses access on the very next call.
type Guard struct {
	channels    repository.ChannelRepository
	memberships repository.MembershipRepository
	dms         repository.DmRepository
	messages    repository.MessageRepository
	users       repository.UserRepository
	security    *observ.SecurityLog
}

func New(
	channels repository.ChannelRepository,
	memberships repository.MembershipRepository,
	dms repository.DmRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	security *observ.SecurityLog,
) *Guard {
	if security == nil {
		security = observ.Nop()
	}
	return &Guard{
		channels:    channels,
		memberships: memberships,
		dms:         dms,
		messages:    messages,
		users:       users,
		security:    security,
	}
}

// IsAdmin reports whether the user is a tenant-wide admin.
//
// The user must exist IN THIS TENANT and carry an admin role. A user whose
// raw role field says "admin" but who belongs to another tenant is never an
// admin here — the tenant-scoped fetch returns nothing for them, which
// guards against stale or cross-tenant role data.
func (g *Guard) IsAdmin(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	user, err := g.users.GetByID(ctx, tenantID, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return user.Role == models.RoleAdmin || user.Role == models.RoleSuperAdmin, nil
}

// IsChannelOwner reports whether the user created the channel.
func IsChannelOwner(channel *models.Channel, userID uuid.UUID) bool {
	return channel != nil && channel.CreatedBy == userID
}

// RequireChannelMember is the lenient visibility check.
//
//  1. Fetch the channel scoped to the tenant. Absent → NotFound. This step
//     alone defeats cross-tenant enumeration: a channel in another tenant
//     is indistinguishable from one that never existed.
//  2. Public channel → allowed, no membership required.
//  3. Private channel → membership required. Non-member gets the SAME
//     NotFound as step 1, deliberately: "private channel you can't see"
//     and "no such channel" must look identical from outside.
//
// The fetched channel is returned on success. Callers that serve the
// channel must use it rather than fetch again: the decision and the data
// come from one read, so there is no window where the guard passes and a
// second fetch comes back empty.
func (g *Guard) RequireChannelMember(ctx context.Context, tenantID, userID, channelID uuid.UUID) (*models.Channel, error) {
	channel, err := g.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, apperr.NotFound("Channel not found")
	}
	if !channel.IsPrivate {
		return channel, nil
	}

	member, err := g.memberships.IsMember(ctx, tenantID, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		g.security.Event("private_channel_denied", tenantID, userID,
			zap.String("channel_id", channelID.String()))
		return nil, apperr.NotFound("Channel not found")
	}
	return channel, nil
}

// RequireChannelMemberStrict requires explicit membership even for public
// channels. Used for operations like listing the full member roster, where
// being able to see a channel is not enough.
//
// Here — and only here — a membership miss is Forbidden rather than
// NotFound: the channel is visible in the caller's tenant, so its existence
// is already legitimately known; only the extra privilege is missing.
func (g *Guard) RequireChannelMemberStrict(ctx context.Context, tenantID, userID, channelID uuid.UUID) (*models.Channel, error) {
	channel, err := g.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, apperr.NotFound("Channel not found")
	}

	member, err := g.memberships.IsMember(ctx, tenantID, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		g.security.Event("strict_membership_denied", tenantID, userID,
			zap.String("channel_id", channelID.String()))
		return nil, apperr.Forbidden("Not a member of this channel")
	}
	return channel, nil
}

// RequireDmMember checks DM thread access. Threads have no public variant,
// so this collapses to: thread exists in tenant, caller is a member — and
// both misses are NotFound, for the same reason private channels use it:
// a thread you aren't part of must look like a thread that doesn't exist.
func (g *Guard) RequireDmMember(ctx context.Context, tenantID, userID, threadID uuid.UUID) error {
	thread, err := g.dms.GetThread(ctx, tenantID, threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		return apperr.NotFound("Conversation not found")
	}

	member, err := g.dms.IsMember(ctx, tenantID, threadID, userID)
	if err != nil {
		return err
	}
	if !member {
		g.security.Event("dm_access_denied", tenantID, userID,
			zap.String("thread_id", threadID.String()))
		return apperr.NotFound("Conversation not found")
	}
	return nil
}

// RequireContainerMember dispatches to the channel or DM guard based on an
// explicit discriminant. Used where the caller names the container directly
// (thread summaries, unread cursors) instead of reaching it via a message.
func (g *Guard) RequireContainerMember(ctx context.Context, tenantID, userID uuid.UUID, ref models.ContainerRef) error {
	switch ref.Kind {
	case models.ContainerChannel:
		_, err := g.RequireChannelMember(ctx, tenantID, userID, ref.ID)
		return err
	case models.ContainerDm:
		return g.RequireDmMember(ctx, tenantID, userID, ref.ID)
	default:
		return apperr.BadRequest("Unknown target type")
	}
}

// ResolveMessageContainer fetches the message tenant-scoped and returns the
// tagged container it lives in.
//
// A message that is absent, cross-tenant, or malformed (neither container
// column set) is all the same NotFound — a malformed row is treated as
// absent, never surfaced as a distinct error.
func (g *Guard) ResolveMessageContainer(ctx context.Context, tenantID uuid.UUID, messageID int64) (*models.Message, models.ContainerRef, error) {
	msg, err := g.messages.GetByID(ctx, tenantID, messageID)
	if err != nil {
		return nil, models.ContainerRef{}, err
	}
	if msg == nil {
		return nil, models.ContainerRef{}, apperr.NotFound("Message not found")
	}

	ref, ok := msg.Container()
	if !ok {
		g.security.Event("malformed_message_container", tenantID, uuid.Nil,
			zap.Int64("message_id", messageID))
		return nil, models.ContainerRef{}, apperr.NotFound("Message not found")
	}
	return msg, ref, nil
}

// RequireMessageAccess resolves the message's container and checks
// membership on it. The resolved message and container are returned so
// callers don't re-resolve — one fetch serves both the decision and the
// subsequent operation.
func (g *Guard) RequireMessageAccess(ctx context.Context, tenantID, userID uuid.UUID, messageID int64) (*models.Message, models.ContainerRef, error) {
	msg, ref, err := g.ResolveMessageContainer(ctx, tenantID, messageID)
	if err != nil {
		return nil, models.ContainerRef{}, err
	}
	if err := g.RequireContainerMember(ctx, tenantID, userID, ref); err != nil {
		return nil, models.ContainerRef{}, err
	}
	return msg, ref, nil
}

// RequirePinAuthority gates pinning and unpinning in a channel: tenant
// admin or channel creator, on top of the channel existing in the tenant.
//
// This is deliberately stricter than plain membership — a channel member
// who is neither gets Forbidden, not NotFound, because membership has
// already shown them the channel exists.
func (g *Guard) RequirePinAuthority(ctx context.Context, tenantID, userID, channelID uuid.UUID) (*models.Channel, error) {
	channel, err := g.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, apperr.NotFound("Channel not found")
	}

	if IsChannelOwner(channel, userID) {
		return channel, nil
	}
	admin, err := g.IsAdmin(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if !admin {
		g.security.Event("pin_authority_denied", tenantID, userID,
			zap.String("channel_id", channelID.String()))
		return nil, apperr.Forbidden("Requires channel owner or admin")
	}
	return channel, nil
}
