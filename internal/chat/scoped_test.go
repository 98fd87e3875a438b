package chat_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/chat"
	"github.com/teamstream-hq/teamstream/internal/guard"
	"github.com/teamstream-hq/teamstream/internal/models"
	"github.com/teamstream-hq/teamstream/internal/observ"
	"github.com/teamstream-hq/teamstream/internal/repository/memory"
)

type world struct {
	st   *memory.Store
	ctx  context.Context
	tenA uuid.UUID

	alice *models.User // tenant admin, creator of both channels
	bob   *models.User // plain member
	carol *models.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	tenA, err := st.Create(ctx, "acme")
	require.NoError(t, err)

	users := st.UserRepo()
	alice, err := users.Create(ctx, tenA.ID, "alice@acme.test", "Alice", models.RoleAdmin, "x")
	require.NoError(t, err)
	bob, err := users.Create(ctx, tenA.ID, "bob@acme.test", "Bob", models.RoleMember, "x")
	require.NoError(t, err)
	carol, err := users.Create(ctx, tenA.ID, "carol@acme.test", "Carol", models.RoleMember, "x")
	require.NoError(t, err)

	return &world{st: st, ctx: ctx, tenA: tenA.ID, alice: alice, bob: bob, carol: carol}
}

// scopedFor builds the per-request facade the way a route handler would.
func (w *world) scopedFor(userID uuid.UUID) *chat.Scoped {
	repos := chat.Repos{
		Channels:    w.st.ChannelRepo(),
		Memberships: w.st.MembershipRepo(),
		Dms:         w.st.DmRepo(),
		Messages:    w.st.MessageRepo(),
		Pins:        w.st.PinRepo(),
		Reactions:   w.st.ReactionRepo(),
		Markers:     w.st.MarkerRepo(),
		Users:       w.st.UserRepo(),
	}
	g := guard.New(repos.Channels, repos.Memberships, repos.Dms, repos.Messages, repos.Users, observ.Nop())
	return chat.NewScoped(w.tenA, userID, g, repos)
}

func TestCreateChannelAddsCreatorAsOwner(t *testing.T) {
	w := newWorld(t)
	s := w.scopedFor(w.bob.ID)

	ch, err := s.CreateChannel(w.ctx, "design", true)
	require.NoError(t, err)

	// The owner membership comes out of the same store call as the
	// channel itself — there is no separate insert that could fail and
	// leave a zero-member channel behind.
	members, err := s.ListChannelMembers(w.ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, w.bob.ID, members[0].UserID)
	assert.Equal(t, models.ChannelRoleOwner, members[0].Role)
}

// vanishingChannels drops a channel from the backing store the moment it
// has been read once, simulating a concurrent delete landing right after
// an authorization check. A decide-then-refetch sequence would serve
// nil with no error in that window; the guard returning its own fetch
// must not.
type vanishingChannels struct {
	*memory.Channels
	st      *memory.Store
	dropped bool
}

func (v *vanishingChannels) GetByID(ctx context.Context, tenantID, channelID uuid.UUID) (*models.Channel, error) {
	ch, err := v.Channels.GetByID(ctx, tenantID, channelID)
	if ch != nil && !v.dropped {
		v.dropped = true
		delete(v.st.Channels, ch.ID)
	}
	return ch, err
}

func TestGetChannelSurvivesConcurrentDelete(t *testing.T) {
	w := newWorld(t)

	ch, err := w.st.ChannelRepo().Create(w.ctx, w.tenA, "general", false, w.alice.ID)
	require.NoError(t, err)

	repos := chat.Repos{
		Channels:    &vanishingChannels{Channels: w.st.ChannelRepo(), st: w.st},
		Memberships: w.st.MembershipRepo(),
		Dms:         w.st.DmRepo(),
		Messages:    w.st.MessageRepo(),
		Pins:        w.st.PinRepo(),
		Reactions:   w.st.ReactionRepo(),
		Markers:     w.st.MarkerRepo(),
		Users:       w.st.UserRepo(),
	}
	g := guard.New(repos.Channels, repos.Memberships, repos.Dms, repos.Messages, repos.Users, observ.Nop())
	s := chat.NewScoped(w.tenA, w.alice.ID, g, repos)

	got, err := s.GetChannel(w.ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "channel read by the guard must be the one served")
	assert.Equal(t, ch.ID, got.ID)

	// The row really is gone for the next request.
	_, err = s.GetChannel(w.ctx, ch.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestMessageOwnership(t *testing.T) {
	w := newWorld(t)
	alice := w.scopedFor(w.alice.ID)
	bob := w.scopedFor(w.bob.ID)

	ch, err := alice.CreateChannel(w.ctx, "general", false)
	require.NoError(t, err)
	msg, err := alice.PostChannelMessage(w.ctx, ch.ID, "mine", nil)
	require.NoError(t, err)

	t.Run("author may edit", func(t *testing.T) {
		edited, err := alice.EditMessage(w.ctx, msg.ID, "mine, edited")
		require.NoError(t, err)
		assert.Equal(t, "mine, edited", edited.Body)
		assert.NotNil(t, edited.EditedAt)
	})

	t.Run("visible non-author gets Forbidden, not NotFound", func(t *testing.T) {
		// bob can read the public channel, so the message's existence is
		// already legitimately known — Forbidden is correct here.
		_, err := bob.EditMessage(w.ctx, msg.ID, "not yours")
		assert.True(t, apperr.IsForbidden(err))
	})

	t.Run("invisible message is NotFound even for ownership checks", func(t *testing.T) {
		priv, err := alice.CreateChannel(w.ctx, "secret", true)
		require.NoError(t, err)
		hidden, err := alice.PostChannelMessage(w.ctx, priv.ID, "hidden", nil)
		require.NoError(t, err)

		_, _, err = bob.RequireMessageOwnership(w.ctx, hidden.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestSingleLevelThreading(t *testing.T) {
	w := newWorld(t)
	s := w.scopedFor(w.alice.ID)

	ch, err := s.CreateChannel(w.ctx, "general", false)
	require.NoError(t, err)
	top, err := s.PostChannelMessage(w.ctx, ch.ID, "top", nil)
	require.NoError(t, err)
	reply, err := s.PostChannelMessage(w.ctx, ch.ID, "reply", &top.ID)
	require.NoError(t, err)

	_, err = s.PostChannelMessage(w.ctx, ch.ID, "reply to reply", &reply.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.Classify(err))

	replies, err := s.ListReplies(w.ctx, top.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)
}

func TestReactions(t *testing.T) {
	w := newWorld(t)
	alice := w.scopedFor(w.alice.ID)
	bob := w.scopedFor(w.bob.ID)

	ch, err := alice.CreateChannel(w.ctx, "general", false)
	require.NoError(t, err)
	msg, err := alice.PostChannelMessage(w.ctx, ch.ID, "react to me", nil)
	require.NoError(t, err)

	require.NoError(t, bob.AddReaction(w.ctx, msg.ID, "👍"))
	// Idempotent: same reaction twice is a no-op, not an error.
	require.NoError(t, bob.AddReaction(w.ctx, msg.ID, "👍"))

	reactions, err := bob.ListReactions(w.ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, reactions, 1)

	t.Run("deleted message rejects reactions", func(t *testing.T) {
		require.NoError(t, alice.DeleteMessage(w.ctx, msg.ID))
		err := bob.AddReaction(w.ctx, msg.ID, "🎉")
		assert.Equal(t, apperr.KindBadRequest, apperr.Classify(err))
	})
}

func TestPinComposition(t *testing.T) {
	w := newWorld(t)
	alice := w.scopedFor(w.alice.ID)
	bob := w.scopedFor(w.bob.ID)

	ch, err := alice.CreateChannel(w.ctx, "general", false)
	require.NoError(t, err)
	require.NoError(t, bob.JoinChannel(w.ctx, ch.ID))

	top, err := alice.PostChannelMessage(w.ctx, ch.ID, "важно", nil)
	require.NoError(t, err)
	reply, err := alice.PostChannelMessage(w.ctx, ch.ID, "threaded", &top.ID)
	require.NoError(t, err)

	t.Run("member without authority gets Forbidden", func(t *testing.T) {
		_, err := bob.PinMessage(w.ctx, ch.ID, top.ID)
		assert.True(t, apperr.IsForbidden(err))
	})

	t.Run("creator pins a top-level message", func(t *testing.T) {
		pin, err := alice.PinMessage(w.ctx, ch.ID, top.ID)
		require.NoError(t, err)
		assert.Equal(t, top.ID, pin.MessageID)
	})

	t.Run("duplicate pin is Conflict", func(t *testing.T) {
		_, err := alice.PinMessage(w.ctx, ch.ID, top.ID)
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("a reply can never be pinned", func(t *testing.T) {
		_, err := alice.PinMessage(w.ctx, ch.ID, reply.ID)
		assert.Equal(t, apperr.KindBadRequest, apperr.Classify(err))
	})

	t.Run("message from another channel is NotFound", func(t *testing.T) {
		other, err := alice.CreateChannel(w.ctx, "other", false)
		require.NoError(t, err)
		elsewhere, err := alice.PostChannelMessage(w.ctx, other.ID, "wrong channel", nil)
		require.NoError(t, err)

		_, err = alice.PinMessage(w.ctx, ch.ID, elsewhere.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("any member can list pins", func(t *testing.T) {
		pins, err := bob.ListPins(w.ctx, ch.ID)
		require.NoError(t, err)
		assert.Len(t, pins, 1)
	})
}

func TestMemberRemoval(t *testing.T) {
	w := newWorld(t)
	alice := w.scopedFor(w.alice.ID)
	bob := w.scopedFor(w.bob.ID)
	carol := w.scopedFor(w.carol.ID)

	ch, err := alice.CreateChannel(w.ctx, "general", false)
	require.NoError(t, err)
	require.NoError(t, bob.JoinChannel(w.ctx, ch.ID))
	require.NoError(t, carol.JoinChannel(w.ctx, ch.ID))

	t.Run("plain member cannot remove others", func(t *testing.T) {
		err := bob.RemoveChannelMember(w.ctx, ch.ID, w.carol.ID)
		assert.True(t, apperr.IsForbidden(err))
	})

	t.Run("member can leave on their own", func(t *testing.T) {
		require.NoError(t, carol.RemoveChannelMember(w.ctx, ch.ID, w.carol.ID))
	})

	t.Run("admin removes a member", func(t *testing.T) {
		require.NoError(t, alice.RemoveChannelMember(w.ctx, ch.ID, w.bob.ID))
	})

	t.Run("last member cannot be removed", func(t *testing.T) {
		err := alice.RemoveChannelMember(w.ctx, ch.ID, w.alice.ID)
		assert.True(t, apperr.IsConflict(err))
	})
}

func TestDmFlow(t *testing.T) {
	w := newWorld(t)
	alice := w.scopedFor(w.alice.ID)
	bob := w.scopedFor(w.bob.ID)

	thread, err := alice.OpenDmThread(w.ctx, w.carol.ID)
	require.NoError(t, err)

	t.Run("thread is born with both members", func(t *testing.T) {
		members, err := w.st.DmRepo().ListMembers(w.ctx, w.tenA, thread.ID)
		require.NoError(t, err)
		require.Len(t, members, 2)
	})

	t.Run("open is idempotent per pair", func(t *testing.T) {
		again, err := alice.OpenDmThread(w.ctx, w.carol.ID)
		require.NoError(t, err)
		assert.Equal(t, thread.ID, again.ID)
	})

	t.Run("self-DM is rejected", func(t *testing.T) {
		_, err := alice.OpenDmThread(w.ctx, w.alice.ID)
		assert.Equal(t, apperr.KindBadRequest, apperr.Classify(err))
	})

	t.Run("unknown peer is NotFound", func(t *testing.T) {
		_, err := alice.OpenDmThread(w.ctx, uuid.New())
		assert.True(t, apperr.IsNotFound(err))
	})

	_, err = alice.PostDmMessage(w.ctx, thread.ID, "hi carol", nil)
	require.NoError(t, err)

	t.Run("outsider sees nothing", func(t *testing.T) {
		_, err := bob.ListDmMessages(w.ctx, thread.ID, 0, 50)
		assert.True(t, apperr.IsNotFound(err))
		_, err = bob.PostDmMessage(w.ctx, thread.ID, "let me in", nil)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("participant reads", func(t *testing.T) {
		msgs, err := w.scopedFor(w.carol.ID).ListDmMessages(w.ctx, thread.ID, 0, 50)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})
}

func TestUnreadTracking(t *testing.T) {
	w := newWorld(t)
	alice := w.scopedFor(w.alice.ID)
	bob := w.scopedFor(w.bob.ID)

	ch, err := alice.CreateChannel(w.ctx, "general", false)
	require.NoError(t, err)
	require.NoError(t, bob.JoinChannel(w.ctx, ch.ID))
	ref := models.ContainerRef{Kind: models.ContainerChannel, ID: ch.ID}

	m1, err := alice.PostChannelMessage(w.ctx, ch.ID, "one", nil)
	require.NoError(t, err)
	m2, err := alice.PostChannelMessage(w.ctx, ch.ID, "two", nil)
	require.NoError(t, err)

	t.Run("never read: first unread is the first message", func(t *testing.T) {
		first, err := bob.FirstUnread(w.ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, m1.ID, first)
	})

	t.Run("after marking, cursor advances", func(t *testing.T) {
		require.NoError(t, bob.MarkRead(w.ctx, ref, m1.ID))
		first, err := bob.FirstUnread(w.ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, m2.ID, first)
	})

	t.Run("fully caught up returns zero", func(t *testing.T) {
		require.NoError(t, bob.MarkRead(w.ctx, ref, m2.ID))
		first, err := bob.FirstUnread(w.ctx, ref)
		require.NoError(t, err)
		assert.Zero(t, first)
	})

	t.Run("guarded by the discriminant-dispatched membership check", func(t *testing.T) {
		priv, err := alice.CreateChannel(w.ctx, "secret", true)
		require.NoError(t, err)
		_, err = bob.FirstUnread(w.ctx, models.ContainerRef{Kind: models.ContainerChannel, ID: priv.ID})
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestThreadSummaries(t *testing.T) {
	w := newWorld(t)
	alice := w.scopedFor(w.alice.ID)

	ch, err := alice.CreateChannel(w.ctx, "general", false)
	require.NoError(t, err)
	ref := models.ContainerRef{Kind: models.ContainerChannel, ID: ch.ID}

	top, err := alice.PostChannelMessage(w.ctx, ch.ID, "top", nil)
	require.NoError(t, err)
	_, err = alice.PostChannelMessage(w.ctx, ch.ID, "r1", &top.ID)
	require.NoError(t, err)
	_, err = alice.PostChannelMessage(w.ctx, ch.ID, "r2", &top.ID)
	require.NoError(t, err)

	summaries, err := alice.ThreadSummaries(w.ctx, ref)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, top.ID, summaries[0].ParentMessageID)
	assert.Equal(t, 2, summaries[0].ReplyCount)
	assert.NotNil(t, summaries[0].LastReplyAt)
}

// Revoked membership takes effect on the very next call — the facade keeps
// no decision cache to go stale.
func TestNoStaleAuthorization(t *testing.T) {
	w := newWorld(t)
	alice := w.scopedFor(w.alice.ID)
	bob := w.scopedFor(w.bob.ID)

	priv, err := alice.CreateChannel(w.ctx, "secret", true)
	require.NoError(t, err)
	require.NoError(t, alice.AddChannelMember(w.ctx, priv.ID, w.bob.ID))

	_, err = bob.ListChannelMessages(w.ctx, priv.ID, 0, 50)
	require.NoError(t, err)

	require.NoError(t, alice.RemoveChannelMember(w.ctx, priv.ID, w.bob.ID))

	_, err = bob.ListChannelMessages(w.ctx, priv.ID, 0, 50)
	assert.True(t, apperr.IsNotFound(err))
}
