package guard_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/guard"
	"github.com/teamstream-hq/teamstream/internal/models"
	"github.com/teamstream-hq/teamstream/internal/observ"
	"github.com/teamstream-hq/teamstream/internal/repository/memory"
)

// fixture wires a Guard against in-memory stores with two tenants:
//
//	tenant A: alice (admin), bob, carol
//	  - private channel "eng" with sole member alice (alice created it)
//	  - public channel "general" with member alice
//	  - DM thread between alice and carol
//	tenant B: mallory
//	  - private channel "b-private", public channel "b-public"
//	  - one message in b-public
type fixture struct {
	st    *memory.Store
	g     *guard.Guard
	ctx   context.Context
	tenA  uuid.UUID
	tenB  uuid.UUID
	alice *models.User
	bob   *models.User
	carol *models.User

	eng     *models.Channel
	general *models.Channel
	dm      *models.DmThread

	bPrivate *models.Channel
	bPublic  *models.Channel
	bMsg     *models.Message
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	tenA, err := st.Create(ctx, "acme")
	require.NoError(t, err)
	tenB, err := st.Create(ctx, "globex")
	require.NoError(t, err)

	users := st.UserRepo()
	alice, err := users.Create(ctx, tenA.ID, "alice@acme.test", "Alice", models.RoleAdmin, "x")
	require.NoError(t, err)
	bob, err := users.Create(ctx, tenA.ID, "bob@acme.test", "Bob", models.RoleMember, "x")
	require.NoError(t, err)
	carol, err := users.Create(ctx, tenA.ID, "carol@acme.test", "Carol", models.RoleMember, "x")
	require.NoError(t, err)

	// Creation writes the creator's owner membership itself, so alice is
	// the sole member of both channels from this point.
	channels := st.ChannelRepo()
	eng, err := channels.Create(ctx, tenA.ID, "eng", true, alice.ID)
	require.NoError(t, err)
	general, err := channels.Create(ctx, tenA.ID, "general", false, alice.ID)
	require.NoError(t, err)

	dms := st.DmRepo()
	dm, err := dms.CreateThread(ctx, tenA.ID, alice.ID, carol.ID)
	require.NoError(t, err)

	bPrivate, err := channels.Create(ctx, tenB.ID, "b-private", true, uuid.New())
	require.NoError(t, err)
	bPublic, err := channels.Create(ctx, tenB.ID, "b-public", false, uuid.New())
	require.NoError(t, err)
	bMsg, err := st.MessageRepo().Create(ctx, tenB.ID,
		models.ContainerRef{Kind: models.ContainerChannel, ID: bPublic.ID}, uuid.New(), "hello B", nil)
	require.NoError(t, err)

	g := guard.New(channels, st.MembershipRepo(), dms, st.MessageRepo(), users, observ.Nop())

	return &fixture{
		st: st, g: g, ctx: ctx,
		tenA: tenA.ID, tenB: tenB.ID,
		alice: alice, bob: bob, carol: carol,
		eng: eng, general: general, dm: dm,
		bPrivate: bPrivate, bPublic: bPublic, bMsg: bMsg,
	}
}

func (f *fixture) post(t *testing.T, tenantID uuid.UUID, ref models.ContainerRef, sender uuid.UUID, body string, parent *int64) *models.Message {
	t.Helper()
	msg, err := f.st.MessageRepo().Create(f.ctx, tenantID, ref, sender, body, parent)
	require.NoError(t, err)
	return msg
}

func TestRequireChannelMember_CrossTenantIsNotFound(t *testing.T) {
	f := newFixture(t)

	// Channels that exist in tenant B must be invisible from tenant A —
	// regardless of the privacy flag. NotFound, never Forbidden.
	for _, ch := range []*models.Channel{f.bPrivate, f.bPublic} {
		got, err := f.g.RequireChannelMember(f.ctx, f.tenA, f.alice.ID, ch.ID)
		assert.True(t, apperr.IsNotFound(err), "want NotFound for %s, got %v", ch.Name, err)
		assert.Nil(t, got)
	}
}

func TestRequireChannelMember_Visibility(t *testing.T) {
	f := newFixture(t)

	t.Run("private non-member gets NotFound", func(t *testing.T) {
		_, err := f.g.RequireChannelMember(f.ctx, f.tenA, f.bob.ID, f.eng.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("private non-member and absent channel are indistinguishable", func(t *testing.T) {
		_, denied := f.g.RequireChannelMember(f.ctx, f.tenA, f.bob.ID, f.eng.ID)
		_, absent := f.g.RequireChannelMember(f.ctx, f.tenA, f.bob.ID, uuid.New())
		assert.Equal(t, absent.Error(), denied.Error())
		assert.Equal(t, apperr.Classify(absent), apperr.Classify(denied))
	})

	t.Run("private member passes and gets the channel back", func(t *testing.T) {
		ch, err := f.g.RequireChannelMember(f.ctx, f.tenA, f.alice.ID, f.eng.ID)
		require.NoError(t, err)
		require.NotNil(t, ch)
		assert.Equal(t, f.eng.ID, ch.ID)
	})

	t.Run("public non-member passes", func(t *testing.T) {
		ch, err := f.g.RequireChannelMember(f.ctx, f.tenA, f.bob.ID, f.general.ID)
		require.NoError(t, err)
		assert.Equal(t, f.general.ID, ch.ID)
	})
}

// The asymmetry between the lenient and strict guards is the key property:
// for a public channel and in-tenant non-member, lenient succeeds while
// strict fails Forbidden (not NotFound — the channel is legitimately
// visible, only the extra privilege is missing).
func TestStrictGuardAsymmetry(t *testing.T) {
	f := newFixture(t)

	_, err := f.g.RequireChannelMember(f.ctx, f.tenA, f.bob.ID, f.general.ID)
	assert.NoError(t, err)

	_, err = f.g.RequireChannelMemberStrict(f.ctx, f.tenA, f.bob.ID, f.general.ID)
	assert.True(t, apperr.IsForbidden(err), "strict on public non-member: want Forbidden, got %v", err)

	// On a private channel the strict guard never reaches the Forbidden
	// branch for outsiders... it fails NotFound at the fetch for
	// cross-tenant callers, and Forbidden for in-tenant non-members who
	// are allowed to know the channel exists.
	_, err = f.g.RequireChannelMemberStrict(f.ctx, f.tenA, f.bob.ID, f.eng.ID)
	assert.True(t, apperr.IsForbidden(err))

	_, err = f.g.RequireChannelMemberStrict(f.ctx, f.tenB, f.bob.ID, f.eng.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRequireDmMember(t *testing.T) {
	f := newFixture(t)

	t.Run("member passes", func(t *testing.T) {
		assert.NoError(t, f.g.RequireDmMember(f.ctx, f.tenA, f.alice.ID, f.dm.ID))
		assert.NoError(t, f.g.RequireDmMember(f.ctx, f.tenA, f.carol.ID, f.dm.ID))
	})

	t.Run("non-member gets NotFound, same as absent thread", func(t *testing.T) {
		denied := f.g.RequireDmMember(f.ctx, f.tenA, f.bob.ID, f.dm.ID)
		absent := f.g.RequireDmMember(f.ctx, f.tenA, f.bob.ID, uuid.New())
		require.Error(t, denied)
		assert.True(t, apperr.IsNotFound(denied))
		assert.Equal(t, absent.Error(), denied.Error())
	})

	t.Run("cross-tenant gets NotFound", func(t *testing.T) {
		err := f.g.RequireDmMember(f.ctx, f.tenB, f.alice.ID, f.dm.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestResolveMessageContainer(t *testing.T) {
	f := newFixture(t)

	chMsg := f.post(t, f.tenA, models.ContainerRef{Kind: models.ContainerChannel, ID: f.general.ID}, f.alice.ID, "in channel", nil)
	dmMsg := f.post(t, f.tenA, models.ContainerRef{Kind: models.ContainerDm, ID: f.dm.ID}, f.carol.ID, "in dm", nil)

	t.Run("channel message resolves to channel", func(t *testing.T) {
		_, ref, err := f.g.ResolveMessageContainer(f.ctx, f.tenA, chMsg.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ContainerChannel, ref.Kind)
		assert.Equal(t, f.general.ID, ref.ID)
	})

	t.Run("dm message resolves to dm", func(t *testing.T) {
		_, ref, err := f.g.ResolveMessageContainer(f.ctx, f.tenA, dmMsg.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ContainerDm, ref.Kind)
		assert.Equal(t, f.dm.ID, ref.ID)
	})

	t.Run("cross-tenant resolution is NotFound, never Forbidden", func(t *testing.T) {
		_, _, err := f.g.ResolveMessageContainer(f.ctx, f.tenA, f.bMsg.ID)
		assert.True(t, apperr.IsNotFound(err))
		assert.False(t, apperr.IsForbidden(err))
	})

	t.Run("malformed message is treated as absent", func(t *testing.T) {
		// Corrupt a row directly: no container column set.
		bad := f.post(t, f.tenA, models.ContainerRef{Kind: models.ContainerChannel, ID: f.general.ID}, f.alice.ID, "soon malformed", nil)
		f.st.Messages[bad.ID].ChannelID = nil

		_, _, err := f.g.ResolveMessageContainer(f.ctx, f.tenA, bad.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestRequireMessageAccess(t *testing.T) {
	f := newFixture(t)

	dmMsg := f.post(t, f.tenA, models.ContainerRef{Kind: models.ContainerDm, ID: f.dm.ID}, f.alice.ID, "secret", nil)
	pubMsg := f.post(t, f.tenA, models.ContainerRef{Kind: models.ContainerChannel, ID: f.general.ID}, f.alice.ID, "open", nil)
	privMsg := f.post(t, f.tenA, models.ContainerRef{Kind: models.ContainerChannel, ID: f.eng.ID}, f.alice.ID, "eng only", nil)

	t.Run("dm outsider gets NotFound", func(t *testing.T) {
		// bob is in tenant A but not in the alice/carol thread.
		_, _, err := f.g.RequireMessageAccess(f.ctx, f.tenA, f.bob.ID, dmMsg.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("dm participant passes and gets the container back", func(t *testing.T) {
		msg, ref, err := f.g.RequireMessageAccess(f.ctx, f.tenA, f.carol.ID, dmMsg.ID)
		require.NoError(t, err)
		assert.Equal(t, dmMsg.ID, msg.ID)
		assert.Equal(t, models.ContainerDm, ref.Kind)
	})

	t.Run("public channel message readable by any tenant member", func(t *testing.T) {
		_, _, err := f.g.RequireMessageAccess(f.ctx, f.tenA, f.bob.ID, pubMsg.ID)
		assert.NoError(t, err)
	})

	t.Run("private channel message hidden from non-members", func(t *testing.T) {
		_, _, err := f.g.RequireMessageAccess(f.ctx, f.tenA, f.bob.ID, privMsg.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("any guard against a foreign tenant's message is NotFound", func(t *testing.T) {
		_, _, err := f.g.RequireMessageAccess(f.ctx, f.tenA, f.alice.ID, f.bMsg.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestIsAdmin(t *testing.T) {
	f := newFixture(t)

	t.Run("admin role in own tenant", func(t *testing.T) {
		admin, err := f.g.IsAdmin(f.ctx, f.tenA, f.alice.ID)
		require.NoError(t, err)
		assert.True(t, admin)
	})

	t.Run("plain member is not admin", func(t *testing.T) {
		admin, err := f.g.IsAdmin(f.ctx, f.tenA, f.bob.ID)
		require.NoError(t, err)
		assert.False(t, admin)
	})

	t.Run("admin of tenant A is nobody in tenant B", func(t *testing.T) {
		// The raw role field says "admin", but the tenant-scoped lookup
		// fails, so the stale/cross-tenant role is never trusted.
		admin, err := f.g.IsAdmin(f.ctx, f.tenB, f.alice.ID)
		require.NoError(t, err)
		assert.False(t, admin)
	})

	t.Run("super_admin counts", func(t *testing.T) {
		root, err := f.st.UserRepo().Create(f.ctx, f.tenA, "root@acme.test", "Root", models.RoleSuperAdmin, "x")
		require.NoError(t, err)
		admin, err := f.g.IsAdmin(f.ctx, f.tenA, root.ID)
		require.NoError(t, err)
		assert.True(t, admin)
	})
}

func TestRequirePinAuthority(t *testing.T) {
	f := newFixture(t)

	t.Run("channel creator", func(t *testing.T) {
		ch, err := f.g.RequirePinAuthority(f.ctx, f.tenA, f.alice.ID, f.eng.ID)
		require.NoError(t, err)
		assert.Equal(t, f.eng.ID, ch.ID)
	})

	t.Run("tenant admin who did not create the channel", func(t *testing.T) {
		other, err := f.st.ChannelRepo().Create(f.ctx, f.tenA, "random", false, f.bob.ID)
		require.NoError(t, err)
		_, err = f.g.RequirePinAuthority(f.ctx, f.tenA, f.alice.ID, other.ID)
		assert.NoError(t, err)
	})

	t.Run("plain member gets Forbidden", func(t *testing.T) {
		_, err := f.g.RequirePinAuthority(f.ctx, f.tenA, f.bob.ID, f.general.ID)
		assert.True(t, apperr.IsForbidden(err))
	})

	t.Run("cross-tenant channel gets NotFound", func(t *testing.T) {
		_, err := f.g.RequirePinAuthority(f.ctx, f.tenA, f.alice.ID, f.bPublic.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestRequireContainerMember_UnknownKind(t *testing.T) {
	f := newFixture(t)

	err := f.g.RequireContainerMember(f.ctx, f.tenA, f.alice.ID, models.ContainerRef{Kind: "mailbox", ID: uuid.New()})
	assert.Equal(t, apperr.KindBadRequest, apperr.Classify(err))
}
