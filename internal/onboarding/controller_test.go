package onboarding

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/service"
	"github.com/Kerhoff/ShoplistBot/internal/testutil"
	"github.com/Kerhoff/ShoplistBot/pkg/logger"
)

type harness struct {
	ctx  context.Context
	svc  *service.Service
	ctrl *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.Discard()
	svc := service.New(testutil.NewStore(t), log)
	return &harness{
		ctx:  context.Background(),
		svc:  svc,
		ctrl: NewController(svc, NewMemoryStore(), log),
	}
}

func (h *harness) user(t *testing.T, externalID int64) *models.User {
	t.Helper()
	user, err := h.svc.EnsureUser(h.ctx, externalID, "", "")
	require.NoError(t, err)
	return user
}

// fresh reloads the user the way the transport does before each message.
func (h *harness) fresh(t *testing.T, user *models.User) *models.User {
	t.Helper()
	u, err := h.svc.GetUser(h.ctx, user.ID)
	require.NoError(t, err)
	return u
}

func (h *harness) say(t *testing.T, user *models.User, text string) Outcome {
	t.Helper()
	out, err := h.ctrl.HandleText(h.ctx, h.fresh(t, user), text)
	require.NoError(t, err)
	return out
}

func TestCreateFamilyPath(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, 1)

	out, err := h.ctrl.BeginCreateFamily(u)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskFamilyName, out.Kind)
	assert.Equal(t, StateAwaitingFamilyName, h.ctrl.Session(u.ID).State)

	// Empty input re-prompts.
	out = h.say(t, u, "   ")
	assert.Equal(t, OutcomeAskFamilyName, out.Kind)
	assert.Equal(t, StateAwaitingFamilyName, h.ctrl.Session(u.ID).State)

	out = h.say(t, u, "The Smiths")
	assert.Equal(t, OutcomeFamilyCreated, out.Kind)
	require.NotNil(t, out.Family)
	assert.Equal(t, "The Smiths", out.Family.Name)

	session := h.ctrl.Session(u.ID)
	assert.Equal(t, StateAwaitingUserName, session.State)
	assert.Equal(t, out.Family.ID, session.FamilyID)
	assert.True(t, h.fresh(t, u).IsAdmin)

	out = h.say(t, u, "")
	assert.Equal(t, OutcomeAskUserName, out.Kind)

	out = h.say(t, u, strings.Repeat("n", 40))
	assert.Equal(t, OutcomeCompleted, out.Kind)
	assert.Equal(t, StateIdle, h.ctrl.Session(u.ID).State)
	assert.Equal(t, strings.Repeat("n", models.MaxDisplayNameLength), h.fresh(t, u).DisplayName)
}

func TestCreateFamily_TruncatesName(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, 1)

	_, err := h.ctrl.BeginCreateFamily(u)
	require.NoError(t, err)

	out := h.say(t, u, strings.Repeat("f", 80))
	require.Equal(t, OutcomeFamilyCreated, out.Kind)
	assert.Len(t, out.Family.Name, models.MaxFamilyNameLength)
}

func TestBeginCreateFamily_AlreadyInFamily(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, 1)
	_, err := h.svc.FoundFamily(h.ctx, u.ID, "Home")
	require.NoError(t, err)

	_, err = h.ctrl.BeginCreateFamily(h.fresh(t, u))
	assert.ErrorIs(t, err, service.ErrAlreadyInFamily)
	assert.Equal(t, StateIdle, h.ctrl.Session(u.ID).State)
}

func TestJoinPath(t *testing.T) {
	h := newHarness(t)
	admin := h.user(t, 1)
	family, err := h.svc.FoundFamily(h.ctx, admin.ID, "Home")
	require.NoError(t, err)
	require.NoError(t, h.svc.SetDisplayName(h.ctx, admin.ID, "Mom"))

	u := h.user(t, 2)
	out := h.say(t, u, strings.ToLower(family.InviteCode))
	assert.Equal(t, OutcomeJoined, out.Kind)
	require.NotNil(t, out.Family)
	assert.Equal(t, family.ID, out.Family.ID)
	assert.Equal(t, StateAwaitingUserName, h.ctrl.Session(u.ID).State)

	// Taken names keep the user in the same step.
	out = h.say(t, u, "Mom")
	assert.Equal(t, OutcomeNameTaken, out.Kind)
	assert.Equal(t, StateAwaitingUserName, h.ctrl.Session(u.ID).State)

	out = h.say(t, u, "Kid")
	assert.Equal(t, OutcomeCompleted, out.Kind)
	assert.Equal(t, StateIdle, h.ctrl.Session(u.ID).State)

	joined := h.fresh(t, u)
	assert.True(t, joined.InFamily(family.ID))
	assert.False(t, joined.IsAdmin)
	assert.Equal(t, "Kid", joined.DisplayName)
}

func TestIdleWithoutFamily(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, 1)

	out := h.say(t, u, "ZZZZZZZZ")
	assert.Equal(t, OutcomeInvalidCode, out.Kind)
	assert.Equal(t, StateIdle, h.ctrl.Session(u.ID).State)
	assert.False(t, h.fresh(t, u).HasFamily())

	for _, text := range []string{"buy some milk please", "abc", "ABCDEFGHI", "ab-cd-ef"} {
		out = h.say(t, u, text)
		assert.Equal(t, OutcomeNeedFamily, out.Kind, text)
	}
	assert.Equal(t, StateIdle, h.ctrl.Session(u.ID).State)
}

func TestIdleWithFamilyIsNotOnboardingInput(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, 1)
	_, err := h.svc.FoundFamily(h.ctx, u.ID, "Home")
	require.NoError(t, err)

	// Even code-shaped text is an item once the user has a family.
	for _, text := range []string{"Milk", "ZZZZZZZZ"} {
		out := h.say(t, u, text)
		assert.Equal(t, OutcomeNotHandled, out.Kind, text)
	}
}

func TestRename(t *testing.T) {
	h := newHarness(t)
	admin := h.user(t, 1)
	family, err := h.svc.FoundFamily(h.ctx, admin.ID, "Home")
	require.NoError(t, err)
	member := h.user(t, 2)
	_, err = h.svc.JoinByCode(h.ctx, member.ID, family.InviteCode)
	require.NoError(t, err)

	_, err = h.ctrl.BeginRename(h.ctx, h.fresh(t, member))
	assert.ErrorIs(t, err, service.ErrNotAdmin)

	out, err := h.ctrl.BeginRename(h.ctx, h.fresh(t, admin))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskFamilyRename, out.Kind)
	assert.Equal(t, "Home", out.Family.Name)

	out = h.say(t, admin, "Dacha")
	assert.Equal(t, OutcomeRenamed, out.Kind)
	assert.Equal(t, "Dacha", out.Family.Name)
	assert.Equal(t, StateIdle, h.ctrl.Session(admin.ID).State)
}

func TestRename_AdminLostRights(t *testing.T) {
	h := newHarness(t)
	admin := h.user(t, 1)
	family, err := h.svc.FoundFamily(h.ctx, admin.ID, "Home")
	require.NoError(t, err)
	member := h.user(t, 2)
	_, err = h.svc.JoinByCode(h.ctx, member.ID, family.InviteCode)
	require.NoError(t, err)

	_, err = h.ctrl.BeginRename(h.ctx, h.fresh(t, admin))
	require.NoError(t, err)
	require.NoError(t, h.svc.TransferAdmin(h.ctx, family.ID, admin.ID, member.ID))

	_, err = h.ctrl.HandleText(h.ctx, h.fresh(t, admin), "Mine now")
	assert.ErrorIs(t, err, service.ErrNotAdmin)
	assert.Equal(t, StateIdle, h.ctrl.Session(admin.ID).State)

	name, err := h.svc.GetFamilyName(h.ctx, family.ID)
	require.NoError(t, err)
	assert.Equal(t, "Home", name)
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, 1)

	assert.False(t, h.ctrl.Cancel(u.ID))

	_, err := h.ctrl.BeginCreateFamily(u)
	require.NoError(t, err)
	assert.True(t, h.ctrl.Cancel(u.ID))
	assert.Equal(t, StateIdle, h.ctrl.Session(u.ID).State)

	// After cancelling, free text is guidance again, not a family name.
	out := h.say(t, u, "The Smiths")
	assert.Equal(t, OutcomeNeedFamily, out.Kind)
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "joined", OutcomeJoined.String())
	assert.Equal(t, "unknown", OutcomeKind(-1).String())
}
