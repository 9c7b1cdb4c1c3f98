package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ShoplistBot/internal/config"
	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/testutil"
	"github.com/Kerhoff/ShoplistBot/pkg/logger"
)

type fixture struct {
	ctx context.Context
	db  *config.Database
	svc *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDatabase(t)
	return &fixture{
		ctx: context.Background(),
		db:  db,
		svc: New(db.Store(), logger.Discard()),
	}
}

func (f *fixture) user(t *testing.T, externalID int64) *models.User {
	t.Helper()
	user, err := f.svc.EnsureUser(f.ctx, externalID, "", "")
	require.NoError(t, err)
	return user
}

// family founds a family with admin named adminName.
func (f *fixture) family(t *testing.T, admin *models.User, name, adminName string) *models.Family {
	t.Helper()
	family, err := f.svc.FoundFamily(f.ctx, admin.ID, name)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetDisplayName(f.ctx, admin.ID, adminName))
	return family
}

func (f *fixture) join(t *testing.T, user *models.User, family *models.Family, name string) {
	t.Helper()
	_, err := f.svc.JoinByCode(f.ctx, user.ID, family.InviteCode)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetDisplayName(f.ctx, user.ID, name))
}

func (f *fixture) reload(t *testing.T, user *models.User) *models.User {
	t.Helper()
	fresh, err := f.svc.GetUser(f.ctx, user.ID)
	require.NoError(t, err)
	return fresh
}

func TestEnsureUser(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.EnsureUser(f.ctx, 1001, "anna", "Anna K")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.HasFamily())
	assert.False(t, created.IsAdmin)

	same, err := f.svc.EnsureUser(f.ctx, 1001, "anna", "Anna K")
	require.NoError(t, err)
	assert.Equal(t, created.ID, same.ID)

	updated, err := f.svc.EnsureUser(f.ctx, 1001, " anna_k ", "Anna Karenina")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	stored := f.reload(t, created)
	assert.Equal(t, "anna_k", stored.Username)
	assert.Equal(t, "Anna Karenina", stored.FullName)
}

func TestGetUser_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetUser(f.ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorageFailureIsPersistenceError(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, 1)
	family := f.family(t, admin, "Home", "Mom")

	require.NoError(t, f.db.Close())

	_, err := f.svc.AddItem(f.ctx, family.ID, admin.ID, "Milk")
	var pErr *PersistenceError
	require.True(t, errors.As(err, &pErr), "got %v", err)
	assert.Equal(t, "add item", pErr.Op)

	err = f.svc.TransferAdmin(f.ctx, family.ID, admin.ID, admin.ID)
	assert.True(t, errors.As(err, &pErr), "got %v", err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "пр", truncate("привет", 2))
	assert.Equal(t, "a", truncate("a  b", 3))
}
