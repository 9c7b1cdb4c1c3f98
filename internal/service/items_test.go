package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/testutil"
	"github.com/Kerhoff/ShoplistBot/pkg/logger"
)

func TestListLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, listLimit(0))
	assert.Equal(t, defaultListLimit, listLimit(-3))
	assert.Equal(t, 7, listLimit(7))
	assert.Equal(t, maxListLimit, listLimit(10_000))
}

func TestAddItem_Validation(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, 1)
	family := f.family(t, admin, "Home", "Mom")
	stranger := f.user(t, 2)

	_, err := f.svc.AddItem(f.ctx, family.ID, admin.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.AddItem(f.ctx, family.ID, admin.ID, strings.Repeat("x", models.MaxItemTextLength+1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.AddItem(f.ctx, family.ID, stranger.ID, "Milk")
	assert.ErrorIs(t, err, ErrNotFound)

	item, err := f.svc.AddItem(f.ctx, family.ID, admin.ID, "  Milk 2%  ")
	require.NoError(t, err)
	assert.Equal(t, "Milk 2%", item.Text)
	assert.Equal(t, admin.ID, item.AddedByID)

	active, err := f.svc.ListActive(f.ctx, family.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Mom", active[0].AddedByName)
}

func TestMarkBoughtThenRestore(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")
	b := f.user(t, 2)
	f.join(t, b, family, "B")

	item, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Milk")
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkBought(f.ctx, family.ID, b.ID, item.ID))
	assertState(t, f, item.ID, models.StateArchived)

	archived, err := f.svc.ListArchived(f.ctx, family.ID, 10)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, item.ID, archived[0].ID)
	assert.Equal(t, b.ID, archived[0].BoughtByID)
	assert.Equal(t, a.ID, archived[0].AddedByID)
	assert.Equal(t, "B", archived[0].BoughtByName)
	assert.Equal(t, "A", archived[0].AddedByName)
	assert.True(t, archived[0].CreatedAt.Equal(item.CreatedAt))
	assert.False(t, archived[0].BoughtAt.Before(item.CreatedAt))

	require.NoError(t, f.svc.Restore(f.ctx, family.ID, item.ID, models.StateArchived))
	assertState(t, f, item.ID, models.StateActive)

	active, err := f.svc.ListActive(f.ctx, family.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, item.ID, active[0].ID)
	assert.Equal(t, a.ID, active[0].AddedByID)
	assert.True(t, active[0].CreatedAt.Equal(item.CreatedAt), "created_at %v != %v", active[0].CreatedAt, item.CreatedAt)

	archived, err = f.svc.ListArchived(f.ctx, family.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestDeleteThenRestore(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")
	b := f.user(t, 2)
	f.join(t, b, family, "B")

	item, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Bread")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, family.ID, b.ID, item.ID))
	assertState(t, f, item.ID, models.StateTrashed)

	trashed, err := f.svc.ListTrashed(f.ctx, family.ID, 0)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, b.ID, trashed[0].DeletedByID)
	assert.Equal(t, "B", trashed[0].DeletedByName)
	assert.True(t, trashed[0].CreatedAt.Equal(item.CreatedAt))

	require.NoError(t, f.svc.Restore(f.ctx, family.ID, item.ID, models.StateTrashed))
	assertState(t, f, item.ID, models.StateActive)

	active, err := f.svc.ListActive(f.ctx, family.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, item.ID, active[0].ID)
	assert.Equal(t, a.ID, active[0].AddedByID)
	assert.True(t, active[0].CreatedAt.Equal(item.CreatedAt))
}

func TestTransitionsFromWrongState(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")

	item, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Eggs")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Restore(f.ctx, family.ID, item.ID, models.StateArchived), ErrNotFound)
	assert.ErrorIs(t, f.svc.Purge(f.ctx, family.ID, a.ID, item.ID), ErrNotFound)
	assertState(t, f, item.ID, models.StateActive)

	require.NoError(t, f.svc.MarkBought(f.ctx, family.ID, a.ID, item.ID))
	assert.ErrorIs(t, f.svc.MarkBought(f.ctx, family.ID, a.ID, item.ID), ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(f.ctx, family.ID, a.ID, item.ID), ErrNotFound)
	assert.ErrorIs(t, f.svc.Restore(f.ctx, family.ID, item.ID, models.StateTrashed), ErrNotFound)
	assertState(t, f, item.ID, models.StateArchived)

	assert.ErrorIs(t, f.svc.Restore(f.ctx, family.ID, item.ID, models.StateActive), ErrInvalidInput)
	assertState(t, f, item.ID, models.StateArchived)

	assert.ErrorIs(t, f.svc.MarkBought(f.ctx, family.ID, a.ID, 9999), ErrNotFound)
}

func TestTransitionsAreScopedToFamily(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	home := f.family(t, a, "Home", "A")
	b := f.user(t, 2)
	other := f.family(t, b, "Other", "B")

	item, err := f.svc.AddItem(f.ctx, home.ID, a.ID, "Tea")
	require.NoError(t, err)

	// b is not a member of home, and the item is not in other.
	assert.ErrorIs(t, f.svc.MarkBought(f.ctx, home.ID, b.ID, item.ID), ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(f.ctx, other.ID, b.ID, item.ID), ErrNotFound)
	assertState(t, f, item.ID, models.StateActive)
}

func TestPurge(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")

	doomed, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Old socks")
	require.NoError(t, err)
	kept, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Juice")
	require.NoError(t, err)
	trashedToo, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Crisps")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, family.ID, a.ID, doomed.ID))
	require.NoError(t, f.svc.Delete(f.ctx, family.ID, a.ID, trashedToo.ID))

	member := f.user(t, 2)
	f.join(t, member, family, "B")
	assert.ErrorIs(t, f.svc.Purge(f.ctx, family.ID, member.ID, doomed.ID), ErrNotAdmin)
	assertState(t, f, doomed.ID, models.StateTrashed)

	require.NoError(t, f.svc.Purge(f.ctx, family.ID, a.ID, doomed.ID))
	assertState(t, f, doomed.ID, models.StatePurged)

	// Purging again, or purging an id that never existed, is a clean miss.
	assert.ErrorIs(t, f.svc.Purge(f.ctx, family.ID, a.ID, doomed.ID), ErrNotFound)
	assert.ErrorIs(t, f.svc.Purge(f.ctx, family.ID, a.ID, 424242), ErrNotFound)

	assertState(t, f, kept.ID, models.StateActive)
	assertState(t, f, trashedToo.ID, models.StateTrashed)
}

func TestPurgeOlderThan(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")

	realNow := f.svc.now
	at := func(ago time.Duration) func() time.Time {
		return func() time.Time { return realNow().Add(-ago) }
	}

	old, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Old")
	require.NoError(t, err)
	recent, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Recent")
	require.NoError(t, err)

	f.svc.now = at(40 * 24 * time.Hour)
	require.NoError(t, f.svc.Delete(f.ctx, family.ID, a.ID, old.ID))
	f.svc.now = at(5 * 24 * time.Hour)
	require.NoError(t, f.svc.Delete(f.ctx, family.ID, a.ID, recent.ID))
	f.svc.now = realNow

	purged, err := f.svc.PurgeOlderThan(f.ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assertState(t, f, old.ID, models.StatePurged)
	assertState(t, f, recent.ID, models.StateTrashed)

	purged, err = f.svc.PurgeOlderThan(f.ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, purged)

	_, err = f.svc.PurgeOlderThan(f.ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPurgeFamilyTrash(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	home := f.family(t, a, "Home", "A")
	b := f.user(t, 2)
	f.join(t, b, home, "B")
	c := f.user(t, 3)
	other := f.family(t, c, "Other", "C")

	realNow := f.svc.now
	at := func(ago time.Duration) func() time.Time {
		return func() time.Time { return realNow().Add(-ago) }
	}

	old, err := f.svc.AddItem(f.ctx, home.ID, a.ID, "Old")
	require.NoError(t, err)
	fresh, err := f.svc.AddItem(f.ctx, home.ID, b.ID, "Fresh")
	require.NoError(t, err)
	foreign, err := f.svc.AddItem(f.ctx, other.ID, c.ID, "Foreign")
	require.NoError(t, err)

	f.svc.now = at(40 * 24 * time.Hour)
	require.NoError(t, f.svc.Delete(f.ctx, home.ID, a.ID, old.ID))
	require.NoError(t, f.svc.Delete(f.ctx, other.ID, c.ID, foreign.ID))
	f.svc.now = realNow
	require.NoError(t, f.svc.Delete(f.ctx, home.ID, b.ID, fresh.ID))

	_, err = f.svc.PurgeFamilyTrash(f.ctx, home.ID, b.ID, 30)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = f.svc.PurgeFamilyTrash(f.ctx, home.ID, c.ID, 30)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assertState(t, f, old.ID, models.StateTrashed)

	purged, err := f.svc.PurgeFamilyTrash(f.ctx, home.ID, a.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assertState(t, f, old.ID, models.StatePurged)
	assertState(t, f, fresh.ID, models.StateTrashed)
	assertState(t, f, foreign.ID, models.StateTrashed)

	_, err = f.svc.PurgeFamilyTrash(f.ctx, home.ID, a.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddItems(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")

	added, err := f.svc.AddItems(f.ctx, family.ID, a.ID, "Milk\n\n  Bread  \r\nEggs\n")
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	active, err := f.svc.ListActive(f.ctx, family.ID)
	require.NoError(t, err)
	texts := make([]string, 0, len(active))
	for _, item := range active {
		texts = append(texts, item.Text)
	}
	assert.ElementsMatch(t, []string{"Milk", "Bread", "Eggs"}, texts)
}

func TestAddItems_PartialFailure(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")

	block := "Apples\n" + strings.Repeat("z", models.MaxItemTextLength+1) + "\nPears"
	added, err := f.svc.AddItems(f.ctx, family.ID, a.ID, block)
	assert.Equal(t, 2, added)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "line 2")

	active, err := f.svc.ListActive(f.ctx, family.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestAddItems_Rejected(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")
	stranger := f.user(t, 2)

	_, err := f.svc.AddItems(f.ctx, family.ID, a.ID, "\n  \n")
	assert.ErrorIs(t, err, ErrInvalidInput)

	added, err := f.svc.AddItems(f.ctx, family.ID, stranger.ID, "Milk")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, added)
}

// SQLite runs on one connection, so there the two transitions queue up; the
// PostgreSQL variant exercises the row locks taken by concurrent transactions.
func TestConcurrentMarkBoughtAndDelete(t *testing.T) {
	raceMarkBoughtAndDelete(t, newFixture(t))
}

func TestConcurrentMarkBoughtAndDelete_Postgres(t *testing.T) {
	db := testutil.NewPostgresDatabase(t)
	raceMarkBoughtAndDelete(t, &fixture{
		ctx: context.Background(),
		db:  db,
		svc: New(db.Store(), logger.Discard()),
	})
}

func raceMarkBoughtAndDelete(t *testing.T, f *fixture) {
	t.Helper()
	a := f.user(t, 1)
	family := f.family(t, a, "Home", "A")
	b := f.user(t, 2)
	f.join(t, b, family, "B")

	for round := 0; round < 10; round++ {
		item, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Butter")
		require.NoError(t, err)

		var (
			wg                sync.WaitGroup
			boughtErr, delErr error
		)
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			boughtErr = f.svc.MarkBought(f.ctx, family.ID, a.ID, item.ID)
		}()
		go func() {
			defer wg.Done()
			<-start
			delErr = f.svc.Delete(f.ctx, family.ID, b.ID, item.ID)
		}()
		close(start)
		wg.Wait()

		switch {
		case boughtErr == nil:
			assert.ErrorIs(t, delErr, ErrNotFound)
			assertState(t, f, item.ID, models.StateArchived)
		case delErr == nil:
			assert.ErrorIs(t, boughtErr, ErrNotFound)
			assertState(t, f, item.ID, models.StateTrashed)
		default:
			t.Fatalf("round %d: both transitions failed: %v / %v", round, boughtErr, delErr)
		}
	}
}

// Family F has admin A and member B; the list goes through a full round trip
// and admin rights move from A to B.
func TestFamilyScenario(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	family := f.family(t, a, "F", "A")
	b := f.user(t, 2)
	f.join(t, b, family, "B")

	milk, err := f.svc.AddItem(f.ctx, family.ID, a.ID, "Milk")
	require.NoError(t, err)
	assertState(t, f, milk.ID, models.StateActive)

	require.NoError(t, f.svc.MarkBought(f.ctx, family.ID, b.ID, milk.ID))
	archived, err := f.svc.ListArchived(f.ctx, family.ID, 0)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, b.ID, archived[0].BoughtByID)
	assert.Equal(t, a.ID, archived[0].AddedByID)

	require.NoError(t, f.svc.Restore(f.ctx, family.ID, milk.ID, models.StateArchived))
	active, err := f.svc.ListActive(f.ctx, family.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].AddedByID)
	assertState(t, f, milk.ID, models.StateActive)

	require.NoError(t, f.svc.TransferAdmin(f.ctx, family.ID, a.ID, b.ID))
	assert.True(t, f.reload(t, b).IsAdmin)
	assert.False(t, f.reload(t, a).IsAdmin)

	assert.ErrorIs(t, f.svc.RemoveMember(f.ctx, a.ID, family.ID, b.ID), ErrNotAdmin)
	assert.True(t, f.reload(t, b).InFamily(family.ID))
}

func assertState(t *testing.T, f *fixture, itemID int64, want models.ItemState) {
	t.Helper()
	state, err := f.svc.ItemState(f.ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, want, state)
}
