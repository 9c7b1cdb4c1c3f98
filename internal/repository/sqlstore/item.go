package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/repository"
)

// Partition tables, one per non-terminal state.
const (
	activeTable   = "active_items"
	archivedTable = "archived_items"
	trashedTable  = "trashed_items"
)

type itemRepository struct {
	q         sqlx.ExtContext
	forUpdate string
}

func (r *itemRepository) InsertActive(ctx context.Context, familyID, userID int64, text string, createdAt time.Time) (*models.ActiveItem, error) {
	query := `
		INSERT INTO active_items (family_id, owner_user_id, added_by_user_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`

	item := &models.ActiveItem{ItemCore: models.ItemCore{
		FamilyID:  familyID,
		AddedByID: userID,
		Text:      text,
		CreatedAt: createdAt.UTC(),
	}}

	err := r.q.QueryRowxContext(ctx, r.q.Rebind(query),
		item.FamilyID,
		userID,
		item.AddedByID,
		item.Text,
		item.CreatedAt,
	).Scan(&item.ID)
	if err != nil {
		return nil, wrapWrite(err, "add item")
	}

	return item, nil
}

// RestoreActive puts an item back on the list under its original id. The
// adder becomes the owner again.
func (r *itemRepository) RestoreActive(ctx context.Context, item models.ItemCore) error {
	query := `
		INSERT INTO active_items (id, family_id, owner_user_id, added_by_user_id, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := exec(ctx, r.q, query, item.ID, item.FamilyID, item.AddedByID, item.AddedByID, item.Text, item.CreatedAt)
	if err != nil {
		return wrapWrite(err, "restore item")
	}
	return nil
}

func (r *itemRepository) InsertArchived(ctx context.Context, item models.ItemCore, boughtByID int64, boughtAt time.Time) error {
	query := `
		INSERT INTO archived_items (id, family_id, owner_user_id, added_by_user_id, text, created_at, bought_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := exec(ctx, r.q, query, item.ID, item.FamilyID, boughtByID, item.AddedByID, item.Text, item.CreatedAt, boughtAt.UTC())
	if err != nil {
		return wrapWrite(err, "archive item")
	}
	return nil
}

func (r *itemRepository) InsertTrashed(ctx context.Context, item models.ItemCore, deletedByID int64, deletedAt time.Time) error {
	query := `
		INSERT INTO trashed_items (id, family_id, owner_user_id, added_by_user_id, text, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := exec(ctx, r.q, query, item.ID, item.FamilyID, deletedByID, item.AddedByID, item.Text, item.CreatedAt, deletedAt.UTC())
	if err != nil {
		return wrapWrite(err, "trash item")
	}
	return nil
}

func (r *itemRepository) TakeActive(ctx context.Context, familyID, itemID int64) (*models.ItemCore, error) {
	return r.take(ctx, activeTable, familyID, itemID)
}

func (r *itemRepository) TakeArchived(ctx context.Context, familyID, itemID int64) (*models.ItemCore, error) {
	return r.take(ctx, archivedTable, familyID, itemID)
}

func (r *itemRepository) TakeTrashed(ctx context.Context, familyID, itemID int64) (*models.ItemCore, error) {
	return r.take(ctx, trashedTable, familyID, itemID)
}

// take reads the row from its partition and deletes it. A delete that affects
// no rows means a concurrent transaction moved the item first.
func (r *itemRepository) take(ctx context.Context, table string, familyID, itemID int64) (*models.ItemCore, error) {
	selectQuery := `
		SELECT id, family_id, added_by_user_id, text, created_at
		FROM ` + table + `
		WHERE id = ? AND family_id = ?` + r.forUpdate

	item := &models.ItemCore{}
	if err := sqlx.GetContext(ctx, r.q, item, r.q.Rebind(selectQuery), itemID, familyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item %d in %s: %w", itemID, table, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read item from %s: %w", table, err)
	}

	rowsAffected, err := exec(ctx, r.q, `DELETE FROM `+table+` WHERE id = ? AND family_id = ?`, itemID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete item from %s: %w", table, err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("item %d in %s: %w", itemID, table, repository.ErrNotFound)
	}

	return item, nil
}

func (r *itemRepository) DeleteTrashedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	rowsAffected, err := exec(ctx, r.q, `DELETE FROM trashed_items WHERE deleted_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge trashed items: %w", err)
	}
	return rowsAffected, nil
}

func (r *itemRepository) DeleteFamilyTrashedBefore(ctx context.Context, familyID int64, cutoff time.Time) (int64, error) {
	rowsAffected, err := exec(ctx, r.q, `DELETE FROM trashed_items WHERE family_id = ? AND deleted_at < ?`, familyID, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge trashed items of family %d: %w", familyID, err)
	}
	return rowsAffected, nil
}

func (r *itemRepository) ListActive(ctx context.Context, familyID int64) ([]*models.ActiveItem, error) {
	query := `
		SELECT i.id, i.family_id, i.added_by_user_id, i.text, i.created_at,
		       COALESCE(a.display_name, a.full_name, '') AS added_by_name
		FROM active_items i
		LEFT JOIN users a ON a.id = i.added_by_user_id
		WHERE i.family_id = ?
		ORDER BY i.created_at ASC, i.id ASC`

	var items []*models.ActiveItem
	if err := sqlx.SelectContext(ctx, r.q, &items, r.q.Rebind(query), familyID); err != nil {
		return nil, fmt.Errorf("failed to query active items: %w", err)
	}
	return items, nil
}

func (r *itemRepository) ListArchived(ctx context.Context, familyID int64, limit int) ([]*models.ArchivedItem, error) {
	query := `
		SELECT i.id, i.family_id, i.added_by_user_id, i.text, i.created_at,
		       i.owner_user_id, i.bought_at,
		       COALESCE(a.display_name, a.full_name, '') AS added_by_name,
		       COALESCE(o.display_name, o.full_name, '') AS owner_name
		FROM archived_items i
		LEFT JOIN users a ON a.id = i.added_by_user_id
		LEFT JOIN users o ON o.id = i.owner_user_id
		WHERE i.family_id = ?
		ORDER BY i.bought_at DESC, i.id DESC
		LIMIT ?`

	var items []*models.ArchivedItem
	if err := sqlx.SelectContext(ctx, r.q, &items, r.q.Rebind(query), familyID, limit); err != nil {
		return nil, fmt.Errorf("failed to query archived items: %w", err)
	}
	return items, nil
}

func (r *itemRepository) ListTrashed(ctx context.Context, familyID int64, limit int) ([]*models.TrashedItem, error) {
	query := `
		SELECT i.id, i.family_id, i.added_by_user_id, i.text, i.created_at,
		       i.owner_user_id, i.deleted_at,
		       COALESCE(a.display_name, a.full_name, '') AS added_by_name,
		       COALESCE(o.display_name, o.full_name, '') AS owner_name
		FROM trashed_items i
		LEFT JOIN users a ON a.id = i.added_by_user_id
		LEFT JOIN users o ON o.id = i.owner_user_id
		WHERE i.family_id = ?
		ORDER BY i.deleted_at DESC, i.id DESC
		LIMIT ?`

	var items []*models.TrashedItem
	if err := sqlx.SelectContext(ctx, r.q, &items, r.q.Rebind(query), familyID, limit); err != nil {
		return nil, fmt.Errorf("failed to query trashed items: %w", err)
	}
	return items, nil
}

func (r *itemRepository) StateOf(ctx context.Context, itemID int64) (models.ItemState, error) {
	partitions := []struct {
		table string
		state models.ItemState
	}{
		{activeTable, models.StateActive},
		{archivedTable, models.StateArchived},
		{trashedTable, models.StateTrashed},
	}

	var found []models.ItemState
	for _, p := range partitions {
		var n int
		query := r.q.Rebind(`SELECT COUNT(*) FROM ` + p.table + ` WHERE id = ?`)
		if err := sqlx.GetContext(ctx, r.q, &n, query, itemID); err != nil {
			return "", fmt.Errorf("failed to look up item in %s: %w", p.table, err)
		}
		if n > 0 {
			found = append(found, p.state)
		}
	}

	switch len(found) {
	case 0:
		return models.StatePurged, nil
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("item %d is present in %v", itemID, found)
	}
}
