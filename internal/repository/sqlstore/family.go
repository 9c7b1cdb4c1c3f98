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

type familyRepository struct {
	q sqlx.ExtContext
}

const familyColumns = `id, name, invite_code, created_at, updated_at`

func (r *familyRepository) Create(ctx context.Context, family *models.Family) (*models.Family, error) {
	query := `
		INSERT INTO families (name, invite_code, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	now := time.Now().UTC()
	family.CreatedAt = now
	family.UpdatedAt = now

	err := r.q.QueryRowxContext(ctx, r.q.Rebind(query),
		family.Name,
		family.InviteCode,
		family.CreatedAt,
		family.UpdatedAt,
	).Scan(&family.ID)
	if err != nil {
		return nil, wrapWrite(err, "create family")
	}

	return family, nil
}

func (r *familyRepository) GetByID(ctx context.Context, id int64) (*models.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families WHERE id = ?`

	family := &models.Family{}
	if err := sqlx.GetContext(ctx, r.q, family, r.q.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get family by ID: %w", err)
	}

	return family, nil
}

func (r *familyRepository) GetByInviteCode(ctx context.Context, code string) (*models.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families WHERE invite_code = ?`

	family := &models.Family{}
	if err := sqlx.GetContext(ctx, r.q, family, r.q.Rebind(query), code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get family by invite code: %w", err)
	}

	return family, nil
}

func (r *familyRepository) Rename(ctx context.Context, id int64, name string) error {
	query := `UPDATE families SET name = ?, updated_at = ? WHERE id = ?`

	rowsAffected, err := exec(ctx, r.q, query, name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to rename family: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("family with ID %d: %w", id, repository.ErrNotFound)
	}

	return nil
}

func (r *familyRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, r.q, &ids, `SELECT id FROM families ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	return ids, nil
}
