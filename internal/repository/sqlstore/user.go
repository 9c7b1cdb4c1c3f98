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

type userRepository struct {
	q         sqlx.ExtContext
	forUpdate string
}

const userColumns = `id, external_id, username, full_name, family_id,
	COALESCE(display_name, '') AS display_name, is_admin, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (external_id, username, full_name, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsAdmin = false
	user.FamilyID = nil

	err := r.q.QueryRowxContext(ctx, r.q.Rebind(query),
		user.ExternalID,
		user.Username,
		user.FullName,
		user.IsAdmin,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return nil, wrapWrite(err, "create user")
	}

	return user, nil
}

func (r *userRepository) get(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	if err := sqlx.GetContext(ctx, r.q, user, r.q.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetForUpdate(ctx context.Context, id int64) (*models.User, error) {
	user, err := r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`+r.forUpdate, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	user, err := r.get(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by external ID: %w", err)
	}
	return user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET username = ?, full_name = ?, updated_at = ? WHERE id = ?`

	user.UpdatedAt = time.Now().UTC()
	rowsAffected, err := exec(ctx, r.q, query, user.Username, user.FullName, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user with ID %d: %w", user.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *userRepository) SetFamily(ctx context.Context, userID int64, familyID *int64, isAdmin bool) error {
	query := `
		UPDATE users
		SET family_id = ?, is_admin = ?, display_name = NULL, updated_at = ?
		WHERE id = ?`

	rowsAffected, err := exec(ctx, r.q, query, familyID, isAdmin && familyID != nil, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to set user family: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user with ID %d: %w", userID, repository.ErrNotFound)
	}
	return nil
}

func (r *userRepository) SetDisplayName(ctx context.Context, userID int64, name string) error {
	query := `UPDATE users SET display_name = ?, updated_at = ? WHERE id = ?`

	rowsAffected, err := exec(ctx, r.q, query, name, time.Now().UTC(), userID)
	if err != nil {
		return wrapWrite(err, "set display name")
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user with ID %d: %w", userID, repository.ErrNotFound)
	}
	return nil
}

func (r *userRepository) DisplayNameTaken(ctx context.Context, familyID int64, name string, exceptUserID int64) (bool, error) {
	query := `SELECT COUNT(*) FROM users WHERE family_id = ? AND display_name = ? AND id <> ?`

	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, r.q.Rebind(query), familyID, name, exceptUserID); err != nil {
		return false, fmt.Errorf("failed to check display name: %w", err)
	}
	return n > 0, nil
}

func (r *userRepository) RevokeAdmin(ctx context.Context, familyID, userID int64) (bool, error) {
	query := `
		UPDATE users SET is_admin = ?, updated_at = ?
		WHERE id = ? AND family_id = ? AND is_admin = ?`

	rowsAffected, err := exec(ctx, r.q, query, false, time.Now().UTC(), userID, familyID, true)
	if err != nil {
		return false, fmt.Errorf("failed to revoke admin: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *userRepository) GrantAdmin(ctx context.Context, familyID, userID int64) (bool, error) {
	query := `UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ? AND family_id = ?`

	rowsAffected, err := exec(ctx, r.q, query, true, time.Now().UTC(), userID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to grant admin: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *userRepository) ListByFamily(ctx context.Context, familyID int64) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE family_id = ?
		ORDER BY is_admin DESC, display_name, id`

	var members []*models.User
	if err := sqlx.SelectContext(ctx, r.q, &members, r.q.Rebind(query), familyID); err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	return members, nil
}
