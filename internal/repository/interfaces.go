package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Kerhoff/ShoplistBot/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Store gives access to all repositories and runs transactions across them.
type Store interface {
	Repositories
	// WithTx runs fn inside a single transaction. The transaction is committed
	// when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(r Repositories) error) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Families() FamilyRepository
	Users() UserRepository
	Items() ItemRepository
	Templates() TemplateRepository
}

// FamilyRepository defines the interface for family data operations
type FamilyRepository interface {
	Create(ctx context.Context, family *models.Family) (*models.Family, error)
	GetByID(ctx context.Context, id int64) (*models.Family, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Family, error)
	Rename(ctx context.Context, id int64, name string) error
	ListIDs(ctx context.Context) ([]int64, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetForUpdate reads the user and, where the database supports it, locks
	// the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	// SetFamily moves the user into a family (or out of it when familyID is
	// nil), clearing the display name.
	SetFamily(ctx context.Context, userID int64, familyID *int64, isAdmin bool) error
	SetDisplayName(ctx context.Context, userID int64, name string) error
	DisplayNameTaken(ctx context.Context, familyID int64, name string, exceptUserID int64) (bool, error)
	// RevokeAdmin clears the admin flag only if it is currently set.
	RevokeAdmin(ctx context.Context, familyID, userID int64) (bool, error)
	GrantAdmin(ctx context.Context, familyID, userID int64) (bool, error)
	ListByFamily(ctx context.Context, familyID int64) ([]*models.User, error)
}

// ItemRepository defines the partition-level primitives of the item lifecycle.
// Each Take* call reads a row from its partition and deletes it; it returns
// ErrNotFound when the row is absent or was removed concurrently.
type ItemRepository interface {
	InsertActive(ctx context.Context, familyID, userID int64, text string, createdAt time.Time) (*models.ActiveItem, error)
	RestoreActive(ctx context.Context, item models.ItemCore) error
	InsertArchived(ctx context.Context, item models.ItemCore, boughtByID int64, boughtAt time.Time) error
	InsertTrashed(ctx context.Context, item models.ItemCore, deletedByID int64, deletedAt time.Time) error

	TakeActive(ctx context.Context, familyID, itemID int64) (*models.ItemCore, error)
	TakeArchived(ctx context.Context, familyID, itemID int64) (*models.ItemCore, error)
	TakeTrashed(ctx context.Context, familyID, itemID int64) (*models.ItemCore, error)

	DeleteTrashedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteFamilyTrashedBefore(ctx context.Context, familyID int64, cutoff time.Time) (int64, error)

	ListActive(ctx context.Context, familyID int64) ([]*models.ActiveItem, error)
	ListArchived(ctx context.Context, familyID int64, limit int) ([]*models.ArchivedItem, error)
	ListTrashed(ctx context.Context, familyID int64, limit int) ([]*models.TrashedItem, error)
	// StateOf reports which partition holds the item, or StatePurged.
	StateOf(ctx context.Context, itemID int64) (models.ItemState, error)
}

// TemplateRepository defines the interface for the template shortlist cache
type TemplateRepository interface {
	Replace(ctx context.Context, familyID int64, limit int, now time.Time) (int, error)
	List(ctx context.Context, familyID int64, limit int) ([]*models.Template, error)
}
