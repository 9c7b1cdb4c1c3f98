// Package sqlstore implements the repositories on top of database/sql.
//
// Queries are written with '?' placeholders and rebound per driver, so the same
// statements run on PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Kerhoff/ShoplistBot/internal/repository"
)

// Driver names accepted by New.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is the SQL implementation of repository.Store.
type Store struct {
	db *sqlx.DB
	// forUpdate is appended to reads that must lock rows inside a transaction.
	forUpdate string
}

var _ repository.Store = (*Store)(nil)

// New wraps an open database handle. driverName must be DriverPostgres or
// DriverSQLite.
func New(db *sql.DB, driverName string) *Store {
	s := &Store{db: sqlx.NewDb(db, driverName)}
	if driverName == DriverPostgres {
		s.forUpdate = " FOR UPDATE"
	}
	return s
}

// WithTx runs fn inside a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&repos{q: tx, forUpdate: s.forUpdate}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Families() repository.FamilyRepository {
	return &familyRepository{q: s.db}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{q: s.db, forUpdate: s.forUpdate}
}

func (s *Store) Items() repository.ItemRepository {
	return &itemRepository{q: s.db, forUpdate: s.forUpdate}
}

func (s *Store) Templates() repository.TemplateRepository {
	return &templateRepository{q: s.db}
}

// repos binds the repositories to one transaction.
type repos struct {
	q         sqlx.ExtContext
	forUpdate string
}

func (r *repos) Families() repository.FamilyRepository {
	return &familyRepository{q: r.q}
}

func (r *repos) Users() repository.UserRepository {
	return &userRepository{q: r.q, forUpdate: r.forUpdate}
}

func (r *repos) Items() repository.ItemRepository {
	return &itemRepository{q: r.q, forUpdate: r.forUpdate}
}

func (r *repos) Templates() repository.TemplateRepository {
	return &templateRepository{q: r.q}
}

// exec runs a statement and returns the number of affected rows.
func exec(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int64, error) {
	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either supported database.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

func wrapWrite(err error, what string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to %s: %w", what, repository.ErrDuplicate)
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}
