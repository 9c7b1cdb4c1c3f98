package service

import (
	"errors"
	"fmt"

	"github.com/Kerhoff/ShoplistBot/internal/repository"
)

var (
	// ErrNotFound means the family, user or item is absent, or the item is not
	// in the state the transition expects.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCode means no family matches the invite code.
	ErrInvalidCode = errors.New("invalid invite code")
	// ErrNameTaken means another member of the family uses the display name.
	ErrNameTaken = errors.New("display name already taken")
	// ErrNotAdmin means the acting user is not the admin of the family.
	ErrNotAdmin = errors.New("not the family admin")
	// ErrInvalidInput means the arguments were rejected before touching storage.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyInFamily means the user must leave their family first.
	ErrAlreadyInFamily = errors.New("user already belongs to a family")
)

// PersistenceError reports a storage failure. The operation was aborted and
// nothing it started was committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

var domainErrors = []error{
	ErrNotFound,
	ErrInvalidCode,
	ErrNameTaken,
	ErrNotAdmin,
	ErrInvalidInput,
	ErrAlreadyInFamily,
}

// classify turns an error coming out of a repository call or transaction
// into one of the package's error kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pErr *PersistenceError
	if errors.As(err, &pErr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
