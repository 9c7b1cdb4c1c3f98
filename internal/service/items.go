package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/metrics"
	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func listLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func cleanItemText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty item text: %w", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > models.MaxItemTextLength {
		return "", fmt.Errorf("item text longer than %d characters: %w", models.MaxItemTextLength, ErrInvalidInput)
	}
	return text, nil
}

// requireMember fails with ErrNotFound unless the user belongs to the family.
func requireMember(ctx context.Context, r repository.Repositories, familyID, userID int64) error {
	user, err := r.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || !user.InFamily(familyID) {
		return fmt.Errorf("user %d in family %d: %w", userID, familyID, ErrNotFound)
	}
	return nil
}

// requireAdmin fails with ErrNotAdmin unless the user is the family's admin.
func requireAdmin(ctx context.Context, r repository.Repositories, familyID, userID int64) error {
	user, err := r.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || !user.InFamily(familyID) || !user.IsAdmin {
		return fmt.Errorf("user %d in family %d: %w", userID, familyID, ErrNotAdmin)
	}
	return nil
}

// AddItem puts a new item on the family list.
func (s *Service) AddItem(ctx context.Context, familyID, userID int64, text string) (*models.ActiveItem, error) {
	text, err := cleanItemText(text)
	if err != nil {
		return nil, err
	}
	if err := requireMember(ctx, s.store, familyID, userID); err != nil {
		return nil, classify("add item", err)
	}

	item, err := s.store.Items().InsertActive(ctx, familyID, userID, text, s.now())
	if err != nil {
		return nil, classify("add item", err)
	}

	metrics.ItemsAdded.Inc()
	s.logger.WithFields(logrus.Fields{
		"family_id": familyID,
		"user_id":   userID,
		"item_id":   item.ID,
	}).Debug("Item added")
	return item, nil
}

// AddItems adds every non-blank line of block as its own item. Lines are
// inserted independently: the count of stored items is returned together
// with the errors of the lines that failed.
func (s *Service) AddItems(ctx context.Context, familyID, userID int64, block string) (int, error) {
	if err := requireMember(ctx, s.store, familyID, userID); err != nil {
		return 0, classify("add items", err)
	}

	var (
		added  int
		result *multierror.Error
	)
	createdAt := s.now()
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		text, err := cleanItemText(line)
		if err == nil {
			_, err = s.store.Items().InsertActive(ctx, familyID, userID, text, createdAt)
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("line %d: %w", i+1, classify("add item", err)))
			continue
		}
		added++
	}

	if added == 0 && result == nil {
		return 0, fmt.Errorf("no items in message: %w", ErrInvalidInput)
	}

	metrics.ItemsAdded.Add(float64(added))
	s.logger.WithFields(logrus.Fields{
		"family_id": familyID,
		"user_id":   userID,
		"added":     added,
	}).Info("Items added")
	return added, result.ErrorOrNil()
}

// MarkBought moves an active item to the archive. The buyer becomes its owner.
func (s *Service) MarkBought(ctx context.Context, familyID, actorID, itemID int64) error {
	return s.transition(ctx, "buy", familyID, itemID, func(r repository.Repositories) error {
		if err := requireMember(ctx, r, familyID, actorID); err != nil {
			return err
		}
		item, err := r.Items().TakeActive(ctx, familyID, itemID)
		if err != nil {
			return err
		}
		return r.Items().InsertArchived(ctx, *item, actorID, s.now())
	})
}

// Delete moves an active item to the trash, recording who deleted it.
func (s *Service) Delete(ctx context.Context, familyID, actorID, itemID int64) error {
	return s.transition(ctx, "delete", familyID, itemID, func(r repository.Repositories) error {
		if err := requireMember(ctx, r, familyID, actorID); err != nil {
			return err
		}
		item, err := r.Items().TakeActive(ctx, familyID, itemID)
		if err != nil {
			return err
		}
		return r.Items().InsertTrashed(ctx, *item, actorID, s.now())
	})
}

// Restore moves an archived or trashed item back to the list. from names the
// state the caller expects the item to be in.
func (s *Service) Restore(ctx context.Context, familyID, itemID int64, from models.ItemState) error {
	return s.transition(ctx, "restore", familyID, itemID, func(r repository.Repositories) error {
		var take func(context.Context, int64, int64) (*models.ItemCore, error)
		switch from {
		case models.StateArchived:
			take = r.Items().TakeArchived
		case models.StateTrashed:
			take = r.Items().TakeTrashed
		default:
			return fmt.Errorf("cannot restore from %q: %w", from, ErrInvalidInput)
		}

		item, err := take(ctx, familyID, itemID)
		if err != nil {
			return err
		}
		return r.Items().RestoreActive(ctx, *item)
	})
}

// Purge permanently removes a trashed item. Only the family admin may purge.
func (s *Service) Purge(ctx context.Context, familyID, actorID, itemID int64) error {
	err := s.transition(ctx, "purge", familyID, itemID, func(r repository.Repositories) error {
		if err := requireAdmin(ctx, r, familyID, actorID); err != nil {
			return err
		}
		_, err := r.Items().TakeTrashed(ctx, familyID, itemID)
		return err
	})
	if err == nil {
		metrics.ItemsPurged.Inc()
	}
	return err
}

// PurgeOlderThan removes every trashed item deleted more than days days ago,
// across all families, and returns how many were removed.
func (s *Service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention of %d days: %w", days, ErrInvalidInput)
	}

	cutoff := s.now().AddDate(0, 0, -days)
	purged, err := s.store.Items().DeleteTrashedBefore(ctx, cutoff)
	if err != nil {
		return 0, classify("purge trash", err)
	}

	if purged > 0 {
		metrics.ItemsPurged.Add(float64(purged))
		s.logger.WithFields(logrus.Fields{
			"purged": purged,
			"cutoff": cutoff,
		}).Info("Purged old trash")
	}
	return purged, nil
}

// PurgeFamilyTrash removes the family's trashed items deleted more than days
// days ago. Recently deleted items stay restorable. Only the family admin may
// clear the trash.
func (s *Service) PurgeFamilyTrash(ctx context.Context, familyID, actorID int64, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention of %d days: %w", days, ErrInvalidInput)
	}

	cutoff := s.now().AddDate(0, 0, -days)
	var purged int64
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		if err := requireAdmin(ctx, r, familyID, actorID); err != nil {
			return err
		}
		var err error
		purged, err = r.Items().DeleteFamilyTrashedBefore(ctx, familyID, cutoff)
		return err
	})
	if err != nil {
		return 0, classify("clear family trash", err)
	}

	metrics.ItemsPurged.Add(float64(purged))
	s.logger.WithFields(logrus.Fields{
		"family_id": familyID,
		"user_id":   actorID,
		"purged":    purged,
		"cutoff":    cutoff,
	}).Info("Cleared family trash")
	return purged, nil
}

// transition runs one lifecycle move in a transaction and records its outcome.
func (s *Service) transition(ctx context.Context, name string, familyID, itemID int64, fn func(r repository.Repositories) error) error {
	err := classify(name+" item", s.store.WithTx(ctx, fn))

	fields := logrus.Fields{
		"transition": name,
		"family_id":  familyID,
		"item_id":    itemID,
	}
	switch {
	case err == nil:
		metrics.ItemTransitions.WithLabelValues(name, "ok").Inc()
		s.logger.WithFields(fields).Debug("Item transition applied")
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotAdmin):
		metrics.ItemTransitions.WithLabelValues(name, "rejected").Inc()
		s.logger.WithFields(fields).WithError(err).Debug("Item transition rejected")
	default:
		metrics.ItemTransitions.WithLabelValues(name, "error").Inc()
		s.logger.WithFields(fields).WithError(err).Error("Item transition failed")
	}
	return err
}

// ListActive returns the family's shopping list, oldest first.
func (s *Service) ListActive(ctx context.Context, familyID int64) ([]*models.ActiveItem, error) {
	items, err := s.store.Items().ListActive(ctx, familyID)
	if err != nil {
		return nil, classify("list active items", err)
	}
	return items, nil
}

// ListArchived returns up to limit bought items, most recent first.
func (s *Service) ListArchived(ctx context.Context, familyID int64, limit int) ([]*models.ArchivedItem, error) {
	items, err := s.store.Items().ListArchived(ctx, familyID, listLimit(limit))
	if err != nil {
		return nil, classify("list archived items", err)
	}
	return items, nil
}

// ListTrashed returns up to limit deleted items, most recent first.
func (s *Service) ListTrashed(ctx context.Context, familyID int64, limit int) ([]*models.TrashedItem, error) {
	items, err := s.store.Items().ListTrashed(ctx, familyID, listLimit(limit))
	if err != nil {
		return nil, classify("list trashed items", err)
	}
	return items, nil
}

// ItemState reports the current lifecycle state of an item. Ids that were
// never issued are indistinguishable from purged ones.
func (s *Service) ItemState(ctx context.Context, itemID int64) (models.ItemState, error) {
	state, err := s.store.Items().StateOf(ctx, itemID)
	if err != nil {
		return "", classify("item state", err)
	}
	return state, nil
}
