package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/repository"
)

const inviteCodeAttempts = 5

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:models.InviteCodeLength])
}

// createFamily stores a family under a fresh invite code. The lookup before the
// insert keeps a collision from aborting the surrounding transaction.
func createFamily(ctx context.Context, r repository.Repositories, name string) (*models.Family, error) {
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code := newInviteCode()
		existing, err := r.Families().GetByInviteCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		return r.Families().Create(ctx, &models.Family{Name: name, InviteCode: code})
	}
	return nil, fmt.Errorf("no unique invite code after %d attempts", inviteCodeAttempts)
}

// CreateFamily creates an empty family and returns its id and invite code.
func (s *Service) CreateFamily(ctx context.Context, name string) (int64, string, error) {
	name, err := cleanName(name, models.MaxFamilyNameLength)
	if err != nil {
		return 0, "", err
	}

	family, err := createFamily(ctx, s.store, name)
	if err != nil {
		return 0, "", classify("create family", err)
	}

	s.logger.WithField("family_id", family.ID).Info("Created family")
	return family.ID, family.InviteCode, nil
}

// FoundFamily creates a family and makes founderID its admin in one
// transaction.
func (s *Service) FoundFamily(ctx context.Context, founderID int64, name string) (*models.Family, error) {
	name, err := cleanName(name, models.MaxFamilyNameLength)
	if err != nil {
		return nil, err
	}

	var family *models.Family
	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		founder, err := r.Users().GetForUpdate(ctx, founderID)
		if err != nil {
			return err
		}
		if founder == nil {
			return ErrNotFound
		}
		if founder.HasFamily() {
			return ErrAlreadyInFamily
		}

		family, err = createFamily(ctx, r, name)
		if err != nil {
			return err
		}
		return r.Users().SetFamily(ctx, founderID, &family.ID, true)
	})
	if err != nil {
		return nil, classify("found family", err)
	}

	s.logger.WithFields(logrus.Fields{
		"family_id": family.ID,
		"user_id":   founderID,
	}).Info("Family founded")
	return family, nil
}

// JoinByCode adds the user to the family owning the invite code. The user
// joins as a regular member without a display name.
func (s *Service) JoinByCode(ctx context.Context, userID int64, code string) (int64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, ErrInvalidCode
	}

	var familyID int64
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		family, err := r.Families().GetByInviteCode(ctx, code)
		if err != nil {
			return err
		}
		if family == nil {
			return ErrInvalidCode
		}

		user, err := r.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrNotFound
		}
		if user.HasFamily() {
			return ErrAlreadyInFamily
		}

		familyID = family.ID
		return r.Users().SetFamily(ctx, userID, &family.ID, false)
	})
	if err != nil {
		return 0, classify("join family", err)
	}

	s.logger.WithFields(logrus.Fields{
		"family_id": familyID,
		"user_id":   userID,
	}).Info("User joined family")
	return familyID, nil
}

// RenameFamily changes the family name.
func (s *Service) RenameFamily(ctx context.Context, familyID int64, newName string) error {
	newName, err := cleanName(newName, models.MaxFamilyNameLength)
	if err != nil {
		return err
	}

	if err := s.store.Families().Rename(ctx, familyID, newName); err != nil {
		return classify("rename family", err)
	}

	s.logger.WithField("family_id", familyID).Info("Family renamed")
	return nil
}

// SetDisplayName sets how the user is shown to the rest of the family.
func (s *Service) SetDisplayName(ctx context.Context, userID int64, name string) error {
	name, err := cleanName(name, models.MaxDisplayNameLength)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		user, err := r.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrNotFound
		}
		if !user.HasFamily() {
			return fmt.Errorf("user %d has no family: %w", userID, ErrInvalidInput)
		}

		taken, err := r.Users().DisplayNameTaken(ctx, *user.FamilyID, name, userID)
		if err != nil {
			return err
		}
		if taken {
			return ErrNameTaken
		}

		err = r.Users().SetDisplayName(ctx, userID, name)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrNameTaken
		}
		return err
	})
	if err != nil {
		return classify("set display name", err)
	}
	return nil
}

// RemoveMember takes targetUserID out of the family. The acting user must be
// the family admin at the time of the call. The target's items stay in place.
func (s *Service) RemoveMember(ctx context.Context, actingAdminID, familyID, targetUserID int64) error {
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		admin, err := r.Users().GetForUpdate(ctx, actingAdminID)
		if err != nil {
			return err
		}
		if admin == nil || !admin.InFamily(familyID) || !admin.IsAdmin {
			return ErrNotAdmin
		}
		if targetUserID == actingAdminID {
			return fmt.Errorf("admin cannot remove themselves: %w", ErrInvalidInput)
		}

		target, err := r.Users().GetForUpdate(ctx, targetUserID)
		if err != nil {
			return err
		}
		if target == nil || !target.InFamily(familyID) {
			return ErrNotFound
		}

		return r.Users().SetFamily(ctx, targetUserID, nil, false)
	})
	if err != nil {
		return classify("remove member", err)
	}

	s.logger.WithFields(logrus.Fields{
		"family_id": familyID,
		"admin_id":  actingAdminID,
		"user_id":   targetUserID,
	}).Info("Member removed")
	return nil
}

// TransferAdmin moves the admin flag from one member to another. Both updates
// commit together; if fromUserID is not the admin nothing changes.
func (s *Service) TransferAdmin(ctx context.Context, familyID, fromUserID, toUserID int64) error {
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		revoked, err := r.Users().RevokeAdmin(ctx, familyID, fromUserID)
		if err != nil {
			return err
		}
		if !revoked {
			return ErrNotAdmin
		}

		granted, err := r.Users().GrantAdmin(ctx, familyID, toUserID)
		if err != nil {
			return err
		}
		if !granted {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return classify("transfer admin", err)
	}

	s.logger.WithFields(logrus.Fields{
		"family_id": familyID,
		"from":      fromUserID,
		"to":        toUserID,
	}).Info("Admin transferred")
	return nil
}

// GetFamily returns the family with the given id.
func (s *Service) GetFamily(ctx context.Context, familyID int64) (*models.Family, error) {
	family, err := s.store.Families().GetByID(ctx, familyID)
	if err != nil {
		return nil, classify("get family", err)
	}
	if family == nil {
		return nil, ErrNotFound
	}
	return family, nil
}

// GetFamilyName returns the name of the family.
func (s *Service) GetFamilyName(ctx context.Context, familyID int64) (string, error) {
	family, err := s.GetFamily(ctx, familyID)
	if err != nil {
		return "", err
	}
	return family.Name, nil
}

// GetFamilyMembers lists the members of the family, admin first.
func (s *Service) GetFamilyMembers(ctx context.Context, familyID int64) ([]*models.User, error) {
	if _, err := s.GetFamily(ctx, familyID); err != nil {
		return nil, err
	}

	members, err := s.store.Users().ListByFamily(ctx, familyID)
	if err != nil {
		return nil, classify("list members", err)
	}
	return members, nil
}
