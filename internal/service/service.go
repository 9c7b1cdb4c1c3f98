package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/repository"
)

// Service is the business logic layer: family membership and the item
// lifecycle. All methods are safe for concurrent use.
type Service struct {
	store  repository.Store
	logger *logrus.Logger
	now    func() time.Time
}

// New creates a new Service on top of the given store.
func New(store repository.Store, logger *logrus.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// EnsureUser retrieves an existing user by chat identity, or creates a new one
// if not found. Changed profile fields are written back.
func (s *Service) EnsureUser(ctx context.Context, externalID int64, username, fullName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	fullName = strings.TrimSpace(fullName)

	user, err := s.store.Users().GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, classify("ensure user", err)
	}
	if user == nil {
		user, err = s.store.Users().Create(ctx, &models.User{
			ExternalID: externalID,
			Username:   username,
			FullName:   fullName,
		})
		if err != nil {
			return nil, classify("create user", err)
		}
		s.logger.WithFields(logrus.Fields{
			"user_id":     user.ID,
			"external_id": externalID,
		}).Info("Created new user")
		return user, nil
	}

	if user.Username == username && user.FullName == fullName {
		return user, nil
	}

	user.Username = username
	user.FullName = fullName
	if err := s.store.Users().UpdateProfile(ctx, user); err != nil {
		return nil, classify("update user", err)
	}
	s.logger.WithField("user_id", user.ID).Debug("Updated user profile")

	return user, nil
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, classify("get user", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// cleanName trims a name and cuts it to max runes.
func cleanName(name string, max int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidInput
	}
	return truncate(name, max), nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}
