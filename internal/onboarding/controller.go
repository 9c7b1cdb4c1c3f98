// Package onboarding drives the short conversation that gets a user into a
// family: create one and pick a display name, or join one with an invite code
// and pick a display name. It also runs the admin's rename prompt.
package onboarding

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/metrics"
	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/service"
)

// inviteCodeInput is the shape of free text treated as a join attempt.
var inviteCodeInput = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// Membership is the part of the service the conversation needs.
type Membership interface {
	FoundFamily(ctx context.Context, founderID int64, name string) (*models.Family, error)
	JoinByCode(ctx context.Context, userID int64, code string) (int64, error)
	SetDisplayName(ctx context.Context, userID int64, name string) error
	RenameFamily(ctx context.Context, familyID int64, newName string) error
	GetFamily(ctx context.Context, familyID int64) (*models.Family, error)
}

// OutcomeKind tells the transport what to render.
type OutcomeKind int

const (
	// OutcomeNotHandled means the text is not onboarding input. For a user with
	// a family it is an add-item request.
	OutcomeNotHandled OutcomeKind = iota
	OutcomeAskFamilyName
	OutcomeFamilyCreated
	OutcomeJoined
	OutcomeAskUserName
	OutcomeNameTaken
	OutcomeCompleted
	OutcomeInvalidCode
	OutcomeNeedFamily
	OutcomeAskFamilyRename
	OutcomeRenamed
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeNotHandled:      "not_handled",
	OutcomeAskFamilyName:   "ask_family_name",
	OutcomeFamilyCreated:   "family_created",
	OutcomeJoined:          "joined",
	OutcomeAskUserName:     "ask_user_name",
	OutcomeNameTaken:       "name_taken",
	OutcomeCompleted:       "completed",
	OutcomeInvalidCode:     "invalid_code",
	OutcomeNeedFamily:      "need_family",
	OutcomeAskFamilyRename: "ask_family_rename",
	OutcomeRenamed:         "renamed",
}

func (k OutcomeKind) String() string {
	if name, ok := outcomeNames[k]; ok {
		return name
	}
	return "unknown"
}

// Outcome is the result of one conversation step.
type Outcome struct {
	Kind OutcomeKind
	// Family is set once the conversation has a family to talk about.
	Family *models.Family
}

// Controller runs the onboarding conversations. It keeps no state of its own
// besides the injected session store.
type Controller struct {
	members  Membership
	sessions SessionStore
	logger   *logrus.Logger
}

// NewController creates an onboarding controller.
func NewController(members Membership, sessions SessionStore, logger *logrus.Logger) *Controller {
	return &Controller{
		members:  members,
		sessions: sessions,
		logger:   logger,
	}
}

// Session returns the user's current session; Idle when there is none.
func (c *Controller) Session(userID int64) Session {
	session, ok := c.sessions.Get(userID)
	if !ok {
		return Session{State: StateIdle}
	}
	return session
}

// BeginCreateFamily starts the create-family path.
func (c *Controller) BeginCreateFamily(user *models.User) (Outcome, error) {
	if user.HasFamily() {
		return Outcome{}, service.ErrAlreadyInFamily
	}
	c.put(user.ID, Session{State: StateAwaitingFamilyName})
	return Outcome{Kind: OutcomeAskFamilyName}, nil
}

// BeginRename asks the family admin for a new family name.
func (c *Controller) BeginRename(ctx context.Context, user *models.User) (Outcome, error) {
	if !user.HasFamily() || !user.IsAdmin {
		return Outcome{}, service.ErrNotAdmin
	}
	family, err := c.members.GetFamily(ctx, *user.FamilyID)
	if err != nil {
		return Outcome{}, err
	}
	c.put(user.ID, Session{State: StateAwaitingFamilyRename, FamilyID: family.ID})
	return Outcome{Kind: OutcomeAskFamilyRename, Family: family}, nil
}

// Cancel drops the user's session. It reports whether there was one.
func (c *Controller) Cancel(userID int64) bool {
	_, ok := c.sessions.Get(userID)
	c.sessions.Delete(userID)
	return ok
}

// HandleText feeds a free-text message into the user's conversation.
func (c *Controller) HandleText(ctx context.Context, user *models.User, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	session := c.Session(user.ID)

	switch session.State {
	case StateAwaitingFamilyName:
		return c.handleFamilyName(ctx, user, text)
	case StateAwaitingUserName:
		return c.handleUserName(ctx, user, session, text)
	case StateAwaitingFamilyRename:
		return c.handleRename(ctx, user, session, text)
	}

	if user.HasFamily() {
		return Outcome{Kind: OutcomeNotHandled}, nil
	}
	if !inviteCodeInput.MatchString(text) {
		return Outcome{Kind: OutcomeNeedFamily}, nil
	}

	familyID, err := c.members.JoinByCode(ctx, user.ID, text)
	if errors.Is(err, service.ErrInvalidCode) {
		return Outcome{Kind: OutcomeInvalidCode}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	family, err := c.members.GetFamily(ctx, familyID)
	if err != nil {
		return Outcome{}, err
	}
	c.put(user.ID, Session{State: StateAwaitingUserName, FamilyID: familyID, Joined: true})
	return Outcome{Kind: OutcomeJoined, Family: family}, nil
}

func (c *Controller) handleFamilyName(ctx context.Context, user *models.User, name string) (Outcome, error) {
	if name == "" {
		return Outcome{Kind: OutcomeAskFamilyName}, nil
	}

	family, err := c.members.FoundFamily(ctx, user.ID, name)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyInFamily) {
			c.sessions.Delete(user.ID)
		}
		return Outcome{}, err
	}

	c.put(user.ID, Session{State: StateAwaitingUserName, FamilyID: family.ID})
	return Outcome{Kind: OutcomeFamilyCreated, Family: family}, nil
}

func (c *Controller) handleUserName(ctx context.Context, user *models.User, session Session, name string) (Outcome, error) {
	if name == "" {
		return Outcome{Kind: OutcomeAskUserName}, nil
	}

	err := c.members.SetDisplayName(ctx, user.ID, name)
	switch {
	case errors.Is(err, service.ErrNameTaken):
		return Outcome{Kind: OutcomeNameTaken}, nil
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrNotFound):
		// The user left or was removed from the family meanwhile.
		c.sessions.Delete(user.ID)
		return Outcome{}, err
	case err != nil:
		return Outcome{}, err
	}

	c.sessions.Delete(user.ID)
	path := "create"
	if session.Joined {
		path = "join"
	}
	metrics.OnboardingCompleted.WithLabelValues(path).Inc()
	c.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"family_id": session.FamilyID,
		"path":      path,
	}).Info("Onboarding completed")

	family, err := c.members.GetFamily(ctx, session.FamilyID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeCompleted, Family: family}, nil
}

func (c *Controller) handleRename(ctx context.Context, user *models.User, session Session, name string) (Outcome, error) {
	if name == "" {
		return Outcome{Kind: OutcomeAskFamilyRename}, nil
	}
	if !user.InFamily(session.FamilyID) || !user.IsAdmin {
		c.sessions.Delete(user.ID)
		return Outcome{}, service.ErrNotAdmin
	}

	if err := c.members.RenameFamily(ctx, session.FamilyID, name); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.sessions.Delete(user.ID)
		}
		return Outcome{}, err
	}
	c.sessions.Delete(user.ID)

	family, err := c.members.GetFamily(ctx, session.FamilyID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeRenamed, Family: family}, nil
}

func (c *Controller) put(userID int64, session Session) {
	c.sessions.Put(userID, session)
	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"state":   session.State,
	}).Debug("Onboarding state changed")
}
