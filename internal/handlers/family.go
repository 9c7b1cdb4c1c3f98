package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/onboarding"
	"github.com/Kerhoff/ShoplistBot/internal/service"
	"github.com/Kerhoff/ShoplistBot/internal/telegram"
)

// FamilyCallbacks handles the buttons that create, join and manage a family.
type FamilyCallbacks struct {
	svc    *service.Service
	flow   *onboarding.Controller
	logger *logrus.Logger
}

// NewFamilyCallbacks creates a new FamilyCallbacks handler.
func NewFamilyCallbacks(svc *service.Service, flow *onboarding.Controller, logger *logrus.Logger) *FamilyCallbacks {
	return &FamilyCallbacks{svc: svc, flow: flow, logger: logger}
}

// HandleCallback processes a family button.
func (h *FamilyCallbacks) HandleCallback(ctx context.Context, bot telegram.Sender, query *tgbotapi.CallbackQuery, action, arg string) error {
	user, err := ensureUser(ctx, h.svc, query.From)
	if err != nil {
		return err
	}

	v, err := h.apply(ctx, user, action, arg)
	if err != nil {
		text, ok := userError(err)
		if !ok {
			return fmt.Errorf("%s: %w", action, err)
		}
		v = view{text: text}
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"action":  action,
		"ok":      err == nil,
	}).Info("Family action handled")

	return show(bot, query, v)
}

func (h *FamilyCallbacks) apply(ctx context.Context, user *models.User, action, arg string) (view, error) {
	switch action {
	case actionCreateFamily:
		out, err := h.flow.BeginCreateFamily(user)
		if err != nil {
			return view{}, err
		}
		return outcomeView(ctx, h.svc, user.ID, out)
	case actionJoinFamily:
		if user.HasFamily() {
			return view{}, service.ErrAlreadyInFamily
		}
		return view{text: "🔑 Send me the invite code. A family member can look it up with /invite."}, nil
	}

	if !user.HasFamily() {
		return welcomeView(user.Label()), nil
	}
	familyID := *user.FamilyID

	switch action {
	case actionAdmin:
		if !user.IsAdmin {
			return view{}, service.ErrNotAdmin
		}
		family, members, err := h.family(ctx, familyID)
		if err != nil {
			return view{}, err
		}
		return familyView(family, members), nil

	case actionMembers:
		return h.members(ctx, user, "")

	case actionRemove:
		targetID, err := parseID(arg)
		if err != nil {
			return view{}, err
		}
		if err := h.svc.RemoveMember(ctx, user.ID, familyID, targetID); err != nil {
			return view{}, err
		}
		return h.members(ctx, user, "🚫 Member removed.")

	case actionPromote:
		targetID, err := parseID(arg)
		if err != nil {
			return view{}, err
		}
		if err := h.svc.TransferAdmin(ctx, familyID, user.ID, targetID); err != nil {
			return view{}, err
		}
		fresh, err := h.svc.GetUser(ctx, user.ID)
		if err != nil {
			return view{}, err
		}
		return h.members(ctx, fresh, "👑 Admin rights handed over.")

	case actionRename:
		out, err := h.flow.BeginRename(ctx, user)
		if err != nil {
			return view{}, err
		}
		return outcomeView(ctx, h.svc, user.ID, out)

	default:
		return view{}, fmt.Errorf("unknown family action %q", action)
	}
}

func (h *FamilyCallbacks) family(ctx context.Context, familyID int64) (*models.Family, []*models.User, error) {
	family, err := h.svc.GetFamily(ctx, familyID)
	if err != nil {
		return nil, nil, err
	}
	members, err := h.svc.GetFamilyMembers(ctx, familyID)
	if err != nil {
		return nil, nil, err
	}
	return family, members, nil
}

func (h *FamilyCallbacks) members(ctx context.Context, viewer *models.User, note string) (view, error) {
	family, members, err := h.family(ctx, *viewer.FamilyID)
	if err != nil {
		return view{}, err
	}
	v := membersView(family, viewer, members)
	if note != "" {
		v = notice(v, note)
	}
	return v, nil
}
