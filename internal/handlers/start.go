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

// StartHandler handles the /start command. "/start CODE" joins the family
// with that invite code.
type StartHandler struct {
	svc    *service.Service
	flow   *onboarding.Controller
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(svc *service.Service, flow *onboarding.Controller, logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		svc:    svc,
		flow:   flow,
		logger: logger,
	}
}

// Handle processes the /start command
func (h *StartHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	user, err := ensureUser(ctx, h.svc, message.From)
	if err != nil {
		return err
	}

	var v view
	switch {
	case user.HasFamily():
		v, err = listScreen(ctx, h.svc, user)
	case len(args) > 0:
		var out onboarding.Outcome
		out, err = h.flow.HandleText(ctx, user, args[0])
		if err == nil {
			v, err = outcomeView(ctx, h.svc, user.ID, out)
		}
	default:
		v = welcomeView(user.Label())
	}
	if err != nil {
		text, ok := userError(err)
		if !ok {
			return err
		}
		v = view{text: text}
	}

	if err := send(bot, message.Chat.ID, v); err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    user.ID,
		"has_family": user.HasFamily(),
	}).Info("Sent start message")

	return nil
}

// listScreen renders the shopping list of the user's family, or the welcome
// screen for users without one.
func listScreen(ctx context.Context, svc *service.Service, user *models.User) (view, error) {
	if !user.HasFamily() {
		return welcomeView(user.Label()), nil
	}

	family, err := svc.GetFamily(ctx, *user.FamilyID)
	if err != nil {
		return view{}, err
	}
	items, err := svc.ListActive(ctx, family.ID)
	if err != nil {
		return view{}, err
	}
	return listView(family, user, items), nil
}
