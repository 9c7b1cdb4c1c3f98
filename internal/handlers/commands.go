package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/onboarding"
	"github.com/Kerhoff/ShoplistBot/internal/service"
	"github.com/Kerhoff/ShoplistBot/internal/telegram"
)

// ListHandler handles the /list command.
type ListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewListHandler creates a new ListHandler.
func NewListHandler(svc *service.Service, logger *logrus.Logger) *ListHandler {
	return &ListHandler{svc: svc, logger: logger}
}

// Handle processes the /list command.
func (h *ListHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	user, err := ensureUser(ctx, h.svc, message.From)
	if err != nil {
		return err
	}

	v, err := listScreen(ctx, h.svc, user)
	if err != nil {
		return fmt.Errorf("render list: %w", err)
	}
	return send(bot, message.Chat.ID, v)
}

// CancelHandler handles the /cancel command: it abandons the question the
// bot is waiting an answer for.
type CancelHandler struct {
	svc    *service.Service
	flow   *onboarding.Controller
	logger *logrus.Logger
}

// NewCancelHandler creates a new CancelHandler.
func NewCancelHandler(svc *service.Service, flow *onboarding.Controller, logger *logrus.Logger) *CancelHandler {
	return &CancelHandler{svc: svc, flow: flow, logger: logger}
}

// Handle processes the /cancel command.
func (h *CancelHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	user, err := ensureUser(ctx, h.svc, message.From)
	if err != nil {
		return err
	}

	if !h.flow.Cancel(user.ID) {
		return send(bot, message.Chat.ID, view{text: "Nothing to cancel."})
	}

	h.logger.WithField("user_id", user.ID).Info("Conversation cancelled")

	v, err := listScreen(ctx, h.svc, user)
	if err != nil {
		return fmt.Errorf("render list: %w", err)
	}
	return send(bot, message.Chat.ID, notice(v, "👌 Cancelled."))
}

// InviteHandler handles the /invite command.
type InviteHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(svc *service.Service, logger *logrus.Logger) *InviteHandler {
	return &InviteHandler{svc: svc, logger: logger}
}

// Handle processes the /invite command.
func (h *InviteHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	user, err := ensureUser(ctx, h.svc, message.From)
	if err != nil {
		return err
	}
	if !user.HasFamily() {
		return send(bot, message.Chat.ID, welcomeView(user.Label()))
	}

	family, err := h.svc.GetFamily(ctx, *user.FamilyID)
	if err != nil {
		return fmt.Errorf("get family: %w", err)
	}

	text := fmt.Sprintf("🔑 Invite code of <b>%s</b>: <code>%s</code>\n\nWhoever sends this code to me joins the family.",
		esc(family.Name), esc(family.InviteCode))
	return send(bot, message.Chat.ID, view{text: text})
}
