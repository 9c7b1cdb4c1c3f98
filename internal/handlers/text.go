package handlers

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/onboarding"
	"github.com/Kerhoff/ShoplistBot/internal/service"
	"github.com/Kerhoff/ShoplistBot/internal/telegram"
)

// TextHandler handles plain messages. They answer an onboarding question or,
// for members of a family, are items to add.
type TextHandler struct {
	svc    *service.Service
	flow   *onboarding.Controller
	logger *logrus.Logger
}

// NewTextHandler creates a new TextHandler.
func NewTextHandler(svc *service.Service, flow *onboarding.Controller, logger *logrus.Logger) *TextHandler {
	return &TextHandler{svc: svc, flow: flow, logger: logger}
}

// HandleText processes a plain text message.
func (h *TextHandler) HandleText(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message) error {
	user, err := ensureUser(ctx, h.svc, message.From)
	if err != nil {
		return err
	}

	out, err := h.flow.HandleText(ctx, user, message.Text)
	if err != nil {
		text, ok := userError(err)
		if !ok {
			return fmt.Errorf("onboarding: %w", err)
		}
		return send(bot, message.Chat.ID, view{text: text})
	}

	if out.Kind != onboarding.OutcomeNotHandled {
		v, err := outcomeView(ctx, h.svc, user.ID, out)
		if err != nil {
			return err
		}
		return send(bot, message.Chat.ID, v)
	}

	return h.addItems(ctx, bot, message, user)
}

func (h *TextHandler) addItems(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, user *models.User) error {
	added, err := h.svc.AddItems(ctx, *user.FamilyID, user.ID, message.Text)

	var (
		failed int
		merr   *multierror.Error
	)
	if errors.As(err, &merr) {
		failed = len(merr.Errors)
		h.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"added":   added,
			"failed":  failed,
		}).WithError(err).Warn("Some items were not added")
	} else if err != nil {
		text, ok := userError(err)
		if !ok {
			return fmt.Errorf("add items: %w", err)
		}
		return send(bot, message.Chat.ID, view{text: text})
	}

	v, err := listScreen(ctx, h.svc, user)
	if err != nil {
		return fmt.Errorf("render list: %w", err)
	}

	summary := fmt.Sprintf("✅ Added %d.", added)
	if added == 1 {
		summary = "✅ Added."
	}
	if failed > 0 {
		summary += fmt.Sprintf(" ⚠️ %d could not be added (items must be shorter than %d characters).",
			failed, models.MaxItemTextLength)
	}
	return send(bot, message.Chat.ID, notice(v, summary))
}

// outcomeView renders the result of an onboarding step.
func outcomeView(ctx context.Context, svc *service.Service, userID int64, out onboarding.Outcome) (view, error) {
	familyName := ""
	if out.Family != nil {
		familyName = esc(out.Family.Name)
	}

	switch out.Kind {
	case onboarding.OutcomeAskFamilyName:
		return promptView(fmt.Sprintf("🏠 How should your family be called? (up to %d characters)", models.MaxFamilyNameLength)), nil
	case onboarding.OutcomeFamilyCreated:
		return promptView(fmt.Sprintf("🎉 Family <b>%s</b> created!\nInvite code: <code>%s</code>\n\n"+
			"How should the family call you? (up to %d characters)",
			familyName, esc(out.Family.InviteCode), models.MaxDisplayNameLength)), nil
	case onboarding.OutcomeJoined:
		return promptView(fmt.Sprintf("🎉 You joined <b>%s</b>!\n\nHow should the family call you? (up to %d characters)",
			familyName, models.MaxDisplayNameLength)), nil
	case onboarding.OutcomeAskUserName:
		return promptView("✏️ Please send the name the family will see."), nil
	case onboarding.OutcomeNameTaken:
		return promptView("⚠️ Somebody in the family already uses this name. Try another one."), nil
	case onboarding.OutcomeInvalidCode:
		v := welcomeView("")
		v.text = "❌ No family has this invite code. Check it, or create your own family."
		return v, nil
	case onboarding.OutcomeNeedFamily:
		v := welcomeView("")
		v.text = "ℹ️ You are not in a family yet. Create one, or send me the invite code of an existing family."
		return v, nil
	case onboarding.OutcomeAskFamilyRename:
		return promptView(fmt.Sprintf("✏️ Send the new name for <b>%s</b>.", familyName)), nil
	case onboarding.OutcomeCompleted, onboarding.OutcomeRenamed:
		user, err := svc.GetUser(ctx, userID)
		if err != nil {
			return view{}, err
		}
		v, err := listScreen(ctx, svc, user)
		if err != nil {
			return view{}, err
		}
		if out.Kind == onboarding.OutcomeRenamed {
			return notice(v, "✅ Family renamed."), nil
		}
		return notice(v, fmt.Sprintf("🎉 Welcome, %s! Send me what to buy, one item per line.", esc(user.Label()))), nil
	default:
		return view{}, fmt.Errorf("unexpected onboarding outcome %s", out.Kind)
	}
}
