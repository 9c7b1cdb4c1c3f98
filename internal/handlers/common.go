package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/service"
	"github.com/Kerhoff/ShoplistBot/internal/telegram"
)

// ensureUser resolves the sender of an update to a stored user.
func ensureUser(ctx context.Context, svc *service.Service, from *tgbotapi.User) (*models.User, error) {
	fullName := strings.TrimSpace(from.FirstName + " " + from.LastName)
	user, err := svc.EnsureUser(ctx, from.ID, from.UserName, fullName)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

// view is a rendered screen: HTML text plus an optional inline keyboard.
type view struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

func send(bot telegram.Sender, chatID int64, v view) error {
	msg := tgbotapi.NewMessage(chatID, v.text)
	msg.ParseMode = tgbotapi.ModeHTML
	if v.keyboard != nil {
		msg.ReplyMarkup = *v.keyboard
	}
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// show replaces the message the button belongs to with v.
func show(bot telegram.Sender, query *tgbotapi.CallbackQuery, v view) error {
	if query.Message == nil {
		return nil
	}

	var msg tgbotapi.EditMessageTextConfig
	if v.keyboard != nil {
		msg = tgbotapi.NewEditMessageTextAndMarkup(query.Message.Chat.ID, query.Message.MessageID, v.text, *v.keyboard)
	} else {
		msg = tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, v.text)
	}
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := bot.Send(msg); err != nil {
		// Pressing a button that leads to the screen already shown.
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func notice(v view, text string) view {
	v.text = text + "\n\n" + v.text
	return v
}

func esc(s string) string {
	return html.EscapeString(s)
}

// userError converts recoverable service errors to a reply. It returns
// false for errors that should reach the router.
func userError(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "⚠️ That is not there anymore. Somebody may have been faster.", true
	case errors.Is(err, service.ErrNotAdmin):
		return "⛔ Only the family admin can do this.", true
	case errors.Is(err, service.ErrAlreadyInFamily):
		return "ℹ️ You are already in a family.", true
	case errors.Is(err, service.ErrInvalidInput):
		return "⚠️ That does not look right. Please try again.", true
	case errors.Is(err, service.ErrInvalidCode):
		return "❌ No family has this invite code.", true
	case errors.Is(err, service.ErrNameTaken):
		return "⚠️ This name is already taken in your family.", true
	default:
		return "", false
	}
}

// parseID reads the numeric argument of a callback.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q in callback data", arg)
	}
	return id, nil
}
