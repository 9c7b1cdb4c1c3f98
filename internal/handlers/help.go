package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/telegram"
)

const helpText = `📚 <b>Shopping list help</b>

Send me anything to put it on the family list. Several lines add several items.

Tap ✅ next to an item when you bought it, 🗑 to delete it. Bought and deleted items can be brought back from 📦 Bought and 🗑 Trash.

<b>Commands:</b>
• /list - Show the shopping list
• /invite - Show the family invite code
• /cancel - Stop the current question
• /help - Show this help message`

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if err := send(bot, message.Chat.ID, view{text: helpText}); err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
