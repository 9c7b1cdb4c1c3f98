package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Bot wraps the Telegram bot API
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *logrus.Logger
	router *Router
}

// NewBot creates a new Telegram bot instance
func NewBot(token string, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:    api,
		logger: logger,
		router: NewRouter(logger),
	}, nil
}

// Router returns the router updates are dispatched to.
func (b *Bot) Router() *Router {
	return b.router
}

// Start starts the bot with long polling. It blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	// Delete webhook if exists and use polling
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started with long polling")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping bot...")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			// Updates are independent; each gets its own goroutine.
			go b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate processes incoming updates
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	Dispatch(ctx, b.router, b.api, update, b.logger)
}

// Dispatch routes one update, recovering from handler panics.
func Dispatch(ctx context.Context, router *Router, bot Sender, update tgbotapi.Update, logger *logrus.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("update_id", update.UpdateID).Errorf("Panic in update handler: %v", r)
		}
	}()

	switch {
	case update.Message != nil:
		router.HandleMessage(ctx, bot, update.Message)
	case update.CallbackQuery != nil:
		router.HandleCallbackQuery(ctx, bot, update.CallbackQuery)
	}
}
