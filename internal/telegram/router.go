package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/metrics"
)

const (
	requestTimeout = 30 * time.Second

	genericErrorText = "❌ Something went wrong. Please try again."
	unknownText      = "❓ Unknown command. Use /help to see available commands."
)

// Sender is the part of the Bot API the handlers talk to. *tgbotapi.BotAPI
// implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// CommandHandler handles a slash command.
type CommandHandler interface {
	Handle(ctx context.Context, bot Sender, message *tgbotapi.Message, args []string) error
}

// TextHandler handles plain text messages.
type TextHandler interface {
	HandleText(ctx context.Context, bot Sender, message *tgbotapi.Message) error
}

// CallbackHandler handles inline button presses. Callback data has the form
// "action" or "action:argument".
type CallbackHandler interface {
	HandleCallback(ctx context.Context, bot Sender, query *tgbotapi.CallbackQuery, action, arg string) error
}

// Router handles message routing and command parsing
type Router struct {
	logger    *logrus.Logger
	handlers  map[string]CommandHandler
	callbacks map[string]CallbackHandler
	text      TextHandler
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:    logger,
		handlers:  make(map[string]CommandHandler),
		callbacks: make(map[string]CallbackHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// RegisterCallback registers a handler for one or more callback actions.
func (r *Router) RegisterCallback(handler CallbackHandler, actions ...string) {
	for _, action := range actions {
		r.callbacks[action] = handler
		r.logger.Debugf("Registered callback: %s", action)
	}
}

// SetTextHandler sets the handler for messages that are not commands.
func (r *Router) SetTextHandler(handler TextHandler) {
	r.text = handler
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(ctx context.Context, bot Sender, message *tgbotapi.Message) {
	if message.From == nil || message.Text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	fields := logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    message.From.ID,
		"message_id": message.MessageID,
	}

	if !message.IsCommand() {
		metrics.Updates.WithLabelValues("text").Inc()
		r.logger.WithFields(fields).Debug("Received text message")
		if r.text == nil {
			return
		}
		if err := r.text.HandleText(ctx, bot, message); err != nil {
			r.logger.WithFields(fields).WithError(err).Error("Text handler failed")
			r.reply(bot, message.Chat.ID, genericErrorText)
		}
		return
	}

	metrics.Updates.WithLabelValues("command").Inc()
	command := message.Command()
	args := strings.Fields(message.CommandArguments())
	fields["command"] = command
	r.logger.WithFields(fields).Info("Received command")

	handler, exists := r.handlers[command]
	if !exists {
		r.logger.WithFields(fields).Warn("Unknown command")
		r.reply(bot, message.Chat.ID, unknownText)
		return
	}

	if err := handler.Handle(ctx, bot, message, args); err != nil {
		r.logger.WithFields(fields).WithError(err).Error("Command handler failed")
		r.reply(bot, message.Chat.ID, genericErrorText)
	}
}

// HandleCallbackQuery handles callback queries from inline keyboards
func (r *Router) HandleCallbackQuery(ctx context.Context, bot Sender, query *tgbotapi.CallbackQuery) {
	metrics.Updates.WithLabelValues("callback").Inc()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	action, arg, _ := strings.Cut(query.Data, ":")
	fields := logrus.Fields{
		"callback_id": query.ID,
		"user_id":     query.From.ID,
		"action":      action,
	}
	r.logger.WithFields(fields).Info("Received callback query")

	// Answer the callback query to remove loading state
	if _, err := bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		r.logger.WithFields(fields).WithError(err).Warn("Failed to answer callback query")
	}

	handler, exists := r.callbacks[action]
	if !exists {
		r.logger.WithFields(fields).Warn("Unknown callback action")
		return
	}

	if err := handler.HandleCallback(ctx, bot, query, action, arg); err != nil {
		r.logger.WithFields(fields).WithError(err).Error("Callback handler failed")
		if query.Message != nil {
			r.reply(bot, query.Message.Chat.ID, genericErrorText)
		}
	}
}

func (r *Router) reply(bot Sender, chatID int64, text string) {
	if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger.WithError(err).Error("Failed to send reply")
	}
}
