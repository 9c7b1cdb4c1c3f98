package telegram

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

type recordingHandler struct {
	calls  []string
	args   [][]string
	result error
}

func (h *recordingHandler) Handle(_ context.Context, _ Sender, message *tgbotapi.Message, args []string) error {
	h.calls = append(h.calls, message.Command())
	h.args = append(h.args, args)
	return h.result
}

func (h *recordingHandler) HandleText(_ context.Context, _ Sender, message *tgbotapi.Message) error {
	h.calls = append(h.calls, "text:"+message.Text)
	return h.result
}

func (h *recordingHandler) HandleCallback(_ context.Context, _ Sender, _ *tgbotapi.CallbackQuery, action, arg string) error {
	h.calls = append(h.calls, action+"|"+arg)
	return h.result
}

type panickingHandler struct{}

func (panickingHandler) HandleText(context.Context, Sender, *tgbotapi.Message) error {
	panic("boom")
}

var errHandler = errors.New("handler failed")
