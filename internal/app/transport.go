package app

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/m3rciful/consultbot/core/dialog"
	"github.com/m3rciful/consultbot/core/logger"
	"github.com/m3rciful/consultbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/consultbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Transport implements dialog.Transport over a telebot instance. Sends are
// synchronous (handlers need the message id); keyboard strips and deletes go
// through the async dispatcher with a synchronous fallback.
type Transport struct {
	bot  atomic.Pointer[tele.Bot]
	disp *tgsender.Dispatcher
}

// NewTransport creates a transport; the bot is attached later via Bind, once
// the runtime constructed it.
func NewTransport(disp *tgsender.Dispatcher) *Transport {
	return &Transport{disp: disp}
}

// Bind attaches the running bot. Must happen before the first update is
// handled; the run loop's start hook takes care of that.
func (t *Transport) Bind(bot *tele.Bot) {
	t.bot.Store(bot)
}

var errNotBound = errors.New("app: transport has no bot attached")

func (t *Transport) telebot() (*tele.Bot, error) {
	bot := t.bot.Load()
	if bot == nil {
		return nil, errNotBound
	}
	return bot, nil
}

func markup(kb [][]dialog.Button) *tele.ReplyMarkup {
	if kb == nil {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Label, Unique: b.Tag})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

func stored(chat int64, messageID int) *tele.StoredMessage {
	return &tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chat}
}

func (t *Transport) send(ctx context.Context, chat int64, text string, kb [][]dialog.Button, parseMode string) (int, error) {
	bot, err := t.telebot()
	if err != nil {
		return 0, err
	}
	opts := &tele.SendOptions{ReplyMarkup: markup(kb)}
	if parseMode != "" {
		opts.ParseMode = parseMode
	}
	msg, err := bot.Send(tele.ChatID(chat), text, opts)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// Send sends a MarkdownV2 message, optionally with inline controls.
func (t *Transport) Send(ctx context.Context, chat int64, text string, kb [][]dialog.Button) (int, error) {
	return t.send(ctx, chat, text, kb, tele.ModeMarkdownV2)
}

// SendPlain sends without parse mode, for model output and other text of
// unknown provenance.
func (t *Transport) SendPlain(ctx context.Context, chat int64, text string, kb [][]dialog.Button) (int, error) {
	return t.send(ctx, chat, text, kb, "")
}

// Edit rewrites an existing message's text and controls in place.
func (t *Transport) Edit(ctx context.Context, chat int64, messageID int, text string, kb [][]dialog.Button) error {
	bot, err := t.telebot()
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: markup(kb)}
	_, err = bot.Edit(stored(chat, messageID), text, opts)
	return err
}

// StripControls removes the inline keyboard from a message, leaving its text.
func (t *Transport) StripControls(ctx context.Context, chat int64, messageID int) error {
	bot, err := t.telebot()
	if err != nil {
		return err
	}
	return t.async(ctx, "edit.strip_markup", "editMessageReplyMarkup", func() error {
		_, err := bot.EditReplyMarkup(stored(chat, messageID), nil)
		return err
	})
}

// Delete removes a message.
func (t *Transport) Delete(ctx context.Context, chat int64, messageID int) error {
	bot, err := t.telebot()
	if err != nil {
		return err
	}
	return t.async(ctx, "delete.message", "deleteMessage", func() error {
		return bot.Delete(stored(chat, messageID))
	})
}

// Typing shows the typing chat action. Failures are irrelevant to the flow.
func (t *Transport) Typing(ctx context.Context, chat int64) {
	bot, err := t.telebot()
	if err != nil {
		return
	}
	_ = t.async(ctx, "notify.typing", "sendChatAction", func() error {
		return bot.Notify(tele.ChatID(chat), tele.Typing)
	})
}

func (t *Transport) async(ctx context.Context, action, endpoint string, run func() error) error {
	if t.disp == nil {
		return run()
	}
	if err := t.disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, tgsender.ErrQueueFull) || errors.Is(err, tgsender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}
