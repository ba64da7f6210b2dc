package app

import (
	"github.com/m3rciful/consultbot/core/dialog"
	tghelpers "github.com/m3rciful/consultbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Conversation adapts incoming telebot updates into classified events for the
// dialogue engine. It satisfies the router's Dialog interface.
type Conversation struct {
	engine *dialog.Engine
}

// NewConversation wraps an engine.
func NewConversation(engine *dialog.Engine) *Conversation {
	return &Conversation{engine: engine}
}

// HandleText dispatches a plain text or slash-command message.
func (a *Conversation) HandleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	a.engine.Dispatch(ctx, c.Chat().ID, dialog.Classify(dialog.Raw{Text: c.Text()}))
	return nil
}

// HandleCallback dispatches an inline button press by its callback key.
func (a *Conversation) HandleCallback(c tele.Context, key string) error {
	ctx := tghelpers.BuildContext(c)
	a.engine.Dispatch(ctx, c.Chat().ID, dialog.Classify(dialog.Raw{CallbackTag: key}))
	return nil
}

// Restart wipes the session and replays /start through the engine. Used by
// the /start command so a reset always lands on a fresh menu.
func (a *Conversation) Restart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chat := c.Chat().ID
	a.engine.Reset(chat)
	a.engine.Dispatch(ctx, chat, dialog.CommandEvent("start"))
	return nil
}
