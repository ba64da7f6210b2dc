package dialog

import (
	"context"
	"log/slog"

	"github.com/m3rciful/consultbot/core/logger"
)

// Button is one selectable option of an interactive control.
type Button struct {
	Label string
	Tag   string
}

// Row builds a keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Keyboard builds an inline keyboard from rows.
func Keyboard(rows ...[]Button) [][]Button { return rows }

// Transport is the narrow outbound contract the dialogue core consumes. The
// production implementation wraps the Telegram client; tests use fakes.
// Edit, StripControls and Delete fail loggable-silently in implementations
// when the target message no longer exists.
type Transport interface {
	Send(ctx context.Context, chat int64, text string, kb [][]Button) (int, error)
	// SendPlain sends without markup parsing, for text of unknown provenance.
	SendPlain(ctx context.Context, chat int64, text string, kb [][]Button) (int, error)
	Edit(ctx context.Context, chat int64, messageID int, text string, kb [][]Button) error
	StripControls(ctx context.Context, chat int64, messageID int) error
	Delete(ctx context.Context, chat int64, messageID int) error
	Typing(ctx context.Context, chat int64)
}

// Lifecycle manages the single most recent interactive message per session so
// stale keyboards never stay actionable after the conversation moved on.
type Lifecycle struct {
	tr Transport
}

// NewLifecycle wires a lifecycle manager over the given transport.
func NewLifecycle(tr Transport) *Lifecycle {
	return &Lifecycle{tr: tr}
}

// RecordActive remembers the id of the most recently sent interactive
// message, replacing any previous value.
func (l *Lifecycle) RecordActive(s *Session, messageID int) {
	s.ActiveMessageID = messageID
}

// RetractActive removes the controls of the previously recorded interactive
// message. Idempotent: a second call without an intervening RecordActive is a
// no-op. Transport failures (message already gone) are logged, not returned.
func (l *Lifecycle) RetractActive(ctx context.Context, s *Session) {
	if s.ActiveMessageID == 0 {
		return
	}
	id := s.ActiveMessageID
	s.ActiveMessageID = 0
	if err := l.tr.StripControls(ctx, s.Chat, id); err != nil {
		logger.Warn(ctx, "dialog", "lifecycle.retract_failed",
			slog.String("status", "skip"),
			slog.Int64("chat_id", s.Chat),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

// ScheduleDelete marks a message for removal on the session's next menu
// redisplay, replacing any previously scheduled id.
func (l *Lifecycle) ScheduleDelete(s *Session, messageID int) {
	s.PendingDeleteID = messageID
}

// FlushScheduledDelete deletes the scheduled message, if any, and clears the
// mark. Failures are logged and swallowed.
func (l *Lifecycle) FlushScheduledDelete(ctx context.Context, s *Session) {
	if s.PendingDeleteID == 0 {
		return
	}
	id := s.PendingDeleteID
	s.PendingDeleteID = 0
	if err := l.tr.Delete(ctx, s.Chat, id); err != nil {
		logger.Warn(ctx, "dialog", "lifecycle.delete_failed",
			slog.String("status", "skip"),
			slog.Int64("chat_id", s.Chat),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
