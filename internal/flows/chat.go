package flows

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/consultbot/core/dialog"
	"github.com/m3rciful/consultbot/core/logger"
	"github.com/m3rciful/consultbot/internal/texts"
)

// maxMessageLen is the Telegram per-message text limit. Longer consultant
// answers are sent in several parts.
const maxMessageLen = 4096

// handleChatMessage serves free text in consultant mode: the question goes to
// the knowledge base together with the recent history, and the answer comes
// back with a main-menu button on its last part.
func (d Deps) handleChatMessage(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	if ev.Kind == dialog.KindCommand {
		return d.handleMenuText(ctx, s, ev)
	}
	query := strings.TrimSpace(ev.Content)
	if query == "" {
		return dialog.Stay(), nil
	}

	d.Lifecycle.RetractActive(ctx, s)
	d.Transport.Typing(ctx, s.Chat)

	start := time.Now()
	answer, err := d.Knowledge.Answer(ctx, query, s.History)
	if err != nil {
		logger.Warn(ctx, "dialog", "chat.answer_failed",
			slog.String("status", "fail"),
			slog.Int64("chat_id", s.Chat),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		if sendErr := d.send(ctx, s, texts.ChatApology, mainMenuKB()); sendErr != nil {
			return dialog.Stay(), sendErr
		}
		return dialog.Stay(), nil
	}
	s.AppendExchange(query, answer)

	parts := splitMessage(answer, maxMessageLen)
	for i, part := range parts {
		var kb [][]dialog.Button
		if i == len(parts)-1 {
			kb = mainMenuKB()
		}
		id, sendErr := d.Transport.SendPlain(ctx, s.Chat, part, kb)
		if sendErr != nil {
			return dialog.Stay(), sendErr
		}
		if kb != nil {
			d.Lifecycle.RecordActive(s, id)
		}
	}

	logger.Debug(ctx, "dialog", "chat.answered",
		slog.Int64("chat_id", s.Chat),
		slog.Int("history_len", len(s.History)),
		slog.Int("chunks", len(parts)),
		slog.Duration("duration", logger.Took(start)),
	)
	return dialog.Stay(), nil
}

// splitMessage slices text into rune-safe parts of at most limit bytes,
// preferring newline boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	for len(text) > limit {
		cut := limit
		if i := strings.LastIndexByte(text[:limit], '\n'); i > 0 {
			cut = i
		} else {
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
