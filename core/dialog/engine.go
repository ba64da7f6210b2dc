package dialog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/consultbot/core/logger"
)

// Mount attaches a self-contained child machine at a parent state. While a
// session sits at the mount state, button taps on one of EntryTags are served
// by the child's initial-state button handler and free text by the child's
// fallback, so the child fully owns its sub-conversation. When the child
// exits, TerminalMap rewrites the exit label into a parent state; child state
// identifiers never leak to the parent.
type Mount struct {
	Child       *Machine
	At          State
	EntryTags   []string
	TerminalMap map[ExitLabel]State
}

func (mt Mount) allowsEntry(tag string) bool {
	for _, t := range mt.EntryTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Engine dispatches classified events against the machine tree, committing
// exactly one transition per inbound event.
type Engine struct {
	root         *Machine
	store        *Store
	owner        map[State]*Machine
	mountAt      map[State]*Mount
	mountByChild map[*Machine]*Mount
}

// NewEngine builds an engine from the root machine and its mounts. State
// names must be unique across the tree; every machine must carry fallback
// and escape handlers; every mount needs a button binding at the child's
// initial state and terminal targets owned by the mounting machine.
func NewEngine(root *Machine, mounts ...Mount) (*Engine, error) {
	if root == nil {
		return nil, fmt.Errorf("dialog: nil root machine")
	}
	e := &Engine{
		root:         root,
		store:        NewStore(root.initial),
		owner:        make(map[State]*Machine),
		mountAt:      make(map[State]*Mount),
		mountByChild: make(map[*Machine]*Mount),
	}
	if err := e.index(root); err != nil {
		return nil, err
	}
	for i := range mounts {
		mt := &mounts[i]
		if mt.Child == nil {
			return nil, fmt.Errorf("dialog: mount at %q has nil child", mt.At)
		}
		parent, ok := e.owner[mt.At]
		if !ok {
			return nil, fmt.Errorf("dialog: mount state %q belongs to no machine", mt.At)
		}
		if len(mt.EntryTags) == 0 {
			return nil, fmt.Errorf("dialog: mount of %q at %q has no entry tags", mt.Child.name, mt.At)
		}
		entry := mt.Child.bindings[mt.Child.initial]
		if entry == nil || entry.button == nil {
			return nil, fmt.Errorf("dialog: machine %q has no button binding at its initial state", mt.Child.name)
		}
		for label, target := range mt.TerminalMap {
			if !parent.owns(target) {
				return nil, fmt.Errorf("dialog: mount of %q maps exit %q to foreign state %q", mt.Child.name, label, target)
			}
		}
		if err := e.index(mt.Child); err != nil {
			return nil, err
		}
		e.mountAt[mt.At] = mt
		e.mountByChild[mt.Child] = mt
	}
	return e, nil
}

func (e *Engine) index(m *Machine) error {
	if err := m.validate(); err != nil {
		return err
	}
	for st := range m.bindings {
		if prev, exists := e.owner[st]; exists {
			return fmt.Errorf("dialog: state %q declared by both %q and %q", st, prev.name, m.name)
		}
		e.owner[st] = m
	}
	return nil
}

// Store exposes the session store, primarily for diagnostics and tests.
func (e *Engine) Store() *Store { return e.store }

// Initial returns the top-level initial state.
func (e *Engine) Initial() State { return e.root.initial }

// Dispatch processes one inbound event for the chat's session. Events of the
// same chat are serialized by the store's per-session lock; events of
// different chats run concurrently. No error escapes a session: handler
// failures are logged and the session keeps its current state.
func (e *Engine) Dispatch(ctx context.Context, chat int64, ev Event) {
	e.store.With(chat, func(s *Session) {
		e.dispatch(ctx, s, ev)
	})
}

// Reset forces the chat's session back to the top-level initial state and
// clears flow selections. Used by the /start command.
func (e *Engine) Reset(chat int64) {
	e.store.With(chat, func(s *Session) {
		s.State = e.root.initial
		s.ResetFlow()
	})
}

func (e *Engine) dispatch(ctx context.Context, s *Session, ev Event) {
	m, ok := e.owner[s.State]
	if !ok {
		// Only fatal class: the stored state is not part of the machine
		// tree (typically after a code change). Reset, keep the session.
		logger.Error(ctx, "dialog", "dialog.unknown_state",
			slog.String("status", "fail"),
			slog.Int64("chat_id", s.Chat),
			slog.String("state", string(s.State)),
		)
		s.State = e.root.initial
		s.ResetFlow()
		return
	}

	mt := e.mountAt[s.State]
	hm := m // machine whose handler runs; differs from m on child entry
	var h Handler

	switch ev.Kind {
	case KindButton:
		switch {
		case ev.Tag == RootTag:
			h = m.escape
		case mt != nil && mt.allowsEntry(ev.Tag):
			hm = mt.Child
			h = mt.Child.bindings[mt.Child.initial].button
		default:
			if b := m.bindings[s.State]; b != nil && b.button != nil {
				h = b.button
			}
		}
		if h == nil {
			// Stale control from a previous render. Tolerated, but logged
			// apart from unknown_state so binding gaps stay discoverable.
			logger.Warn(ctx, "dialog", "dialog.stale_callback",
				slog.String("status", "skip"),
				slog.Int64("chat_id", s.Chat),
				slog.String("state", string(s.State)),
				slog.String("tag", logger.SanitizeLimit(ev.Tag, 64)),
			)
			return
		}
	default: // text or command
		if b := m.bindings[s.State]; b != nil && b.text != nil {
			h = b.text
		} else if mt != nil {
			hm = mt.Child
			h = mt.Child.fallback
		} else {
			h = m.fallback
		}
	}

	tr, err := h(ctx, s, ev)
	if err != nil {
		logger.Error(ctx, "dialog", "dialog.handler_failed",
			slog.String("status", "fail"),
			slog.Int64("chat_id", s.Chat),
			slog.String("state", string(s.State)),
			slog.String("machine", hm.name),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	e.commit(ctx, s, hm, tr)
}

// commit applies the handler's transition as the single state change of this
// dispatch. Exit labels from mounted children are rewritten through the
// mount's terminal map; a root exit re-enters the initial menu state.
func (e *Engine) commit(ctx context.Context, s *Session, hm *Machine, tr Transition) {
	prev := s.State
	switch tr.kind {
	case transStay:
		return
	case transNext:
		if !hm.owns(tr.next) {
			logger.Error(ctx, "dialog", "dialog.unknown_state",
				slog.String("status", "fail"),
				slog.Int64("chat_id", s.Chat),
				slog.String("state", string(tr.next)),
				slog.String("machine", hm.name),
			)
			s.State = e.root.initial
			s.ResetFlow()
			return
		}
		s.State = tr.next
	case transExit:
		if mt, mounted := e.mountByChild[hm]; mounted {
			target, ok := mt.TerminalMap[tr.exit]
			if !ok {
				logger.Error(ctx, "dialog", "dialog.unmapped_exit",
					slog.String("status", "fail"),
					slog.Int64("chat_id", s.Chat),
					slog.String("machine", hm.name),
					slog.String("exit", string(tr.exit)),
				)
				s.State = e.root.initial
				s.ResetFlow()
				return
			}
			s.State = target
		} else {
			s.State = e.root.initial
		}
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "dialog", "dialog.transition",
			slog.String("status", "ok"),
			slog.Int64("chat_id", s.Chat),
			slog.String("state", string(prev)),
			slog.String("next_state", string(s.State)),
			slog.String("machine", hm.name),
		)
	}
}
