package dialog

import (
	"context"
	"fmt"
)

// State identifies one point of a conversation machine. State names must be
// unique across the whole machine tree; flows prefix them with the machine
// name for that reason.
type State string

// ExitLabel names a terminal outcome of a machine. Mounted children exit
// through labels that the mount maps back onto parent states.
type ExitLabel string

// RootTag is the reserved button tag that returns the user to the top-level
// menu from any interior state of any machine. It is bound implicitly and
// always wins over domain-specific tags.
const RootTag = "main_menu"

// Handler processes one classified event for a session and returns the
// transition to commit. Side effects are limited to session mutation,
// lifecycle calls, and outbound rendering.
type Handler func(ctx context.Context, s *Session, ev Event) (Transition, error)

type transitionKind int

const (
	transStay transitionKind = iota
	transNext
	transExit
)

// Transition is the result of a handler: stay put, move to another state of
// the same machine, or signal that the machine is done.
type Transition struct {
	kind transitionKind
	next State
	exit ExitLabel
}

// Stay keeps the session in its current state.
func Stay() Transition { return Transition{kind: transStay} }

// Next moves the session to another state of the handler's machine.
func Next(s State) Transition { return Transition{kind: transNext, next: s} }

// Exit signals machine termination with the given label. For a mounted child
// the engine rewrites the label into a parent state; for the root machine it
// re-enters the initial state.
func Exit(label ExitLabel) Transition { return Transition{kind: transExit, exit: label} }

type binding struct {
	button Handler
	text   Handler // shared by text and command events
}

// Machine is a self-contained conversation state machine: interior states
// with handler bindings, a default handler for unmatched free text, and an
// escape handler serving the reserved RootTag.
type Machine struct {
	name     string
	initial  State
	bindings map[State]*binding
	fallback Handler
	escape   Handler
}

// NewMachine creates a machine with the given name and initial state. The
// initial state is registered as an interior state with no bindings yet.
func NewMachine(name string, initial State) *Machine {
	m := &Machine{
		name:     name,
		initial:  initial,
		bindings: make(map[State]*binding),
	}
	m.bindings[initial] = &binding{}
	return m
}

// Name returns the machine's name.
func (m *Machine) Name() string { return m.name }

// Initial returns the machine's initial state.
func (m *Machine) Initial() State { return m.initial }

// OnButton binds h to button events observed at state st.
func (m *Machine) OnButton(st State, h Handler) *Machine {
	m.binding(st).button = h
	return m
}

// OnText binds h to text and command events observed at state st.
func (m *Machine) OnText(st State, h Handler) *Machine {
	m.binding(st).text = h
	return m
}

// Declare registers states that have no direct bindings, such as mount
// points served entirely by the mounted child or by the fallback.
func (m *Machine) Declare(states ...State) *Machine {
	for _, st := range states {
		m.binding(st)
	}
	return m
}

// Fallback sets the machine-wide handler for text at states without a text
// binding. Required for every machine: users type where buttons are expected.
func (m *Machine) Fallback(h Handler) *Machine {
	m.fallback = h
	return m
}

// Escape sets the machine-wide handler for the reserved RootTag button.
func (m *Machine) Escape(h Handler) *Machine {
	m.escape = h
	return m
}

func (m *Machine) binding(st State) *binding {
	b, ok := m.bindings[st]
	if !ok {
		b = &binding{}
		m.bindings[st] = b
	}
	return b
}

// owns reports whether st is a state of this machine.
func (m *Machine) owns(st State) bool {
	_, ok := m.bindings[st]
	return ok
}

// validate checks that the machine can serve any event at any of its states.
func (m *Machine) validate() error {
	if m.name == "" {
		return fmt.Errorf("dialog: machine has no name")
	}
	if m.fallback == nil {
		return fmt.Errorf("dialog: machine %q has no fallback text handler", m.name)
	}
	if m.escape == nil {
		return fmt.Errorf("dialog: machine %q has no escape handler", m.name)
	}
	return nil
}
