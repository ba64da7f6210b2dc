package dialog

import "strings"

// Kind discriminates classified inbound events.
type Kind int

const (
	// KindText marks free text typed by the user.
	KindText Kind = iota
	// KindButton marks a tap on an inline control.
	KindButton
	// KindCommand marks a recognized slash command.
	KindCommand
)

// String returns the log-friendly name of the kind.
func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindCommand:
		return "command"
	default:
		return "text"
	}
}

// Event is a normalized inbound transport event. Exactly one payload field is
// meaningful, selected by Kind.
type Event struct {
	Kind    Kind
	Tag     string // button callback tag
	Content string // raw user text
	Name    string // command name without the slash
}

// Raw carries unclassified transport input. The adapter fills whichever
// fields the provider delivered; Classify picks the winning interpretation.
type Raw struct {
	CallbackTag string
	Text        string
	Command     string
}

// Classify normalizes raw transport input into exactly one Event. It is total
// and side-effect free: a button tag wins over text, a recognized command wins
// over plain text, and anything else degrades to a text event (possibly with
// empty content, which handlers guard against).
func Classify(raw Raw) Event {
	if raw.CallbackTag != "" {
		return Event{Kind: KindButton, Tag: raw.CallbackTag}
	}
	if raw.Command != "" {
		return Event{Kind: KindCommand, Name: strings.TrimPrefix(raw.Command, "/")}
	}
	text := raw.Text
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		name := strings.Fields(strings.TrimSpace(text))[0]
		return Event{Kind: KindCommand, Name: strings.TrimPrefix(name, "/")}
	}
	return Event{Kind: KindText, Content: text}
}

// ButtonEvent builds a button event for tests and synthetic dispatches.
func ButtonEvent(tag string) Event { return Event{Kind: KindButton, Tag: tag} }

// TextEvent builds a text event for tests and synthetic dispatches.
func TextEvent(content string) Event { return Event{Kind: KindText, Content: content} }

// CommandEvent builds a command event for tests and synthetic dispatches.
func CommandEvent(name string) Event {
	return Event{Kind: KindCommand, Name: strings.TrimPrefix(name, "/")}
}
