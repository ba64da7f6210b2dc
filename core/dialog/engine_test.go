package dialog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stHome  State = "root/home"
	stSub   State = "root/sub"
	stMount State = "root/svc"

	stChildFirst  State = "svc/first"
	stChildSecond State = "svc/second"
)

// newTestEngine builds a two-level tree: a root machine with a mount point
// and a child whose exits map back onto root states. Handler invocations are
// appended to rec.
func newTestEngine(t *testing.T, rec *[]string) *Engine {
	t.Helper()

	mark := func(name string, tr Transition) Handler {
		return func(ctx context.Context, s *Session, ev Event) (Transition, error) {
			*rec = append(*rec, name)
			return tr, nil
		}
	}

	root := NewMachine("root", stHome).
		OnButton(stHome, func(ctx context.Context, s *Session, ev Event) (Transition, error) {
			*rec = append(*rec, "home.button")
			switch ev.Tag {
			case "go":
				return Next(stSub), nil
			case "svc":
				return Next(stMount), nil
			case "boom":
				return Stay(), assert.AnError
			}
			return Stay(), nil
		}).
		OnText(stHome, mark("home.text", Stay())).
		Declare(stSub, stMount).
		Fallback(mark("root.fallback", Stay())).
		Escape(mark("root.escape", Next(stHome)))

	child := NewMachine("svc", stChildFirst).
		OnButton(stChildFirst, mark("child.entry", Next(stChildSecond))).
		OnButton(stChildSecond, func(ctx context.Context, s *Session, ev Event) (Transition, error) {
			*rec = append(*rec, "child.second")
			switch ev.Tag {
			case "finish":
				return Exit("done"), nil
			case "side":
				return Exit("side"), nil
			case "bad":
				return Exit("missing"), nil
			}
			return Stay(), nil
		}).
		Fallback(mark("child.fallback", Stay())).
		Escape(mark("child.escape", Exit("done")))

	e, err := NewEngine(root, Mount{
		Child:     child,
		At:        stMount,
		EntryTags: []string{"enter"},
		TerminalMap: map[ExitLabel]State{
			"done": stHome,
			"side": stSub,
		},
	})
	require.NoError(t, err)
	return e
}

func TestDispatchCommitsSingleTransition(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("go"))

	assert.Equal(t, stSub, e.Store().Peek(1).State)
	assert.Equal(t, []string{"home.button"}, rec)
}

func TestStaleCallbackIsIgnored(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("go"))
	rec = rec[:0]
	// stSub has no button binding; a press from an old keyboard is dropped.
	e.Dispatch(ctx, 1, ButtonEvent("go"))

	assert.Empty(t, rec)
	assert.Equal(t, stSub, e.Store().Peek(1).State)
}

func TestMountEntryAndTerminalMap(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("svc"))
	e.Dispatch(ctx, 1, ButtonEvent("enter"))
	assert.Equal(t, stChildSecond, e.Store().Peek(1).State)

	e.Dispatch(ctx, 1, ButtonEvent("finish"))
	assert.Equal(t, stHome, e.Store().Peek(1).State)
	assert.Equal(t, []string{"home.button", "child.entry", "child.second"}, rec)
}

func TestTerminalMapSelectsPerLabel(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("svc"))
	e.Dispatch(ctx, 1, ButtonEvent("enter"))
	e.Dispatch(ctx, 1, ButtonEvent("side"))

	assert.Equal(t, stSub, e.Store().Peek(1).State)
}

func TestUnmappedExitResetsToInitial(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("svc"))
	e.Dispatch(ctx, 1, ButtonEvent("enter"))
	e.Dispatch(ctx, 1, ButtonEvent("bad"))

	assert.Equal(t, stHome, e.Store().Peek(1).State)
}

func TestEscapeWinsInsideChild(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("svc"))
	e.Dispatch(ctx, 1, ButtonEvent("enter"))
	rec = rec[:0]
	e.Dispatch(ctx, 1, ButtonEvent(RootTag))

	assert.Equal(t, []string{"child.escape"}, rec)
	assert.Equal(t, stHome, e.Store().Peek(1).State)
}

func TestTextAtMountGoesToChildFallback(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("svc"))
	rec = rec[:0]
	e.Dispatch(ctx, 1, TextEvent("typed instead"))

	assert.Equal(t, []string{"child.fallback"}, rec)
}

func TestUnknownStoredStateResets(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Store().With(1, func(s *Session) { s.State = "ghost" })
	e.Dispatch(ctx, 1, TextEvent("hello"))

	assert.Equal(t, stHome, e.Store().Peek(1).State)
}

func TestHandlerErrorKeepsState(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("boom"))

	assert.Equal(t, stHome, e.Store().Peek(1).State)
}

func TestCommandRoutedToTextBinding(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, CommandEvent("start"))

	assert.Equal(t, []string{"home.text"}, rec)
}

func TestResetReturnsToInitialKeepingActiveMessage(t *testing.T) {
	var rec []string
	e := newTestEngine(t, &rec)
	ctx := context.Background()

	e.Dispatch(ctx, 1, ButtonEvent("svc"))
	e.Store().With(1, func(s *Session) { s.ActiveMessageID = 5 })
	e.Reset(1)

	got := e.Store().Peek(1)
	assert.Equal(t, stHome, got.State)
	assert.Equal(t, 5, got.ActiveMessageID)
}

func TestEngineValidation(t *testing.T) {
	noop := func(ctx context.Context, s *Session, ev Event) (Transition, error) { return Stay(), nil }

	t.Run("missing fallback", func(t *testing.T) {
		m := NewMachine("m", "m/a").Escape(noop)
		_, err := NewEngine(m)
		assert.Error(t, err)
	})

	t.Run("mount without entry button", func(t *testing.T) {
		root := NewMachine("root", "r/a").Fallback(noop).Escape(noop)
		child := NewMachine("c", "c/a").Fallback(noop).Escape(noop)
		_, err := NewEngine(root, Mount{Child: child, At: "r/a", EntryTags: []string{"x"}})
		assert.Error(t, err)
	})

	t.Run("terminal target foreign to parent", func(t *testing.T) {
		root := NewMachine("root", "r/a").Fallback(noop).Escape(noop)
		child := NewMachine("c", "c/a").OnButton("c/a", noop).Fallback(noop).Escape(noop)
		_, err := NewEngine(root, Mount{
			Child:       child,
			At:          "r/a",
			EntryTags:   []string{"x"},
			TerminalMap: map[ExitLabel]State{"done": "c/a"},
		})
		assert.Error(t, err)
	})

	t.Run("duplicate state across machines", func(t *testing.T) {
		root := NewMachine("root", "shared").Fallback(noop).Escape(noop)
		child := NewMachine("c", "shared").OnButton("shared", noop).Fallback(noop).Escape(noop)
		_, err := NewEngine(root, Mount{Child: child, At: "shared", EntryTags: []string{"x"}})
		assert.Error(t, err)
	})
}
