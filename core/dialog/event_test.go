package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyButtonWins(t *testing.T) {
	ev := Classify(Raw{CallbackTag: "service_start", Text: "ignored"})
	assert.Equal(t, KindButton, ev.Kind)
	assert.Equal(t, "service_start", ev.Tag)
}

func TestClassifyExplicitCommand(t *testing.T) {
	ev := Classify(Raw{Command: "/start"})
	assert.Equal(t, KindCommand, ev.Kind)
	assert.Equal(t, "start", ev.Name)
}

func TestClassifySlashTextBecomesCommand(t *testing.T) {
	ev := Classify(Raw{Text: "  /help extra words"})
	assert.Equal(t, KindCommand, ev.Kind)
	assert.Equal(t, "help", ev.Name)
}

func TestClassifyPlainText(t *testing.T) {
	ev := Classify(Raw{Text: "сколько стоит ремонт"})
	assert.Equal(t, KindText, ev.Kind)
	assert.Equal(t, "сколько стоит ремонт", ev.Content)
}

func TestClassifyEmptyInputIsTextEvent(t *testing.T) {
	ev := Classify(Raw{})
	assert.Equal(t, KindText, ev.Kind)
	assert.Empty(t, ev.Content)
}
