// Package flows holds the domain payload dispatched by the dialogue engine:
// the top-level menu machine, the mounted pricing machine, and the
// free-form consultant bridge.
package flows

import (
	"context"

	"github.com/m3rciful/consultbot/core/dialog"
	"github.com/m3rciful/consultbot/core/telegram/format"
	"github.com/m3rciful/consultbot/internal/pricing"
	"github.com/m3rciful/consultbot/internal/texts"
)

// States of the menu machine.
const (
	// StateMenu is the top-level initial state showing the mode keyboard.
	StateMenu dialog.State = "menu/main"
	// StateChat is the free-form consultant mode.
	StateChat dialog.State = "menu/chat"
	// StateContract is the contract-support placeholder mode.
	StateContract dialog.State = "menu/contract"
	// StatePricing is the mount point of the pricing machine.
	StatePricing dialog.State = "menu/pricing"
)

// States of the mounted pricing machine.
const (
	statePricingEntry  dialog.State = "pricing/entry"
	statePricingType   dialog.State = "pricing/type"
	statePricingMaker  dialog.State = "pricing/manufacturer"
	statePricingModel  dialog.State = "pricing/model"
	statePricingRegion dialog.State = "pricing/region"
	statePricingTyped  dialog.State = "pricing/typed"
)

// Button tags rendered on inline controls.
const (
	tagChatBot      = "chat_bot"
	tagServiceBot   = "service_bot"
	tagContractBot  = "contract_bot"
	tagServiceStart = "service_start"
	tagService      = "service"
	tagInstallation = "installation"
	tagToChat       = "to_text_bot"
	tagStayPricing  = "stay_service"
)

// Exit labels of the pricing machine.
const (
	exitDone   dialog.ExitLabel = "done"
	exitToChat dialog.ExitLabel = "to_chat"
)

// Flag keys of the pricing flow. The exported ones form the pre-seeding
// channel: an upstream step may store a service type and model guess and set
// FlagSeeded so the pricing machine skips the already-answered selections.
const (
	FlagSeeded      = "pricing_seeded"
	FlagServiceType = "service_type"
	FlagModel       = "model"

	flagManufacturer = "manufacturer"
	flagRegion       = "region"
)

// Answerer is the retrieval + completion collaborator of the chat mode.
type Answerer interface {
	Answer(ctx context.Context, query string, history []dialog.Exchange) (string, error)
}

// Deps carries the collaborators shared by all flow handlers.
type Deps struct {
	Transport dialog.Transport
	Lifecycle *dialog.Lifecycle
	Catalog   *pricing.Catalog
	Knowledge Answerer
}

// NewEngine assembles the machine tree: the menu machine at the top with the
// pricing machine mounted at StatePricing.
func NewEngine(d Deps) (*dialog.Engine, error) {
	_, mount := d.pricingMachine()
	return dialog.NewEngine(d.menuMachine(), mount)
}

// send renders a new message and records it as the active interactive
// message when it carries controls.
func (d Deps) send(ctx context.Context, s *dialog.Session, text string, kb [][]dialog.Button) error {
	id, err := d.Transport.Send(ctx, s.Chat, text, kb)
	if err != nil {
		return err
	}
	if kb != nil {
		d.Lifecycle.RecordActive(s, id)
	}
	return nil
}

// editActive rewrites the active interactive message in place, keeping it
// the active one. Falls back to sending when there is nothing to edit.
func (d Deps) editActive(ctx context.Context, s *dialog.Session, text string, kb [][]dialog.Button) error {
	if s.ActiveMessageID == 0 {
		return d.send(ctx, s, text, kb)
	}
	return d.Transport.Edit(ctx, s.Chat, s.ActiveMessageID, text, kb)
}

func mainMenuRow() []dialog.Button {
	return dialog.Row(dialog.Button{Label: texts.BtnMainMenu, Tag: dialog.RootTag})
}

func mainMenuKB() [][]dialog.Button {
	return dialog.Keyboard(mainMenuRow())
}

// listKB builds a one-button-per-row keyboard from item names used both as
// labels and tags, with the main-menu escape row appended.
func listKB(items []string) [][]dialog.Button {
	rows := make([][]dialog.Button, 0, len(items)+1)
	for _, it := range items {
		rows = append(rows, dialog.Row(dialog.Button{Label: it, Tag: it}))
	}
	return append(rows, mainMenuRow())
}

func escapeMD(text string) string {
	out, err := format.EscapeMarkdown(text, format.MarkdownV2, "")
	if err != nil {
		return text
	}
	return out
}
