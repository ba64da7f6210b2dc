package flows

import (
	"context"

	"github.com/m3rciful/consultbot/core/dialog"
	"github.com/m3rciful/consultbot/internal/texts"
)

// menuMachine builds the top-level machine: the mode menu, the consultant
// mode, the contract placeholder, and the pricing mount point.
func (d Deps) menuMachine() *dialog.Machine {
	return dialog.NewMachine("menu", StateMenu).
		OnButton(StateMenu, d.handleMenuChoice).
		OnText(StateMenu, d.handleMenuText).
		OnText(StateChat, d.handleChatMessage).
		Declare(StateContract, StatePricing).
		Fallback(d.handleMenuText).
		Escape(d.returnToMenu)
}

func menuKB() [][]dialog.Button {
	return dialog.Keyboard(
		dialog.Row(dialog.Button{Label: texts.BtnChatBot, Tag: tagChatBot}),
		dialog.Row(dialog.Button{Label: texts.BtnServiceBot, Tag: tagServiceBot}),
		dialog.Row(dialog.Button{Label: texts.BtnContractBot, Tag: tagContractBot}),
	)
}

// showMenu retires everything the previous turn left on screen and renders a
// fresh mode menu as the active message.
func (d Deps) showMenu(ctx context.Context, s *dialog.Session, greet bool) error {
	d.Lifecycle.RetractActive(ctx, s)
	d.Lifecycle.FlushScheduledDelete(ctx, s)
	text := texts.MainMenu
	if greet {
		text = texts.Start
	}
	return d.send(ctx, s, text, menuKB())
}

func (d Deps) handleMenuChoice(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	switch ev.Tag {
	case tagChatBot:
		if err := d.editActive(ctx, s, texts.ToChatBot, mainMenuKB()); err != nil {
			return dialog.Stay(), err
		}
		return dialog.Next(StateChat), nil
	case tagServiceBot:
		kb := dialog.Keyboard(
			dialog.Row(dialog.Button{Label: texts.BtnStart, Tag: tagServiceStart}),
			mainMenuRow(),
		)
		if err := d.editActive(ctx, s, texts.ToServiceBot, kb); err != nil {
			return dialog.Stay(), err
		}
		return dialog.Next(StatePricing), nil
	case tagContractBot:
		if err := d.editActive(ctx, s, texts.ContractStub, mainMenuKB()); err != nil {
			return dialog.Stay(), err
		}
		return dialog.Next(StateContract), nil
	}
	return dialog.Stay(), nil
}

// handleMenuText serves free text and commands at the menu and at states
// without their own text binding. /start always redraws the menu and wipes
// the accumulated consultant history; anything else nudges towards buttons
// once a menu is already on screen.
func (d Deps) handleMenuText(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	if ev.Kind == dialog.KindCommand && ev.Name == "start" {
		s.History = nil
		s.ResetFlow()
		if err := d.showMenu(ctx, s, true); err != nil {
			return dialog.Stay(), err
		}
		return dialog.Next(StateMenu), nil
	}
	if s.ActiveMessageID == 0 {
		if err := d.showMenu(ctx, s, true); err != nil {
			return dialog.Stay(), err
		}
		return dialog.Next(StateMenu), nil
	}
	if _, err := d.Transport.Send(ctx, s.Chat, texts.InsteadButton, nil); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Stay(), nil
}

// returnToMenu is the escape handler: any main-menu button anywhere in the
// menu machine lands back on a fresh mode menu.
func (d Deps) returnToMenu(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	s.ResetFlow()
	if err := d.showMenu(ctx, s, false); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Next(StateMenu), nil
}
