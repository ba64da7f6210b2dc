package flows

import (
	"context"
	"fmt"
	"slices"

	"github.com/m3rciful/consultbot/core/dialog"
	"github.com/m3rciful/consultbot/internal/pricing"
	"github.com/m3rciful/consultbot/internal/texts"
)

// pricingMachine builds the mounted service/installation selection machine.
// It enters through the tagServiceStart button at StatePricing and leaves via
// exitDone (back to the menu) or exitToChat (hand-off to the consultant).
func (d Deps) pricingMachine() (*dialog.Machine, dialog.Mount) {
	m := dialog.NewMachine("pricing", statePricingEntry).
		OnButton(statePricingEntry, d.pricingEntry).
		OnButton(statePricingType, d.pricingChooseType).
		OnButton(statePricingMaker, d.pricingChooseMaker).
		OnButton(statePricingModel, d.pricingChooseModel).
		OnButton(statePricingRegion, d.pricingChooseRegion).
		OnButton(statePricingTyped, d.pricingTypedChoice).
		OnText(statePricingTyped, d.pricingTypedText).
		Fallback(d.pricingTypedInterrupt).
		Escape(d.pricingReturnToMenu)

	mount := dialog.Mount{
		Child:     m,
		At:        StatePricing,
		EntryTags: []string{tagServiceStart},
		TerminalMap: map[dialog.ExitLabel]dialog.State{
			exitDone:   StateMenu,
			exitToChat: StateChat,
		},
	}
	return m, mount
}

func (d Deps) serviceKind(s *dialog.Session) pricing.ServiceKind {
	if s.Flags[FlagServiceType] == string(pricing.KindInstallation) {
		return pricing.KindInstallation
	}
	return pricing.KindService
}

func typeKB() [][]dialog.Button {
	return dialog.Keyboard(
		dialog.Row(
			dialog.Button{Label: texts.BtnService, Tag: tagService},
			dialog.Button{Label: texts.BtnInstall, Tag: tagInstallation},
		),
		mainMenuRow(),
	)
}

// pricingEntry serves the entry button. A pre-seeded session skips the
// selections already answered upstream; otherwise the type menu opens.
func (d Deps) pricingEntry(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	if s.Flags[FlagSeeded] != "" {
		delete(s.Flags, FlagSeeded)
		if s.Flags[FlagServiceType] == string(pricing.KindService) && s.Flags[FlagModel] != "" {
			if err := d.renderServiceAnswer(ctx, s); err != nil {
				return dialog.Stay(), err
			}
			return dialog.Exit(exitDone), nil
		}
		if s.Flags[FlagServiceType] != "" {
			return d.renderManufacturers(ctx, s)
		}
	}
	if err := d.editActive(ctx, s, texts.PricingEntry, typeKB()); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Next(statePricingType), nil
}

func (d Deps) pricingChooseType(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	switch ev.Tag {
	case tagService, tagInstallation:
		s.Flags[FlagServiceType] = ev.Tag
		return d.renderManufacturers(ctx, s)
	}
	return dialog.Stay(), nil
}

func (d Deps) renderManufacturers(ctx context.Context, s *dialog.Session) (dialog.Transition, error) {
	makers := d.Catalog.Manufacturers(d.serviceKind(s))
	if err := d.editActive(ctx, s, texts.ChooseManufacturer, listKB(makers)); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Next(statePricingMaker), nil
}

func (d Deps) pricingChooseMaker(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	kind := d.serviceKind(s)
	if !slices.Contains(d.Catalog.Manufacturers(kind), ev.Tag) {
		return dialog.Stay(), nil
	}
	s.Flags[flagManufacturer] = ev.Tag
	models := d.Catalog.Models(kind, ev.Tag)
	if err := d.editActive(ctx, s, texts.ChooseModel, listKB(models)); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Next(statePricingModel), nil
}

func (d Deps) pricingChooseModel(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	kind := d.serviceKind(s)
	if !slices.Contains(d.Catalog.Models(kind, s.Flags[flagManufacturer]), ev.Tag) {
		return dialog.Stay(), nil
	}
	s.Flags[FlagModel] = ev.Tag
	if kind == pricing.KindService {
		if err := d.renderServiceAnswer(ctx, s); err != nil {
			return dialog.Stay(), err
		}
		return dialog.Exit(exitDone), nil
	}
	if err := d.editActive(ctx, s, texts.ChooseRegion, listKB(d.Catalog.Regions())); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Next(statePricingRegion), nil
}

func (d Deps) pricingChooseRegion(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	if !slices.Contains(d.Catalog.Regions(), ev.Tag) {
		return dialog.Stay(), nil
	}
	s.Flags[flagRegion] = ev.Tag
	model := s.Flags[FlagModel]
	cost, status := d.Catalog.InstallationCost(model, ev.Tag)
	var text string
	switch status {
	case pricing.InstallFound:
		text = fmt.Sprintf(texts.InstallAnswer, escapeMD(model), escapeMD(ev.Tag), escapeMD(cost))
	case pricing.InstallUnavailable:
		text = fmt.Sprintf(texts.InstallAnswerNone, escapeMD(model), escapeMD(ev.Tag))
	default:
		text = texts.InstallAnswerEmpty
	}
	if err := d.editActive(ctx, s, text, mainMenuKB()); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Exit(exitDone), nil
}

func (d Deps) renderServiceAnswer(ctx context.Context, s *dialog.Session) error {
	model := s.Flags[FlagModel]
	cost, ok := d.Catalog.ServiceCost(model)
	var text string
	switch {
	case !ok, cost.Repair == nil && cost.Analysis == nil:
		text = texts.ServiceAnswerEmpty
	case cost.Repair == nil:
		text = fmt.Sprintf(texts.ServiceAnswerNoRepair, escapeMD(model), escapeMD(*cost.Analysis))
	case cost.Analysis == nil:
		text = fmt.Sprintf(texts.ServiceAnswerNoAnalysis, escapeMD(model), escapeMD(*cost.Repair))
	default:
		text = fmt.Sprintf(texts.ServiceAnswerFull, escapeMD(model), escapeMD(*cost.Repair), escapeMD(*cost.Analysis))
	}
	return d.editActive(ctx, s, text, mainMenuKB())
}

// pricingTypedInterrupt serves free text in the middle of the selection: the
// old keyboard is retired and the user chooses whether to keep selecting or
// switch to the consultant.
func (d Deps) pricingTypedInterrupt(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	d.Lifecycle.RetractActive(ctx, s)
	kb := dialog.Keyboard(
		dialog.Row(dialog.Button{Label: texts.BtnChatBot, Tag: tagToChat}),
		dialog.Row(dialog.Button{Label: texts.BtnStay, Tag: tagStayPricing}),
		mainMenuRow(),
	)
	if err := d.send(ctx, s, texts.TypedInsteadOfButton, kb); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Next(statePricingTyped), nil
}

func (d Deps) pricingTypedChoice(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	switch ev.Tag {
	case tagToChat:
		if err := d.editActive(ctx, s, texts.ToChatBot, mainMenuKB()); err != nil {
			return dialog.Stay(), err
		}
		return dialog.Exit(exitToChat), nil
	case tagStayPricing:
		if err := d.editActive(ctx, s, texts.PricingEntry, typeKB()); err != nil {
			return dialog.Stay(), err
		}
		return dialog.Next(statePricingType), nil
	}
	return dialog.Stay(), nil
}

// pricingTypedText: typing again at the interstitial is taken as a question
// for the consultant.
func (d Deps) pricingTypedText(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	d.Lifecycle.RetractActive(ctx, s)
	if err := d.send(ctx, s, texts.ToChatBot, mainMenuKB()); err != nil {
		return dialog.Stay(), err
	}
	return dialog.Exit(exitToChat), nil
}

// pricingReturnToMenu closes the selection: the farewell message is scheduled
// for deletion on the next menu redisplay so finished flows leave no residue.
func (d Deps) pricingReturnToMenu(ctx context.Context, s *dialog.Session, ev dialog.Event) (dialog.Transition, error) {
	s.ResetFlow()
	if err := d.editActive(ctx, s, texts.ReturnToMainMenu, mainMenuKB()); err != nil {
		return dialog.Stay(), err
	}
	d.Lifecycle.ScheduleDelete(s, s.ActiveMessageID)
	return dialog.Exit(exitDone), nil
}
