package flows

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/consultbot/core/dialog"
	"github.com/m3rciful/consultbot/internal/pricing"
	"github.com/m3rciful/consultbot/internal/texts"
)

const testChat int64 = 100500

type sentMsg struct {
	id    int
	text  string
	kb    [][]dialog.Button
	plain bool
}

type editMsg struct {
	id   int
	text string
	kb   [][]dialog.Button
}

type fakeTransport struct {
	mu      sync.Mutex
	nextID  int
	sends   []sentMsg
	edits   []editMsg
	strips  []int
	deletes []int
	typing  int
}

func (f *fakeTransport) Send(ctx context.Context, chat int64, text string, kb [][]dialog.Button) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sends = append(f.sends, sentMsg{id: f.nextID, text: text, kb: kb})
	return f.nextID, nil
}

func (f *fakeTransport) SendPlain(ctx context.Context, chat int64, text string, kb [][]dialog.Button) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sends = append(f.sends, sentMsg{id: f.nextID, text: text, kb: kb, plain: true})
	return f.nextID, nil
}

func (f *fakeTransport) Edit(ctx context.Context, chat int64, messageID int, text string, kb [][]dialog.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editMsg{id: messageID, text: text, kb: kb})
	return nil
}

func (f *fakeTransport) StripControls(ctx context.Context, chat int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strips = append(f.strips, messageID)
	return nil
}

func (f *fakeTransport) Delete(ctx context.Context, chat int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *fakeTransport) Typing(ctx context.Context, chat int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
}

func (f *fakeTransport) lastSend(t *testing.T) sentMsg {
	t.Helper()
	require.NotEmpty(t, f.sends)
	return f.sends[len(f.sends)-1]
}

func (f *fakeTransport) lastEdit(t *testing.T) editMsg {
	t.Helper()
	require.NotEmpty(t, f.edits)
	return f.edits[len(f.edits)-1]
}

func kbTags(kb [][]dialog.Button) []string {
	var out []string
	for _, row := range kb {
		for _, b := range row {
			out = append(out, b.Tag)
		}
	}
	return out
}

type fakeAnswerer struct {
	answer     string
	err        error
	gotQuery   string
	gotHistory []dialog.Exchange
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string, history []dialog.Exchange) (string, error) {
	f.gotQuery = query
	f.gotHistory = append([]dialog.Exchange(nil), history...)
	return f.answer, f.err
}

const flowCatalogYAML = `
service:
  - manufacturer: Epson
    model: SC-P8000
    repair: "12000"
    analysis: "3500"
  - manufacturer: Epson
    model: SC-T5400
    repair: "-"
    analysis: "3000"

installation:
  regions:
    - Москва
    - Регионы
  rows:
    - manufacturer: Epson
      model: SC-P8000
      costs: ["8000", "-"]
`

func newTestFlow(t *testing.T) (*dialog.Engine, *fakeTransport, *fakeAnswerer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flowCatalogYAML), 0o644))
	cat, err := pricing.LoadFile(path)
	require.NoError(t, err)

	tr := &fakeTransport{}
	ans := &fakeAnswerer{answer: "ответ консультанта"}
	eng, err := NewEngine(Deps{
		Transport: tr,
		Lifecycle: dialog.NewLifecycle(tr),
		Catalog:   cat,
		Knowledge: ans,
	})
	require.NoError(t, err)
	return eng, tr, ans
}

func state(e *dialog.Engine) dialog.State {
	return e.Store().Peek(testChat).State
}

func TestStartCommandShowsMenu(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))

	assert.Equal(t, StateMenu, state(eng))
	menu := tr.lastSend(t)
	assert.Equal(t, texts.Start, menu.text)
	assert.Equal(t, []string{tagChatBot, tagServiceBot, tagContractBot}, kbTags(menu.kb))
	assert.Equal(t, menu.id, eng.Store().Peek(testChat).ActiveMessageID)
}

func TestFreeTextBeforeAnyMenuShowsMenu(t *testing.T) {
	eng, tr, _ := newTestFlow(t)

	eng.Dispatch(context.Background(), testChat, dialog.TextEvent("привет"))

	assert.Equal(t, StateMenu, state(eng))
	assert.Equal(t, texts.Start, tr.lastSend(t).text)
}

func TestFreeTextWithMenuOnScreenHintsButtons(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	active := eng.Store().Peek(testChat).ActiveMessageID
	eng.Dispatch(ctx, testChat, dialog.TextEvent("где меню"))

	hint := tr.lastSend(t)
	assert.Equal(t, texts.InsteadButton, hint.text)
	assert.Nil(t, hint.kb)
	assert.Equal(t, active, eng.Store().Peek(testChat).ActiveMessageID, "hint must not steal the active message")
}

func TestStartResetsHistory(t *testing.T) {
	eng, _, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagChatBot))
	eng.Dispatch(ctx, testChat, dialog.TextEvent("вопрос"))
	require.Len(t, eng.Store().Peek(testChat).History, 1)

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	assert.Empty(t, eng.Store().Peek(testChat).History)
}

func TestChatFlowPassesHistoryWindow(t *testing.T) {
	eng, tr, ans := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagChatBot))
	assert.Equal(t, StateChat, state(eng))
	assert.Equal(t, texts.ToChatBot, tr.lastEdit(t).text)

	questions := []string{"q1", "q2", "q3", "q4", "q5", "q6"}
	for _, q := range questions {
		eng.Dispatch(ctx, testChat, dialog.TextEvent(q))
	}

	assert.Equal(t, "q6", ans.gotQuery)
	require.Len(t, ans.gotHistory, dialog.HistoryWindow, "retrieval sees only the window")
	assert.Equal(t, "q2", ans.gotHistory[0].Query, "oldest first")
	assert.Equal(t, "q5", ans.gotHistory[dialog.HistoryWindow-1].Query)

	answer := tr.lastSend(t)
	assert.True(t, answer.plain, "model output is sent without markup parsing")
	assert.Equal(t, []string{dialog.RootTag}, kbTags(answer.kb))
	assert.Equal(t, StateChat, state(eng))
}

func TestChatAnswerFailureApologizes(t *testing.T) {
	eng, tr, ans := newTestFlow(t)
	ans.err = assert.AnError
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagChatBot))
	eng.Dispatch(ctx, testChat, dialog.TextEvent("вопрос"))

	assert.Equal(t, texts.ChatApology, tr.lastSend(t).text)
	assert.Empty(t, eng.Store().Peek(testChat).History, "failed exchanges are not recorded")
	assert.Equal(t, StateChat, state(eng))
}

func TestChatLongAnswerIsSplit(t *testing.T) {
	eng, tr, ans := newTestFlow(t)
	ans.answer = strings.Repeat("ответ ", 1000) // ~11 KB, forces a split
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagChatBot))
	before := len(tr.sends)
	eng.Dispatch(ctx, testChat, dialog.TextEvent("вопрос"))

	parts := tr.sends[before:]
	require.Greater(t, len(parts), 1)
	for i, p := range parts {
		assert.LessOrEqual(t, len(p.text), maxMessageLen)
		if i < len(parts)-1 {
			assert.Nil(t, p.kb, "controls only on the last part")
		} else {
			assert.NotNil(t, p.kb)
		}
	}
	assert.Equal(t, parts[len(parts)-1].id, eng.Store().Peek(testChat).ActiveMessageID)
}

func TestServiceSelectionFlow(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	assert.Equal(t, StatePricing, state(eng))
	assert.Equal(t, []string{tagServiceStart, dialog.RootTag}, kbTags(tr.lastEdit(t).kb))

	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	assert.Equal(t, statePricingType, state(eng))
	assert.Equal(t, texts.PricingEntry, tr.lastEdit(t).text)

	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagService))
	assert.Equal(t, statePricingMaker, state(eng))
	assert.Contains(t, kbTags(tr.lastEdit(t).kb), "Epson")

	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("Epson"))
	assert.Equal(t, statePricingModel, state(eng))

	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("SC-P8000"))
	assert.Equal(t, StateMenu, state(eng), "terminal exit lands on the menu state")
	answer := tr.lastEdit(t)
	assert.Contains(t, answer.text, "12000")
	assert.Contains(t, answer.text, "3500")
	assert.Equal(t, []string{dialog.RootTag}, kbTags(answer.kb))
}

func TestServiceAnswerVariantNoRepair(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagService))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("Epson"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("SC-T5400"))

	assert.Contains(t, tr.lastEdit(t).text, "3000")
	assert.NotContains(t, tr.lastEdit(t).text, "ремонта")
}

func TestInstallationFlow(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagInstallation))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("Epson"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("SC-P8000"))
	assert.Equal(t, statePricingRegion, state(eng))
	assert.Equal(t, []string{"Москва", "Регионы", dialog.RootTag}, kbTags(tr.lastEdit(t).kb))

	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("Москва"))
	assert.Equal(t, StateMenu, state(eng))
	assert.Contains(t, tr.lastEdit(t).text, "8000")
}

func TestInstallationUnavailableRegion(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagInstallation))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("Epson"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("SC-P8000"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("Регионы"))

	assert.Contains(t, tr.lastEdit(t).text, "не выполняется")
	assert.Equal(t, StateMenu, state(eng))
}

func TestTypedDuringSelectionOpensInterstitial(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagService))
	active := eng.Store().Peek(testChat).ActiveMessageID

	eng.Dispatch(ctx, testChat, dialog.TextEvent("а сколько стоит?"))

	assert.Equal(t, statePricingTyped, state(eng))
	assert.Contains(t, tr.strips, active, "old keyboard is retired")
	prompt := tr.lastSend(t)
	assert.Equal(t, texts.TypedInsteadOfButton, prompt.text)
	assert.Equal(t, []string{tagToChat, tagStayPricing, dialog.RootTag}, kbTags(prompt.kb))
}

func TestInterstitialStayReturnsToTypeMenu(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.TextEvent("уже пишу"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagStayPricing))

	assert.Equal(t, statePricingType, state(eng))
	assert.Equal(t, texts.PricingEntry, tr.lastEdit(t).text)
}

func TestInterstitialButtonHandsOffToChat(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.TextEvent("уже пишу"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagToChat))

	assert.Equal(t, StateChat, state(eng), "terminal hand-off into the consultant mode")
	assert.Equal(t, texts.ToChatBot, tr.lastEdit(t).text)
}

func TestInterstitialTypedAgainHandsOffToChat(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.TextEvent("уже пишу"))
	eng.Dispatch(ctx, testChat, dialog.TextEvent("и снова пишу"))

	assert.Equal(t, StateChat, state(eng))
	assert.Equal(t, texts.ToChatBot, tr.lastSend(t).text)
}

func TestPricingEscapeSchedulesFarewellDeletion(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(dialog.RootTag))

	got := eng.Store().Peek(testChat)
	assert.Equal(t, StateMenu, got.State)
	assert.Equal(t, texts.ReturnToMainMenu, tr.lastEdit(t).text)
	assert.Equal(t, got.ActiveMessageID, got.PendingDeleteID)

	// The next menu render removes the farewell message.
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(dialog.RootTag))
	assert.Contains(t, tr.deletes, got.PendingDeleteID)
	assert.Zero(t, eng.Store().Peek(testChat).PendingDeleteID)
}

func TestPreSeededEntrySkipsSelection(t *testing.T) {
	eng, tr, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Store().With(testChat, func(s *dialog.Session) {
		s.Flags[FlagSeeded] = "1"
		s.Flags[FlagServiceType] = string(pricing.KindService)
		s.Flags[FlagModel] = "SC-P8000"
	})

	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))

	assert.Equal(t, StateMenu, state(eng))
	assert.Contains(t, tr.lastEdit(t).text, "12000")
}

func TestStaleManufacturerTagIsIgnored(t *testing.T) {
	eng, _, _ := newTestFlow(t)
	ctx := context.Background()

	eng.Dispatch(ctx, testChat, dialog.CommandEvent("start"))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceBot))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagServiceStart))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent(tagService))
	eng.Dispatch(ctx, testChat, dialog.ButtonEvent("HP"))

	assert.Equal(t, statePricingMaker, state(eng), "unknown manufacturer keeps the state")
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	text := strings.Repeat("строка текста\n", 400)
	parts := splitMessage(text, maxMessageLen)
	require.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), maxMessageLen)
		assert.False(t, strings.HasPrefix(p, "\n"))
	}
	joined := strings.Join(parts, "\n")
	assert.Equal(t, strings.TrimRight(text, "\n"), strings.TrimRight(joined, "\n"))
}

func TestSplitMessageShortTextUntouched(t *testing.T) {
	parts := splitMessage("короткий ответ", maxMessageLen)
	assert.Equal(t, []string{"короткий ответ"}, parts)
}

func TestSplitMessageNeverBreaksRunes(t *testing.T) {
	text := strings.Repeat("й", 3000) // 2-byte runes, no newlines
	for _, p := range splitMessage(text, maxMessageLen) {
		assert.True(t, strings.HasPrefix(p, "й") && strings.HasSuffix(p, "й"))
		assert.LessOrEqual(t, len(p), maxMessageLen)
	}
}
