package dialog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSend struct {
	text  string
	kb    [][]Button
	plain bool
}

type fakeTransport struct {
	mu       sync.Mutex
	nextID   int
	sends    []fakeSend
	edits    []int
	strips   []int
	deletes  []int
	typing   int
	stripErr error
	delErr   error
}

func (f *fakeTransport) Send(ctx context.Context, chat int64, text string, kb [][]Button) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sends = append(f.sends, fakeSend{text: text, kb: kb})
	return f.nextID, nil
}

func (f *fakeTransport) SendPlain(ctx context.Context, chat int64, text string, kb [][]Button) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sends = append(f.sends, fakeSend{text: text, kb: kb, plain: true})
	return f.nextID, nil
}

func (f *fakeTransport) Edit(ctx context.Context, chat int64, messageID int, text string, kb [][]Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, messageID)
	return nil
}

func (f *fakeTransport) StripControls(ctx context.Context, chat int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strips = append(f.strips, messageID)
	return f.stripErr
}

func (f *fakeTransport) Delete(ctx context.Context, chat int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return f.delErr
}

func (f *fakeTransport) Typing(ctx context.Context, chat int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
}

func TestRetractActiveIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	lc := NewLifecycle(tr)
	s := &Session{Chat: 1}

	lc.RecordActive(s, 42)
	lc.RetractActive(context.Background(), s)
	lc.RetractActive(context.Background(), s)

	assert.Equal(t, []int{42}, tr.strips, "second retract must be a no-op")
	assert.Zero(t, s.ActiveMessageID)
}

func TestRetractActiveClearsEvenOnTransportError(t *testing.T) {
	tr := &fakeTransport{stripErr: assert.AnError}
	lc := NewLifecycle(tr)
	s := &Session{Chat: 1, ActiveMessageID: 7}

	lc.RetractActive(context.Background(), s)

	assert.Zero(t, s.ActiveMessageID)
	assert.Equal(t, []int{7}, tr.strips)
}

func TestRecordActiveReplacesPrevious(t *testing.T) {
	lc := NewLifecycle(&fakeTransport{})
	s := &Session{Chat: 1}
	lc.RecordActive(s, 1)
	lc.RecordActive(s, 2)
	assert.Equal(t, 2, s.ActiveMessageID)
}

func TestFlushScheduledDelete(t *testing.T) {
	tr := &fakeTransport{}
	lc := NewLifecycle(tr)
	s := &Session{Chat: 1}

	lc.FlushScheduledDelete(context.Background(), s)
	assert.Empty(t, tr.deletes, "nothing scheduled, nothing deleted")

	lc.ScheduleDelete(s, 9)
	lc.FlushScheduledDelete(context.Background(), s)
	lc.FlushScheduledDelete(context.Background(), s)

	assert.Equal(t, []int{9}, tr.deletes)
	assert.Zero(t, s.PendingDeleteID)
}
