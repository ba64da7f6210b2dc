package dialog

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendExchangeKeepsWindow(t *testing.T) {
	s := &Session{}
	for i := 0; i < HistoryWindow+2; i++ {
		s.AppendExchange("q"+strconv.Itoa(i), "a"+strconv.Itoa(i))
	}
	assert.Len(t, s.History, HistoryWindow)
	assert.Equal(t, "q2", s.History[0].Query, "oldest entries drop first")
	assert.Equal(t, "q5", s.History[HistoryWindow-1].Query)
}

func TestResetFlowKeepsHistory(t *testing.T) {
	s := &Session{Flags: map[string]string{"service_type": "service"}}
	s.AppendExchange("q", "a")
	s.ResetFlow()
	assert.Empty(t, s.Flags)
	assert.Len(t, s.History, 1)
}

func TestStoreIsolatesChats(t *testing.T) {
	st := NewStore("home")
	st.With(1, func(s *Session) { s.State = "other" })
	assert.Equal(t, State("other"), st.Peek(1).State)
	assert.Equal(t, State("home"), st.Peek(2).State)
	assert.Equal(t, 2, st.Len())
}

func TestStoreSerializesPerChat(t *testing.T) {
	st := NewStore("home")
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.With(7, func(s *Session) {
				n, _ := strconv.Atoi(s.Flags["n"])
				s.Flags["n"] = strconv.Itoa(n + 1)
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, "100", st.Peek(7).Flags["n"])
}
