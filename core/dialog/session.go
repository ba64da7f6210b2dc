package dialog

import "sync"

// HistoryWindow bounds the dialogue history kept per session. The free-form
// consultant passes exactly this many most recent exchanges to retrieval.
const HistoryWindow = 4

// Exchange is one completed question/answer pair of the free-form mode.
type Exchange struct {
	Query  string
	Answer string
}

// Session is the mutable conversation context of a single chat. Fields are
// only touched by handlers running under the store's per-session lock.
type Session struct {
	Chat            int64
	State           State
	ActiveMessageID int // last interactive message sent, 0 if none
	PendingDeleteID int // message scheduled for removal on next menu render, 0 if none
	History         []Exchange
	Flags           map[string]string
}

// AppendExchange records a completed free-form exchange, keeping only the
// HistoryWindow most recent entries.
func (s *Session) AppendExchange(query, answer string) {
	s.History = append(s.History, Exchange{Query: query, Answer: answer})
	if len(s.History) > HistoryWindow {
		s.History = s.History[len(s.History)-HistoryWindow:]
	}
}

// ResetFlow clears per-flow selections without touching dialogue history.
func (s *Session) ResetFlow() {
	for k := range s.Flags {
		delete(s.Flags, k)
	}
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// Store keeps one session per chat id. Lookup is guarded by a short-lived map
// lock; each session has its own mutex held for the duration of a dispatch,
// so distinct chats proceed fully concurrently while events of one chat are
// strictly serialized.
type Store struct {
	mu      sync.Mutex
	initial State
	entries map[int64]*sessionEntry
}

// NewStore creates an empty store whose sessions start in the given state.
func NewStore(initial State) *Store {
	return &Store{
		initial: initial,
		entries: make(map[int64]*sessionEntry),
	}
}

func (st *Store) entry(chat int64) *sessionEntry {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.entries[chat]
	if !ok {
		e = &sessionEntry{session: &Session{
			Chat:  chat,
			State: st.initial,
			Flags: make(map[string]string),
		}}
		st.entries[chat] = e
	}
	return e
}

// With runs fn with exclusive access to the chat's session, creating it in
// the initial state on first contact. The per-session lock spans the whole
// call, including any blocking work fn performs.
func (st *Store) With(chat int64, fn func(*Session)) {
	e := st.entry(chat)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.session)
}

// Peek returns a copy of the session's scalar fields for diagnostics. The
// history slice is shared and must not be mutated by callers.
func (st *Store) Peek(chat int64) Session {
	e := st.entry(chat)
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.session
}

// Len reports the number of known sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}
