package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/metrics"
)

// DefaultTypingTTL is how long a typing entry survives without a refresh.
const DefaultTypingTTL = 3 * time.Second

type OnlineStatus struct {
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

type typingEntry struct {
	timer *time.Timer
	gen   uint64
}

// Tracker holds ephemeral typing and online state for one process. Nothing
// here is persisted; startup is empty maps and Close cancels every timer.
type Tracker struct {
	mu     sync.Mutex
	typing map[string]map[string]*typingEntry // conversationID -> userID
	online map[string]OnlineStatus
	ttl    time.Duration
	closed bool
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &Tracker{
		typing: make(map[string]map[string]*typingEntry),
		online: make(map[string]OnlineStatus),
		ttl:    ttl,
	}
}

// SetTyping records or clears a typing entry. A refresh replaces the
// pending expiry timer (debounced, not stacked); the generation counter
// keeps a timer that fires concurrently with a refresh from removing the
// fresh entry.
func (t *Tracker) SetTyping(conversationID, userID string, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	users := t.typing[conversationID]
	if !isTyping {
		if e, ok := users[userID]; ok {
			e.timer.Stop()
			delete(users, userID)
			if len(users) == 0 {
				delete(t.typing, conversationID)
			}
			metrics.TypingActive.Dec()
		}
		return
	}

	if users == nil {
		users = make(map[string]*typingEntry)
		t.typing[conversationID] = users
	}
	e, ok := users[userID]
	if ok {
		e.timer.Stop()
		e.gen++
	} else {
		e = &typingEntry{}
		users[userID] = e
		metrics.TypingActive.Inc()
	}
	gen := e.gen
	e.timer = time.AfterFunc(t.ttl, func() {
		t.expire(conversationID, userID, gen)
	})
}

func (t *Tracker) expire(conversationID, userID string, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := t.typing[conversationID]
	e, ok := users[userID]
	if !ok || e.gen != gen {
		// A refresh won the race; the entry stays.
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.typing, conversationID)
	}
	metrics.TypingActive.Dec()
}

// GetTypingUsers returns a sorted snapshot with no side effects.
func (t *Tracker) GetTypingUsers(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := t.typing[conversationID]
	out := make([]string, 0, len(users))
	for uid := range users {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

// SetOnline records an explicit online/offline transition; there is no
// expiry on this map.
func (t *Tracker) SetOnline(userID string, online bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.online[userID] = OnlineStatus{IsOnline: online, LastSeen: time.Now().UTC()}
}

func (t *Tracker) GetOnline(userID string) (OnlineStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.online[userID]
	return s, ok
}

// Close cancels all outstanding timers and rejects further writes.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, users := range t.typing {
		for range users {
			metrics.TypingActive.Dec()
		}
		for _, e := range users {
			e.timer.Stop()
		}
	}
	t.typing = make(map[string]map[string]*typingEntry)
	t.online = make(map[string]OnlineStatus)
}
