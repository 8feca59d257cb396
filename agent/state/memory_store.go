package state

import (
	"container/heap"
	"context"
	"sync"
	"time"

	metricsx "github.com/tanpawarit/Chative-Support-Router/agent/metrics"
)

// MemoryStore keeps sessions in process. Expired sessions are evicted on
// every access using a min-heap ordered by deadline; heap items left behind
// by later refreshes are skipped when popped.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memEntry
	expiry   expiryHeap
	idle     time.Duration
	now      func() time.Time
}

type memEntry struct {
	session  *Session
	deadline time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	o := applyStoreOptions(opts)
	return &MemoryStore{
		sessions: make(map[string]*memEntry),
		idle:     o.idle,
		now:      o.now,
	}
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, sessionID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := sessionKey("", sessionID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	m.evictLocked(now)

	var stored *Session
	if e, ok := m.sessions[sessionID]; ok {
		stored = e.session
	}
	s := resume(stored, sessionID, now, m.idle)
	m.putLocked(s)
	return s.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := s.Clone()
	if c.LastInteraction.IsZero() {
		c.LastInteraction = m.now().UTC()
	}
	m.putLocked(c)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	metricsx.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

// Sweep evicts expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictLocked(m.now().UTC())
}

// RunSweeper evicts on a fixed interval until ctx is done. Lookups evict
// lazily as well, so this only bounds memory for abandoned sessions.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) putLocked(s *Session) {
	e := &memEntry{session: s}
	if m.idle > 0 {
		e.deadline = s.LastInteraction.Add(m.idle)
		heap.Push(&m.expiry, expiryItem{sessionID: s.SessionID, deadline: e.deadline})
	}
	m.sessions[s.SessionID] = e
	m.compactLocked()
	metricsx.ActiveSessions.Set(float64(len(m.sessions)))
}

func (m *MemoryStore) evictLocked(now time.Time) int {
	evicted := 0
	for m.expiry.Len() > 0 {
		top := m.expiry[0]
		if !now.After(top.deadline) {
			break
		}
		heap.Pop(&m.expiry)

		e, ok := m.sessions[top.sessionID]
		if !ok || !e.deadline.Equal(top.deadline) {
			continue
		}
		delete(m.sessions, top.sessionID)
		evicted++
	}
	if evicted > 0 {
		metricsx.ActiveSessions.Set(float64(len(m.sessions)))
	}
	return evicted
}

// compactLocked drops stale heap items once they outnumber live sessions.
func (m *MemoryStore) compactLocked() {
	if len(m.expiry) <= 2*len(m.sessions)+64 {
		return
	}
	live := make(expiryHeap, 0, len(m.sessions))
	for id, e := range m.sessions {
		if m.idle > 0 {
			live = append(live, expiryItem{sessionID: id, deadline: e.deadline})
		}
	}
	heap.Init(&live)
	m.expiry = live
}

type expiryItem struct {
	sessionID string
	deadline  time.Time
}

type expiryHeap []expiryItem

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h expiryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap) Push(x any) {
	*h = append(*h, x.(expiryItem))
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
