package state

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Locker serializes turns per session id. Entries are reference counted
// and removed once no caller holds or waits on them.
//
// Locks are process-local; several replicas sharing a redis store still
// need sticky routing by session id.
type Locker struct {
	locks *xsync.MapOf[string, *lockEntry]
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: xsync.NewMapOf[string, *lockEntry]()}
}

// Lock blocks until the session is free or ctx is done. The returned
// unlock func is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, sessionID string) (func(), error) {
	entry, _ := l.locks.Compute(sessionID, func(old *lockEntry, loaded bool) (*lockEntry, bool) {
		if !loaded {
			old = &lockEntry{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(sessionID)
		})
	}, nil
}

// Size is the number of sessions currently locked or awaited.
func (l *Locker) Size() int {
	return l.locks.Size()
}

func (l *Locker) release(sessionID string) {
	l.locks.Compute(sessionID, func(old *lockEntry, loaded bool) (*lockEntry, bool) {
		if !loaded {
			return nil, true
		}
		old.refs--
		return old, old.refs <= 0
	})
}
