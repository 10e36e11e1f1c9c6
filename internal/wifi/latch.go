package wifi

import "sync"

// latch is a binary flag whose waiters block on a channel that is closed
// while the flag is set. Only the current value matters; no history is kept.
type latch struct {
	mu  sync.Mutex
	on  bool
	set chan struct{}
}

func newLatch() *latch {
	return &latch{set: make(chan struct{})}
}

func (l *latch) raise() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		l.on = true
		close(l.set)
	}
}

func (l *latch) lower() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on {
		l.on = false
		l.set = make(chan struct{})
	}
}

func (l *latch) isSet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// wait returns a channel that is closed once the flag is set. It is
// already closed if the flag is set now.
func (l *latch) wait() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set
}
