package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cpamm-labs/cpamm-server/pkg/lock"
)

// LockManager is an in-process lock.Manager. Locks for a given name are
// re-entrant per Manager, so within a single manager every Acquire succeeds
// immediately and no mutual exclusion is provided on its own. It is
// intended for tests and for single-process callers that already
// coordinate local concurrency per the lock.Manager contract (the way
// the dispatcher holds a striped lock around acquisition).
type LockManager struct {
	log *logrus.Entry

	mu     sync.Mutex
	holds  map[string]int
	closed bool
}

func NewLockManager() *LockManager {
	return &LockManager{
		log: logrus.StandardLogger().WithField("type", "memory/LockManager"),

		holds: make(map[string]int),
	}
}

// Create implements lock.Manager.Create
func (lm *LockManager) Create(_ context.Context, name string) (lock.DistributedLock, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.closed {
		return nil, fmt.Errorf("LockManager is closed")
	}

	return &Lock{
		lm:  lm,
		key: name,
	}, nil
}

// Close closes the lock manager. All locks created by the manager become
// unlocked.
func (lm *LockManager) Close() {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.closed = true
	lm.holds = make(map[string]int)
}

func (lm *LockManager) hold(key string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.closed {
		return fmt.Errorf("LockManager is closed")
	}

	lm.holds[key]++
	return nil
}

func (lm *LockManager) release(key string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.holds[key] > 0 {
		lm.holds[key]--
	}
	if lm.holds[key] == 0 {
		delete(lm.holds, key)
	}
}

type Lock struct {
	lm  *LockManager
	key string

	mu     sync.Mutex
	lostCh chan struct{}
}

// Acquire implements lock.DistributedLock.Acquire
func (l *Lock) Acquire(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lostCh != nil {
		return nil, fmt.Errorf("cannot call Acquire concurrently")
	}

	if err := l.lm.hold(l.key); err != nil {
		return nil, err
	}

	lostCh := make(chan struct{})
	l.lostCh = lostCh

	// The lock is lost when the context is cancelled
	go func() {
		select {
		case <-ctx.Done():
			l.Unlock(context.Background())
		case <-lostCh:
		}
	}()

	return lostCh, nil
}

// Unlock implements lock.DistributedLock.Unlock
func (l *Lock) Unlock(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lostCh == nil {
		return nil
	}

	close(l.lostCh)
	l.lostCh = nil

	l.lm.release(l.key)
	return nil
}

// IsLocked implements lock.DistributedLock.IsLocked
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.lostCh != nil
}
