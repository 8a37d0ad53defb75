package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/code-payments/gift-protocol/pkg/lock"
)

// Manager is an in-process lock.Manager. Locks sharing a name are exclusive
// within one Manager, which lets a single process stand in for a set of
// replicas.
type Manager struct {
	mu      sync.Mutex
	holders map[string]*Lock
	freed   map[string]chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		holders: make(map[string]*Lock),
		freed:   make(map[string]chan struct{}),
	}
}

// Create implements lock.Manager.Create
func (m *Manager) Create(_ context.Context, name string) (lock.DistributedLock, error) {
	if len(name) == 0 {
		return nil, errors.New("lock name is required")
	}
	return &Lock{m: m, name: name}, nil
}

// tryHold claims name for l, or returns a channel closed once the current
// holder lets go.
func (m *Manager) tryHold(l *Lock) (bool, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.holders[l.name]; ok {
		return false, m.freed[l.name]
	}

	m.holders[l.name] = l
	m.freed[l.name] = make(chan struct{})
	return true, nil
}

func (m *Manager) release(l *Lock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holders[l.name] != l {
		return
	}

	close(m.freed[l.name])
	delete(m.holders, l.name)
	delete(m.freed, l.name)
}

type Lock struct {
	m    *Manager
	name string

	mu        sync.Mutex
	acquiring bool
	lostCh    chan struct{}
}

// Acquire implements lock.DistributedLock.Acquire
func (l *Lock) Acquire(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	if l.acquiring || l.lostCh != nil {
		l.mu.Unlock()
		return nil, errors.New("cannot call Acquire concurrently")
	}
	l.acquiring = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.acquiring = false
		l.mu.Unlock()
	}()

	for {
		held, freed := l.m.tryHold(l)
		if held {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-freed:
		}
	}

	lostCh := make(chan struct{})

	l.mu.Lock()
	l.lostCh = lostCh
	l.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = l.Unlock(context.Background())
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

	l.m.release(l)
	close(l.lostCh)
	l.lostCh = nil
	return nil
}

// IsLocked implements lock.DistributedLock.IsLocked
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.lostCh != nil
}
