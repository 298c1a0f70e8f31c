// Package lock serializes ledger commits per user and allocation bucket so
// that concurrent batches cannot create duplicate wallets.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned when a lock could not be acquired in time.
var ErrLocked = errors.New("lock is held by another commit")

// KeyedMutex is an in-process lock keyed by string. Waiters block until
// the holder releases or their context ends.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

// Acquire blocks until key is free. The returned release must be called
// exactly once.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.waiters++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.leave(key, s)
		return nil, errors.Join(ErrLocked, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.leave(key, s)
		})
	}, nil
}

// leave drops the slot once nobody holds or waits for it.
func (m *KeyedMutex) leave(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(m.slots, key)
	}
}
