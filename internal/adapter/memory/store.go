// Package memory is an in-process entity store. Committed state is never
// mutated; a transaction works on a copy of the maps and swaps it in on commit.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/secondary"
)

var _ secondary.Store = (*Store)(nil)

var errReadOnly = errors.New("write attempted in a read-only view")

// Store implements secondary.Store in memory. Writers are serialised; readers
// see the last committed state.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	current *state
	clock   func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

func NewStore(options ...Option) *Store {
	s := &Store{
		current: newState(),
		clock:   time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Store) InTx(ctx context.Context, fn func(tx secondary.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	next := s.current.clone()
	s.mu.RUnlock()

	if err := fn(&memTx{st: next, store: s}); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx secondary.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.current
	s.mu.RUnlock()
	return fn(&memTx{st: snapshot, store: s, readOnly: true})
}

func (s *Store) Close() error {
	return nil
}

// stamp returns a timestamp strictly after every one handed out before, so
// that creation order is also timestamp order.
func (st *state) stamp(clock func() time.Time) time.Time {
	t := clock().UTC()
	if !t.After(st.last) {
		t = st.last.Add(time.Microsecond)
	}
	st.last = t
	return t
}

func newID() uuid.UUID {
	return uuid.New()
}
