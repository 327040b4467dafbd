package memory

import (
	"context"
	"sync"

	"subtrack/internal/core"
	ports "subtrack/internal/sheets"
)

// Store is an in-process Mirror. It keeps every snapshot written to it.
type Store struct {
	mu        sync.Mutex
	snapshots []ports.Snapshot
	err       error
}

var _ ports.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// WriteSnapshot records a copy of snap.
func (s *Store) WriteSnapshot(ctx context.Context, snap ports.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	snap.Subscriptions = append([]core.Subscription(nil), snap.Subscriptions...)
	s.snapshots = append(s.snapshots, snap)
	return nil
}

// FailWith makes subsequent writes return err; nil restores normal behavior.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Latest returns the most recent snapshot.
func (s *Store) Latest() (ports.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return ports.Snapshot{}, false
	}
	return s.snapshots[len(s.snapshots)-1], true
}

// Count is the number of snapshots written so far.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}
