package genstore

import (
	"context"
	"sync"
	"time"
)

// Local keeps generations in process memory. It fences loads within a single
// process only; caches shared between processes need Redis.
//
// With pruning enabled, keys not bumped for longer than retention are
// forgotten and read as 0 again. Retention must exceed the slowest fetch, or
// a load that snapshotted 0 before the bump could still write.
type Local struct {
	mu    sync.RWMutex
	byKey map[string]generation
	now   func() time.Time

	stop context.CancelFunc
	done chan struct{}
}

type generation struct {
	n       uint64
	touched time.Time
}

var _ Store = (*Local)(nil)

// NewLocal returns an in-process Store. When both cleanupInterval and
// retention are positive a goroutine prunes every cleanupInterval until Close.
func NewLocal(cleanupInterval, retention time.Duration) *Local {
	s := &Local{byKey: make(map[string]generation), now: time.Now}
	if cleanupInterval <= 0 || retention <= 0 {
		return s
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.done = make(chan struct{})
	go s.pruneLoop(ctx, cleanupInterval, retention)
	return s
}

func (s *Local) pruneLoop(ctx context.Context, every, retention time.Duration) {
	defer close(s.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Prune(retention)
		}
	}
}

func (s *Local) Current(_ context.Context, key string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKey[key].n, nil
}

func (s *Local) Bump(_ context.Context, key string) (uint64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.byKey[key]
	g.n++
	g.touched = now
	s.byKey[key] = g
	return g.n, nil
}

// Prune forgets keys last bumped more than retention ago.
func (s *Local) Prune(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := s.now().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, g := range s.byKey {
		if g.touched.Before(cutoff) {
			delete(s.byKey, k)
		}
	}
}

// Len is the number of keys that currently carry a generation.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Close stops the prune loop. Safe to call more than once.
func (s *Local) Close(_ context.Context) error {
	if s.stop != nil {
		s.stop()
		<-s.done
	}
	return nil
}
