// Package source provides the raw snapshot sources feeding the update loop.
package source

import (
	"context"
	"errors"
	"sync"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

var ErrClosed = errors.New("source closed")

// Source delivers snapshots in arrival order.
// Next blocks until a snapshot is available. A recorded source returns
// io.EOF at its end.
type Source interface {
	Next(ctx context.Context) (model.Snapshot, error)
}

// LiveSource buffers at most one pending snapshot. A snapshot pushed before
// the pending one was consumed is merged into it, newer parts win.
type LiveSource struct {
	mu      sync.Mutex
	pending *model.Snapshot
	notify  chan struct{}
	closed  bool
}

func NewLiveSource() *LiveSource {
	return &LiveSource{notify: make(chan struct{}, 1)}
}

func (s *LiveSource) Push(snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.pending != nil {
		snap = snap.Merge(*s.pending)
	}
	s.pending = &snap
	s.signal()
}

func (s *LiveSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.signal()
}

func (s *LiveSource) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *LiveSource) Next(ctx context.Context) (model.Snapshot, error) {
	for {
		s.mu.Lock()
		if s.pending != nil {
			ret := *s.pending
			s.pending = nil
			s.mu.Unlock()
			return ret, nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return model.Snapshot{}, ErrClosed
		}
		select {
		case <-ctx.Done():
			return model.Snapshot{}, ctx.Err()
		case <-s.notify:
		}
	}
}
