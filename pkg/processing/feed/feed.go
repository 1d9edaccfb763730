package feed

import (
	"sync"

	"github.com/aarondl/opt/omit"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/processing/projector"
)

// Feed keeps the latest roster and telemetry snapshots and produces
// (previous, current) pairs of projected states.
// Update must be called from a single goroutine, subscriptions may be
// created from anywhere.
type Feed struct {
	projector *projector.Projector
	l         *log.Logger

	mu          sync.Mutex
	latest      model.Snapshot
	current     omit.Val[model.State]
	subscribers []*Subscription
	projected   []func(model.Snapshot)
}

type Option func(f *Feed)

func WithProjector(p *projector.Projector) Option {
	return func(f *Feed) {
		f.projector = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(f *Feed) {
		f.l = l
	}
}

// WithProjectedHandler registers a handler receiving the merged snapshot
// used for each projection (for example the recorder)
func WithProjectedHandler(h func(model.Snapshot)) Option {
	return func(f *Feed) {
		f.projected = append(f.projected, h)
	}
}

func New(opts ...Option) *Feed {
	ret := &Feed{l: log.Default().Named("feed")}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.projector == nil {
		ret.projector = projector.New()
	}
	return ret
}

// Update merges snap into the latest snapshots and projects a new state.
// The returned pair is valid only if ok is true, which requires a previous
// projected state.
func (f *Feed) Update(snap model.Snapshot) (pair model.StatePair, ok bool) {
	f.mu.Lock()
	merged := snap.Merge(f.latest)
	f.latest = merged
	f.mu.Unlock()
	if !merged.Complete() {
		f.l.Debug("waiting for complete snapshot",
			log.Bool("telemetry", merged.Telemetry != nil),
			log.Bool("roster", merged.Roster != nil))
		return model.StatePair{}, false
	}

	state := f.projector.Project(merged.Roster, merged.Telemetry)
	for _, h := range f.projected {
		h(merged)
	}

	f.mu.Lock()
	prev, hasPrev := f.current.Get()
	f.current = omit.From(state)
	for _, s := range f.subscribers {
		s.offer(state)
	}
	f.mu.Unlock()

	if !hasPrev {
		return model.StatePair{}, false
	}
	return model.StatePair{Prev: prev, Cur: state}, true
}

// Latest returns the most recent projected state
func (f *Feed) Latest() (model.State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Get()
}

// Subscribe returns a subscription which always holds the latest state only.
// If a state is already present it is immediately available.
func (f *Feed) Subscribe() *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &Subscription{ch: make(chan model.State, 1), f: f}
	if cur, ok := f.current.Get(); ok {
		s.ch <- cur
	}
	f.subscribers = append(f.subscribers, s)
	return s
}

func (f *Feed) unsubscribe(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subscribers {
		if sub == s {
			f.subscribers = append(f.subscribers[:i], f.subscribers[i+1:]...)
			close(s.ch)
			return
		}
	}
}

type Subscription struct {
	ch chan model.State
	f  *Feed
}

func (s *Subscription) C() <-chan model.State {
	return s.ch
}

func (s *Subscription) Cancel() {
	s.f.unsubscribe(s)
}

// offer replaces a not yet consumed state. Caller holds the feed lock.
func (s *Subscription) offer(state model.State) {
	select {
	case s.ch <- state:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- state
}
