// Package watcher contains the contract for detectors which compare two
// consecutive application states and emit events.
package watcher

import (
	"fmt"

	"github.com/aarondl/opt/omit"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

type EventKind int

const (
	// EventIncident is stored in the incident store
	EventIncident EventKind = iota
	// EventMessage is sent to the outbox on its channel
	EventMessage
)

type Event struct {
	Kind     EventKind
	Channel  string
	Incident model.IncidentData
	Data     any
}

func IncidentEvent(data model.IncidentData) Event {
	return Event{Kind: EventIncident, Incident: data}
}

func MessageEvent(channel string, data any) Event {
	return Event{Kind: EventMessage, Channel: channel, Data: data}
}

// Watcher is implemented by every detector.
// Watch is called once per state pair, never concurrently.
type Watcher interface {
	Name() string
	Watch(pair model.StatePair) ([]Event, error)
}

type (
	StatelessFunc       func(pair model.StatePair) []Event
	StatefulFunc[S any] func(pair model.StatePair, prior omit.Val[S]) ([]Event, omit.Val[S])
)

type stateful[S any] struct {
	name  string
	fn    StatefulFunc[S]
	state omit.Val[S]
}

// Stateful creates a watcher which keeps the internal state between calls.
// The first call receives an unset state.
func Stateful[S any](name string, fn StatefulFunc[S]) Watcher {
	return &stateful[S]{name: name, fn: fn}
}

// Stateless lifts fn into a stateful watcher whose state is discarded
func Stateless(name string, fn StatelessFunc) Watcher {
	return Stateful(name,
		func(pair model.StatePair, _ omit.Val[struct{}]) ([]Event, omit.Val[struct{}]) {
			return fn(pair), omit.Val[struct{}]{}
		})
}

func (w *stateful[S]) Name() string {
	return w.name
}

func (w *stateful[S]) Watch(pair model.StatePair) ([]Event, error) {
	events, next := w.fn(pair, w.state)
	w.state = next
	return events, nil
}

// Set runs a list of watchers in registration order and merges their output.
type Set struct {
	watchers []Watcher
	l        *log.Logger
}

type Option func(s *Set)

func WithLogger(l *log.Logger) Option {
	return func(s *Set) {
		s.l = l
	}
}

func WithWatchers(w ...Watcher) Option {
	return func(s *Set) {
		s.watchers = append(s.watchers, w...)
	}
}

func NewSet(opts ...Option) *Set {
	ret := &Set{l: log.Default().Named("watcher")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Add registers w. It will see the next processed pair as its first one.
func (s *Set) Add(w Watcher) {
	s.watchers = append(s.watchers, w)
}

func (s *Set) Names() []string {
	ret := make([]string, len(s.watchers))
	for i, w := range s.watchers {
		ret[i] = w.Name()
	}
	return ret
}

// Process feeds pair to every watcher.
// A failing watcher is logged and skipped, the others still run.
func (s *Set) Process(pair model.StatePair) []Event {
	var ret []Event
	for _, w := range s.watchers {
		events, err := s.safeWatch(w, pair)
		if err != nil {
			s.l.Error("watcher failed",
				log.String("watcher", w.Name()),
				log.Int("sessionNum", pair.Cur.Session.Num),
				log.Float64("sessionTime", pair.Cur.Session.Time),
				log.ErrorField(err))
			continue
		}
		ret = append(ret, events...)
	}
	return ret
}

func (s *Set) safeWatch(w Watcher, pair model.StatePair) (events []Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("panic in watcher %s: %v", w.Name(), r)
		}
	}()
	return w.Watch(pair)
}
