// Package timer provides per car state duration trackers used by detectors.
package timer

import (
	"errors"

	"github.com/aarondl/opt/omit"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
)

var (
	ErrMissingPredicate = errors.New("timer requires a predicate")
	ErrMissingFinished  = errors.New("cooldown timer requires a finished callback")
)

// Predicate reports whether a car is in the tracked state
type Predicate func(car model.Car) bool

// RewindPolicy controls what happens when the session time moves backwards
// (for example when a replay is scrubbed back).
type RewindPolicy int

const (
	// RewindKeep leaves running timers untouched
	RewindKeep RewindPolicy = iota
	// RewindReset drops all timers without invoking any hook
	RewindReset
)

// Entry is the timing state of one car
type Entry struct {
	Start float64
	Fired bool
}

// Hooks are invoked by CarTimer. Unset hooks are skipped.
// Events returned by hooks are collected by Update.
type Hooks struct {
	Entered  func(car model.Car, cur model.State) []watcher.Event
	Tick     func(car model.Car, cur model.State, duration float64) []watcher.Event
	Exceeded func(car model.Car, cur model.State, duration float64) []watcher.Event
	//nolint:lll // readability
	Exited func(car model.Car, cur model.State, duration float64, exceeded bool) []watcher.Event
}

// CarTimer tracks the continuous time each car spends in a state.
// The exceeded hook fires once per continuous dwell when the duration reaches
// the limit. Leaving the state removes the timer, re-entering starts a new one.
type CarTimer struct {
	inState Predicate
	limit   float64
	hooks   Hooks
	rewind  RewindPolicy
	timers  map[int]*Entry
	last    omit.Val[model.SessionClock]
}

type Option func(t *CarTimer)

func WithHooks(h Hooks) Option {
	return func(t *CarTimer) {
		t.hooks = h
	}
}

func WithRewindPolicy(p RewindPolicy) Option {
	return func(t *CarTimer) {
		t.rewind = p
	}
}

func New(inState Predicate, limit float64, opts ...Option) (*CarTimer, error) {
	if inState == nil {
		return nil, ErrMissingPredicate
	}
	ret := &CarTimer{
		inState: inState,
		limit:   limit,
		timers:  make(map[int]*Entry),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret, nil
}

func (t *CarTimer) Limit() float64 {
	return t.limit
}

// Entry returns the running timer of a car
func (t *CarTimer) Entry(carIdx int) (Entry, bool) {
	if e, ok := t.timers[carIdx]; ok {
		return *e, true
	}
	return Entry{}, false
}

func (t *CarTimer) Reset() {
	t.timers = make(map[int]*Entry)
}

// Update processes all cars of cur and returns the events produced by the hooks
func (t *CarTimer) Update(cur model.State) []watcher.Event {
	if rewound(&t.last, cur.Session) && t.rewind == RewindReset {
		t.Reset()
	}
	now := cur.Session.Time
	var ret []watcher.Event
	for _, car := range cur.Cars {
		entry, running := t.timers[car.Index]
		if !t.inState(car) {
			if running {
				duration := now - entry.Start
				if t.hooks.Exited != nil {
					ret = append(ret, t.hooks.Exited(car, cur, duration, entry.Fired)...)
				}
				delete(t.timers, car.Index)
			}
			continue
		}
		if !running {
			entry = &Entry{Start: now}
			t.timers[car.Index] = entry
			if t.hooks.Entered != nil {
				ret = append(ret, t.hooks.Entered(car, cur)...)
			}
		}
		duration := now - entry.Start
		if t.hooks.Tick != nil {
			ret = append(ret, t.hooks.Tick(car, cur, duration)...)
		}
		if !entry.Fired && duration >= t.limit {
			entry.Fired = true
			if t.hooks.Exceeded != nil {
				ret = append(ret, t.hooks.Exceeded(car, cur, duration)...)
			}
		}
	}
	return ret
}

// rewound records cur as last seen clock and reports whether it lies before
// the previously seen one
func rewound(last *omit.Val[model.SessionClock], cur model.SessionClock) bool {
	prev, ok := last.Get()
	*last = omit.From(cur)
	return ok && cur.Before(prev)
}
