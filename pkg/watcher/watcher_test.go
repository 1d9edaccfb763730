package watcher

import (
	"errors"
	"testing"

	"github.com/aarondl/opt/omit"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

func pairAt(t float64) model.StatePair {
	return model.StatePair{
		Prev: model.State{Session: model.SessionClock{Time: t - 1}},
		Cur:  model.State{Session: model.SessionClock{Time: t}},
	}
}

type failingWatcher struct {
	panics bool
}

func (f failingWatcher) Name() string { return "failing" }

func (f failingWatcher) Watch(pair model.StatePair) ([]Event, error) {
	if f.panics {
		panic("boom")
	}
	return nil, errors.New("failed")
}

func counter() Watcher {
	return Stateful("counter",
		func(pair model.StatePair, prior omit.Val[int]) ([]Event, omit.Val[int]) {
			n := prior.GetOrZero() + 1
			return []Event{MessageEvent("count", n)}, omit.From(n)
		})
}

func TestStatefulKeepsState(t *testing.T) {
	w := counter()
	for i := 1; i <= 3; i++ {
		events, err := w.Watch(pairAt(float64(i)))
		assert.NoError(t, err)
		assert.Equal(t, []Event{MessageEvent("count", i)}, events)
	}
}

func TestStatelessWatcher(t *testing.T) {
	w := Stateless("clock", func(pair model.StatePair) []Event {
		return []Event{MessageEvent("clock", pair.Cur.Session.Time)}
	})
	events, err := w.Watch(pairAt(5))
	assert.NoError(t, err)
	assert.Equal(t, "clock", w.Name())
	assert.Equal(t, []Event{MessageEvent("clock", 5.0)}, events)
}

func TestSetIsolatesFailures(t *testing.T) {
	s := NewSet(WithWatchers(
		failingWatcher{},
		counter(),
		failingWatcher{panics: true},
	))
	assert.Equal(t, []string{"failing", "counter", "failing"}, s.Names())
	events := s.Process(pairAt(1))
	assert.Equal(t, []Event{MessageEvent("count", 1)}, events)
}

func TestSetAddStartsFresh(t *testing.T) {
	s := NewSet(WithWatchers(counter()))
	s.Process(pairAt(1))
	s.Process(pairAt(2))

	s.Add(counter())
	events := s.Process(pairAt(3))
	assert.ElementsMatch(t,
		[]Event{MessageEvent("count", 3), MessageEvent("count", 1)},
		events)
}
