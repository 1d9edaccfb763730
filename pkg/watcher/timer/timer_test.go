//nolint:funlen // ok for tests
package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
	bd "github.com/mpapenbr/iracelog-stewarding-go/testsupport/basedata"
)

type hookCall struct {
	hook     string
	car      int
	at       float64
	duration float64
	exceeded bool
}

func offTrack(c model.Car) bool { return c.Surface == model.SurfaceOffTrack }

func recordingHooks(calls *[]hookCall, withTick bool) Hooks {
	h := Hooks{
		Entered: func(car model.Car, cur model.State) []watcher.Event {
			*calls = append(*calls, hookCall{hook: "entered", car: car.Index, at: cur.Session.Time})
			return nil
		},
		Exceeded: func(car model.Car, cur model.State, d float64) []watcher.Event {
			*calls = append(*calls, hookCall{
				hook: "exceeded", car: car.Index, at: cur.Session.Time, duration: d,
			})
			return []watcher.Event{watcher.MessageEvent("exceeded", car.Index)}
		},
		Exited: func(car model.Car, cur model.State, d float64, exceeded bool) []watcher.Event {
			*calls = append(*calls, hookCall{
				hook: "exited", car: car.Index, at: cur.Session.Time, duration: d, exceeded: exceeded,
			})
			return nil
		},
	}
	if withTick {
		h.Tick = func(car model.Car, cur model.State, d float64) []watcher.Event {
			*calls = append(*calls, hookCall{
				hook: "tick", car: car.Index, at: cur.Session.Time, duration: d,
			})
			return nil
		}
	}
	return h
}

func stateWith(t float64, cars ...model.Car) model.State {
	return bd.State(0, t, bd.WithCars(cars...))
}

func TestNewRequiresPredicate(t *testing.T) {
	_, err := New(nil, 1)
	assert.ErrorIs(t, err, ErrMissingPredicate)
}

func TestCarTimerLifecycle(t *testing.T) {
	var calls []hookCall
	ct, err := New(offTrack, 2, WithHooks(recordingHooks(&calls, true)))
	assert.NoError(t, err)

	ct.Update(stateWith(1, bd.Car(1)))
	ct.Update(stateWith(2, bd.Car(1, bd.OffTrack())))
	ct.Update(stateWith(3, bd.Car(1, bd.OffTrack())))
	events := ct.Update(stateWith(4, bd.Car(1, bd.OffTrack())))
	assert.Equal(t, []watcher.Event{watcher.MessageEvent("exceeded", 1)}, events)
	ct.Update(stateWith(5, bd.Car(1, bd.OffTrack())))
	ct.Update(stateWith(6, bd.Car(1)))

	assert.Equal(t, []hookCall{
		{hook: "entered", car: 1, at: 2},
		{hook: "tick", car: 1, at: 2, duration: 0},
		{hook: "tick", car: 1, at: 3, duration: 1},
		{hook: "tick", car: 1, at: 4, duration: 2},
		{hook: "exceeded", car: 1, at: 4, duration: 2},
		{hook: "tick", car: 1, at: 5, duration: 3},
		{hook: "exited", car: 1, at: 6, duration: 4, exceeded: true},
	}, calls)
	_, running := ct.Entry(1)
	assert.False(t, running)
}

func TestCarTimerReentryStartsFresh(t *testing.T) {
	var calls []hookCall
	ct, _ := New(offTrack, 10, WithHooks(recordingHooks(&calls, false)))
	ct.Update(stateWith(1, bd.Car(1, bd.OffTrack())))
	ct.Update(stateWith(2, bd.Car(1)))
	ct.Update(stateWith(5, bd.Car(1, bd.OffTrack())))
	e, running := ct.Entry(1)
	assert.True(t, running)
	assert.Equal(t, Entry{Start: 5}, e)
	assert.Equal(t, []hookCall{
		{hook: "entered", car: 1, at: 1},
		{hook: "exited", car: 1, at: 2, duration: 1},
		{hook: "entered", car: 1, at: 5},
	}, calls)
}

func TestCarTimerRewindPolicy(t *testing.T) {
	tests := []struct {
		name        string
		policy      RewindPolicy
		wantRunning bool
	}{
		{"keep", RewindKeep, true},
		{"reset", RewindReset, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, _ := New(func(model.Car) bool { return true }, 100,
				WithRewindPolicy(tt.policy))
			ct.Update(stateWith(10, bd.Car(1)))
			// scrubbed back, car not part of the state
			ct.Update(stateWith(5))
			_, running := ct.Entry(1)
			assert.Equal(t, tt.wantRunning, running)
		})
	}
}
