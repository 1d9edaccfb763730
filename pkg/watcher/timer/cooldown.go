package timer

import (
	"github.com/aarondl/opt/omit"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
)

// Result summarizes all dwells of a car until the cooldown elapsed
type Result struct {
	CreatedAt  float64 // start of the first dwell
	Max        float64 // longest continuous dwell
	Cumulative float64 // sum of all dwells
}

type FinishedFunc func(car model.Car, cur model.State, r Result) []watcher.Event

// CooldownEntry is the state of one car.
// Stop is set while the car is outside the tracked state (cooldown phase).
type CooldownEntry struct {
	CreatedAt  float64
	Start      float64
	Stop       omit.Val[float64]
	Max        float64
	Cumulative float64
}

// CooldownTimer accumulates the time a car spends in a state across
// interrupted dwells. The result is reported once the car stayed outside the
// state for the cooldown period.
type CooldownTimer struct {
	inState  Predicate
	cooldown float64
	finished FinishedFunc
	rewind   RewindPolicy
	entries  map[int]*CooldownEntry
	last     omit.Val[model.SessionClock]
}

type CooldownOption func(t *CooldownTimer)

func WithCooldownRewindPolicy(p RewindPolicy) CooldownOption {
	return func(t *CooldownTimer) {
		t.rewind = p
	}
}

//nolint:whitespace // editor/linter issue
func NewCooldown(
	inState Predicate,
	cooldown float64,
	finished FinishedFunc,
	opts ...CooldownOption,
) (*CooldownTimer, error) {
	if inState == nil {
		return nil, ErrMissingPredicate
	}
	if finished == nil {
		return nil, ErrMissingFinished
	}
	ret := &CooldownTimer{
		inState:  inState,
		cooldown: cooldown,
		finished: finished,
		entries:  make(map[int]*CooldownEntry),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret, nil
}

func (t *CooldownTimer) Entry(carIdx int) (CooldownEntry, bool) {
	if e, ok := t.entries[carIdx]; ok {
		return *e, true
	}
	return CooldownEntry{}, false
}

func (t *CooldownTimer) Reset() {
	t.entries = make(map[int]*CooldownEntry)
}

func (t *CooldownTimer) Update(cur model.State) []watcher.Event {
	if rewound(&t.last, cur.Session) && t.rewind == RewindReset {
		t.Reset()
	}
	now := cur.Session.Time
	var ret []watcher.Event
	for _, car := range cur.Cars {
		entry, known := t.entries[car.Index]
		if t.inState(car) {
			switch {
			case !known:
				t.entries[car.Index] = &CooldownEntry{CreatedAt: now, Start: now}
			case entry.Stop.IsValue():
				// back in state before the cooldown elapsed
				entry.Start = now
				entry.Stop = omit.Val[float64]{}
			}
			continue
		}
		if !known {
			continue
		}
		if !entry.Stop.IsValue() {
			dwell := now - entry.Start
			entry.Cumulative += dwell
			entry.Max = max(entry.Max, dwell)
			entry.Stop = omit.From(now)
		}
		if stop := entry.Stop.GetOrZero(); now >= stop+t.cooldown {
			delete(t.entries, car.Index)
			ret = append(ret, t.finished(car, cur, Result{
				CreatedAt:  entry.CreatedAt,
				Max:        entry.Max,
				Cumulative: entry.Cumulative,
			})...)
		}
	}
	return ret
}
