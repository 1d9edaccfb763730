//nolint:funlen // ok for tests
package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	bd "github.com/mpapenbr/iracelog-stewarding-go/testsupport/basedata"
)

// stint builds a session where car 1 stops in the pit box from 10s to 20s
// and car 2 never stops. The last state finishes the session.
func stint(st model.SessionType, extra ...model.Car) []model.State {
	state := func(ts float64, ss model.SessionState, car1 model.Car) model.State {
		cars := append([]model.Car{car1, bd.Car(2)}, extra...)
		return bd.State(0, ts, bd.WithSessionType(st), bd.WithSessionState(ss),
			bd.WithCars(cars...))
	}
	racing := model.SessionStateRacing
	return []model.State{
		state(5, racing, bd.Car(1)),
		state(10, racing, bd.Car(1, bd.InPitStall())),
		state(15, racing, bd.Car(1, bd.InPitStall())),
		state(20, racing, bd.Car(1)),
		state(100, model.SessionStateCheckered, bd.Car(1)),
	}
}

func newValidator(t *testing.T, cfg MinPitStopsConfig) (*Validator, *MinPitStops) {
	t.Helper()
	r, err := NewMinPitStops(cfg)
	assert.NoError(t, err)
	return NewValidator(WithRequirements(r)), r
}

func TestMinPitStopsRace(t *testing.T) {
	v, r := newValidator(t, DefaultMinPitStopsConfig())
	got := bd.Incidents(bd.Run(v, stint(model.SessionTypeRace, bd.Car(0, bd.PaceCar()))...))
	assert.Equal(t, 1, r.Stops(1))
	assert.Equal(t, 0, r.Stops(2))
	assert.Len(t, got, 1)
	assert.Equal(t, model.IncidentRequirementViolated, got[0].Type)
	assert.Equal(t, "2", got[0].Car.Number)
	assert.Equal(t, "0 of 1 pit stops", got[0].Description)
	assert.Equal(t, 100.0, got[0].SessionTime)
}

func TestMinPitStopsNotReported(t *testing.T) {
	tests := []struct {
		name string
		st   model.SessionType
		cfg  func(c *MinPitStopsConfig)
	}{
		{
			name: "not validated in practice",
			st:   model.SessionTypePractice,
			cfg:  func(c *MinPitStopsConfig) {},
		},
		{
			name: "validated but not reported in practice",
			st:   model.SessionTypePractice,
			cfg:  func(c *MinPitStopsConfig) { c.ValidateOn = PracticeEnd | RaceEnd },
		},
		{
			name: "no stops required",
			st:   model.SessionTypeRace,
			cfg: func(c *MinPitStopsConfig) {
				c.MinStops = 0
				c.Mode = PitLane
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMinPitStopsConfig()
			tt.cfg(&cfg)
			v, _ := newValidator(t, cfg)
			assert.Empty(t, bd.Incidents(bd.Run(v, stint(tt.st)...)))
		})
	}
}

func TestMinPitStopsPitLane(t *testing.T) {
	cfg := DefaultMinPitStopsConfig()
	cfg.Mode = PitLane
	cfg.MinDuration = 3
	_, r := newValidator(t, cfg)
	states := []model.State{
		bd.State(0, 1, bd.WithCars(bd.Car(1))),
		bd.State(0, 2, bd.WithCars(bd.Car(1, bd.OnPitRoad()))),
		bd.State(0, 4, bd.WithCars(bd.Car(1, bd.InPitStall()))),
		bd.State(0, 6, bd.WithCars(bd.Car(1, bd.OnPitRoad()))),
		bd.State(0, 7, bd.WithCars(bd.Car(1))),
	}
	for i := 1; i < len(states); i++ {
		r.Track(model.StatePair{Prev: states[i-1], Cur: states[i]})
	}
	assert.Equal(t, 1, r.Stops(1))

	// next session starts from scratch
	next := bd.State(1, 0, bd.WithCars(bd.Car(1)))
	r.Track(model.StatePair{Prev: states[len(states)-1], Cur: next})
	assert.Equal(t, 0, r.Stops(1))
}

func TestEndMarkerValidatedBeforeSessionChange(t *testing.T) {
	cfg := DefaultMinPitStopsConfig()
	cfg.MinStops = 2
	v, _ := newValidator(t, cfg)
	states := stint(model.SessionTypeRace)
	// race continues into the next session without a checkered state
	states[len(states)-1] = bd.State(1, 0,
		bd.WithSessionType(model.SessionTypeRace), bd.WithCars(bd.Car(1), bd.Car(2)))
	got := bd.Incidents(bd.Run(v, states...))
	assert.Len(t, got, 2)
	assert.Equal(t, "1 of 2 pit stops", got[0].Description)
	assert.Equal(t, "0 of 2 pit stops", got[1].Description)
}
