package requirement

import (
	"fmt"

	"github.com/aarondl/opt/omit"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/timer"
)

type PitMode int

const (
	// PitBox counts time spent in the pit stall
	PitBox PitMode = iota
	// PitLane counts time spent anywhere on pit road
	PitLane
)

type MinPitStopsConfig struct {
	MinStops    int
	MinDuration float64 // seconds a stop must last to be counted
	Mode        PitMode
	ValidateOn  Marker
	ReportIn    []model.SessionType
}

func DefaultMinPitStopsConfig() MinPitStopsConfig {
	return MinPitStopsConfig{
		MinStops:    1,
		MinDuration: 5,
		Mode:        PitBox,
		ValidateOn:  RaceEnd,
		ReportIn:    []model.SessionType{model.SessionTypeRace},
	}
}

// MinPitStops requires every car to complete a minimum number of stops
type MinPitStops struct {
	cfg     MinPitStopsConfig
	timer   *timer.CarTimer
	stops   map[int]int
	session omit.Val[int]
}

func NewMinPitStops(cfg MinPitStopsConfig, opts ...timer.Option) (*MinPitStops, error) {
	ret := &MinPitStops{cfg: cfg, stops: make(map[int]int)}
	inState := func(c model.Car) bool { return c.Surface == model.SurfaceInPitStall }
	if cfg.Mode == PitLane {
		inState = func(c model.Car) bool { return c.OnPitRoad }
	}
	t, err := timer.New(inState, cfg.MinDuration,
		append([]timer.Option{timer.WithHooks(timer.Hooks{
			Exceeded: func(car model.Car, _ model.State, _ float64) []watcher.Event {
				ret.stops[car.Index]++
				return nil
			},
		})}, opts...)...)
	if err != nil {
		return nil, err
	}
	ret.timer = t
	return ret, nil
}

func (r *MinPitStops) Name() string {
	return "min-pit-stops"
}

func (r *MinPitStops) ValidateOn() Marker {
	return r.cfg.ValidateOn
}

func (r *MinPitStops) ReportIn() []model.SessionType {
	return r.cfg.ReportIn
}

// Stops returns the number of completed stops of a car
func (r *MinPitStops) Stops(carIdx int) int {
	return r.stops[carIdx]
}

func (r *MinPitStops) Track(pair model.StatePair) {
	if num, ok := r.session.Get(); ok && num != pair.Cur.Session.Num {
		r.stops = make(map[int]int)
		r.timer.Reset()
	}
	r.session = omit.From(pair.Cur.Session.Num)
	r.timer.Update(pair.Cur)
}

//nolint:whitespace // editor/linter issue
func (r *MinPitStops) Check(
	car model.Car, cur model.State,
) omit.Val[model.IncidentData] {
	if car.IsPaceCar || car.Lap < 0 {
		return omit.Val[model.IncidentData]{}
	}
	stops := r.stops[car.Index]
	if stops >= r.cfg.MinStops {
		return omit.Val[model.IncidentData]{}
	}
	return omit.From(model.NewIncidentData(
		model.IncidentRequirementViolated, car, cur.Session.Num, cur.Session.Time).
		WithDescription(fmt.Sprintf("%d of %d pit stops", stops, r.cfg.MinStops)))
}
