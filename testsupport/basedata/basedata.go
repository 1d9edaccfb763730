// Package basedata provides builders for application states used in tests.
package basedata

import (
	"strconv"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
)

const TrackLength = 1000.0 // meters

type (
	CarOption   func(c *model.Car)
	StateOption func(s *model.State)
)

func WithSurface(s model.TrackSurface) CarOption {
	return func(c *model.Car) {
		c.Surface = s
	}
}

func OffTrack() CarOption {
	return WithSurface(model.SurfaceOffTrack)
}

func InPitStall() CarOption {
	return func(c *model.Car) {
		c.Surface = model.SurfaceInPitStall
		c.OnPitRoad = true
	}
}

func OnPitRoad() CarOption {
	return func(c *model.Car) {
		c.Surface = model.SurfaceApproachingPits
		c.OnPitRoad = true
	}
}

func WithTrackPos(p float64) CarOption {
	return func(c *model.Car) {
		c.TrackPos = p
	}
}

func WithIncidents(n int) CarOption {
	return func(c *model.Car) {
		c.IncidentCount = n
	}
}

func WithPace(row, line int) CarOption {
	return func(c *model.Car) {
		c.PaceRow = row
		c.PaceLine = line
	}
}

func PaceCar() CarOption {
	return func(c *model.Car) {
		c.IsPaceCar = true
	}
}

// Car creates an on track car with car number equal to its index
func Car(idx int, opts ...CarOption) model.Car {
	ret := model.Car{
		Index:      idx,
		Number:     strconv.Itoa(idx),
		TeamName:   "Team " + strconv.Itoa(idx),
		DriverName: "Driver " + strconv.Itoa(idx),
		Lap:        1,
		TrackPos:   0.1 * float64(idx),
		Surface:    model.SurfaceOnTrack,
		PaceRow:    -1,
		PaceLine:   -1,
	}
	for _, opt := range opts {
		opt(&ret)
	}
	return ret
}

func WithSessionType(t model.SessionType) StateOption {
	return func(s *model.State) {
		s.SessionType = t
	}
}

func WithSessionState(st model.SessionState) StateOption {
	return func(s *model.State) {
		s.SessionState = st
	}
}

func WithTrackLength(l float64) StateOption {
	return func(s *model.State) {
		s.TrackLength = l
	}
}

func WithCars(cars ...model.Car) StateOption {
	return func(s *model.State) {
		s.Cars = cars
	}
}

// State creates a racing state of a race session
func State(sessionNum int, sessionTime float64, opts ...StateOption) model.State {
	base := model.State{
		Session:      model.SessionClock{Num: sessionNum, Time: sessionTime},
		SessionType:  model.SessionTypeRace,
		SessionState: model.SessionStateRacing,
		TrackLength:  TrackLength,
	}
	for _, opt := range opts {
		opt(&base)
	}
	return model.NewState(base, base.Cars)
}

// Run feeds consecutive pairs of states to w and collects all events
func Run(w watcher.Watcher, states ...model.State) []watcher.Event {
	var ret []watcher.Event
	for i := 1; i < len(states); i++ {
		events, err := w.Watch(model.StatePair{Prev: states[i-1], Cur: states[i]})
		if err != nil {
			panic(err)
		}
		ret = append(ret, events...)
	}
	return ret
}

// Incidents returns the incident payloads of events
func Incidents(events []watcher.Event) []model.IncidentData {
	var ret []model.IncidentData
	for _, e := range events {
		if e.Kind == watcher.EventIncident {
			ret = append(ret, e.Incident)
		}
	}
	return ret
}
