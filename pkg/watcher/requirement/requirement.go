// Package requirement validates per car rules at session boundaries.
package requirement

import (
	"slices"

	"github.com/aarondl/opt/omit"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
)

const Name = "requirement"

// Requirement is a rule checked for every car at session boundaries
type Requirement interface {
	Name() string
	// ValidateOn are the markers on which Check is called
	ValidateOn() Marker
	// ReportIn are the session types in which violations are reported.
	// Violations in other sessions are only logged.
	ReportIn() []model.SessionType
	// Track is called on every update before any check
	Track(pair model.StatePair)
	// Check returns an incident if car violates the requirement
	Check(car model.Car, cur model.State) omit.Val[model.IncidentData]
}

type Validator struct {
	requirements []Requirement
	l            *log.Logger
}

type Option func(v *Validator)

func WithLogger(l *log.Logger) Option {
	return func(v *Validator) {
		v.l = l
	}
}

func WithRequirements(r ...Requirement) Option {
	return func(v *Validator) {
		v.requirements = append(v.requirements, r...)
	}
}

func NewValidator(opts ...Option) *Validator {
	ret := &Validator{l: log.Default().Named("watcher.requirement")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (v *Validator) Name() string {
	return Name
}

// Watch validates end markers before the requirements track the update so
// that a session change does not discard the finished session's data.
// Start markers are validated afterwards.
func (v *Validator) Watch(pair model.StatePair) ([]watcher.Event, error) {
	fired := Markers(pair)
	if fired != 0 {
		v.l.Debug("session boundary",
			log.String("markers", fired.String()),
			log.Int("sessionNum", pair.Cur.Session.Num))
	}
	ret := v.validate(fired&endMarkers, pair.Cur)
	for _, r := range v.requirements {
		r.Track(pair)
	}
	ret = append(ret, v.validate(fired&^endMarkers, pair.Cur)...)
	return ret, nil
}

func (v *Validator) validate(fired Marker, cur model.State) []watcher.Event {
	if fired == 0 {
		return nil
	}
	var ret []watcher.Event
	for _, r := range v.requirements {
		for _, m := range (r.ValidateOn() & fired).Split() {
			report := slices.Contains(r.ReportIn(), m.SessionType())
			for _, car := range cur.Cars {
				data, violated := r.Check(car, cur).Get()
				if !violated {
					continue
				}
				if !report {
					v.l.Info("requirement violated (not reported)",
						log.String("requirement", r.Name()),
						log.String("car", car.Number),
						log.String("marker", m.String()))
					continue
				}
				ret = append(ret, watcher.IncidentEvent(data))
			}
		}
	}
	return ret
}
