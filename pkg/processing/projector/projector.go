package projector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

var ErrInvalidTrackLength = errors.New("invalid track length")

var (
	metersPerKm   = decimal.NewFromInt(1000)
	metersPerMile = decimal.RequireFromString("1609.344")
)

// Projector merges roster and telemetry snapshots into a model.State.
// It keeps no state between calls.
type Projector struct {
	l *log.Logger
}

type Option func(p *Projector)

func WithLogger(l *log.Logger) Option {
	return func(p *Projector) {
		p.l = l
	}
}

func New(opts ...Option) *Projector {
	ret := &Projector{l: log.Default().Named("projector")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Project creates the application state for the given snapshots.
// Cars are taken from the roster, telemetry only cars are ignored.
//
//nolint:whitespace // editor/linter issue
func (p *Projector) Project(
	roster *model.RosterSnapshot,
	telemetry *model.TelemetrySnapshot,
) model.State {
	base := model.State{}
	if telemetry != nil {
		base.Session = model.SessionClock{
			Num:  telemetry.SessionNum,
			Time: telemetry.SessionTime,
		}
		base.Replay = model.ReplayClock{
			Frame:       telemetry.ReplayFrameNum,
			Speed:       telemetry.ReplayPlaySpeed,
			SessionNum:  telemetry.ReplaySessionNum,
			SessionTime: telemetry.ReplaySessionTime,
			CamCarIdx:   telemetry.CamCarIdx,
		}
		base.SessionState = model.SessionState(telemetry.SessionState)
		base.Flags = telemetry.SessionFlags
	}
	if roster == nil {
		return model.NewState(base, nil)
	}

	base.SessionType = sessionType(roster, base.Session.Num)
	if l, err := ParseTrackLength(roster.TrackLength); err != nil {
		p.l.Warn("could not parse track length",
			log.String("value", roster.TrackLength), log.ErrorField(err))
	} else {
		base.TrackLength = l
	}

	cars := make([]model.Car, 0, len(roster.Drivers))
	for i := range roster.Drivers {
		cars = append(cars, projectCar(&roster.Drivers[i], telemetry))
	}
	return model.NewState(base, cars)
}

func projectCar(d *model.DriverInfo, t *model.TelemetrySnapshot) model.Car {
	ret := model.Car{
		Index:         d.CarIdx,
		Number:        d.CarNumber,
		TeamName:      d.TeamName,
		DriverName:    d.UserName,
		IncidentCount: d.TeamIncidentCount,
		IsAI:          d.IsAI,
		IsPaceCar:     d.IsPaceCar,
		Lap:           -1,
		TrackPos:      -1,
		Surface:       model.SurfaceNotInWorld,
		PaceRow:       -1,
		PaceLine:      -1,
	}
	if t == nil {
		return ret
	}
	idx := d.CarIdx
	ret.Lap = valueAt(t.CarIdxLap, idx, -1)
	ret.TrackPos = valueAt(t.CarIdxLapDistPct, idx, -1)
	ret.Surface = model.TrackSurface(valueAt(t.CarIdxTrackSurf, idx,
		int(model.SurfaceNotInWorld)))
	ret.OnPitRoad = valueAt(t.CarIdxOnPitRoad, idx, false)
	ret.PaceRow = valueAt(t.CarIdxPaceRow, idx, -1)
	ret.PaceLine = valueAt(t.CarIdxPaceLine, idx, -1)
	ret.Flags = valueAt(t.CarIdxFlags, idx, 0)
	return ret
}

func valueAt[E any](data []E, idx int, def E) E {
	if idx < 0 || idx >= len(data) {
		return def
	}
	return data[idx]
}

func sessionType(roster *model.RosterSnapshot, num int) model.SessionType {
	for _, s := range roster.Sessions {
		if s.Num != num {
			continue
		}
		t := strings.ToLower(s.Type)
		switch {
		case strings.Contains(t, "race"):
			return model.SessionTypeRace
		case strings.Contains(t, "qualify"):
			return model.SessionTypeQualify
		case strings.Contains(t, "practice"), strings.Contains(t, "warmup"):
			return model.SessionTypePractice
		}
	}
	return model.SessionTypeUnknown
}

// ParseTrackLength converts a display value like "5.89 km" or "2.5 mi" into meters.
// Units other than km are taken as miles.
func ParseTrackLength(s string) (float64, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTrackLength, s)
	}
	v, err := decimal.NewFromString(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTrackLength, s)
	}
	if strings.EqualFold(parts[1], "km") {
		return v.Mul(metersPerKm).InexactFloat64(), nil
	}
	return v.Mul(metersPerMile).InexactFloat64(), nil
}
