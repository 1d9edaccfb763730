// Package offtrack detects cars leaving the track and rejoining it.
package offtrack

import (
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/timer"
)

const Name = "offtrack"

type Config struct {
	TimeLimit          float64 // seconds off track before an Off-Track is reported
	RejoinDistance     float64 // meters around a rejoining car
	ReportOffTrack     bool
	ReportTrackLimits  bool
	ReportUnsafeRejoin bool
}

func DefaultConfig() Config {
	return Config{
		TimeLimit:          2,
		RejoinDistance:     100,
		ReportOffTrack:     true,
		ReportTrackLimits:  true,
		ReportUnsafeRejoin: true,
	}
}

// Detector reports Off-Track, Track Limits and Unsafe Rejoin incidents
type Detector struct {
	cfg       Config
	timer     *timer.CarTimer
	timerOpts []timer.Option
	l         *log.Logger
}

type Option func(d *Detector)

func WithLogger(l *log.Logger) Option {
	return func(d *Detector) {
		d.l = l
	}
}

// WithTimerOptions passes options (for example the rewind policy) to the
// underlying timer
func WithTimerOptions(opts ...timer.Option) Option {
	return func(d *Detector) {
		d.timerOpts = append(d.timerOpts, opts...)
	}
}

func New(cfg Config, opts ...Option) (*Detector, error) {
	ret := &Detector{cfg: cfg, l: log.Default().Named("watcher.offtrack")}
	for _, opt := range opts {
		opt(ret)
	}
	t, err := timer.New(isOffTrack, cfg.TimeLimit,
		append([]timer.Option{
			timer.WithHooks(timer.Hooks{
				Exceeded: ret.exceeded,
				Exited:   ret.exited,
			}),
		}, ret.timerOpts...)...)
	if err != nil {
		return nil, err
	}
	ret.timer = t
	return ret, nil
}

func (d *Detector) Name() string {
	return Name
}

func (d *Detector) Watch(pair model.StatePair) ([]watcher.Event, error) {
	return d.timer.Update(pair.Cur), nil
}

func isOffTrack(car model.Car) bool {
	return car.Surface == model.SurfaceOffTrack
}

//nolint:whitespace // editor/linter issue
func (d *Detector) exceeded(
	car model.Car, cur model.State, _ float64,
) []watcher.Event {
	if !d.cfg.ReportOffTrack {
		return nil
	}
	d.l.Debug("car off track",
		log.String("car", car.Number),
		log.Float64("sessionTime", cur.Session.Time))
	return []watcher.Event{watcher.IncidentEvent(model.NewIncidentData(
		model.IncidentOffTrack, car, cur.Session.Num, cur.Session.Time-d.cfg.TimeLimit))}
}

//nolint:whitespace // editor/linter issue
func (d *Detector) exited(
	car model.Car, cur model.State, duration float64, exceeded bool,
) []watcher.Event {
	if car.Surface != model.SurfaceOnTrack {
		return nil
	}
	var ret []watcher.Event
	if !exceeded && d.cfg.ReportTrackLimits {
		ret = append(ret, watcher.IncidentEvent(model.NewIncidentData(
			model.IncidentTrackLimits, car, cur.Session.Num, cur.Session.Time-duration)))
	}
	if d.cfg.ReportUnsafeRejoin {
		if nearby := d.nearbyCars(car, cur); len(nearby) > 0 {
			ret = append(ret, watcher.IncidentEvent(model.NewIncidentData(
				model.IncidentUnsafeRejoin, car, cur.Session.Num, cur.Session.Time).
				WithDescription("near car(s) "+strings.Join(nearby, ", "))))
		}
	}
	return ret
}

// nearbyCars returns the numbers of cars on track within the rejoin distance
func (d *Detector) nearbyCars(car model.Car, cur model.State) []string {
	if cur.TrackLength <= 0 {
		d.l.Warn("no track length, skipping rejoin check", log.String("car", car.Number))
		return nil
	}
	window := d.cfg.RejoinDistance / cur.TrackLength
	lower, upper := car.TrackPos-window, car.TrackPos+window
	others := lo.Filter(cur.Cars, func(other model.Car, _ int) bool {
		return other.Index != car.Index &&
			other.Surface == model.SurfaceOnTrack &&
			!other.OnPitRoad &&
			InsideTrackRange(other.TrackPos, lower, upper)
	})
	return lo.Map(others, func(other model.Car, _ int) string { return other.Number })
}

// InsideTrackRange reports whether the track position value lies within
// [lower, upper] on the circular lap. All values are lap fractions.
func InsideTrackRange(value, lower, upper float64) bool {
	value -= math.Floor(value)
	lower -= math.Floor(lower)
	upper -= math.Floor(upper)
	if upper < lower {
		upper += 1
	}
	return (value >= lower && value <= upper) ||
		(value+1 >= lower && value+1 <= upper)
}
