// Package major groups incident count increases of several cars into
// clusters (pile-ups) and reports them.
package major

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aarondl/opt/omit"
	"github.com/samber/lo"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
)

const Name = "major"

var ErrInvalidConfig = errors.New("invalid major incident config")

// Config controls cluster detection.
// MinCars counts distinct cars: repeated major entries of the same car
// within Window are counted once.
type Config struct {
	MajorIncrement int     // incident count increase which counts as major
	Window         float64 // seconds
	MinCars        int     // distinct cars within the window starting a cluster
}

func DefaultConfig() Config {
	return Config{MajorIncrement: 4, Window: 5, MinCars: 3}
}

// Entry is a recorded incident count increase of a car
type Entry struct {
	Car        model.Car
	SessionNum int
	Time       float64
	Delta      int
	Major      bool
	Triggered  bool
}

// State is the internal state kept between updates
type State struct {
	Entries  []Entry
	Cluster  []Entry
	Deadline omit.Val[float64]
}

type detector struct {
	cfg Config
	l   *log.Logger
}

type Option func(d *detector)

func WithLogger(l *log.Logger) Option {
	return func(d *detector) {
		d.l = l
	}
}

func New(cfg Config, opts ...Option) (watcher.Watcher, error) {
	if cfg.MajorIncrement < 1 || cfg.MinCars < 1 || cfg.Window <= 0 {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidConfig, cfg)
	}
	d := &detector{cfg: cfg, l: log.Default().Named("watcher.major")}
	for _, opt := range opts {
		opt(d)
	}
	return watcher.Stateful(Name, d.step), nil
}

//nolint:whitespace // editor/linter issue
func (d *detector) step(
	pair model.StatePair, prior omit.Val[State],
) ([]watcher.Event, omit.Val[State]) {
	st := prior.GetOrZero()
	cur := pair.Cur.Session
	st.prune(cur)

	var ret []watcher.Event
	// a cluster ends before entries of this update may start the next one
	if deadline, ok := st.Deadline.Get(); ok && cur.Time >= deadline {
		ret = append(ret, d.participants(st.Cluster)...)
		st.Cluster = nil
		st.Deadline = omit.Val[float64]{}
	}
	for _, car := range pair.Cur.Cars {
		prevCar, ok := pair.Prev.CarByIdx(car.Index)
		if !ok {
			continue
		}
		delta := car.IncidentCount - prevCar.IncidentCount
		if delta <= 0 {
			continue
		}
		st.Entries = append(st.Entries, Entry{
			Car:        car,
			SessionNum: cur.Num,
			Time:       cur.Time,
			Delta:      delta,
			Major:      delta >= d.cfg.MajorIncrement,
		})
		if st.Entries[len(st.Entries)-1].Major {
			ret = append(ret, d.cluster(&st, cur)...)
		}
	}

	st.Entries = lo.Filter(st.Entries, func(e Entry, _ int) bool {
		return e.Time > cur.Time-d.cfg.Window
	})
	return ret, omit.From(st)
}

// cluster handles the major entry appended last
func (d *detector) cluster(st *State, cur model.SessionClock) []watcher.Event {
	inWindow := lo.Filter(lo.Range(len(st.Entries)), func(i, _ int) bool {
		e := st.Entries[i]
		return e.Major && e.Time > cur.Time-d.cfg.Window
	})
	running := lo.SomeBy(inWindow, func(i int) bool { return st.Entries[i].Triggered })
	cars := lo.Uniq(lo.Map(inWindow, func(i, _ int) int { return st.Entries[i].Car.Index }))
	if !running && len(cars) < d.cfg.MinCars {
		return nil
	}
	st.Deadline = omit.From(cur.Time + d.cfg.Window)

	if running {
		last := len(st.Entries) - 1
		st.Entries[last].Triggered = true
		st.Cluster = append(st.Cluster, st.Entries[last])
		return nil
	}
	for _, i := range inWindow {
		st.Entries[i].Triggered = true
		st.Cluster = append(st.Cluster, st.Entries[i])
	}
	first := st.Cluster[0]
	d.l.Info("major incident",
		log.String("car", first.Car.Number),
		log.Int("cars", len(cars)),
		log.Float64("sessionTime", cur.Time))
	return []watcher.Event{watcher.IncidentEvent(model.NewIncidentData(
		model.IncidentMajor, first.Car, first.SessionNum, first.Time).
		WithDescription(fmt.Sprintf("%d cars involved", len(cars))))}
}

// participants reports every distinct car of a cluster once
func (d *detector) participants(cluster []Entry) []watcher.Event {
	distinct := lo.UniqBy(cluster, func(e Entry) int { return e.Car.Index })
	numbers := lo.Map(distinct, func(e Entry, _ int) string { return e.Car.Number })
	return lo.Map(distinct, func(e Entry, _ int) watcher.Event {
		return watcher.IncidentEvent(model.NewIncidentData(
			model.IncidentMajorParticipant, e.Car, e.SessionNum, e.Time).
			WithDescription("cars " + strings.Join(numbers, ", ")))
	})
}

// prune drops entries which are not part of the current timeline
func (s *State) prune(cur model.SessionClock) {
	valid := func(e Entry, _ int) bool {
		return e.SessionNum == cur.Num && e.Time <= cur.Time
	}
	s.Entries = lo.Filter(s.Entries, valid)
	s.Cluster = lo.Filter(s.Cluster, valid)
	if len(s.Cluster) == 0 {
		s.Deadline = omit.Val[float64]{}
	}
}
