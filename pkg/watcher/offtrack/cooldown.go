package offtrack

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/timer"
)

const CooldownName = "offtrack-cooldown"

var ErrInvalidThresholds = errors.New("track limits threshold must be less than off track threshold")

type CooldownConfig struct {
	TrackLimitsThreshold float64 // seconds, shorter excursions are ignored
	OffTrackThreshold    float64 // seconds
	Cooldown             float64 // seconds on track before an excursion is classified
}

func DefaultCooldownConfig() CooldownConfig {
	return CooldownConfig{
		TrackLimitsThreshold: 0.5,
		OffTrackThreshold:    2,
		Cooldown:             5,
	}
}

// CooldownDetector classifies merged excursions by their longest dwell
type CooldownDetector struct {
	cfg       CooldownConfig
	timer     *timer.CooldownTimer
	timerOpts []timer.CooldownOption
	l         *log.Logger
}

type CooldownOption func(d *CooldownDetector)

func WithCooldownLogger(l *log.Logger) CooldownOption {
	return func(d *CooldownDetector) {
		d.l = l
	}
}

func WithCooldownTimerOptions(opts ...timer.CooldownOption) CooldownOption {
	return func(d *CooldownDetector) {
		d.timerOpts = append(d.timerOpts, opts...)
	}
}

func NewCooldown(cfg CooldownConfig, opts ...CooldownOption) (*CooldownDetector, error) {
	if cfg.TrackLimitsThreshold >= cfg.OffTrackThreshold {
		return nil, fmt.Errorf("%w: %v >= %v", ErrInvalidThresholds,
			cfg.TrackLimitsThreshold, cfg.OffTrackThreshold)
	}
	ret := &CooldownDetector{cfg: cfg, l: log.Default().Named("watcher.offtrack")}
	for _, opt := range opts {
		opt(ret)
	}
	t, err := timer.NewCooldown(isOffTrack, cfg.Cooldown, ret.finished, ret.timerOpts...)
	if err != nil {
		return nil, err
	}
	ret.timer = t
	return ret, nil
}

func (d *CooldownDetector) Name() string {
	return CooldownName
}

func (d *CooldownDetector) Watch(pair model.StatePair) ([]watcher.Event, error) {
	return d.timer.Update(pair.Cur), nil
}

//nolint:whitespace // editor/linter issue
func (d *CooldownDetector) finished(
	car model.Car, cur model.State, r timer.Result,
) []watcher.Event {
	d.l.Debug("excursion finished",
		log.String("car", car.Number),
		log.Float64("max", r.Max),
		log.Float64("cumulative", r.Cumulative))
	var t model.IncidentType
	switch {
	case r.Max >= d.cfg.OffTrackThreshold:
		t = model.IncidentOffTrack
	case r.Max >= d.cfg.TrackLimitsThreshold:
		t = model.IncidentTrackLimits
	default:
		return nil
	}
	return []watcher.Event{watcher.IncidentEvent(model.NewIncidentData(
		t, car, cur.Session.Num, r.CreatedAt).
		WithDescription(fmt.Sprintf("%.1fs off track in total", r.Cumulative)))}
}
