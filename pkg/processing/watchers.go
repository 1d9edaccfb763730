package processing

import (
	"fmt"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/config"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/major"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/offtrack"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/requirement"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/session"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/timer"
)

// NewWatcherSet creates the detectors enabled in cfg.
// Invalid detector settings are returned as error.
func NewWatcherSet(cfg config.DetectorConfig, l *log.Logger) (*watcher.Set, error) {
	policy := timer.RewindKeep
	if cfg.ResetOnRewind {
		policy = timer.RewindReset
	}
	var watchers []watcher.Watcher
	if cfg.SessionEvents {
		watchers = append(watchers, session.NewSessionWatcher())
	}
	if cfg.PaceEvents {
		watchers = append(watchers, session.NewPaceWatcher())
	}

	if cfg.UseCooldown {
		w, err := offtrack.NewCooldown(cfg.OffTrackCooldown,
			offtrack.WithCooldownTimerOptions(timer.WithCooldownRewindPolicy(policy)),
			offtrack.WithCooldownLogger(l.Named("offtrack")))
		if err != nil {
			return nil, fmt.Errorf("offtrack cooldown: %w", err)
		}
		watchers = append(watchers, w)
	} else {
		w, err := offtrack.New(cfg.OffTrack,
			offtrack.WithTimerOptions(timer.WithRewindPolicy(policy)),
			offtrack.WithLogger(l.Named("offtrack")))
		if err != nil {
			return nil, fmt.Errorf("offtrack: %w", err)
		}
		watchers = append(watchers, w)
	}

	if cfg.EnableMajor {
		w, err := major.New(cfg.Major, major.WithLogger(l.Named("major")))
		if err != nil {
			return nil, fmt.Errorf("major: %w", err)
		}
		watchers = append(watchers, w)
	}

	if cfg.EnablePitStops {
		r, err := requirement.NewMinPitStops(cfg.MinPitStops, timer.WithRewindPolicy(policy))
		if err != nil {
			return nil, fmt.Errorf("pit stops: %w", err)
		}
		watchers = append(watchers, requirement.NewValidator(
			requirement.WithRequirements(r),
			requirement.WithLogger(l.Named("requirement"))))
	}

	return watcher.NewSet(watcher.WithLogger(l), watcher.WithWatchers(watchers...)), nil
}
