package config

import (
	"github.com/spf13/pflag"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/major"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/offtrack"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher/requirement"
)

// DetectorConfig holds the settings of all detectors
type DetectorConfig struct {
	OffTrack         offtrack.Config
	UseCooldown      bool // use the cooldown variant for off track detection
	OffTrackCooldown offtrack.CooldownConfig
	Major            major.Config
	EnableMajor      bool
	MinPitStops      requirement.MinPitStopsConfig
	EnablePitStops   bool
	SessionEvents    bool
	PaceEvents       bool
	ResetOnRewind    bool

	pitLane bool
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		OffTrack:         offtrack.DefaultConfig(),
		OffTrackCooldown: offtrack.DefaultCooldownConfig(),
		Major:            major.DefaultConfig(),
		EnableMajor:      true,
		MinPitStops:      requirement.DefaultMinPitStopsConfig(),
		SessionEvents:    true,
		PaceEvents:       true,
	}
}

// AddDetectorFlags registers the detector settings on fs.
// Call ApplyDetectorFlags after parsing to resolve derived values.
func AddDetectorFlags(fs *pflag.FlagSet, cfg *DetectorConfig) {
	fs.Float64Var(&cfg.OffTrack.TimeLimit,
		"offtrack-time-limit",
		cfg.OffTrack.TimeLimit,
		"seconds off track before an Off-Track incident is reported")
	fs.Float64Var(&cfg.OffTrack.RejoinDistance,
		"rejoin-distance",
		cfg.OffTrack.RejoinDistance,
		"meters around a rejoining car checked for an unsafe rejoin")
	fs.BoolVar(&cfg.OffTrack.ReportTrackLimits,
		"report-track-limits",
		cfg.OffTrack.ReportTrackLimits,
		"report short excursions as Track Limits")
	fs.BoolVar(&cfg.OffTrack.ReportUnsafeRejoin,
		"report-unsafe-rejoin",
		cfg.OffTrack.ReportUnsafeRejoin,
		"report rejoins close to other cars")
	fs.BoolVar(&cfg.UseCooldown,
		"offtrack-cooldown",
		cfg.UseCooldown,
		"classify excursions after a cooldown on track instead of immediately")
	fs.Float64Var(&cfg.OffTrackCooldown.TrackLimitsThreshold,
		"cooldown-track-limits",
		cfg.OffTrackCooldown.TrackLimitsThreshold,
		"cooldown mode: seconds off track reported as Track Limits")
	fs.Float64Var(&cfg.OffTrackCooldown.OffTrackThreshold,
		"cooldown-offtrack",
		cfg.OffTrackCooldown.OffTrackThreshold,
		"cooldown mode: seconds off track reported as Off-Track")
	fs.Float64Var(&cfg.OffTrackCooldown.Cooldown,
		"cooldown-duration",
		cfg.OffTrackCooldown.Cooldown,
		"cooldown mode: seconds on track before an excursion is classified")
	fs.BoolVar(&cfg.EnableMajor,
		"enable-major",
		cfg.EnableMajor,
		"detect major incidents involving multiple cars")
	fs.IntVar(&cfg.Major.MajorIncrement,
		"major-increment",
		cfg.Major.MajorIncrement,
		"incident count increase considered major")
	fs.Float64Var(&cfg.Major.Window,
		"major-window",
		cfg.Major.Window,
		"seconds within which major incidents are clustered")
	fs.IntVar(&cfg.Major.MinCars,
		"major-min-cars",
		cfg.Major.MinCars,
		"number of cars needed for a major incident")
	fs.BoolVar(&cfg.EnablePitStops,
		"enable-pit-stops",
		cfg.EnablePitStops,
		"validate the minimum number of pit stops at the end of the race")
	fs.IntVar(&cfg.MinPitStops.MinStops,
		"min-pit-stops",
		cfg.MinPitStops.MinStops,
		"minimum number of pit stops")
	fs.Float64Var(&cfg.MinPitStops.MinDuration,
		"min-pit-duration",
		cfg.MinPitStops.MinDuration,
		"seconds a pit stop must last to be counted")
	fs.BoolVar(&cfg.pitLane,
		"pit-lane-counts",
		cfg.MinPitStops.Mode == requirement.PitLane,
		"count the time on pit road instead of the time in the pit stall")
	fs.BoolVar(&cfg.ResetOnRewind,
		"reset-timers-on-rewind",
		cfg.ResetOnRewind,
		"drop running timers when the session time moves backwards")
}

// ApplyDetectorFlags resolves values which are not stored directly by a flag
func ApplyDetectorFlags(cfg *DetectorConfig) {
	if cfg.pitLane {
		cfg.MinPitStops.Mode = requirement.PitLane
	} else {
		cfg.MinPitStops.Mode = requirement.PitBox
	}
}
