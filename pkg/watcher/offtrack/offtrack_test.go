//nolint:funlen // ok for tests
package offtrack

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	bd "github.com/mpapenbr/iracelog-stewarding-go/testsupport/basedata"
)

func TestInsideTrackRange(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		lower float64
		upper float64
		want  bool
	}{
		{"inside", 0.5, 0.4, 0.6, true},
		{"below", 0.3, 0.4, 0.6, false},
		{"above", 0.7, 0.4, 0.6, false},
		{"wrap at start", 0.0, 0.9, 1.1, true},
		{"wrap before line", 0.95, 0.9, 1.1, true},
		{"wrap after line", 0.05, 0.9, 1.1, true},
		{"wrap outside", 0.5, 0.9, 1.1, false},
		{"negative lower", 0.98, -0.05, 0.05, true},
		{"reversed range", 1.6, 0.7, 0.2, false},
		{"reversed range inside", 0.8, 0.7, 0.2, true},
		{"lower bound", 0.25, 0.25, 0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InsideTrackRange(tt.value, tt.lower, tt.upper))
			assert.Equal(t, tt.want, InsideTrackRange(tt.value+1, tt.lower, tt.upper),
				"value shifted")
			assert.Equal(t, tt.want, InsideTrackRange(tt.value, tt.lower+1, tt.upper+1),
				"range shifted")
		})
	}
}

func run(t *testing.T, cfg Config, states ...model.State) []model.IncidentData {
	t.Helper()
	d, err := New(cfg)
	assert.NoError(t, err)
	return bd.Incidents(bd.Run(d, states...))
}

func at(ts float64, cars ...model.Car) model.State {
	return bd.State(0, ts, bd.WithCars(cars...))
}

func TestOffTrackExactLimit(t *testing.T) {
	got := run(t, DefaultConfig(),
		at(10, bd.Car(1)),
		at(11, bd.Car(1, bd.OffTrack())),
		at(12, bd.Car(1, bd.OffTrack())),
		at(13, bd.Car(1, bd.OffTrack())),
		at(14, bd.Car(1)),
		at(15, bd.Car(1)),
	)
	assert.Len(t, got, 1)
	assert.Equal(t, model.IncidentOffTrack, got[0].Type)
	assert.Equal(t, 11.0, got[0].SessionTime)
	assert.Equal(t, "1", got[0].Car.Number)
}

func TestTrackLimitsBelowLimit(t *testing.T) {
	got := run(t, DefaultConfig(),
		at(10, bd.Car(1)),
		at(11, bd.Car(1, bd.OffTrack())),
		at(12, bd.Car(1, bd.OffTrack())),
		at(12.75, bd.Car(1)),
	)
	if diff := cmp.Diff([]model.IncidentData{
		model.NewIncidentData(model.IncidentTrackLimits, bd.Car(1), 0, 11),
	}, got); diff != "" {
		t.Errorf("incidents mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsafeRejoin(t *testing.T) {
	others := []model.Car{
		bd.Car(2, bd.WithTrackPos(0.55)),
		bd.Car(3, bd.WithTrackPos(0.9)),
		bd.Car(4, bd.WithTrackPos(0.52), bd.OnPitRoad()),
		bd.Car(5, bd.WithTrackPos(0.45), bd.OffTrack()),
	}
	withOthers := func(c model.Car) []model.Car {
		return append([]model.Car{c}, others...)
	}
	got := run(t, Config{
		TimeLimit:          2,
		RejoinDistance:     100,
		ReportUnsafeRejoin: true,
	},
		at(10, withOthers(bd.Car(1, bd.WithTrackPos(0.5)))...),
		at(11, withOthers(bd.Car(1, bd.WithTrackPos(0.5), bd.OffTrack()))...),
		at(12, withOthers(bd.Car(1, bd.WithTrackPos(0.5)))...),
	)
	assert.Len(t, got, 1)
	assert.Equal(t, model.IncidentUnsafeRejoin, got[0].Type)
	assert.Equal(t, 12.0, got[0].SessionTime)
	assert.Equal(t, "near car(s) 2", got[0].Description)
}

func TestUnsafeRejoinAcrossLine(t *testing.T) {
	got := run(t, Config{TimeLimit: 2, RejoinDistance: 100, ReportUnsafeRejoin: true},
		at(10, bd.Car(1, bd.WithTrackPos(0.98)), bd.Car(2, bd.WithTrackPos(0.03))),
		at(11, bd.Car(1, bd.WithTrackPos(0.98), bd.OffTrack()),
			bd.Car(2, bd.WithTrackPos(0.03))),
		at(12, bd.Car(1, bd.WithTrackPos(0.98)), bd.Car(2, bd.WithTrackPos(0.03))),
	)
	assert.Len(t, got, 1)
	assert.Equal(t, model.IncidentUnsafeRejoin, got[0].Type)
}

func TestSuppressedChecks(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		states []model.State
	}{
		{
			name: "towed to pits",
			cfg:  DefaultConfig(),
			states: []model.State{
				at(10, bd.Car(1)),
				at(11, bd.Car(1, bd.OffTrack()), bd.Car(2, bd.WithTrackPos(0.1))),
				at(12, bd.Car(1, bd.InPitStall()), bd.Car(2, bd.WithTrackPos(0.1))),
			},
		},
		{
			name: "track limits disabled",
			cfg:  Config{TimeLimit: 2, ReportOffTrack: true},
			states: []model.State{
				at(10, bd.Car(1)),
				at(11, bd.Car(1, bd.OffTrack())),
				at(12, bd.Car(1)),
			},
		},
		{
			name: "off track disabled",
			cfg:  Config{TimeLimit: 1, ReportTrackLimits: true},
			states: []model.State{
				at(10, bd.Car(1)),
				at(11, bd.Car(1, bd.OffTrack())),
				at(13, bd.Car(1, bd.OffTrack())),
				at(14, bd.Car(1)),
			},
		},
		{
			name: "unknown track length",
			cfg:  Config{TimeLimit: 2, RejoinDistance: 100, ReportUnsafeRejoin: true},
			states: []model.State{
				bd.State(0, 10, bd.WithTrackLength(0), bd.WithCars(bd.Car(1), bd.Car(2))),
				bd.State(0, 11, bd.WithTrackLength(0),
					bd.WithCars(bd.Car(1, bd.OffTrack()), bd.Car(2))),
				bd.State(0, 12, bd.WithTrackLength(0), bd.WithCars(bd.Car(1), bd.Car(2))),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, run(t, tt.cfg, tt.states...))
		})
	}
}
