package offtrack

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	bd "github.com/mpapenbr/iracelog-stewarding-go/testsupport/basedata"
)

func TestNewCooldownThresholds(t *testing.T) {
	_, err := NewCooldown(CooldownConfig{
		TrackLimitsThreshold: 2, OffTrackThreshold: 2, Cooldown: 5,
	})
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

func TestCooldownClassification(t *testing.T) {
	cfg := CooldownConfig{TrackLimitsThreshold: 1, OffTrackThreshold: 2, Cooldown: 10}
	tests := []struct {
		name   string
		states []model.State
		want   []model.IncidentType
	}{
		{
			name: "flicker classified by maximum",
			states: []model.State{
				at(99, bd.Car(1)),
				at(100, bd.Car(1, bd.OffTrack())),
				at(101.5, bd.Car(1)),
				at(104.5, bd.Car(1, bd.OffTrack())),
				at(106, bd.Car(1)),
				at(116, bd.Car(1)),
			},
			want: []model.IncidentType{model.IncidentTrackLimits},
		},
		{
			name: "long excursion",
			states: []model.State{
				at(99, bd.Car(1)),
				at(100, bd.Car(1, bd.OffTrack())),
				at(103, bd.Car(1)),
				at(113, bd.Car(1)),
			},
			want: []model.IncidentType{model.IncidentOffTrack},
		},
		{
			name: "short excursion ignored",
			states: []model.State{
				at(99, bd.Car(1)),
				at(100, bd.Car(1, bd.OffTrack())),
				at(100.5, bd.Car(1)),
				at(120, bd.Car(1)),
			},
		},
		{
			name: "cooldown not elapsed",
			states: []model.State{
				at(99, bd.Car(1)),
				at(100, bd.Car(1, bd.OffTrack())),
				at(103, bd.Car(1)),
				at(112, bd.Car(1)),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewCooldown(cfg)
			assert.NoError(t, err)
			got := bd.Incidents(bd.Run(d, tt.states...))
			assert.Len(t, got, len(tt.want))
			for i, inc := range got {
				assert.Equal(t, tt.want[i], inc.Type)
				assert.Equal(t, 100.0, inc.SessionTime)
			}
		})
	}
}
