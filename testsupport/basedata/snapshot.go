package basedata

import (
	"strconv"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

// Roster creates a race roster with a pace car at index 0 and cars 1..n
func Roster(n int) *model.RosterSnapshot {
	ret := &model.RosterSnapshot{
		TrackLength: "1.00 km",
		Sessions: []model.SessionInfo{
			{Num: 0, Type: "Practice", Name: "PRACTICE"},
			{Num: 1, Type: "Race", Name: "RACE"},
		},
		Drivers: []model.DriverInfo{
			{CarIdx: 0, CarNumber: "0", UserName: "Pace Car", IsPaceCar: true},
		},
	}
	for i := 1; i <= n; i++ {
		ret.Drivers = append(ret.Drivers, model.DriverInfo{
			CarIdx:    i,
			CarNumber: strconv.Itoa(i),
			TeamName:  "Team " + strconv.Itoa(i),
			UserName:  "Driver " + strconv.Itoa(i),
		})
	}
	return ret
}

// Telemetry creates a racing telemetry snapshot for the race session.
// surfaces holds the surface of cars 1..n, the pace car is in its stall.
func Telemetry(sessionTime float64, surfaces ...model.TrackSurface) *model.TelemetrySnapshot {
	n := len(surfaces) + 1
	ret := &model.TelemetrySnapshot{
		SessionNum:       1,
		SessionTime:      sessionTime,
		SessionState:     int(model.SessionStateRacing),
		CarIdxLap:        make([]int, n),
		CarIdxLapDistPct: make([]float64, n),
		CarIdxTrackSurf:  make([]int, n),
		CarIdxOnPitRoad:  make([]bool, n),
		CarIdxPaceRow:    make([]int, n),
		CarIdxPaceLine:   make([]int, n),
		CarIdxFlags:      make([]uint32, n),
	}
	ret.CarIdxTrackSurf[0] = int(model.SurfaceInPitStall)
	ret.CarIdxOnPitRoad[0] = true
	for i := range n {
		ret.CarIdxPaceRow[i] = -1
		ret.CarIdxPaceLine[i] = -1
	}
	for i, s := range surfaces {
		idx := i + 1
		ret.CarIdxLap[idx] = 2
		ret.CarIdxLapDistPct[idx] = 0.2 * float64(idx)
		ret.CarIdxTrackSurf[idx] = int(s)
	}
	return ret
}
