package model

// DriverInfo is one entry of the roster snapshot
type DriverInfo struct {
	CarIdx            int    `json:"carIdx"`
	CarNumber         string `json:"carNumber"`
	TeamName          string `json:"teamName"`
	UserName          string `json:"userName"`
	TeamIncidentCount int    `json:"teamIncidentCount"`
	IsAI              bool   `json:"isAI"`
	IsPaceCar         bool   `json:"isPaceCar"`
}

type SessionInfo struct {
	Num  int    `json:"num"`
	Type string `json:"type"` // "Practice", "Lone Qualify", "Race", ...
	Name string `json:"name"`
}

// RosterSnapshot holds the slow changing session metadata
type RosterSnapshot struct {
	TrackLength string        `json:"trackLength"` // display value like "5.89 km"
	Sessions    []SessionInfo `json:"sessions"`
	Drivers     []DriverInfo  `json:"drivers"`
}

// TelemetrySnapshot holds the fast changing per car data.
// The CarIdx* slices are indexed by car index.
type TelemetrySnapshot struct {
	SessionNum        int       `json:"sessionNum"`
	SessionTime       float64   `json:"sessionTime"`
	SessionState      int       `json:"sessionState"`
	SessionFlags      uint32    `json:"sessionFlags"`
	ReplayFrameNum    int       `json:"replayFrameNum"`
	ReplayPlaySpeed   int       `json:"replayPlaySpeed"`
	ReplaySessionNum  int       `json:"replaySessionNum"`
	ReplaySessionTime float64   `json:"replaySessionTime"`
	CamCarIdx         int       `json:"camCarIdx"`
	CarIdxLap         []int     `json:"carIdxLap"`
	CarIdxLapDistPct  []float64 `json:"carIdxLapDistPct"`
	CarIdxTrackSurf   []int     `json:"carIdxTrackSurface"`
	CarIdxOnPitRoad   []bool    `json:"carIdxOnPitRoad"`
	CarIdxPaceRow     []int     `json:"carIdxPaceRow"`
	CarIdxPaceLine    []int     `json:"carIdxPaceLine"`
	CarIdxFlags       []uint32  `json:"carIdxSessionFlags"`
}

// Snapshot is a unit delivered by a snapshot source.
// Either part may be nil if only one of them changed.
// A recorded line always carries both parts.
type Snapshot struct {
	Telemetry *TelemetrySnapshot `json:"telemetry,omitempty"`
	Roster    *RosterSnapshot    `json:"roster,omitempty"`
}

// Merge returns s with missing parts taken from older
func (s Snapshot) Merge(older Snapshot) Snapshot {
	ret := s
	if ret.Telemetry == nil {
		ret.Telemetry = older.Telemetry
	}
	if ret.Roster == nil {
		ret.Roster = older.Roster
	}
	return ret
}

func (s Snapshot) Complete() bool {
	return s.Telemetry != nil && s.Roster != nil
}
