package model

// TrackSurface uses the values of the iRacing irsdk_TrkLoc enum
type TrackSurface int

const (
	SurfaceNotInWorld      TrackSurface = -1
	SurfaceOffTrack        TrackSurface = 0
	SurfaceInPitStall      TrackSurface = 1
	SurfaceApproachingPits TrackSurface = 2
	SurfaceOnTrack         TrackSurface = 3
)

func (s TrackSurface) String() string {
	switch s {
	case SurfaceOffTrack:
		return "OffTrack"
	case SurfaceInPitStall:
		return "InPitStall"
	case SurfaceApproachingPits:
		return "ApproachingPits"
	case SurfaceOnTrack:
		return "OnTrack"
	default:
		return "NotInWorld"
	}
}

// Car is the projected state of one car.
// Numeric telemetry attributes are -1 when no telemetry was seen yet.
type Car struct {
	Index         int          `json:"index"`
	Number        string       `json:"number"`
	TeamName      string       `json:"teamName"`
	DriverName    string       `json:"driverName"`
	IncidentCount int          `json:"incidentCount"`
	Lap           int          `json:"lap"`
	TrackPos      float64      `json:"trackPos"`
	Surface       TrackSurface `json:"surface"`
	OnPitRoad     bool         `json:"onPitRoad"`
	PaceRow       int          `json:"paceRow"`
	PaceLine      int          `json:"paceLine"`
	Flags         uint32       `json:"flags"`
	IsAI          bool         `json:"isAI"`
	IsPaceCar     bool         `json:"isPaceCar"`
}

func (c Car) InWorld() bool {
	return c.Surface != SurfaceNotInWorld
}
