package model

import (
	"encoding/json"
	"fmt"
)

type Resolution int

const (
	Unresolved Resolution = iota
	Acknowledged
	Dismissed
	Penalized
	Deleted
)

var resolutionNames = []string{
	"Unresolved", "Acknowledged", "Dismissed", "Penalized", "Deleted",
}

func (r Resolution) String() string {
	if r < Unresolved || r > Deleted {
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
	return resolutionNames[r]
}

func ParseResolution(s string) (Resolution, error) {
	for i, name := range resolutionNames {
		if name == s {
			return Resolution(i), nil
		}
	}
	return Unresolved, fmt.Errorf("unknown resolution %q", s)
}

func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Resolution) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseResolution(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

type IncidentType string

const (
	IncidentOffTrack            IncidentType = "Off-Track"
	IncidentTrackLimits         IncidentType = "Track Limits"
	IncidentUnsafeRejoin        IncidentType = "Unsafe Rejoin"
	IncidentMajor               IncidentType = "Major Incident"
	IncidentMajorParticipant    IncidentType = "Major Incident Participant"
	IncidentRequirementViolated IncidentType = "Requirement Violated"
)

// IncidentCar is the car snapshot stored with an incident
type IncidentCar struct {
	Index         int          `json:"index"`
	Number        string       `json:"number"`
	TeamName      string       `json:"teamName"`
	DriverName    string       `json:"driverName"`
	IncidentCount int          `json:"incidentCount"`
	Lap           int          `json:"lap"`
	TrackPos      float64      `json:"trackPos"`
	Surface       TrackSurface `json:"surface"`
}

func NewIncidentCar(c Car) IncidentCar {
	return IncidentCar{
		Index:         c.Index,
		Number:        c.Number,
		TeamName:      c.TeamName,
		DriverName:    c.DriverName,
		IncidentCount: c.IncidentCount,
		Lap:           c.Lap,
		TrackPos:      c.TrackPos,
		Surface:       c.Surface,
	}
}

// IncidentData is the immutable payload of an incident
type IncidentData struct {
	Type        IncidentType `json:"type"`
	Car         IncidentCar  `json:"car"`
	SessionNum  int          `json:"sessionNum"`
	SessionTime float64      `json:"sessionTime"`
	Description string       `json:"description,omitempty"`
}

// NewIncidentData creates incident data for car reported at the given session time
//
//nolint:whitespace // editor/linter issue
func NewIncidentData(
	t IncidentType, car Car, sessionNum int, sessionTime float64,
) IncidentData {
	return IncidentData{
		Type:        t,
		Car:         NewIncidentCar(car),
		SessionNum:  sessionNum,
		SessionTime: sessionTime,
	}
}

func (d IncidentData) WithDescription(s string) IncidentData {
	d.Description = s
	return d
}

type Incident struct {
	ID         int          `json:"id"`
	Resolution Resolution   `json:"resolution"`
	Data       IncidentData `json:"data"`
}
