package requirement

import (
	"strings"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

// Marker is a set of session lifecycle boundaries
type Marker uint

const (
	PracticeStart Marker = 1 << iota
	PracticeEnd
	QualifyStart
	QualifyEnd
	RaceStart
	RaceEnd
)

const endMarkers = PracticeEnd | QualifyEnd | RaceEnd

var markerNames = map[Marker]string{
	PracticeStart: "PracticeStart",
	PracticeEnd:   "PracticeEnd",
	QualifyStart:  "QualifyStart",
	QualifyEnd:    "QualifyEnd",
	RaceStart:     "RaceStart",
	RaceEnd:       "RaceEnd",
}

func (m Marker) String() string {
	var parts []string
	for bit := PracticeStart; bit <= RaceEnd; bit <<= 1 {
		if m&bit != 0 {
			parts = append(parts, markerNames[bit])
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// SessionType returns the session type of a single marker
func (m Marker) SessionType() model.SessionType {
	switch m {
	case PracticeStart, PracticeEnd:
		return model.SessionTypePractice
	case QualifyStart, QualifyEnd:
		return model.SessionTypeQualify
	case RaceStart, RaceEnd:
		return model.SessionTypeRace
	default:
		return model.SessionTypeUnknown
	}
}

// Split returns the single markers contained in m
func (m Marker) Split() []Marker {
	var ret []Marker
	for bit := PracticeStart; bit <= RaceEnd; bit <<= 1 {
		if m&bit != 0 {
			ret = append(ret, bit)
		}
	}
	return ret
}

func startMarker(t model.SessionType) Marker {
	switch t {
	case model.SessionTypePractice:
		return PracticeStart
	case model.SessionTypeQualify:
		return QualifyStart
	case model.SessionTypeRace:
		return RaceStart
	default:
		return 0
	}
}

func endMarker(t model.SessionType) Marker {
	return startMarker(t) << 1
}

// Phase is the session type a state belongs to.
// A finished session (checkered or later) has no phase.
func Phase(s model.State) model.SessionType {
	if s.SessionState >= model.SessionStateCheckered {
		return model.SessionTypeUnknown
	}
	return s.SessionType
}

// Markers computes the boundaries crossed between two states
func Markers(pair model.StatePair) Marker {
	prev, cur := Phase(pair.Prev), Phase(pair.Cur)
	if prev == cur && pair.Prev.Session.Num == pair.Cur.Session.Num {
		return 0
	}
	if prev == cur && prev == model.SessionTypeUnknown {
		return 0
	}
	return endMarker(prev) | startMarker(cur)
}
