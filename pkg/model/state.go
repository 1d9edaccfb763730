package model

import "slices"

type SessionType int

const (
	SessionTypeUnknown SessionType = iota
	SessionTypePractice
	SessionTypeQualify
	SessionTypeRace
)

func (t SessionType) String() string {
	switch t {
	case SessionTypePractice:
		return "Practice"
	case SessionTypeQualify:
		return "Qualify"
	case SessionTypeRace:
		return "Race"
	default:
		return "Unknown"
	}
}

// SessionState uses the values of the iRacing irsdk_SessionState enum
type SessionState int

const (
	SessionStateInvalid SessionState = iota
	SessionStateGetInCar
	SessionStateWarmup
	SessionStateParadeLaps
	SessionStateRacing
	SessionStateCheckered
	SessionStateCoolDown
)

func (s SessionState) String() string {
	return [...]string{
		"Invalid", "GetInCar", "Warmup", "ParadeLaps", "Racing", "Checkered", "CoolDown",
	}[min(max(int(s), 0), int(SessionStateCoolDown))]
}

type SessionClock struct {
	Num  int     `json:"num"`
	Time float64 `json:"time"`
}

// Before reports whether c lies before other on the session timeline
func (c SessionClock) Before(other SessionClock) bool {
	if c.Num != other.Num {
		return c.Num < other.Num
	}
	return c.Time < other.Time
}

type ReplayClock struct {
	Frame       int     `json:"frame"`
	Speed       int     `json:"speed"`
	SessionNum  int     `json:"sessionNum"`
	SessionTime float64 `json:"sessionTime"`
	CamCarIdx   int     `json:"camCarIdx"`
}

// State is the projected application state.
// A new value is produced on every update, it must not be modified afterwards.
type State struct {
	Session      SessionClock `json:"session"`
	Replay       ReplayClock  `json:"replay"`
	SessionType  SessionType  `json:"sessionType"`
	SessionState SessionState `json:"sessionState"`
	Flags        uint32       `json:"flags"`
	TrackLength  float64      `json:"trackLength"` // meters
	Cars         []Car        `json:"cars"`       // ordered by car index

	byIdx map[int]int
	byNum map[string]int
}

// NewState builds the lookup tables for cars.
// Cars are sorted by index, duplicate indexes keep the first occurrence.
func NewState(base State, cars []Car) State {
	sorted := slices.Clone(cars)
	slices.SortStableFunc(sorted, func(a, b Car) int { return a.Index - b.Index })
	sorted = slices.CompactFunc(sorted, func(a, b Car) bool { return a.Index == b.Index })

	ret := base
	ret.Cars = sorted
	ret.byIdx = make(map[int]int, len(sorted))
	ret.byNum = make(map[string]int, len(sorted))
	for i, c := range sorted {
		ret.byIdx[c.Index] = i
		if _, ok := ret.byNum[c.Number]; !ok {
			ret.byNum[c.Number] = i
		}
	}
	return ret
}

func (s State) CarByIdx(idx int) (Car, bool) {
	if i, ok := s.byIdx[idx]; ok {
		return s.Cars[i], true
	}
	return Car{}, false
}

func (s State) CarByNumber(num string) (Car, bool) {
	if i, ok := s.byNum[num]; ok {
		return s.Cars[i], true
	}
	return Car{}, false
}

// StatePair is the unit processed by watchers
type StatePair struct {
	Prev State
	Cur  State
}
