// Package session contains stateless watchers reporting session wide changes.
package session

import (
	"slices"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
)

type Info struct {
	Num   int                `json:"num"`
	Type  model.SessionType  `json:"type"`
	State model.SessionState `json:"state"`
	Time  float64            `json:"time"`
}

// Change is the payload of the session-changed channel
type Change struct {
	Prev Info `json:"prev"`
	Cur  Info `json:"cur"`
}

// PaceEntry is the pace position of one car
type PaceEntry struct {
	CarIdx    int    `json:"carIdx"`
	CarNumber string `json:"carNumber"`
	Row       int    `json:"row"`
	Line      int    `json:"line"`
}

func info(s model.State) Info {
	return Info{
		Num:   s.Session.Num,
		Type:  s.SessionType,
		State: s.SessionState,
		Time:  s.Session.Time,
	}
}

// NewSessionWatcher reports changes of session number, type or state
func NewSessionWatcher() watcher.Watcher {
	return watcher.Stateless("session", func(pair model.StatePair) []watcher.Event {
		prev, cur := info(pair.Prev), info(pair.Cur)
		if prev.Num == cur.Num && prev.Type == cur.Type && prev.State == cur.State {
			return nil
		}
		return []watcher.Event{
			watcher.MessageEvent(model.ChannelSessionChanged, Change{Prev: prev, Cur: cur}),
		}
	})
}

// NewPaceWatcher reports the pace order whenever a pace row or line changes.
// Only cars with a pace position are part of the payload.
func NewPaceWatcher() watcher.Watcher {
	return watcher.Stateless("pace", func(pair model.StatePair) []watcher.Event {
		prev, cur := paceOrder(pair.Prev), paceOrder(pair.Cur)
		if slices.Equal(prev, cur) {
			return nil
		}
		return []watcher.Event{watcher.MessageEvent(model.ChannelPaceState, cur)}
	})
}

func paceOrder(s model.State) []PaceEntry {
	ret := []PaceEntry{}
	for _, c := range s.Cars {
		if c.PaceRow < 0 && c.PaceLine < 0 {
			continue
		}
		ret = append(ret, PaceEntry{
			CarIdx:    c.Index,
			CarNumber: c.Number,
			Row:       c.PaceRow,
			Line:      c.PaceLine,
		})
	}
	slices.SortStableFunc(ret, func(a, b PaceEntry) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Line - b.Line
	})
	return ret
}
