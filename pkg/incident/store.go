// Package incident holds the incidents of a run and their resolution.
package incident

import (
	"slices"
	"sync"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

// Sender receives a message for every created or resolved incident
type Sender interface {
	Send(channel string, data any)
}

// Store allocates incident ids and tracks resolutions.
// Writes happen on the update loop, reads may happen concurrently.
type Store struct {
	mu        sync.RWMutex
	lastID    int
	incidents map[int]*model.Incident
	sender    Sender
	l         *log.Logger
}

type Option func(s *Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.l = l
	}
}

func WithSender(sender Sender) Option {
	return func(s *Store) {
		s.sender = sender
	}
}

func NewStore(opts ...Option) *Store {
	ret := &Store{
		incidents: make(map[int]*model.Incident),
		l:         log.Default().Named("incident"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Publish stores data as a new unresolved incident
func (s *Store) Publish(data model.IncidentData) model.Incident {
	s.mu.Lock()
	s.lastID++
	inc := &model.Incident{ID: s.lastID, Resolution: model.Unresolved, Data: data}
	s.incidents[inc.ID] = inc
	ret := *inc
	s.mu.Unlock()

	s.l.Info("incident created",
		log.Int("id", ret.ID),
		log.String("type", string(data.Type)),
		log.String("car", data.Car.Number),
		log.Int("sessionNum", data.SessionNum),
		log.Float64("sessionTime", data.SessionTime))
	s.send(model.ChannelIncidentCreated, ret)
	return ret
}

// Resolve sets the resolution of an incident.
// The boolean is false if there is no incident with this id.
func (s *Store) Resolve(id int, r model.Resolution) (model.Incident, bool) {
	s.mu.Lock()
	inc, ok := s.incidents[id]
	if !ok {
		s.mu.Unlock()
		return model.Incident{}, false
	}
	inc.Resolution = r
	ret := *inc
	s.mu.Unlock()

	s.l.Debug("incident resolved", log.Int("id", id), log.String("resolution", r.String()))
	s.send(model.ChannelIncidentResolved, ret)
	return ret, true
}

// ClearAll marks every incident which is not deleted yet as deleted.
// Each incident is resolved individually.
func (s *Store) ClearAll() []model.Incident {
	var ret []model.Incident
	for _, inc := range s.Incidents() {
		if inc.Resolution == model.Deleted {
			continue
		}
		if deleted, ok := s.Resolve(inc.ID, model.Deleted); ok {
			ret = append(ret, deleted)
		}
	}
	return ret
}

func (s *Store) Get(id int) (model.Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inc, ok := s.incidents[id]; ok {
		return *inc, true
	}
	return model.Incident{}, false
}

// Incidents returns all incidents ordered by id
func (s *Store) Incidents() []model.Incident {
	s.mu.RLock()
	ret := make([]model.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		ret = append(ret, *inc)
	}
	s.mu.RUnlock()
	slices.SortFunc(ret, func(a, b model.Incident) int { return a.ID - b.ID })
	return ret
}

// Resolutions returns the resolution per incident id.
// Deleted incidents are only included if includeDeleted is set.
func (s *Store) Resolutions(includeDeleted bool) map[int]model.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make(map[int]model.Resolution, len(s.incidents))
	for id, inc := range s.incidents {
		if inc.Resolution == model.Deleted && !includeDeleted {
			continue
		}
		ret[id] = inc.Resolution
	}
	return ret
}

func (s *Store) send(channel string, inc model.Incident) {
	if s.sender != nil {
		s.sender.Send(channel, inc)
	}
}
