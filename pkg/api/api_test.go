//nolint:funlen // ok for tests
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/incident"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/outbox"
	bd "github.com/mpapenbr/iracelog-stewarding-go/testsupport/basedata"
)

type directCommander struct {
	store *incident.Store
}

func (d directCommander) Submit(_ context.Context, cmd incident.Command) error {
	return d.store.Apply(cmd)
}

func setup(t *testing.T) (*httptest.Server, *incident.Store, *outbox.Outbox) {
	t.Helper()
	ob := outbox.New()
	store := incident.NewStore(incident.WithSender(ob))
	store.Publish(model.NewIncidentData(model.IncidentOffTrack, bd.Car(1), 0, 10))
	store.Publish(model.NewIncidentData(model.IncidentTrackLimits, bd.Car(2), 0, 12))
	srv := httptest.NewServer(New(store, ob, directCommander{store}).Handler())
	t.Cleanup(srv.Close)
	return srv, store, ob
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, http.NoBody)
	assert.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIncidentEndpoints(t *testing.T) {
	srv, store, _ := setup(t)

	resp := do(t, http.MethodGet, srv.URL+"/incidents")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var incidents []model.Incident
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&incidents))
	assert.Len(t, incidents, 2)
	assert.Equal(t, model.IncidentOffTrack, incidents[0].Data.Type)

	resp = do(t, http.MethodPost, srv.URL+"/incidents/2/dismiss")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var inc model.Incident
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&inc))
	assert.Equal(t, model.Dismissed, inc.Resolution)

	resp = do(t, http.MethodPost, srv.URL+"/incidents/1/delete")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/incidents/resolutions")
	var res map[int]model.Resolution
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, map[int]model.Resolution{2: model.Dismissed}, res)

	resp = do(t, http.MethodPost, srv.URL+"/incidents/clear")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, store.Resolutions(false))
}

func TestCommandErrors(t *testing.T) {
	srv, _, _ := setup(t)
	tests := []struct {
		path string
		want int
	}{
		{"/incidents/9/acknowledge", http.StatusNotFound},
		{"/incidents/1/seek", http.StatusBadRequest},
		{"/incidents/x/acknowledge", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+tt.path)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

type sseEvent struct {
	id    string
	event string
	data  string
}

func readEvents(t *testing.T, sc *bufio.Scanner, n int) []sseEvent {
	t.Helper()
	var ret []sseEvent
	cur := sseEvent{}
	for len(ret) < n && sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			ret = append(ret, cur)
			cur = sseEvent{}
		case strings.HasPrefix(line, "id: "):
			cur.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			cur.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		}
	}
	return ret
}

func TestEventStream(t *testing.T) {
	srv, store, ob := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	replayed := readEvents(t, sc, 2)
	assert.Equal(t, []string{"1", "2"}, []string{replayed[0].id, replayed[1].id})
	assert.Equal(t, model.ChannelIncidentCreated, replayed[0].event)

	assert.Eventually(t, func() bool { return ob.Listeners() == 1 },
		time.Second, 10*time.Millisecond)
	ob.SendTransient(model.ChannelClockUpdate, map[string]float64{"sessionTime": 13})
	store.Resolve(1, model.Acknowledged)
	live := readEvents(t, sc, 2)
	assert.Equal(t, model.ChannelClockUpdate, live[0].event)
	assert.Equal(t, "", live[0].id)
	assert.Equal(t, model.ChannelIncidentResolved, live[1].event)
	var inc model.Incident
	assert.NoError(t, json.Unmarshal([]byte(live[1].data), &inc))
	assert.Equal(t, model.Acknowledged, inc.Resolution)
}

func TestEventStreamWithoutReplay(t *testing.T) {
	srv, store, ob := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/events?replay=false&channels="+model.ChannelIncidentResolved, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()

	// the handler attaches after sending the headers
	assert.Eventually(t, func() bool { return ob.Listeners() == 1 },
		time.Second, 10*time.Millisecond)
	ob.SendTransient(model.ChannelClockUpdate, 1)
	store.Resolve(2, model.Penalized)

	got := readEvents(t, bufio.NewScanner(resp.Body), 1)
	assert.Equal(t, "3", got[0].id)
	assert.Equal(t, model.ChannelIncidentResolved, got[0].event)
}
