package archive

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/outbox"
	"github.com/mpapenbr/iracelog-stewarding-go/testsupport/tcpostgres"
)

func TestArchiveStoresLoggedMessages(t *testing.T) {
	pool, _ := tcpostgres.SetupTestDB(t)
	tcpostgres.ClearAllTables(pool)
	ctx := context.Background()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ob := outbox.New(outbox.WithClock(func() time.Time { return fixed }))
	ob.Send(model.ChannelIncidentCreated, map[string]int{"id": 1})

	runID := uuid.New()
	a := New(pool, runID, WithSource("test"), WithMaxBatch(2))
	a.Attach(ob)
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	ob.SendTransient(model.ChannelClockUpdate, 12.5)
	ob.Send(model.ChannelIncidentResolved, map[string]int{"id": 1})
	ob.Send(model.ChannelSessionChanged, map[string]int{"num": 2})
	a.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("archive did not finish")
	}

	msgs, err := Load(ctx, pool, runID)
	assert.NoError(t, err)
	assert.Len(t, msgs, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{msgs[0].Seq, msgs[1].Seq, msgs[2].Seq})
	assert.Equal(t, model.ChannelIncidentResolved, msgs[1].Channel)
	assert.JSONEq(t, `{"num":2}`, string(msgs[2].Data.(json.RawMessage)))
	assert.True(t, fixed.Equal(msgs[0].Time))

	runs, err := Runs(ctx, pool)
	assert.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "test", runs[0].Source)
	assert.Equal(t, 3, runs[0].Messages)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestArchiveRunCanceled(t *testing.T) {
	pool, _ := tcpostgres.SetupTestDB(t)
	tcpostgres.ClearAllTables(pool)

	ob := outbox.New()
	runID := uuid.New()
	a := New(pool, runID)
	a.Attach(ob)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	ob.Send(model.ChannelIncidentCreated, 1)
	assert.Eventually(t, func() bool {
		msgs, err := Load(context.Background(), pool, runID)
		return err == nil && len(msgs) == 1
	}, 10*time.Second, 50*time.Millisecond)
	cancel()

	assert.NoError(t, <-done)
	runs, err := Runs(context.Background(), pool)
	assert.NoError(t, err)
	assert.NotNil(t, runs[0].FinishedAt)
}
