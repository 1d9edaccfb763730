package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

const (
	line1 = `{"telemetry":{"sessionNum":0,"sessionTime":1}}`
	line2 = `{"telemetry":{"sessionNum":0,"sessionTime":2}}`
)

func sessionTimes(t *testing.T, src Source) ([]float64, error) {
	t.Helper()
	var ret []float64
	for {
		snap, err := src.Next(context.Background())
		if err != nil {
			return ret, err
		}
		ret = append(ret, snap.Telemetry.SessionTime)
	}
}

func TestReaderSource(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []float64
		wantErr string
	}{
		{"newline terminated", line1 + "\n" + line2 + "\n", []float64{1, 2}, ""},
		{"no final newline", line1 + "\n" + line2, []float64{1, 2}, ""},
		{"blank lines", "\n" + line1 + "\n\n  \n" + line2 + "\n\n", []float64{1, 2}, ""},
		{"empty", "", nil, ""},
		{"malformed", line1 + "\n{broken\n" + line2 + "\n", []float64{1}, "line 2:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sessionTimes(t, NewReaderSource(strings.NewReader(tt.input)))
			assert.Equal(t, tt.want, got)
			if tt.wantErr == "" {
				assert.ErrorIs(t, err, io.EOF)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestFollowFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.jsonl")
	assert.NoError(t, os.WriteFile(path, []byte(line1+"\n"), 0o600))
	src, err := OpenFile(path, WithFollow(true))
	assert.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := src.Next(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, snap.Telemetry.SessionTime)

	go func() {
		time.Sleep(50 * time.Millisecond)
		f, ferr := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
		if ferr != nil {
			return
		}
		defer f.Close()
		f.WriteString(line2 + "\n")
	}()
	snap, err = src.Next(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2.0, snap.Telemetry.SessionTime)
	assert.Equal(t, 2, src.Lines())

	short, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer shortCancel()
	_, err = src.Next(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLiveSourceMergesPending(t *testing.T) {
	src := NewLiveSource()
	roster := &model.RosterSnapshot{TrackLength: "1.00 km"}
	src.Push(model.Snapshot{Roster: roster})
	src.Push(model.Snapshot{Telemetry: &model.TelemetrySnapshot{SessionTime: 3}})

	snap, err := src.Next(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, roster, snap.Roster)
	assert.Equal(t, 3.0, snap.Telemetry.SessionTime)

	src.Close()
	_, err = src.Next(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
}
