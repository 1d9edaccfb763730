// Package recorder writes the snapshots used for each projection as JSON
// lines. The result can be read back with source.FileSource.
package recorder

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

type Recorder struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	lines  int
	failed bool
	l      *log.Logger
}

type Option func(r *Recorder)

func WithLogger(l *log.Logger) Option {
	return func(r *Recorder) {
		r.l = l
	}
}

func New(w io.Writer, opts ...Option) *Recorder {
	ret := &Recorder{
		enc: json.NewEncoder(w),
		l:   log.Default().Named("recorder"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Create appends to the file at path
func Create(path string, opts ...Option) (*Recorder, error) {
	//nolint:gosec // path is provided by the user
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	ret := New(f, opts...)
	ret.closer = f
	return ret, nil
}

// Record writes snap as one line.
// Write errors are logged once, recording stops afterwards.
func (r *Recorder) Record(snap model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return
	}
	if err := r.enc.Encode(snap); err != nil {
		r.failed = true
		r.l.Error("recording stopped", log.Int("lines", r.lines), log.ErrorField(err))
		return
	}
	r.lines++
}

func (r *Recorder) Lines() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lines
}

func (r *Recorder) Close() error {
	if r.closer == nil {
		return nil
	}
	r.l.Info("recording closed", log.Int("lines", r.Lines()))
	return r.closer.Close()
}
