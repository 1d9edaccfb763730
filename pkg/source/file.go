package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

const (
	maxLineSize  = 16 * 1024 * 1024
	pollInterval = time.Second
)

// FileSource reads a recording with one JSON encoded snapshot per line
type FileSource struct {
	r       *bufio.Reader
	closer  io.Closer
	path    string
	follow  bool
	lineNum int
	partial []byte
	watcher *fsnotify.Watcher
	l       *log.Logger
}

type FileOption func(s *FileSource)

// WithFollow keeps waiting for appended lines instead of returning io.EOF
func WithFollow(follow bool) FileOption {
	return func(s *FileSource) {
		s.follow = follow
	}
}

func WithFileLogger(l *log.Logger) FileOption {
	return func(s *FileSource) {
		s.l = l
	}
}

func OpenFile(path string, opts ...FileOption) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	ret := NewReaderSource(f, opts...)
	ret.closer = f
	ret.path = path
	if ret.follow {
		if ret.watcher, err = fsnotify.NewWatcher(); err != nil {
			f.Close()
			return nil, err
		}
		// watching the directory survives editors replacing the file
		if err = ret.watcher.Add(filepath.Dir(path)); err != nil {
			ret.Close()
			return nil, err
		}
	}
	return ret, nil
}

// NewReaderSource reads snapshots from r. Follow mode requires OpenFile.
func NewReaderSource(r io.Reader, opts ...FileOption) *FileSource {
	ret := &FileSource{
		r: bufio.NewReaderSize(r, 64*1024),
		l: log.Default().Named("source.file"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *FileSource) Next(ctx context.Context) (model.Snapshot, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Snapshot{}, err
		}
		line, err := s.r.ReadSlice('\n')
		switch {
		case err == nil:
			data := append(s.partial, line...)
			s.partial = nil
			s.lineNum++
			if len(bytes.TrimSpace(data)) == 0 {
				continue
			}
			var snap model.Snapshot
			if jerr := json.Unmarshal(data, &snap); jerr != nil {
				return model.Snapshot{}, fmt.Errorf("line %d: %w", s.lineNum, jerr)
			}
			return snap, nil
		case errors.Is(err, bufio.ErrBufferFull):
			s.partial = append(s.partial, line...)
			if len(s.partial) > maxLineSize {
				return model.Snapshot{}, fmt.Errorf("line %d: exceeds %d bytes",
					s.lineNum+1, maxLineSize)
			}
		case errors.Is(err, io.EOF):
			s.partial = append(s.partial, line...)
			if !s.follow || s.watcher == nil {
				return s.lastLine()
			}
			if werr := s.waitForWrite(ctx); werr != nil {
				return model.Snapshot{}, werr
			}
		default:
			return model.Snapshot{}, err
		}
	}
}

// lastLine handles a final line without newline
func (s *FileSource) lastLine() (model.Snapshot, error) {
	data := s.partial
	s.partial = nil
	if len(bytes.TrimSpace(data)) == 0 {
		return model.Snapshot{}, io.EOF
	}
	s.lineNum++
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("line %d: %w", s.lineNum, err)
	}
	return snap, nil
}

func (s *FileSource) waitForWrite(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
			// writes between reaching EOF and waiting are not notified
			return nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return ErrClosed
			}
			if filepath.Clean(ev.Name) == filepath.Clean(s.path) &&
				ev.Has(fsnotify.Write) {
				return nil
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return ErrClosed
			}
			s.l.Warn("file watcher error", log.ErrorField(err))
		}
	}
}

// Lines returns the number of lines read so far
func (s *FileSource) Lines() int {
	return s.lineNum
}

func (s *FileSource) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	if s.closer != nil {
		errs = append(errs, s.closer.Close())
	}
	return errors.Join(errs...)
}
