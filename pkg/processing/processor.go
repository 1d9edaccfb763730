// Package processing contains the application context which drives the
// update loop: snapshots are projected, watchers run and their events are
// routed to the incident store and the outbox.
package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/incident"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/outbox"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/processing/feed"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/source"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/watcher"
)

var ErrNotRunning = errors.New("processor not running")

// ClockUpdate is the payload of the clock-update channel
type ClockUpdate struct {
	SessionNum  int               `json:"sessionNum"`
	SessionTime float64           `json:"sessionTime"`
	Replay      model.ReplayClock `json:"replay"`
}

type command struct {
	cmd    incident.Command
	result chan error
}

// Processor is the application context. It is created once and owns the
// feed, the watchers, the incident store and the outbox.
type Processor struct {
	runID         uuid.UUID
	feed          *feed.Feed
	watchers      *watcher.Set
	store         *incident.Store
	outbox        *outbox.Outbox
	tracer        trace.Tracer
	telemetryJSON bool
	commands      chan command
	finished      chan struct{}
	finishOnce    sync.Once
	l             *log.Logger
}

type ProcessorOption func(proc *Processor)

func WithFeed(f *feed.Feed) ProcessorOption {
	return func(proc *Processor) {
		proc.feed = f
	}
}

func WithWatchers(s *watcher.Set) ProcessorOption {
	return func(proc *Processor) {
		proc.watchers = s
	}
}

// WithOutbox sets the outbox. The incident store publishes to it unless a
// store is provided with WithStore.
func WithOutbox(o *outbox.Outbox) ProcessorOption {
	return func(proc *Processor) {
		proc.outbox = o
	}
}

func WithStore(s *incident.Store) ProcessorOption {
	return func(proc *Processor) {
		proc.store = s
	}
}

// WithTelemetryJSON sends every telemetry snapshot on the telemetry-json channel
func WithTelemetryJSON(enabled bool) ProcessorOption {
	return func(proc *Processor) {
		proc.telemetryJSON = enabled
	}
}

func WithRunID(id uuid.UUID) ProcessorOption {
	return func(proc *Processor) {
		proc.runID = id
	}
}

func WithLogger(l *log.Logger) ProcessorOption {
	return func(proc *Processor) {
		proc.l = l
	}
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{
		runID:    uuid.New(),
		tracer:   otel.Tracer("isw/processing"),
		commands: make(chan command),
		finished: make(chan struct{}),
		l:        log.Default().Named("processing"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.feed == nil {
		ret.feed = feed.New()
	}
	if ret.watchers == nil {
		ret.watchers = watcher.NewSet()
	}
	if ret.outbox == nil {
		ret.outbox = outbox.New()
	}
	if ret.store == nil {
		ret.store = incident.NewStore(incident.WithSender(ret.outbox))
	}
	return ret
}

func (p *Processor) RunID() uuid.UUID {
	return p.runID
}

func (p *Processor) Feed() *feed.Feed {
	return p.feed
}

func (p *Processor) Store() *incident.Store {
	return p.store
}

func (p *Processor) Outbox() *outbox.Outbox {
	return p.outbox
}

func (p *Processor) Watchers() *watcher.Set {
	return p.watchers
}

// ProcessSnapshot handles one snapshot completely. It returns the incidents
// created during this update.
//
//nolint:whitespace // editor/linter issue
func (p *Processor) ProcessSnapshot(
	ctx context.Context, snap model.Snapshot,
) []model.Incident {
	if p.telemetryJSON && snap.Telemetry != nil {
		p.outbox.SendTransient(model.ChannelTelemetryJSON, snap.Telemetry)
	}
	pair, ok := p.feed.Update(snap)
	if !ok {
		return nil
	}
	_, span := p.tracer.Start(ctx, "app.process")
	defer span.End()
	span.SetAttributes(
		attribute.Int("session.num", pair.Cur.Session.Num),
		attribute.Float64("session.time", pair.Cur.Session.Time))

	p.outbox.SendTransient(model.ChannelClockUpdate, ClockUpdate{
		SessionNum:  pair.Cur.Session.Num,
		SessionTime: pair.Cur.Session.Time,
		Replay:      pair.Cur.Replay,
	})

	var created []model.Incident
	for _, ev := range p.watchers.Process(pair) {
		switch ev.Kind {
		case watcher.EventIncident:
			created = append(created, p.store.Publish(ev.Incident))
		case watcher.EventMessage:
			p.outbox.Send(ev.Channel, ev.Data)
		}
	}
	span.SetAttributes(attribute.Int("incidents", len(created)))
	return created
}

// Submit hands cmd to the update loop and waits for its result.
// Once Run has returned, commands are applied directly to the store.
func (p *Processor) Submit(ctx context.Context, cmd incident.Command) error {
	c := command{cmd: cmd, result: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotRunning, ctx.Err())
	case <-p.finished:
		return p.store.Apply(cmd)
	case p.commands <- c:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.result:
		return err
	}
}

// Run reads src and processes snapshots and commands one at a time until
// the source ends or ctx is done. The end of a recorded source is not an error.
//
//nolint:funlen // readability
func (p *Processor) Run(ctx context.Context, src source.Source) error {
	defer p.finishOnce.Do(func() { close(p.finished) })
	g, gCtx := errgroup.WithContext(ctx)
	snapshots := make(chan model.Snapshot)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(snapshots)
		for {
			snap, err := src.Next(gCtx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, source.ErrClosed) {
					p.l.Info("source finished")
					return nil
				}
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("reading source: %w", err)
			}
			select {
			case snapshots <- snap:
			case <-gCtx.Done():
				return nil
			case <-done:
				return nil
			}
		}
	})

	g.Go(func() error {
		defer close(done)
		for {
			select {
			case <-gCtx.Done():
				return nil
			case snap, ok := <-snapshots:
				if !ok {
					return nil
				}
				p.ProcessSnapshot(gCtx, snap)
			case c := <-p.commands:
				err := p.store.Apply(c.cmd)
				if err != nil {
					p.l.Warn("command failed",
						log.String("type", string(c.cmd.Type)),
						log.Int("id", c.cmd.ID),
						log.ErrorField(err))
				}
				c.result <- err
			}
		}
	})
	return g.Wait()
}
