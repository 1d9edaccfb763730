// Package archive persists the logged outbox messages of a run to postgres.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/outbox"
)

const (
	defaultMaxBatch = 100
	flushTimeout    = 10 * time.Second
)

type Archive struct {
	pool     *pgxpool.Pool
	runID    uuid.UUID
	source   string
	maxBatch int
	mb       *outbox.Mailbox
	remove   func()
	l        *log.Logger
}

type Option func(a *Archive)

func WithLogger(l *log.Logger) Option {
	return func(a *Archive) {
		a.l = l
	}
}

// WithSource names the snapshot source stored with the run
func WithSource(source string) Option {
	return func(a *Archive) {
		a.source = source
	}
}

func WithMaxBatch(n int) Option {
	return func(a *Archive) {
		a.maxBatch = n
	}
}

func New(pool *pgxpool.Pool, runID uuid.UUID, opts ...Option) *Archive {
	ret := &Archive{
		pool:     pool,
		runID:    runID,
		source:   "unknown",
		maxBatch: defaultMaxBatch,
		mb:       outbox.NewMailbox(),
		l:        log.Default().Named("archive"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Attach subscribes to ob including the already logged messages
func (a *Archive) Attach(ob *outbox.Outbox) {
	a.remove = ob.AddOutbox(a.mb, true)
}

// Close detaches from the outbox. Run stores the queued messages and returns.
func (a *Archive) Close() {
	if a.remove != nil {
		a.remove()
	}
	a.mb.Close()
}

// Run stores messages until Close is called or ctx is done.
// Transient messages are skipped.
func (a *Archive) Run(ctx context.Context) error {
	if err := a.startRun(ctx); err != nil {
		return err
	}
	stored := 0
	for {
		msg, err := a.mb.Receive(ctx)
		if err != nil {
			if !errors.Is(err, outbox.ErrClosed) && ctx.Err() == nil {
				return err
			}
			return a.finish(stored)
		}
		batch := []outbox.Message{msg}
		for len(batch) < a.maxBatch && a.mb.Pending() > 0 {
			next, rerr := a.mb.Receive(ctx)
			if rerr != nil {
				break
			}
			batch = append(batch, next)
		}
		n, err := a.store(ctx, batch)
		if err != nil {
			return err
		}
		stored += n
	}
}

// finish stores the queued messages. ctx of Run may already be done, a new
// one is used.
func (a *Archive) finish(stored int) error {
	a.Close()
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	n, err := a.flush(ctx)
	stored += n
	a.l.Info("archive finished", log.Int("stored", stored))
	return errors.Join(err, a.finishRun(ctx))
}

func (a *Archive) flush(ctx context.Context) (int, error) {
	var batch []outbox.Message
	for a.mb.Pending() > 0 {
		msg, err := a.mb.Receive(ctx)
		if err != nil {
			break
		}
		batch = append(batch, msg)
	}
	return a.store(ctx, batch)
}

func (a *Archive) store(ctx context.Context, msgs []outbox.Message) (int, error) {
	batch := &pgx.Batch{}
	for _, msg := range msgs {
		if msg.Transient {
			continue
		}
		payload, err := json.Marshal(msg.Data)
		if err != nil {
			a.l.Warn("could not encode message",
				log.Int("seq", msg.Seq), log.ErrorField(err))
			continue
		}
		batch.Queue(`insert into outbox_message (run_id, seq, channel, payload, created_at)
values ($1, $2, $3, $4, $5) on conflict do nothing`,
			a.runID, msg.Seq, msg.Channel, payload, msg.Time)
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	if err := a.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("store messages: %w", err)
	}
	a.l.Debug("stored messages", log.Int("count", batch.Len()))
	return batch.Len(), nil
}

func (a *Archive) startRun(ctx context.Context) error {
	_, err := a.pool.Exec(ctx,
		`insert into archive_run (run_id, source) values ($1, $2)
on conflict (run_id) do nothing`, a.runID, a.source)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

func (a *Archive) finishRun(ctx context.Context) error {
	_, err := a.pool.Exec(ctx,
		`update archive_run set finished_at = now() where run_id = $1`, a.runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

type Run struct {
	ID         uuid.UUID  `json:"id"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Messages   int        `json:"messages"`
}

// Runs lists the archived runs, latest first
func Runs(ctx context.Context, pool *pgxpool.Pool) ([]Run, error) {
	rows, err := pool.Query(ctx, `select r.run_id, r.source, r.started_at, r.finished_at,
  (select count(*) from outbox_message m where m.run_id = r.run_id)
from archive_run r order by r.started_at desc`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var r Run
		err := row.Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Messages)
		return r, err
	})
}

// Load returns the stored messages of a run ordered by seq.
// Data holds the raw JSON payload.
//
//nolint:whitespace // editor/linter issue
func Load(
	ctx context.Context, pool *pgxpool.Pool, runID uuid.UUID,
) ([]outbox.Message, error) {
	rows, err := pool.Query(ctx, `select seq, channel, payload, created_at
from outbox_message where run_id = $1 order by seq`, runID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Message, error) {
		var msg outbox.Message
		var payload []byte
		if err := row.Scan(&msg.Seq, &msg.Channel, &payload, &msg.Time); err != nil {
			return msg, err
		}
		msg.Data = json.RawMessage(payload)
		return msg, nil
	})
}
