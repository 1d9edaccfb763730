// Package nats connects the update loop to a NATS server. Snapshots are
// received on <prefix>.snapshot, outbox messages are published on
// <prefix>.<channel> and commands are accepted as requests on
// <prefix>.command.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/incident"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/outbox"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/source"
)

const (
	SubjectSnapshot = "snapshot"
	SubjectCommand  = "command"
)

type (
	Transport struct {
		conn   *nats.Conn
		prefix string
		bucket string
		kv     jetstream.KeyValue
		l      *log.Logger
	}
	Option func(*Transport)

	// CommandReply is sent as response to a command request
	CommandReply struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}
	SubmitFunc func(ctx context.Context, cmd incident.Command) error
)

func WithPrefix(prefix string) Option {
	return func(t *Transport) {
		t.prefix = prefix
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *Transport) {
		t.l = l
	}
}

// WithIncidentBucket keeps the latest version of every incident in a
// JetStream key value bucket
func WithIncidentBucket(bucket string) Option {
	return func(t *Transport) {
		t.bucket = bucket
	}
}

func New(ctx context.Context, conn *nats.Conn, opts ...Option) (*Transport, error) {
	ret := &Transport{
		conn:   conn,
		prefix: "isw",
		l:      log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.bucket != "" {
		if err := ret.setupKV(ctx); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (t *Transport) setupKV(ctx context.Context) error {
	js, err := jetstream.New(t.conn)
	if err != nil {
		return err
	}
	t.kv, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  t.bucket,
		History: 1,
	})
	return err
}

func (t *Transport) Subject(name string) string {
	return fmt.Sprintf("%s.%s", t.prefix, name)
}

// Forward publishes outbox messages until ctx is done.
func (t *Transport) Forward(ctx context.Context, ob *outbox.Outbox, replay bool) error {
	mb := outbox.NewMailbox()
	remove := ob.AddOutbox(mb, replay)
	defer func() {
		remove()
		mb.Close()
	}()
	for {
		msg, err := mb.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, outbox.ErrClosed) {
				return nil
			}
			return err
		}
		data, err := json.Marshal(msg)
		if err != nil {
			t.l.Warn("could not encode message",
				log.String("channel", msg.Channel), log.ErrorField(err))
			continue
		}
		if err := t.conn.Publish(t.Subject(msg.Channel), data); err != nil {
			t.l.Warn("could not publish message",
				log.String("channel", msg.Channel), log.ErrorField(err))
		}
		t.storeIncident(ctx, msg)
	}
}

func (t *Transport) storeIncident(ctx context.Context, msg outbox.Message) {
	if t.kv == nil {
		return
	}
	inc, ok := msg.Data.(model.Incident)
	if !ok {
		return
	}
	data, err := json.Marshal(inc)
	if err != nil {
		t.l.Warn("could not encode incident",
			log.Int("id", inc.ID), log.ErrorField(err))
		return
	}
	rev, err := t.kv.Put(ctx, IncidentKey(inc.ID), data)
	if err != nil {
		t.l.Warn("could not store incident",
			log.Int("id", inc.ID), log.ErrorField(err))
		return
	}
	t.l.Debug("incident put", log.Int("id", inc.ID), log.Uint64("rev", rev))
}

// IncidentKey is the key of an incident in the incident bucket
func IncidentKey(id int) string {
	return "incident." + strconv.Itoa(id)
}

// SubscribeSnapshots pushes snapshots received from NATS into live
//
//nolint:whitespace // editor/linter issue
func (t *Transport) SubscribeSnapshots(
	live *source.LiveSource,
) (*nats.Subscription, error) {
	return t.conn.Subscribe(t.Subject(SubjectSnapshot), func(m *nats.Msg) {
		var snap model.Snapshot
		if err := json.Unmarshal(m.Data, &snap); err != nil {
			t.l.Warn("invalid snapshot", log.ErrorField(err))
			return
		}
		live.Push(snap)
	})
}

// SubscribeCommands answers command requests using submit
//
//nolint:whitespace // editor/linter issue
func (t *Transport) SubscribeCommands(
	ctx context.Context, submit SubmitFunc,
) (*nats.Subscription, error) {
	return t.conn.Subscribe(t.Subject(SubjectCommand), func(m *nats.Msg) {
		reply := CommandReply{OK: true}
		var cmd incident.Command
		err := json.Unmarshal(m.Data, &cmd)
		if err == nil {
			err = submit(ctx, cmd)
		}
		if err != nil {
			reply = CommandReply{Error: err.Error()}
		}
		if m.Reply == "" {
			return
		}
		data, _ := json.Marshal(reply)
		if err := m.Respond(data); err != nil {
			t.l.Warn("could not respond to command", log.ErrorField(err))
		}
	})
}

// PublishSnapshot sends snap to the snapshot subject (used by providers and tests)
func (t *Transport) PublishSnapshot(snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return t.conn.Publish(t.Subject(SubjectSnapshot), data)
}
