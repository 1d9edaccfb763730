// Package outbox distributes messages to consumers. Messages sent with Send
// are kept in a log which can be replayed to consumers attaching later.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
)

type Message struct {
	Seq       int       `json:"seq"` // position in the log, 0 for transient messages
	Channel   string    `json:"channel"`
	Data      any       `json:"data"`
	Transient bool      `json:"transient,omitempty"`
	Time      time.Time `json:"time"`
}

// Consumer receives messages. Deliver is called while the outbox is locked,
// implementations must not block and must not call back into the outbox.
type Consumer interface {
	Deliver(msg Message)
}

type ConsumerFunc func(msg Message)

func (f ConsumerFunc) Deliver(msg Message) {
	f(msg)
}

type listener struct {
	id       int
	consumer Consumer
}

type Outbox struct {
	mu        sync.Mutex
	name      string
	log       []Message
	listeners []listener
	nextID    int
	numRcv    int
	numSnd    int
	numTrans  int
	now       func() time.Time
	l         *log.Logger
}

type Option func(o *Outbox)

func WithName(name string) Option {
	return func(o *Outbox) {
		o.name = name
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *Outbox) {
		o.l = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Outbox) {
		o.now = now
	}
}

func New(opts ...Option) *Outbox {
	ret := &Outbox{
		name: "default",
		now:  time.Now,
		l:    log.Default().Named("outbox"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.setupMetrics()
	return ret
}

// Send appends a message to the log and forwards it to all attached consumers
func (o *Outbox) Send(channel string, data any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	msg := Message{
		Seq:     len(o.log) + 1,
		Channel: channel,
		Data:    data,
		Time:    o.now(),
	}
	o.log = append(o.log, msg)
	o.numRcv++
	o.forward(msg)
}

// SendTransient forwards a message without adding it to the log
func (o *Outbox) SendTransient(channel string, data any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.numTrans++
	o.forward(Message{Channel: channel, Data: data, Transient: true, Time: o.now()})
}

func (o *Outbox) forward(msg Message) {
	for _, l := range o.listeners {
		l.consumer.Deliver(msg)
		o.numSnd++
	}
}

// AddOutbox attaches c. If replay is true, the whole log is delivered to c
// before any message sent afterwards. The returned function detaches c.
func (o *Outbox) AddOutbox(c Consumer, replay bool) (remove func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if replay {
		for _, msg := range o.log {
			c.Deliver(msg)
			o.numSnd++
		}
	}
	o.nextID++
	id := o.nextID
	o.listeners = append(o.listeners, listener{id: id, consumer: c})
	o.l.Debug("consumer attached",
		log.String("name", o.name),
		log.Int("id", id),
		log.Bool("replay", replay),
		log.Int("replayed", len(o.log)))
	var once sync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

func (o *Outbox) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, l := range o.listeners {
		if l.id == id {
			o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
			o.l.Debug("consumer detached", log.String("name", o.name), log.Int("id", id))
			return
		}
	}
}

// Log returns a copy of all logged messages
func (o *Outbox) Log() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	ret := make([]Message, len(o.log))
	copy(ret, o.log)
	return ret
}

func (o *Outbox) Listeners() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.listeners)
}

func (o *Outbox) stats() (rcv, snd, trans, listeners, logSize int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return int64(o.numRcv), int64(o.numSnd), int64(o.numTrans),
		int64(len(o.listeners)), int64(len(o.log))
}

//nolint:funlen // readability
func (o *Outbox) setupMetrics() {
	meter := otel.GetMeterProvider().Meter(fmt.Sprintf("isw.outbox.%s", o.name))
	register := func(metricName, desc string, pick func() int64) {
		if _, err := meter.Int64ObservableGauge(
			metricName,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
				obs.Observe(pick(), metric.WithAttributes(attribute.String("name", o.name)))
				return nil
			})); err != nil {
			o.l.Error("failed to register metric",
				log.String("metric", metricName),
				log.ErrorField(err))
		}
	}
	type data struct {
		name string
		desc string
		pick func() int64
	}
	for _, d := range []data{
		{"isw.outbox.rcv", "Number of logged messages", func() int64 {
			v, _, _, _, _ := o.stats()
			return v
		}},
		{"isw.outbox.snd", "Number of delivered messages", func() int64 {
			_, v, _, _, _ := o.stats()
			return v
		}},
		{"isw.outbox.transient", "Number of transient messages", func() int64 {
			_, _, v, _, _ := o.stats()
			return v
		}},
		{"isw.outbox.listener", "Number of attached consumers", func() int64 {
			_, _, _, v, _ := o.stats()
			return v
		}},
		{"isw.outbox.log", "Size of the replay log", func() int64 {
			_, _, _, _, v := o.stats()
			return v
		}},
	} {
		register(d.name, d.desc, d.pick)
	}
}
