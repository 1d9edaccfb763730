package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type collector struct {
	msgs []Message
}

func (c *collector) Deliver(msg Message) {
	c.msgs = append(c.msgs, msg)
}

func (c *collector) channels() []string {
	ret := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		ret[i] = m.Channel
	}
	return ret
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestReplayBeforeNewMessages(t *testing.T) {
	o := New(WithClock(fixedClock))
	o.Send("a", 1)
	o.Send("b", 2)
	o.Send("c", 3)

	c := &collector{}
	o.AddOutbox(c, true)
	o.Send("d", 4)

	assert.Equal(t, []string{"a", "b", "c", "d"}, c.channels())
	for i, m := range c.msgs {
		assert.Equal(t, i+1, m.Seq)
		assert.Equal(t, fixedClock(), m.Time)
	}
}

func TestNoReplay(t *testing.T) {
	o := New()
	o.Send("a", 1)
	c := &collector{}
	o.AddOutbox(c, false)
	o.Send("b", 2)
	assert.Equal(t, []string{"b"}, c.channels())
}

func TestTransientNotLogged(t *testing.T) {
	o := New()
	live := &collector{}
	o.AddOutbox(live, true)
	o.SendTransient("clock", 1.0)
	o.Send("a", 1)

	late := &collector{}
	o.AddOutbox(late, true)

	assert.Equal(t, []string{"clock", "a"}, live.channels())
	assert.True(t, live.msgs[0].Transient)
	assert.Equal(t, 0, live.msgs[0].Seq)
	assert.Equal(t, []string{"a"}, late.channels())
	assert.Len(t, o.Log(), 1)
}

func TestRemove(t *testing.T) {
	o := New()
	c := &collector{}
	remove := o.AddOutbox(c, true)
	assert.Equal(t, 1, o.Listeners())
	remove()
	remove()
	assert.Equal(t, 0, o.Listeners())
	o.Send("a", 1)
	assert.Empty(t, c.msgs)
}

func TestMailbox(t *testing.T) {
	o := New()
	o.Send("a", 1)
	mb := NewMailbox()
	o.AddOutbox(mb, true)
	o.Send("b", 2)
	assert.Equal(t, 2, mb.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, want := range []string{"a", "b"} {
		msg, err := mb.Receive(ctx)
		assert.NoError(t, err)
		assert.Equal(t, want, msg.Channel)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		o.Send("c", 3)
	}()
	msg, err := mb.Receive(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "c", msg.Channel)

	mb.Close()
	_, err = mb.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMailboxContextDone(t *testing.T) {
	mb := NewMailbox()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mb.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
