package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubscribeFiltersByTopic(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var cart, all []Topic

	bus.Subscribe(TopicCartUpdated, func(_ context.Context, ev Event) { cart = append(cart, ev.Topic) })
	bus.SubscribeAll(func(_ context.Context, ev Event) { all = append(all, ev.Topic) })

	bus.Publish(context.Background(), Event{Topic: TopicCartUpdated})
	bus.Publish(context.Background(), Event{Topic: TopicAuthChanged})

	assert.Equal(t, []Topic{TopicCartUpdated}, cart)
	assert.Equal(t, []Topic{TopicCartUpdated, TopicAuthChanged}, all)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	n := 0
	unsub := bus.Subscribe(TopicAuthChanged, func(context.Context, Event) { n++ })

	bus.Publish(context.Background(), Event{Topic: TopicAuthChanged})
	unsub()
	bus.Publish(context.Background(), Event{Topic: TopicAuthChanged})

	assert.Equal(t, 1, n)
}

func TestPublishStampsTime(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var got Event
	bus.SubscribeAll(func(_ context.Context, ev Event) { got = ev })

	bus.Publish(context.Background(), Event{Topic: TopicCartUpdated})
	assert.False(t, got.Time.IsZero())
}

func TestChannelScopesToSessionAndDrops(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ch, stop := bus.Channel("s1", 1)

	bus.Publish(context.Background(), Event{Topic: TopicCartUpdated, SessionID: "s2"})
	bus.Publish(context.Background(), Event{Topic: TopicCartUpdated, SessionID: "s1", Payload: CartUpdated{Count: 1}})
	bus.Publish(context.Background(), Event{Topic: TopicCartUpdated, SessionID: "s1", Payload: CartUpdated{Count: 2}})

	ev := <-ch
	require.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, 1, ev.Payload.(CartUpdated).Count)

	stop()
	stop()
	_, open := <-ch
	assert.False(t, open)

	// Publishing after stop must not panic on the closed channel.
	bus.Publish(context.Background(), Event{Topic: TopicCartUpdated, SessionID: "s1"})
}
