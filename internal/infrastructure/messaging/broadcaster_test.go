package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

type captureTransport struct {
	mu         sync.Mutex
	deliveries []shared.Delivery
	err        error
}

func (c *captureTransport) Send(_ context.Context, d shared.Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.deliveries = append(c.deliveries, d)
	return nil
}

func (c *captureTransport) all() []shared.Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]shared.Delivery(nil), c.deliveries...)
}

type broadcastableEvent struct {
	shared.BaseEvent
	channels []shared.Channel
	payload  map[string]interface{}
}

func (e broadcastableEvent) Channels() []shared.Channel { return e.channels }

func (e broadcastableEvent) BroadcastPayload() map[string]interface{} { return e.payload }

func TestBroadcastDeliversToEveryChannel(t *testing.T) {
	transport := &captureTransport{}
	b := NewBroadcaster(transport, nil)

	event := broadcastableEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventOfferingUpdated, "o-1"),
		channels: []shared.Channel{
			shared.PublicChannel("offerings"),
			shared.PrivateChannel("offering", "o-1"),
		},
		payload: map[string]interface{}{"id": "o-1"},
	}

	b.Broadcast(context.Background(), event, "sock-9")

	got := transport.all()
	assert.Len(t, got, 2)
	assert.Equal(t, "offerings", got[0].Channel.Name)
	assert.Equal(t, "offering.o-1", got[1].Channel.Name)
	for _, d := range got {
		assert.Equal(t, "offering.updated", d.Event)
		assert.Equal(t, "sock-9", d.ExcludeSocket)
		assert.Equal(t, "o-1", d.Payload["id"])
	}
}

func TestBroadcastSwallowsTransportErrors(t *testing.T) {
	transport := &captureTransport{err: errors.New("transport down")}
	b := NewBroadcaster(transport, nil)

	event := broadcastableEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventOfferingCreated, "o-1"),
		channels:  []shared.Channel{shared.PublicChannel("offerings")},
		payload:   map[string]interface{}{},
	}

	// Best-effort: must not panic or surface the error.
	b.Broadcast(context.Background(), event, "")
}

func TestHandleIgnoresNonBroadcastableEvents(t *testing.T) {
	transport := &captureTransport{}
	b := NewBroadcaster(transport, nil)

	assert.NoError(t, b.Handle(newTestEvent(shared.EventTutorVerified)))
	assert.Empty(t, transport.all())
}

func TestHandleBroadcastsWithoutExclusion(t *testing.T) {
	transport := &captureTransport{}
	b := NewBroadcaster(transport, nil)

	event := broadcastableEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventMessageSent, "o-1"),
		channels:  []shared.Channel{shared.PresenceChannel("offering", "o-1")},
		payload:   map[string]interface{}{"content": "hi"},
	}

	assert.NoError(t, b.Handle(event))

	got := transport.all()
	assert.Len(t, got, 1)
	assert.Empty(t, got[0].ExcludeSocket)
	assert.Equal(t, shared.ChannelPresence, got[0].Channel.Kind)
}
