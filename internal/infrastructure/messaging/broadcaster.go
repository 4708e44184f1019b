package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// Broadcaster routes broadcastable events to the real-time transport.
//
// Delivery is best-effort: a transport error is logged and swallowed, never
// returned to the publisher. The persisted entity remains the source of
// truth; clients must tolerate dropped or out-of-order deliveries.
type Broadcaster struct {
	transport shared.Transport
	logger    *slog.Logger
	timeout   time.Duration
}

// NewBroadcaster creates a Broadcaster over the given transport.
func NewBroadcaster(transport shared.Transport, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		transport: transport,
		logger:    logger.With("component", "broadcaster"),
		timeout:   5 * time.Second,
	}
}

// Broadcast computes the event's wire payload and delivers it to each of the
// event's channels, excluding the given socket when non-empty.
func (b *Broadcaster) Broadcast(ctx context.Context, event shared.Broadcastable, excludeSocket string) {
	payload := event.BroadcastPayload()

	for _, ch := range event.Channels() {
		sendCtx, cancel := context.WithTimeout(ctx, b.timeout)
		err := b.transport.Send(sendCtx, shared.Delivery{
			Channel:       ch,
			Event:         string(event.EventType()),
			Payload:       payload,
			ExcludeSocket: excludeSocket,
		})
		cancel()

		if err != nil {
			b.logger.Warn("broadcast delivery failed",
				"channel", ch.Name,
				"event_type", event.EventType(),
				"error", err,
			)
		}
	}
}

// Handle broadcasts a published event to its channels. Registered on the
// dispatcher for every broadcastable event type except dashboard updates,
// which are re-broadcast by their own listener with socket exclusion.
func (b *Broadcaster) Handle(event shared.Event) error {
	bc, ok := event.(shared.Broadcastable)
	if !ok {
		return nil
	}

	b.Broadcast(context.Background(), bc, "")
	return nil
}
