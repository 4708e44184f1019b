package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// broadcastChannel is the Redis pub/sub channel carrying all deliveries.
const broadcastChannel = "realtime.broadcast"

type bridgeMessage struct {
	Channel       string                 `json:"channel"`
	Event         string                 `json:"event"`
	Payload       map[string]interface{} `json:"payload"`
	ExcludeSocket string                 `json:"exclude_socket,omitempty"`
}

// Bridge is a shared.Transport backed by Redis pub/sub. Sends are published
// to Redis; every node's Run loop picks them up and fans out to its local
// hub, so a delivery reaches subscribers on all nodes.
type Bridge struct {
	rdb    *redis.Client
	hub    *Hub
	logger *slog.Logger
}

// NewBridge creates a Bridge over the given Redis client and local hub.
func NewBridge(rdb *redis.Client, hub *Hub, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		rdb:    rdb,
		hub:    hub,
		logger: logger.With("component", "realtime_bridge"),
	}
}

// Send implements shared.Transport by publishing the delivery to Redis.
func (b *Bridge) Send(ctx context.Context, d shared.Delivery) error {
	data, err := json.Marshal(bridgeMessage{
		Channel:       WireName(d.Channel),
		Event:         d.Event,
		Payload:       d.Payload,
		ExcludeSocket: d.ExcludeSocket,
	})
	if err != nil {
		return fmt.Errorf("realtime: marshal delivery: %w", err)
	}

	if err := b.rdb.Publish(ctx, broadcastChannel, data).Err(); err != nil {
		return fmt.Errorf("realtime: publish delivery: %w", err)
	}
	return nil
}

// Run subscribes to the broadcast channel and forwards every message to the
// local hub. It blocks until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, broadcastChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var m bridgeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				b.logger.Warn("dropping malformed broadcast", "error", err)
				continue
			}

			if err := b.hub.deliver(m.Channel, m.Event, m.Payload, m.ExcludeSocket); err != nil {
				b.logger.Warn("local delivery failed", "channel", m.Channel, "error", err)
			}
		}
	}
}
