// Package realtime implements the WebSocket fan-out layer: a hub of
// channel-subscribed connections, a Redis pub/sub bridge for multi-node
// delivery, and signed channel grants for private and presence channels.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// Membership events emitted on presence channels. The roster goes to the new
// subscriber; joins and leaves go to everyone else, deduplicated per user so
// a second tab of the same user is silent.
const (
	presenceStateEvent  = "presence.state"
	presenceJoinedEvent = "presence.joined"
	presenceLeftEvent   = "presence.left"
)

func isPresenceChannel(wire string) bool {
	return strings.HasPrefix(wire, "presence-")
}

// WireName returns the subscription name clients use for a channel. Private
// and presence channels carry a kind prefix so the same resource name can
// back both contracts.
func WireName(ch shared.Channel) string {
	switch ch.Kind {
	case shared.ChannelPrivate:
		return "private-" + ch.Name
	case shared.ChannelPresence:
		return "presence-" + ch.Name
	default:
		return ch.Name
	}
}

// Envelope is the wire format delivered to subscribed connections.
type Envelope struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

// Hub tracks live connections and their channel subscriptions.
//
// The hub is a local shared.Transport: Send delivers to connections on this
// node only. Behind the Redis bridge it becomes cluster-wide.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]bool
	clients  map[string]*Client // by socket ID
	logger   *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		channels: make(map[string]map[*Client]bool),
		clients:  make(map[string]*Client),
		logger:   logger.With("component", "realtime_hub"),
	}
}

// Register adds a connected client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.SocketID] = c
}

// Unregister removes a client and all its subscriptions, announcing its
// departure on any presence channels where it was the user's last connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.SocketID)

	var departed []string
	for name, subs := range h.channels {
		if !subs[c] {
			continue
		}
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, name)
		}
		if isPresenceChannel(name) && h.lastForUserLocked(name, c.UserID) {
			departed = append(departed, name)
		}
	}
	h.mu.Unlock()

	for _, name := range departed {
		h.announce(name, presenceLeftEvent, c)
	}
}

// Subscribe adds a client to a channel. On a presence channel the new
// subscriber receives the current roster, and the user's first connection is
// announced to the other subscribers.
func (h *Hub) Subscribe(c *Client, channel string) {
	h.mu.Lock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*Client]bool)
		h.channels[channel] = subs
	}
	alreadyMember := isPresenceChannel(channel) && !h.lastForUserLocked(channel, c.UserID)
	subs[c] = true
	h.mu.Unlock()

	if !isPresenceChannel(channel) {
		return
	}

	h.sendTo(c, channel, presenceStateEvent, map[string]interface{}{
		"members": h.Presence(channel),
	})
	if !alreadyMember {
		h.announce(channel, presenceJoinedEvent, c)
	}
}

// Unsubscribe removes a client from a channel, announcing the departure on a
// presence channel when it was the user's last connection there.
func (h *Hub) Unsubscribe(c *Client, channel string) {
	h.mu.Lock()
	subs, ok := h.channels[channel]
	if !ok {
		h.mu.Unlock()
		return
	}
	wasSubscribed := subs[c]
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.channels, channel)
	}
	departed := wasSubscribed && isPresenceChannel(channel) && h.lastForUserLocked(channel, c.UserID)
	h.mu.Unlock()

	if departed {
		h.announce(channel, presenceLeftEvent, c)
	}
}

// lastForUserLocked reports whether the user has no remaining connection on
// the channel. Callers hold h.mu.
func (h *Hub) lastForUserLocked(channel, userID string) bool {
	for other := range h.channels[channel] {
		if other.UserID == userID {
			return false
		}
	}
	return true
}

func (h *Hub) announce(channel, event string, c *Client) {
	_ = h.deliver(channel, event, map[string]interface{}{"user_id": c.UserID}, c.SocketID)
}

func (h *Hub) sendTo(c *Client, wire, event string, payload map[string]interface{}) {
	data, err := json.Marshal(Envelope{Channel: wire, Event: event, Payload: payload})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("dropping delivery to slow client",
			"socket_id", c.SocketID,
			"channel", wire,
		)
	}
}

// Presence returns the user IDs currently subscribed to a channel.
func (h *Hub) Presence(channel string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	var users []string
	for c := range h.channels[channel] {
		if c.UserID != "" && !seen[c.UserID] {
			seen[c.UserID] = true
			users = append(users, c.UserID)
		}
	}
	return users
}

// Send implements shared.Transport: it delivers the payload to every local
// subscriber of the channel except the excluded socket. Slow clients are
// skipped, not waited for.
func (h *Hub) Send(ctx context.Context, d shared.Delivery) error {
	return h.deliver(WireName(d.Channel), d.Event, d.Payload, d.ExcludeSocket)
}

func (h *Hub) deliver(wire, event string, payload map[string]interface{}, excludeSocket string) error {
	data, err := json.Marshal(Envelope{
		Channel: wire,
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	subs := h.channels[wire]
	targets := make([]*Client, 0, len(subs))
	for c := range subs {
		if excludeSocket != "" && c.SocketID == excludeSocket {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping delivery to slow client",
				"socket_id", c.SocketID,
				"channel", wire,
			)
		}
	}
	return nil
}
