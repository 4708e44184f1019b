package shared

import (
	"context"
	"fmt"
)

// ChannelKind classifies a real-time channel by its subscription contract.
type ChannelKind string

const (
	// ChannelPublic requires no subscriber authentication.
	ChannelPublic ChannelKind = "public"

	// ChannelPrivate requires the subscriber to prove an identity matching
	// the channel's id suffix.
	ChannelPrivate ChannelKind = "private"

	// ChannelPresence is private plus a membership roster visible to the
	// other subscribers of the channel.
	ChannelPresence ChannelKind = "presence"
)

// Channel identifies a named real-time channel.
//
// Naming is structural: "{resource}.{id}" for channels scoped to one entity,
// a bare resource name for global list channels.
type Channel struct {
	Kind ChannelKind
	Name string
}

// PublicChannel creates a public channel with a bare resource name.
func PublicChannel(name string) Channel {
	return Channel{Kind: ChannelPublic, Name: name}
}

// PrivateChannel creates a private channel scoped to one entity.
func PrivateChannel(resource, id string) Channel {
	return Channel{Kind: ChannelPrivate, Name: fmt.Sprintf("%s.%s", resource, id)}
}

// PresenceChannel creates a presence channel scoped to one entity.
func PresenceChannel(resource, id string) Channel {
	return Channel{Kind: ChannelPresence, Name: fmt.Sprintf("%s.%s", resource, id)}
}

// String returns the channel name.
func (c Channel) String() string {
	return c.Name
}

// Delivery carries one broadcast to the real-time transport.
type Delivery struct {
	// Channel the payload is delivered to.
	Channel Channel

	// Event is the wire event name, e.g. "offering.updated".
	Event string

	// Payload is the flat serializable broadcast payload.
	Payload map[string]interface{}

	// ExcludeSocket, when non-empty, excludes the connection with this ID
	// from delivery ("broadcast to others").
	ExcludeSocket string
}

// Transport delivers broadcasts to subscribed clients.
//
// Delivery is best-effort: the persisted entity is the source of truth, and a
// failed or dropped delivery never surfaces to the request that raised the
// triggering event.
type Transport interface {
	Send(ctx context.Context, d Delivery) error
}
