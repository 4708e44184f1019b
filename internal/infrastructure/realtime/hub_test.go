package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

func testClient(socketID, userID string) *Client {
	return &Client{
		SocketID: socketID,
		UserID:   userID,
		send:     make(chan []byte, 8),
	}
}

func drain(c *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case data := <-c.send:
			var env Envelope
			if err := json.Unmarshal(data, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func TestWireNameCarriesKindPrefix(t *testing.T) {
	assert.Equal(t, "offerings", WireName(shared.PublicChannel("offerings")))
	assert.Equal(t, "private-student.u1", WireName(shared.PrivateChannel("student", "u1")))
	assert.Equal(t, "presence-offering.o1", WireName(shared.PresenceChannel("offering", "o1")))
}

func TestHubDeliversToSubscribersOnly(t *testing.T) {
	h := NewHub(nil)

	subscriber := testClient("s-1", "u-1")
	bystander := testClient("s-2", "u-2")
	h.Register(subscriber)
	h.Register(bystander)
	h.Subscribe(subscriber, "private-student.u-1")

	err := h.Send(context.Background(), shared.Delivery{
		Channel: shared.PrivateChannel("student", "u-1"),
		Event:   "dashboard.updated",
		Payload: map[string]interface{}{"type": "offering_accepted"},
	})
	require.NoError(t, err)

	got := drain(subscriber)
	require.Len(t, got, 1)
	assert.Equal(t, "private-student.u-1", got[0].Channel)
	assert.Equal(t, "dashboard.updated", got[0].Event)
	assert.Equal(t, "offering_accepted", got[0].Payload["type"])

	assert.Empty(t, drain(bystander))
}

func TestHubExcludesOriginatingSocket(t *testing.T) {
	h := NewHub(nil)

	origin := testClient("s-origin", "u-1")
	other := testClient("s-other", "u-1")
	h.Register(origin)
	h.Register(other)
	h.Subscribe(origin, "private-student.u-1")
	h.Subscribe(other, "private-student.u-1")

	err := h.Send(context.Background(), shared.Delivery{
		Channel:       shared.PrivateChannel("student", "u-1"),
		Event:         "dashboard.updated",
		Payload:       map[string]interface{}{},
		ExcludeSocket: "s-origin",
	})
	require.NoError(t, err)

	// The user's other tab still hears the update; the tab that caused it
	// does not.
	assert.Empty(t, drain(origin))
	assert.Len(t, drain(other), 1)
}

func TestHubSkipsSlowClients(t *testing.T) {
	h := NewHub(nil)

	slow := &Client{SocketID: "s-slow", UserID: "u-1", send: make(chan []byte)}
	fast := testClient("s-fast", "u-2")
	h.Register(slow)
	h.Register(fast)
	h.Subscribe(slow, "offerings")
	h.Subscribe(fast, "offerings")

	// The slow client's buffer is full; delivery must not block.
	err := h.Send(context.Background(), shared.Delivery{
		Channel: shared.PublicChannel("offerings"),
		Event:   "offering.created",
		Payload: map[string]interface{}{},
	})
	require.NoError(t, err)
	assert.Len(t, drain(fast), 1)
}

func TestHubUnregisterDropsSubscriptions(t *testing.T) {
	h := NewHub(nil)

	c := testClient("s-1", "u-1")
	h.Register(c)
	h.Subscribe(c, "offerings")
	h.Unregister(c)

	require.NoError(t, h.Send(context.Background(), shared.Delivery{
		Channel: shared.PublicChannel("offerings"),
		Event:   "offering.created",
		Payload: map[string]interface{}{},
	}))
	assert.Empty(t, drain(c))
}

func TestPresenceSubscribeSendsRosterAndAnnouncesJoin(t *testing.T) {
	h := NewHub(nil)

	first := testClient("s-1", "u-1")
	h.Register(first)
	h.Subscribe(first, "presence-offering.o-1")

	// The founding member gets a roster of one and no join echo.
	got := drain(first)
	require.Len(t, got, 1)
	assert.Equal(t, presenceStateEvent, got[0].Event)
	assert.Equal(t, []interface{}{"u-1"}, got[0].Payload["members"])

	second := testClient("s-2", "u-2")
	h.Register(second)
	h.Subscribe(second, "presence-offering.o-1")

	got = drain(second)
	require.Len(t, got, 1)
	assert.Equal(t, presenceStateEvent, got[0].Event)
	assert.ElementsMatch(t, []interface{}{"u-1", "u-2"}, got[0].Payload["members"])

	got = drain(first)
	require.Len(t, got, 1)
	assert.Equal(t, presenceJoinedEvent, got[0].Event)
	assert.Equal(t, "u-2", got[0].Payload["user_id"])
}

func TestPresenceSecondTabJoinsSilently(t *testing.T) {
	h := NewHub(nil)

	peer := testClient("s-peer", "u-2")
	tabOne := testClient("s-1", "u-1")
	tabTwo := testClient("s-2", "u-1")
	for _, c := range []*Client{peer, tabOne} {
		h.Register(c)
		h.Subscribe(c, "presence-offering.o-1")
	}
	drain(peer)

	h.Register(tabTwo)
	h.Subscribe(tabTwo, "presence-offering.o-1")

	// The user is already on the roster; the peer hears nothing new.
	assert.Empty(t, drain(peer))

	// Closing one tab is silent; closing the last announces the leave.
	h.Unsubscribe(tabOne, "presence-offering.o-1")
	assert.Empty(t, drain(peer))

	h.Unsubscribe(tabTwo, "presence-offering.o-1")
	got := drain(peer)
	require.Len(t, got, 1)
	assert.Equal(t, presenceLeftEvent, got[0].Event)
	assert.Equal(t, "u-1", got[0].Payload["user_id"])
}

func TestPresenceUnregisterAnnouncesLeave(t *testing.T) {
	h := NewHub(nil)

	leaver := testClient("s-1", "u-1")
	peer := testClient("s-2", "u-2")
	for _, c := range []*Client{leaver, peer} {
		h.Register(c)
		h.Subscribe(c, "presence-offering.o-1")
	}
	drain(peer)

	h.Unregister(leaver)

	got := drain(peer)
	require.Len(t, got, 1)
	assert.Equal(t, presenceLeftEvent, got[0].Event)
	assert.Equal(t, "u-1", got[0].Payload["user_id"])
}

func TestHubPresenceDeduplicatesUsers(t *testing.T) {
	h := NewHub(nil)

	tabOne := testClient("s-1", "u-1")
	tabTwo := testClient("s-2", "u-1")
	peer := testClient("s-3", "u-2")
	for _, c := range []*Client{tabOne, tabTwo, peer} {
		h.Register(c)
		h.Subscribe(c, "presence-offering.o-1")
	}

	users := h.Presence("presence-offering.o-1")
	assert.ElementsMatch(t, []string{"u-1", "u-2"}, users)
}
