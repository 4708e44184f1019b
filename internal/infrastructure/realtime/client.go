package realtime

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// clientCommand is what a connected client may send: subscribe to or leave a
// channel. Private and presence channels require a grant token issued by the
// channel-auth endpoint.
type clientCommand struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	Channel string `json:"channel"`
	Grant   string `json:"grant,omitempty"`
}

// Client is one WebSocket connection registered with the hub.
type Client struct {
	SocketID string
	UserID   string

	hub    *Hub
	auth   *ChannelAuth
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// NewClient wraps an upgraded connection. The socket ID is minted here and
// returned to the client in the first frame so it can tag its own actions.
func NewClient(hub *Hub, auth *ChannelAuth, conn *websocket.Conn, userID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		SocketID: uuid.NewString(),
		UserID:   userID,
		hub:      hub,
		auth:     auth,
		conn:     conn,
		send:     make(chan []byte, 64),
		logger:   logger.With("component", "realtime_client"),
	}
}

// Run registers the client and starts the read and write pumps. It returns
// when the connection closes.
func (c *Client) Run() {
	c.hub.Register(c)

	hello, _ := json.Marshal(map[string]string{"socket_id": c.SocketID})
	c.send <- hello

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("unexpected close", "socket_id", c.SocketID, "error", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd clientCommand) {
	switch cmd.Action {
	case "subscribe":
		if RequiresGrant(cmd.Channel) {
			if err := c.auth.VerifyGrant(cmd.Grant, c.UserID, cmd.Channel); err != nil {
				c.logger.Warn("subscription rejected",
					"socket_id", c.SocketID,
					"channel", cmd.Channel,
					"error", err,
				)
				return
			}
		}
		c.hub.Subscribe(c, cmd.Channel)

	case "unsubscribe":
		c.hub.Unsubscribe(c, cmd.Channel)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
