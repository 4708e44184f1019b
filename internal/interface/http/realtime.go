package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tutorhub/tutorhub/internal/infrastructure/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,

	// Origin is enforced by the CORS middleware; the upgrade itself accepts
	// any origin carrying a valid session token.
	CheckOrigin: func(*http.Request) bool { return true },
}

type channelAuthRequest struct {
	Channel string `json:"channel"`
}

// handleChannelAuth issues a subscription grant for a private or presence
// channel after checking the actor may join it. Public channels need no
// grant and are rejected here.
func (s *Server) handleChannelAuth(w http.ResponseWriter, r *http.Request) {
	var req channelAuthRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	if !realtime.RequiresGrant(req.Channel) {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Channel does not require authorization")
		return
	}

	if !s.mayJoin(r, req.Channel) {
		writeJSONError(w, http.StatusForbidden, "forbidden", "You may not join this channel")
		return
	}

	grant, err := s.deps.ChannelAuth.IssueGrant(actorID(r).String(), req.Channel)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "Could not issue grant")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"auth": grant})
}

// mayJoin decides channel membership. Student channels belong to exactly one
// user; offering channels belong to the offering's participants.
func (s *Server) mayJoin(r *http.Request, wireName string) bool {
	name := strings.TrimPrefix(strings.TrimPrefix(wireName, "private-"), "presence-")

	resource, id, ok := strings.Cut(name, ".")
	if !ok {
		return false
	}

	switch resource {
	case "student":
		return id == actorID(r).String()

	case "offering":
		offeringID, err := uuid.Parse(id)
		if err != nil {
			return false
		}
		o, err := s.deps.Offerings.GetByID(r.Context(), offeringID)
		if err != nil {
			return false
		}
		return o.Participant(actorID(r))

	default:
		return false
	}
}

// handleWebSocket upgrades the connection and hands it to the hub. The
// session token authenticates the user; individual channel subscriptions are
// authorized per-channel via grants.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Warn("websocket upgrade failed", "error", err, "ip", getClientIP(r))
		return
	}

	client := realtime.NewClient(s.deps.Hub, s.deps.ChannelAuth, conn, actorID(r).String(), s.logger)
	go client.Run()
}
