// Package hub terminates websocket connections and bridges them to the
// session registry and the delivery pipeline.
package hub

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/neegandary/NexChat/internal/delivery"
	"github.com/neegandary/NexChat/internal/session"
)

// Client→server event types. Server→client types live in the delivery
// package next to the code that emits them.
const (
	EventSendMessage = "sendMessage"
	EventMarkAsRead  = "markAsRead"
	EventError       = "errorMessage"
)

// Envelope frames every event on the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// markAsReadPayload identifies whose messages the connected user has read.
type markAsReadPayload struct {
	ContactID string `json:"contactId"`
}

type errorPayload struct {
	Message   string `json:"message"`
	ClientTag string `json:"clientTag,omitempty"`
}

// Hub upgrades websocket requests and runs the per-connection pumps.
type Hub struct {
	sessions *session.Registry
	pipeline *delivery.Pipeline
	receipts *delivery.Receipts
	log      zerolog.Logger

	upgrader      websocket.Upgrader
	sendQueueSize int
}

// Options tune transport buffers.
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendQueueSize   int
}

func New(sessions *session.Registry, pipeline *delivery.Pipeline, receipts *delivery.Receipts, log zerolog.Logger, opts Options) *Hub {
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = 1024
	}
	if opts.WriteBufferSize <= 0 {
		opts.WriteBufferSize = 1024
	}
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = 256
	}
	return &Hub{
		sessions: sessions,
		pipeline: pipeline,
		receipts: receipts,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendQueueSize: opts.SendQueueSize,
	}
}

// HandleConnection serves GET /ws?userId=. The identity arrives as
// connection metadata; credential checks belong to the surrounding glue and
// are out of scope here.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(h, conn, userID)
	c.sess = h.sessions.Register(userID, c)
	h.log.Info().Str("user_id", userID).Msg("connection opened")

	go c.writePump()
	go c.readPump()
}

// dispatch routes one decoded client event.
func (h *Hub) dispatch(c *client, env *Envelope) {
	switch env.Type {
	case EventSendMessage:
		h.handleSendMessage(c, env.Payload)
	case EventMarkAsRead:
		h.handleMarkAsRead(c, env.Payload)
	default:
		c.sendError("unknown event type: "+env.Type, "")
	}
}

func (h *Hub) handleSendMessage(c *client, raw json.RawMessage) {
	var req submitPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendError("invalid sendMessage payload", "")
		return
	}
	sub := req.toSubmitRequest(c.userID)
	if _, err := h.pipeline.Submit(c.ctx(), &sub); err != nil {
		h.log.Warn().Err(err).Str("user_id", c.userID).Msg("submission rejected")
		c.sendError(err.Error(), sub.ClientTag)
	}
}

func (h *Hub) handleMarkAsRead(c *client, raw json.RawMessage) {
	var req markAsReadPayload
	if err := json.Unmarshal(raw, &req); err != nil || req.ContactID == "" {
		c.sendError("invalid markAsRead payload", "")
		return
	}
	if err := h.receipts.MarkRead(c.ctx(), c.userID, req.ContactID); err != nil {
		h.log.Warn().Err(err).Str("user_id", c.userID).Msg("mark-as-read failed")
		c.sendError("mark as read failed", "")
	}
}
