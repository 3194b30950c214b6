package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
)

// submitPayload is the sendMessage wire shape. The sender identity comes
// from the connection, not the payload, so a connection can only submit as
// itself.
type submitPayload struct {
	RecipientID string `json:"recipientId"`
	MessageType string `json:"messageType"`
	Content     string `json:"content,omitempty"`
	FileRef     string `json:"fileRef,omitempty"`
	ClientTag   string `json:"clientTag,omitempty"`
}

func (p submitPayload) toSubmitRequest(senderID string) model.SubmitRequest {
	return model.SubmitRequest{
		SenderID:    senderID,
		RecipientID: p.RecipientID,
		MessageType: p.MessageType,
		Content:     p.Content,
		FileRef:     p.FileRef,
		ClientTag:   p.ClientTag,
	}
}

// client is one live websocket connection. It satisfies session.Conn so the
// registry can hand it to the delivery pipeline.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	sess   session.Session

	send chan Envelope

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(h *Hub, conn *websocket.Conn, userID string) *client {
	return &client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan Envelope, h.sendQueueSize),
		done:   make(chan struct{}),
	}
}

// ctx returns the lifetime context for work started by this connection.
// Handler work is bounded independently of the socket so an in-flight
// submission survives an abrupt disconnect.
func (c *client) ctx() context.Context {
	return context.Background()
}

// Push queues an event for the write pump. A full queue means the peer has
// stopped draining; the event is dropped and reported so the caller can
// count the miss.
func (c *client) Push(event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{Type: event, Payload: raw}
	select {
	case <-c.done:
		return session.ErrConnClosed
	default:
	}
	select {
	case c.send <- env:
		return nil
	case <-c.done:
		return session.ErrConnClosed
	default:
		return session.ErrSendQueueFull
	}
}

func (c *client) sendError(msg, clientTag string) {
	_ = c.Push(EventError, errorPayload{Message: msg, ClientTag: clientTag})
}

// readPump decodes client events until the socket dies, then tears the
// connection down exactly once.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("user_id", c.userID).Msg("read loop ended")
			}
			return
		}
		c.hub.dispatch(c, &env)
	}
}

// writePump serializes all socket writes through one goroutine.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// close unregisters the session (ignored if a newer connection replaced it)
// and closes the socket. Safe to call from either pump.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.sessions.Unregister(c.sess)
		_ = c.conn.Close()
		c.hub.log.Info().Str("user_id", c.userID).Msg("connection closed")
	})
}
