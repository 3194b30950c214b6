// Package client is the Go SDK for the chat service: a websocket session
// with automatic reconnection, a debounced send queue, and optimistic
// message tracking.
package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/neegandary/NexChat/client/optimistic"
	"github.com/neegandary/NexChat/client/queue"
	"github.com/neegandary/NexChat/internal/delivery"
	"github.com/neegandary/NexChat/internal/hub"
	"github.com/neegandary/NexChat/internal/model"
)

// Re-exported wire types so SDK callers need only this package.
type (
	CanonicalPayload = model.CanonicalPayload
	SubmitRequest    = model.SubmitRequest
)

type serverError struct {
	Message   string `json:"message"`
	ClientTag string `json:"clientTag,omitempty"`
}

// Client is one user's live connection to the chat service.
type Client struct {
	wsURL  string
	userID string
	dialer *websocket.Dialer

	queueCfg             queue.Config
	reconnectMaxInterval time.Duration

	onMessage      func(*CanonicalPayload)
	onMessagesRead func(readerID string)
	onServerError  func(message, clientTag string)
	onDisconnect   func(err error)

	sendQ      *queue.Queue
	reconciler *optimistic.Reconciler

	writeMu   sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closedOnce uint32
}

// New constructs a Client for userID against baseURL (http://host:port).
// The connection is established by Connect.
func New(baseURL, userID string, opts ...Option) (*Client, error) {
	wsURL, err := websocketURL(baseURL, userID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		wsURL:                wsURL,
		userID:               userID,
		dialer:               &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reconnectMaxInterval: 30 * time.Second,
		reconciler:           optimistic.New(),
		ctx:                  ctx,
		cancel:               cancel,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			cancel()
			return nil, err
		}
	}
	c.sendQ = queue.New(c, c.queueCfg)
	return c, nil
}

func websocketURL(baseURL, userID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the service, retrying with exponential backoff until ctx
// expires, then starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	if atomic.LoadUint32(&c.closedOnce) == 1 {
		return ErrClosed
	}
	if err := c.dial(ctx); err != nil {
		return err
	}
	c.wg.Add(1)
	go c.run()
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	exp := backoff.NewExponentialBackOff()
	exp.MaxInterval = c.reconnectMaxInterval
	exp.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
		if err != nil {
			reconnectsTotal.Inc()
			return err
		}
		c.writeMu.Lock()
		c.conn = conn
		c.writeMu.Unlock()
		c.connected.Store(true)
		return nil
	}, backoff.WithContext(exp, ctx))
}

// run owns the read loop and reconnection. It exits only on Close.
func (c *Client) run() {
	defer c.wg.Done()
	for {
		err := c.readLoop()
		c.connected.Store(false)
		if c.ctx.Err() != nil {
			return
		}
		if c.onDisconnect != nil {
			c.onDisconnect(err)
		}
		if err := c.dial(c.ctx); err != nil {
			return
		}
	}
}

func (c *Client) readLoop() error {
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()

	for {
		var env hub.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		c.dispatch(&env)
	}
}

func (c *Client) dispatch(env *hub.Envelope) {
	eventsTotal.WithLabelValues(env.Type).Inc()
	switch env.Type {
	case delivery.EventReceiveMessage:
		var payload CanonicalPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return
		}
		c.reconciler.Resolve(&payload)
		if c.onMessage != nil {
			c.onMessage(&payload)
		}
	case delivery.EventMessagesRead:
		var receipt delivery.ReadReceipt
		if err := json.Unmarshal(env.Payload, &receipt); err != nil {
			return
		}
		if c.onMessagesRead != nil {
			c.onMessagesRead(receipt.ReaderID)
		}
	case hub.EventError:
		var se serverError
		if err := json.Unmarshal(env.Payload, &se); err != nil {
			return
		}
		if se.ClientTag != "" {
			c.reconciler.Fail(se.ClientTag)
		}
		if c.onServerError != nil {
			c.onServerError(se.Message, se.ClientTag)
		}
	}
}

// SendText submits a text message. It returns the provisional entry
// immediately; the queue delivers in the background and the entry is
// confirmed when the canonical payload echoes back.
func (c *Client) SendText(recipientID, content string) (optimistic.Entry, error) {
	return c.submit(model.SubmitRequest{
		SenderID:    c.userID,
		RecipientID: recipientID,
		MessageType: model.MessageTypeText,
		Content:     content,
	})
}

// SendFile submits a file-reference message.
func (c *Client) SendFile(recipientID, fileRef string) (optimistic.Entry, error) {
	return c.submit(model.SubmitRequest{
		SenderID:    c.userID,
		RecipientID: recipientID,
		MessageType: model.MessageTypeFile,
		FileRef:     fileRef,
	})
}

func (c *Client) submit(req model.SubmitRequest) (optimistic.Entry, error) {
	entry := c.reconciler.Add(req)
	req.ClientTag = entry.ClientTag

	p, err := c.sendQ.Enqueue(req)
	if err != nil {
		c.reconciler.Fail(entry.ClientTag)
		sendsTotal.WithLabelValues("rejected").Inc()
		return entry, err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := p.Wait(c.ctx); err != nil {
			c.reconciler.Fail(entry.ClientTag)
			sendsTotal.WithLabelValues("failed").Inc()
			return
		}
		sendsTotal.WithLabelValues("sent").Inc()
	}()
	return entry, nil
}

// Retry resubmits a failed message under a fresh provisional identity.
func (c *Client) Retry(clientTag string) (optimistic.Entry, error) {
	entry, req, ok := c.reconciler.Retry(clientTag)
	if !ok {
		return optimistic.Entry{}, ErrQueueCleared
	}
	if _, err := c.sendQ.Enqueue(req); err != nil {
		c.reconciler.Fail(entry.ClientTag)
		return entry, err
	}
	return entry, nil
}

// MarkAsRead tells the service this user has read everything from contactID.
// Sent immediately, outside the queue.
func (c *Client) MarkAsRead(contactID string) error {
	return c.writeEvent(hub.EventMarkAsRead, map[string]string{"contactId": contactID})
}

// Messages returns the visible optimistic entries in submission order.
// Failed submissions are not included; see FailedMessages.
func (c *Client) Messages() []optimistic.Entry { return c.reconciler.Snapshot() }

// FailedMessages returns the failed submissions awaiting Retry or dismissal.
func (c *Client) FailedMessages() []optimistic.Entry { return c.reconciler.Failed() }

// ClearQueue rejects all waiting submissions, e.g. when the user switches
// conversations.
func (c *Client) ClearQueue() { c.sendQ.Clear() }

// Send hands one submission to the transport. It is the queue.Sender
// implementation; application code uses SendText/SendFile.
func (c *Client) Send(req model.SubmitRequest) error {
	return c.writeEvent(hub.EventSendMessage, map[string]interface{}{
		"recipientId": req.RecipientID,
		"messageType": req.MessageType,
		"content":     req.Content,
		"fileRef":     req.FileRef,
		"clientTag":   req.ClientTag,
	})
}

// Connected reports whether the websocket is currently up.
func (c *Client) Connected() bool { return c.connected.Load() }

func (c *Client) writeEvent(event string, payload interface{}) error {
	if !c.connected.Load() {
		return ErrTransportDown
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrTransportDown
	}
	if err := c.conn.WriteJSON(hub.Envelope{Type: event, Payload: raw}); err != nil {
		c.connected.Store(false)
		return ErrTransportDown
	}
	return nil
}

// Close stops the queue, tears down the connection, and waits for background
// goroutines. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.sendQ.Stop()
	c.cancel()
	c.writeMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.writeMu.Unlock()
	c.wg.Wait()
	return nil
}
