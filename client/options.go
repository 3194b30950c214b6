package client

// Functional options applied during construction in New. Options must be
// deterministic and side-effect free.

import (
	"fmt"
	"time"

	"github.com/neegandary/NexChat/client/queue"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithQueueConfig overrides the send queue tuning (debounce window, batch
// cap, pacing). Zero-valued fields keep their defaults.
func WithQueueConfig(cfg queue.Config) Option {
	return func(c *Client) error {
		c.queueCfg = cfg
		return nil
	}
}

// WithHandshakeTimeout bounds the websocket handshake on each dial attempt.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("handshake timeout must be > 0")
		}
		c.dialer.HandshakeTimeout = d
		return nil
	}
}

// WithReconnectMaxInterval caps the exponential backoff between reconnect
// attempts after a dropped connection.
func WithReconnectMaxInterval(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("reconnect max interval must be > 0")
		}
		c.reconnectMaxInterval = d
		return nil
	}
}

// OnMessage registers the callback invoked for every delivered message,
// after optimistic reconciliation has run.
func OnMessage(fn func(*CanonicalPayload)) Option {
	return func(c *Client) error {
		c.onMessage = fn
		return nil
	}
}

// OnMessagesRead registers the callback invoked when a counterpart reads
// this user's messages.
func OnMessagesRead(fn func(readerID string)) Option {
	return func(c *Client) error {
		c.onMessagesRead = fn
		return nil
	}
}

// OnServerError registers the callback for errorMessage events.
func OnServerError(fn func(message, clientTag string)) Option {
	return func(c *Client) error {
		c.onServerError = fn
		return nil
	}
}

// OnDisconnect registers the callback invoked when the connection drops,
// before reconnection begins.
func OnDisconnect(fn func(err error)) Option {
	return func(c *Client) error {
		c.onDisconnect = fn
		return nil
	}
}
