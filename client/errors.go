package client

import (
	"errors"

	"github.com/neegandary/NexChat/client/queue"
)

// Re-export queue errors so callers compare against a single symbol.
var (
	// ErrTransportDown is returned when a submission arrives while the
	// websocket is disconnected. Submissions are never retried implicitly;
	// the caller decides whether to retry once the transport is back.
	ErrTransportDown = queue.ErrTransportDown

	// ErrQueueCleared is returned to submissions rejected by Clear.
	ErrQueueCleared = queue.ErrCleared

	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("client closed")
)

// IsTransportDown reports whether err indicates a disconnected transport.
func IsTransportDown(err error) bool { return errors.Is(err, ErrTransportDown) }
