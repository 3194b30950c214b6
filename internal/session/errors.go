package session

import "github.com/pkg/errors"

// Push failure modes. Both mean the event was not handed to the peer; the
// delivery layer counts them as misses rather than failing the operation.
var (
	ErrConnClosed    = errors.New("session: connection closed")
	ErrSendQueueFull = errors.New("session: send queue full")
)
