package delivery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/neegandary/NexChat/internal/session"
	"github.com/neegandary/NexChat/internal/store"
)

// Receipts marks messages read and notifies the counterpart so its UI can
// render delivery ticks. Triggered explicitly (markAsRead) or implicitly by
// a history fetch.
type Receipts struct {
	messages store.Messages
	sessions *session.Registry
	log      zerolog.Logger
}

func NewReceipts(messages store.Messages, sessions *session.Registry, log zerolog.Logger) *Receipts {
	return &Receipts{messages: messages, sessions: sessions, log: log}
}

// MarkRead flips isRead on every unread message from counterpart to reader.
// The update is bulk and idempotent; re-invocation is a no-op. When the
// counterpart is online it receives a messagesRead notification; when not,
// the state is still correct and visible on its next fetch.
func (r *Receipts) MarkRead(ctx context.Context, readerID, counterpartID string) error {
	n, err := r.messages.MarkRead(ctx, readerID, counterpartID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n == 0 {
		return nil
	}
	readReceiptsTotal.Inc()

	conn, ok := r.sessions.Lookup(counterpartID)
	if !ok {
		return nil
	}
	if err := conn.Push(EventMessagesRead, &ReadReceipt{ReaderID: readerID}); err != nil {
		r.log.Warn().Err(err).Str("user_id", counterpartID).Msg("read receipt push failed")
	}
	return nil
}
