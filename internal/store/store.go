package store

import (
	"context"
	"time"

	"github.com/neegandary/NexChat/internal/model"
)

// Store exposes persistence operations required by the delivery pipeline and
// read paths. Implementations live under internal/store/<driver>/.
type Store interface {
	Messages() Messages
	Conversations() Conversations
	Profiles() Profiles

	// HealthPing probes the underlying database.
	HealthPing(ctx context.Context) error
}

// Messages is the durable, append-only message log. Records are never
// deleted in normal operation; archival is a flag.
type Messages interface {
	// Create appends a message. The store assigns MessageID and the
	// authoritative server timestamp.
	Create(ctx context.Context, m *model.Message) (*model.Message, error)

	// ListBetween returns the full history between two identities ordered by
	// timestamp ascending (message id as deterministic tie-break).
	ListBetween(ctx context.Context, a, b string) ([]*model.Message, error)

	// MarkRead flips isRead on all unread messages sent by counterpart to
	// reader. Idempotent; returns the number of rows affected.
	MarkRead(ctx context.Context, reader, counterpart string) (int64, error)

	// SetArchived updates the archive flag on every message between the two
	// identities.
	SetArchived(ctx context.Context, a, b string, archived bool) error

	// ContactRows groups all messages involving the viewer by counterpart
	// and returns, per counterpart, the most recent message (timestamp desc,
	// message id desc as tie-break) plus the count of unread messages
	// directed at the viewer. Ordered by last message timestamp descending.
	ContactRows(ctx context.Context, viewerID string) ([]*model.ContactRow, error)
}

// Conversations maps unordered participant pairs to conversation records.
type Conversations interface {
	// Upsert atomically finds or creates the 1:1 conversation for the pair.
	// Two concurrent first-messages for the same pair must collapse to one
	// record.
	Upsert(ctx context.Context, a, b string) (*model.Conversation, error)

	// Get returns a conversation by id.
	Get(ctx context.Context, conversationID string) (*model.Conversation, error)

	// SetLatest points the conversation at its newest message. Best-effort
	// ordering: concurrent appends may race, the pointer only has to
	// converge to some message.
	SetLatest(ctx context.Context, conversationID, messageID string, ts time.Time) error
}

// Profiles is the read-mostly identity directory backing the profile cache
// and the first-contact search fallback.
type Profiles interface {
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)
	Get(ctx context.Context, userID string) (*model.Profile, error)

	// Search returns profiles whose name or email contains term
	// (case-insensitive), excluding the viewer.
	Search(ctx context.Context, viewerID, term string) ([]*model.Profile, error)
}
