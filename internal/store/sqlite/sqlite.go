package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/store"
)

// Open with conn.go; New wires an adapter over an existing connection.

// New constructs a SQLite-backed store and applies the schema.
func New(ctx context.Context, path string) (store.Store, *sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewWithDB(db), db, nil
}

// NewWithDB wraps an existing connection (used by tests and the factory).
func NewWithDB(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Messages() store.Messages           { return &messages{db: s.db} }
func (s *sqliteStore) Conversations() store.Conversations { return &conversations{db: s.db} }
func (s *sqliteStore) Profiles() store.Profiles           { return &profiles{db: s.db} }

// HealthPing reports connectivity.
func (s *sqliteStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

// --- Messages ---

type messages struct{ db *sql.DB }

func (m *messages) Create(ctx context.Context, in *model.Message) (*model.Message, error) {
	out := *in
	out.MessageID = uuid.New().String()
	out.Timestamp = time.Now().UTC()
	out.IsRead = false
	_, err := m.db.ExecContext(ctx, `
        INSERT INTO messages (message_id, conversation_id, sender_id, recipient_id,
                              message_type, content, file_ref, timestamp, is_read, is_archived)
        VALUES (?,?,?,?,?,?,?,?,0,0)
    `, out.MessageID, out.ConversationID, out.SenderID, out.RecipientID,
		out.MessageType, out.Content, out.FileRef, out.Timestamp)
	if err != nil {
		return nil, err
	}
	out.IsArchived = false
	return &out, nil
}

func (m *messages) ListBetween(ctx context.Context, a, b string) ([]*model.Message, error) {
	rows, err := m.db.QueryContext(ctx, `
        SELECT message_id, conversation_id, sender_id, recipient_id, message_type,
               content, file_ref, timestamp, is_read, is_archived
        FROM messages
        WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
        ORDER BY timestamp ASC, message_id ASC
    `, a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.SenderID, &msg.RecipientID,
			&msg.MessageType, &msg.Content, &msg.FileRef, &msg.Timestamp, &msg.IsRead, &msg.IsArchived); err != nil {
			return nil, err
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}

func (m *messages) MarkRead(ctx context.Context, reader, counterpart string) (int64, error) {
	res, err := m.db.ExecContext(ctx, `
        UPDATE messages SET is_read = 1
        WHERE sender_id = ? AND recipient_id = ? AND is_read = 0
    `, counterpart, reader)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (m *messages) SetArchived(ctx context.Context, a, b string, archived bool) error {
	flag := 0
	if archived {
		flag = 1
	}
	_, err := m.db.ExecContext(ctx, `
        UPDATE messages SET is_archived = ?
        WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
    `, flag, a, b, b, a)
	return err
}

func (m *messages) ContactRows(ctx context.Context, viewerID string) ([]*model.ContactRow, error) {
	rows, err := m.db.QueryContext(ctx, `
        WITH involving AS (
            SELECT message_id, sender_id, recipient_id, message_type, content,
                   file_ref, timestamp, is_read, is_archived,
                   CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END AS contact_id
            FROM messages
            WHERE sender_id = ? OR recipient_id = ?
        ), ranked AS (
            SELECT *,
                   ROW_NUMBER() OVER (PARTITION BY contact_id ORDER BY timestamp DESC, message_id DESC) AS rn,
                   SUM(CASE WHEN recipient_id = ? AND is_read = 0 THEN 1 ELSE 0 END)
                       OVER (PARTITION BY contact_id) AS unread_count
            FROM involving
        )
        SELECT contact_id, content, message_type, file_ref, timestamp, sender_id,
               is_archived, unread_count
        FROM ranked WHERE rn = 1
        ORDER BY timestamp DESC
    `, viewerID, viewerID, viewerID, viewerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanContactRows(rows, viewerID)
}

func scanContactRows(rows *sql.Rows, viewerID string) ([]*model.ContactRow, error) {
	var out []*model.ContactRow
	for rows.Next() {
		var r model.ContactRow
		if err := rows.Scan(&r.ContactID, &r.LastMessage.Content, &r.LastMessage.MessageType,
			&r.LastMessage.FileRef, &r.LastMessage.Timestamp, &r.LastMessage.SenderID,
			&r.IsArchived, &r.UnreadCount); err != nil {
			return nil, err
		}
		r.LastMessage.IsFromCurrentUser = r.LastMessage.SenderID == viewerID
		out = append(out, &r)
	}
	return out, rows.Err()
}

// --- Conversations ---

type conversations struct{ db *sql.DB }

func (c *conversations) Upsert(ctx context.Context, a, b string) (*model.Conversation, error) {
	lo, hi := model.CanonicalPair(a, b)

	// Unique-constraint-protected insert: a concurrent first-message for the
	// same pair loses the race and falls through to the select below.
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO conversations (conversation_id, participant_lo, participant_hi, is_group)
        VALUES (?,?,?,0)
        ON CONFLICT (participant_lo, participant_hi) DO NOTHING
    `, uuid.New().String(), lo, hi)
	if err != nil {
		return nil, err
	}
	return c.getByPair(ctx, lo, hi)
}

func (c *conversations) getByPair(ctx context.Context, lo, hi string) (*model.Conversation, error) {
	row := c.db.QueryRowContext(ctx, `
        SELECT conversation_id, participant_lo, participant_hi, is_group,
               COALESCE(last_message_id, ''), last_message_time
        FROM conversations WHERE participant_lo = ? AND participant_hi = ?
    `, lo, hi)
	return scanConversation(row)
}

func (c *conversations) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	row := c.db.QueryRowContext(ctx, `
        SELECT conversation_id, participant_lo, participant_hi, is_group,
               COALESCE(last_message_id, ''), last_message_time
        FROM conversations WHERE conversation_id = ?
    `, conversationID)
	return scanConversation(row)
}

func scanConversation(row *sql.Row) (*model.Conversation, error) {
	var out model.Conversation
	var last sql.NullTime
	if err := row.Scan(&out.ConversationID, &out.ParticipantLo, &out.ParticipantHi,
		&out.IsGroup, &out.LastMessageID, &last); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if last.Valid {
		t := last.Time
		out.LastMessageTime = &t
	}
	return &out, nil
}

func (c *conversations) SetLatest(ctx context.Context, conversationID, messageID string, ts time.Time) error {
	_, err := c.db.ExecContext(ctx, `
        UPDATE conversations SET last_message_id = ?, last_message_time = ?
        WHERE conversation_id = ?
    `, messageID, ts, conversationID)
	return err
}

// --- Profiles ---

type profiles struct{ db *sql.DB }

func (p *profiles) Create(ctx context.Context, in *model.Profile) (*model.Profile, error) {
	out := *in
	if out.UserID == "" {
		out.UserID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO profiles (user_id, email, first_name, last_name, avatar)
        VALUES (?,?,?,?,?)
    `, out.UserID, out.Email, out.FirstName, out.LastName, out.Avatar)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, model.ErrConflict
		}
		return nil, err
	}
	return &out, nil
}

func (p *profiles) Get(ctx context.Context, userID string) (*model.Profile, error) {
	var out model.Profile
	row := p.db.QueryRowContext(ctx, `
        SELECT user_id, email, first_name, last_name, avatar FROM profiles WHERE user_id = ?
    `, userID)
	if err := row.Scan(&out.UserID, &out.Email, &out.FirstName, &out.LastName, &out.Avatar); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (p *profiles) Search(ctx context.Context, viewerID, term string) ([]*model.Profile, error) {
	like := "%" + strings.ToLower(term) + "%"
	rows, err := p.db.QueryContext(ctx, `
        SELECT user_id, email, first_name, last_name, avatar
        FROM profiles
        WHERE user_id != ?
          AND (lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ?)
        ORDER BY first_name, last_name, email
    `, viewerID, like, like, like)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Profile
	for rows.Next() {
		var pr model.Profile
		if err := rows.Scan(&pr.UserID, &pr.Email, &pr.FirstName, &pr.LastName, &pr.Avatar); err != nil {
			return nil, err
		}
		out = append(out, &pr)
	}
	return out, rows.Err()
}
