package model

import "time"

// Message types. Exactly one of Content/FileRef is populated, matching the type.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// Profile is the display snapshot of a user, read-only from this core's
// perspective. It is embedded in delivered payloads and contact summaries.
type Profile struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// Message is one durable entry in the append-only message log.
type Message struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	RecipientID    string    `json:"recipientId"`
	MessageType    string    `json:"messageType"`
	Content        string    `json:"content,omitempty"`
	FileRef        string    `json:"fileRef,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	IsRead         bool      `json:"isRead"`
	IsArchived     bool      `json:"isArchived"`
}

// Conversation maps an unordered participant pair to its latest message.
// Participants are stored in canonical order (lo < hi) so the pair has a
// single representation and a unique constraint can protect the upsert.
type Conversation struct {
	ConversationID  string     `json:"conversationId"`
	ParticipantLo   string     `json:"participantLo"`
	ParticipantHi   string     `json:"participantHi"`
	IsGroup         bool       `json:"isGroup"`
	LastMessageID   string     `json:"lastMessageId,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
}

// CanonicalPair orders two participant identities so (a,b) and (b,a) key the
// same conversation.
func CanonicalPair(a, b string) (lo, hi string) {
	if a < b {
		return a, b
	}
	return b, a
}

// CanonicalPayload is a message enriched with sender/recipient profile
// snapshots, as pushed to live connections and returned to submitters.
type CanonicalPayload struct {
	Message
	Sender    *Profile `json:"sender,omitempty"`
	Recipient *Profile `json:"recipient,omitempty"`
	// ClientTag echoes the submitter-supplied tag so the client can match
	// this payload to its provisional entry. Never persisted.
	ClientTag string `json:"clientTag,omitempty"`
}

// LastMessage is the per-counterpart latest-message summary used by the
// contact list.
type LastMessage struct {
	Content           string    `json:"content,omitempty"`
	MessageType       string    `json:"messageType"`
	FileRef           string    `json:"fileRef,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	SenderID          string    `json:"senderId"`
	IsFromCurrentUser bool      `json:"isFromCurrentUser"`
}

// ContactSummary is one row of the contact list: a counterpart that has
// exchanged at least one message with the viewer, or (directory fallback) a
// bare profile with placeholder summary fields.
type ContactSummary struct {
	Profile
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
	UnreadCount int          `json:"unreadCount"`
	IsArchived  bool         `json:"isArchived"`
	IsOnline    bool         `json:"isOnline"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
}

// ContactRow is the raw store aggregation result before profile resolution.
type ContactRow struct {
	ContactID   string
	LastMessage LastMessage
	UnreadCount int
	IsArchived  bool
}

// SubmitRequest is one message submission entering the delivery pipeline.
type SubmitRequest struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	MessageType string `json:"messageType"`
	Content     string `json:"content,omitempty"`
	FileRef     string `json:"fileRef,omitempty"`
	ClientTag   string `json:"clientTag,omitempty"`
}

// Validate enforces the content/file-reference invariant.
func (r *SubmitRequest) Validate() error {
	if r.SenderID == "" || r.RecipientID == "" {
		return ErrValidation
	}
	if r.SenderID == r.RecipientID {
		return ErrValidation
	}
	switch r.MessageType {
	case MessageTypeText:
		if r.Content == "" || r.FileRef != "" {
			return ErrValidation
		}
	case MessageTypeFile:
		if r.FileRef == "" || r.Content != "" {
			return ErrValidation
		}
	default:
		return ErrValidation
	}
	return nil
}
