// Package contacts builds the ranked contact list from the message log, the
// profile cache, and live presence.
package contacts

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/profile"
	"github.com/neegandary/NexChat/internal/store"
)

// Presence reports whether an identity currently has a live connection.
// Satisfied by session.Registry.
type Presence interface {
	IsOnline(userID string) bool
}

// Aggregator produces per-counterpart conversation summaries for the
// contact list.
type Aggregator struct {
	messages store.Messages
	profiles store.Profiles
	cache    *profile.Cache
	presence Presence
	log      zerolog.Logger
}

func NewAggregator(messages store.Messages, profiles store.Profiles, cache *profile.Cache, presence Presence, log zerolog.Logger) *Aggregator {
	return &Aggregator{messages: messages, profiles: profiles, cache: cache, presence: presence, log: log}
}

// Contacts returns one summary row per counterpart the viewer has exchanged
// messages with, newest conversation first. A search term filters the
// grouped results by name/email substring; when the viewer has no message
// history at all, the search falls back to a directory lookup returning bare
// profiles so a first conversation can be started. No search term and no
// history yields an empty result, never a directory dump.
func (a *Aggregator) Contacts(ctx context.Context, viewerID, search string) ([]*model.ContactSummary, error) {
	rows, err := a.messages.ContactRows(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		if search == "" {
			return []*model.ContactSummary{}, nil
		}
		return a.directoryFallback(ctx, viewerID, search)
	}

	needle := strings.ToLower(search)
	out := make([]*model.ContactSummary, 0, len(rows))
	for _, row := range rows {
		summary := &model.ContactSummary{
			Profile:     model.Profile{UserID: row.ContactID},
			UnreadCount: row.UnreadCount,
			IsArchived:  row.IsArchived,
			IsOnline:    a.presence.IsOnline(row.ContactID),
		}
		lm := row.LastMessage
		summary.LastMessage = &lm
		ts := row.LastMessage.Timestamp
		summary.Timestamp = &ts

		if p, err := a.cache.Get(ctx, row.ContactID); err == nil {
			summary.Profile = *p
		} else {
			a.log.Warn().Err(err).Str("user_id", row.ContactID).Msg("contact profile unresolved")
		}

		// Search filters after grouping, against the resolved profile.
		if needle != "" && !matches(&summary.Profile, needle) {
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}

// directoryFallback lets a user with no conversations find someone to
// message for the first time. Summary fields are placeholders.
func (a *Aggregator) directoryFallback(ctx context.Context, viewerID, search string) ([]*model.ContactSummary, error) {
	hits, err := a.profiles.Search(ctx, viewerID, search)
	if err != nil {
		return nil, err
	}
	out := make([]*model.ContactSummary, 0, len(hits))
	for _, p := range hits {
		// Placeholder summary: no last message, zero unread, not archived,
		// not online.
		out = append(out, &model.ContactSummary{Profile: *p})
	}
	return out, nil
}

func matches(p *model.Profile, needle string) bool {
	return strings.Contains(strings.ToLower(p.FirstName), needle) ||
		strings.Contains(strings.ToLower(p.LastName), needle) ||
		strings.Contains(strings.ToLower(p.Email), needle)
}
