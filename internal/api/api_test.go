package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neegandary/NexChat/internal/contacts"
	"github.com/neegandary/NexChat/internal/delivery"
	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/profile"
	"github.com/neegandary/NexChat/internal/session"
	"github.com/neegandary/NexChat/internal/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	sessions := session.NewRegistry()
	cache := profile.NewCache(profile.NewStoreDirectory(st.Profiles()), time.Minute)
	pipeline := delivery.NewPipeline(st, cache, sessions, log)
	receipts := delivery.NewReceipts(st.Messages(), sessions, log)
	aggregator := contacts.NewAggregator(st.Messages(), st.Profiles(), cache, sessions, log)

	router := NewRouter(Deps{
		Store:      st,
		Pipeline:   pipeline,
		Receipts:   receipts,
		Aggregator: aggregator,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createUser(t *testing.T, srv *httptest.Server, userID, email, first string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/users", model.Profile{UserID: userID, Email: email, FirstName: first})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestUserLifecycle(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "alice@example.com", "Alice")

	// duplicate id conflicts
	resp := postJSON(t, srv.URL+"/api/users", model.Profile{UserID: "alice", Email: "other@example.com"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// fetch round-trips
	resp, err := http.Get(srv.URL + "/api/users/alice")
	require.NoError(t, err)
	var got model.Profile
	decodeInto(t, resp, &got)
	assert.Equal(t, "alice@example.com", got.Email)

	// unknown id is 404
	resp, err = http.Get(srv.URL + "/api/users/nobody")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateUserValidation(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/users", model.Profile{UserID: "no-email"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitAndHistory(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "alice@example.com", "Alice")
	createUser(t, srv, "bob", "bob@example.com", "Bob")

	resp := postJSON(t, srv.URL+"/api/users/alice/messages/bob", model.SubmitRequest{
		RecipientID: "bob",
		MessageType: model.MessageTypeText,
		Content:     "hello",
		ClientTag:   "tag-9",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var payload model.CanonicalPayload
	decodeInto(t, resp, &payload)
	assert.Equal(t, "alice", payload.SenderID)
	assert.Equal(t, "tag-9", payload.ClientTag)
	assert.NotEmpty(t, payload.MessageID)
	require.NotNil(t, payload.Sender)
	assert.Equal(t, "Alice", payload.Sender.FirstName)

	// both parties see the same history
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		resp, err := http.Get(srv.URL + "/api/users/" + pair[0] + "/messages/" + pair[1])
		require.NoError(t, err)
		var msgs []*model.Message
		decodeInto(t, resp, &msgs)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hello", msgs[0].Content)
	}
}

func TestSubmitValidationRejected(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "alice@example.com", "Alice")

	// text without content
	resp := postJSON(t, srv.URL+"/api/users/alice/messages/bob", model.SubmitRequest{
		RecipientID: "bob",
		MessageType: model.MessageTypeText,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryFetchMarksRead(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "alice@example.com", "Alice")
	createUser(t, srv, "bob", "bob@example.com", "Bob")

	resp := postJSON(t, srv.URL+"/api/users/alice/messages/bob", model.SubmitRequest{
		RecipientID: "bob", MessageType: model.MessageTypeText, Content: "unread",
	})
	resp.Body.Close()

	// bob's conversation list shows one unread
	var summaries []*model.ContactSummary
	resp, err := http.Get(srv.URL + "/api/users/bob/conversations")
	require.NoError(t, err)
	decodeInto(t, resp, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].UnreadCount)

	// fetching history clears it
	resp, err = http.Get(srv.URL + "/api/users/bob/messages/alice")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/users/bob/conversations")
	require.NoError(t, err)
	decodeInto(t, resp, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].UnreadCount)
}

func TestContactSearchIndependentOfHistory(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "alice@example.com", "Alice")
	createUser(t, srv, "bob", "bob@example.com", "Bob")
	createUser(t, srv, "carol", "carol@example.com", "Carol")

	resp, err := http.Get(srv.URL + "/api/users/alice/contacts?search=car")
	require.NoError(t, err)
	var results []*model.Profile
	decodeInto(t, resp, &results)
	require.Len(t, results, 1)
	assert.Equal(t, "carol", results[0].UserID)

	// viewer never appears in their own results
	resp, err = http.Get(srv.URL + "/api/users/alice/contacts?search=ali")
	require.NoError(t, err)
	decodeInto(t, resp, &results)
	assert.Empty(t, results)
}

func TestArchiveFlag(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "alice@example.com", "Alice")
	createUser(t, srv, "bob", "bob@example.com", "Bob")

	resp := postJSON(t, srv.URL+"/api/users/alice/messages/bob", model.SubmitRequest{
		RecipientID: "bob", MessageType: model.MessageTypeText, Content: "keep",
	})
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/users/alice/conversations/bob/archive", map[string]bool{"archived": true})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []*model.ContactSummary
	resp, err := http.Get(srv.URL + "/api/users/alice/conversations")
	require.NoError(t, err)
	decodeInto(t, resp, &summaries)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].IsArchived)

	// archived history is still retrievable
	resp, err = http.Get(srv.URL + "/api/users/alice/messages/bob")
	require.NoError(t, err)
	var msgs []*model.Message
	decodeInto(t, resp, &msgs)
	assert.Len(t, msgs, 1)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/health/db")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
