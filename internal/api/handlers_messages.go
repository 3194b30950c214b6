package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/neegandary/NexChat/internal/api/respond"
	"github.com/neegandary/NexChat/internal/contacts"
	"github.com/neegandary/NexChat/internal/delivery"
	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/store"
)

// MessageHandler serves conversation history, read/archive state, and the
// REST submission fallback for clients without a live socket.
type MessageHandler struct {
	messages   store.Messages
	pipeline   *delivery.Pipeline
	receipts   *delivery.Receipts
	aggregator *contacts.Aggregator
}

func NewMessageHandler(messages store.Messages, pipeline *delivery.Pipeline, receipts *delivery.Receipts, aggregator *contacts.Aggregator) *MessageHandler {
	return &MessageHandler{messages: messages, pipeline: pipeline, receipts: receipts, aggregator: aggregator}
}

// ListConversations handles GET /api/users/{userId}/conversations?search=.
func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	term := r.URL.Query().Get("search")

	summaries, err := h.aggregator.Contacts(r.Context(), userID, term)
	if err != nil {
		respond.WriteInternalError(w, "conversation listing failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, summaries)
}

// GetHistory handles GET /api/users/{userId}/messages/{contactId}. Fetching
// history doubles as reading it: unread messages from the contact are marked
// read and the contact is notified, same as an explicit markAsRead.
func (h *MessageHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, contactID := vars["userId"], vars["contactId"]

	msgs, err := h.messages.ListBetween(r.Context(), userID, contactID)
	if err != nil {
		respond.WriteInternalError(w, "history fetch failed")
		return
	}
	if err := h.receipts.MarkRead(r.Context(), userID, contactID); err != nil {
		respond.WriteInternalError(w, "mark read failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, msgs)
}

// MarkRead handles POST /api/users/{userId}/messages/{contactId}/read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.receipts.MarkRead(r.Context(), vars["userId"], vars["contactId"]); err != nil {
		respond.WriteInternalError(w, "mark read failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetArchived handles POST /api/users/{userId}/conversations/{contactId}/archive.
func (h *MessageHandler) SetArchived(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := h.messages.SetArchived(r.Context(), vars["userId"], vars["contactId"], in.Archived); err != nil {
		respond.WriteInternalError(w, "archive update failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Submit handles POST /api/users/{userId}/messages/{contactId}. Same
// pipeline as the websocket path; both identities come from the URL, never
// the body.
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req model.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	req.SenderID = vars["userId"]
	req.RecipientID = vars["contactId"]

	payload, err := h.pipeline.Submit(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, "invalid submission")
			return
		}
		respond.WriteInternalError(w, "submission failed")
		return
	}
	respond.WriteJSON(w, http.StatusCreated, payload)
}
