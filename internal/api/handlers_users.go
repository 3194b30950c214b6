package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/neegandary/NexChat/internal/api/respond"
	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/store"
)

// UserHandler serves the profile directory endpoints.
type UserHandler struct {
	profiles store.Profiles
}

func NewUserHandler(profiles store.Profiles) *UserHandler { return &UserHandler{profiles: profiles} }

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in model.Profile
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if in.UserID == "" || in.Email == "" {
		respond.WriteBadRequest(w, "userId and email required")
		return
	}
	out, err := h.profiles.Create(r.Context(), &in)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			respond.WriteConflict(w, "user already exists")
			return
		}
		respond.WriteInternalError(w, "create user failed")
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, "user not found")
			return
		}
		respond.WriteInternalError(w, "get user failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, p)
}

// SearchContacts handles GET /api/users/{userId}/contacts?search=. It queries
// the profile directory directly, independent of message history.
func (h *UserHandler) SearchContacts(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	term := r.URL.Query().Get("search")

	results, err := h.profiles.Search(r.Context(), userID, term)
	if err != nil {
		respond.WriteInternalError(w, "contact search failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, results)
}
