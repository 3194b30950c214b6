// Package api wires the REST surface of the chat service.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neegandary/NexChat/internal/api/recovery"
	"github.com/neegandary/NexChat/internal/contacts"
	"github.com/neegandary/NexChat/internal/delivery"
	"github.com/neegandary/NexChat/internal/store"
)

// Deps carries the constructed core components into the router.
type Deps struct {
	Store      store.Store
	Pipeline   *delivery.Pipeline
	Receipts   *delivery.Receipts
	Aggregator *contacts.Aggregator

	// WSHandler terminates GET /ws; nil disables the route (REST-only tests).
	WSHandler http.HandlerFunc
}

// NewRouter builds the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(d.Store)
	userHandler := NewUserHandler(d.Store.Profiles())
	messageHandler := NewMessageHandler(d.Store.Messages(), d.Pipeline, d.Receipts, d.Aggregator)

	// Health endpoints
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/health/db", healthHandler.CheckStorageHealth).Methods("GET")

	// User endpoints
	router.HandleFunc("/api/users", userHandler.CreateUser).Methods("POST")
	router.HandleFunc("/api/users/{userId}", userHandler.GetUser).Methods("GET")
	router.HandleFunc("/api/users/{userId}/contacts", userHandler.SearchContacts).Methods("GET")

	// Conversation endpoints
	router.HandleFunc("/api/users/{userId}/conversations", messageHandler.ListConversations).Methods("GET")
	router.HandleFunc("/api/users/{userId}/conversations/{contactId}/archive", messageHandler.SetArchived).Methods("POST")
	router.HandleFunc("/api/users/{userId}/messages/{contactId}", messageHandler.Submit).Methods("POST")
	router.HandleFunc("/api/users/{userId}/messages/{contactId}", messageHandler.GetHistory).Methods("GET")
	router.HandleFunc("/api/users/{userId}/messages/{contactId}/read", messageHandler.MarkRead).Methods("POST")

	// Live transport
	if d.WSHandler != nil {
		router.HandleFunc("/ws", d.WSHandler).Methods("GET")
	}

	// Metrics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
