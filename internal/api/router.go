package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	r.Use(h.RecoveryMiddleware)
	r.Use(CORSMiddleware)
	r.Use(h.LoggingMiddleware)

	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")

	// Webhooks are authenticated by their body signature
	hooks := r.PathPrefix("/webhooks").Subrouter()
	hooks.HandleFunc("/payment", h.PaymentWebhook).Methods("POST")
	hooks.HandleFunc("/transaction", h.TransactionWebhook).Methods("POST")

	// Live feed
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(h.AuthMiddleware)
	ws.HandleFunc("/events", h.FeedSocket).Methods("GET")

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.AuthMiddleware)

	api.HandleFunc("/card", h.GetCard).Methods("GET")
	api.HandleFunc("/payments", h.CreatePayment).Methods("POST")
	api.HandleFunc("/transactions", h.SendTransaction).Methods("POST")
	api.HandleFunc("/transactions/batch", h.SendTransactionBatch).Methods("POST")
	api.HandleFunc("/skins/{discord_id}", h.GetSkinURL).Methods("GET")
	api.HandleFunc("/skins/{discord_id}/image", h.GetSkinImage).Methods("GET")
	api.HandleFunc("/skins/{discord_id}/textures", h.GetSkinTextures).Methods("GET")
	api.HandleFunc("/audit", h.GetAuditEvents).Methods("GET")

	return r
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}
