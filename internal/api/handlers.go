// Package api provides the HTTP handlers of spw-hook
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alexbotov/spw/internal/audit"
	"github.com/alexbotov/spw/internal/auth"
	"github.com/alexbotov/spw/internal/domain"
	"github.com/alexbotov/spw/internal/feed"
	"github.com/alexbotov/spw/internal/metrics"
	"github.com/alexbotov/spw/pkg/skin"
	"github.com/alexbotov/spw/pkg/spworlds"
)

const (
	// maxWebhookBody bounds the webhook bodies read into memory
	maxWebhookBody = 64 << 10
	// maxBatchSize bounds the transactions accepted by one batch request
	maxBatchSize = 50
)

// Handler contains all HTTP handlers
type Handler struct {
	spw        *spworlds.Client
	batchDelay time.Duration
	skins      *skin.Resolver
	audit      *audit.Service
	auth       *auth.Service
	hub        *feed.Hub
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New creates a new API handler. batchDelay is the pause between the
// calls of a transaction batch.
func New(spw *spworlds.Client, batchDelay time.Duration, skins *skin.Resolver, auditSvc *audit.Service,
	authSvc *auth.Service, hub *feed.Hub, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		spw:        spw,
		batchDelay: batchDelay,
		skins:      skins,
		audit:      auditSvc,
		auth:       authSvc,
		hub:        hub,
		metrics:    m,
		logger:     logger,
	}
}

// Response helpers

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondUpstreamError maps a library error to a response
func respondUpstreamError(w http.ResponseWriter, err error) {
	status, apiErr := upstreamError(err)
	respondError(w, status, apiErr.Code, apiErr.Message)
}

func upstreamError(err error) (int, *APIError) {
	var vErr *spworlds.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, &APIError{"VALIDATION_FAILED", vErr.Error()}
	case errors.Is(err, spworlds.ErrUnauthorized):
		return http.StatusBadGateway, &APIError{"CARD_UNAUTHORIZED", "SPWorlds rejected the card credentials"}
	case errors.Is(err, spworlds.ErrNotFound):
		return http.StatusNotFound, &APIError{"NOT_FOUND", err.Error()}
	case errors.Is(err, spworlds.ErrInsufficientFunds):
		return http.StatusConflict, &APIError{"INSUFFICIENT_FUNDS", "Insufficient funds"}
	case errors.Is(err, spworlds.ErrReceiverCardNotFound):
		return http.StatusUnprocessableEntity, &APIError{"RECEIVER_NOT_FOUND", "Receiver card not found"}
	case errors.Is(err, spworlds.ErrBadRequest):
		return http.StatusUnprocessableEntity, &APIError{"UPSTREAM_REJECTED", err.Error()}
	default:
		return http.StatusBadGateway, &APIError{"UPSTREAM_ERROR", "SPWorlds is unavailable"}
	}
}

// getClientIP extracts client IP from request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"audit":       h.audit.Enabled(),
		"subscribers": h.hub.Count(),
	})
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "spw-hook",
		"version":     "1.0.0",
		"description": "SPWorlds webhook receiver",
	})
}

// === Webhooks ===

// PaymentWebhook handles POST /webhooks/payment
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readWebhook(w, r, domain.WebhookPayment)
	if !ok {
		return
	}

	payment, err := h.spw.ParsePaymentWebhook(body, r.Header.Get(spworlds.HeaderBodyHash))
	if err != nil {
		h.rejectWebhook(w, r, domain.WebhookPayment, err)
		return
	}

	h.acceptWebhook(w, r, &domain.WebhookEvent{
		ID:         uuid.New().String(),
		Kind:       domain.WebhookPayment,
		ReceivedAt: time.Now().UTC(),
		Payment:    payment,
	})
}

// TransactionWebhook handles POST /webhooks/transaction
func (h *Handler) TransactionWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readWebhook(w, r, domain.WebhookTransaction)
	if !ok {
		return
	}

	tx, err := h.spw.ParseTransactionWebhook(body, r.Header.Get(spworlds.HeaderBodyHash))
	if err != nil {
		h.rejectWebhook(w, r, domain.WebhookTransaction, err)
		return
	}

	h.acceptWebhook(w, r, &domain.WebhookEvent{
		ID:          uuid.New().String(),
		Kind:        domain.WebhookTransaction,
		ReceivedAt:  time.Now().UTC(),
		Transaction: tx,
	})
}

func (h *Handler) readWebhook(w http.ResponseWriter, r *http.Request, kind domain.WebhookKind) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.metrics.ObserveWebhook(string(kind), metrics.OutcomeBadPayload, 0)
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Failed to read request body")
		return nil, false
	}
	return body, true
}

func (h *Handler) rejectWebhook(w http.ResponseWriter, r *http.Request, kind domain.WebhookKind, err error) {
	ctx := r.Context()
	ip := getClientIP(r)

	if errors.Is(err, spworlds.ErrInvalidSignature) {
		h.metrics.ObserveWebhook(string(kind), metrics.OutcomeBadSignature, 0)
		h.logger.Warn("webhook signature rejected", zap.String("kind", string(kind)), zap.String("ip", ip))
		if aErr := h.audit.Log(ctx, audit.EventSignatureRejected, domain.SeverityWarning,
			fmt.Sprintf("%s webhook with invalid signature", kind), nil, audit.WithIP(ip)); aErr != nil {
			h.logger.Error("audit failed", zap.Error(aErr))
		}
		respondError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature does not match")
		return
	}

	h.metrics.ObserveWebhook(string(kind), metrics.OutcomeBadPayload, 0)
	h.logger.Warn("webhook payload rejected", zap.String("kind", string(kind)), zap.Error(err))
	if aErr := h.audit.Log(ctx, audit.EventPayloadRejected, domain.SeverityError,
		fmt.Sprintf("%s webhook with unparsable body", kind),
		map[string]string{"error": err.Error()}, audit.WithIP(ip)); aErr != nil {
		h.logger.Error("audit failed", zap.Error(aErr))
	}
	respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Webhook body could not be parsed")
}

func (h *Handler) acceptWebhook(w http.ResponseWriter, r *http.Request, event *domain.WebhookEvent) {
	h.metrics.ObserveWebhook(string(event.Kind), metrics.OutcomeAccepted, event.Amount())
	h.logger.Info("webhook accepted",
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.Int("amount", event.Amount()),
		zap.String("actor", event.Actor()),
		zap.String("reference", event.Reference()),
	)

	// the event is verified; a failing audit store must not make SPWorlds retry it
	if err := h.audit.LogWebhook(r.Context(), event, getClientIP(r)); err != nil {
		h.logger.Error("audit failed", zap.String("event_id", event.ID), zap.Error(err))
	}
	if err := h.hub.Broadcast(string(event.Kind), event); err != nil {
		h.logger.Error("broadcast failed", zap.String("event_id", event.ID), zap.Error(err))
	}

	respondJSON(w, http.StatusOK, map[string]string{"event_id": event.ID})
}

// === Live feed ===

// FeedSocket handles GET /ws/events
func (h *Handler) FeedSocket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if err := h.audit.Log(r.Context(), audit.EventFeedSubscribed, domain.SeverityInfo,
		"live feed subscriber connected", nil,
		audit.WithActor(claims.Subject), audit.WithIP(getClientIP(r)), audit.WithComponent("feed")); err != nil {
		h.logger.Error("audit failed", zap.Error(err))
	}
	h.hub.ServeWS(w, r, claims.Subject)
}

// === Card ===

// GetCard handles GET /api/v1/card
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.spw.GetCard(r.Context())
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// CreatePayment handles POST /api/v1/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req spworlds.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	link, err := h.spw.CreatePayment(r.Context(), &req)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, link)
}

// SendTransaction handles POST /api/v1/transactions
func (h *Handler) SendTransaction(w http.ResponseWriter, r *http.Request) {
	var req spworlds.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.spw.SendTransaction(r.Context(), &req)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}

	claims := claimsFromContext(r.Context())
	h.logger.Info("transaction sent",
		zap.String("subject", claims.Subject),
		zap.String("receiver", req.Receiver),
		zap.Int("amount", req.Amount))
	respondJSON(w, http.StatusOK, result)
}

// BatchResult is the body of a transaction batch response. On failure
// Completed holds the transactions already applied before FailedIndex.
type BatchResult struct {
	Completed   []*spworlds.TransactionResult `json:"completed"`
	FailedIndex *int                          `json:"failed_index,omitempty"`
}

// SendTransactionBatch handles POST /api/v1/transactions/batch
func (h *Handler) SendTransactionBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []spworlds.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if len(reqs) == 0 || len(reqs) > maxBatchSize {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("A batch holds 1 to %d transactions", maxBatchSize))
		return
	}

	claims := claimsFromContext(r.Context())
	results, err := h.spw.SendTransactions(r.Context(), reqs, h.batchDelay)
	if results == nil {
		results = []*spworlds.TransactionResult{}
	}
	if err != nil {
		status, apiErr := upstreamError(err)
		body := BatchResult{Completed: results}
		var batchErr *spworlds.BatchError
		if errors.As(err, &batchErr) {
			body.FailedIndex = &batchErr.Index
		}

		h.logger.Warn("transaction batch stopped",
			zap.String("subject", claims.Subject),
			zap.Int("completed", len(results)),
			zap.Error(err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(APIResponse{Success: false, Data: body, Error: apiErr})
		return
	}

	h.logger.Info("transaction batch sent",
		zap.String("subject", claims.Subject),
		zap.Int("count", len(results)))
	respondJSON(w, http.StatusOK, BatchResult{Completed: results})
}

// === Skins ===

// skinRequest reads the render options of a skin request
func skinRequest(r *http.Request) (string, skin.Part, int, error) {
	discordID := mux.Vars(r)["discord_id"]

	part := skin.PartFace
	if p := r.URL.Query().Get("part"); p != "" {
		parsed, err := skin.ParsePart(p)
		if err != nil {
			return "", "", 0, err
		}
		part = parsed
	}

	size := skin.DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 512 {
			return "", "", 0, fmt.Errorf("invalid size %q", s)
		}
		size = n
	}

	return discordID, part, size, nil
}

// GetSkinURL handles GET /api/v1/skins/{discord_id}
func (h *Handler) GetSkinURL(w http.ResponseWriter, r *http.Request) {
	discordID, part, size, err := skinRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	url, ok, err := h.skins.URL(r.Context(), discordID, part, size)
	if err != nil {
		h.respondSkinError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "No player is linked to this Discord account")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"discord_id": discordID,
		"part":       part,
		"size":       size,
		"url":        url,
	})
}

// GetSkinImage handles GET /api/v1/skins/{discord_id}/image
func (h *Handler) GetSkinImage(w http.ResponseWriter, r *http.Request) {
	discordID, part, size, err := skinRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	image, ok, err := h.skins.Image(r.Context(), discordID, part, size)
	if err != nil {
		h.respondSkinError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "No player is linked to this Discord account")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(image)
}

// GetSkinTextures handles GET /api/v1/skins/{discord_id}/textures
func (h *Handler) GetSkinTextures(w http.ResponseWriter, r *http.Request) {
	discordID := mux.Vars(r)["discord_id"]

	textures, ok, err := h.skins.Textures(r.Context(), discordID)
	if err != nil {
		h.respondSkinError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "No Minecraft profile is linked to this Discord account")
		return
	}
	respondJSON(w, http.StatusOK, textures)
}

func (h *Handler) respondSkinError(w http.ResponseWriter, err error) {
	var upErr *skin.UpstreamError
	if errors.As(err, &upErr) {
		h.logger.Warn("skin upstream failed", zap.String("service", upErr.Service), zap.Error(err))
		respondError(w, http.StatusBadGateway, "SKIN_UPSTREAM_ERROR", upErr.Error())
		return
	}
	respondUpstreamError(w, err)
}

// === Audit ===

// GetAuditEvents handles GET /api/v1/audit
func (h *Handler) GetAuditEvents(w http.ResponseWriter, r *http.Request) {
	if !h.audit.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "AUDIT_DISABLED", "Audit store is not configured")
		return
	}

	q := r.URL.Query()
	filter := &audit.EventFilter{
		Actor: q.Get("actor"),
		Type:  q.Get("type"),
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		filter.Limit = l
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filter.To = to
	}

	events, err := h.audit.GetEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "AUDIT_ERROR", "Failed to load audit events")
		return
	}
	if events == nil {
		events = []*domain.AuditEvent{}
	}

	respondJSON(w, http.StatusOK, events)
}
