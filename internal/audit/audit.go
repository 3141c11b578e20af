// Package audit records the outcome of every webhook spw-hook receives
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexbotov/spw/internal/domain"
)

// Event types
const (
	EventPaymentReceived     = "payment_received"
	EventTransactionReceived = "transaction_received"
	EventSignatureRejected   = "signature_rejected"
	EventPayloadRejected     = "payload_rejected"
	EventFeedSubscribed      = "feed_subscribed"
)

// Service provides audit logging functionality. A Service without a
// database discards every event.
type Service struct {
	db *sql.DB
}

// New creates a new audit service
func New(db *sql.DB) *Service {
	return &Service{db: db}
}

// Enabled reports whether events are persisted
func (s *Service) Enabled() bool {
	return s.db != nil
}

// LogEvent records an event
func (s *Service) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if !s.Enabled() {
		return nil
	}

	var data interface{}
	if len(event.Data) > 0 {
		data = string(event.Data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, severity, timestamp, actor, reference, amount, description, data, ip_address, component)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, event.ID, event.Type, event.Severity, event.Timestamp, event.Actor, event.Reference,
		event.Amount, event.Description, data, event.IPAddress, event.Component)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// Log is a convenience method for logging events
func (s *Service) Log(ctx context.Context, eventType string, severity domain.EventSeverity, description string, data interface{}, opts ...EventOption) error {
	event := &domain.AuditEvent{
		Type:        eventType,
		Severity:    severity,
		Description: description,
		Component:   "webhook",
	}

	if data != nil {
		if jsonData, err := json.Marshal(data); err == nil {
			event.Data = jsonData
		}
	}

	for _, opt := range opts {
		opt(event)
	}

	return s.LogEvent(ctx, event)
}

// LogWebhook records a verified webhook
func (s *Service) LogWebhook(ctx context.Context, e *domain.WebhookEvent, ip string) error {
	eventType := EventPaymentReceived
	var payload interface{} = e.Payment
	if e.Kind == domain.WebhookTransaction {
		eventType = EventTransactionReceived
		payload = e.Transaction
	}

	return s.Log(ctx, eventType, domain.SeverityInfo,
		fmt.Sprintf("%s webhook: %d AR from %s", e.Kind, e.Amount(), e.Actor()),
		payload,
		WithActor(e.Actor()), WithReference(e.Reference()), WithAmount(e.Amount()), WithIP(ip))
}

// EventOption is a functional option for configuring audit events
type EventOption func(*domain.AuditEvent)

// WithActor sets the counterparty name for the event
func WithActor(actor string) EventOption {
	return func(e *domain.AuditEvent) {
		if actor != "" {
			e.Actor = &actor
		}
	}
}

// WithReference sets the payment data or transaction id for the event
func WithReference(ref string) EventOption {
	return func(e *domain.AuditEvent) {
		if ref != "" {
			e.Reference = &ref
		}
	}
}

// WithAmount sets the amount for the event
func WithAmount(amount int) EventOption {
	return func(e *domain.AuditEvent) {
		e.Amount = amount
	}
}

// WithIP sets the IP address for the event
func WithIP(ip string) EventOption {
	return func(e *domain.AuditEvent) {
		e.IPAddress = ip
	}
}

// WithComponent sets the component for the event
func WithComponent(component string) EventOption {
	return func(e *domain.AuditEvent) {
		e.Component = component
	}
}

// GetEvents retrieves audit events, newest first, with optional filtering
func (s *Service) GetEvents(ctx context.Context, filter *EventFilter) ([]*domain.AuditEvent, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if filter == nil {
		filter = &EventFilter{}
	}

	var q selectBuilder
	q.where("actor = ", filter.Actor, filter.Actor != "")
	q.where("type = ", filter.Type, filter.Type != "")
	q.where("timestamp >= ", filter.From, !filter.From.IsZero())
	q.where("timestamp <= ", filter.To, !filter.To.IsZero())

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := q.build(limit)
	rows, err := s.db.QueryContext(ctx, query, q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

const defaultLimit = 100

// selectBuilder accumulates positional WHERE clauses for audit_events
type selectBuilder struct {
	clauses []string
	args    []interface{}
}

func (b *selectBuilder) where(cond string, arg interface{}, ok bool) {
	if !ok {
		return
	}
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf("%s$%d", cond, len(b.args)))
}

func (b *selectBuilder) build(limit int) string {
	query := `SELECT id, type, severity, timestamp, actor, reference, amount, description, data, ip_address, component
		FROM audit_events`
	if len(b.clauses) > 0 {
		query += " WHERE " + strings.Join(b.clauses, " AND ")
	}
	b.args = append(b.args, limit)
	return query + fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(b.args))
}

func scanEvent(rows *sql.Rows) (*domain.AuditEvent, error) {
	var event domain.AuditEvent
	var actor, reference, data, ip sql.NullString

	err := rows.Scan(&event.ID, &event.Type, &event.Severity, &event.Timestamp,
		&actor, &reference, &event.Amount, &event.Description, &data, &ip, &event.Component)
	if err != nil {
		return nil, err
	}

	if actor.Valid {
		event.Actor = &actor.String
	}
	if reference.Valid {
		event.Reference = &reference.String
	}
	if data.Valid {
		event.Data = json.RawMessage(data.String)
	}
	event.IPAddress = ip.String

	return &event, nil
}

// EventFilter defines criteria for filtering audit events
type EventFilter struct {
	Actor string
	Type  string
	From  time.Time
	To    time.Time
	Limit int
}
