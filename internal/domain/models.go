// Package domain contains the models spw-hook records and broadcasts
package domain

import (
	"encoding/json"
	"time"

	"github.com/alexbotov/spw/pkg/spworlds"
)

// WebhookKind identifies which SPWorlds notification was received
type WebhookKind string

const (
	WebhookPayment     WebhookKind = "payment"
	WebhookTransaction WebhookKind = "transaction"
)

// WebhookEvent is a verified notification as it is stored and broadcast.
// Exactly one of Payment or Transaction is set, matching Kind.
type WebhookEvent struct {
	ID          string                       `json:"id"`
	Kind        WebhookKind                  `json:"kind"`
	ReceivedAt  time.Time                    `json:"received_at"`
	Payment     *spworlds.PaymentWebhook     `json:"payment,omitempty"`
	Transaction *spworlds.TransactionWebhook `json:"transaction,omitempty"`
}

// Amount returns the number of AR moved by the event
func (e *WebhookEvent) Amount() int {
	switch {
	case e.Payment != nil:
		return e.Payment.Amount
	case e.Transaction != nil:
		return e.Transaction.Amount
	}
	return 0
}

// Actor returns the counterparty name: the payer of a payment, or the
// other side of a transaction
func (e *WebhookEvent) Actor() string {
	switch {
	case e.Payment != nil:
		return e.Payment.Payer
	case e.Transaction != nil:
		if e.Transaction.Type == spworlds.TransactionOutgoing {
			return e.Transaction.Receiver.Username
		}
		return e.Transaction.Sender.Username
	}
	return ""
}

// Reference returns the merchant data of a payment or the id of a
// transaction
func (e *WebhookEvent) Reference() string {
	switch {
	case e.Payment != nil:
		return e.Payment.Data
	case e.Transaction != nil:
		return e.Transaction.ID
	}
	return ""
}

// EventSeverity represents audit event severity
type EventSeverity string

const (
	SeverityInfo    EventSeverity = "info"
	SeverityWarning EventSeverity = "warning"
	SeverityError   EventSeverity = "error"
)

// AuditEvent represents a recorded webhook outcome
type AuditEvent struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Severity    EventSeverity   `json:"severity"`
	Timestamp   time.Time       `json:"timestamp"`
	Actor       *string         `json:"actor,omitempty"`
	Reference   *string         `json:"reference,omitempty"`
	Amount      int             `json:"amount"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data,omitempty"`
	IPAddress   string          `json:"ip_address"`
	Component   string          `json:"component"`
}
