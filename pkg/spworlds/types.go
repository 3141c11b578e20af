// Package spworlds provides a client for the SPWorlds public economy API
package spworlds

import (
	"encoding/base64"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public API root
const DefaultBaseURL = "https://spworlds.ru/api/public"

// DefaultUserAgent is sent with every request unless overridden
const DefaultUserAgent = "spw-go"

// HeaderBodyHash carries the base64 HMAC-SHA256 of a webhook body
const HeaderBodyHash = "X-Body-Hash"

// Amount ceilings enforced before a request leaves the process
const (
	MaxFlatAmount     = 1728
	MaxItemizedAmount = 10000
	MaxItemCount      = 9999
	MaxItemPrice      = 1728
	MaxDataLength     = 100
	MaxCommentLength  = 32
	MinItemNameLength = 3
	MaxItemNameLength = 64
	CardNumberLength  = 5
)

// DefaultRequestDelay is the pause between calls made by batch helpers
const DefaultRequestDelay = 100 * time.Millisecond

// Credentials identify a card. Token doubles as the webhook HMAC key.
type Credentials struct {
	CardID string
	Token  string
}

// Authorization returns the Authorization header value for these credentials
func (c Credentials) Authorization() string {
	raw := c.CardID + ":" + c.Token
	return "Bearer " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// PaymentItem is a single line of an itemized payment
type PaymentItem struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Price   int    `json:"price"`
	Comment string `json:"comment,omitempty"`
}

// PaymentRequest describes a payment link. Exactly one of Amount (flat,
// legacy endpoint) and Items (itemized) must be set.
type PaymentRequest struct {
	Amount      int           `json:"amount,omitempty"`
	Items       []PaymentItem `json:"items,omitempty"`
	RedirectURL string        `json:"redirectUrl"`
	WebhookURL  string        `json:"webhookUrl"`
	Data        string        `json:"data"`
}

// Itemized reports whether the request uses the itemized shape
func (p *PaymentRequest) Itemized() bool {
	return len(p.Items) > 0
}

// Total returns the flat amount or the sum of count*price over items
func (p *PaymentRequest) Total() int {
	if !p.Itemized() {
		return p.Amount
	}
	total := 0
	for _, it := range p.Items {
		total += it.Count * it.Price
	}
	return total
}

// flatPaymentBody is the request body for POST /payment
type flatPaymentBody struct {
	Amount      int    `json:"amount"`
	RedirectURL string `json:"redirectUrl"`
	WebhookURL  string `json:"webhookUrl"`
	Data        string `json:"data"`
}

// itemizedPaymentBody is the request body for POST /payments
type itemizedPaymentBody struct {
	Items       []PaymentItem `json:"items"`
	RedirectURL string        `json:"redirectUrl"`
	WebhookURL  string        `json:"webhookUrl"`
	Data        string        `json:"data"`
}

// TransactionRequest is the request body for POST /transactions
type TransactionRequest struct {
	Receiver string `json:"receiver"`
	Amount   int    `json:"amount"`
	Comment  string `json:"comment"`
}

// setWebhookBody is the request body for PUT /card/webhook
type setWebhookBody struct {
	URL *string `json:"url"`
}

// User is the result of a discord id lookup. Username is nil when the
// discord account has no linked player.
type User struct {
	Username *string `json:"username"`
	UUID     *string `json:"uuid"`
}

// Found reports whether the lookup matched a player
func (u *User) Found() bool {
	return u != nil && u.Username != nil
}

// Card is a card owned by some account
type Card struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// SelfCard is the card the client is authenticated as
type SelfCard struct {
	Balance int     `json:"balance"`
	Webhook *string `json:"webhook"`
}

// City is a city the account owner belongs to
type City struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	X           int    `json:"x"`
	Z           int    `json:"z"`
	IsMayor     bool   `json:"isMayor"`
}

// Account is the owner of the authenticated card
type Account struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	MinecraftUUID string    `json:"minecraftUUID,omitempty"`
	Status        string    `json:"status"`
	Roles         []string  `json:"roles"`
	City          *City     `json:"city"`
	Cards         []Card    `json:"cards"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PaymentLink is the hosted checkout URL returned for a payment
type PaymentLink struct {
	URL string `json:"url"`
}

// TransactionResult carries the sender balance after a transaction
type TransactionResult struct {
	Balance int `json:"balance"`
}

// CardWebhook is the card state after changing its transaction webhook
type CardWebhook struct {
	ID      string  `json:"id"`
	Webhook *string `json:"webhook"`
}

// PaymentWebhook is the body posted to a payment's webhookUrl
type PaymentWebhook struct {
	Payer  string `json:"payer"`
	Amount int    `json:"amount"`
	Data   string `json:"data"`
}

// TransactionType is the direction of a card transaction
type TransactionType string

const (
	TransactionIncoming TransactionType = "incoming"
	TransactionOutgoing TransactionType = "outcoming"
)

// TransactionParty is one side of a card transaction
type TransactionParty struct {
	Username string `json:"username"`
	Number   string `json:"number"`
}

// TransactionWebhook is the body posted to a card's transaction webhook
type TransactionWebhook struct {
	ID        string           `json:"id"`
	Amount    int              `json:"amount"`
	Type      TransactionType  `json:"type"`
	Sender    TransactionParty `json:"sender"`
	Receiver  TransactionParty `json:"receiver"`
	Comment   string           `json:"comment"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ClientConfig holds the configuration for the SPWorlds client
type ClientConfig struct {
	BaseURL     string
	Credentials Credentials
	UserAgent   string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}
