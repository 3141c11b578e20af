package spworlds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client is an SPWorlds public API client. It holds no mutable state and
// may be shared between goroutines.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new SPWorlds API client
func NewClient(config *ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return NewClientWithHTTPClient(config, &http.Client{
		Timeout: config.Timeout,
	})
}

// NewClientWithHTTPClient creates a new SPWorlds API client with a custom HTTP client
func NewClientWithHTTPClient(config *ClientConfig, httpClient *http.Client) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger.With(zap.String("component", "spworlds")),
	}
}

// doRequest performs one authenticated request and classifies the response
func (c *Client) doRequest(ctx context.Context, ep endpoint, reqBody interface{}, result interface{}) error {
	var body io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("spworlds: marshal request: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, strings.TrimRight(c.config.BaseURL, "/")+ep.path, body)
	if err != nil {
		return fmt.Errorf("spworlds: create request: %w", err)
	}

	req.Header.Set("Authorization", c.config.Credentials.Authorization())
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", ep.method),
			zap.String("path", ep.path),
			zap.Error(err))
		return &TransportError{Method: ep.method, Path: ep.path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: ep.method, Path: ep.path, Err: err}
	}

	c.logger.Debug("request completed",
		zap.String("method", ep.method),
		zap.String("path", ep.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	return interpret(ep, resp.StatusCode, resp.Header, respBody, result)
}

func userEndpoint(discordID string, tolerateMissing bool) endpoint {
	return endpoint{
		method:   http.MethodGet,
		path:     "/users/" + url.PathEscape(discordID),
		required: []string{"username"},
		nullable: []string{"username"},
		notFound: tolerateMissing,
	}
}

// LookupUser returns the player linked to a discord account. A discord
// account with no player yields a User with a nil Username, not an error.
func (c *Client) LookupUser(ctx context.Context, discordID string) (*User, error) {
	var user User
	err := c.doRequest(ctx, userEndpoint(discordID, true), nil, &user)
	if errors.Is(err, errNotFoundResult) {
		return &User{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser returns the player linked to a discord account, or a
// *NotFoundError when there is none
func (c *Client) GetUser(ctx context.Context, discordID string) (*User, error) {
	var user User
	err := c.doRequest(ctx, userEndpoint(discordID, false), nil, &user)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Resource: "user", Key: discordID}
	}
	if err != nil {
		return nil, err
	}
	if user.Username == nil {
		return nil, &NotFoundError{Resource: "user", Key: discordID}
	}
	return &user, nil
}

// HasAccess reports whether a discord account is linked to a player
func (c *Client) HasAccess(ctx context.Context, discordID string) (bool, error) {
	user, err := c.LookupUser(ctx, discordID)
	if err != nil {
		return false, err
	}
	return user.Found(), nil
}

// GetCard returns the balance and webhook of the authenticated card
func (c *Client) GetCard(ctx context.Context) (*SelfCard, error) {
	ep := endpoint{method: http.MethodGet, path: "/card", required: []string{"balance"}}

	var card SelfCard
	if err := c.doRequest(ctx, ep, nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// Balance returns the balance of the authenticated card
func (c *Client) Balance(ctx context.Context) (int, error) {
	card, err := c.GetCard(ctx)
	if err != nil {
		return 0, err
	}
	return card.Balance, nil
}

// SetWebhook registers the url that receives every transaction on the
// card. A nil url removes it.
func (c *Client) SetWebhook(ctx context.Context, webhookURL *string) (*CardWebhook, error) {
	if err := validateWebhookURL(webhookURL); err != nil {
		return nil, err
	}

	ep := endpoint{method: http.MethodPut, path: "/card/webhook", required: []string{"id"}}

	var result CardWebhook
	if err := c.doRequest(ctx, ep, &setWebhookBody{URL: webhookURL}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreatePayment creates a payment link. Itemized requests go to
// POST /payments, flat ones to the legacy POST /payment.
func (c *Client) CreatePayment(ctx context.Context, req *PaymentRequest) (*PaymentLink, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ep := endpoint{method: http.MethodPost, required: []string{"url"}}
	var body interface{}
	if req.Itemized() {
		ep.path = "/payments"
		body = &itemizedPaymentBody{
			Items:       req.Items,
			RedirectURL: req.RedirectURL,
			WebhookURL:  req.WebhookURL,
			Data:        req.Data,
		}
	} else {
		ep.path = "/payment"
		body = &flatPaymentBody{
			Amount:      req.Amount,
			RedirectURL: req.RedirectURL,
			WebhookURL:  req.WebhookURL,
			Data:        req.Data,
		}
	}

	var link PaymentLink
	if err := c.doRequest(ctx, ep, body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// SendTransaction transfers money from the authenticated card
func (c *Client) SendTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ep := endpoint{
		method:      http.MethodPost,
		path:        "/transactions",
		required:    []string{"balance"},
		transaction: true,
	}

	var result TransactionResult
	if err := c.doRequest(ctx, ep, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Me returns the account that owns the authenticated card
func (c *Client) Me(ctx context.Context) (*Account, error) {
	ep := endpoint{method: http.MethodGet, path: "/accounts/me", required: []string{"id", "username"}}

	var account Account
	if err := c.doRequest(ctx, ep, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// AccountCards returns the cards owned by a player
func (c *Client) AccountCards(ctx context.Context, username string) ([]Card, error) {
	ep := endpoint{
		method:   http.MethodGet,
		path:     "/accounts/" + url.PathEscape(username) + "/cards",
		list:     true,
		required: []string{"name", "number"},
	}

	var cards []Card
	if err := c.doRequest(ctx, ep, nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}
