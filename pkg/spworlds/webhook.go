package spworlds

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSignature is returned by the webhook parsers when the
// X-Body-Hash header does not match the body
var ErrInvalidSignature = errors.New("spworlds: invalid webhook signature")

// computeBodyHash computes the HMAC-SHA256 digest of a webhook body
func computeBodyHash(secret string, body []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return h.Sum(nil)
}

// SignWebhook returns the X-Body-Hash value the API sends for body
func SignWebhook(secret string, body []byte) string {
	return base64.StdEncoding.EncodeToString(computeBodyHash(secret, body))
}

// VerifyWebhookSignature reports whether signature is the base64
// HMAC-SHA256 of the exact raw body keyed by secret. A signature that is
// not valid base64, including non-zero padding bits, is reported as a
// mismatch.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	provided, err := base64.StdEncoding.Strict().DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(computeBodyHash(secret, body), provided)
}

// VerifyWebhook checks a webhook body against the client's card token
func (c *Client) VerifyWebhook(body []byte, signature string) bool {
	return VerifyWebhookSignature(c.config.Credentials.Token, body, signature)
}

// ParsePaymentWebhook verifies and decodes a payment webhook body
func (c *Client) ParsePaymentWebhook(body []byte, signature string) (*PaymentWebhook, error) {
	var event PaymentWebhook
	if err := c.parseWebhook(body, signature, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ParseTransactionWebhook verifies and decodes a card transaction webhook body
func (c *Client) ParseTransactionWebhook(body []byte, signature string) (*TransactionWebhook, error) {
	var event TransactionWebhook
	if err := c.parseWebhook(body, signature, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) parseWebhook(body []byte, signature string, out interface{}) error {
	if !c.VerifyWebhook(body, signature) {
		return ErrInvalidSignature
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("spworlds: decode webhook: %w", err)
	}
	return nil
}
