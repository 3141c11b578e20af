package spworlds

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// endpoint declares how one API operation's responses are read
type endpoint struct {
	method string
	path   string
	// list is set when the body is a JSON array of objects
	list bool
	// required keys that must be present and non-null in every object
	required []string
	// nullable lists the required keys that may hold null
	nullable []string
	// notFound turns 404 into a successful empty result
	notFound bool
	// transaction enables the 400 message inspection of POST /transactions
	transaction bool
}

// Message fragments the API uses for transaction failures
var (
	insufficientFundsMessages = []string{"недостаточно средств", "insufficient funds", "not enough funds", "not enough money"}
	receiverMissingMessages   = []string{"карта не найдена", "карты не существует", "card does not exist", "card not found"}
)

// interpret classifies one HTTP response and decodes it into out on
// success. It returns errNotFoundResult for a tolerated 404.
func interpret(ep endpoint, status int, header http.Header, body []byte, out interface{}) error {
	contentType := header.Get("Content-Type")
	if !isJSON(contentType) || !json.Valid(body) {
		return &FormatError{StatusCode: status, ContentType: contentType}
	}

	switch {
	case status >= 200 && status < 300:
		if err := decodeStrict(ep, body, out); err != nil {
			return &DecodeError{Path: ep.path, Err: err}
		}
		return nil
	case status == http.StatusUnauthorized:
		return apiError(status, body, ErrUnauthorized)
	case status == http.StatusNotFound && ep.notFound:
		return errNotFoundResult
	case status == http.StatusBadRequest && ep.transaction:
		e := apiError(status, body, ErrBadRequest)
		text := strings.ToLower(e.Code + " " + e.Message)
		switch {
		case containsAny(text, insufficientFundsMessages):
			e.kind = ErrInsufficientFunds
		case containsAny(text, receiverMissingMessages):
			e.kind = ErrReceiverCardNotFound
		}
		return e
	case status >= 500:
		return apiError(status, body, ErrServer)
	default:
		return apiError(status, body, ErrBadRequest)
	}
}

// errNotFoundResult marks a 404 the endpoint treats as a valid answer
var errNotFoundResult = errors.New("spworlds: tolerated not found")

func apiError(status int, body []byte, kind error) *APIError {
	e := &APIError{StatusCode: status, kind: kind}
	// error bodies are best effort; a non-object body leaves Code and Message empty
	var fields struct {
		Error   interface{} `json:"error"`
		Message interface{} `json:"message"`
	}
	if json.Unmarshal(body, &fields) == nil {
		e.Code = stringify(fields.Error)
		e.Message = stringify(fields.Message)
	}
	return e
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		b, _ := json.Marshal(s)
		return string(b)
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// decodeStrict decodes body into out after checking the declared shape and
// required keys
func decodeStrict(ep endpoint, body []byte, out interface{}) error {
	if ep.list {
		var objects []map[string]json.RawMessage
		if err := json.Unmarshal(body, &objects); err != nil {
			return fmt.Errorf("expected array of objects: %w", err)
		}
		for i, obj := range objects {
			if err := requireKeys(obj, ep.required, ep.nullable); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	} else {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return fmt.Errorf("expected object: %w", err)
		}
		if obj == nil {
			return fmt.Errorf("expected object, got null")
		}
		if err := requireKeys(obj, ep.required, ep.nullable); err != nil {
			return err
		}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(bytes.NewReader(body)).Decode(out)
}

var jsonNull = []byte("null")

func requireKeys(obj map[string]json.RawMessage, keys, nullable []string) error {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			return fmt.Errorf("missing field %q", k)
		}
		if bytes.Equal(bytes.TrimSpace(raw), jsonNull) && !contains(nullable, k) {
			return fmt.Errorf("field %q is null", k)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
