package spworlds

import (
	"fmt"
	"net/url"
	"unicode/utf8"
)

// rule is one named field check. Rules run in slice order.
type rule struct {
	field  string
	value  interface{}
	kind   error
	reason string
	ok     func() bool
}

func (r rule) violation() *ValidationError {
	return &ValidationError{Field: r.field, Value: r.value, Reason: r.reason, kind: r.kind}
}

// firstViolation returns the first failing rule, or nil
func firstViolation(rules []rule) error {
	for _, r := range rules {
		if !r.ok() {
			return r.violation()
		}
	}
	return nil
}

// allViolations returns every failing rule in order
func allViolations(rules []rule) []*ValidationError {
	var out []*ValidationError
	for _, r := range rules {
		if !r.ok() {
			out = append(out, r.violation())
		}
	}
	return out
}

// Validate returns the first violated constraint, in field order
func (p *PaymentRequest) Validate() error {
	return firstViolation(p.rules())
}

// Violations returns every violated constraint, in field order
func (p *PaymentRequest) Violations() []*ValidationError {
	return allViolations(p.rules())
}

func (p *PaymentRequest) rules() []rule {
	var rules []rule
	switch {
	case p.Itemized() && p.Amount != 0:
		rules = append(rules, rule{
			field: "amount", value: p.Amount, kind: ErrInvalidShape,
			reason: "amount and items are mutually exclusive",
			ok:     func() bool { return false },
		})
	case p.Itemized():
		for i := range p.Items {
			rules = append(rules, itemRules(i, p.Items[i])...)
		}
		total := p.Total()
		rules = append(rules, rule{
			field: "items", value: total, kind: ErrAmountOutOfRange,
			reason: fmt.Sprintf("total %d is outside [1, %d]", total, MaxItemizedAmount),
			ok:     func() bool { return inRange(total, 1, MaxItemizedAmount) },
		})
	default:
		rules = append(rules, rule{
			field: "amount", value: p.Amount, kind: ErrAmountOutOfRange,
			reason: fmt.Sprintf("%d is outside [1, %d]", p.Amount, MaxFlatAmount),
			ok:     func() bool { return inRange(p.Amount, 1, MaxFlatAmount) },
		})
	}

	return append(rules,
		urlRule("redirectUrl", p.RedirectURL),
		urlRule("webhookUrl", p.WebhookURL),
		rule{
			field: "data", value: p.Data, kind: ErrFieldLength,
			reason: fmt.Sprintf("longer than %d characters", MaxDataLength),
			ok:     func() bool { return utf8.RuneCountInString(p.Data) <= MaxDataLength },
		},
	)
}

func itemRules(i int, it PaymentItem) []rule {
	prefix := fmt.Sprintf("items[%d].", i)
	rules := []rule{
		{
			field: prefix + "name", value: it.Name, kind: ErrFieldLength,
			reason: fmt.Sprintf("length must be within [%d, %d]", MinItemNameLength, MaxItemNameLength),
			ok:     func() bool { return lengthIn(it.Name, MinItemNameLength, MaxItemNameLength) },
		},
		{
			field: prefix + "count", value: it.Count, kind: ErrAmountOutOfRange,
			reason: fmt.Sprintf("%d is outside [1, %d]", it.Count, MaxItemCount),
			ok:     func() bool { return inRange(it.Count, 1, MaxItemCount) },
		},
		{
			field: prefix + "price", value: it.Price, kind: ErrAmountOutOfRange,
			reason: fmt.Sprintf("%d is outside [1, %d]", it.Price, MaxItemPrice),
			ok:     func() bool { return inRange(it.Price, 1, MaxItemPrice) },
		},
	}
	if it.Comment != "" {
		rules = append(rules, rule{
			field: prefix + "comment", value: it.Comment, kind: ErrFieldLength,
			reason: fmt.Sprintf("length must be within [%d, %d]", MinItemNameLength, MaxItemNameLength),
			ok:     func() bool { return lengthIn(it.Comment, MinItemNameLength, MaxItemNameLength) },
		})
	}
	return rules
}

// Validate returns the first violated constraint, in field order
func (t *TransactionRequest) Validate() error {
	return firstViolation(t.rules())
}

// Violations returns every violated constraint, in field order
func (t *TransactionRequest) Violations() []*ValidationError {
	return allViolations(t.rules())
}

func (t *TransactionRequest) rules() []rule {
	return []rule{
		{
			field: "receiver", value: t.Receiver, kind: ErrInvalidCardNumber,
			reason: fmt.Sprintf("%q is not %d digits", t.Receiver, CardNumberLength),
			ok:     func() bool { return IsCardNumber(t.Receiver) },
		},
		{
			field: "amount", value: t.Amount, kind: ErrAmountOutOfRange,
			reason: fmt.Sprintf("%d is not positive", t.Amount),
			ok:     func() bool { return t.Amount >= 1 },
		},
		{
			field: "comment", value: t.Comment, kind: ErrFieldLength,
			reason: fmt.Sprintf("length must be within [1, %d]", MaxCommentLength),
			ok:     func() bool { return lengthIn(t.Comment, 1, MaxCommentLength) },
		},
	}
}

// validateWebhookURL checks an optional card webhook url
func validateWebhookURL(u *string) error {
	if u == nil {
		return nil
	}
	return firstViolation([]rule{urlRule("url", *u)})
}

func urlRule(field, value string) rule {
	return rule{
		field: field, value: value, kind: ErrInvalidURL,
		reason: fmt.Sprintf("%q is not an absolute url", value),
		ok:     func() bool { return IsAbsoluteURL(value) },
	}
}

// IsAbsoluteURL reports whether s parses as a URL with both scheme and host
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// IsCardNumber reports whether s is exactly five ASCII digits
func IsCardNumber(s string) bool {
	if len(s) != CardNumberLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}

func lengthIn(s string, lo, hi int) bool {
	return inRange(utf8.RuneCountInString(s), lo, hi)
}
