package audit

import "strings"

// RedactedValue replaces every sensitive field before persistence.
const RedactedValue = "[REDACTED]"

// defaultSensitiveKeys are redacted regardless of configuration.
var defaultSensitiveKeys = []string{
	"password",
	"password_confirmation",
	"token",
	"api_key",
	"secret",
	"access_token",
	"refresh_token",
}

// Redactor replaces sensitive fields in payload maps with RedactedValue.
// Matching is case-insensitive and recurses into nested maps and slices.
type Redactor struct {
	keys map[string]struct{}
}

// RedactorOption configures a Redactor.
type RedactorOption func(*Redactor)

// WithSensitiveKeys redacts additional field names.
func WithSensitiveKeys(keys ...string) RedactorOption {
	return func(r *Redactor) {
		for _, key := range keys {
			r.keys[strings.ToLower(key)] = struct{}{}
		}
	}
}

// NewRedactor creates a redactor with the default sensitive field set.
func NewRedactor(opts ...RedactorOption) *Redactor {
	r := &Redactor{keys: make(map[string]struct{}, len(defaultSensitiveKeys))}
	for _, key := range defaultSensitiveKeys {
		r.keys[key] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Redact returns a copy of the payload with sensitive fields replaced. The
// input map is never mutated.
func (r *Redactor) Redact(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}

	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if _, sensitive := r.keys[strings.ToLower(key)]; sensitive {
			out[key] = RedactedValue
			continue
		}
		out[key] = r.redactValue(value)
	}
	return out
}

func (r *Redactor) redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return r.Redact(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.redactValue(item)
		}
		return out
	default:
		return value
	}
}
