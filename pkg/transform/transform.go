package transform

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/retry"
)

// Capability invokes the transform service.
type Capability interface {
	// Invoke sends a role instruction and payload and returns the structured
	// result. The returned document is always valid JSON.
	Invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error)
}

// Func adapts a function to [Capability].
type Func func(ctx context.Context, instruction, payload string) (json.RawMessage, error)

func (f Func) Invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	return f(ctx, instruction, payload)
}

// Middleware decorates a Capability.
type Middleware func(Capability) Capability

// Chain applies middlewares in left-to-right order:
// Chain(inner, A, B) => A(B(inner)).
func Chain(inner Capability, mws ...Middleware) Capability {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// TransientError marks a failure that may succeed when retried, such as
// upstream rate limiting or a 5xx response.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Temporary makes TransientError retryable by pkg/retry.
func (e *TransientError) Temporary() bool { return true }

// Transient wraps err as a [TransientError]. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err, or anything it wraps, is retryable.
func IsTransient(err error) bool { return retry.Retryable(err) }

// Decode unmarshals a transform result into v, reporting malformed documents
// as invalid responses.
func Decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidResponse, err, "decode transform result")
	}
	return nil
}

// Payload marshals v as indented JSON for use as an Invoke payload.
func Payload(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ModelOf returns the model name of c, or "" when c does not expose one.
func ModelOf(c Capability) string {
	if m, ok := c.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// Close releases resources held by c and anything it wraps.
func Close(c Capability) error {
	if cl, ok := c.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// label shortens an instruction for logs and hooks.
func label(instruction string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(instruction), "\n")
	if len(line) > 48 {
		line = line[:48] + "…"
	}
	return line
}

// cleanJSON strips Markdown code fences some models wrap around JSON output
// and validates the result.
func cleanJSON(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return nil, errors.New(errors.ErrCodeInvalidResponse, "empty response")
	}
	if !json.Valid([]byte(s)) {
		return nil, errors.New(errors.ErrCodeInvalidResponse, "response is not valid JSON")
	}
	return json.RawMessage(s), nil
}
