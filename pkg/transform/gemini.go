package transform

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/observability"
)

// DefaultModel is used when GeminiOptions.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// GeminiOptions configures [NewGemini].
type GeminiOptions struct {
	APIKey      string
	Model       string  // default: gemini-2.5-flash
	Temperature float32 // default: 0.1
}

// Gemini is a Capability backed by the Gemini API. Responses are requested
// as application/json with the instruction as system instruction.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "gemini: API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, err, "gemini: create client")
	}
	return &Gemini{client: cli, model: opts.Model, temperature: opts.Temperature}, nil
}

// Model returns the model name.
func (g *Gemini) Model() string { return g.model }

// Invoke sends one GenerateContent request.
func (g *Gemini) Invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	hooks := observability.Transform()
	name := label(instruction)
	hooks.OnInvoke(ctx, g.model, name)
	start := time.Now()

	temp := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: payload}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
			Temperature:       &temp,
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		err = classify(err)
		hooks.OnError(ctx, g.model, name, err)
		return nil, err
	}

	raw, err := responseJSON(resp)
	if err != nil {
		hooks.OnError(ctx, g.model, name, err)
		return nil, err
	}
	hooks.OnResponse(ctx, g.model, name, len(raw), time.Since(start))
	return raw, nil
}

func responseJSON(resp *genai.GenerateContentResponse) (json.RawMessage, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidResponse, "gemini: no candidates")
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidResponse, "gemini: empty candidate")
	}
	var sb strings.Builder
	for _, p := range content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return cleanJSON(sb.String())
}

// classify maps API failures onto the error taxonomy: quota and server
// errors are transient, everything else is returned as-is with a code.
func classify(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Transient(errors.Wrap(errors.ErrCodeTimeout, err, "gemini request timed out"))
	}

	code, msg, ok := apiErrorCode(err)
	if !ok {
		return errors.Wrap(errors.ErrCodeUnavailable, err, "gemini request failed")
	}
	switch {
	case code == http.StatusTooManyRequests:
		return Transient(&errors.RateLimitedError{Message: msg})
	case code >= http.StatusInternalServerError:
		return Transient(errors.Wrap(errors.ErrCodeUnavailable, err, "gemini server error"))
	default:
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "gemini rejected request")
	}
}

func apiErrorCode(err error) (int, string, bool) {
	var v genai.APIError
	if stderrors.As(err, &v) {
		return v.Code, v.Message, true
	}
	var p *genai.APIError
	if stderrors.As(err, &p) && p != nil {
		return p.Code, p.Message, true
	}
	return 0, "", false
}
