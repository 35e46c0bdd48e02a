package transform

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/matzehuels/uimigrate/pkg/errors"
)

// Fake is a scripted Capability for tests. Rules match instructions by
// prefix, first registered rule first. Queued errors are returned before
// responses; responses are consumed in order and the last one repeats.
type Fake struct {
	mu    sync.Mutex
	rules []*fakeRule
	calls []Call
	model string
}

type fakeRule struct {
	prefix    string
	responses []json.RawMessage
	errs      []error
}

// Call records one Invoke on a Fake.
type Call struct {
	Instruction string
	Payload     string
}

// NewFake creates an empty Fake.
func NewFake() *Fake { return &Fake{model: "fake"} }

// Model returns the fake model name.
func (f *Fake) Model() string { return f.model }

func (f *Fake) rule(prefix string) *fakeRule {
	for _, r := range f.rules {
		if r.prefix == prefix {
			return r
		}
	}
	r := &fakeRule{prefix: prefix}
	f.rules = append(f.rules, r)
	return r
}

// On scripts JSON responses for instructions starting with prefix.
func (f *Fake) On(prefix string, responses ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rule(prefix)
	for _, s := range responses {
		r.responses = append(r.responses, json.RawMessage(s))
	}
	return f
}

// Fail queues errors for instructions starting with prefix.
func (f *Fake) Fail(prefix string, errs ...error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rule(prefix)
	r.errs = append(r.errs, errs...)
	return f
}

// Invoke returns the next scripted result for instruction.
func (f *Fake) Invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Instruction: instruction, Payload: payload})

	for _, r := range f.rules {
		if !strings.HasPrefix(instruction, r.prefix) {
			continue
		}
		if len(r.errs) > 0 {
			err := r.errs[0]
			r.errs = r.errs[1:]
			return nil, err
		}
		switch len(r.responses) {
		case 0:
			continue
		case 1:
			return r.responses[0], nil
		default:
			out := r.responses[0]
			r.responses = r.responses[1:]
			return out, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidResponse, "fake: no response scripted for %q", label(instruction))
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many calls had an instruction starting with prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c.Instruction, prefix) {
			n++
		}
	}
	return n
}
