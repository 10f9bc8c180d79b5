package recommend

import (
	"context"
	"errors"
	"fmt"
)

// ErrBackend marks failures of the generative backend. Callers can test for it
// with errors.Is; the underlying transport error stays in the chain.
var ErrBackend = errors.New("generative backend failed")

// Backend is the generative text service the pipeline depends on.
type Backend interface {
	// ClassifyBoolean answers a yes/no question posed by prompt.
	ClassifyBoolean(ctx context.Context, prompt string) (bool, error)

	// ExtractStructured asks for a JSON array answer and returns the raw text.
	// The text is untrusted: it may be empty, null, or malformed.
	ExtractStructured(ctx context.Context, prompt string) (string, error)
}

// Gate decides whether a conversation window is worth running extraction on.
type Gate struct {
	backend Backend
}

// NewGate returns a Gate that delegates to backend.
func NewGate(backend Backend) *Gate {
	return &Gate{backend: backend}
}

// ShouldProcess returns the backend's answer for the current window verbatim.
// Backend failures are returned wrapped in ErrBackend.
func (g *Gate) ShouldProcess(ctx context.Context, state *State) (bool, error) {
	prompt, err := renderShouldProcess(state)
	if err != nil {
		return false, err
	}

	ok, err := g.backend.ClassifyBoolean(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("%w: classify: %w", ErrBackend, err)
	}
	return ok, nil
}
