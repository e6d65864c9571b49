// Package llm provides a provider-agnostic text completion interface with
// Gemini and OpenAI backings. The verification pipeline only needs a single
// prompt-in, text-out call, so the interface stays minimal.
package llm

import "context"

// Client produces a completion for a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
