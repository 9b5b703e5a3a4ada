package adapter

import "context"

// AIServiceAdapter is the hex port for LLM providers used to complete the
// generated prompt. The prompt text itself never depends on this port; a
// deployment without any provider simply returns the prompt for copy-paste.
type AIServiceAdapter interface {
	Name() string
	Complete(ctx context.Context, model, prompt string) (string, error)
}
