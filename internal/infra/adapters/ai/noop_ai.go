package ai

import (
	"context"

	"student-writer-backend/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAI)(nil)

// NoopAI echoes a fixed marker. Used in tests and prompt-only deployments
// that still want the completion field populated.
type NoopAI struct{}

func NewNoopAI() *NoopAI { return &NoopAI{} }

func (n *NoopAI) Name() string { return "noop" }

func (n *NoopAI) Complete(ctx context.Context, model, prompt string) (string, error) {
	return "(noop completion)", nil
}
