package domain

import (
	"context"
	"fmt"
)

// Generator is the external text-generation backend: prompt in, text out.
type Generator interface {
	Reply(ctx context.Context, prompt string) (string, error)
	QuizQuestion(ctx context.Context, topic, difficulty string) (string, error)
	Explain(ctx context.Context, concept, level string) (string, error)
}

// GenerationError wraps any failure of the generation backend. Callers
// recover with a fixed user-visible fallback; the error is never fatal.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
