package api

import (
	"context"
	"io"
)

// Transcriber converts audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, name string, r io.Reader) (string, error)
}

// Provider returns a transcriber instance to use.
// `current` asks for the same instance used before, empty selects any.
type Provider interface {
	Get(current string) (Transcriber, string, error)
}
