package embedder

import (
	"context"
	"fmt"
)

// Embedder generates vector embeddings from text. Query-time and index-time
// embeddings must come from the same implementation and model version;
// vectors from different models are not comparable.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns vector embeddings for multiple texts.
	// The result is order-preserving: output[i] embeds texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelVersion identifies the model that produced the vectors. It is
	// persisted alongside each embedding and checked at query time.
	ModelVersion() string
}

// BackendError reports an unreachable embedding backend or a malformed
// response from it.
type BackendError struct {
	StatusCode int // 0 for transport-level and decode failures
	Message    string
	Err        error

	// Transient marks transport-level failures that may succeed on retry.
	Transient bool
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding backend returned %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("embedding backend: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("embedding backend: %s", e.Message)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying: transport
// errors and server-side (5xx) responses are; client errors and malformed
// response bodies are not.
func (e *BackendError) Retryable() bool {
	return e.Transient || e.StatusCode >= 500
}
