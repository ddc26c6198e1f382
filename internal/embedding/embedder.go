// Package embedding provides sentence embedding via ONNX and caching.
package embedding

import "context"

// DefaultDimensions is the output dimension of the bundled sentence model
// (paraphrase-mpnet-base-v2).
const DefaultDimensions = 768

// Embedder produces L2-normalized vector embeddings for text. The process
// holds a single embedder instance, injected into the components that need
// it; it is never reloaded per request.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
