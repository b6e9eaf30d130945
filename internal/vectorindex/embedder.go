package vectorindex

import (
	"context"
	"log/slog"
	"math"
)

// maxEmbedBatch is the max texts sent to the embedding provider per call,
// matching the teacher's Vertex AI batching limit.
const maxEmbedBatch = 250

// EmbeddingClient abstracts the embedding provider.
type EmbeddingClient interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// embedChunks embeds every pending chunk, batching requests up to
// maxEmbedBatch. A chunk whose embedding fails (either because its whole
// batch failed, or because its vector came back the wrong dimension) is
// logged and dropped rather than failing the entire call, per the upsert
// policy: the operation succeeds if at least one chunk is stored.
func embedChunks(ctx context.Context, client EmbeddingClient, log *slog.Logger, chunks []pendingChunk) ([]pendingChunk, [][]float32) {
	dim := client.Dimensions()

	var okChunks []pendingChunk
	var okVectors [][]float32

	for start := 0; start < len(chunks); start += maxEmbedBatch {
		end := start + maxEmbedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.content
		}

		vectors, err := client.EmbedTexts(ctx, texts)
		if err != nil {
			log.Warn("embedding batch failed, retrying chunks individually", "batch_size", len(batch), "error", err.Error())
			for i, c := range batch {
				single, err := client.EmbedTexts(ctx, texts[i:i+1])
				if err != nil || len(single) != 1 {
					log.Warn("embedding failed for chunk, skipping", "document_id", c.documentID, "page", c.pageNumber, "error", err)
					continue
				}
				if v, ok := validateAndNormalize(single[0], dim); ok {
					okChunks = append(okChunks, c)
					okVectors = append(okVectors, v)
				} else {
					log.Warn("embedding had wrong dimension, skipping chunk", "document_id", c.documentID, "page", c.pageNumber, "got_dim", len(single[0]), "want_dim", dim)
				}
			}
			continue
		}

		for i, vec := range vectors {
			if v, ok := validateAndNormalize(vec, dim); ok {
				okChunks = append(okChunks, batch[i])
				okVectors = append(okVectors, v)
			} else {
				log.Warn("embedding had wrong dimension, skipping chunk", "document_id", batch[i].documentID, "page", batch[i].pageNumber, "got_dim", len(vec), "want_dim", dim)
			}
		}
	}

	return okChunks, okVectors
}

func validateAndNormalize(vec []float32, dim int) ([]float32, bool) {
	if dim > 0 && len(vec) != dim {
		return nil, false
	}
	return l2Normalize(vec), true
}

// l2Normalize scales vec to unit length.
func l2Normalize(vec []float32) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
