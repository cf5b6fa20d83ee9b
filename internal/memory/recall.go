package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/easeaico/ensemble/internal/types"
)

// SearchRepo is the storage surface recall needs.
type SearchRepo interface {
	AddMemory(ctx context.Context, mem *types.CharacterMemory) error
	SearchSimilar(ctx context.Context, characterID string, embedding []float32, topK int, threshold float64) ([]types.ScoredMemory, error)
}

// Recall retrieves memories by semantic similarity. It runs alongside the
// engine's ranked selection; with no embedder configured every lookup
// returns nil.
type Recall struct {
	embedder            Embedder
	memories            SearchRepo
	topK                int
	similarityThreshold float64
}

// NewRecall creates a Recall service. embedder may be nil.
func NewRecall(embedder Embedder, memories SearchRepo, topK int, threshold float64) *Recall {
	if topK <= 0 {
		topK = 5
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Recall{
		embedder:            embedder,
		memories:            memories,
		topK:                topK,
		similarityThreshold: threshold,
	}
}

// Recall returns the top-k memories of the character similar to the query.
func (r *Recall) Recall(ctx context.Context, characterID, query string) ([]types.ScoredMemory, error) {
	if query == "" || r.embedder == nil {
		return nil, nil
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.memories.SearchSimilar(ctx, characterID, vec, r.topK, r.similarityThreshold)
}

// Remember embeds and stores a memory so it is reachable by both the
// similarity and the ranked retrieval paths.
func (r *Recall) Remember(ctx context.Context, characterID, content, contextTag string, importance float64) (*types.CharacterMemory, error) {
	mem := &types.CharacterMemory{
		ID:          uuid.NewString(),
		CharacterID: characterID,
		Content:     content,
		Context:     contextTag,
		Importance:  types.ClampImportance(importance),
		CreatedAt:   time.Now(),
	}
	if r.embedder != nil {
		vec, err := r.embedder.EmbedDocument(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("failed to embed memory: %w", err)
		}
		mem.Embedding = vec
	}
	if err := r.memories.AddMemory(ctx, mem); err != nil {
		return nil, err
	}
	return mem, nil
}
