package engine

import (
	"context"
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/easeaico/ensemble/internal/types"
)

// MemoryStore is the narrow accessor over character memories and templates.
// No business rules live behind it; the ranker is unit-testable against an
// in-memory fake.
type MemoryStore interface {
	ListMemories(ctx context.Context, characterID string) ([]types.CharacterMemory, error)
	AddMemory(ctx context.Context, mem *types.CharacterMemory) error
	ListTemplates(ctx context.Context) ([]types.MemoryTemplate, error)
}

// ContextResult is a bounded, rank-ordered memory selection. SkippedOversized
// counts memories whose content alone exceeded the budget; they are skipped
// whole, never truncated.
type ContextResult struct {
	Memories         []types.CharacterMemory
	TotalLength      int
	SkippedOversized int
}

// Ranker selects a bounded, importance- and recency-weighted subset of a
// character's memories.
type Ranker struct {
	memories MemoryStore
	halfLife time.Duration
}

// NewRanker returns a Ranker. halfLife controls the exponential recency
// decay; non-positive values fall back to 72h.
func NewRanker(memories MemoryStore, halfLife time.Duration) *Ranker {
	if halfLife <= 0 {
		halfLife = 72 * time.Hour
	}
	return &Ranker{memories: memories, halfLife: halfLife}
}

// SelectContext scores every memory of the character and greedily fills the
// budget (a rune count over content) in descending score order. The result
// is deterministic for fixed inputs: ties break more-recent-first, then by
// lower memory id. A character with no memories yields an empty result.
func (r *Ranker) SelectContext(ctx context.Context, characterID string, budget int, now time.Time) (*ContextResult, error) {
	memories, err := r.memories.ListMemories(ctx, characterID)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredEntry, 0, len(memories))
	for _, mem := range memories {
		scored = append(scored, scoredEntry{
			memory: mem,
			score:  types.ClampImportance(mem.Importance) * recencyWeight(now, mem.CreatedAt, r.halfLife),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if !scored[i].memory.CreatedAt.Equal(scored[j].memory.CreatedAt) {
			return scored[i].memory.CreatedAt.After(scored[j].memory.CreatedAt)
		}
		return scored[i].memory.ID < scored[j].memory.ID
	})

	result := &ContextResult{}
	for _, entry := range scored {
		length := utf8.RuneCountInString(entry.memory.Content)
		if length > budget {
			result.SkippedOversized++
			continue
		}
		if result.TotalLength+length > budget {
			continue
		}
		result.Memories = append(result.Memories, entry.memory)
		result.TotalLength += length
	}
	return result, nil
}

type scoredEntry struct {
	memory types.CharacterMemory
	score  float64
}

// recencyWeight decays exponentially with age: 1.0 at createdAt, 0.5 one
// half-life later. Ages in the future clamp to weight 1.
func recencyWeight(now, createdAt time.Time, halfLife time.Duration) float64 {
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}
