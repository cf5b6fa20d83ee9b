package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/easeaico/ensemble/internal/types"
)

// characterMemoryModel maps to the character_memories table.
type characterMemoryModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	CharacterID string `gorm:"size:36;index"`
	Content     string
	Context     string
	// Importance is a 0-1 weight, used in ranking.
	Importance float64
	// Embedding stores an optional vector representation for similarity search.
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

func (characterMemoryModel) TableName() string {
	return "character_memories"
}

// memoryTemplateModel maps to the memory_templates table, a global lookup.
type memoryTemplateModel struct {
	ID      string `gorm:"primaryKey;size:36"`
	Heading string
	Content string
}

func (memoryTemplateModel) TableName() string {
	return "memory_templates"
}

// MemoryRepo accesses character memory and template data. It carries no
// business rules; ranking is the engine's job.
type MemoryRepo struct {
	db *gorm.DB
}

// NewMemoryRepo returns a MemoryRepo.
func NewMemoryRepo(db *gorm.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// AddMemory appends a memory record. Memories are never mutated afterwards.
func (r *MemoryRepo) AddMemory(ctx context.Context, mem *types.CharacterMemory) error {
	var vector *pgvector.Vector
	if len(mem.Embedding) > 0 {
		v := pgvector.NewVector(mem.Embedding)
		vector = &v
	}
	record := characterMemoryModel{
		ID:          mem.ID,
		CharacterID: mem.CharacterID,
		Content:     mem.Content,
		Context:     mem.Context,
		Importance:  types.ClampImportance(mem.Importance),
		Embedding:   vector,
		CreatedAt:   mem.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// ListMemories returns all memories for the character, unordered.
func (r *MemoryRepo) ListMemories(ctx context.Context, characterID string) ([]types.CharacterMemory, error) {
	var records []characterMemoryModel
	if err := r.db.WithContext(ctx).
		Where("character_id = ?", characterID).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}

	results := make([]types.CharacterMemory, 0, len(records))
	for _, record := range records {
		results = append(results, types.CharacterMemory{
			ID:          record.ID,
			CharacterID: record.CharacterID,
			Content:     record.Content,
			Context:     record.Context,
			Importance:  record.Importance,
			CreatedAt:   record.CreatedAt,
		})
	}
	return results, nil
}

// ListTemplates returns every memory template.
func (r *MemoryRepo) ListTemplates(ctx context.Context) ([]types.MemoryTemplate, error) {
	var records []memoryTemplateModel
	if err := r.db.WithContext(ctx).Order("heading ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query memory templates: %w", err)
	}
	results := make([]types.MemoryTemplate, 0, len(records))
	for _, record := range records {
		results = append(results, types.MemoryTemplate{
			ID:      record.ID,
			Heading: record.Heading,
			Content: record.Content,
		})
	}
	return results, nil
}

// SearchSimilar filters memories by cosine similarity and re-ranks the
// survivors by a blend of similarity and importance.
func (r *MemoryRepo) SearchSimilar(ctx context.Context, characterID string, embedding []float32, topK int, threshold float64) ([]types.ScoredMemory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT content, context, created_at,
		       1 - (embedding <=> $1) AS similarity,
		       COALESCE(importance, 0) AS importance
		FROM character_memories
		WHERE character_id = $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY (0.85 * (1 - (embedding <=> $1)) + 0.15 * COALESCE(importance, 0)) DESC
		LIMIT $4`

	vector := pgvector.NewVector(embedding)
	var results []types.ScoredMemory
	if err := r.db.WithContext(ctx).
		Raw(query, vector, characterID, threshold, topK).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar memories: %w", err)
	}
	return results, nil
}
