package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/ensemble/internal/engine"
	"github.com/easeaico/ensemble/internal/types"
)

// characterModel maps to the characters table. MemoryBank, Routines, and
// Actions are opaque text blobs owned by external collaborators.
type characterModel struct {
	ID              string `gorm:"primaryKey;size:36"`
	Name            string
	Role            string
	BehaviorPattern string
	Mood            float64
	MemoryBank      string
	Routines        string
	Actions         string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (characterModel) TableName() string {
	return "characters"
}

// CharacterRepo provides access to the characters table.
type CharacterRepo struct {
	db *gorm.DB
}

// NewCharacterRepo creates a new CharacterRepo.
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// GetByID fetches a character by ID.
func (r *CharacterRepo) GetByID(ctx context.Context, id string) (*types.Character, error) {
	var record characterModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("character %s: %w", id, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get character by id: %w", err)
	}
	character := characterFromModel(record)
	return &character, nil
}

func (r *CharacterRepo) Create(ctx context.Context, character *types.Character) error {
	record := characterModel{
		ID:              character.ID,
		Name:            character.Name,
		Role:            character.Role,
		BehaviorPattern: character.BehaviorPattern,
		Mood:            character.Mood,
		MemoryBank:      character.MemoryBank,
		Routines:        character.Routines,
		Actions:         character.Actions,
		IsActive:        character.IsActive,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert character: %w", err)
	}
	return nil
}

// UpdateMood updates a character's mood value.
func (r *CharacterRepo) UpdateMood(ctx context.Context, id string, mood float64) error {
	res := r.db.WithContext(ctx).Model(&characterModel{}).
		Where("id = ?", id).
		Update("mood", mood)
	if res.Error != nil {
		return fmt.Errorf("failed to update mood: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("character %s: %w", id, engine.ErrNotFound)
	}
	return nil
}

func characterFromModel(record characterModel) types.Character {
	return types.Character{
		ID:              record.ID,
		Name:            record.Name,
		Role:            record.Role,
		BehaviorPattern: record.BehaviorPattern,
		Mood:            record.Mood,
		MemoryBank:      record.MemoryBank,
		Routines:        record.Routines,
		Actions:         record.Actions,
		IsActive:        record.IsActive,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}
