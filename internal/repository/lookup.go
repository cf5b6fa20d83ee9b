package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/easeaico/ensemble/internal/engine"
	"github.com/easeaico/ensemble/internal/types"
)

// characterRoleModel maps to the character_roles lookup table.
type characterRoleModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"uniqueIndex"`
	Description string
}

func (characterRoleModel) TableName() string {
	return "character_roles"
}

// actionModel maps to the actions lookup table.
type actionModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"uniqueIndex"`
	Description string
	Metadata    json.RawMessage `gorm:"type:jsonb"`
}

func (actionModel) TableName() string {
	return "actions"
}

// LookupRepo accesses the name-keyed role and action definitions consumed
// by character behavior logic.
type LookupRepo struct {
	db *gorm.DB
}

// NewLookupRepo returns a LookupRepo.
func NewLookupRepo(db *gorm.DB) *LookupRepo {
	return &LookupRepo{db: db}
}

func (r *LookupRepo) GetRole(ctx context.Context, name string) (*types.CharacterRole, error) {
	var record characterRoleModel
	if err := r.db.WithContext(ctx).First(&record, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %s: %w", name, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &types.CharacterRole{ID: record.ID, Name: record.Name, Description: record.Description}, nil
}

func (r *LookupRepo) ListRoles(ctx context.Context) ([]types.CharacterRole, error) {
	var records []characterRoleModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	results := make([]types.CharacterRole, 0, len(records))
	for _, record := range records {
		results = append(results, types.CharacterRole{ID: record.ID, Name: record.Name, Description: record.Description})
	}
	return results, nil
}

func (r *LookupRepo) GetAction(ctx context.Context, name string) (*types.Action, error) {
	var record actionModel
	if err := r.db.WithContext(ctx).First(&record, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("action %s: %w", name, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return &types.Action{ID: record.ID, Name: record.Name, Description: record.Description, Metadata: record.Metadata}, nil
}

func (r *LookupRepo) ListActions(ctx context.Context) ([]types.Action, error) {
	var records []actionModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	results := make([]types.Action, 0, len(records))
	for _, record := range records {
		results = append(results, types.Action{ID: record.ID, Name: record.Name, Description: record.Description, Metadata: record.Metadata})
	}
	return results, nil
}
