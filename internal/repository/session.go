package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/ensemble/internal/engine"
	"github.com/easeaico/ensemble/internal/types"
)

// sessionModel maps to the sessions table.
type sessionModel struct {
	ID                   string          `gorm:"primaryKey;size:36"`
	SessionData          json.RawMessage `gorm:"type:jsonb"`
	ActiveConversationID *string         `gorm:"size:36"`
	IsActive             bool
	LastActivity         time.Time
}

func (sessionModel) TableName() string {
	return "sessions"
}

// SessionRepo accesses session records.
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo returns a SessionRepo.
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*types.Session, error) {
	var record sessionModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session := types.Session{
		ID:           record.ID,
		SessionData:  record.SessionData,
		IsActive:     record.IsActive,
		LastActivity: record.LastActivity,
	}
	if record.ActiveConversationID != nil {
		session.ActiveConversationID = *record.ActiveConversationID
	}
	return &session, nil
}

// Upsert creates or replaces the session record.
func (r *SessionRepo) Upsert(ctx context.Context, session *types.Session) error {
	var activeConversationID *string
	if session.ActiveConversationID != "" {
		activeConversationID = &session.ActiveConversationID
	}
	record := sessionModel{
		ID:                   session.ID,
		SessionData:          session.SessionData,
		ActiveConversationID: activeConversationID,
		IsActive:             session.IsActive,
		LastActivity:         session.LastActivity,
	}
	if err := r.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// Touch refreshes the session's last activity timestamp.
func (r *SessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ?", id).
		Update("last_activity", at)
	if res.Error != nil {
		return fmt.Errorf("failed to touch session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session %s: %w", id, engine.ErrNotFound)
	}
	return nil
}
