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

// conversationModel maps to the conversations table. NextMessageOrder is
// the authoritative order counter for the channel.
type conversationModel struct {
	ID               string `gorm:"primaryKey;size:36"`
	Type             string
	IsActive         bool
	SessionData      json.RawMessage `gorm:"type:jsonb"`
	NextMessageOrder int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (conversationModel) TableName() string {
	return "conversations"
}

// roomModel maps to the rooms table.
type roomModel struct {
	ID               string `gorm:"primaryKey;size:36"`
	Name             string
	Description      string
	MaxMembers       int
	IsActive         bool
	CreatedBy        string
	Metadata         json.RawMessage `gorm:"type:jsonb"`
	NextMessageOrder int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (roomModel) TableName() string {
	return "rooms"
}

// ChannelRepo accesses conversations and rooms.
type ChannelRepo struct {
	db *gorm.DB
}

// NewChannelRepo returns a ChannelRepo.
func NewChannelRepo(db *gorm.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

func (r *ChannelRepo) GetConversation(ctx context.Context, id string) (*types.Conversation, error) {
	var record conversationModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation %s: %w", id, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &types.Conversation{
		ID:          record.ID,
		Type:        record.Type,
		IsActive:    record.IsActive,
		SessionData: record.SessionData,
		NextOrder:   record.NextMessageOrder,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}, nil
}

func (r *ChannelRepo) GetRoom(ctx context.Context, id string) (*types.Room, error) {
	var record roomModel
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("room %s: %w", id, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &types.Room{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		MaxMembers:  record.MaxMembers,
		IsActive:    record.IsActive,
		CreatedBy:   record.CreatedBy,
		Metadata:    record.Metadata,
		NextOrder:   record.NextMessageOrder,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}, nil
}

func (r *ChannelRepo) CreateConversation(ctx context.Context, conv *types.Conversation) error {
	record := conversationModel{
		ID:          conv.ID,
		Type:        conv.Type,
		IsActive:    conv.IsActive,
		SessionData: conv.SessionData,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

func (r *ChannelRepo) CreateRoom(ctx context.Context, room *types.Room) error {
	record := roomModel{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		MaxMembers:  room.MaxMembers,
		IsActive:    room.IsActive,
		CreatedBy:   room.CreatedBy,
		Metadata:    room.Metadata,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}

func (r *ChannelRepo) DeactivateConversation(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&conversationModel{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate conversation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("conversation %s: %w", id, engine.ErrNotFound)
	}
	return nil
}

func (r *ChannelRepo) DeactivateRoom(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&roomModel{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("room %s: %w", id, engine.ErrNotFound)
	}
	return nil
}

// Counter reads the channel's current order counter.
func (r *ChannelRepo) Counter(ctx context.Context, channelID string, kind types.ChannelKind) (int64, error) {
	if kind == types.KindRoom {
		room, err := r.GetRoom(ctx, channelID)
		if err != nil {
			return 0, err
		}
		return room.NextOrder, nil
	}
	conv, err := r.GetConversation(ctx, channelID)
	if err != nil {
		return 0, err
	}
	return conv.NextOrder, nil
}

// AdvanceCounter bumps the counter from `from` to from+1 with a conditional
// write. RowsAffected 0 means a concurrent writer won.
func (r *ChannelRepo) AdvanceCounter(ctx context.Context, channelID string, kind types.ChannelKind, from int64) (bool, error) {
	query := r.db.WithContext(ctx)
	var res *gorm.DB
	if kind == types.KindRoom {
		res = query.Model(&roomModel{}).
			Where("id = ? AND next_message_order = ?", channelID, from).
			Update("next_message_order", from+1)
	} else {
		res = query.Model(&conversationModel{}).
			Where("id = ? AND next_message_order = ?", channelID, from).
			Update("next_message_order", from+1)
	}
	if res.Error != nil {
		return false, fmt.Errorf("failed to advance counter: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
