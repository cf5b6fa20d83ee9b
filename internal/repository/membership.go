package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/ensemble/internal/types"
)

// participantModel maps to the conversation_participants table. The unique
// index on the pair backs the tracker's find-or-create.
type participantModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	ConversationID string `gorm:"size:36;uniqueIndex:uq_conversation_character"`
	CharacterID    string `gorm:"size:36;uniqueIndex:uq_conversation_character"`
	IsActive       bool
	JoinedAt       time.Time
	LastSeen       time.Time
}

func (participantModel) TableName() string {
	return "conversation_participants"
}

// roomMemberModel maps to the room_members table.
type roomMemberModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	RoomID      string `gorm:"size:36;uniqueIndex:uq_room_character"`
	CharacterID string `gorm:"size:36;uniqueIndex:uq_room_character"`
	Role        string
	IsActive    bool
	JoinedAt    time.Time
	LastSeen    time.Time
}

func (roomMemberModel) TableName() string {
	return "room_members"
}

// MembershipRepo accesses join records for both channel kinds.
type MembershipRepo struct {
	db *gorm.DB
}

// NewMembershipRepo returns a MembershipRepo.
func NewMembershipRepo(db *gorm.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

// Find returns the membership for the pair, active or not; nil when none
// exists.
func (r *MembershipRepo) Find(ctx context.Context, channelID string, kind types.ChannelKind, characterID string) (*types.Membership, error) {
	if kind == types.KindRoom {
		var record roomMemberModel
		err := r.db.WithContext(ctx).
			First(&record, "room_id = ? AND character_id = ?", channelID, characterID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query room member: %w", err)
		}
		m := roomMemberFromModel(record)
		return &m, nil
	}

	var record participantModel
	err := r.db.WithContext(ctx).
		First(&record, "conversation_id = ? AND character_id = ?", channelID, characterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	m := participantFromModel(record)
	return &m, nil
}

func (r *MembershipRepo) Create(ctx context.Context, m *types.Membership) error {
	if m.Kind == types.KindRoom {
		record := roomMemberModel{
			ID:          m.ID,
			RoomID:      m.ChannelID,
			CharacterID: m.CharacterID,
			Role:        m.Role,
			IsActive:    m.IsActive,
			JoinedAt:    m.JoinedAt,
			LastSeen:    m.LastSeen,
		}
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert room member: %w", err)
		}
		return nil
	}

	record := participantModel{
		ID:             m.ID,
		ConversationID: m.ChannelID,
		CharacterID:    m.CharacterID,
		IsActive:       m.IsActive,
		JoinedAt:       m.JoinedAt,
		LastSeen:       m.LastSeen,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

// Update writes the mutable membership fields (is_active, role, last_seen).
// JoinedAt never changes after creation.
func (r *MembershipRepo) Update(ctx context.Context, m *types.Membership) error {
	updates := map[string]any{
		"is_active": m.IsActive,
		"last_seen": m.LastSeen,
	}
	if m.Kind == types.KindRoom {
		updates["role"] = m.Role
		if err := r.db.WithContext(ctx).Model(&roomMemberModel{}).
			Where("id = ?", m.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update room member: %w", err)
		}
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&participantModel{}).
		Where("id = ?", m.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

func (r *MembershipRepo) CountActive(ctx context.Context, channelID string, kind types.ChannelKind) (int64, error) {
	var count int64
	var err error
	if kind == types.KindRoom {
		err = r.db.WithContext(ctx).Model(&roomMemberModel{}).
			Where("room_id = ? AND is_active = ?", channelID, true).
			Count(&count).Error
	} else {
		err = r.db.WithContext(ctx).Model(&participantModel{}).
			Where("conversation_id = ? AND is_active = ?", channelID, true).
			Count(&count).Error
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count active memberships: %w", err)
	}
	return count, nil
}

func (r *MembershipRepo) ListActive(ctx context.Context, channelID string, kind types.ChannelKind) ([]types.Membership, error) {
	if kind == types.KindRoom {
		var records []roomMemberModel
		if err := r.db.WithContext(ctx).
			Where("room_id = ? AND is_active = ?", channelID, true).
			Order("joined_at ASC").
			Find(&records).Error; err != nil {
			return nil, fmt.Errorf("failed to list room members: %w", err)
		}
		results := make([]types.Membership, 0, len(records))
		for _, record := range records {
			results = append(results, roomMemberFromModel(record))
		}
		return results, nil
	}

	var records []participantModel
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND is_active = ?", channelID, true).
		Order("joined_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	results := make([]types.Membership, 0, len(records))
	for _, record := range records {
		results = append(results, participantFromModel(record))
	}
	return results, nil
}

func participantFromModel(record participantModel) types.Membership {
	return types.Membership{
		ID:          record.ID,
		ChannelID:   record.ConversationID,
		Kind:        types.KindConversation,
		CharacterID: record.CharacterID,
		IsActive:    record.IsActive,
		JoinedAt:    record.JoinedAt,
		LastSeen:    record.LastSeen,
	}
}

func roomMemberFromModel(record roomMemberModel) types.Membership {
	return types.Membership{
		ID:          record.ID,
		ChannelID:   record.RoomID,
		Kind:        types.KindRoom,
		CharacterID: record.CharacterID,
		Role:        record.Role,
		IsActive:    record.IsActive,
		JoinedAt:    record.JoinedAt,
		LastSeen:    record.LastSeen,
	}
}
