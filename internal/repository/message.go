package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/ensemble/internal/types"
)

// messageModel maps to the messages table. The composite unique index on
// (conversation_id, message_order) is a backstop for the allocator's
// compare-and-swap, not the primary uniqueness control.
type messageModel struct {
	ID             string  `gorm:"primaryKey;size:36"`
	ConversationID string  `gorm:"size:36;uniqueIndex:uq_conversation_order"`
	CharacterID    *string `gorm:"size:36;index"`
	Content        string
	Type           string
	Metadata       json.RawMessage `gorm:"type:jsonb"`
	MessageOrder   int64           `gorm:"uniqueIndex:uq_conversation_order"`
	CreatedAt      time.Time
}

func (messageModel) TableName() string {
	return "messages"
}

// roomMessageModel maps to the room_messages table; its ordering domain is
// independent of the messages table.
type roomMessageModel struct {
	ID           string  `gorm:"primaryKey;size:36"`
	RoomID       string  `gorm:"size:36;uniqueIndex:uq_room_order"`
	CharacterID  *string `gorm:"size:36;index"`
	Content      string
	Type         string
	Metadata     json.RawMessage `gorm:"type:jsonb"`
	MessageOrder int64           `gorm:"uniqueIndex:uq_room_order"`
	CreatedAt    time.Time
}

func (roomMessageModel) TableName() string {
	return "room_messages"
}

// MessageRepo persists channel messages into the stream matching the kind.
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo returns a MessageRepo.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append commits a message. Messages are append-only once committed.
func (r *MessageRepo) Append(ctx context.Context, msg *types.Message) error {
	var characterID *string
	if id, ok := msg.Author.CharacterID(); ok {
		characterID = &id
	}

	if msg.Kind == types.KindRoom {
		record := roomMessageModel{
			ID:           msg.ID,
			RoomID:       msg.ChannelID,
			CharacterID:  characterID,
			Content:      msg.Content,
			Type:         msg.Type,
			Metadata:     msg.Metadata,
			MessageOrder: msg.Order,
			CreatedAt:    msg.CreatedAt,
		}
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert room message: %w", err)
		}
		return nil
	}

	record := messageModel{
		ID:             msg.ID,
		ConversationID: msg.ChannelID,
		CharacterID:    characterID,
		Content:        msg.Content,
		Type:           msg.Type,
		Metadata:       msg.Metadata,
		MessageOrder:   msg.Order,
		CreatedAt:      msg.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages returns up to limit messages for the channel in ascending
// order. limit <= 0 means no limit.
func (r *MessageRepo) ListMessages(ctx context.Context, channelID string, kind types.ChannelKind, limit int) ([]types.Message, error) {
	if kind == types.KindRoom {
		var records []roomMessageModel
		query := r.db.WithContext(ctx).
			Where("room_id = ?", channelID).
			Order("message_order ASC")
		if limit > 0 {
			query = query.Limit(limit)
		}
		if err := query.Find(&records).Error; err != nil {
			return nil, fmt.Errorf("failed to query room messages: %w", err)
		}
		results := make([]types.Message, 0, len(records))
		for _, record := range records {
			results = append(results, types.Message{
				ID:        record.ID,
				ChannelID: record.RoomID,
				Kind:      types.KindRoom,
				Author:    authorFromColumn(record.CharacterID),
				Content:   record.Content,
				Type:      record.Type,
				Metadata:  record.Metadata,
				Order:     record.MessageOrder,
				CreatedAt: record.CreatedAt,
			})
		}
		return results, nil
	}

	var records []messageModel
	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", channelID).
		Order("message_order ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	results := make([]types.Message, 0, len(records))
	for _, record := range records {
		results = append(results, types.Message{
			ID:        record.ID,
			ChannelID: record.ConversationID,
			Kind:      types.KindConversation,
			Author:    authorFromColumn(record.CharacterID),
			Content:   record.Content,
			Type:      record.Type,
			Metadata:  record.Metadata,
			Order:     record.MessageOrder,
			CreatedAt: record.CreatedAt,
		})
	}
	return results, nil
}

func authorFromColumn(characterID *string) types.Author {
	if characterID == nil || *characterID == "" {
		return types.System()
	}
	return types.AuthoredBy(*characterID)
}
