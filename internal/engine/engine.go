// Package engine implements conversation ordering and character memory
// retrieval: strictly ordered message sequences per channel, membership
// lifecycle with capacity bounds, and bounded ranked memory selection.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/easeaico/ensemble/internal/types"
)

// MessageRepo persists committed channel messages.
type MessageRepo interface {
	Append(ctx context.Context, msg *types.Message) error
	ListMessages(ctx context.Context, channelID string, kind types.ChannelKind, limit int) ([]types.Message, error)
}

// CharacterRepo accesses character profiles.
type CharacterRepo interface {
	GetByID(ctx context.Context, id string) (*types.Character, error)
	Create(ctx context.Context, character *types.Character) error
	UpdateMood(ctx context.Context, id string, mood float64) error
}

// Engine is the public entry point. It composes the allocator, tracker,
// and ranker, and enforces the cross-entity invariants the store does not:
// membership-before-authorship and capacity-before-join.
type Engine struct {
	channels   ChannelRepo
	messages   MessageRepo
	characters CharacterRepo
	memories   MemoryStore
	allocator  *Allocator
	tracker    *Tracker
	ranker     *Ranker
	now        func() time.Time
}

// New returns an Engine wired over the given repositories.
func New(channels ChannelRepo, messages MessageRepo, memberships MembershipRepo, characters CharacterRepo, memories MemoryStore, halfLife time.Duration) *Engine {
	return &Engine{
		channels:   channels,
		messages:   messages,
		characters: characters,
		memories:   memories,
		allocator:  NewAllocator(channels),
		tracker:    NewTracker(memberships, channels),
		ranker:     NewRanker(memories, halfLife),
		now:        time.Now,
	}
}

// PostMessage validates authorship, allocates the next order for the
// channel, and commits the message. An order conflict is retried exactly
// once; a second conflict surfaces as ErrConflict. System messages bypass
// the membership gate.
func (e *Engine) PostMessage(ctx context.Context, channelID string, kind types.ChannelKind, author types.Author, content, msgType string, metadata json.RawMessage) (*types.Message, error) {
	if characterID, ok := author.CharacterID(); ok {
		active, err := e.tracker.IsActiveMember(ctx, channelID, kind, characterID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, ErrNotAMember
		}
	}

	msg, err := e.allocateAndCommit(ctx, channelID, kind, author, content, msgType, metadata)
	if errors.Is(err, ErrOrderConflict) {
		slog.Debug("order conflict, retrying post", "channel_id", channelID, "kind", kind)
		msg, err = e.allocateAndCommit(ctx, channelID, kind, author, content, msgType, metadata)
		if errors.Is(err, ErrOrderConflict) {
			return nil, fmt.Errorf("order allocation lost twice on channel %s: %w", channelID, ErrConflict)
		}
	}
	return msg, err
}

func (e *Engine) allocateAndCommit(ctx context.Context, channelID string, kind types.ChannelKind, author types.Author, content, msgType string, metadata json.RawMessage) (*types.Message, error) {
	order, err := e.allocator.NextOrder(ctx, channelID, kind)
	if err != nil {
		return nil, err
	}

	msg := &types.Message{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Kind:      kind,
		Author:    author,
		Content:   content,
		Type:      msgType,
		Metadata:  metadata,
		Order:     order,
		CreatedAt: e.now(),
	}
	if err := e.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

// JoinChannel adds a character to a channel after verifying the character
// exists. Rejoin reactivates the existing membership.
func (e *Engine) JoinChannel(ctx context.Context, channelID string, kind types.ChannelKind, characterID string) (*types.Membership, error) {
	if _, err := e.characters.GetByID(ctx, characterID); err != nil {
		return nil, err
	}
	return e.tracker.Join(ctx, channelID, kind, characterID)
}

// LeaveChannel deactivates the membership; idempotent.
func (e *Engine) LeaveChannel(ctx context.Context, channelID string, kind types.ChannelKind, characterID string) error {
	return e.tracker.Leave(ctx, channelID, kind, characterID)
}

// AssembleContext selects a bounded, rank-ordered memory context for the
// character, evaluated at the current time.
func (e *Engine) AssembleContext(ctx context.Context, characterID string, budget int) (*ContextResult, error) {
	if _, err := e.characters.GetByID(ctx, characterID); err != nil {
		return nil, err
	}
	return e.ranker.SelectContext(ctx, characterID, budget, e.now())
}

// AddMemory appends a long-term memory for the character. A negative
// importance takes the default; values are clamped into [0,1].
func (e *Engine) AddMemory(ctx context.Context, characterID, content, contextTag string, importance float64) (*types.CharacterMemory, error) {
	if _, err := e.characters.GetByID(ctx, characterID); err != nil {
		return nil, err
	}
	mem := &types.CharacterMemory{
		ID:          uuid.NewString(),
		CharacterID: characterID,
		Content:     content,
		Context:     contextTag,
		Importance:  types.ClampImportance(importance),
		CreatedAt:   e.now(),
	}
	if err := e.memories.AddMemory(ctx, mem); err != nil {
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}
	return mem, nil
}

// CreateCharacter persists a new character profile, assigning an id when
// the caller left it empty.
func (e *Engine) CreateCharacter(ctx context.Context, character *types.Character) error {
	if character.ID == "" {
		character.ID = uuid.NewString()
	}
	if err := e.characters.Create(ctx, character); err != nil {
		return fmt.Errorf("failed to create character: %w", err)
	}
	return nil
}

// CreateConversation creates a new active conversation channel.
func (e *Engine) CreateConversation(ctx context.Context, convType string) (*types.Conversation, error) {
	conv := &types.Conversation{
		ID:       uuid.NewString(),
		Type:     convType,
		IsActive: true,
	}
	if err := e.channels.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// CreateRoom creates a new active room. maxMembers <= 0 means unbounded.
func (e *Engine) CreateRoom(ctx context.Context, name, description string, maxMembers int, createdBy string) (*types.Room, error) {
	room := &types.Room{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		MaxMembers:  maxMembers,
		IsActive:    true,
		CreatedBy:   createdBy,
	}
	if err := e.channels.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

// DeactivateChannel soft-deactivates a channel; messages referencing it
// are never deleted.
func (e *Engine) DeactivateChannel(ctx context.Context, channelID string, kind types.ChannelKind) error {
	if kind == types.KindRoom {
		return e.channels.DeactivateRoom(ctx, channelID)
	}
	return e.channels.DeactivateConversation(ctx, channelID)
}
