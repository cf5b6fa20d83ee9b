// Package types defines the persisted domain entities shared across the engine.
package types

import (
	"encoding/json"
	"time"
)

// ChannelKind selects between the two message streams.
type ChannelKind string

const (
	// KindConversation is a direct or group dialogue context.
	KindConversation ChannelKind = "conversation"
	// KindRoom is a longer-lived group channel with a capacity bound.
	KindRoom ChannelKind = "room"
)

// DefaultImportance is assigned to memories stored without an explicit weight.
const DefaultImportance = 0.5

// Author is the tagged authorship variant for channel messages.
// The zero value is a system author; Authored carries the character id.
type Author struct {
	characterID string
}

// AuthoredBy returns an Author for the given character.
func AuthoredBy(characterID string) Author {
	return Author{characterID: characterID}
}

// System returns the system author.
func System() Author {
	return Author{}
}

// IsSystem reports whether the message has no character author.
func (a Author) IsSystem() bool {
	return a.characterID == ""
}

// CharacterID returns the authoring character id and whether one is set.
func (a Author) CharacterID() (string, bool) {
	return a.characterID, a.characterID != ""
}

// Character is the persisted profile.
type Character struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	BehaviorPattern string    `json:"behavior_pattern"`
	Mood            float64   `json:"mood"`
	MemoryBank      string    `json:"memory_bank"`
	Routines        string    `json:"routines"`
	Actions         string    `json:"actions"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Conversation is a direct/group dialogue context. NextOrder is the
// authoritative message counter for the channel; the last allocated
// order equals NextOrder after a successful bump.
type Conversation struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	IsActive    bool            `json:"is_active"`
	SessionData json.RawMessage `json:"session_data"`
	NextOrder   int64           `json:"next_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Room is a longer-lived group channel.
type Room struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	MaxMembers  int             `json:"max_members"`
	IsActive    bool            `json:"is_active"`
	CreatedBy   string          `json:"created_by"`
	Metadata    json.RawMessage `json:"metadata"`
	NextOrder   int64           `json:"next_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Message is the domain view of a committed channel message. Kind selects
// the backing stream (messages vs room_messages); Order is unique and
// monotonic within the channel.
type Message struct {
	ID        string          `json:"id"`
	ChannelID string          `json:"channel_id"`
	Kind      ChannelKind     `json:"kind"`
	Author    Author          `json:"-"`
	Content   string          `json:"content"`
	Type      string          `json:"type"`
	Metadata  json.RawMessage `json:"metadata"`
	Order     int64           `json:"message_order"`
	CreatedAt time.Time       `json:"created_at"`
}

// Membership is the join record linking a character to a channel.
// Role is only meaningful for room memberships.
type Membership struct {
	ID          string      `json:"id"`
	ChannelID   string      `json:"channel_id"`
	Kind        ChannelKind `json:"kind"`
	CharacterID string      `json:"character_id"`
	Role        string      `json:"role"`
	IsActive    bool        `json:"is_active"`
	JoinedAt    time.Time   `json:"joined_at"`
	LastSeen    time.Time   `json:"last_seen"`
}

// CharacterMemory is an append-only long-term memory record.
type CharacterMemory struct {
	ID          string    `json:"id"`
	CharacterID string    `json:"character_id"`
	Content     string    `json:"content"`
	Context     string    `json:"context"`
	// Importance is a 0-1 weight biasing retrieval ranking.
	Importance float64   `json:"importance"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScoredMemory is a memory returned from similarity search.
type ScoredMemory struct {
	Content    string    `json:"content"`
	Context    string    `json:"context"`
	Similarity float64   `json:"similarity"`
	Importance float64   `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`
}

// MemoryTemplate is a heading/content pair used to scaffold memory banks.
type MemoryTemplate struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// Session holds opaque session data and a pointer to the active conversation.
type Session struct {
	ID                   string          `json:"id"`
	SessionData          json.RawMessage `json:"session_data"`
	ActiveConversationID string          `json:"active_conversation_id"`
	IsActive             bool            `json:"is_active"`
	LastActivity         time.Time       `json:"last_activity"`
}

// CharacterRole is a reusable role definition.
type CharacterRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Action is a reusable action definition consumed by character behavior logic.
type Action struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
}

// ClampImportance normalizes a memory importance into [0,1]; negative
// values mean "unspecified" and take the default.
func ClampImportance(importance float64) float64 {
	if importance < 0 {
		return DefaultImportance
	}
	if importance > 1 {
		return 1
	}
	return importance
}
