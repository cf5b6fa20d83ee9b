package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/easeaico/ensemble/internal/types"
)

// MembershipRepo accesses join records for both channel kinds.
type MembershipRepo interface {
	// Find returns the membership for the pair, active or not, or nil
	// when none exists.
	Find(ctx context.Context, channelID string, kind types.ChannelKind, characterID string) (*types.Membership, error)
	Create(ctx context.Context, m *types.Membership) error
	Update(ctx context.Context, m *types.Membership) error
	CountActive(ctx context.Context, channelID string, kind types.ChannelKind) (int64, error)
	ListActive(ctx context.Context, channelID string, kind types.ChannelKind) ([]types.Membership, error)
}

// Tracker manages the membership lifecycle: NonExistent -> Active <-> Inactive.
// Active is the only state from which authorship is permitted; inactive
// memberships are always reactivatable. Uniqueness of (channel, character)
// is enforced here as find-or-create; the store's unique index is a
// backstop, not the primary control.
type Tracker struct {
	memberships MembershipRepo
	channels    ChannelRepo
	now         func() time.Time
}

// NewTracker returns a Tracker.
func NewTracker(memberships MembershipRepo, channels ChannelRepo) *Tracker {
	return &Tracker{
		memberships: memberships,
		channels:    channels,
		now:         time.Now,
	}
}

// Join adds the character to the channel, reactivating an existing record
// when one exists. JoinedAt is set only on first creation; LastSeen is
// always refreshed. Room joins are rejected with ErrRoomFull when the
// active-member count has reached MaxMembers and no reactivation applies.
func (t *Tracker) Join(ctx context.Context, channelID string, kind types.ChannelKind, characterID string) (*types.Membership, error) {
	existing, err := t.memberships.Find(ctx, channelID, kind, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up membership: %w", err)
	}
	if existing != nil {
		existing.IsActive = true
		existing.LastSeen = t.now()
		if err := t.memberships.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to reactivate membership: %w", err)
		}
		return existing, nil
	}

	if kind == types.KindRoom {
		room, err := t.channels.GetRoom(ctx, channelID)
		if err != nil {
			return nil, err
		}
		if room.MaxMembers > 0 {
			active, err := t.memberships.CountActive(ctx, channelID, kind)
			if err != nil {
				return nil, fmt.Errorf("failed to count active members: %w", err)
			}
			if active >= int64(room.MaxMembers) {
				return nil, ErrRoomFull
			}
		}
	} else {
		if _, err := t.channels.GetConversation(ctx, channelID); err != nil {
			return nil, err
		}
	}

	now := t.now()
	membership := &types.Membership{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		Kind:        kind,
		CharacterID: characterID,
		IsActive:    true,
		JoinedAt:    now,
		LastSeen:    now,
	}
	if err := t.memberships.Create(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	slog.Debug("membership created", "channel_id", channelID, "kind", kind, "character_id", characterID)
	return membership, nil
}

// Leave deactivates the membership and refreshes LastSeen. Leaving an
// already-inactive or non-existent membership is a no-op.
func (t *Tracker) Leave(ctx context.Context, channelID string, kind types.ChannelKind, characterID string) error {
	existing, err := t.memberships.Find(ctx, channelID, kind, characterID)
	if err != nil {
		return fmt.Errorf("failed to look up membership: %w", err)
	}
	if existing == nil || !existing.IsActive {
		return nil
	}
	existing.IsActive = false
	existing.LastSeen = t.now()
	if err := t.memberships.Update(ctx, existing); err != nil {
		return fmt.Errorf("failed to deactivate membership: %w", err)
	}
	return nil
}

// IsActiveMember reports whether the character is an active member of the
// channel.
func (t *Tracker) IsActiveMember(ctx context.Context, channelID string, kind types.ChannelKind, characterID string) (bool, error) {
	existing, err := t.memberships.Find(ctx, channelID, kind, characterID)
	if err != nil {
		return false, fmt.Errorf("failed to look up membership: %w", err)
	}
	return existing != nil && existing.IsActive, nil
}
