package engine

import (
	"context"
	"fmt"

	"github.com/easeaico/ensemble/internal/types"
)

// ChannelRepo accesses conversation and room records. The per-channel
// message counter lives on the channel row itself, so counter lifetime
// tracks the channel's own lifecycle.
type ChannelRepo interface {
	GetConversation(ctx context.Context, id string) (*types.Conversation, error)
	GetRoom(ctx context.Context, id string) (*types.Room, error)
	CreateConversation(ctx context.Context, conv *types.Conversation) error
	CreateRoom(ctx context.Context, room *types.Room) error
	DeactivateConversation(ctx context.Context, id string) error
	DeactivateRoom(ctx context.Context, id string) error
	// Counter returns the channel's current counter value, or ErrNotFound.
	Counter(ctx context.Context, channelID string, kind types.ChannelKind) (int64, error)
	// AdvanceCounter bumps the counter from `from` to from+1 and reports
	// whether this caller won the write (compare-and-swap).
	AdvanceCounter(ctx context.Context, channelID string, kind types.ChannelKind, from int64) (bool, error)
}

// Allocator assigns monotonic per-channel message orders. Two concurrent
// callers never win the same value; a loser gets ErrOrderConflict and must
// re-allocate. Orders start at 1; an allocation that is never committed
// leaves a gap, never a duplicate.
type Allocator struct {
	channels ChannelRepo
}

// NewAllocator returns an Allocator.
func NewAllocator(channels ChannelRepo) *Allocator {
	return &Allocator{channels: channels}
}

// NextOrder reserves the next message order for the channel.
func (a *Allocator) NextOrder(ctx context.Context, channelID string, kind types.ChannelKind) (int64, error) {
	current, err := a.channels.Counter(ctx, channelID, kind)
	if err != nil {
		return 0, err
	}

	won, err := a.channels.AdvanceCounter(ctx, channelID, kind, current)
	if err != nil {
		return 0, fmt.Errorf("failed to advance channel counter: %w", err)
	}
	if !won {
		return 0, ErrOrderConflict
	}
	return current + 1, nil
}
