package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/easeaico/ensemble/internal/types"
)

func TestNextOrderIncrementsPerChannel(t *testing.T) {
	store := newFakeStore()
	seedConversation(store, "conv1")
	seedConversation(store, "conv2")
	allocator := NewAllocator(store)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := allocator.NextOrder(ctx, "conv1", types.KindConversation)
		if err != nil {
			t.Fatalf("allocation %d failed: %v", want, err)
		}
		if got != want {
			t.Fatalf("expected order %d, got %d", want, got)
		}
	}

	// Channels are independent ordering domains.
	got, err := allocator.NextOrder(ctx, "conv2", types.KindConversation)
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected fresh channel to start at 1, got %d", got)
	}
}

func TestNextOrderRoomAndConversationIndependent(t *testing.T) {
	store := newFakeStore()
	seedConversation(store, "shared-id")
	store.rooms["shared-id"] = &types.Room{ID: "shared-id", Name: "tavern", IsActive: true}
	allocator := NewAllocator(store)
	ctx := context.Background()

	if _, err := allocator.NextOrder(ctx, "shared-id", types.KindConversation); err != nil {
		t.Fatalf("conversation allocation failed: %v", err)
	}
	got, err := allocator.NextOrder(ctx, "shared-id", types.KindRoom)
	if err != nil {
		t.Fatalf("room allocation failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected room stream to start at 1, got %d", got)
	}
}

func TestNextOrderConflictWhenCASLoses(t *testing.T) {
	store := newFakeStore()
	seedConversation(store, "conv1")
	allocator := NewAllocator(store)
	store.failAdvances = 1

	_, err := allocator.NextOrder(context.Background(), "conv1", types.KindConversation)
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected ErrOrderConflict, got %v", err)
	}
}

func TestNextOrderUnknownChannel(t *testing.T) {
	store := newFakeStore()
	allocator := NewAllocator(store)

	_, err := allocator.NextOrder(context.Background(), "missing", types.KindConversation)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// An allocation that is never committed leaves a gap; the next allocation
// continues past it instead of reusing the value.
func TestAbandonedAllocationLeavesGap(t *testing.T) {
	store := newFakeStore()
	seedConversation(store, "conv1")
	allocator := NewAllocator(store)
	ctx := context.Background()

	abandoned, err := allocator.NextOrder(ctx, "conv1", types.KindConversation)
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	next, err := allocator.NextOrder(ctx, "conv1", types.KindConversation)
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if next != abandoned+1 {
		t.Fatalf("expected %d after abandoned %d", abandoned+1, abandoned)
	}
}
