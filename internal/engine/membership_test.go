package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/easeaico/ensemble/internal/types"
)

func TestJoinTwiceYieldsOneActiveMembership(t *testing.T) {
	store := newFakeStore()
	seedConversation(store, "conv1")
	tracker := NewTracker(store, store)
	ctx := context.Background()

	first, err := tracker.Join(ctx, "conv1", types.KindConversation, "c1")
	if err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	second, err := tracker.Join(ctx, "conv1", types.KindConversation, "c1")
	if err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same membership record, got %s and %s", first.ID, second.ID)
	}
	count, err := store.CountActive(ctx, "conv1", types.KindConversation)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one active membership, got %d", count)
	}
}

func TestRejoinPreservesJoinedAt(t *testing.T) {
	store := newFakeStore()
	seedConversation(store, "conv1")
	tracker := NewTracker(store, store)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	tracker.now = func() time.Time { return current }
	ctx := context.Background()

	first, err := tracker.Join(ctx, "conv1", types.KindConversation, "c1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	current = base.Add(time.Hour)
	if err := tracker.Leave(ctx, "conv1", types.KindConversation, "c1"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}

	current = base.Add(2 * time.Hour)
	rejoined, err := tracker.Join(ctx, "conv1", types.KindConversation, "c1")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if !rejoined.JoinedAt.Equal(first.JoinedAt) {
		t.Fatalf("JoinedAt changed on reactivation: %v vs %v", rejoined.JoinedAt, first.JoinedAt)
	}
	if !rejoined.LastSeen.Equal(current) {
		t.Fatalf("LastSeen not refreshed: %v", rejoined.LastSeen)
	}
	if !rejoined.IsActive {
		t.Fatal("expected reactivated membership to be active")
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	store := newFakeStore()
	seedConversation(store, "conv1")
	tracker := NewTracker(store, store)
	ctx := context.Background()

	// Leaving a membership that never existed is a no-op.
	if err := tracker.Leave(ctx, "conv1", types.KindConversation, "ghost"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := tracker.Join(ctx, "conv1", types.KindConversation, "c1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := tracker.Leave(ctx, "conv1", types.KindConversation, "c1"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if err := tracker.Leave(ctx, "conv1", types.KindConversation, "c1"); err != nil {
		t.Fatalf("second leave failed: %v", err)
	}
	active, err := tracker.IsActiveMember(ctx, "conv1", types.KindConversation, "c1")
	if err != nil {
		t.Fatalf("membership check failed: %v", err)
	}
	if active {
		t.Fatal("expected membership to stay inactive")
	}
}

func TestRoomCapacityEnforced(t *testing.T) {
	store := newFakeStore()
	store.rooms["r1"] = &types.Room{ID: "r1", Name: "tavern", MaxMembers: 2, IsActive: true}
	tracker := NewTracker(store, store)
	ctx := context.Background()

	if _, err := tracker.Join(ctx, "r1", types.KindRoom, "c1"); err != nil {
		t.Fatalf("join c1 failed: %v", err)
	}
	if _, err := tracker.Join(ctx, "r1", types.KindRoom, "c2"); err != nil {
		t.Fatalf("join c2 failed: %v", err)
	}
	if _, err := tracker.Join(ctx, "r1", types.KindRoom, "c3"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestRoomLeaveThenRejoinSucceeds(t *testing.T) {
	store := newFakeStore()
	store.rooms["r1"] = &types.Room{ID: "r1", Name: "tavern", MaxMembers: 2, IsActive: true}
	tracker := NewTracker(store, store)
	ctx := context.Background()

	if _, err := tracker.Join(ctx, "r1", types.KindRoom, "c1"); err != nil {
		t.Fatalf("join c1 failed: %v", err)
	}
	if _, err := tracker.Join(ctx, "r1", types.KindRoom, "c2"); err != nil {
		t.Fatalf("join c2 failed: %v", err)
	}
	if err := tracker.Leave(ctx, "r1", types.KindRoom, "c2"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if _, err := tracker.Join(ctx, "r1", types.KindRoom, "c3"); err != nil {
		t.Fatalf("expected join after a slot freed, got %v", err)
	}
}

// A member at capacity can still reactivate: reactivation never creates a
// second record and never counts against MaxMembers twice.
func TestFullRoomStillAllowsRejoin(t *testing.T) {
	store := newFakeStore()
	store.rooms["r1"] = &types.Room{ID: "r1", Name: "tavern", MaxMembers: 1, IsActive: true}
	tracker := NewTracker(store, store)
	ctx := context.Background()

	if _, err := tracker.Join(ctx, "r1", types.KindRoom, "c1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := tracker.Join(ctx, "r1", types.KindRoom, "c1"); err != nil {
		t.Fatalf("rejoin at capacity failed: %v", err)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, store)

	if _, err := tracker.Join(context.Background(), "missing", types.KindRoom, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
