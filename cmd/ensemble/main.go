// Package main boots the ensemble engine and runs a small interactive demo
// against a fresh conversation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/easeaico/ensemble/internal/config"
	"github.com/easeaico/ensemble/internal/engine"
	"github.com/easeaico/ensemble/internal/memory"
	"github.com/easeaico/ensemble/internal/repository"
	"github.com/easeaico/ensemble/internal/types"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("configuration loaded", "context_budget", cfg.ContextBudget, "half_life", cfg.MemoryHalfLife)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	eng := engine.New(store.Channels, store.Messages, store.Memberships, store.Characters, store.Memories, cfg.MemoryHalfLife)

	var embedder memory.Embedder
	if cfg.GoogleAPIKey != "" {
		genaiEmbedder, err := memory.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Fatalf("failed to create embedder: %v", err)
		}
		embedder = genaiEmbedder
	} else {
		slog.Info("GOOGLE_API_KEY not set, semantic recall disabled")
	}
	recall := memory.NewRecall(embedder, store.Memories, cfg.TopK, cfg.SimilarityThreshold)

	if err := runDemo(ctx, eng, recall, cfg.ContextBudget); err != nil && ctx.Err() == nil {
		log.Fatalf("demo failed: %v", err)
	}
}

// runDemo creates a character and a conversation, joins them, and posts
// stdin lines as authored messages, printing the assembled memory context
// after each turn.
func runDemo(ctx context.Context, eng *engine.Engine, recall *memory.Recall, budget int) error {
	character := &types.Character{
		ID:       uuid.NewString(),
		Name:     "demo",
		Role:     "narrator",
		IsActive: true,
	}
	conv, err := eng.CreateConversation(ctx, "direct")
	if err != nil {
		return err
	}
	if err := eng.CreateCharacter(ctx, character); err != nil {
		return err
	}
	if _, err := eng.JoinChannel(ctx, conv.ID, types.KindConversation, character.ID); err != nil {
		return err
	}
	slog.Info("demo conversation ready", "conversation_id", conv.ID, "character_id", character.ID)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("type a message (ctrl-d to quit):")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msg, err := eng.PostMessage(ctx, conv.ID, types.KindConversation, types.AuthoredBy(character.ID), line, "text", nil)
		if err != nil {
			return err
		}
		if _, err := recall.Remember(ctx, character.ID, line, "conversation", -1); err != nil {
			return err
		}
		result, err := eng.AssembleContext(ctx, character.ID, budget)
		if err != nil {
			return err
		}
		fmt.Printf("order=%d context_memories=%d context_len=%d skipped=%d\n",
			msg.Order, len(result.Memories), result.TotalLength, result.SkippedOversized)
	}
	return scanner.Err()
}
