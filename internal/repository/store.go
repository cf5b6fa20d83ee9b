// Package repository implements the storage collaborator over PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store holds the DB pool and repositories.
type Store struct {
	db          *gorm.DB
	Channels    *ChannelRepo
	Messages    *MessageRepo
	Memberships *MembershipRepo
	Characters  *CharacterRepo
	Memories    *MemoryRepo
	Sessions    *SessionRepo
	Lookups     *LookupRepo
}

// NewStore initializes the PostgreSQL pool and repositories.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		db:          db,
		Channels:    NewChannelRepo(db),
		Messages:    NewMessageRepo(db),
		Memberships: NewMembershipRepo(db),
		Characters:  NewCharacterRepo(db),
		Memories:    NewMemoryRepo(db),
		Sessions:    NewSessionRepo(db),
		Lookups:     NewLookupRepo(db),
	}
	return store, nil
}

// AutoMigrate creates or updates the backing tables.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&characterModel{},
		&conversationModel{},
		&messageModel{},
		&participantModel{},
		&roomModel{},
		&roomMemberModel{},
		&roomMessageModel{},
		&characterMemoryModel{},
		&memoryTemplateModel{},
		&sessionModel{},
		&characterRoleModel{},
		&actionModel{},
	)
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
