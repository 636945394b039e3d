package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that take part in one unit of work. Calls made
// on the Store handed to Transaction share the same database transaction.
type Store interface {
	Submissions() SubmissionRepository
	Reviews() ReviewRepository
	Ledger() LedgerRepository
	Transitions() StageTransitionRepository
	Users() UserRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Submissions() SubmissionRepository { return NewSubmissionRepository(s.db) }

func (s *gormStore) Reviews() ReviewRepository { return NewReviewRepository(s.db) }

func (s *gormStore) Ledger() LedgerRepository { return NewLedgerRepository(s.db) }

func (s *gormStore) Transitions() StageTransitionRepository {
	return NewStageTransitionRepository(s.db)
}

func (s *gormStore) Users() UserRepository { return NewUserRepository(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
