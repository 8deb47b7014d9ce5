// Package store persists operator accounts.
package store

import (
	"context"

	"kitmatch/internal/operators/models"
)

type Store interface {
	// Insert fails with sentinel.ErrConflict when the username is taken,
	// ignoring case.
	Insert(ctx context.Context, op *models.Operator) error
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
	Count(ctx context.Context) (int, error)
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
