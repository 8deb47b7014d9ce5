package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kitmatch/internal/operators/models"
	pgplatform "kitmatch/internal/platform/postgres"
	id "kitmatch/pkg/domain"
	"kitmatch/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, op *models.Operator) error {
	var postID uuid.NullUUID
	if op.PostID != nil {
		postID = uuid.NullUUID{UUID: uuid.UUID(*op.PostID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operators (id, username, password_hash, role, post_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(op.ID), op.Username, op.PasswordHash, string(op.Role), postID, op.Active, op.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert operator", err)
	}
	return nil
}

func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var (
		op         models.Operator
		operatorID uuid.UUID
		role       string
		postID     uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, post_id, active, created_at
		FROM operators
		WHERE lower(username) = $1`,
		models.CanonicalUsername(username),
	).Scan(&operatorID, &op.Username, &op.PasswordHash, &role, &postID, &op.Active, &op.CreatedAt)
	if err != nil {
		return nil, wrapErr("get operator", err)
	}
	op.ID = id.OperatorID(operatorID)
	op.Role = id.Role(role)
	if postID.Valid {
		p := id.PostID(postID.UUID)
		op.PostID = &p
	}
	return &op, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM operators`).Scan(&n); err != nil {
		return 0, wrapErr("count operators", err)
	}
	return n, nil
}

func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return sentinel.ErrNotFound
	case pgplatform.IsUnavailable(err):
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	if _, ok := pgplatform.UniqueViolation(err); ok {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
