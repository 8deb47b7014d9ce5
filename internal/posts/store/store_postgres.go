package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	pgplatform "kitmatch/internal/platform/postgres"
	"kitmatch/internal/posts/models"
	id "kitmatch/pkg/domain"
	"kitmatch/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const postColumns = `id, name, post_type, address, city, neighborhood_coverage, phone,
	contact_name, opening_hours, can_receive_donations, public, created_at`

func (s *PostgresStore) Insert(ctx context.Context, p *models.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reference_posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(p.ID), p.Name, string(p.Type), p.Address, p.City, p.NeighborhoodCoverage, p.Phone,
		p.ContactName, p.OpeningHours, p.CanReceiveDonations, p.Public, p.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert post", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, postID id.PostID) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM reference_posts WHERE id = $1`, uuid.UUID(postID))
	p, err := scanPost(row)
	if err != nil {
		return nil, wrapErr("get post", err)
	}
	return p, nil
}

func (s *PostgresStore) ListListed(ctx context.Context) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM reference_posts
		WHERE public AND can_receive_donations
		ORDER BY lower(city), lower(name)`)
	if err != nil {
		return nil, wrapErr("list posts", err)
	}
	defer rows.Close()

	var out []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, wrapErr("scan post", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate posts", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var (
		p        models.Post
		postID   uuid.UUID
		postType string
	)
	if err := row.Scan(
		&postID,
		&p.Name,
		&postType,
		&p.Address,
		&p.City,
		&p.NeighborhoodCoverage,
		&p.Phone,
		&p.ContactName,
		&p.OpeningHours,
		&p.CanReceiveDonations,
		&p.Public,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.ID = id.PostID(postID)
	p.Type = models.PostType(postType)
	return &p, nil
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
