//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"kitmatch/internal/posts/models"
	id "kitmatch/pkg/domain"
	"kitmatch/pkg/platform/sentinel"
	"kitmatch/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) TestInsertAndGet() {
	ctx := context.Background()
	p := post("UBS Centro", "Recife", true, true)
	p.Type = models.PostTypeCRAS
	p.OpeningHours = "seg-sex 8h-17h"
	s.Require().NoError(s.store.Insert(ctx, p))

	got, err := s.store.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.Name, got.Name)
	s.Equal(models.PostTypeCRAS, got.Type)
	s.Equal("seg-sex 8h-17h", got.OpeningHours)
	s.True(got.CreatedAt.Equal(p.CreatedAt))

	s.ErrorIs(s.store.Insert(ctx, p), sentinel.ErrConflict)
	_, err = s.store.Get(ctx, id.NewPostID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListListed() {
	ctx := context.Background()
	for _, p := range []*models.Post{
		post("UBS Várzea", "Recife", true, true),
		post("ONG Flor", "Olinda", true, true),
		post("Associação Oculta", "Recife", true, false),
		post("CRAS Sem Doação", "Olinda", false, true),
	} {
		s.Require().NoError(s.store.Insert(ctx, p))
	}

	got, err := s.store.ListListed(ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("ONG Flor", got[0].Name)
	s.Equal("UBS Várzea", got[1].Name)
}
