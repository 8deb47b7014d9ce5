// Package store persists reference posts.
package store

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"kitmatch/internal/posts/models"
	id "kitmatch/pkg/domain"
)

// Store is the reference post persistence boundary.
type Store interface {
	Insert(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, postID id.PostID) (*models.Post, error)
	// ListListed returns public posts accepting donations, ordered by city
	// then name.
	ListListed(ctx context.Context) ([]*models.Post, error)
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

func sortByCityThenName(posts []*models.Post) {
	slices.SortFunc(posts, func(a, b *models.Post) int {
		if c := cmp.Compare(strings.ToLower(a.City), strings.ToLower(b.City)); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
