package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitmatch/internal/operators/models"
	id "kitmatch/pkg/domain"
	"kitmatch/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	post := id.NewPostID()
	op := &models.Operator{ID: id.NewOperatorID(), Username: "Ana", PasswordHash: "h", Role: id.RoleOperator, PostID: &post, Active: true, CreatedAt: time.Now()}

	require.NoError(t, st.Insert(ctx, op))

	got, err := st.GetByUsername(ctx, " ANA ")
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)
	assert.Equal(t, post, *got.PostID)

	dup := *op
	dup.ID = id.NewOperatorID()
	dup.Username = "ana"
	assert.ErrorIs(t, st.Insert(ctx, &dup), sentinel.ErrConflict)

	_, err = st.GetByUsername(ctx, "bia")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
