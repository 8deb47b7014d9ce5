package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitmatch/internal/posts/models"
	"kitmatch/internal/posts/store"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/audit"
	auditmemory "kitmatch/pkg/platform/audit/store/memory"
)

type auditRecorder struct {
	store *auditmemory.InMemoryStore
}

func (a auditRecorder) Emit(ctx context.Context, e audit.Event) error {
	return a.store.Append(ctx, e)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	events := auditmemory.NewInMemoryStore()
	svc := New(store.NewInMemoryStore(), WithAuditPublisher(auditRecorder{events}), WithClock(func() time.Time { return now }))

	req := &models.CreatePostRequest{Name: "UBS Centro", Type: "ubs", City: "Recife", CanReceiveDonations: true}
	req.Normalize()

	t.Run("non-admin is forbidden", func(t *testing.T) {
		post := id.NewPostID()
		manager := &id.Actor{OperatorID: id.NewOperatorID(), Role: id.RoleManager, PostID: &post}
		_, err := svc.Create(ctx, manager, req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = svc.Create(ctx, nil, req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("admin creates a public post by default", func(t *testing.T) {
		admin := &id.Actor{OperatorID: id.NewOperatorID(), Role: id.RoleAdmin}
		created, err := svc.Create(ctx, admin, req)
		require.NoError(t, err)
		assert.Equal(t, models.PostTypeUBS, created.Type)
		assert.True(t, created.Public)
		assert.Equal(t, now, created.CreatedAt)

		got, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "UBS Centro", got.Name)

		recorded, err := events.ListBySubject(ctx, created.ID.String())
		require.NoError(t, err)
		require.Len(t, recorded, 1)
		assert.Equal(t, string(audit.EventPostCreated), recorded[0].Action)
		assert.Equal(t, admin.OperatorID.String(), recorded[0].ActorID)
	})

	t.Run("invalid request is rejected", func(t *testing.T) {
		admin := &id.Actor{OperatorID: id.NewOperatorID(), Role: id.RoleAdmin}
		_, err := svc.Create(ctx, admin, &models.CreatePostRequest{Type: "hospital"})
		require.Error(t, err)
		var de *dErrors.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, dErrors.CodeValidation, de.Code)
		assert.Len(t, de.Fields, 3)
	})
}

func TestListPublicAndGet(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	svc := New(st)

	visible := &models.Post{ID: id.NewPostID(), Name: "ONG Flor", City: "Olinda", CanReceiveDonations: true, Public: true}
	hidden := &models.Post{ID: id.NewPostID(), Name: "Interna", City: "Olinda", CanReceiveDonations: true}
	require.NoError(t, st.Insert(ctx, visible))
	require.NoError(t, st.Insert(ctx, hidden))

	posts, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, visible.ID, posts[0].ID)

	_, err = svc.Get(ctx, id.NewPostID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
