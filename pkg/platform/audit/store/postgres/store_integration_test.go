//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kitmatch/pkg/domain"
	audit "kitmatch/pkg/platform/audit"
	txcontext "kitmatch/pkg/platform/tx"
	"kitmatch/pkg/testutil/containers"
)

func TestStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := New(pg.DB)
	ctx := context.Background()
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	t.Run("events come back oldest first", func(t *testing.T) {
		matchID := id.NewMatchID().String()
		post := id.NewPostID().String()
		require.NoError(t, store.Append(ctx, audit.Event{
			Category:  audit.CategoryOperations,
			Timestamp: at.Add(time.Minute),
			Subject:   matchID,
			Action:    string(audit.EventPickupConfirmed),
			PostID:    post,
			ActorID:   id.NewOperatorID().String(),
			RequestID: "req-2",
		}))
		require.NoError(t, store.Append(ctx, audit.Event{
			Category:  audit.CategoryOperations,
			Timestamp: at,
			Subject:   matchID,
			Action:    string(audit.EventMatchCreated),
			PostID:    post,
		}))

		events, err := store.ListBySubject(ctx, matchID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, string(audit.EventMatchCreated), events[0].Action)
		assert.Equal(t, string(audit.EventPickupConfirmed), events[1].Action)
		assert.Equal(t, "req-2", events[1].RequestID)
		assert.True(t, at.Equal(events[0].Timestamp))
	})

	t.Run("events written in a rolled back transaction are discarded", func(t *testing.T) {
		matchID := id.NewMatchID().String()
		tx, err := pg.DB.BeginTx(ctx, nil)
		require.NoError(t, err)

		require.NoError(t, store.Append(txcontext.WithTx(ctx, tx), audit.Event{
			Category:  audit.CategoryOperations,
			Timestamp: at,
			Subject:   matchID,
			Action:    string(audit.EventMatchCreated),
		}))
		require.NoError(t, tx.Rollback())

		events, err := store.ListBySubject(ctx, matchID)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
