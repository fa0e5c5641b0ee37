package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressLog(t *testing.T) {
	t.Parallel()

	t.Run("returns a project's events in report order", func(t *testing.T) {
		t.Parallel()

		log := sqlite.NewProgressLog(setupTestDB(t), nil)
		ctx := context.Background()
		ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		log.Report(ctx, docchat.ProgressEvent{ProjectID: "p", Message: "started", Timestamp: ts})
		log.Report(ctx, docchat.ProgressEvent{ProjectID: "other", Message: "noise", Timestamp: ts})
		log.Report(ctx, docchat.ProgressEvent{ProjectID: "p", Message: "done", Timestamp: ts})

		events, err := log.FindProgressEvents(ctx, "p", 0)

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "started", events[0].Message)
		assert.Equal(t, "done", events[1].Message)
		assert.True(t, ts.Equal(events[0].Timestamp))
	})

	t.Run("honors limit", func(t *testing.T) {
		t.Parallel()

		log := sqlite.NewProgressLog(setupTestDB(t), nil)
		ctx := context.Background()
		for _, m := range []string{"one", "two", "three"} {
			log.Report(ctx, docchat.ProgressEvent{ProjectID: "p", Message: m})
		}

		events, err := log.FindProgressEvents(ctx, "p", 2)

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "one", events[0].Message)
	})

	t.Run("swallows write failures", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(":memory:")
		require.NoError(t, db.Open())
		require.NoError(t, db.Close())

		log := sqlite.NewProgressLog(db, nil)

		assert.NotPanics(t, func() {
			log.Report(context.Background(), docchat.ProgressEvent{ProjectID: "p", Message: "lost"})
		})
	})
}
