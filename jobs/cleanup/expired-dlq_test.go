package cleanup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/n0rdy/leadflow/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiredDlqMessagesCleanupJob_RunOnce(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "leadflow.db")
	require.NoError(t, db.RunMigrations(dbPath))
	repo, err := db.NewSQLiteRepo(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	retention := 14 * 24 * time.Hour

	insert := func(id string, queue string, sentAt time.Time) {
		require.NoError(t, repo.InsertMessage(ctx, &db.NewQueueMessage{
			Id:           id,
			QueueName:    queue,
			Body:         "{}",
			Attributes:   "{}",
			VisibleAfter: sentAt.UnixMilli(),
			SentAt:       sentAt.UnixMilli(),
		}))
	}
	insert("expired", "lead-new-dlq", now.Add(-retention-time.Hour))
	insert("kept", "lead-new-dlq", now.Add(-retention+time.Hour))
	insert("main-queue", "lead-new", now.Add(-retention-time.Hour))

	j := NewExpiredDlqMessagesCleanupJob(repo, "lead-new-dlq", retention.Milliseconds(), 60*60*1000)
	defer j.Close()

	assert.Equal(t, int64(1), j.RunOnce(ctx, now))
	assert.Zero(t, j.RunOnce(ctx, now))

	mainDepth, err := repo.CountVisibleMessages(ctx, "lead-new")
	require.NoError(t, err)
	assert.Equal(t, int64(1), mainDepth)
}
