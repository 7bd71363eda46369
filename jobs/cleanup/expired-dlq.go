package cleanup

import (
	"context"
	"time"

	"github.com/n0rdy/leadflow/db"

	"github.com/rs/zerolog/log"
)

// ExpiredDlqMessagesCleanupJob gives the local DLQ the retention limit SQS applies on its own.
type ExpiredDlqMessagesCleanupJob struct {
	repo        *db.LeadflowRepo
	dlqName     string
	retentionMs int64
	ticker      *time.Ticker
	done        chan struct{}
}

func NewExpiredDlqMessagesCleanupJob(repo *db.LeadflowRepo, dlqName string, retentionMs int64, intervalMs int64) *ExpiredDlqMessagesCleanupJob {
	j := &ExpiredDlqMessagesCleanupJob{
		repo:        repo,
		dlqName:     dlqName,
		retentionMs: retentionMs,
		ticker:      time.NewTicker(time.Duration(intervalMs) * time.Millisecond),
		done:        make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-j.ticker.C:
				ctx, cancelFunc := context.WithTimeout(context.Background(), time.Duration(intervalMs-1000)*time.Millisecond)
				j.RunOnce(ctx, time.Now())
				cancelFunc()
			case <-j.done:
				return
			}
		}
	}()

	return j
}

// RunOnce purges DLQ messages older than the retention period as of now.
func (j *ExpiredDlqMessagesCleanupJob) RunOnce(ctx context.Context, now time.Time) int64 {
	deleted, err := j.repo.DeleteMessagesSentBefore(ctx, j.dlqName, now.UnixMilli()-j.retentionMs)
	if err != nil {
		log.Error().Err(err).Str("queue", j.dlqName).Msg("failed to delete expired DLQ messages")
		return 0
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Str("queue", j.dlqName).Msg("expired DLQ messages deleted")
	}
	return deleted
}

func (j *ExpiredDlqMessagesCleanupJob) Close() error {
	j.ticker.Stop()
	close(j.done)
	return nil
}
