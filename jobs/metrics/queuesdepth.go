package metrics

import (
	"context"
	"time"

	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/transport"

	"github.com/rs/zerolog/log"
)

type QueuesDepthMetricsJob struct {
	ticker *time.Ticker
	done   chan struct{}
}

// NewQueuesDepthMetricsJob refreshes the depth gauges of the main queue and, when configured, the DLQ.
func NewQueuesDepthMetricsJob(metricsService metrics.Service, depthReader transport.DepthReader, queueURL string, dlqURL string, intervalMs int64) *QueuesDepthMetricsJob {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	done := make(chan struct{})

	queues := map[string]string{metrics.MainQueueType: queueURL}
	if dlqURL != "" {
		queues[metrics.DlqQueueType] = dlqURL
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				ctx, cancelFunc := context.WithTimeout(context.Background(), time.Duration(intervalMs-1000)*time.Millisecond)
				refreshQueuesDepth(ctx, metricsService, depthReader, queues)
				cancelFunc()
			case <-done:
				return
			}
		}
	}()

	return &QueuesDepthMetricsJob{
		ticker: ticker,
		done:   done,
	}
}

func refreshQueuesDepth(ctx context.Context, metricsService metrics.Service, depthReader transport.DepthReader, queues map[string]string) {
	for queueType, queueURL := range queues {
		depth, err := depthReader.Depth(ctx, queueURL)
		if err != nil {
			log.Error().Err(err).Str("queue", queueURL).Msg("failed to fetch queue depth by QueuesDepthMetricsJob")
			continue
		}
		metricsService.SetQueueDepth(queueType, depth)
	}
}

func (j *QueuesDepthMetricsJob) Close() error {
	j.ticker.Stop()
	close(j.done)
	return nil
}
