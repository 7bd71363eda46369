package services

import (
	"context"

	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/telemetry"
	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog/log"
)

// QueuesService reports the state of the Lead.New queues and the transport API budget.
type QueuesService struct {
	depthReader  transport.DepthReader
	usageTracker *telemetry.UsageTracker
	queueURL     string
	dlqURL       string
}

func NewQueuesService(depthReader transport.DepthReader, usageTracker *telemetry.UsageTracker, queueURL string, dlqURL string) *QueuesService {
	return &QueuesService{
		depthReader:  depthReader,
		usageTracker: usageTracker,
		queueURL:     queueURL,
		dlqURL:       dlqURL,
	}
}

// GetQueuesStats costs one billable call per queue, the DLQ is skipped when it is not configured.
func (qs *QueuesService) GetQueuesStats(ctx context.Context) (*common.QueuesStatsResponse, error) {
	queues := []common.QueueStats{{Type: metrics.MainQueueType, URL: qs.queueURL}}
	if qs.dlqURL != "" {
		queues = append(queues, common.QueueStats{Type: metrics.DlqQueueType, URL: qs.dlqURL})
	}

	for i := range queues {
		depth, err := qs.depthReader.Depth(ctx, queues[i].URL)
		if err != nil {
			log.Error().Err(err).Str("queue", queues[i].URL).Msg("failed to fetch queue depth")
			return nil, common.ErrInternal
		}
		queues[i].TotalMessages = depth
	}

	report := qs.usageTracker.Report()
	return &common.QueuesStatsResponse{
		Queues: queues,
		Usage: common.UsageStats{
			TotalCalls:            report.TotalCalls,
			ElapsedSeconds:        report.Elapsed.Seconds(),
			CallsPerHour:          report.CallsPerHour,
			EstimatedMonthlyCalls: report.EstimatedMonthlyCalls,
			MonthlyQuota:          report.MonthlyQuota,
			UsagePercentage:       report.UsagePercentage,
		},
	}, nil
}
