package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/n0rdy/leadflow/clock"
	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/telemetry"
	"github.com/n0rdy/leadflow/transport"
	"github.com/n0rdy/leadflow/transport/transporttest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUsageTracker(clk clock.Clock) *telemetry.UsageTracker {
	return telemetry.NewUsageTracker(100, 1_000_000, clk, metrics.NewMetricsService(false, nil), zerolog.New(&bytes.Buffer{}))
}

func TestQueuesService_GetQueuesStats(t *testing.T) {
	clk := clock.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tracker := newTestUsageTracker(clk)
	mem := transporttest.NewMemoryTransport()
	mem.Put(testQueueURL, transport.Message{Body: "{}"})
	mem.Put(testQueueURL, transport.Message{Body: "{}"})
	mem.Put(testQueueURL+"-dlq", transport.Message{Body: "{}"})

	instrumented := telemetry.InstrumentTransport(mem, tracker, nil)
	service := NewQueuesService(instrumented, tracker, testQueueURL, testQueueURL+"-dlq")
	clk.Advance(time.Hour)

	stats, err := service.GetQueuesStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []common.QueueStats{
		{Type: metrics.MainQueueType, URL: testQueueURL, TotalMessages: 2},
		{Type: metrics.DlqQueueType, URL: testQueueURL + "-dlq", TotalMessages: 1},
	}, stats.Queues)
	// both depth reads are billable calls
	assert.Equal(t, int64(2), stats.Usage.TotalCalls)
	assert.Equal(t, 3600.0, stats.Usage.ElapsedSeconds)
	assert.InDelta(t, 2.0, stats.Usage.CallsPerHour, 1e-9)
	assert.Equal(t, int64(1_000_000), stats.Usage.MonthlyQuota)
}

func TestQueuesService_WithoutDlq(t *testing.T) {
	tracker := newTestUsageTracker(clock.RealClock{})
	service := NewQueuesService(transporttest.NewMemoryTransport(), tracker, testQueueURL, "")

	stats, err := service.GetQueuesStats(context.Background())
	require.NoError(t, err)

	require.Len(t, stats.Queues, 1)
	assert.Equal(t, metrics.MainQueueType, stats.Queues[0].Type)
}

type failingDepthReader struct{}

func (failingDepthReader) Depth(ctx context.Context, queueURL string) (int64, error) {
	return 0, errors.New("access denied")
}

func TestQueuesService_DepthFailure(t *testing.T) {
	service := NewQueuesService(failingDepthReader{}, newTestUsageTracker(clock.RealClock{}), testQueueURL, "")

	_, err := service.GetQueuesStats(context.Background())

	assert.ErrorIs(t, err, common.ErrInternal)
}
