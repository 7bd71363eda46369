package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/n0rdy/leadflow/clock"
	"github.com/n0rdy/leadflow/configs"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWorkerConfig = configs.WorkerConfig{
	BatchSize:              10,
	WaitTime:               20 * time.Second,
	VisibilityTimeout:      30 * time.Second,
	PollInterval:           20 * time.Second,
	ErrorBackoffMultiplier: 2,
	MaxRetries:             maxRetries,
	RetryDelay:             retryDelay,
}

func newTestPoller(f *fixture, tr transport.Transport, config configs.WorkerConfig, clk clock.Clock) *Poller {
	return NewPoller(tr, mainQueue, f.processor, config, clk, metrics.NewMetricsService(false, nil), zerolog.New(f.logs))
}

func TestPollerStep_ProcessesWholeBatchThenWaitsPollInterval(t *testing.T) {
	f := newFixture(t, deadLetter, succeed)
	for i := 0; i < 12; i++ {
		f.transport.Put(mainQueue, transport.Message{Body: leadBody(t, "lead")})
	}
	p := newTestPoller(f, f.transport, testWorkerConfig, clock.RealClock{})

	delay := p.Step(context.Background())

	assert.Equal(t, 20*time.Second, delay)
	// batch size caps a single receive
	assert.Len(t, f.transport.Deleted(), 10)
	assert.Equal(t, 2, f.transport.Pending(mainQueue))
	assert.Equal(t, 0, f.transport.InFlight())
}

func TestPollerStep_EmptyReceiveWaitsPollInterval(t *testing.T) {
	f := newFixture(t, deadLetter, succeed)
	p := newTestPoller(f, f.transport, testWorkerConfig, clock.RealClock{})

	assert.Equal(t, 20*time.Second, p.Step(context.Background()))
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestPollerStep_ReceiveErrorBacksOffTwiceThePollInterval(t *testing.T) {
	f := newFixture(t, deadLetter, succeed)
	f.transport.ReceiveErr = errors.New("connection reset")
	p := newTestPoller(f, f.transport, testWorkerConfig, clock.RealClock{})

	assert.Equal(t, 40*time.Second, p.Step(context.Background()))
	// fixed, not exponential
	assert.Equal(t, 40*time.Second, p.Step(context.Background()))
	assert.True(t, p.LastPollAt().IsZero())
	assert.Contains(t, f.logs.String(), "error polling queue")
}

func TestPollerStep_RecordsHeartbeatOnSuccessfulReceive(t *testing.T) {
	f := newFixture(t, deadLetter, succeed)
	clk := clock.NewManualClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	p := newTestPoller(f, f.transport, testWorkerConfig, clk)

	p.Step(context.Background())

	assert.True(t, clk.Now().Equal(p.LastPollAt()))
}

func TestPollerRun_StopsOnCancellation(t *testing.T) {
	f := newFixture(t, deadLetter, succeed)
	config := testWorkerConfig
	config.PollInterval = time.Millisecond
	p := newTestPoller(f, f.transport, config, clock.RealClock{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return f.transport.Receives() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

type panickingTransport struct {
	transport.Transport
}

func (panickingTransport) Receive(ctx context.Context, queueURL string, opts transport.ReceiveOptions) ([]transport.Message, error) {
	panic("corrupted client state")
}

func TestPollerRun_PanicIsReturnedAsError(t *testing.T) {
	f := newFixture(t, deadLetter, succeed)
	p := newTestPoller(f, panickingTransport{}, testWorkerConfig, clock.RealClock{})

	err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted client state")
}
