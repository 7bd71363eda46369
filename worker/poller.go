package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/n0rdy/leadflow/clock"
	"github.com/n0rdy/leadflow/configs"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog"
)

// Poller keeps at most one receive call in flight and never overlaps batches:
// the next receive is issued only after the previous batch is fully settled and the poll delay has elapsed.
type Poller struct {
	transport  transport.Transport
	queueURL   string
	processor  *BatchProcessor
	config     configs.WorkerConfig
	clock      clock.Clock
	metrics    metrics.Service
	logger     zerolog.Logger
	lastPollAt atomic.Int64 // unix ms of the last successful receive, 0 before the first one
}

func NewPoller(tr transport.Transport, queueURL string, processor *BatchProcessor, config configs.WorkerConfig, clk clock.Clock, metricsService metrics.Service, logger zerolog.Logger) *Poller {
	return &Poller{
		transport: tr,
		queueURL:  queueURL,
		processor: processor,
		config:    config,
		clock:     clk,
		metrics:   metricsService,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled, which is a clean stop and returns nil.
// A panic escaping an iteration is returned as an error, the caller is expected to treat it as fatal.
func (p *Poller) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll loop panicked: %v", r)
		}
	}()

	p.logger.Info().Str("queue", p.queueURL).Msg("starting Lead.New worker")
	for {
		delay := p.Step(ctx)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info().Msg("Lead.New worker stopped")
			return nil
		}
	}
}

// Step runs one iteration: receive, process the whole batch, and return how long to wait before the next one.
func (p *Poller) Step(ctx context.Context) time.Duration {
	messages, err := p.transport.Receive(ctx, p.queueURL, transport.ReceiveOptions{
		MaxMessages:       p.config.BatchSize,
		WaitTime:          p.config.WaitTime,
		VisibilityTimeout: p.config.VisibilityTimeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		p.metrics.IncReceiveErrorsTotal()
		p.logger.Error().Err(err).Dur("backoff", p.config.ErrorBackoff()).Msg("error polling queue")
		return p.config.ErrorBackoff()
	}
	p.lastPollAt.Store(p.clock.Now().UnixMilli())

	if len(messages) > 0 {
		p.metrics.IncMessagesReceivedTotalBy(int64(len(messages)))
		p.processor.ProcessBatch(ctx, messages)
	}
	return p.config.PollInterval
}

// LastPollAt is the time of the last successful receive, zero if there was none yet.
func (p *Poller) LastPollAt() time.Time {
	ms := p.lastPollAt.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
