package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/n0rdy/leadflow/leads"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeRetried
	OutcomeDeadLettered
	OutcomeLost     // exhausted, but the DLQ is missing or rejected the publish
	OutcomeSkipped  // malformed, left in flight for the transport to redeliver
	OutcomeUnrouted // failed and could not be re-published, left in flight as well
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return metrics.SucceededOutcome
	case OutcomeRetried:
		return metrics.RetriedOutcome
	case OutcomeDeadLettered:
		return metrics.DeadLetteredOutcome
	case OutcomeLost:
		return metrics.LostOutcome
	case OutcomeSkipped:
		return metrics.SkippedOutcome
	case OutcomeUnrouted:
		return metrics.UnroutedOutcome
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// BatchResult counts outcomes per batch, keyed by Outcome.
type BatchResult map[Outcome]int

func (br BatchResult) Total() int {
	total := 0
	for _, n := range br {
		total += n
	}
	return total
}

// BatchProcessor settles every message of a received batch: delete on success, otherwise retry or dead-letter.
type BatchProcessor struct {
	transport  transport.Transport
	queueURL   string
	handler    leads.Handler
	retrier    *Retrier
	maxRetries int
	limit      int
	metrics    metrics.Service
	logger     zerolog.Logger
}

func NewBatchProcessor(tr transport.Transport, queueURL string, handler leads.Handler, retrier *Retrier, maxRetries int, limit int, metricsService metrics.Service, logger zerolog.Logger) *BatchProcessor {
	return &BatchProcessor{
		transport:  tr,
		queueURL:   queueURL,
		handler:    handler,
		retrier:    retrier,
		maxRetries: maxRetries,
		limit:      limit,
		metrics:    metricsService,
		logger:     logger,
	}
}

// ProcessBatch handles all messages concurrently and returns once each of them has an outcome.
// Messages are isolated from each other: a failure or panic in one never cancels or delays the decision on another.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, messages []transport.Message) BatchResult {
	start := time.Now()
	bp.logger.Info().Int("count", len(messages)).Msg("processing batch")

	result := make(BatchResult)
	var mu sync.Mutex

	// plain Group, not WithContext: an error in one message must not cancel its siblings
	var g errgroup.Group
	if bp.limit > 0 {
		g.SetLimit(bp.limit)
	}
	for _, msg := range messages {
		msg := msg // per-iteration copy: go.mod targets go1.21 loop semantics
		g.Go(func() error {
			outcome := bp.processMessage(ctx, msg)
			bp.metrics.IncMessagesProcessedTotalBy(1, outcome.String())

			mu.Lock()
			result[outcome]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	bp.metrics.ObserveBatchDuration(time.Since(start).Seconds())
	bp.logger.Info().
		Int("succeeded", result[OutcomeSucceeded]).
		Int("retried", result[OutcomeRetried]).
		Int("dead_lettered", result[OutcomeDeadLettered]).
		Int("lost", result[OutcomeLost]).
		Int("skipped", result[OutcomeSkipped]).
		Int("unrouted", result[OutcomeUnrouted]).
		Dur("duration", time.Since(start)).
		Msg("batch processed")
	return result
}

func (bp *BatchProcessor) processMessage(ctx context.Context, msg transport.Message) Outcome {
	if msg.Body == "" || msg.ReceiptHandle == "" {
		// without a readable message there is no retry counter either, so the transport redelivery is the only way out
		bp.logger.Error().
			Str("message_id", msg.MessageID).
			Bool("has_body", msg.Body != "").
			Bool("has_receipt_handle", msg.ReceiptHandle != "").
			Msg("invalid message format, skipping")
		return OutcomeSkipped
	}

	retryCount := RetryCount(msg.Attributes, bp.logger)
	bp.logger.Info().
		Str("message_id", msg.MessageID).
		Int("attempt", retryCount+1).
		Msg("processing message")

	// once the handler has run, the decision is settled even if the worker is shutting down
	settleCtx := context.WithoutCancel(ctx)
	if err := bp.handle(ctx, msg, retryCount); err != nil {
		bp.logger.Error().Err(err).Str("message_id", msg.MessageID).Msg("error processing message")
		return bp.retrier.Route(settleCtx, msg, retryCount, err)
	}

	deleteMessage(settleCtx, bp.transport, bp.queueURL, msg, bp.logger)
	bp.logger.Info().Str("message_id", msg.MessageID).Msg("successfully processed message")
	return OutcomeSucceeded
}

func (bp *BatchProcessor) handle(ctx context.Context, msg transport.Message, retryCount int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lead handler panicked: %v", r)
		}
	}()

	lead, err := leads.DecodeLead(msg.Body)
	if err != nil {
		return err
	}

	if ShouldFail(msg.Attributes) && retryCount < bp.maxRetries {
		return fmt.Errorf("simulated processing failure (attempt %d)", retryCount+1)
	}

	return bp.handler.HandleLead(ctx, lead)
}
