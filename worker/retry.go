package worker

import (
	"context"
	"errors"
	"time"

	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog"
)

// Retrier decides what happens to a message whose processing failed.
//
// A message with RetryCount below maxRetries is re-published with the counter incremented and a fixed delay,
// then the original is deleted: attributes cannot be changed in place. Anything else goes to the DeadLetterRouter.
// That gives maxRetries+1 attempts in total.
type Retrier struct {
	transport  transport.Transport
	queueURL   string
	maxRetries int
	retryDelay time.Duration
	deadLetter *DeadLetterRouter
	logger     zerolog.Logger
}

func NewRetrier(tr transport.Transport, queueURL string, maxRetries int, retryDelay time.Duration, deadLetter *DeadLetterRouter, logger zerolog.Logger) *Retrier {
	return &Retrier{
		transport:  tr,
		queueURL:   queueURL,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		deadLetter: deadLetter,
		logger:     logger,
	}
}

func (r *Retrier) Route(ctx context.Context, msg transport.Message, retryCount int, cause error) Outcome {
	if retryCount >= r.maxRetries {
		r.logger.Warn().
			Str("message_id", msg.MessageID).
			Int("retry_count", retryCount).
			Msg("message exceeded max retries, moving to DLQ")
		return r.deadLetter.Route(ctx, msg, cause)
	}

	err := r.transport.Send(ctx, r.queueURL, transport.OutgoingMessage{
		Body:       msg.Body,
		Attributes: WithRetryCount(msg.Attributes, retryCount+1),
		Delay:      r.retryDelay,
	})
	if err != nil {
		// the original stays in flight and comes back after its visibility timeout with the old count
		r.logger.Error().Err(err).Str("message_id", msg.MessageID).Msg("failed to re-publish message for retry")
		return OutcomeUnrouted
	}

	deleteMessage(ctx, r.transport, r.queueURL, msg, r.logger)
	r.logger.Info().
		Str("message_id", msg.MessageID).
		Int("next_attempt", retryCount+2).
		Msg("message queued for retry")
	return OutcomeRetried
}

// deleteMessage acks msg. Failures are logged and swallowed: a stale handle means another delivery already settled it,
// anything else leaves the message to be redelivered.
func deleteMessage(ctx context.Context, tr transport.Transport, queueURL string, msg transport.Message, logger zerolog.Logger) {
	err := tr.Delete(ctx, queueURL, msg.ReceiptHandle)
	if err == nil {
		return
	}
	if errors.Is(err, transport.ErrStaleReceipt) {
		logger.Warn().Err(err).Str("message_id", msg.MessageID).Msg("message was already deleted or redelivered")
		return
	}
	logger.Error().Err(err).Str("message_id", msg.MessageID).Msg("failed to delete message")
}
