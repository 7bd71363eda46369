package worker

import (
	"context"
	"strconv"

	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog"
)

// DeadLetterRouter moves messages that exhausted their retries out of the main queue.
// The original is always deleted, even when the DLQ is missing or the publish fails:
// losing a message is preferred over reprocessing it forever.
type DeadLetterRouter struct {
	transport  transport.Transport
	queueURL   string
	dlqURL     string
	errorCount int
	metrics    metrics.Service
	logger     zerolog.Logger
}

func NewDeadLetterRouter(tr transport.Transport, queueURL string, dlqURL string, errorCount int, metricsService metrics.Service, logger zerolog.Logger) *DeadLetterRouter {
	return &DeadLetterRouter{
		transport:  tr,
		queueURL:   queueURL,
		dlqURL:     dlqURL,
		errorCount: errorCount,
		metrics:    metricsService,
		logger:     logger,
	}
}

// Route returns DeadLettered when the DLQ publish went through and Lost otherwise.
func (dlr *DeadLetterRouter) Route(ctx context.Context, msg transport.Message, cause error) Outcome {
	outcome := dlr.publish(ctx, msg, cause)
	deleteMessage(ctx, dlr.transport, dlr.queueURL, msg, dlr.logger)
	return outcome
}

func (dlr *DeadLetterRouter) publish(ctx context.Context, msg transport.Message, cause error) Outcome {
	if dlr.dlqURL == "" {
		dlr.logger.Error().Str("message_id", msg.MessageID).Msg("DLQ URL not configured, message lost")
		return OutcomeLost
	}

	lastError := "unknown error"
	if cause != nil {
		lastError = cause.Error()
	}

	err := dlr.transport.Send(ctx, dlr.dlqURL, transport.OutgoingMessage{
		Body: msg.Body,
		Attributes: map[string]transport.Attribute{
			common.OriginalQueueAttribute: {DataType: common.StringDataType, StringValue: dlr.queueURL},
			common.ErrorCountAttribute:    {DataType: common.NumberDataType, StringValue: strconv.Itoa(dlr.errorCount)},
			common.LastErrorAttribute:     {DataType: common.StringDataType, StringValue: lastError},
		},
	})
	if err != nil {
		dlr.logger.Error().Err(err).Str("message_id", msg.MessageID).Msg("failed to move message to DLQ, message lost")
		return OutcomeLost
	}

	dlr.metrics.IncMessagesMovedToDlqTotalBy(1, metrics.MaxRetriesMovedToDlqReason)
	dlr.logger.Info().Str("message_id", msg.MessageID).Msg("message moved to DLQ")
	return OutcomeDeadLettered
}
