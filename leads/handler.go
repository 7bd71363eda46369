package leads

import (
	"context"
	"time"

	"github.com/n0rdy/leadflow/common"
	"github.com/rs/zerolog"
)

// Handler does the tenant-scoped processing of one lead.
// Deliveries are at-least-once, so implementations must tolerate the same lead more than once, see IdempotentHandler.
type Handler interface {
	HandleLead(ctx context.Context, lead common.Lead) error
}

type HandlerFunc func(ctx context.Context, lead common.Lead) error

func (f HandlerFunc) HandleLead(ctx context.Context, lead common.Lead) error {
	return f(ctx, lead)
}

// LoggingHandler stands in for the real downstream processing: it logs the lead and simulates work.
type LoggingHandler struct {
	latency time.Duration
	logger  zerolog.Logger
}

func NewLoggingHandler(latency time.Duration, logger zerolog.Logger) *LoggingHandler {
	return &LoggingHandler{
		latency: latency,
		logger:  logger,
	}
}

func (lh *LoggingHandler) HandleLead(ctx context.Context, lead common.Lead) error {
	lh.logger.Info().
		Str("lead_id", lead.ID).
		Str("workspace_id", lead.WorkspaceID).
		Str("user_id", lead.UserID).
		Str("name", lead.Name).
		Str("email", lead.Email).
		Str("phone", lead.Phone).
		Time("created_at", lead.CreatedAt).
		Msg("processing new lead")

	if lh.latency > 0 {
		timer := time.NewTimer(lh.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	lh.logger.Info().Str("lead_id", lead.ID).Msg("finished processing lead")
	return nil
}
