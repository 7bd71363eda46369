package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/leads"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog/log"
)

const (
	testEventFailingMessage    = "Test event sent to main queue (will fail and retry)"
	testEventSucceedingMessage = "Test event sent successfully"
)

// LeadsService is the producer side: it turns new leads into Lead.New messages on the main queue.
type LeadsService struct {
	transport transport.Transport
	queueURL  string
	validate  *validator.Validate
	metrics   metrics.Service
}

func NewLeadsService(tr transport.Transport, queueURL string, metricsService metrics.Service) *LeadsService {
	return &LeadsService{
		transport: tr,
		queueURL:  queueURL,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		metrics:   metricsService,
	}
}

func (ls *LeadsService) PublishLead(ctx context.Context, req common.NewLeadRequest) (*common.Lead, error) {
	if err := ls.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, fe := range validationErrs {
				log.Error().Str("field", fe.Field()).Str("rule", fe.Tag()).Msg("invalid new lead")
			}
			return nil, common.ErrBadRequestValidation
		}
		log.Error().Err(err).Msg("failed to validate new lead")
		return nil, common.ErrInternal
	}

	leadId, err := uuid.NewV7()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate new lead ID")
		return nil, common.ErrInternal
	}

	lead := common.Lead{
		ID:          leadId.String(),
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		CreatedAt:   time.Now().UTC(),
	}

	err = ls.send(ctx, lead, map[string]transport.Attribute{
		common.EventTypeAttribute: {DataType: common.StringDataType, StringValue: common.LeadNewEventType},
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("lead_id", lead.ID).Msg("lead sent to queue successfully")
	return &lead, nil
}

// SendTestEvent publishes a synthetic lead. With shouldFail it fails on every attempt before the last retry,
// which exercises the whole retry path and ends in a success.
func (ls *LeadsService) SendTestEvent(ctx context.Context, shouldFail bool) (string, error) {
	testId, err := uuid.NewV7()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate test lead ID")
		return "", common.ErrInternal
	}

	lead := common.Lead{
		ID:          "test-" + testId.String(),
		WorkspaceID: "test-workspace",
		UserID:      "test-user",
		Name:        "Test Lead",
		Email:       "test@example.com",
		Phone:       "1234567890",
		CreatedAt:   time.Now().UTC(),
	}

	err = ls.send(ctx, lead, map[string]transport.Attribute{
		common.EventTypeAttribute:  {DataType: common.StringDataType, StringValue: common.LeadNewEventType},
		common.RetryCountAttribute: {DataType: common.NumberDataType, StringValue: "0"},
		common.ShouldFailAttribute: {DataType: common.StringDataType, StringValue: strconv.FormatBool(shouldFail)},
	})
	if err != nil {
		return "", err
	}

	if shouldFail {
		return testEventFailingMessage, nil
	}
	return testEventSucceedingMessage, nil
}

func (ls *LeadsService) send(ctx context.Context, lead common.Lead, attributes map[string]transport.Attribute) error {
	body, err := leads.EncodeLead(lead)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode lead")
		return common.ErrInternal
	}

	err = ls.transport.Send(ctx, ls.queueURL, transport.OutgoingMessage{
		Body:       body,
		Attributes: attributes,
	})
	if err != nil {
		log.Error().Err(err).Str("lead_id", lead.ID).Msg("error sending lead to queue")
		return common.ErrInternal
	}
	ls.metrics.IncMessagesProducedTotalBy(1, common.LeadNewEventType)
	return nil
}
