package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/n0rdy/leadflow/db"
	"github.com/rs/zerolog/log"
)

const (
	localPollTick = 100 * time.Millisecond
)

// LocalTransport serves queue URLs as plain queue names out of a SQLite file, for running the worker without AWS.
type LocalTransport struct {
	repo *db.LeadflowRepo
}

func NewLocalTransport(repo *db.LeadflowRepo) *LocalTransport {
	return &LocalTransport{
		repo: repo,
	}
}

func (lt *LocalTransport) Receive(ctx context.Context, queueURL string, opts ReceiveOptions) ([]Message, error) {
	start := time.Now()
	ticker := time.NewTicker(localPollTick)
	defer ticker.Stop()

	for {
		received, err := lt.repo.SelectMessagesForReceiving(ctx, queueURL, opts.MaxMessages, opts.VisibilityTimeout.Milliseconds())
		if err != nil {
			return nil, err
		}
		if len(received) > 0 {
			return toMessages(received), nil
		}

		// nothing visible, keep long polling until the wait time is used up
		if time.Since(start) >= opts.WaitTime {
			return nil, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (lt *LocalTransport) Delete(ctx context.Context, queueURL string, receiptHandle string) error {
	deleted, err := lt.repo.DeleteMessageByReceipt(ctx, queueURL, receiptHandle)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("delete from %s: %w", queueURL, ErrStaleReceipt)
	}
	return nil
}

func (lt *LocalTransport) Send(ctx context.Context, queueURL string, msg OutgoingMessage) error {
	messageId, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate message id: %w", err)
	}

	attributes, err := json.Marshal(msg.Attributes)
	if err != nil {
		return fmt.Errorf("marshal message attributes: %w", err)
	}

	nowMs := time.Now().UnixMilli()
	return lt.repo.InsertMessage(ctx, &db.NewQueueMessage{
		Id:           messageId.String(),
		QueueName:    queueURL,
		Body:         msg.Body,
		Attributes:   string(attributes),
		VisibleAfter: nowMs + msg.Delay.Milliseconds(),
		SentAt:       nowMs,
	})
}

func (lt *LocalTransport) Depth(ctx context.Context, queueURL string) (int64, error) {
	return lt.repo.CountVisibleMessages(ctx, queueURL)
}

func toMessages(received []db.ReceivedQueueMessage) []Message {
	messages := make([]Message, 0, len(received))
	for _, r := range received {
		var attributes map[string]Attribute
		if err := json.Unmarshal([]byte(r.Attributes), &attributes); err != nil {
			// the body is still deliverable, the worker falls back to default attribute values
			log.Warn().Err(err).Str("message_id", r.Id).Msg("failed to unmarshal stored message attributes")
		}
		messages = append(messages, Message{
			MessageID:     r.Id,
			ReceiptHandle: r.ReceiptHandle,
			Body:          r.Body,
			Attributes:    attributes,
		})
	}
	return messages
}
