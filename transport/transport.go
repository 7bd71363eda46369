package transport

import (
	"context"
	"errors"
	"time"
)

// ErrStaleReceipt is returned by Delete when the receipt handle is no longer valid,
// e.g. the message was already deleted or its visibility timeout expired and it was redelivered.
var ErrStaleReceipt = errors.New("receipt handle is stale or invalid")

// Attribute mirrors an SQS message attribute. String and Number types use StringValue, Binary uses BinaryValue.
type Attribute struct {
	DataType    string
	StringValue string `json:",omitempty"`
	BinaryValue []byte `json:",omitempty"`
}

// Message is one received delivery. ReceiptHandle identifies this delivery, not the message.
type Message struct {
	MessageID     string
	ReceiptHandle string
	Body          string
	Attributes    map[string]Attribute
}

type OutgoingMessage struct {
	Body       string
	Attributes map[string]Attribute
	Delay      time.Duration
}

type ReceiveOptions struct {
	MaxMessages       int
	WaitTime          time.Duration
	VisibilityTimeout time.Duration
}

// Transport is the subset of a managed queue the worker relies on:
// at-least-once delivery with per-delivery visibility timeouts.
type Transport interface {
	Receive(ctx context.Context, queueURL string, opts ReceiveOptions) ([]Message, error)
	Delete(ctx context.Context, queueURL string, receiptHandle string) error
	Send(ctx context.Context, queueURL string, msg OutgoingMessage) error
}

// DepthReader is implemented by transports that can report the approximate number of visible messages.
type DepthReader interface {
	Depth(ctx context.Context, queueURL string) (int64, error)
}

// CopyAttributes returns a shallow copy, so that callers can add or override attributes
// without mutating the received message.
func CopyAttributes(attrs map[string]Attribute) map[string]Attribute {
	copied := make(map[string]Attribute, len(attrs)+1)
	for k, v := range attrs {
		copied[k] = v
	}
	return copied
}
