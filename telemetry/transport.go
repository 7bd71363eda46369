package telemetry

import (
	"context"
	"errors"

	"github.com/n0rdy/leadflow/transport"
	"golang.org/x/time/rate"
)

var ErrDepthUnsupported = errors.New("transport does not report queue depth")

const (
	ReceiveOperation = "receive"
	DeleteOperation  = "delete"
	SendOperation    = "send"
	DepthOperation   = "depth"
)

// InstrumentedTransport records every call on the tracker and, when a limiter is set, waits for it first.
type InstrumentedTransport struct {
	next    transport.Transport
	tracker *UsageTracker
	limiter *rate.Limiter
}

// InstrumentTransport wraps next. A nil limiter means calls are never throttled.
func InstrumentTransport(next transport.Transport, tracker *UsageTracker, limiter *rate.Limiter) *InstrumentedTransport {
	return &InstrumentedTransport{
		next:    next,
		tracker: tracker,
		limiter: limiter,
	}
}

// NewLimiter turns a calls-per-second budget into a limiter, nil when the budget is not positive.
func NewLimiter(maxCallsPerSecond float64) *rate.Limiter {
	if maxCallsPerSecond <= 0 {
		return nil
	}
	burst := int(maxCallsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(maxCallsPerSecond), burst)
}

func (it *InstrumentedTransport) Receive(ctx context.Context, queueURL string, opts transport.ReceiveOptions) ([]transport.Message, error) {
	if err := it.before(ctx, ReceiveOperation); err != nil {
		return nil, err
	}
	return it.next.Receive(ctx, queueURL, opts)
}

func (it *InstrumentedTransport) Delete(ctx context.Context, queueURL string, receiptHandle string) error {
	if err := it.before(ctx, DeleteOperation); err != nil {
		return err
	}
	return it.next.Delete(ctx, queueURL, receiptHandle)
}

func (it *InstrumentedTransport) Send(ctx context.Context, queueURL string, msg transport.OutgoingMessage) error {
	if err := it.before(ctx, SendOperation); err != nil {
		return err
	}
	return it.next.Send(ctx, queueURL, msg)
}

// Depth is counted too, as it is billed like any other queue call.
// A wrapped transport that cannot report depth yields ErrDepthUnsupported rather than an empty queue.
func (it *InstrumentedTransport) Depth(ctx context.Context, queueURL string) (int64, error) {
	depthReader, ok := it.next.(transport.DepthReader)
	if !ok {
		return 0, ErrDepthUnsupported
	}
	if err := it.before(ctx, DepthOperation); err != nil {
		return 0, err
	}
	return depthReader.Depth(ctx, queueURL)
}

func (it *InstrumentedTransport) before(ctx context.Context, operation string) error {
	if it.limiter != nil {
		if err := it.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	it.tracker.Record(operation)
	return nil
}
