// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/n0rdy/leadflow/transport"
)

type Sent struct {
	QueueURL string
	Message  transport.OutgoingMessage
}

// MemoryTransport keeps queues in memory. Sent messages become receivable immediately, delays are only recorded.
// Each delivery gets a new receipt handle, deleting with an unknown or used handle returns transport.ErrStaleReceipt.
type MemoryTransport struct {
	mu       sync.Mutex
	seq      int
	queues   map[string][]transport.Message
	inFlight map[string]string // receipt handle -> queue URL
	sent     []Sent
	deleted  []string
	receives int

	// injected failures, checked on every call
	ReceiveErr error
	DeleteErr  error
	SendErr    map[string]error // by queue URL
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		queues:   make(map[string][]transport.Message),
		inFlight: make(map[string]string),
		SendErr:  make(map[string]error),
	}
}

// Put makes msg receivable from queueURL as is, without going through Send.
func (mt *MemoryTransport) Put(queueURL string, msg transport.Message) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if msg.MessageID == "" {
		mt.seq++
		msg.MessageID = fmt.Sprintf("msg-%d", mt.seq)
	}
	mt.queues[queueURL] = append(mt.queues[queueURL], msg)
}

func (mt *MemoryTransport) Receive(ctx context.Context, queueURL string, opts transport.ReceiveOptions) ([]transport.Message, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.receives++
	if mt.ReceiveErr != nil {
		return nil, mt.ReceiveErr
	}

	pending := mt.queues[queueURL]
	n := min(opts.MaxMessages, len(pending))
	if opts.MaxMessages <= 0 {
		n = len(pending)
	}

	received := make([]transport.Message, 0, n)
	for _, msg := range pending[:n] {
		mt.seq++
		msg.ReceiptHandle = fmt.Sprintf("rh-%d", mt.seq)
		mt.inFlight[msg.ReceiptHandle] = queueURL
		received = append(received, msg)
	}
	mt.queues[queueURL] = pending[n:]
	return received, nil
}

func (mt *MemoryTransport) Delete(ctx context.Context, queueURL string, receiptHandle string) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if mt.DeleteErr != nil {
		return mt.DeleteErr
	}
	if q, ok := mt.inFlight[receiptHandle]; !ok || q != queueURL {
		return fmt.Errorf("delete %s: %w", receiptHandle, transport.ErrStaleReceipt)
	}
	delete(mt.inFlight, receiptHandle)
	mt.deleted = append(mt.deleted, receiptHandle)
	return nil
}

func (mt *MemoryTransport) Send(ctx context.Context, queueURL string, msg transport.OutgoingMessage) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := mt.SendErr[queueURL]; err != nil {
		return err
	}
	mt.sent = append(mt.sent, Sent{QueueURL: queueURL, Message: msg})

	mt.seq++
	mt.queues[queueURL] = append(mt.queues[queueURL], transport.Message{
		MessageID:  fmt.Sprintf("msg-%d", mt.seq),
		Body:       msg.Body,
		Attributes: transport.CopyAttributes(msg.Attributes),
	})
	return nil
}

func (mt *MemoryTransport) Depth(ctx context.Context, queueURL string) (int64, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return int64(len(mt.queues[queueURL])), nil
}

// SentTo returns the messages sent to queueURL, in order.
func (mt *MemoryTransport) SentTo(queueURL string) []transport.OutgoingMessage {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var out []transport.OutgoingMessage
	for _, s := range mt.sent {
		if s.QueueURL == queueURL {
			out = append(out, s.Message)
		}
	}
	return out
}

// Deleted returns the receipt handles of successful deletes, in order.
func (mt *MemoryTransport) Deleted() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]string(nil), mt.deleted...)
}

// Pending returns the number of messages waiting to be received from queueURL.
func (mt *MemoryTransport) Pending(queueURL string) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return len(mt.queues[queueURL])
}

// InFlight returns the number of received but not deleted deliveries.
func (mt *MemoryTransport) InFlight() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return len(mt.inFlight)
}

func (mt *MemoryTransport) Receives() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.receives
}
