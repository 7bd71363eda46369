package metrics

import (
	"context"
	"testing"

	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/transport"
	"github.com/n0rdy/leadflow/transport/transporttest"
	"github.com/stretchr/testify/assert"
)

type depthRecorder struct {
	metrics.Service
	depths map[string]int64
}

func (dr *depthRecorder) SetQueueDepth(queueType string, depth int64) {
	dr.depths[queueType] = depth
}

func TestRefreshQueuesDepth(t *testing.T) {
	mem := transporttest.NewMemoryTransport()
	mem.Put("lead-new", transport.Message{Body: "{}"})
	mem.Put("lead-new", transport.Message{Body: "{}"})
	mem.Put("lead-new-dlq", transport.Message{Body: "{}"})
	recorder := &depthRecorder{depths: make(map[string]int64)}

	refreshQueuesDepth(context.Background(), recorder, mem, map[string]string{
		metrics.MainQueueType: "lead-new",
		metrics.DlqQueueType:  "lead-new-dlq",
	})

	assert.Equal(t, map[string]int64{metrics.MainQueueType: 2, metrics.DlqQueueType: 1}, recorder.depths)
}
