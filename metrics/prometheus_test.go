package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatheredValue returns the counter or gauge value of the series of name carrying the given label value.
func gatheredValue(t *testing.T, registry *prometheus.Registry, name string, labelValue string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matches := labelValue == ""
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == labelValue {
					matches = true
				}
			}
			if !matches {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s{%s} not found", name, labelValue)
	return 0
}

func TestPrometheusMetricsService(t *testing.T) {
	registry := prometheus.NewRegistry()
	service := NewMetricsService(true, registry)

	service.IncMessagesProducedTotalBy(2, "Lead.New")
	service.IncMessagesReceivedTotalBy(10)
	service.IncMessagesProcessedTotalBy(7, SucceededOutcome)
	service.IncMessagesProcessedTotalBy(3, RetriedOutcome)
	service.IncMessagesMovedToDlqTotalBy(1, MaxRetriesMovedToDlqReason)
	service.IncReceiveErrorsTotal()
	service.IncTransportCallsTotal("receive")
	service.IncTransportCallsTotal("receive")
	service.SetQueueDepth(MainQueueType, 42)
	service.SetQueueDepth(DlqQueueType, 3)
	service.SetProjectedMonthlyCalls(129_600)
	service.ObserveBatchDuration(0.2)

	assert.Equal(t, 2.0, gatheredValue(t, registry, "leadflow_messages_produced_total", "Lead.New"))
	assert.Equal(t, 10.0, gatheredValue(t, registry, "leadflow_messages_received_total", ""))
	assert.Equal(t, 7.0, gatheredValue(t, registry, "leadflow_messages_processed_total", SucceededOutcome))
	assert.Equal(t, 3.0, gatheredValue(t, registry, "leadflow_messages_processed_total", RetriedOutcome))
	assert.Equal(t, 1.0, gatheredValue(t, registry, "leadflow_messages_moved_to_dlq_total", MaxRetriesMovedToDlqReason))
	assert.Equal(t, 1.0, gatheredValue(t, registry, "leadflow_receive_errors_total", ""))
	assert.Equal(t, 2.0, gatheredValue(t, registry, "leadflow_transport_calls_total", "receive"))
	assert.Equal(t, 42.0, gatheredValue(t, registry, "leadflow_queue_depth", MainQueueType))
	assert.Equal(t, 3.0, gatheredValue(t, registry, "leadflow_queue_depth", DlqQueueType))
	assert.Equal(t, 129_600.0, gatheredValue(t, registry, "leadflow_projected_monthly_transport_calls", ""))
}

func TestNewMetricsService_DisabledIsNoop(t *testing.T) {
	service := NewMetricsService(false, nil)

	_, ok := service.(*NoopMetricsService)
	assert.True(t, ok)
	assert.NotPanics(t, func() {
		service.IncReceiveErrorsTotal()
		service.SetQueueDepth(MainQueueType, 1)
	})
}
