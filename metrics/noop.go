package metrics

type NoopMetricsService struct {
}

func newNoopMetricsService() *NoopMetricsService {
	return &NoopMetricsService{}
}

func (nms *NoopMetricsService) IncMessagesProducedTotalBy(count int64, eventType string) {
	// no-op
}

func (nms *NoopMetricsService) IncMessagesReceivedTotalBy(count int64) {
	// no-op
}

func (nms *NoopMetricsService) IncMessagesProcessedTotalBy(count int64, outcome string) {
	// no-op
}

func (nms *NoopMetricsService) IncMessagesMovedToDlqTotalBy(count int64, reason string) {
	// no-op
}

func (nms *NoopMetricsService) IncReceiveErrorsTotal() {
	// no-op
}

func (nms *NoopMetricsService) IncTransportCallsTotal(operation string) {
	// no-op
}

func (nms *NoopMetricsService) ObserveBatchDuration(seconds float64) {
	// no-op
}

func (nms *NoopMetricsService) SetQueueDepth(queueType string, depth int64) {
	// no-op
}

func (nms *NoopMetricsService) SetProjectedMonthlyCalls(calls float64) {
	// no-op
}
