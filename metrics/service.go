package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	MainQueueType = "main"
	DlqQueueType  = "dlq"

	SucceededOutcome    = "succeeded"
	RetriedOutcome      = "retried"
	DeadLetteredOutcome = "dead_lettered"
	LostOutcome         = "lost"
	SkippedOutcome      = "skipped"
	UnroutedOutcome     = "unrouted"

	MaxRetriesMovedToDlqReason = "max_retries_reached"
)

type Service interface {
	IncMessagesProducedTotalBy(count int64, eventType string)
	IncMessagesReceivedTotalBy(count int64)
	IncMessagesProcessedTotalBy(count int64, outcome string)
	IncMessagesMovedToDlqTotalBy(count int64, reason string)
	IncReceiveErrorsTotal()
	IncTransportCallsTotal(operation string)
	ObserveBatchDuration(seconds float64)
	SetQueueDepth(queueType string, depth int64)
	SetProjectedMonthlyCalls(calls float64)
}

func NewMetricsService(metricsEnabled bool, registerer prometheus.Registerer) Service {
	if metricsEnabled {
		return newPrometheusMetricsService(registerer)
	}
	return newNoopMetricsService()
}
