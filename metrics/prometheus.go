package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusMetricsService struct {
	messagesProducedTotal   *prometheus.CounterVec
	messagesReceivedTotal   prometheus.Counter
	messagesProcessedTotal  *prometheus.CounterVec
	messagesMovedToDlqTotal *prometheus.CounterVec
	receiveErrorsTotal      prometheus.Counter
	transportCallsTotal     *prometheus.CounterVec
	batchDurationSeconds    prometheus.Histogram
	queueDepth              *prometheus.GaugeVec
	projectedMonthlyCalls   prometheus.Gauge
}

func newPrometheusMetricsService(registerer prometheus.Registerer) *PrometheusMetricsService {
	srv := &PrometheusMetricsService{
		messagesProducedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_messages_produced_total",
				Help: "Total number of messages published to the main queue by the producer and the test event endpoint",
			},
			[]string{"event_type"},
		),

		messagesReceivedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadflow_messages_received_total",
				Help: "Total number of message deliveries received by the worker. Redeliveries are counted again",
			},
		),

		// one increment per delivery, so retried + dead_lettered + lost + succeeded add up to attempts, not leads
		messagesProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_messages_processed_total",
				Help: "Total number of deliveries processed by the worker, by outcome",
			},
			[]string{"outcome"},
		),

		messagesMovedToDlqTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_messages_moved_to_dlq_total",
				Help: "Total number of messages published to the dead-letter queue",
			},
			[]string{"reason"},
		),

		receiveErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadflow_receive_errors_total",
				Help: "Total number of failed receive calls, each followed by the error backoff",
			},
		),

		transportCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_transport_calls_total",
				Help: "Total number of queue transport API calls, the unit the SQS free tier is billed in",
			},
			[]string{"operation"},
		),

		batchDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadflow_batch_duration_seconds",
				Help:    "Time from receiving a batch until every message in it reached a terminal decision",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),

		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "leadflow_queue_depth",
				Help: "Approximate number of visible messages in the queue",
			},
			[]string{"queue_type"},
		),

		projectedMonthlyCalls: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadflow_projected_monthly_transport_calls",
				Help: "30-day projection of transport API calls based on the rate since process start",
			},
		),
	}

	registerer.MustRegister(srv.messagesProducedTotal)
	registerer.MustRegister(srv.messagesReceivedTotal)
	registerer.MustRegister(srv.messagesProcessedTotal)
	registerer.MustRegister(srv.messagesMovedToDlqTotal)
	registerer.MustRegister(srv.receiveErrorsTotal)
	registerer.MustRegister(srv.transportCallsTotal)
	registerer.MustRegister(srv.batchDurationSeconds)
	registerer.MustRegister(srv.queueDepth)
	registerer.MustRegister(srv.projectedMonthlyCalls)

	return srv
}

func (pms *PrometheusMetricsService) IncMessagesProducedTotalBy(count int64, eventType string) {
	pms.messagesProducedTotal.WithLabelValues(eventType).Add(float64(count))
}

func (pms *PrometheusMetricsService) IncMessagesReceivedTotalBy(count int64) {
	pms.messagesReceivedTotal.Add(float64(count))
}

func (pms *PrometheusMetricsService) IncMessagesProcessedTotalBy(count int64, outcome string) {
	pms.messagesProcessedTotal.WithLabelValues(outcome).Add(float64(count))
}

func (pms *PrometheusMetricsService) IncMessagesMovedToDlqTotalBy(count int64, reason string) {
	pms.messagesMovedToDlqTotal.WithLabelValues(reason).Add(float64(count))
}

func (pms *PrometheusMetricsService) IncReceiveErrorsTotal() {
	pms.receiveErrorsTotal.Inc()
}

func (pms *PrometheusMetricsService) IncTransportCallsTotal(operation string) {
	pms.transportCallsTotal.WithLabelValues(operation).Inc()
}

func (pms *PrometheusMetricsService) ObserveBatchDuration(seconds float64) {
	pms.batchDurationSeconds.Observe(seconds)
}

func (pms *PrometheusMetricsService) SetQueueDepth(queueType string, depth int64) {
	pms.queueDepth.WithLabelValues(queueType).Set(float64(depth))
}

func (pms *PrometheusMetricsService) SetProjectedMonthlyCalls(calls float64) {
	pms.projectedMonthlyCalls.Set(calls)
}
