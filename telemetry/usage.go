package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/n0rdy/leadflow/clock"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/rs/zerolog"
)

const (
	hoursPerMonth = 24 * 30
)

// UsageReport projects the call rate observed since start onto a 30 day month.
type UsageReport struct {
	TotalCalls            int64
	Elapsed               time.Duration
	CallsPerHour          float64
	EstimatedMonthlyCalls float64
	MonthlyQuota          int64
	UsagePercentage       float64
}

// UsageTracker counts transport API calls against a fixed monthly quota.
// It only observes: nothing is throttled based on the projection.
type UsageTracker struct {
	calls        atomic.Int64
	startedAt    time.Time
	reportEvery  int64
	monthlyQuota int64
	clock        clock.Clock
	metrics      metrics.Service
	logger       zerolog.Logger
}

func NewUsageTracker(reportEvery int64, monthlyQuota int64, clk clock.Clock, metricsService metrics.Service, logger zerolog.Logger) *UsageTracker {
	return &UsageTracker{
		startedAt:    clk.Now(),
		reportEvery:  reportEvery,
		monthlyQuota: monthlyQuota,
		clock:        clk,
		metrics:      metricsService,
		logger:       logger,
	}
}

// Record counts one call. Every reportEvery-th call logs a usage report, exactly once per multiple.
func (ut *UsageTracker) Record(operation string) {
	n := ut.calls.Add(1)
	ut.metrics.IncTransportCallsTotal(operation)

	if ut.reportEvery > 0 && n%ut.reportEvery == 0 {
		ut.logReport(ut.reportAt(n))
	}
}

func (ut *UsageTracker) Calls() int64 {
	return ut.calls.Load()
}

func (ut *UsageTracker) Report() UsageReport {
	return ut.reportAt(ut.calls.Load())
}

func (ut *UsageTracker) reportAt(totalCalls int64) UsageReport {
	elapsed := ut.clock.Now().Sub(ut.startedAt)

	report := UsageReport{
		TotalCalls:   totalCalls,
		Elapsed:      elapsed,
		MonthlyQuota: ut.monthlyQuota,
	}
	// right after start the rate is meaningless, report the raw count only
	if elapsed <= 0 {
		return report
	}

	report.CallsPerHour = float64(totalCalls) / elapsed.Hours()
	report.EstimatedMonthlyCalls = report.CallsPerHour * hoursPerMonth
	if ut.monthlyQuota > 0 {
		report.UsagePercentage = report.EstimatedMonthlyCalls / float64(ut.monthlyQuota) * 100
	}
	return report
}

func (ut *UsageTracker) logReport(report UsageReport) {
	ut.metrics.SetProjectedMonthlyCalls(report.EstimatedMonthlyCalls)

	ut.logger.Info().
		Int64("total_calls", report.TotalCalls).
		Dur("elapsed", report.Elapsed).
		Float64("calls_per_hour", report.CallsPerHour).
		Float64("estimated_monthly_calls", report.EstimatedMonthlyCalls).
		Int64("monthly_quota", report.MonthlyQuota).
		Float64("usage_percentage", report.UsagePercentage).
		Msg("transport API usage")
}
