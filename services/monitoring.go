package services

import (
	"time"

	"github.com/n0rdy/leadflow/clock"
)

// Heartbeat is implemented by the poller.
type Heartbeat interface {
	LastPollAt() time.Time
}

type MonitoringService struct {
	heartbeat  Heartbeat
	staleAfter time.Duration
	startedAt  time.Time
	clock      clock.Clock
}

func NewMonitoringService(heartbeat Heartbeat, staleAfter time.Duration, clk clock.Clock) *MonitoringService {
	return &MonitoringService{
		heartbeat:  heartbeat,
		staleAfter: staleAfter,
		startedAt:  clk.Now(),
		clock:      clk,
	}
}

// IsHealthy reports whether the worker received from the queue recently.
// Before the first successful receive the start time counts as the last one, so a fresh process gets a grace period.
func (ms *MonitoringService) IsHealthy() bool {
	last := ms.heartbeat.LastPollAt()
	if last.IsZero() {
		last = ms.startedAt
	}
	return ms.clock.Now().Sub(last) <= ms.staleAfter
}
