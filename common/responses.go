package common

type PublishedLeadResponse struct {
	ID string `json:"id"`
}

type TestEventResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Code string `json:"code,omitempty"`
}

type QueuesStatsResponse struct {
	Queues []QueueStats `json:"queues"`
	Usage  UsageStats   `json:"usage"`
}

type QueueStats struct {
	Type          string `json:"type"`
	URL           string `json:"url"`
	TotalMessages int64  `json:"totalMessages"`
}

type UsageStats struct {
	TotalCalls            int64   `json:"totalCalls"`
	ElapsedSeconds        float64 `json:"elapsedSeconds"`
	CallsPerHour          float64 `json:"callsPerHour"`
	EstimatedMonthlyCalls float64 `json:"estimatedMonthlyCalls"`
	MonthlyQuota          int64   `json:"monthlyQuota"`
	UsagePercentage       float64 `json:"usagePercentage"`
}
