package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/n0rdy/leadflow/clock"
	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/services"
	"github.com/n0rdy/leadflow/telemetry"
	"github.com/n0rdy/leadflow/transport/transporttest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey   = "secret"
	testQueueURL = "lead-new"
)

type stubHeartbeat struct {
	lastPollAt time.Time
}

func (sh stubHeartbeat) LastPollAt() time.Time {
	return sh.lastPollAt
}

type routerFixture struct {
	handler http.Handler
	mem     *transporttest.MemoryTransport
	clock   *clock.ManualClock
}

func newRouterFixture(t *testing.T, apiKey string, metricsHandler http.Handler) *routerFixture {
	t.Helper()

	mem := transporttest.NewMemoryTransport()
	clk := clock.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	metricsService := metrics.NewMetricsService(false, nil)
	tracker := telemetry.NewUsageTracker(100, 1_000_000, clk, metricsService, zerolog.Nop())
	instrumented := telemetry.InstrumentTransport(mem, tracker, nil)

	leadsService := services.NewLeadsService(instrumented, testQueueURL, metricsService)
	queuesService := services.NewQueuesService(instrumented, tracker, testQueueURL, "")
	monitoringService := services.NewMonitoringService(stubHeartbeat{}, time.Minute, clk)

	return &routerFixture{
		handler: NewRouter(leadsService, queuesService, monitoringService, metricsHandler, apiKey).NewRouter(),
		mem:     mem,
		clock:   clk,
	}
}

func (rf *routerFixture) do(method string, path string, body string, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	rf.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RejectsMissingOrWrongAPIKey(t *testing.T) {
	rf := newRouterFixture(t, testAPIKey, nil)

	for _, key := range []string{"", "wrong"} {
		rec := rf.do(http.MethodPost, "/dev/sendEvent", "", key)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"code":"unauthorized"}`, rec.Body.String())
	}
	assert.Empty(t, rf.mem.SentTo(testQueueURL))
}

func TestRouter_EmptyAPIKeyDisablesAuth(t *testing.T) {
	rf := newRouterFixture(t, "", nil)

	rec := rf.do(http.MethodPost, "/dev/sendEvent", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SendTestEvent(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantMessage    string
		wantShouldFail string
	}{
		{name: "empty body fails by default", body: "", wantMessage: "Test event sent to main queue (will fail and retry)", wantShouldFail: "true"},
		{name: "empty object fails by default", body: "{}", wantMessage: "Test event sent to main queue (will fail and retry)", wantShouldFail: "true"},
		{name: "explicit success", body: `{"shouldFail":false}`, wantMessage: "Test event sent successfully", wantShouldFail: "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf := newRouterFixture(t, testAPIKey, nil)

			rec := rf.do(http.MethodPost, "/dev/sendEvent", tt.body, testAPIKey)

			require.Equal(t, http.StatusOK, rec.Code)
			var resp common.TestEventResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMessage, resp.Message)

			sent := rf.mem.SentTo(testQueueURL)
			require.Len(t, sent, 1)
			assert.Equal(t, tt.wantShouldFail, sent[0].Attributes[common.ShouldFailAttribute].StringValue)
		})
	}
}

func TestRouter_SendTestEventMalformedBody(t *testing.T) {
	rf := newRouterFixture(t, testAPIKey, nil)

	rec := rf.do(http.MethodPost, "/dev/sendEvent", `{"shouldFail":`, testAPIKey)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":"bad_request.body.invalid"}`, rec.Body.String())
}

func TestRouter_PublishLead(t *testing.T) {
	rf := newRouterFixture(t, testAPIKey, nil)
	body := `{"workspace_id":"ws-1","user_id":"user-1","name":"Ada","email":"ada@example.com","phone":"+4712345678"}`

	rec := rf.do(http.MethodPost, "/api/v1/leads", body, testAPIKey)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp common.PublishedLeadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Len(t, rf.mem.SentTo(testQueueURL), 1)
}

func TestRouter_PublishLeadInvalid(t *testing.T) {
	rf := newRouterFixture(t, testAPIKey, nil)

	rec := rf.do(http.MethodPost, "/api/v1/leads", `{"workspace_id":"ws-1"}`, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":"bad_request.body.validation"}`, rec.Body.String())

	rec = rf.do(http.MethodPost, "/api/v1/leads", `nope`, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":"bad_request.body.invalid"}`, rec.Body.String())

	assert.Empty(t, rf.mem.SentTo(testQueueURL))
}

func TestRouter_Healthcheck(t *testing.T) {
	rf := newRouterFixture(t, testAPIKey, nil)

	rec := rf.do(http.MethodGet, "/healthcheck", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rf.clock.Advance(2 * time.Minute)
	rec = rf.do(http.MethodGet, "/healthcheck", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"code":"unavailable"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	disabled := newRouterFixture(t, testAPIKey, nil)
	rec := disabled.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("leadflow_messages_received_total 0\n"))
	})
	enabled := newRouterFixture(t, testAPIKey, metricsHandler)
	rec = enabled.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leadflow_messages_received_total")
}

func TestRouter_QueuesStats(t *testing.T) {
	rf := newRouterFixture(t, testAPIKey, nil)
	rf.do(http.MethodPost, "/dev/sendEvent", "", testAPIKey)

	rec := rf.do(http.MethodGet, "/api/v1/queues/stats", "", testAPIKey)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp common.QueuesStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Queues, 1)
	assert.Equal(t, int64(1), resp.Queues[0].TotalMessages)
	// the send and the depth read
	assert.Equal(t, int64(2), resp.Usage.TotalCalls)

	rec = rf.do(http.MethodGet, "/api/v1/queues/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
