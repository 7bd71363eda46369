package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/services"
	"github.com/rs/zerolog/log"
)

type Router struct {
	leadsService      *services.LeadsService
	queuesService     *services.QueuesService
	monitoringService *services.MonitoringService
	metricsHandler    http.Handler // nil when metrics are disabled
	apiKey            string
}

func NewRouter(leadsService *services.LeadsService, queuesService *services.QueuesService, monitoringService *services.MonitoringService, metricsHandler http.Handler, apiKey string) *Router {
	return &Router{
		leadsService:      leadsService,
		queuesService:     queuesService,
		monitoringService: monitoringService,
		metricsHandler:    metricsHandler,
		apiKey:            apiKey,
	}
}

func (ar *Router) NewRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthcheck", ar.healthcheck)
	if ar.metricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", ar.metricsHandler)
	}

	router.Group(func(r chi.Router) {
		r.Use(apiKeyAuth(ar.apiKey))

		r.Post("/api/v1/leads", ar.publishLead)
		r.Get("/api/v1/queues/stats", ar.getQueuesStats)
		r.Post("/dev/sendEvent", ar.sendTestEvent)
	})

	return router
}

func (ar *Router) publishLead(w http.ResponseWriter, req *http.Request) {
	var newLead common.NewLeadRequest
	err := json.NewDecoder(req.Body).Decode(&newLead)
	if err != nil {
		log.Error().Err(err).Msg("failed to decode request body")
		ar.sendErrorResponse(w, http.StatusBadRequest, common.ErrCodeBadRequestInvalidBody)
		return
	}

	lead, err := ar.leadsService.PublishLead(req.Context(), newLead)
	if err != nil {
		ar.sendResponseFromError(w, err)
		return
	}
	ar.sendJsonResponse(w, http.StatusAccepted, common.PublishedLeadResponse{ID: lead.ID})
}

func (ar *Router) sendTestEvent(w http.ResponseWriter, req *http.Request) {
	var testEvent common.TestEventRequest
	err := json.NewDecoder(req.Body).Decode(&testEvent)
	// an empty body is a valid request for the default failing event
	if err != nil && !errors.Is(err, io.EOF) {
		log.Error().Err(err).Msg("failed to decode request body")
		ar.sendErrorResponse(w, http.StatusBadRequest, common.ErrCodeBadRequestInvalidBody)
		return
	}

	shouldFail := true
	if testEvent.ShouldFail != nil {
		shouldFail = *testEvent.ShouldFail
	}

	message, err := ar.leadsService.SendTestEvent(req.Context(), shouldFail)
	if err != nil {
		ar.sendResponseFromError(w, err)
		return
	}
	ar.sendJsonResponse(w, http.StatusOK, common.TestEventResponse{Message: message})
}

func (ar *Router) getQueuesStats(w http.ResponseWriter, req *http.Request) {
	stats, err := ar.queuesService.GetQueuesStats(req.Context())
	if err != nil {
		ar.sendResponseFromError(w, err)
		return
	}
	ar.sendJsonResponse(w, http.StatusOK, stats)
}

func (ar *Router) healthcheck(w http.ResponseWriter, req *http.Request) {
	if !ar.monitoringService.IsHealthy() {
		ar.sendErrorResponse(w, http.StatusServiceUnavailable, common.ErrCodeUnavailable)
		return
	}
	ar.sendNoContentEmptyResponse(w)
}

func (ar *Router) sendNoContentEmptyResponse(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func (ar *Router) sendJsonResponse(w http.ResponseWriter, httpCode int, payload interface{}) {
	respBody, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("error marshaling response body")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	w.Write(respBody)
}

func (ar *Router) sendErrorResponse(w http.ResponseWriter, httpCode int, errCode string) {
	ar.sendJsonResponse(w, httpCode, common.ErrorResponse{Code: errCode})
}

func (ar *Router) sendResponseFromError(w http.ResponseWriter, err error) {
	var le *common.LeadflowError
	if !errors.As(err, &le) {
		ar.sendErrorResponse(w, http.StatusInternalServerError, common.ErrCodeInternal)
		return
	}

	switch le.Code {
	case common.ErrCodeBadRequestInvalidBody, common.ErrCodeBadRequestValidation:
		ar.sendErrorResponse(w, http.StatusBadRequest, le.Code)
	default:
		ar.sendErrorResponse(w, http.StatusInternalServerError, le.Code)
	}
}
