package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/analytics"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/comms"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/metrics"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/orchestrator"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/tool"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry *agent.Registry
	tasks    *task.Executor
	collabs  *orchestrator.Orchestrator
	comms    *comms.Service
	reports  *analytics.Service
	tools    *tool.Registry
	metrics  *metrics.Collector
	db       Pinger
	logger   *zap.Logger
}

// NewHandler creates a new API handler. metrics and db may be nil.
func NewHandler(
	registry *agent.Registry,
	tasks *task.Executor,
	collabs *orchestrator.Orchestrator,
	commsSvc *comms.Service,
	reports *analytics.Service,
	tools *tool.Registry,
	collector *metrics.Collector,
	db Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		registry: registry,
		tasks:    tasks,
		collabs:  collabs,
		comms:    commsSvc,
		reports:  reports,
		tools:    tools,
		metrics:  collector,
		db:       db,
		logger:   logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/tools", h.listTools)

		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.createAgent)
		r.Get("/agents/{id}", h.getAgent)
		r.Patch("/agents/{id}", h.updateAgent)
		r.Post("/agents/{id}/activate", h.activateAgent)
		r.Post("/agents/{id}/deactivate", h.deactivateAgent)
		r.Get("/agents/{id}/tasks", h.listAgentTasks)
		r.Post("/agents/{id}/tasks", h.assignTask)
		r.Get("/agents/{id}/analytics", h.agentReport)

		r.Get("/tasks", h.listTasks)
		r.Get("/tasks/{id}", h.getTask)
		r.Get("/tasks/{id}/wait", h.waitTask)
		r.Post("/tasks/{id}/cancel", h.cancelTask)

		r.Get("/collaborations", h.listCollaborations)
		r.Post("/collaborations", h.createCollaboration)
		r.Get("/collaborations/{id}", h.getCollaboration)
		r.Get("/collaborations/{id}/wait", h.waitCollaboration)

		r.Get("/channels", h.listChannels)
		r.Post("/channels", h.enableChannel)
		r.Get("/messages", h.messageHistory)
		r.Post("/messages", h.sendMessage)

		r.Get("/analytics", h.systemReport)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok", "service": "auraos"}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tools.Definitions())
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, agent.ErrAgentNotFound),
		errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, orchestrator.ErrCollaborationNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrInvalidAgent),
		errors.Is(err, orchestrator.ErrInvalidCollaboration),
		errors.Is(err, comms.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

// waitTimeout reads the ?timeout= query parameter, capped at one minute.
func waitTimeout(r *http.Request) time.Duration {
	d, err := time.ParseDuration(r.URL.Query().Get("timeout"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return min(d, time.Minute)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
