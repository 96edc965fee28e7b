package api

import (
	"context"
	"net/http"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	if arch := r.URL.Query().Get("archetype"); arch != "" {
		writeJSON(w, http.StatusOK, h.registry.ListByArchetype(agent.Archetype(arch)))
		return
	}
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var spec agent.Spec
	if !decode(w, r, &spec) {
		return
	}
	a, err := h.registry.Create(spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) updateAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p agent.Patch
	if !decode(w, r, &p) {
		return
	}
	if !h.registry.Update(id, p) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	h.getAgent(w, r)
}

func (h *Handler) activateAgent(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.registry.Activate)
}

func (h *Handler) deactivateAgent(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.registry.Deactivate)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, fn func(id string) bool) {
	if !fn(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	h.getAgent(w, r)
}

func (h *Handler) listAgentTasks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.registry.Get(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.tasks.ListByAgent(id))
}

func (h *Handler) assignTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var spec task.Spec
	if !decode(w, r, &spec) {
		return
	}
	if spec.SessionID == "" {
		spec.SessionID = r.Header.Get("X-Session-ID")
	}
	t, err := h.tasks.AssignTask(context.WithoutCancel(r.Context()), id, spec)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Debug("task accepted", zap.String("task", t.ID), zap.String("agent", id))
	writeJSON(w, http.StatusAccepted, t)
}

func (h *Handler) agentReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Agent(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) systemReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reports.System())
}
