package api

import (
	"context"
	"net/http"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/orchestrator"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.List())
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.tasks.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) waitTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), waitTimeout(r))
	defer cancel()
	t, err := h.tasks.Wait(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) cancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.tasks.Get(id); err != nil {
		writeError(w, err)
		return
	}
	if !h.tasks.Cancel(id) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task already finished"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancel requested"})
}

func (h *Handler) listCollaborations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collabs.List())
}

func (h *Handler) createCollaboration(w http.ResponseWriter, r *http.Request) {
	var spec orchestrator.Spec
	if !decode(w, r, &spec) {
		return
	}
	c, err := h.collabs.CreateCollaboration(context.WithoutCancel(r.Context()), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

func (h *Handler) getCollaboration(w http.ResponseWriter, r *http.Request) {
	c, err := h.collabs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) waitCollaboration(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), waitTimeout(r))
	defer cancel()
	c, err := h.collabs.Wait(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type channelRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type messageRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Payload any    `json:"payload"`
}

func (h *Handler) listChannels(w http.ResponseWriter, r *http.Request) {
	chans, err := h.comms.Channels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chans)
}

func (h *Handler) enableChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.comms.EnableCommunication(r.Context(), req.From, req.To); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := h.comms.SendMessage(r.Context(), req.From, req.To, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) messageHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hist, err := h.comms.GetHistory(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}
