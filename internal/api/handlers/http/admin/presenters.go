package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"beacon/pkg/e"
)

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	l := h.log(r)

	l.Error("handler error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)

	switch {
	case errors.Is(err, e.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"kind": "not_found", "error": "not found"})
	case errors.Is(err, e.ErrInvalidTransition):
		h.writeJSON(w, http.StatusConflict, map[string]string{"kind": "invalid_transition", "error": "invalid status transition"})
	case errors.Is(err, e.ErrInvalidInput):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"kind": "validation", "error": "invalid input"})
	case errors.Is(err, e.ErrUnavailable), errors.Is(err, e.ErrDeadline):
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"kind": "storage_unavailable", "error": "storage unavailable"})
	default:
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"kind": "internal", "error": "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode failed", slog.Any("error", err))
	}
}
