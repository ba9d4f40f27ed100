package public

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

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
		h.writeJSON(w, http.StatusNotFound, errorBody("not_found", "not found"))
	case errors.Is(err, e.ErrInvalidInput):
		h.writeJSON(w, http.StatusBadRequest, validationBody(err))
	case errors.Is(err, e.ErrUnavailable), errors.Is(err, e.ErrDeadline):
		h.writeJSON(w, http.StatusServiceUnavailable, errorBody("storage_unavailable", "storage unavailable, retry later"))
	case errors.Is(err, e.ErrConflict), errors.Is(err, e.ErrInvalidTransition):
		h.writeJSON(w, http.StatusConflict, errorBody("conflict", "conflict"))
	default:
		h.writeJSON(w, http.StatusInternalServerError, errorBody("internal", "internal error"))
	}
}

func errorBody(kind, message string) map[string]string {
	return map[string]string{"kind": kind, "error": message}
}

// validationBody keeps the field-level detail of a validation failure in the
// response so clients can point at the offending field.
func validationBody(err error) map[string]string {
	body := errorBody("validation", "invalid input")
	if detail := strings.TrimPrefix(err.Error(), e.ErrInvalidInput.Error()+": "); detail != err.Error() {
		body["detail"] = detail
	}
	return body
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode failed", slog.Any("error", err))
	}
}
