package public

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"beacon/internal/domain"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type IncidentReporter interface {
	Report(ctx context.Context, req domain.ReportIncidentRequest) (*domain.Incident, *domain.DispatchWarning, error)
}

type IncidentReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	List(ctx context.Context, filter domain.IncidentFilter, cursor string, limit int) (domain.ListIncidentsResponse, error)
}

type ChatSender interface {
	Send(ctx context.Context, req domain.SendChatMessageRequest) (*domain.ChatMessage, *domain.DispatchWarning, error)
	Recent(ctx context.Context, limit int) ([]domain.ChatMessage, error)
}

type Handler struct {
	logger   *slog.Logger
	Reporter IncidentReporter
	Reader   IncidentReader
	Chat     ChatSender
}

func NewHandler(logger *slog.Logger, reporter IncidentReporter, reader IncidentReader, chat ChatSender) *Handler {
	return &Handler{
		logger:   logger,
		Reporter: reporter,
		Reader:   reader,
		Chat:     chat,
	}
}

func (h *Handler) IncidentReport(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	var req domain.ReportIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.Warn("invalid JSON", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	inc, warn, err := h.Reporter.Report(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if warn != nil {
		l.Warn("incident persisted with dispatch warning", slog.String("id", inc.ID.String()))
		h.writeJSON(w, http.StatusOK, map[string]any{
			"incident": inc,
			"warning":  warn,
		})
		return
	}

	l.Info("incident reported", slog.String("id", inc.ID.String()))
	h.writeJSON(w, http.StatusCreated, inc)
}

func (h *Handler) IncidentList(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	q := r.URL.Query()
	filter := domain.IncidentFilter{
		Status: domain.IncidentStatus(q.Get("status")),
		Type:   domain.IncidentType(q.Get("type")),
	}
	limit := parseInt(q.Get("limit"), 20)

	resp, err := h.Reader.List(r.Context(), filter, q.Get("cursor"), limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Debug("incidents listed", slog.Int("count", len(resp.Incidents)))
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) IncidentGet(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.log(r).Warn("invalid id", slog.String("id", idStr))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	inc, err := h.Reader.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, inc)
}

func (h *Handler) ChatSend(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	var req domain.SendChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.Warn("invalid JSON", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	msg, warn, err := h.Chat.Send(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if warn != nil {
		h.writeJSON(w, http.StatusOK, map[string]any{
			"message": msg,
			"warning": warn,
		})
		return
	}

	h.writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) ChatRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)

	msgs, err := h.Chat.Recent(r.Context(), limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
