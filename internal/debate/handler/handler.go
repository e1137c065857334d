package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ateneo/internal/debate/service"
	"ateneo/internal/domain"
	"ateneo/internal/platform/middleware"
	"ateneo/internal/transport/http/shared"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/httputil"
)

// Service defines the debate scoring operation used by the handler.
type Service interface {
	SubmitDebate(ctx context.Context, req service.SubmitRequest) (service.Result, error)
}

type Handler struct {
	debates Service
	logger  *slog.Logger
}

func New(debates Service, logger *slog.Logger) *Handler {
	return &Handler{debates: debates, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/{role}/debate", h.handleSubmit)
}

type submitRequest struct {
	CaseID    string `json:"case_id"`
	Diagnosis string `json:"diagnosis"`
	Outcome   string `json:"outcome"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := shared.RoleParam(r); err != nil {
		httputil.WriteError(w, err)
		return
	}
	reviewer, err := shared.CallerEmail(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req submitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid debate request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.debates.SubmitDebate(ctx, service.SubmitRequest{
		ReviewerEmail: reviewer,
		CaseID:        req.CaseID,
		Diagnosis:     req.Diagnosis,
		Outcome:       domain.Outcome(req.Outcome),
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.HasCode(err, dErrors.CodeUnavailable) {
			h.logger.ErrorContext(ctx, "failed to submit debate",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
