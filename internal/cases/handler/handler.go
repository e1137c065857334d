package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ateneo/internal/cases/service"
	"ateneo/internal/domain"
	"ateneo/internal/platform/middleware"
	"ateneo/internal/transport/http/shared"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/httputil"
)

// Service defines the case pool operations used by the handler.
type Service interface {
	Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)
	Draw(ctx context.Context, reviewer string) (domain.Case, error)
	ListOwned(ctx context.Context, owner string) ([]domain.Case, error)
	AttachHypothesis(ctx context.Context, caseID, hypothesis string) (domain.Case, error)
}

type Handler struct {
	cases  Service
	logger *slog.Logger
}

func New(cases Service, logger *slog.Logger) *Handler {
	return &Handler{cases: cases, logger: logger}
}

// Register mounts the participant case routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/{role}/cases", h.handleSubmit)
	r.Get("/{role}/cases", h.handleListOwned)
	r.Get("/{role}/case", h.handleDraw)
}

// RegisterAdmin mounts the Diagnosis Provider write-back on an admin router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/cases/{id}/hypothesis", h.handleAttachHypothesis)
}

type submitRequest struct {
	Email               string `json:"email"`
	Summary             string `json:"summary,omitempty"`
	History             string `json:"history"`
	AttachmentReference string `json:"attachment_reference"`
}

type caseResponse struct {
	Case domain.Case `json:"case"`
}

type casesResponse struct {
	Cases []domain.Case `json:"cases"`
}

type hypothesisRequest struct {
	Hypothesis string `json:"hypothesis"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := shared.RoleParam(r); err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req submitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid submit case request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	owner := req.Email
	if owner == "" {
		owner = httputil.EmailHeader(r)
	}

	res, err := h.cases.Submit(ctx, service.SubmitRequest{
		OwnerEmail:          owner,
		Summary:             req.Summary,
		History:             req.History,
		AttachmentReference: req.AttachmentReference,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to submit case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleListOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := shared.RoleParam(r); err != nil {
		httputil.WriteError(w, err)
		return
	}
	owner, err := shared.CallerEmail(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cases, err := h.cases.ListOwned(ctx, owner)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list cases", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, casesResponse{Cases: cases})
}

func (h *Handler) handleDraw(w http.ResponseWriter, r *http.Request) {
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
	c, err := h.cases.Draw(ctx, reviewer)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to draw case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, caseResponse{Case: c})
}

func (h *Handler) handleAttachHypothesis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req hypothesisRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.cases.AttachHypothesis(ctx, chi.URLParam(r, "id"), req.Hypothesis)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to attach hypothesis", err)
		return
	}
	h.logger.InfoContext(ctx, "hypothesis attached",
		"case_id", c.ID,
		"admin_email", middleware.GetAdminEmail(ctx),
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, caseResponse{Case: c})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
