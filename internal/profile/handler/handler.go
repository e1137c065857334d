package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ateneo/internal/domain"
	"ateneo/internal/platform/middleware"
	"ateneo/internal/profile/service"
	"ateneo/internal/transport/http/shared"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/httputil"
)

// Service defines the profile operations used by the handler.
type Service interface {
	Register(ctx context.Context, role domain.Role, req service.RegisterRequest) (domain.Profile, bool, error)
	Get(ctx context.Context, email string) (domain.Profile, error)
	SignWaiver(ctx context.Context, email string) (domain.Profile, error)
}

type Handler struct {
	profiles Service
	logger   *slog.Logger
}

func New(profiles Service, logger *slog.Logger) *Handler {
	return &Handler{profiles: profiles, logger: logger}
}

// Register mounts the participant profile routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/{role}/register", h.handleRegister)
	r.Get("/{role}/profile", h.handleGetProfile)
	r.Post("/{role}/waiver", h.handleSignWaiver)
	r.Get("/{role}/waiver-status", h.handleWaiverStatus)
}

// registerRequest may accept the liability waiver in the same call.
type registerRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Specialty    string `json:"specialty,omitempty"`
	AcceptWaiver bool   `json:"accept_waiver,omitempty"`
}

type profileResponse struct {
	Profile domain.Profile `json:"profile"`
	Created bool           `json:"created"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	role, err := shared.RoleParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	profile, created, err := h.profiles.Register(ctx, role, service.RegisterRequest{
		Email:        req.Email,
		Name:         req.Name,
		Specialty:    req.Specialty,
		AcceptWaiver: req.AcceptWaiver,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to register profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profileResponse{Profile: profile, Created: created})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := shared.RoleParam(r); err != nil {
		httputil.WriteError(w, err)
		return
	}
	addr, err := shared.CallerEmail(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.profiles.Get(ctx, addr)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

type waiverStatusResponse struct {
	WaiverSigned   bool       `json:"waiver_signed"`
	WaiverSignedAt *time.Time `json:"waiver_signed_at,omitempty"`
}

func (h *Handler) handleSignWaiver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := shared.RoleParam(r); err != nil {
		httputil.WriteError(w, err)
		return
	}
	addr, err := shared.CallerEmail(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.profiles.SignWaiver(ctx, addr)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to sign waiver", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

func (h *Handler) handleWaiverStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := shared.RoleParam(r); err != nil {
		httputil.WriteError(w, err)
		return
	}
	addr, err := shared.CallerEmail(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.profiles.Get(ctx, addr)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load waiver status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, waiverStatusResponse{
		WaiverSigned:   profile.WaiverSignedAt != nil,
		WaiverSignedAt: profile.WaiverSignedAt,
	})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
