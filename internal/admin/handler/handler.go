package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"ateneo/internal/admin"
	"ateneo/internal/domain"
	"ateneo/internal/platform/middleware"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/httputil"
	"ateneo/pkg/requestcontext"
)

// Service defines the admin operations used by the handler.
type Service interface {
	Authenticate(ctx context.Context, key, email string) (admin.AuthResponse, error)
	Stats(ctx context.Context) (admin.StatsResponse, error)
	Payments(ctx context.Context) ([]domain.PaymentSession, error)
	Profiles(ctx context.Context) ([]domain.Profile, error)
	GrantCredits(ctx context.Context, email string, credits int) (domain.Profile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAuth mounts /admin-auth. The caller wraps it in the rate limiter.
func (h *Handler) RegisterAuth(r chi.Router) {
	r.Post("/admin-auth", h.handleAuth)
}

// Register mounts the read models on a router already guarded by RequireAdmin.
func (h *Handler) Register(r chi.Router) {
	r.Get("/stats", h.handleStats)
	r.Get("/payments", h.handlePayments)
	r.Get("/profiles", h.handleProfiles)
	r.Post("/credits", h.handleGrantCredits)
}

type authRequest struct {
	Key   string `json:"key"`
	Email string `json:"email,omitempty"`
}

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req authRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp, err := h.service.Authenticate(ctx, req.Key, req.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "admin authentication failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	ua := useragent.New(requestcontext.UserAgent(ctx))
	browser, _ := ua.Browser()
	attrs := []any{
		"success", resp.Success,
		"elevated", resp.Score != nil,
		"client_ip", requestcontext.ClientIP(ctx),
		"browser", browser,
		"os", ua.OS(),
		"bot", ua.Bot(),
		"request_id", middleware.GetRequestID(ctx),
	}
	if !resp.Success {
		h.logger.WarnContext(ctx, "admin key rejected", attrs...)
		httputil.WriteJSON(w, http.StatusUnauthorized, resp)
		return
	}
	h.logger.InfoContext(ctx, "admin key accepted", attrs...)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to compute stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payments, err := h.service.Payments(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list payments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin.PaymentsResponse{Payments: payments, Total: len(payments)})
}

func (h *Handler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profiles, err := h.service.Profiles(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list profiles", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin.ProfilesResponse{Profiles: profiles, Total: len(profiles)})
}

type grantRequest struct {
	Email   string `json:"email"`
	Credits int    `json:"credits"`
}

func (h *Handler) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req grantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email is required"))
		return
	}

	profile, err := h.service.GrantCredits(ctx, req.Email, req.Credits)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to grant credits", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"admin_email", middleware.GetAdminEmail(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
