package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ateneo/internal/domain"
	"ateneo/internal/payment/service"
	"ateneo/internal/platform/middleware"
	"ateneo/internal/transport/http/shared"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/httputil"
)

// maxWebhookBytes bounds provider callbacks; Stripe events stay well below it.
const maxWebhookBytes = 64 << 10

const signatureHeader = "Stripe-Signature"

// Service defines the payment operations used by the handler.
type Service interface {
	CreateSession(ctx context.Context, role domain.Role, req service.PurchaseRequest) (service.SessionResult, error)
	OnWebhook(ctx context.Context, payload []byte, signature string) error
}

type Handler struct {
	payments Service
	logger   *slog.Logger
}

func New(payments Service, logger *slog.Logger) *Handler {
	return &Handler{payments: payments, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/{role}/purchase", h.handlePurchase)
}

// RegisterWebhook mounts the provider callback. It must sit outside any
// middleware that consumes or rewrites the body.
func (h *Handler) RegisterWebhook(r chi.Router) {
	r.Post("/webhook", h.handleWebhook)
}

type purchaseRequest struct {
	Email   string `json:"email"`
	Credits int    `json:"credits"`
	Price   int    `json:"price"`
	Plan    string `json:"plan,omitempty"`
}

type webhookResponse struct {
	Received bool `json:"received"`
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role, err := shared.RoleParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req purchaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email == "" {
		req.Email = httputil.EmailHeader(r)
	}

	res, err := h.payments.CreateSession(ctx, role, service.PurchaseRequest{
		Email:   req.Email,
		Credits: req.Credits,
		Price:   req.Price,
		Plan:    domain.Plan(req.Plan),
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeGateway) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
			h.logger.ErrorContext(ctx, "failed to create payment session",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable webhook body"))
		return
	}
	if err := h.payments.OnWebhook(ctx, payload, r.Header.Get(signatureHeader)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, webhookResponse{Received: true})
}
