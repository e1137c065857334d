// Package httptransport composes the marketplace routes and the platform
// middleware chain into one HTTP handler.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	adminhandler "ateneo/internal/admin/handler"
	caseshandler "ateneo/internal/cases/handler"
	debatehandler "ateneo/internal/debate/handler"
	paymenthandler "ateneo/internal/payment/handler"
	"ateneo/internal/platform/metrics"
	"ateneo/internal/platform/middleware"
	profilehandler "ateneo/internal/profile/handler"
	"ateneo/internal/ratelimit"
	"ateneo/pkg/platform/httputil"
	"ateneo/pkg/platform/middleware/metadata"
	"ateneo/pkg/platform/middleware/requesttime"
)

// Deps are the handlers and guards the router mounts. Nil handlers are skipped.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	RequestTimeout time.Duration
	Health         func(ctx context.Context) error

	Profiles *profilehandler.Handler
	Cases    *caseshandler.Handler
	Debates  *debatehandler.Handler
	Payments *paymenthandler.Handler
	Admin    *adminhandler.Handler

	// AdminKeys guards the operator routes; ProviderKeys additionally admits
	// the Diagnosis Provider on the hypothesis write-back.
	AdminKeys        middleware.AdminKeyVerifier
	ProviderKeys     middleware.AdminKeyVerifier
	AdminTokens      middleware.AdminTokenValidator
	AdminAuthLimiter ratelimit.Limiter
	TrustedProxies   metadata.TrustedProxies
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata(d.TrustedProxies))
	r.Use(requesttime.Middleware)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.LatencyMiddleware(d.Metrics))
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if d.Health != nil {
			if err := d.Health(req.Context()); err != nil {
				d.Logger.WarnContext(req.Context(), "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	if d.Payments != nil {
		d.Payments.RegisterWebhook(r)
	}

	if d.Admin != nil {
		r.Group(func(r chi.Router) {
			if d.AdminAuthLimiter != nil {
				r.Use(ratelimit.Middleware(d.AdminAuthLimiter, ratelimit.ByClientIP("admin-auth:"), d.Logger))
			}
			d.Admin.RegisterAuth(r)
		})
	}

	r.Route("/admin", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(d.AdminKeys, d.AdminTokens, d.Logger))
			if d.Admin != nil {
				d.Admin.Register(r)
			}
		})
		r.Group(func(r chi.Router) {
			keys := d.ProviderKeys
			if keys == nil {
				keys = d.AdminKeys
			}
			r.Use(middleware.RequireAdmin(keys, d.AdminTokens, d.Logger))
			if d.Cases != nil {
				d.Cases.RegisterAdmin(r)
			}
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		if d.Profiles != nil {
			d.Profiles.Register(r)
		}
		if d.Cases != nil {
			d.Cases.Register(r)
		}
		if d.Debates != nil {
			d.Debates.Register(r)
		}
		if d.Payments != nil {
			d.Payments.Register(r)
		}
	})
	return r
}
