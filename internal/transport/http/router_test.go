package httptransport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/suite"

	"ateneo/internal/admin"
	adminhandler "ateneo/internal/admin/handler"
	adminservice "ateneo/internal/admin/service"
	caseshandler "ateneo/internal/cases/handler"
	casesservice "ateneo/internal/cases/service"
	debatehandler "ateneo/internal/debate/handler"
	debateservice "ateneo/internal/debate/service"
	"ateneo/internal/events"
	jwttoken "ateneo/internal/jwt_token"
	"ateneo/internal/payment/gateway"
	paymenthandler "ateneo/internal/payment/handler"
	paymentservice "ateneo/internal/payment/service"
	"ateneo/internal/platform/metrics"
	profilehandler "ateneo/internal/profile/handler"
	profileservice "ateneo/internal/profile/service"
	"ateneo/internal/ratelimit"
	"ateneo/internal/storage/memory"
	"ateneo/pkg/platform/middleware/metadata"
)

const (
	adminKey    = "bypass-key"
	providerKey = "provider-key"
)

type RouterSuite struct {
	suite.Suite
	store   *memory.Store
	gateway *gateway.Local
	router  http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.router, s.store, s.gateway = newTestRouter()
}

func newTestRouter(overrides ...func(*Deps)) (http.Handler, *memory.Store, *gateway.Local) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	rec := events.NewRecorder()
	store := memory.New()
	stores := store.Stores()
	gw := gateway.NewLocal("whsec_router", "http://localhost")

	tokens := jwttoken.NewJWTService("router-signing-key", "ateneo", time.Hour)
	authority := admin.NewAuthority(adminKey)

	profiles := profileservice.New(store, stores.Profiles, logger, profileservice.WithEvents(rec), profileservice.WithMetrics(m))
	cases := casesservice.New(store, stores, logger, casesservice.WithEvents(rec), casesservice.WithMetrics(m))
	debates := debateservice.New(store, logger, debateservice.WithEvents(rec), debateservice.WithMetrics(m))
	payments := paymentservice.New(gw, store, stores, logger, paymentservice.WithEvents(rec), paymentservice.WithMetrics(m))
	admins := adminservice.New(authority, tokens, store, stores, logger, adminservice.WithEvents(rec), adminservice.WithMetrics(m))

	deps := Deps{
		Logger:           logger,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RequestTimeout:   5 * time.Second,
		Profiles:         profilehandler.New(profiles, logger),
		Cases:            caseshandler.New(cases, logger),
		Debates:          debatehandler.New(debates, logger),
		Payments:         paymenthandler.New(payments, logger),
		Admin:            adminhandler.New(admins, logger),
		AdminKeys:        authority,
		ProviderKeys:     admin.AnyOf(authority, admin.NewAuthority(providerKey)),
		AdminTokens:      jwttoken.NewJWTServiceAdapter(tokens),
		AdminAuthLimiter: ratelimit.NewMemoryLimiter(3, time.Minute),
	}
	for _, override := range overrides {
		override(&deps)
	}
	return NewRouter(deps), store, gw
}

type call struct {
	method  string
	path    string
	body    string
	headers map[string]string
}

func (s *RouterSuite) do(c call) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	var body map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rr.Body.Bytes(), &body)
	}
	return rr, body
}

func as(email string) map[string]string {
	return map[string]string{"email": email}
}

func (s *RouterSuite) register(role, email string) {
	rr, _ := s.do(call{method: http.MethodPost, path: "/" + role + "/register", body: fmt.Sprintf(`{"email":%q,"accept_waiver":true}`, email)})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
}

func (s *RouterSuite) submitCase(owner string) string {
	rr, body := s.do(call{
		method: http.MethodPost,
		path:   "/volunteer/cases",
		body:   fmt.Sprintf(`{"email":%q,"history":"Persistent cough\nNight sweats","attachment_reference":"s3://scan.png"}`, owner),
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return body["case_id"].(string)
}

func (s *RouterSuite) credits(email string) int {
	_, body := s.do(call{method: http.MethodGet, path: "/volunteer/profile", headers: as(email)})
	profile := body["profile"].(map[string]any)
	return int(profile["credits"].(float64))
}

func (s *RouterSuite) TestPurchaseDrawDebateFlow() {
	s.register("volunteer", "carla@x.com")
	caseID := s.submitCase("carla@x.com")

	s.register("volunteer", "bob@x.com")
	s.Equal(0, s.credits("bob@x.com"))

	rr, body := s.do(call{method: http.MethodPost, path: "/volunteer/purchase", body: `{"email":"bob@x.com","credits":1,"price":50}`})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	sessionID := body["session_id"].(string)
	s.NotEmpty(body["redirect_url"])

	payload := fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","session_id":%q}`, sessionID)
	webhook := call{
		method:  http.MethodPost,
		path:    "/webhook",
		body:    payload,
		headers: map[string]string{"Stripe-Signature": s.gateway.Sign([]byte(payload))},
	}
	rr, body = s.do(webhook)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(true, body["received"])
	s.Equal(1, s.credits("bob@x.com"))

	rr, _ = s.do(webhook)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(1, s.credits("bob@x.com"), "replayed webhook grants nothing")

	rr, body = s.do(call{method: http.MethodGet, path: "/volunteer/case", headers: as("bob@x.com")})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	drawn := body["case"].(map[string]any)
	s.Equal(caseID, drawn["case_id"])
	s.Equal(0, s.credits("bob@x.com"))

	rr, body = s.do(call{
		method:  http.MethodPost,
		path:    "/volunteer/debate",
		body:    fmt.Sprintf(`{"case_id":%q,"diagnosis":"Tuberculosis","outcome":"victory"}`, caseID),
		headers: as("bob@x.com"),
	})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal(float64(10), body["new_score"])
	s.Contains(body["summary_message"], "+10")

	rr, body = s.do(call{method: http.MethodGet, path: "/volunteer/case", headers: as("bob@x.com")})
	s.Equal(http.StatusForbidden, rr.Code)
	s.Equal("insufficient_credits", body["error"])
}

func (s *RouterSuite) TestUnregisteredDraw() {
	rr, body := s.do(call{method: http.MethodGet, path: "/professional/case", headers: as("nobody@x.com")})
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal("not_found", body["error"])
}

func (s *RouterSuite) TestBadWebhookSignature() {
	rr, body := s.do(call{
		method:  http.MethodPost,
		path:    "/webhook",
		body:    `{"type":"checkout.session.completed","session_id":"cs_x"}`,
		headers: map[string]string{"Stripe-Signature": "00"},
	})
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal("bad_signature", body["error"])
}

func (s *RouterSuite) TestSignedGarbageWebhookIsAcknowledged() {
	payload := "not json"
	rr, body := s.do(call{
		method:  http.MethodPost,
		path:    "/webhook",
		body:    payload,
		headers: map[string]string{"Stripe-Signature": s.gateway.Sign([]byte(payload))},
	})
	s.Equal(http.StatusOK, rr.Code)
	s.Equal(true, body["received"])
}

func (s *RouterSuite) TestAdminBypass() {
	s.register("professional", "ana@x.com")

	s.Run("mismatch does not mutate", func() {
		rr, body := s.do(call{method: http.MethodPost, path: "/admin-auth", body: `{"key":"wrong","email":"ana@x.com"}`})
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Equal(false, body["success"])

		_, body = s.do(call{method: http.MethodGet, path: "/professional/profile", headers: as("ana@x.com")})
		s.Equal(false, body["profile"].(map[string]any)["is_admin"])
	})

	var token string
	s.Run("match elevates and returns a token", func() {
		rr, body := s.do(call{method: http.MethodPost, path: "/admin-auth", body: fmt.Sprintf(`{"key":%q,"email":"ana@x.com"}`, adminKey)})
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal(true, body["success"])
		s.Equal(float64(999), body["score"])
		token = body["token"].(string)
	})

	s.Run("admin draws for free", func() {
		s.register("volunteer", "vol@x.com")
		s.submitCase("vol@x.com")
		before := s.credits("ana@x.com")
		rr, _ := s.do(call{method: http.MethodGet, path: "/professional/case", headers: as("ana@x.com")})
		s.Equal(http.StatusOK, rr.Code)
		s.Equal(before, s.credits("ana@x.com"))
	})

	s.Run("admin routes accept key or token", func() {
		rr, _ := s.do(call{method: http.MethodGet, path: "/admin/stats"})
		s.Equal(http.StatusUnauthorized, rr.Code)

		rr, body := s.do(call{method: http.MethodGet, path: "/admin/stats", headers: map[string]string{"X-Admin-Key": adminKey}})
		s.Equal(http.StatusOK, rr.Code)
		s.Equal(float64(2), body["total_profiles"])

		rr, _ = s.do(call{method: http.MethodGet, path: "/admin/payments", headers: map[string]string{"Authorization": "Bearer " + token}})
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("provider key only reaches the hypothesis write-back", func() {
		caseID := s.submitCase("vol@x.com")
		provider := map[string]string{"X-Admin-Key": providerKey}

		rr, body := s.do(call{method: http.MethodPut, path: "/admin/cases/" + caseID + "/hypothesis", body: `{"hypothesis":"Sarcoidosis"}`, headers: provider})
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		s.Equal("Sarcoidosis", body["case"].(map[string]any)["diagnosis_hypothesis"])

		rr, _ = s.do(call{method: http.MethodGet, path: "/admin/stats", headers: provider})
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}

func (s *RouterSuite) TestAdminAuthRateLimited() {
	for range 3 {
		rr, _ := s.do(call{method: http.MethodPost, path: "/admin-auth", body: `{"key":"guess"}`})
		s.Equal(http.StatusUnauthorized, rr.Code)
	}
	rr, body := s.do(call{method: http.MethodPost, path: "/admin-auth", body: fmt.Sprintf(`{"key":%q}`, adminKey)})
	s.Equal(http.StatusTooManyRequests, rr.Code)
	s.Equal("rate_limited", body["error"])
}

func (s *RouterSuite) TestAdminAuthRateLimitIgnoresForwardedHeadersFromClients() {
	for i := range 5 {
		rr, _ := s.do(call{
			method:  http.MethodPost,
			path:    "/admin-auth",
			body:    `{"key":"guess"}`,
			headers: map[string]string{"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1), "X-Real-IP": fmt.Sprintf("198.51.100.%d", i+1)},
		})
		if i < 3 {
			s.Equal(http.StatusUnauthorized, rr.Code)
			continue
		}
		s.Equal(http.StatusTooManyRequests, rr.Code, "attempt %d", i+1)
	}
}

func (s *RouterSuite) TestAdminAuthRateLimitKeysOnForwardedClientBehindTrustedProxy() {
	// httptest requests arrive from 192.0.2.1
	proxies, err := metadata.ParseTrustedProxies([]string{"192.0.2.1"})
	s.Require().NoError(err)
	s.router, s.store, s.gateway = newTestRouter(func(d *Deps) { d.TrustedProxies = proxies })

	attempt := func(client string) int {
		rr, _ := s.do(call{
			method:  http.MethodPost,
			path:    "/admin-auth",
			body:    `{"key":"guess"}`,
			headers: map[string]string{"X-Forwarded-For": client},
		})
		return rr.Code
	}
	for range 3 {
		s.Equal(http.StatusUnauthorized, attempt("203.0.113.10"))
	}
	s.Equal(http.StatusTooManyRequests, attempt("203.0.113.10"))
	s.Equal(http.StatusUnauthorized, attempt("203.0.113.11"), "other clients keep their own window")
}

func (s *RouterSuite) TestWaiverGate() {
	s.register("volunteer", "vol@x.com")
	s.submitCase("vol@x.com")

	rr, _ := s.do(call{method: http.MethodPost, path: "/professional/register", body: `{"email":"late@x.com"}`})
	s.Require().Equal(http.StatusOK, rr.Code)

	rr, body := s.do(call{method: http.MethodGet, path: "/professional/case", headers: as("late@x.com")})
	s.Equal(http.StatusForbidden, rr.Code)
	s.Equal("waiver_required", body["error"])
	s.Equal(1, s.credits("late@x.com"))

	rr, body = s.do(call{method: http.MethodPost, path: "/volunteer/cases", body: `{"email":"late@x.com","history":"Rash","attachment_reference":"s3://rash.png"}`})
	s.Equal(http.StatusForbidden, rr.Code)
	s.Equal("waiver_required", body["error"])

	rr, _ = s.do(call{method: http.MethodPost, path: "/professional/waiver", headers: as("late@x.com")})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	rr, _ = s.do(call{method: http.MethodGet, path: "/professional/case", headers: as("late@x.com")})
	s.Equal(http.StatusOK, rr.Code)
	s.Equal(0, s.credits("late@x.com"))
}

func (s *RouterSuite) TestHealthAndMetrics() {
	rr, body := s.do(call{method: http.MethodGet, path: "/healthz"})
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("ok", body["status"])

	s.register("volunteer", "m@x.com")
	rr, _ = s.do(call{method: http.MethodGet, path: "/metrics"})
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "ateneo_http_request_duration_seconds")
}
