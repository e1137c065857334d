package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ateneo/internal/domain"
	"ateneo/internal/profile/handler/mocks"
	"ateneo/internal/profile/service"
	dErrors "ateneo/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/profile-mocks.go -package=mocks Service
type ProfileHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestProfileHandlerSuite(t *testing.T) {
	suite.Run(t, new(ProfileHandlerSuite))
}

func (s *ProfileHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *ProfileHandlerSuite) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *ProfileHandlerSuite) TestRegister() {
	s.Run("registers with the role from the path", func() {
		s.service.EXPECT().Register(gomock.Any(), domain.RoleProfessional, service.RegisterRequest{
			Email: "ana@x.com", Name: "Ana", Specialty: "neurology",
		}).Return(domain.Profile{Email: "ana@x.com", Role: domain.RoleProfessional, Credits: 1}, true, nil)

		rr := s.do(http.MethodPost, "/professional/register", `{"email":"ana@x.com","name":"Ana","specialty":"neurology"}`, nil)
		s.Equal(http.StatusOK, rr.Code)

		var resp profileResponse
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
		s.True(resp.Created)
		s.Equal(1, resp.Profile.Credits)
	})

	s.Run("waiver can be accepted at registration", func() {
		s.service.EXPECT().Register(gomock.Any(), domain.RoleVolunteer, service.RegisterRequest{
			Email: "bob@x.com", AcceptWaiver: true,
		}).Return(domain.Profile{Email: "bob@x.com", Role: domain.RoleVolunteer}, true, nil)

		rr := s.do(http.MethodPost, "/volunteer/register", `{"email":"bob@x.com","accept_waiver":true}`, nil)
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("unknown role is not found", func() {
		rr := s.do(http.MethodPost, "/admin/register", `{"email":"a@x.com"}`, nil)
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("malformed body is a bad request", func() {
		rr := s.do(http.MethodPost, "/volunteer/register", `{"email":`, nil)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("validation errors surface as 400", func() {
		s.service.EXPECT().Register(gomock.Any(), domain.RoleVolunteer, gomock.Any()).
			Return(domain.Profile{}, false, dErrors.New(dErrors.CodeValidation, "email is invalid"))
		rr := s.do(http.MethodPost, "/volunteer/register", `{"email":"nope"}`, nil)
		s.Equal(http.StatusBadRequest, rr.Code)
		s.Contains(rr.Body.String(), "validation_error")
	})
}

func (s *ProfileHandlerSuite) TestGetProfile() {
	s.Run("reads the caller from the email header", func() {
		s.service.EXPECT().Get(gomock.Any(), "bob@x.com").Return(domain.Profile{Email: "bob@x.com", Credits: 2}, nil)
		rr := s.do(http.MethodGet, "/volunteer/profile", "", map[string]string{"email": "Bob@x.com"})
		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), `"credits":2`)
	})

	s.Run("missing header is a bad request", func() {
		rr := s.do(http.MethodGet, "/volunteer/profile", "", nil)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("unknown profile is 404", func() {
		s.service.EXPECT().Get(gomock.Any(), "ghost@x.com").Return(domain.Profile{}, dErrors.New(dErrors.CodeNotFound, "profile not found"))
		rr := s.do(http.MethodGet, "/volunteer/profile", "", map[string]string{"email": "ghost@x.com"})
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *ProfileHandlerSuite) TestWaiver() {
	signedAt := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)

	s.Run("signs for the caller", func() {
		s.service.EXPECT().SignWaiver(gomock.Any(), "bob@x.com").
			Return(domain.Profile{Email: "bob@x.com", WaiverSignedAt: &signedAt}, nil)
		rr := s.do(http.MethodPost, "/volunteer/waiver", "", map[string]string{"email": "bob@x.com"})
		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), `"waiver_signed_at":"2026-06-03T09:00:00Z"`)
	})

	s.Run("signing requires a registered profile", func() {
		s.service.EXPECT().SignWaiver(gomock.Any(), "ghost@x.com").
			Return(domain.Profile{}, dErrors.New(dErrors.CodeNotFound, "profile not found"))
		rr := s.do(http.MethodPost, "/volunteer/waiver", "", map[string]string{"email": "ghost@x.com"})
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("status reports an unsigned waiver", func() {
		s.service.EXPECT().Get(gomock.Any(), "doc@x.com").Return(domain.Profile{Email: "doc@x.com"}, nil)
		rr := s.do(http.MethodGet, "/professional/waiver-status", "", map[string]string{"email": "doc@x.com"})
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"waiver_signed":false}`, rr.Body.String())
	})

	s.Run("status reports a signed waiver", func() {
		s.service.EXPECT().Get(gomock.Any(), "bob@x.com").Return(domain.Profile{Email: "bob@x.com", WaiverSignedAt: &signedAt}, nil)
		rr := s.do(http.MethodGet, "/volunteer/waiver-status", "", map[string]string{"email": "bob@x.com"})
		s.JSONEq(`{"waiver_signed":true,"waiver_signed_at":"2026-06-03T09:00:00Z"}`, rr.Body.String())
	})
}
