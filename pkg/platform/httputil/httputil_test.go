package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "ateneo/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["detail"]; ok {
			t.Fatalf("expected detail to be omitted for internal errors")
		}
	})

	t.Run("insufficient credits maps to 403 with detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInsufficientCredits, "insufficient credits"))

		if w.Code != http.StatusForbidden {
			t.Fatalf("expected status %d, got %d", http.StatusForbidden, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "insufficient_credits" {
			t.Fatalf("expected error code insufficient_credits, got %q", body["error"])
		}
		if body["detail"] != "insufficient credits" {
			t.Fatalf("expected detail to be returned, got %q", body["detail"])
		}
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeNotFound:         http.StatusNotFound,
		dErrors.CodeNoCasesAvailable: http.StatusConflict,
		dErrors.CodeBadSignature:     http.StatusBadRequest,
		dErrors.CodeInvalidAmount:    http.StatusBadRequest,
		dErrors.CodeGateway:          http.StatusBadGateway,
		dErrors.CodeUnavailable:      http.StatusServiceUnavailable,
		dErrors.CodeRateLimited:      http.StatusTooManyRequests,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	t.Run("empty body is a bad request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var p payload
		err := DecodeJSON(r, &p)
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com","extra":1}`))
		var p payload
		if err := DecodeJSON(r, &p); err == nil {
			t.Fatalf("expected error for unknown field")
		}
	})

	t.Run("valid body decodes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com"}`))
		var p payload
		if err := DecodeJSON(r, &p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Email != "a@x.com" {
			t.Fatalf("expected email to decode, got %q", p.Email)
		}
	})
}

func TestEmailHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("email", "  Bob@X.com ")
	if got := EmailHeader(r); got != "bob@x.com" {
		t.Fatalf("expected normalized email, got %q", got)
	}
}
