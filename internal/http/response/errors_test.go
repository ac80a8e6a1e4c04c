package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		code domain.ErrorCode
		want int
	}{
		{domain.CodeValidation, http.StatusBadRequest},
		{domain.CodeConfig, http.StatusUnprocessableEntity},
		{domain.CodeNotFound, http.StatusNotFound},
		{domain.CodeNoActiveScheme, http.StatusNotFound},
		{domain.CodeLocked, http.StatusConflict},
		{domain.CodeDuplicate, http.StatusConflict},
		{domain.CodeExhausted, http.StatusConflict},
		{domain.CodeActiveSchemeExists, http.StatusConflict},
		{domain.CodeNoList, http.StatusConflict},
		{domain.CodeConflict, http.StatusConflict},
		{domain.CodeRetryable, http.StatusServiceUnavailable},
		{domain.CodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.code); got != tc.want {
			t.Fatalf("StatusFor(%q): want %d got %d", tc.code, tc.want, got)
		}
	}
}

func respond(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondDomainError(c, err)

	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return rec.Code, env
}

func TestRespondDomainErrorBusinessOutcome(t *testing.T) {
	status, env := respond(t, fmt.Errorf("claim: %w", domain.ExhaustedError("claim", "sex=F")))
	if status != http.StatusConflict {
		t.Fatalf("status: want 409 got %d", status)
	}
	if env.Error.Code != "exhausted" {
		t.Fatalf("code: want exhausted got %q", env.Error.Code)
	}
	if want := "No available randomization slots (stratum sex=F)"; env.Error.Message != want {
		t.Fatalf("message: want %q got %q", want, env.Error.Message)
	}
}

func TestRespondDomainErrorHidesInternalCause(t *testing.T) {
	status, env := respond(t, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	if status != http.StatusInternalServerError || env.Error.Code != "internal" {
		t.Fatalf("want 500 internal, got %d %q", status, env.Error.Code)
	}
	if env.Error.Message != "internal error" {
		t.Fatalf("internal cause leaked: %q", env.Error.Message)
	}

	status, env = respond(t, domain.Wrap(domain.CodeRetryable, "claim", errors.New("deadlock detected")))
	if status != http.StatusServiceUnavailable || env.Error.Code != "retryable" {
		t.Fatalf("want 503 retryable, got %d %q", status, env.Error.Code)
	}
	if strings.Contains(env.Error.Message, "deadlock") {
		t.Fatalf("retryable cause leaked: %q", env.Error.Message)
	}
}
