package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/abrezinsky/gavel/internal/errors"
	"github.com/abrezinsky/gavel/internal/handlers"
	"github.com/abrezinsky/gavel/internal/services"
)

func TestAPIError_Error(t *testing.T) {
	err := handlers.NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "test message")

	if err.Error() != "test message" {
		t.Errorf("expected 'test message', got %q", err.Error())
	}
	if err.Code != "BAD_REQUEST" {
		t.Errorf("expected code 'BAD_REQUEST', got %q", err.Code)
	}
}

func TestBadRequest(t *testing.T) {
	err := handlers.BadRequest("speaker missing")
	if err.Status != http.StatusBadRequest || err.Code != handlers.ErrCodeBadRequest {
		t.Errorf("unexpected error %+v", err)
	}

	// Messages mentioning validity get the validation code
	err = handlers.BadRequest("Invalid limit parameter")
	if err.Code != handlers.ErrCodeValidation {
		t.Errorf("expected validation code, got %q", err.Code)
	}
}

func TestForbidden(t *testing.T) {
	err := handlers.Forbidden("motions are disabled")
	if err.Status != http.StatusForbidden || err.Code != handlers.ErrCodeForbidden {
		t.Errorf("unexpected error %+v", err)
	}
}

func TestInternalError(t *testing.T) {
	err := handlers.InternalError(fmt.Errorf("db connection failed"))

	if err.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", err.Status)
	}
	// Internal errors should not expose the original message
	if err.Message != "Internal server error" {
		t.Errorf("expected generic message, got %q", err.Message)
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            *handlers.APIError
		expectedStatus int
	}{
		{"ErrBadRequest", handlers.ErrBadRequest, http.StatusBadRequest},
		{"ErrNotFound", handlers.ErrNotFound, http.StatusNotFound},
		{"ErrInternalServer", handlers.ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, tt.err.Status)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.NotFound("speaker X is not in the speakers list"), http.StatusNotFound, handlers.ErrCodeNotFound},
		{"validation", errors.Validation("proposing country is required"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"invalid input", errors.InvalidInput("bad minutes"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"conflict", errors.Conflict("already in the speakers list"), http.StatusConflict, handlers.ErrCodeConflict},
		{"policy", errors.Policy("motions are disabled"), http.StatusForbidden, handlers.ErrCodeForbidden},
		{"internal", errors.Internal(fmt.Errorf("disk full")), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
		{"wrapped not found", fmt.Errorf("open session: %w", errors.NotFound("committee 9 not found")), http.StatusNotFound, handlers.ErrCodeNotFound},
		{"roster not configured", services.ErrRosterNotConfigured, http.StatusBadRequest, handlers.ErrCodeNotConfigured},
		{"base url not set", services.ErrBaseURLNotSet, http.StatusBadRequest, handlers.ErrCodeNotConfigured},
		{"session closed", services.ErrSessionClosed, http.StatusServiceUnavailable, handlers.ErrCodeUnavailable},
		{"service error", services.ErrEmptyRoster, http.StatusBadRequest, handlers.ErrCodeBadRequest},
		{"invalid table", &services.InvalidTableError{Table: "bogus"}, http.StatusBadRequest, handlers.ErrCodeValidation},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := handlers.ToAPIError(tt.err)
			if apiErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
			}
			if apiErr.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, apiErr.Code)
			}
		})
	}
}

func TestToAPIError_ValidationKeepsDetail(t *testing.T) {
	err := errors.Wrap(fmt.Errorf("yaml: line 3"), errors.ErrValidation, "invalid roster document")

	apiErr := handlers.ToAPIError(err)
	if !strings.Contains(apiErr.Message, "invalid roster document") || !strings.Contains(apiErr.Message, "yaml: line 3") {
		t.Errorf("expected message with cause, got %q", apiErr.Message)
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/committees", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty body, got %d", rec.Code)
	}
	if !strings.Contains(strings.ToLower(rec.Body.String()), "empty") {
		t.Errorf("expected error to mention 'empty', got %q", rec.Body.String())
	}
}

func TestDecodeJSON_InvalidJSON(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/committees", "{invalid}")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "JSON") {
		t.Errorf("expected error to mention 'JSON', got %q", rec.Body.String())
	}
}

func TestParseIDParam_Invalid(t *testing.T) {
	setup := newTestSetup(t)

	for _, path := range []string{"/api/committees/abc", "/api/committees/0", "/api/committees/-4"} {
		rec := setup.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestParseLimit_Invalid(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, setup.api("/activity?limit=-1"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", rec.Code)
	}
}

func TestServerError_ClosedDatabase(t *testing.T) {
	setup := newTestSetup(t)
	setup.repo.DB().Close()

	rec := setup.do(t, http.MethodGet, "/api/committees", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for internal error, got %d", rec.Code)
	}
}
