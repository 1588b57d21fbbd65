package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Message(t *testing.T) {
	cause := errors.New("record not found")
	wrapped := NewAppError(CodeNotFound, "ad not found", cause)
	if got := wrapped.Error(); got != "ad not found: record not found" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("the cause is not reachable through errors.Is")
	}

	bare := NewAppError(CodeValidation, "price must be positive", nil)
	if got := bare.Error(); got != "price must be positive" {
		t.Errorf("Error() = %q", got)
	}
	if bare.Unwrap() != nil {
		t.Error("Unwrap() of an error without cause is not nil")
	}
}

func TestErrorKinds(t *testing.T) {
	checks := map[int]func(error) bool{
		CodeNotFound:      IsNotFound,
		CodeAlreadyExists: IsAlreadyExists,
		CodeValidation:    IsValidation,
		CodeInternal:      IsInternal,
		CodeUnauthorized:  IsUnauthorized,
		CodeForbidden:     IsForbidden,
	}

	tests := []struct {
		name       string
		err        error
		wantCode   int // 0 means no check matches
		wantStatus int
	}{
		{"generic not found", ErrNotFound, CodeNotFound, http.StatusNotFound},
		{"ad not found", NewAppError(CodeNotFound, "ad not found", nil), CodeNotFound, http.StatusNotFound},
		{"wrapped by the repository", fmt.Errorf("find ad 7: %w", ErrNotFound), CodeNotFound, http.StatusNotFound},
		{"duplicate username", NewAppError(CodeAlreadyExists, "username taken", nil), CodeAlreadyExists, http.StatusConflict},
		{"bad price", NewAppError(CodeValidation, "price must be positive", nil), CodeValidation, http.StatusBadRequest},
		{"store failure", NewAppError(CodeInternal, "failed to save ad", errors.New("disk full")), CodeInternal, http.StatusInternalServerError},
		{"no token", ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
		{"editing someone else's ad", ErrForbidden, CodeForbidden, http.StatusForbidden},
		{"outer code wins", NewAppError(CodeValidation, "bad category", ErrNotFound), CodeValidation, http.StatusBadRequest},
		{"unknown code", NewAppError(99, "odd", nil), 0, http.StatusInternalServerError},
		{"plain error", errors.New("boom"), 0, http.StatusInternalServerError},
		{"nil", nil, 0, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for code, check := range checks {
				if got := check(tt.err); got != (code == tt.wantCode) {
					t.Errorf("check for code %d = %v", code, got)
				}
			}
			if got := HTTPStatusCode(tt.err); got != tt.wantStatus {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}
