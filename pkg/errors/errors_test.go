package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Room"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad input", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"conflict", Conflict("slot taken"), CodeConflict, http.StatusConflict},
		{"indeterminate", Indeterminate("outcome unknown", errors.New("timeout")), CodeIndeterminate, http.StatusGatewayTimeout},
		{"timeout", Timeout("lock wait"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Reservation store", errors.New("refused")), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
			if !IsCode(tt.err, tt.wantCode) {
				t.Error("IsCode should match the error's own code")
			}
		})
	}
}

func TestIndeterminateIsNeverConflict(t *testing.T) {
	err := Indeterminate("outcome unknown", errors.New("deadline exceeded"))
	if IsCode(err, CodeConflict) {
		t.Fatal("indeterminate outcome must not classify as conflict")
	}
	if IsCode(err, CodeInternal) {
		t.Fatal("indeterminate outcome must keep its own code")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("store call failed", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Conflict("slot taken")
	if got := AsAppError(appErr); got != appErr {
		t.Error("AsAppError should return the same AppError")
	}

	plain := errors.New("boom")
	got := AsAppError(plain)
	if got.Code != CodeInternal {
		t.Errorf("plain errors should map to %s, got %s", CodeInternal, got.Code)
	}
	if !errors.Is(got, plain) {
		t.Error("original error should remain in the chain")
	}
}

func TestNotFoundWithIDDetails(t *testing.T) {
	err := NotFoundWithID("Reservation", "abc123")
	if err.Details["id"] != "abc123" {
		t.Errorf("details id = %v, want abc123", err.Details["id"])
	}
	if err.Details["resource"] != "Reservation" {
		t.Errorf("details resource = %v, want Reservation", err.Details["resource"])
	}
}
