package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindStatusCode(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, 400},
		{KindNotFound, 404},
		{KindUnauthorized, 401},
		{KindRateLimited, 429},
		{KindInternal, 500},
	}
	for _, tt := range tests {
		if got := tt.kind.StatusCode(); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestAsFindsWrappedAppError(t *testing.T) {
	inner := NotFound("گفتگو یافت نشد")
	wrapped := fmt.Errorf("handling request: %w", inner)

	appErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As did not find wrapped AppError")
	}
	if appErr.Kind != KindNotFound {
		t.Errorf("Kind = %v, want KindNotFound", appErr.Kind)
	}
	if appErr.Message != "گفتگو یافت نشد" {
		t.Errorf("Message = %q", appErr.Message)
	}

	if _, ok := As(errors.New("plain")); ok {
		t.Error("As matched a plain error")
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to store message", cause)

	if !errors.Is(err, cause) {
		t.Error("Internal error does not unwrap to its cause")
	}
	if err.Error() != "failed to store message: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	err := RateLimited("صبر کنید", 42)
	if err.RetryAfter != 42 {
		t.Errorf("RetryAfter = %d, want 42", err.RetryAfter)
	}
	if err.Kind != KindRateLimited {
		t.Errorf("Kind = %v", err.Kind)
	}
}
