package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestGetTypeClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", NotFoundf("universe %s not found", "uni-1"), ErrorTypeNotFound},
		{"validation", Validation("bad input"), ErrorTypeValidation},
		{"business rule", BusinessRule("universe has ended"), ErrorTypeBusinessRule},
		{"conflict", Conflictf("universe %s was modified", "uni-1"), ErrorTypeConflict},
		{"persistence", WrapPersistence("write failed", stderrors.New("db down")), ErrorTypePersistence},
		{"unauthorized", Unauthorized("no token"), ErrorTypeUnauthorized},
		{"plain error defaults to internal", stderrors.New("boom"), ErrorTypeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetType(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if !IsType(tc.err, tc.want) {
				t.Fatalf("IsType should match %q", tc.want)
			}
		})
	}
}

func TestWrappedErrorPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := WrapPersistence("failed to update universe", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("wrapped error should unwrap to its cause")
	}
	if msg := err.Error(); msg != "failed to update universe: connection refused" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestTypeSurvivesWrapping(t *testing.T) {
	inner := NotFoundf("anomaly not found")
	outer := fmt.Errorf("resolving: %w", inner)

	if GetType(outer) != ErrorTypeNotFound {
		t.Fatal("type should be recoverable through fmt wrapping")
	}
}
