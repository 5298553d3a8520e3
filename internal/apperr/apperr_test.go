package apperr

import (
	"errors"
	"fmt"
	"testing"

	"ideias/internal/constants"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("verifying: %w", ErrTokenUsed.WithMessage("token already consumed"))

	if !errors.Is(err, ErrTokenUsed) {
		t.Fatal("expected wrapped error to match ErrTokenUsed")
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Fatal("expected wrapped error not to match ErrTokenExpired")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(ErrEmailExists); got != constants.ErrCodeEmailExists {
		t.Fatalf("CodeOf() = %q, want %q", got, constants.ErrCodeEmailExists)
	}
	if got := CodeOf(errors.New("disk full")); got != "" {
		t.Fatalf("CodeOf() = %q, want empty", got)
	}
}
