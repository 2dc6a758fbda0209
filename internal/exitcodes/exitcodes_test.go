package exitcodes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"nmsweep/internal/fsops"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"explicit code", WithCode(PartialFailure, errors.New("2 folders failed")), PartialFailure},
		{"wrapped explicit code", fmt.Errorf("delete: %w", WithCode(InvalidConfig, errors.New("bad"))), InvalidConfig},
		{"validation", fmt.Errorf("scan: %w", fsops.ErrValidation), SafetyViolation},
		{"interrupted", fmt.Errorf("scan: %w", context.Canceled), Interrupted},
		{"not found", fmt.Errorf("scan: %w", fsops.ErrNotFound), RuntimeError},
		{"other", errors.New("boom"), RuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromError(tt.err); got != tt.want {
				t.Errorf("FromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitErrorUnwraps(t *testing.T) {
	err := WithCode(RuntimeError, fsops.ErrAccess)
	if !errors.Is(err, fsops.ErrAccess) {
		t.Error("ExitError does not unwrap to its cause")
	}
	if err.Error() != fsops.ErrAccess.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
}
