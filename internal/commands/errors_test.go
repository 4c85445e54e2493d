package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestErrorWrappersAttachTextCodes(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wrap     func(error) error
		category goerrors.Category
		code     string
	}{
		{"validation", errors.New("bad"), wrapValidationError, goerrors.CategoryValidation, CodeValidationFailed},
		{"canceled", fmt.Errorf("op: %w", context.Canceled), wrapContextError, goerrors.CategoryCommand, CodeCanceled},
		{"timeout", context.DeadlineExceeded, wrapContextError, goerrors.CategoryCommand, CodeTimeout},
		{"other context", errors.New("ctx"), wrapContextError, goerrors.CategoryCommand, CodeContextError},
		{"execute", errors.New("boom"), wrapExecuteError, goerrors.CategoryCommand, CodeExecutionFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.wrap(tc.err)
			if !goerrors.IsCategory(err, tc.category) {
				t.Fatalf("expected category %s, got %v", tc.category, err)
			}
			var wrapped *goerrors.Error
			if !errors.As(err, &wrapped) || wrapped.TextCode != tc.code {
				t.Fatalf("expected text code %s, got %#v", tc.code, wrapped)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected cause to stay reachable, got %v", err)
			}
		})
	}
}

func TestErrorWrappersKeepExistingCategory(t *testing.T) {
	if wrapExecuteError(nil) != nil {
		t.Fatal("expected nil to stay nil")
	}

	first := wrapValidationError(errors.New("bad"))
	if again := wrapExecuteError(first); again != first {
		t.Fatalf("expected categorised error to pass through, got %v", again)
	}
}
