package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to command errors.
const (
	CodeValidationFailed = "KUEBICO_COMMAND_INVALID"
	CodeCanceled         = "KUEBICO_COMMAND_CANCELED"
	CodeTimeout          = "KUEBICO_COMMAND_TIMEOUT"
	CodeContextError     = "KUEBICO_COMMAND_CONTEXT"
	CodeExecutionFailed  = "KUEBICO_COMMAND_FAILED"
)

type errorClass struct {
	category goerrors.Category
	message  string
	code     string
}

var (
	validationClass = errorClass{goerrors.CategoryValidation, "command validation failed", CodeValidationFailed}
	canceledClass   = errorClass{goerrors.CategoryCommand, "command execution cancelled", CodeCanceled}
	timeoutClass    = errorClass{goerrors.CategoryCommand, "command execution deadline exceeded", CodeTimeout}
	contextClass    = errorClass{goerrors.CategoryCommand, "command context error", CodeContextError}
	executeClass    = errorClass{goerrors.CategoryCommand, "command execution failed", CodeExecutionFailed}
)

// wrap categorises err unless it already carries a go-errors category.
func (c errorClass) wrap(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, c.category, c.message).WithTextCode(c.code)
}

func wrapValidationError(err error) error {
	return validationClass.wrap(err)
}

func wrapContextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return canceledClass.wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return timeoutClass.wrap(err)
	default:
		return contextClass.wrap(err)
	}
}

func wrapExecuteError(err error) error {
	return executeClass.wrap(err)
}
