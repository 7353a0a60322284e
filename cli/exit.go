package cli

import (
	"fmt"

	"github.com/petal-labs/cdpmcp/tool"
)

const (
	exitValidation = 1
	exitRuntime    = 2
)

// ExitError is an error that carries a specific process exit code.
// Cobra's RunE returns this to signal the desired exit code to main.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError creates a new ExitError with the given code and formatted message.
func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// toolExit maps an adapter error to an exit status: malformed requests are validation
// failures, everything else is a runtime failure.
func toolExit(err error) *ExitError {
	code := exitRuntime
	if tool.ErrorCode(err) == tool.ToolErrorCodeInvalidRequest {
		code = exitValidation
	}
	return &ExitError{Code: code, Message: err.Error(), Err: err}
}
