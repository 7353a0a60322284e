package tool

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ToolErrorCodeExecutableNotFound is returned when a command's first token does not resolve
	// to a program under the tool root.
	ToolErrorCodeExecutableNotFound = "EXECUTABLE_NOT_FOUND"
	// ToolErrorCodeSpawnFailure is returned when the operating system cannot start the process.
	ToolErrorCodeSpawnFailure = "SPAWN_FAILURE"
	// ToolErrorCodeWriteError is returned when a parameter file cannot be written.
	ToolErrorCodeWriteError = "WRITE_ERROR"
	// ToolErrorCodeFileNotReadable is returned when a sound file cannot be opened or decoded.
	ToolErrorCodeFileNotReadable = "FILE_NOT_READABLE"
	// ToolErrorCodeInvalidRequest is returned when a request is structurally unusable
	// (empty command, missing argument) before anything is spawned.
	ToolErrorCodeInvalidRequest = "INVALID_REQUEST"
	// ToolErrorCodeTimeout is returned when a bounded usage query runs past its deadline.
	ToolErrorCodeTimeout = "TIMEOUT"
	// ToolErrorCodeCanceled is returned when the caller gave up before the program started.
	ToolErrorCodeCanceled = "CANCELED"
)

var (
	ErrExecutableNotFound = errors.New("executable not found")
	ErrSpawnFailure       = errors.New("spawn failure")
	ErrWriteError         = errors.New("write error")
	ErrFileNotReadable    = errors.New("file not readable")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrTimeout            = errors.New("timeout")
	ErrCanceled           = errors.New("canceled")
)

var sentinelByCode = map[string]error{
	ToolErrorCodeExecutableNotFound: ErrExecutableNotFound,
	ToolErrorCodeSpawnFailure:       ErrSpawnFailure,
	ToolErrorCodeWriteError:         ErrWriteError,
	ToolErrorCodeFileNotReadable:    ErrFileNotReadable,
	ToolErrorCodeInvalidRequest:     ErrInvalidRequest,
	ToolErrorCodeTimeout:            ErrTimeout,
	ToolErrorCodeCanceled:           ErrCanceled,
}

// ToolError is a structured adapter error. It is reported back to the caller as data and
// never terminates the server.
type ToolError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	msg := strings.TrimSpace(e.Message)
	switch {
	case code == "" && msg == "":
		return ToolErrorCodeSpawnFailure
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches the package sentinels by code, so errors.Is(err, ErrExecutableNotFound)
// works without depending on the cause chain.
func (e *ToolError) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := sentinelByCode[e.Code]
	return ok && sentinel == target
}

// NewToolError builds a ToolError; an empty message falls back to the cause text.
func NewToolError(code, message string, cause error) *ToolError {
	cleanCode := strings.TrimSpace(code)
	if cleanCode == "" {
		cleanCode = ToolErrorCodeSpawnFailure
	}
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &ToolError{
		Code:    cleanCode,
		Message: cleanMsg,
		Cause:   cause,
	}
}

func withToolErrorDetails(err *ToolError, details map[string]any) *ToolError {
	if err == nil {
		return nil
	}
	if len(details) == 0 {
		return err
	}
	if err.Details == nil {
		err.Details = make(map[string]any, len(details))
	}
	for key, value := range details {
		err.Details[key] = value
	}
	return err
}

// AsToolError extracts a ToolError from an error chain.
func AsToolError(err error) (*ToolError, bool) {
	if err == nil {
		return nil, false
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// ErrorCode returns the ToolError code in err's chain, or "" when there is none.
func ErrorCode(err error) string {
	if toolErr, ok := AsToolError(err); ok && toolErr != nil {
		return toolErr.Code
	}
	return ""
}
