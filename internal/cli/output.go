package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (evaluation error, server crash)
	ExitCommandError = 2 // Command error (bad paths, unreadable config)
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope for command output.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success prints a result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error prints an error in the configured format.
func (f *OutputFormatter) Error(message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: message})
	}
	fmt.Fprintf(f.Writer, "Error: %s\n", message)
	return nil
}
