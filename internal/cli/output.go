package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for weddingctl.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // not signed in, no matching guest, failed seat writes
	ExitCommandError = 2 // bad arguments, store errors
)

// ExitError carries the process exit code for a failed command.
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

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err, defaulting to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope written in --format json mode.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Printer writes command results as text or JSON.
type Printer struct {
	Format  string
	W       io.Writer
	Err     io.Writer
	Verbose bool
}

// Emit writes data as a JSON envelope, or calls text to render it.
func (p *Printer) Emit(data any, text func(w io.Writer)) error {
	if p.Format == "json" {
		return json.NewEncoder(p.W).Encode(Response{Status: "ok", Data: data})
	}
	text(p.W)
	return nil
}

// Fail reports err in the configured format and returns it.
func (p *Printer) Fail(err *ExitError) error {
	if p.Format == "json" {
		_ = json.NewEncoder(p.W).Encode(Response{Status: "error", Error: err.Message})
	}
	return err
}

// Logf writes diagnostics to the error stream when --verbose is set.
func (p *Printer) Logf(format string, args ...any) {
	if p.Verbose {
		fmt.Fprintf(p.Err, format+"\n", args...)
	}
}
