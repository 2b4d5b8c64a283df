package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/embedterm/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message for err based on its code and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	if out == nil {
		out = os.Stderr
	}
	embedErr := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(out, "❌ Configuration not found: %v\n", detail(embedErr, "path"))

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(out, "❌ Invalid configuration: %v\n", err)
		fmt.Fprintf(out, "Run 'embedterm config validate' to check the file.\n")

	case errors.ErrCodeMissingDependency:
		fmt.Fprintf(out, "❌ Required programs not found: %v\n", detail(embedErr, "names"))
		fmt.Fprintf(out, "Install them or point emulator.binary / multiplexer.binary at them.\n")

	case errors.ErrCodeSpawnFailed:
		fmt.Fprintf(out, "❌ Could not start %v\n", detail(embedErr, "program"))
		fmt.Fprintf(out, "Check the log with 'embedterm logs'.\n")

	case errors.ErrCodeDisplayUnavailable:
		fmt.Fprintf(out, "❌ No X display available. Is DISPLAY set?\n")

	default:
		fmt.Fprintf(out, "❌ Error: %v\n", err)
	}

	if h.Verbose && embedErr != nil {
		fmt.Fprintf(out, "\nError details:\n%s\n", embedErr.ToJSON())
	}
	return err
}

func detail(err *errors.EmbedError, key string) interface{} {
	if err == nil || err.Details == nil {
		return "unknown"
	}
	if v, ok := err.Details[key]; ok {
		return v
	}
	return "unknown"
}
