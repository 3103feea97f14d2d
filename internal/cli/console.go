package cli

import (
	"fmt"
	"io"

	"storefront-importer/internal/types"
	"storefront-importer/orchestrator"
)

// ConsoleHandler reports import progress on a terminal
type ConsoleHandler struct {
	out io.Writer
}

// NewConsoleHandler creates a handler writing to out
func NewConsoleHandler(out io.Writer) *ConsoleHandler {
	return &ConsoleHandler{out: out}
}

// SetButtonState prints the loading state only; results go through HandleResponse
func (h *ConsoleHandler) SetButtonState(element string, state orchestrator.ButtonState) {
	if state == orchestrator.ButtonLoading {
		fmt.Fprintln(h.out, "Importing...")
	}
}

// HandleResponse prints the outcome of an attempt
func (h *ConsoleHandler) HandleResponse(result types.ImportResult, element string) {
	if result.OK {
		if result.JobID != "" {
			fmt.Fprintf(h.out, "Imported (job %s)\n", result.JobID)
			return
		}
		fmt.Fprintln(h.out, "Imported")
		return
	}

	fmt.Fprintf(h.out, "Import failed [%s]: %s\n", result.Code, result.Message)
	if result.CanFallback {
		fmt.Fprintln(h.out, "This failure may be temporary; retry with --retry or try again later.")
	}
}
