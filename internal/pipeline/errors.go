package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors checked with errors.Is() by the HTTP layer for status
// mapping.
var (
	// ErrModelInvocation indicates the model call itself failed
	// (network/provider side). Non-retriable: spending attempt budget on
	// provider outages is not productive.
	ErrModelInvocation = errors.New("model invocation failed")
)

// ExhaustedError is the terminal error raised when every attempt in the
// budget failed validation. Its message is directly user-displayable: it
// carries the cumulative error list, the cumulative suggestion list and the
// last candidate's diagram text verbatim, so callers can present actionable
// diagnostics without re-deriving them.
type ExhaustedError struct {
	Attempts    int
	Errors      []string
	Suggestions []string
	LastDiagram string
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "diagram generation failed after %d attempts\n\n", e.Attempts)

	if len(e.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, msg := range e.Errors {
			sb.WriteString("- " + msg + "\n")
		}
	}
	if len(e.Suggestions) > 0 {
		sb.WriteString("\nSuggestions:\n")
		for _, s := range e.Suggestions {
			sb.WriteString("- " + s + "\n")
		}
	}
	if e.LastDiagram != "" {
		sb.WriteString("\nLast attempted diagram:\n")
		sb.WriteString(e.LastDiagram)
	}
	return sb.String()
}
