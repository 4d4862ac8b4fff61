// Package prompt composes the instruction text sent to the generative
// model.
//
// Attempt 1 produces a baseline instruction: the user's request, a fixed
// block of kind-specific syntax rules with a worked example, and generic
// structural requirements. Attempts 2..N prepend a retry-context block that
// enumerates every error/suggestion pair from the previous attempt's
// verdict plus the raw error, then instructs the model to address each one.
//
// This is the system's only "learning from mistakes" mechanism, and it is
// pure templating — no statistics, no hidden state.
package prompt

import (
	"fmt"
	"strings"

	"github.com/plantflow/plantflow/internal/diagram"
)

// AttemptContext carries what the previous attempt learned into the next
// prompt. Attempt is 1-based and never exceeds the pipeline's retry budget.
type AttemptContext struct {
	Attempt     int
	LastErr     error
	LastVerdict *diagram.Verdict
}

// First reports whether this is the initial attempt (no feedback to fold in).
func (a AttemptContext) First() bool {
	return a.Attempt <= 1
}

// structuralRequirements is appended to every generation prompt.
const structuralRequirements = `Requirements:
- The diagram text MUST start with @startuml and MUST end with @enduml.
- Do not use skinparam, !theme, !include or other styling directives.
- Keep element names short and simple; quote names that contain spaces.
- Put a space on both sides of every arrow.
- Every opening bracket, parenthesis, brace and quote must be closed.`

// BuildGenerate composes the prompt for a generation attempt.
func BuildGenerate(description string, kind diagram.Kind, actx AttemptContext) string {
	var sb strings.Builder

	if !actx.First() {
		writeRetryContext(&sb, kind, actx)
	}

	sb.WriteString("You are an expert software architect who writes valid PlantUML.\n\n")
	fmt.Fprintf(&sb, "Create a PlantUML %s diagram for the following architecture description:\n\n", kind)
	sb.WriteString(description)
	sb.WriteString("\n\n")
	sb.WriteString(kindRules(kind))
	sb.WriteString("\n\n")
	sb.WriteString(structuralRequirements)
	sb.WriteString("\n\nAlso provide a short narrative explanation of the diagram and report the diagram kind.\n")

	return sb.String()
}

// BuildEdit composes the prompt for an edit attempt. The diagram kind is
// preserved; only the requested change is applied.
func BuildEdit(existing, instruction string, actx AttemptContext) string {
	var sb strings.Builder

	if !actx.First() {
		writeRetryContext(&sb, diagram.KindUnknown, actx)
	}

	sb.WriteString("You are an expert software architect who edits PlantUML diagrams.\n\n")
	sb.WriteString("Apply the following change to the diagram below. Change only what the instruction asks for; keep everything else, including the diagram kind, exactly as it is.\n\n")
	sb.WriteString("Instruction:\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\nCurrent diagram:\n")
	sb.WriteString(existing)
	sb.WriteString("\n\n")
	sb.WriteString(structuralRequirements)
	sb.WriteString("\n\nAlso provide a short human-readable summary of the changes you made.\n")

	return sb.String()
}

// writeRetryContext prepends the corrective-feedback block for attempts ≥2.
func writeRetryContext(sb *strings.Builder, kind diagram.Kind, actx AttemptContext) {
	fmt.Fprintf(sb, "Your previous attempt (attempt %d) failed validation.\n\n", actx.Attempt-1)

	if v := actx.LastVerdict; v != nil && len(v.Errors) > 0 {
		sb.WriteString("Problems found:\n")
		for i, e := range v.Errors {
			fmt.Fprintf(sb, "%d. %s\n", i+1, e)
		}
		if len(v.Suggestions) > 0 {
			sb.WriteString("\nHow to fix them:\n")
			for _, s := range v.Suggestions {
				fmt.Fprintf(sb, "- %s\n", s)
			}
		}
		sb.WriteString("\n")
	}

	if actx.LastErr != nil {
		fmt.Fprintf(sb, "Previous error: %s\n\n", actx.LastErr)
	}

	sb.WriteString("Before responding:\n")
	sb.WriteString("- Address every problem listed above.\n")
	if kind != diagram.KindUnknown {
		fmt.Fprintf(sb, "- Keep the diagram kind: %s.\n", kind)
	} else {
		sb.WriteString("- Keep the diagram kind unchanged.\n")
	}
	sb.WriteString("- Re-verify that every bracket, parenthesis, brace and quote is balanced.\n\n")
}
