// Package diagram defines the core data model shared by the validators,
// the prompt builder and the generation pipeline: diagram kinds, requests,
// candidates and validation verdicts.
//
// All types are transient — nothing in this package is persisted. A Request
// is created per incoming call and never mutated; Candidates are superseded
// by the next generation attempt until one is accepted.
package diagram

import (
	"errors"
	"fmt"
	"strings"
)

// PlantUML document delimiters. Every diagram text accepted by the system
// starts with StartMarker and ends with EndMarker.
const (
	StartMarker = "@startuml"
	EndMarker   = "@enduml"
)

// Input length ceilings enforced at the API boundary before any model call.
const (
	// MaxDescriptionLen is the maximum length of a generation description.
	MaxDescriptionLen = 5000

	// MaxInstructionLen is the maximum length of an edit instruction.
	MaxInstructionLen = 2000
)

// ErrUnknownKind indicates a diagram kind outside the supported set.
var ErrUnknownKind = errors.New("unknown diagram kind")

// Kind identifies a supported PlantUML diagram kind.
//
// Kind is a closed set: validators and prompt templates switch on it, so
// adding a new kind means extending ParseKind, the kind-specific syntax
// checks and the kind-specific prompt rules — nothing else.
type Kind string

// Supported diagram kinds.
const (
	KindComponent  Kind = "component"
	KindDeployment Kind = "deployment"
	KindClass      Kind = "class"
	KindSequence   Kind = "sequence"
	KindUsecase    Kind = "usecase"
	KindActivity   Kind = "activity"
	KindState      Kind = "state"

	// KindUnknown is the zero value. Validators skip kind-specific checks
	// for it; it is never accepted at the API boundary.
	KindUnknown Kind = ""
)

// Kinds returns all supported diagram kinds in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindComponent,
		KindDeployment,
		KindClass,
		KindSequence,
		KindUsecase,
		KindActivity,
		KindState,
	}
}

// ParseKind converts a string into a Kind.
// Matching is case-insensitive and trims surrounding whitespace.
// Returns ErrUnknownKind for anything outside the supported set.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindComponent, KindDeployment, KindClass, KindSequence,
		KindUsecase, KindActivity, KindState:
		return k, nil
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Request is a single generation request. Immutable once created.
type Request struct {
	// Description is the free-text architecture description (≤5000 chars,
	// enforced by the HTTP layer).
	Description string

	// Kind is the requested diagram kind.
	Kind Kind
}

// EditRequest carries an existing diagram plus a free-text edit instruction.
// The diagram kind is unchanged by an edit.
type EditRequest struct {
	Diagram     string
	Instruction string
}

// Candidate is the structured output of a single model call: a narrative
// explanation plus the PlantUML text. It is superseded by the next attempt
// until one passes both validators.
type Candidate struct {
	Explanation string `json:"explanation"` // Narrative description of the diagram
	Diagram     string `json:"diagram"`     // PlantUML text between @startuml/@enduml
	Kind        Kind   `json:"kind"`        // Diagram kind as reported by the model
}

// EditResult is the structured output of an edit call.
type EditResult struct {
	Diagram string `json:"diagram"` // Updated PlantUML text
	Changes string `json:"changes"` // Human-readable summary of what changed
}

// Verdict is the structured result of a validation pass.
// Errors and Suggestions are parallel in spirit: every failing check
// contributes one error and at least one actionable suggestion.
//
// Validators never fail with a Go error for malformed input — they always
// return a Verdict. Only the pipeline converts a failing Verdict into an
// error, after deciding whether it is retriable.
type Verdict struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	Suggestions []string `json:"suggestions"`
}

// OK returns a passing verdict.
func OK() Verdict {
	return Verdict{Valid: true}
}

// Fail returns a failing verdict with a single error/suggestion pair.
func Fail(errMsg string, suggestions ...string) Verdict {
	return Verdict{Valid: false, Errors: []string{errMsg}, Suggestions: suggestions}
}

// Add appends an error with its paired suggestions and marks the verdict
// invalid.
func (v *Verdict) Add(errMsg string, suggestions ...string) {
	v.Valid = false
	v.Errors = append(v.Errors, errMsg)
	v.Suggestions = append(v.Suggestions, suggestions...)
}

// Merge folds another verdict into v so prompt feedback carries findings
// from whichever validation stage failed. The result is valid only if both
// inputs were valid.
func (v *Verdict) Merge(other Verdict) {
	v.Valid = v.Valid && other.Valid
	v.Errors = append(v.Errors, other.Errors...)
	v.Suggestions = append(v.Suggestions, other.Suggestions...)
}
