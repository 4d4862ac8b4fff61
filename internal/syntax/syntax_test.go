package syntax

import (
	"reflect"
	"strings"
	"testing"

	"github.com/plantflow/plantflow/internal/diagram"
)

func TestValidateMinimalComponentDiagram(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\n[A] --> [B]\n@enduml", diagram.KindComponent)

	if !v.Valid {
		t.Fatalf("expected valid, got errors: %v", v.Errors)
	}
	if len(v.Errors) != 0 {
		t.Errorf("expected empty error list, got %v", v.Errors)
	}
}

func TestValidateEmptyInput(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "\n\t\n"} {
		v := Validate(text, diagram.KindUnknown)
		if v.Valid {
			t.Errorf("empty input %q should be invalid", text)
		}
		if len(v.Errors) != 1 {
			t.Errorf("empty input should fail with a single error, got %v", v.Errors)
		}
	}
}

func TestValidateMissingMarkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{
			name:    "missing start marker",
			text:    "[A] --> [B]\n@enduml",
			wantErr: "@startuml",
		},
		{
			name:    "missing end marker",
			text:    "@startuml\n[A] --> [B]",
			wantErr: "@enduml",
		},
		{
			name:    "markers out of order",
			text:    "@enduml\n[A] --> [B]\n@startuml",
			wantErr: "after",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := Validate(tt.text, diagram.KindUnknown)
			if v.Valid {
				t.Fatal("expected invalid verdict")
			}
			if !anyContains(v.Errors, tt.wantErr) {
				t.Errorf("expected an error mentioning %q, got %v", tt.wantErr, v.Errors)
			}
			if len(v.Suggestions) == 0 {
				t.Error("every error needs at least one suggestion")
			}
		})
	}
}

func TestValidateMissingBothMarkers(t *testing.T) {
	t.Parallel()

	v := Validate("[A] --> [B]", diagram.KindUnknown)
	if v.Valid {
		t.Fatal("expected invalid verdict")
	}
	// Each missing marker is its own error.
	if !anyContains(v.Errors, "@startuml") || !anyContains(v.Errors, "@enduml") {
		t.Errorf("expected separate errors for both markers, got %v", v.Errors)
	}
}

func TestValidateUnclosedBracket(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\n[A --> [B]\n@enduml", diagram.KindUnknown)

	if v.Valid {
		t.Fatal("expected invalid verdict")
	}
	if !anyContains(v.Errors, "[") {
		t.Errorf("expected an error about the unclosed [, got %v", v.Errors)
	}
	if !anyContains(v.Errors, "line 2") {
		t.Errorf("expected the offending line number, got %v", v.Errors)
	}
}

func TestValidateStrayClosingBracket(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\nA] --> [B]\n@enduml", diagram.KindUnknown)

	if v.Valid {
		t.Fatal("expected invalid verdict")
	}
	if !anyContains(v.Errors, "unmatched") {
		t.Errorf("expected an unmatched-symbol error, got %v", v.Errors)
	}
}

func TestValidateBracketInCommentIgnored(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\n' note: [unclosed\n[A] --> [B]\n@enduml", diagram.KindUnknown)
	if !v.Valid {
		t.Errorf("brackets inside comments should be ignored, got %v", v.Errors)
	}
}

func TestValidateUnterminatedStringPerLine(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\nparticipant \"Web Server as WS\n@enduml", diagram.KindUnknown)

	if v.Valid {
		t.Fatal("expected invalid verdict")
	}
	if !anyContains(v.Errors, "line 2") {
		t.Errorf("expected the unterminated string to name line 2, got %v", v.Errors)
	}
}

func TestValidateStrictDocumentMode(t *testing.T) {
	t.Parallel()

	// Quotes balance across lines but not within one line: per-line mode
	// flags both lines, strict document mode accepts the document.
	text := "@startuml\nnode \"A\n\" --> B\n@enduml"

	perLine := ValidateMode(text, diagram.KindUnknown, ModePerLine)
	if perLine.Valid {
		t.Error("per-line mode should flag split quotes")
	}

	strict := ValidateMode(text, diagram.KindUnknown, ModeStrictDocument)
	if !strict.Valid {
		t.Errorf("strict document mode should accept balanced totals, got %v", strict.Errors)
	}
}

func TestValidateStrictDocumentOddQuotes(t *testing.T) {
	t.Parallel()

	v := ValidateMode("@startuml\nnode \"A --> B\n@enduml", diagram.KindUnknown, ModeStrictDocument)
	if v.Valid {
		t.Fatal("odd document-wide quote count should fail in strict mode")
	}
}

func TestValidateHeadlessDashRun(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\nA --- B\n@enduml", diagram.KindUnknown)
	if v.Valid {
		t.Fatal("triple dash without arrowhead should fail")
	}
	if !anyContains(v.Errors, "arrow") {
		t.Errorf("expected a malformed-arrow error, got %v", v.Errors)
	}

	// Long arrows with heads are fine.
	for _, ok := range []string{"A ---> B", "A <--- B"} {
		v := Validate("@startuml\n"+ok+"\n@enduml", diagram.KindUnknown)
		if anyContains(v.Errors, "arrowhead") {
			t.Errorf("%q should not be flagged as headless: %v", ok, v.Errors)
		}
	}
}

func TestValidateArrowWithoutWhitespace(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\nA-->B\n@enduml", diagram.KindUnknown)
	if v.Valid {
		t.Fatal("glued arrow should fail")
	}
	if !anyContains(v.Errors, "whitespace") {
		t.Errorf("expected a whitespace error, got %v", v.Errors)
	}
}

func TestValidateUnmatchedSingleQuote(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\nA --> B : it's broken\n@enduml", diagram.KindUnknown)
	if v.Valid {
		t.Fatal("stray single quote should fail")
	}
	if !anyContains(v.Errors, "single quote") {
		t.Errorf("expected a single-quote error, got %v", v.Errors)
	}

	// A comment line may contain a lone single quote.
	v = Validate("@startuml\n' it's a comment\nA --> B\n@enduml", diagram.KindUnknown)
	if anyContains(v.Errors, "single quote") {
		t.Errorf("comment lines should be exempt, got %v", v.Errors)
	}
}

func TestValidateClassBlockNeverClosed(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\nclass Order {\n  +id: int\n@enduml", diagram.KindUnknown)
	if v.Valid {
		t.Fatal("unclosed class block should fail")
	}
	if !anyContains(v.Errors, "class block") {
		t.Errorf("expected a class-block error, got %v", v.Errors)
	}
}

func TestValidateParticipantQuoteParity(t *testing.T) {
	t.Parallel()

	v := Validate("@startuml\nparticipant \"API as A\nA -> B: hi\n@enduml", diagram.KindSequence)
	if v.Valid {
		t.Fatal("unbalanced declaration quotes should fail")
	}
	if !anyContains(v.Errors, "declaration") {
		t.Errorf("expected a declaration quote error, got %v", v.Errors)
	}
}

func TestValidateKindSpecific(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		kind    diagram.Kind
		wantOK  bool
		wantErr string
	}{
		{
			name:    "component without brackets",
			text:    "@startuml\nA --> B\n@enduml",
			kind:    diagram.KindComponent,
			wantErr: "bracketed component",
		},
		{
			name:   "class with declaration",
			text:   "@startuml\nclass Order {\n  +id: int\n}\n@enduml",
			kind:   diagram.KindClass,
			wantOK: true,
		},
		{
			name:    "class without declaration",
			text:    "@startuml\nA --> B\n@enduml",
			kind:    diagram.KindClass,
			wantErr: "class declaration",
		},
		{
			name:   "sequence with participant and arrow",
			text:   "@startuml\nparticipant \"API\" as A\nactor U\nU -> A: GET\n@enduml",
			kind:   diagram.KindSequence,
			wantOK: true,
		},
		{
			name:    "sequence without participants",
			text:    "@startuml\nnote left: hi\n@enduml",
			kind:    diagram.KindSequence,
			wantErr: "participant",
		},
		{
			name:   "usecase with actor and parens",
			text:   "@startuml\nactor Customer\nCustomer --> (Place Order)\n@enduml",
			kind:   diagram.KindUsecase,
			wantOK: true,
		},
		{
			name:    "usecase without use case",
			text:    "@startuml\nactor Customer\n@enduml",
			kind:    diagram.KindUsecase,
			wantErr: "parenthesized",
		},
		{
			name:   "activity with start and statement",
			text:   "@startuml\nstart\n:Receive order;\nstop\n@enduml",
			kind:   diagram.KindActivity,
			wantOK: true,
		},
		{
			name:    "activity without start",
			text:    "@startuml\n:Receive order;\n@enduml",
			kind:    diagram.KindActivity,
			wantErr: "start marker",
		},
		{
			name:   "state with initial marker",
			text:   "@startuml\n[*] --> Pending\nPending --> [*]\n@enduml",
			kind:   diagram.KindState,
			wantOK: true,
		},
		{
			name:    "state without state syntax",
			text:    "@startuml\nA --> B\n@enduml",
			kind:    diagram.KindState,
			wantErr: "state syntax",
		},
		{
			name:   "deployment with node",
			text:   "@startuml\nnode \"App Server\" {\n[API]\n}\n@enduml",
			kind:   diagram.KindDeployment,
			wantOK: true,
		},
		{
			name:    "deployment without node",
			text:    "@startuml\n[API] --> [DB]\n@enduml",
			kind:    diagram.KindDeployment,
			wantErr: "node declaration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := Validate(tt.text, tt.kind)
			if tt.wantOK {
				if !v.Valid {
					t.Errorf("expected valid, got errors: %v", v.Errors)
				}
				return
			}
			if v.Valid {
				t.Fatal("expected invalid verdict")
			}
			if !anyContains(v.Errors, tt.wantErr) {
				t.Errorf("expected an error mentioning %q, got %v", tt.wantErr, v.Errors)
			}
		})
	}
}

func TestValidateAccumulatesAllErrors(t *testing.T) {
	t.Parallel()

	// Missing end marker, glued arrow and an unclosed bracket, all at once.
	v := Validate("@startuml\nA-->B\n[C --> D", diagram.KindUnknown)
	if v.Valid {
		t.Fatal("expected invalid verdict")
	}
	if len(v.Errors) < 3 {
		t.Errorf("expected at least 3 accumulated errors, got %v", v.Errors)
	}
	if len(v.Suggestions) < len(v.Errors) {
		t.Errorf("every error needs a suggestion: %d errors, %d suggestions", len(v.Errors), len(v.Suggestions))
	}
}

func TestValidateIdempotent(t *testing.T) {
	t.Parallel()

	text := "@startuml\n[A --> [B]\nA-->C\n@enduml"
	first := Validate(text, diagram.KindComponent)
	second := Validate(text, diagram.KindComponent)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("validation is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func anyContains(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
