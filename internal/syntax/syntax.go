// Package syntax implements the local PlantUML syntax validator.
//
// The validator is heuristic by design: it cannot (and does not try to)
// parse the full PlantUML grammar. It catches the mistakes language models
// actually make — missing markers, unbalanced brackets, unterminated
// strings, malformed arrows — and pairs every error with an actionable
// suggestion the prompt builder feeds back into the next attempt.
//
// Validate is a pure function: no I/O, no hidden state, and it never
// returns a Go error for malformed input. Re-validating the same text
// yields an identical verdict.
package syntax

import (
	"fmt"
	"strings"

	"github.com/plantflow/plantflow/internal/diagram"
)

// Mode selects the double-quote parity policy.
//
// The legacy code base contained both policies; per-line is the default and
// ModeStrictDocument is kept as a documented alternative (see DESIGN.md).
type Mode int

const (
	// ModePerLine checks double-quote parity on each non-comment line.
	ModePerLine Mode = iota

	// ModeStrictDocument checks double-quote parity across the whole
	// document after stripping single quotes.
	ModeStrictDocument
)

// Validate checks text with the default per-line quote policy.
// Pass diagram.KindUnknown to skip kind-specific checks.
func Validate(text string, kind diagram.Kind) diagram.Verdict {
	return ValidateMode(text, kind, ModePerLine)
}

// ValidateMode checks text with an explicit quote-parity mode.
//
// Checks run in order and every failure is appended to the verdict — the
// validator does not short-circuit, so one pass reports everything the next
// generation attempt should fix. The only exception is empty input, which
// fails immediately with a single error.
func ValidateMode(text string, kind diagram.Kind, mode Mode) diagram.Verdict {
	if strings.TrimSpace(text) == "" {
		return diagram.Fail(
			"diagram text is empty",
			"Provide a PlantUML document between @startuml and @enduml",
		)
	}

	v := diagram.OK()

	checkMarkers(text, &v)
	checkBracketBalance(text, &v)

	switch mode {
	case ModeStrictDocument:
		checkQuoteParityDocument(text, &v)
	default:
		checkQuoteParityPerLine(text, &v)
	}

	checkLineHeuristics(text, &v)

	if kind != diagram.KindUnknown {
		checkKind(text, kind, &v)
	}

	return v
}

// checkMarkers verifies presence and ordering of @startuml/@enduml.
func checkMarkers(text string, v *diagram.Verdict) {
	start := strings.Index(text, diagram.StartMarker)
	end := strings.Index(text, diagram.EndMarker)

	if start < 0 {
		v.Add(
			fmt.Sprintf("missing %s marker", diagram.StartMarker),
			fmt.Sprintf("Begin the document with %s on its own line", diagram.StartMarker),
		)
	}
	if end < 0 {
		v.Add(
			fmt.Sprintf("missing %s marker", diagram.EndMarker),
			fmt.Sprintf("End the document with %s on its own line", diagram.EndMarker),
		)
	}
	if start >= 0 && end >= 0 && start > end {
		v.Add(
			fmt.Sprintf("%s appears after %s", diagram.StartMarker, diagram.EndMarker),
			fmt.Sprintf("Place %s before %s", diagram.StartMarker, diagram.EndMarker),
		)
	}
}

// openBracket records an unmatched opening symbol and the line it was seen on.
type openBracket struct {
	sym  rune
	line int
}

// closerFor maps closing symbols to their expected opener.
var closerFor = map[rune]rune{')': '(', ']': '[', '}': '{'}

// checkBracketBalance tracks (), [] and {} across the whole document with a
// stack keyed by line number. Comment lines (leading ') are skipped.
func checkBracketBalance(text string, v *diagram.Verdict) {
	var stack []openBracket

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		if isComment(line) {
			continue
		}
		for _, r := range line {
			switch r {
			case '(', '[', '{':
				stack = append(stack, openBracket{sym: r, line: lineNo})
			case ')', ']', '}':
				want := closerFor[r]
				if len(stack) == 0 || stack[len(stack)-1].sym != want {
					v.Add(
						fmt.Sprintf("unmatched %q on line %d", r, lineNo),
						fmt.Sprintf("Remove the stray %q on line %d or add the matching %q before it", r, lineNo, want),
					)
					continue
				}
				stack = stack[:len(stack)-1]
			}
		}
	}

	for _, b := range stack {
		v.Add(
			fmt.Sprintf("unclosed %q opened on line %d", b.sym, b.line),
			fmt.Sprintf("Close the %q opened on line %d", b.sym, b.line),
		)
	}
}

// checkQuoteParityPerLine flags any non-comment line with an odd number of
// double quotes as an unterminated string.
func checkQuoteParityPerLine(text string, v *diagram.Verdict) {
	for i, line := range strings.Split(text, "\n") {
		if isComment(line) {
			continue
		}
		if strings.Count(line, `"`)%2 != 0 {
			v.Add(
				fmt.Sprintf("unterminated string on line %d", i+1),
				fmt.Sprintf("Add the closing double quote on line %d", i+1),
			)
		}
	}
}

// checkQuoteParityDocument requires double-quote parity across the whole
// document after stripping single quotes.
func checkQuoteParityDocument(text string, v *diagram.Verdict) {
	stripped := strings.ReplaceAll(text, "'", "")
	if strings.Count(stripped, `"`)%2 != 0 {
		v.Add(
			"odd number of double quotes in document",
			"Every opening double quote needs a closing one; re-count the quotes in the whole document",
		)
	}
}

// checkLineHeuristics runs the battery of per-line checks for common
// model mistakes. Each emits at most one error per line per category.
func checkLineHeuristics(text string, v *diagram.Verdict) {
	lines := strings.Split(text, "\n")
	hasCloseBrace := strings.Contains(text, "}")

	for i, line := range lines {
		lineNo := i + 1
		if isComment(line) {
			continue
		}

		if hasHeadlessDashRun(line) {
			v.Add(
				fmt.Sprintf("malformed arrow on line %d: dashes without an arrowhead", lineNo),
				fmt.Sprintf("Use a directional arrow such as --> or <-- on line %d", lineNo),
			)
		}

		if arrowMissingWhitespace(line) {
			v.Add(
				fmt.Sprintf("arrow without surrounding whitespace on line %d", lineNo),
				fmt.Sprintf("Put a space on both sides of the arrow on line %d, e.g. \"[A] --> [B]\"", lineNo),
			)
		}

		// Odd single-quote count outside comments usually means a stray
		// quote rather than an intentional inline comment.
		if strings.Count(line, "'")%2 != 0 {
			v.Add(
				fmt.Sprintf("unmatched single quote on line %d", lineNo),
				fmt.Sprintf("Remove or pair the single quote on line %d (PlantUML comments start the line with ')", lineNo),
			)
		}

		if strings.Count(line, "[") > strings.Count(line, "]") {
			v.Add(
				fmt.Sprintf("unclosed [ on line %d", lineNo),
				fmt.Sprintf("Close the component bracket on line %d, e.g. \"[Service]\"", lineNo),
			)
		}

		if strings.Count(line, "(") > strings.Count(line, ")") {
			v.Add(
				fmt.Sprintf("unclosed ( on line %d", lineNo),
				fmt.Sprintf("Close the parenthesis on line %d, e.g. \"(Login)\"", lineNo),
			)
		}

		if strings.Contains(line, "class ") && strings.Contains(line, "{") && !hasCloseBrace {
			v.Add(
				fmt.Sprintf("class block opened on line %d is never closed", lineNo),
				"Add the closing } for the class block",
			)
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "participant ") || strings.HasPrefix(trimmed, "actor ") {
			if strings.Count(line, `"`)%2 != 0 {
				v.Add(
					fmt.Sprintf("unbalanced quotes in declaration on line %d", lineNo),
					fmt.Sprintf("Quote the display name fully on line %d, e.g. participant \"Web Server\" as WS", lineNo),
				)
			}
		}
	}
}

// hasHeadlessDashRun reports a run of three or more dashes that is neither
// headed by > nor preceded by < — a malformed relationship arrow.
// Longer PlantUML arrows like ---> and <--- are valid.
func hasHeadlessDashRun(line string) bool {
	runes := []rune(line)
	n := len(runes)
	for i := 0; i < n; {
		if runes[i] != '-' {
			i++
			continue
		}
		j := i
		for j < n && runes[j] == '-' {
			j++
		}
		runLen := j - i
		if runLen >= 3 {
			headed := j < n && (runes[j] == '>' || runes[j] == '|')
			tailed := i > 0 && (runes[i-1] == '<' || runes[i-1] == '|')
			if !headed && !tailed {
				return true
			}
		}
		i = j
	}
	return false
}

// arrowMissingWhitespace reports a --> or -> arrow glued to its endpoints,
// e.g. "A-->B". Arrows at line boundaries are left to other checks.
func arrowMissingWhitespace(line string) bool {
	runes := []rune(line)
	n := len(runes)
	for i := 0; i < n; {
		if runes[i] != '-' {
			i++
			continue
		}
		j := i
		for j < n && runes[j] == '-' {
			j++
		}
		if j < n && runes[j] == '>' {
			before := i - 1
			after := j + 1
			if before >= 0 && isNameRune(runes[before]) {
				return true
			}
			if after < n && isNameRune(runes[after]) {
				return true
			}
			i = j + 1
			continue
		}
		i = j
	}
	return false
}

// isNameRune reports runes that indicate an identifier glued to an arrow.
func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == ']', r == ')', r == '[', r == '(', r == '"':
		return true
	}
	return false
}

// isComment reports whether a line is a PlantUML comment (leading ').
func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "'")
}

// checkKind runs structural checks specific to the requested diagram kind.
func checkKind(text string, kind diagram.Kind, v *diagram.Verdict) {
	body := bodyLines(text)

	switch kind {
	case diagram.KindComponent:
		if !strings.Contains(text, "[") || !strings.Contains(text, "]") {
			v.Add(
				"component diagram has no bracketed component",
				"Declare components in brackets, e.g. [Web Server]",
			)
		}

	case diagram.KindClass:
		if !containsWord(body, "class") && !containsWord(body, "interface") {
			v.Add(
				"class diagram has no class declaration",
				"Declare at least one class, e.g. class Order { +id: int }",
			)
		}

	case diagram.KindSequence:
		if !hasDeclaration(body, "participant", "actor") {
			v.Add(
				"sequence diagram has no participant or actor",
				"Declare participants first, e.g. participant \"API\" as A",
			)
		}
		if !strings.Contains(text, "->") {
			v.Add(
				"sequence diagram has no message arrow",
				"Add at least one message, e.g. A -> B: request",
			)
		}

	case diagram.KindUsecase:
		if !hasDeclaration(body, "actor") && !strings.Contains(text, ":") {
			v.Add(
				"use-case diagram has no actor",
				"Declare an actor, e.g. actor User or :User:",
			)
		}
		if !strings.Contains(text, "(") || !strings.Contains(text, ")") {
			v.Add(
				"use-case diagram has no parenthesized use case",
				"Declare use cases in parentheses, e.g. (Place Order)",
			)
		}

	case diagram.KindActivity:
		if !hasActivityStatement(body) {
			v.Add(
				"activity diagram has no activity statement",
				"Write activities as :Do something; lines",
			)
		}
		if !hasActivityStart(body) {
			v.Add(
				"activity diagram has no start marker",
				"Begin the flow with start (or (*) in legacy syntax)",
			)
		}

	case diagram.KindState:
		if !containsWord(body, "state") && !strings.Contains(text, "[*]") {
			v.Add(
				"state diagram has no state syntax",
				"Declare states with state Name or use [*] for initial/final",
			)
		}

	case diagram.KindDeployment:
		if !hasDeclaration(body, "node") {
			v.Add(
				"deployment diagram has no node declaration",
				"Declare deployment targets, e.g. node \"App Server\" { ... }",
			)
		}
	}
}

// bodyLines returns trimmed non-comment lines between the markers.
func bodyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || isComment(t) {
			continue
		}
		if t == diagram.StartMarker || t == diagram.EndMarker {
			continue
		}
		out = append(out, t)
	}
	return out
}

// hasDeclaration reports a body line starting with any of the keywords.
func hasDeclaration(body []string, keywords ...string) bool {
	for _, line := range body {
		for _, kw := range keywords {
			if strings.HasPrefix(line, kw+" ") {
				return true
			}
		}
	}
	return false
}

// containsWord reports a body line containing the keyword as a prefix or
// after whitespace (avoids matching inside identifiers).
func containsWord(body []string, word string) bool {
	for _, line := range body {
		if strings.HasPrefix(line, word+" ") || strings.Contains(line, " "+word+" ") {
			return true
		}
	}
	return false
}

// hasActivityStatement reports a :text; activity line.
func hasActivityStatement(body []string) bool {
	for _, line := range body {
		if strings.HasPrefix(line, ":") && strings.HasSuffix(line, ";") {
			return true
		}
	}
	return false
}

// hasActivityStart reports the new-syntax start keyword or the legacy (*).
func hasActivityStart(body []string) bool {
	for _, line := range body {
		if line == "start" || strings.HasPrefix(line, "(*)") {
			return true
		}
	}
	return false
}
