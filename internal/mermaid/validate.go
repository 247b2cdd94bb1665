package mermaid

import (
	"fmt"
	"strings"
)

type ErrorKind string

const (
	ErrUnmatchedBracket    ErrorKind = "unmatched_bracket"
	ErrUnmatchedBrace      ErrorKind = "unmatched_brace"
	ErrUnmatchedParen      ErrorKind = "unmatched_paren"
	ErrUnterminatedQuote   ErrorKind = "unterminated_quote"
	ErrTrailingText        ErrorKind = "trailing_text"
	ErrDuplicateDefinition ErrorKind = "duplicate_definition"
	ErrUnrecognized        ErrorKind = "unrecognized_statement"
)

// LineError is a syntax problem on a single line. Line is 1-based.
type LineError struct {
	Line    int       `json:"line"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e LineError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Report is the result of Validate. SyntaxErrors are per-line problems the repair passes
// know how to address; Problems explain a false StructurallyValid.
type Report struct {
	SyntaxErrors      []LineError `json:"syntax_errors"`
	StructurallyValid bool        `json:"structurally_valid"`
	Problems          []string    `json:"problems,omitempty"`
}

func (r Report) OK() bool {
	return r.StructurallyValid && len(r.SyntaxErrors) == 0
}

// Messages flattens the report into human-readable strings.
func (r Report) Messages() []string {
	out := make([]string, 0, len(r.Problems)+len(r.SyntaxErrors))
	out = append(out, r.Problems...)
	for _, e := range r.SyntaxErrors {
		out = append(out, e.String())
	}
	return out
}

// Validate runs the heuristic checks over text.
func Validate(text string) Report {
	return NewDocument(text).Validate()
}

// Validate checks structure (at least three content lines, a leading header, at least one
// edge, at least two node or edge lines) and per-line syntax. It is a cheap filter for
// the common ways generated markup goes wrong, not a full grammar.
func (d *Document) Validate() Report {
	var r Report

	content := 0
	headerFirst := false
	arrows := false
	shaped := 0
	for _, line := range d.lines {
		kind := classifyLine(line)
		if kind == lineBlank || kind == lineComment {
			continue
		}
		content++
		if content == 1 {
			headerFirst = kind == lineHeader && strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "flowchart")
		}
		if strings.Contains(line, Arrow) {
			arrows = true
		}
		if strings.Contains(line, Arrow) || (strings.ContainsAny(line, "[{(") && strings.ContainsAny(line, "]})")) {
			shaped++
		}
	}
	if content < 3 {
		r.Problems = append(r.Problems, fmt.Sprintf("expected at least 3 lines, got %d", content))
	}
	if !headerFirst {
		r.Problems = append(r.Problems, "first line is not a flowchart header")
	}
	if !arrows {
		r.Problems = append(r.Problems, "no edges found")
	}
	if shaped < 2 {
		r.Problems = append(r.Problems, "expected at least 2 node or edge lines")
	}
	r.StructurallyValid = len(r.Problems) == 0

	standalone := map[string]bool{}
	defined := map[string]string{}
	endLabels := map[string]string{}
	for i, line := range d.lines {
		kind := classifyLine(line)
		if kind == lineBlank || kind == lineComment || kind == lineHeader {
			continue
		}
		n := i + 1
		r.SyntaxErrors = append(r.SyntaxErrors, checkBalance(n, line)...)
		if kind != lineStatement {
			continue
		}
		if e, ok := checkTrailing(n, line); ok {
			r.SyntaxErrors = append(r.SyntaxErrors, e)
		}

		ch := parseChain(line)
		if !ch.isEdge() {
			ref := ch.refs[0]
			if ref.Shape == ShapeNone && (ref.ID == "" || (ref.Rest != "" && ref.Rest != ";")) {
				r.SyntaxErrors = append(r.SyntaxErrors, LineError{Line: n, Kind: ErrUnrecognized, Message: "unrecognized statement"})
			}
			if ref.ID != "" {
				if standalone[ref.ID] {
					r.SyntaxErrors = append(r.SyntaxErrors, LineError{Line: n, Kind: ErrDuplicateDefinition,
						Message: fmt.Sprintf("node %q is defined more than once", ref.ID)})
				} else if prev, ok := defined[ref.ID]; ok && ref.Shape != ShapeNone && !isEndLabel(ref.Label) && !sameLabel(prev, ref.Label) {
					r.SyntaxErrors = append(r.SyntaxErrors, LineError{Line: n, Kind: ErrDuplicateDefinition,
						Message: fmt.Sprintf("node %q is redefined with a different label", ref.ID)})
				}
				standalone[ref.ID] = true
			}
		} else {
			for _, ref := range ch.refs {
				if ref.empty() {
					r.SyntaxErrors = append(r.SyntaxErrors, LineError{Line: n, Kind: ErrUnrecognized, Message: "edge is missing an endpoint"})
					break
				}
			}
		}
		for _, ref := range ch.refs {
			if (ref.Shape != ShapeNone || ch.isEdge()) && hasLetter(ref.Rest) {
				r.SyntaxErrors = append(r.SyntaxErrors, LineError{Line: n, Kind: ErrTrailingText,
					Message: fmt.Sprintf("unexpected text %q after node", ref.Rest)})
				break
			}
		}
		for _, ref := range ch.refs {
			if ref.ID == "" || ref.Shape == ShapeNone {
				continue
			}
			if !isEndLabel(ref.Label) {
				if prev, ok := defined[ref.ID]; !ok {
					defined[ref.ID] = ref.Label
				} else if ch.isEdge() && !sameLabel(prev, ref.Label) {
					r.SyntaxErrors = append(r.SyntaxErrors, LineError{Line: n, Kind: ErrDuplicateDefinition,
						Message: fmt.Sprintf("node %q is redefined with a different label", ref.ID)})
				}
				continue
			}
			if prev, ok := endLabels[ref.ID]; ok && !strings.EqualFold(prev, strings.TrimSpace(ref.Label)) {
				r.SyntaxErrors = append(r.SyntaxErrors, LineError{Line: n, Kind: ErrDuplicateDefinition,
					Message: fmt.Sprintf("end node %q is defined with conflicting labels", ref.ID)})
				continue
			}
			endLabels[ref.ID] = strings.TrimSpace(ref.Label)
		}
	}
	return r
}

// checkBalance compares opener and closer counts outside quoted spans and edge labels.
func checkBalance(n int, line string) []LineError {
	counts := map[byte]int{}
	inQuote := false
	inPipe := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '|':
			inPipe = !inPipe
		case inPipe:
		case isOpener(c) || isCloser(c):
			counts[c]++
		}
	}
	var out []LineError
	if counts['['] != counts[']'] {
		out = append(out, LineError{Line: n, Kind: ErrUnmatchedBracket, Message: "unmatched brackets"})
	}
	if counts['{'] != counts['}'] {
		out = append(out, LineError{Line: n, Kind: ErrUnmatchedBrace, Message: "unmatched braces"})
	}
	if counts['('] != counts[')'] {
		out = append(out, LineError{Line: n, Kind: ErrUnmatchedParen, Message: "unmatched parentheses"})
	}
	if inQuote {
		out = append(out, LineError{Line: n, Kind: ErrUnterminatedQuote, Message: "unterminated quote"})
	}
	return out
}

// checkTrailing reports text glued to the symbol that closes a node shape.
func checkTrailing(n int, line string) (LineError, bool) {
	depth := 0
	inQuote := false
	inPipe := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '|' && depth == 0:
			inPipe = !inPipe
		case inPipe:
		case isOpener(c):
			depth++
		case isCloser(c) && depth > 0:
			depth--
			if depth == 0 && i+1 < len(line) {
				next := line[i+1]
				if next != ' ' && next != '\t' && next != '-' && next != '|' {
					return LineError{Line: n, Kind: ErrTrailingText,
						Message: fmt.Sprintf("unexpected %q after closing %q", next, c)}, true
				}
			}
		}
	}
	return LineError{}, false
}
