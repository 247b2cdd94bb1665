package mermaid

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PlaceholderLabel replaces labels that clean down to nothing.
const PlaceholderLabel = "Label"

// structural holds the characters that force a label into quotes.
const structural = "[]{}():;,'\"`"

func needsQuote(label string) bool {
	return strings.ContainsAny(label, structural)
}

func quoteLabel(label string) string {
	if !needsQuote(label) {
		return label
	}
	return `"` + strings.ReplaceAll(label, `"`, "#quot;") + `"`
}

// CleanLabel reduces raw label text to the allow-listed alphabet: letters, digits,
// underscore, whitespace, hyphen, apostrophe and parentheses, plus '?' inside decisions.
func CleanLabel(raw string, shape Shape) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"`")
	s = strings.ReplaceAll(s, "#quot;", "'")
	s = strings.NewReplacer(`"`, "'", "`", "'").Replace(s)
	s = collapseDashes(s)
	s = strings.TrimRight(s, ".,;: \t")

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r == '-', r == '\'', r == '(', r == ')':
			b.WriteRune(r)
		case r == '?' && shape == ShapeDiamond:
			b.WriteRune(r)
		}
	}

	out := collapseSpaces(b.String())
	out = strings.Trim(out, "- ")
	out = strings.TrimSpace(out)
	if out == "" {
		return PlaceholderLabel
	}
	return out
}

// cleanEdgeLabel keeps punctuation; quoting happens on output.
func cleanEdgeLabel(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"`")
	s = strings.ReplaceAll(s, "#quot;", "'")
	s = strings.NewReplacer(`"`, "'", "`", "'", "|", " ").Replace(s)
	s = collapseDashes(s)
	s = strings.TrimRight(s, ".,;: \t")
	s = strings.Trim(collapseSpaces(s), "- ")
	return s
}

func collapseDashes(s string) string {
	for {
		i := strings.Index(s, "--")
		if i < 0 {
			return s
		}
		j := i
		for j < len(s) && s[j] == '-' {
			j++
		}
		s = s[:i] + "-" + s[j:]
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isEndLabel reports whether label begins with the word "End", case-insensitively.
func isEndLabel(label string) bool {
	s := strings.TrimSpace(label)
	if len(s) < 3 || !strings.EqualFold(s[:3], "end") {
		return false
	}
	if len(s) == 3 {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[3:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// canonicalEndLabel rewrites "End of process" to "End: of process". Labels that
// already carry a colon are left alone.
func canonicalEndLabel(label string) string {
	s := strings.TrimSpace(label)
	if strings.Contains(s, ":") {
		return s
	}
	rest := strings.TrimSpace(s[3:])
	rest = strings.TrimSpace(strings.TrimLeft(rest, "-"))
	if rest == "" {
		return "End"
	}
	return "End: " + rest
}
