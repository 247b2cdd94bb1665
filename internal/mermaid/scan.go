package mermaid

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// headerLine matches a trimmed line that is only a header: the keyword, an optional
	// two-letter direction and an optional ";". A node named graph or flowchart
	// (Graph --> B, Graph[Load] --> B) is a statement.
	headerLine = regexp.MustCompile(`(?i)^(?:flowchart|graph)(?:\s+([a-z]{2}))?\s*;?$`)

	// arrowVariant matches the arrow spellings models produce instead of "-->".
	arrowVariant = regexp.MustCompile(`-\.+->|={2,}>|-+ ?-* ?>|-{3,}|→|⟶|—>|–>`)
)

var keywords = map[string]bool{
	"subgraph":  true,
	"end":       true,
	"direction": true,
	"classDef":  true,
	"class":     true,
	"style":     true,
	"linkStyle": true,
	"click":     true,
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	lineHeader
	lineKeyword
	lineStatement
)

func classifyLine(line string) lineKind {
	t := strings.TrimSpace(line)
	switch {
	case t == "":
		return lineBlank
	case strings.HasPrefix(t, "%%"):
		return lineComment
	}
	if _, ok := parseHeaderLine(t); ok {
		return lineHeader
	}
	first := t
	if i := strings.IndexAny(t, " \t"); i >= 0 {
		first = t[:i]
	}
	if keywords[first] {
		return lineKeyword
	}
	return lineStatement
}

func parseHeaderLine(line string) (Header, bool) {
	m := headerLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Header{}, false
	}
	dir, ok := ParseDirection(m[1])
	if !ok {
		dir = DirectionTD
	}
	return Header{Direction: dir}, true
}

// canonicalArrows rewrites arrow variants outside quoted spans to "-->".
func canonicalArrows(line string) string {
	if !strings.Contains(line, `"`) {
		return arrowVariant.ReplaceAllString(line, Arrow)
	}
	parts := strings.Split(line, `"`)
	for i := 0; i < len(parts); i += 2 {
		parts[i] = arrowVariant.ReplaceAllString(parts[i], Arrow)
	}
	return strings.Join(parts, `"`)
}

// splitArrows splits a canonical line on arrows outside quotes and brackets. A line whose
// brackets never balance is split on every unquoted arrow, so an unclosed label ends at
// the next arrow.
func splitArrows(line string) []string {
	if parts, ok := splitArrowsAtDepth(line, true); ok {
		return parts
	}
	parts, _ := splitArrowsAtDepth(line, false)
	return parts
}

func splitArrowsAtDepth(line string, respectDepth bool) ([]string, bool) {
	var parts []string
	depth := 0
	inQuote := false
	last := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			continue
		case inQuote:
			continue
		case isOpener(c):
			depth++
		case isCloser(c):
			if depth > 0 {
				depth--
			}
		}
		if strings.HasPrefix(line[i:], Arrow) && (!respectDepth || depth == 0) {
			parts = append(parts, line[last:i])
			i += len(Arrow) - 1
			last = i + 1
		}
	}
	parts = append(parts, line[last:])
	return parts, depth == 0 || !respectDepth
}

// ref is one node reference inside a statement line.
type ref struct {
	ID     string
	Shape  Shape
	Inner  Shape
	Label  string
	Quoted bool
	Closed bool
	// Text holds the segment when no identifier could be read from it.
	Text string
	// Rest is whatever followed the reference inside its segment.
	Rest string
}

func (r ref) empty() bool {
	return r.ID == "" && r.Shape == ShapeNone && strings.TrimSpace(r.Text) == ""
}

func (r ref) String() string {
	switch {
	case r.Shape != ShapeNone:
		return Node{ID: r.ID, Shape: r.Shape, Inner: r.Inner, Label: r.Label}.String()
	case r.ID != "":
		return r.ID
	default:
		return strings.TrimSpace(r.Text)
	}
}

type chain struct {
	refs   []ref
	labels []string
}

func (c chain) isEdge() bool { return len(c.refs) > 1 }

func parseChain(line string) chain {
	parts := splitArrows(canonicalArrows(strings.TrimSpace(line)))
	var c chain
	textLabel := ""
	for i, p := range parts {
		if i > 0 {
			label := ""
			t := strings.TrimSpace(p)
			if strings.HasPrefix(t, "|") {
				if end := indexUnquoted(t[1:], '|'); end >= 0 {
					label = t[1 : 1+end]
					p = t[2+end:]
				} else {
					p = t[1:]
				}
			}
			if strings.TrimSpace(label) == "" {
				label = textLabel
			}
			c.labels = append(c.labels, unquote(strings.TrimSpace(label)))
		}
		r := scanRef(p)
		textLabel = ""
		if i < len(parts)-1 && strings.HasPrefix(r.Rest, "--") {
			textLabel = strings.TrimSpace(strings.TrimLeft(r.Rest, "- "))
			r.Rest = ""
		}
		c.refs = append(c.refs, r)
	}
	return c
}

func scanRef(seg string) ref {
	s := strings.TrimSpace(seg)
	var r ref
	id, n := scanIdent(s)
	r.ID = id
	i := n
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i < len(s) && isOpener(s[i]) && (id != "" || i == 0) {
		inner, end, closed := scanBracket(s, i)
		r.Shape = shapeForOpener(s[i])
		r.Closed = closed
		if closed {
			r.Rest = strings.TrimSpace(s[end+1:])
		}
		r.Label, r.Inner, r.Quoted = splitLabel(inner, r.Shape)
		return r
	}
	if id == "" {
		r.Text = s
		return r
	}
	r.Rest = strings.TrimSpace(s[n:])
	return r
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// scanIdent reads a leading identifier. A single hyphen between identifier characters,
// as in check-auth, is folded into an underscore.
func scanIdent(s string) (string, int) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if isIdentByte(c) {
			b.WriteByte(c)
			i++
			continue
		}
		if c == '-' && b.Len() > 0 && i+1 < len(s) && isIdentByte(s[i+1]) {
			b.WriteByte('_')
			i++
			continue
		}
		break
	}
	return b.String(), i
}

// scanBracket finds the closer matching s[open], counting nested openers of the same kind
// and skipping quoted spans. When no closer exists the remainder of s is the inner text.
func scanBracket(s string, open int) (inner string, closeIdx int, closed bool) {
	o := s[open]
	c := closerFor(o)
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == o:
			depth++
		case ch == c:
			depth--
			if depth == 0 {
				return s[open+1 : i], i, true
			}
		}
	}
	return s[open+1:], -1, false
}

func compoundShape(outer, inner Shape) bool {
	switch {
	case outer == ShapeRounded && (inner == ShapeRounded || inner == ShapeRectangle):
		return true
	case outer == ShapeRectangle && (inner == ShapeRounded || inner == ShapeRectangle):
		return true
	case outer == ShapeDiamond && inner == ShapeDiamond:
		return true
	}
	return false
}

// splitCompound detects labels such as "(circle)" inside a rounded node.
func splitCompound(inner string, outer Shape) (string, Shape, bool) {
	t := strings.TrimSpace(inner)
	if len(t) < 2 || !isOpener(t[0]) {
		return inner, ShapeNone, false
	}
	in := shapeForOpener(t[0])
	if !compoundShape(outer, in) || t[len(t)-1] != closerFor(t[0]) {
		return inner, ShapeNone, false
	}
	if _, end, ok := scanBracket(t, 0); !ok || end != len(t)-1 {
		return inner, ShapeNone, false
	}
	return t[1 : len(t)-1], in, true
}

func splitLabel(inner string, shape Shape) (string, Shape, bool) {
	label, in, _ := splitCompound(inner, shape)
	t := strings.TrimSpace(label)
	if isQuoted(t) {
		return t[1 : len(t)-1], in, true
	}
	return t, in, false
}

func isQuoted(t string) bool {
	return len(t) >= 2 && t[0] == '"' && t[len(t)-1] == '"' && !strings.Contains(t[1:len(t)-1], `"`)
}

func unquote(t string) string {
	if isQuoted(t) {
		return t[1 : len(t)-1]
	}
	return t
}

func indexUnquoted(s string, target byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inQuote = !inQuote
		case !inQuote && s[i] == target:
			return i
		}
	}
	return -1
}

func joinChain(nodes, labels []string) string {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 {
			label := ""
			if i-1 < len(labels) {
				label = labels[i-1]
			}
			if label == "" {
				b.WriteString(" " + Arrow + " ")
			} else {
				b.WriteString(" " + Arrow + "|" + quoteLabel(label) + "| ")
			}
		}
		b.WriteString(n)
	}
	return strings.TrimRight(b.String(), " ")
}

func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
