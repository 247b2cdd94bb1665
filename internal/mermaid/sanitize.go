package mermaid

import (
	"fmt"
	"strings"
)

// Sanitize rebuilds every statement line from its parsed node references: labels are
// cleaned, unclosed labels are closed, text after a closing symbol is dropped, arrows are
// canonicalized and nodes without an identifier get a synthesized one. Lines that read as
// prose are dropped. Comment lines are removed; header and keyword lines pass through.
func (d *Document) Sanitize() {
	synth := d.idSynthesizer()
	out := make([]string, 0, len(d.lines))
	for _, line := range d.lines {
		switch classifyLine(line) {
		case lineBlank, lineComment:
			continue
		case lineHeader, lineKeyword:
			out = append(out, strings.TrimSpace(line))
			continue
		}
		if s, ok := sanitizeStatement(line, synth); ok {
			out = append(out, s)
		}
	}
	d.lines = out
}

func (d *Document) idSynthesizer() func() string {
	taken := map[string]bool{}
	for _, n := range d.Nodes() {
		taken[n.ID] = true
	}
	next := 0
	return func() string {
		for {
			id := fmt.Sprintf("node%d", next)
			next++
			if !taken[id] {
				taken[id] = true
				return id
			}
		}
	}
}

func sanitizeStatement(line string, synth func() string) (string, bool) {
	ch := parseChain(line)
	if !ch.isEdge() {
		r := ch.refs[0]
		switch {
		case r.Shape != ShapeNone:
			return sanitizeRef(r, synth), true
		case r.ID != "" && !hasLetter(r.Rest):
			return r.ID, true
		default:
			return "", false
		}
	}

	var nodes, labels []string
	for i, r := range ch.refs {
		node := sanitizeRef(r, synth)
		if node == "" {
			continue
		}
		if len(nodes) > 0 {
			labels = append(labels, cleanEdgeLabel(ch.labels[i-1]))
		}
		nodes = append(nodes, node)
	}
	if len(nodes) == 0 {
		return "", false
	}
	return joinChain(nodes, labels), true
}

func sanitizeRef(r ref, synth func() string) string {
	switch {
	case r.Shape != ShapeNone:
		if r.ID == "" {
			r.ID = synth()
		}
		return Node{ID: r.ID, Shape: r.Shape, Inner: r.Inner, Label: CleanLabel(r.Label, r.Shape)}.String()
	case r.ID != "":
		return r.ID
	case strings.TrimSpace(r.Text) != "":
		return Node{ID: synth(), Shape: ShapeRectangle, Label: CleanLabel(r.Text, ShapeRectangle)}.String()
	default:
		return ""
	}
}

// FinalCleanup re-emits statement lines from their parsed form: trailing tokens after a
// closing symbol are dropped, doubled dashes inside labels collapse, and empty labels
// become PlaceholderLabel. Quoted labels keep their text.
func (d *Document) FinalCleanup() {
	for i, line := range d.lines {
		if classifyLine(line) != lineStatement {
			continue
		}
		ch := parseChain(line)
		nodes := make([]string, 0, len(ch.refs))
		labels := make([]string, 0, len(ch.labels))
		keep := true
		for k, r := range ch.refs {
			if r.ID == "" && r.Shape == ShapeNone {
				keep = false
				break
			}
			if r.Shape != ShapeNone {
				r.Label = strings.TrimSpace(collapseDashes(r.Label))
				if strings.Trim(r.Label, "- ") == "" {
					r.Label = PlaceholderLabel
				}
			}
			if k > 0 {
				labels = append(labels, strings.TrimSpace(collapseDashes(ch.labels[k-1])))
			}
			nodes = append(nodes, r.String())
		}
		if !keep {
			continue
		}
		d.lines[i] = leadingSpace(line) + joinChain(nodes, labels)
	}
}

// FixBrackets applies targeted repairs to the lines named in report: brackets are
// balanced (missing closers are inserted before the next arrow, stray closers dropped),
// text glued to a closing symbol is removed and unrecognized lines are dropped.
func (d *Document) FixBrackets(report Report) {
	byLine := map[int][]ErrorKind{}
	for _, e := range report.SyntaxErrors {
		byLine[e.Line] = append(byLine[e.Line], e.Kind)
	}
	if len(byLine) == 0 {
		return
	}
	out := make([]string, 0, len(d.lines))
	for i, line := range d.lines {
		kinds, ok := byLine[i+1]
		if !ok {
			out = append(out, line)
			continue
		}
		drop := false
		for _, k := range kinds {
			switch k {
			case ErrUnmatchedBracket, ErrUnmatchedBrace, ErrUnmatchedParen, ErrUnterminatedQuote:
				line = balanceLine(line)
			case ErrTrailingText:
				line = dropTrailingAfterClose(line)
			case ErrUnrecognized:
				drop = !strings.Contains(line, Arrow)
			}
		}
		if !drop {
			out = append(out, line)
		}
	}
	d.lines = out
}

func balanceLine(line string) string {
	var b strings.Builder
	var stack []byte
	inQuote := false
	closeAll := func() {
		if len(stack) == 0 {
			return
		}
		s := strings.TrimRight(b.String(), " \t")
		b.Reset()
		b.WriteString(s)
		for k := len(stack) - 1; k >= 0; k-- {
			b.WriteByte(closerFor(stack[k]))
		}
		b.WriteByte(' ')
		stack = stack[:0]
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '"' {
			inQuote = !inQuote
			b.WriteByte(c)
			continue
		}
		if inQuote {
			b.WriteByte(c)
			continue
		}
		if strings.HasPrefix(line[i:], Arrow) {
			closeAll()
		}
		switch {
		case isOpener(c):
			stack = append(stack, c)
			b.WriteByte(c)
		case isCloser(c):
			if len(stack) > 0 && closerFor(stack[len(stack)-1]) == c {
				stack = stack[:len(stack)-1]
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	if inQuote {
		b.WriteByte('"')
	}
	closeAll()
	return strings.TrimRight(b.String(), " ")
}

func dropTrailingAfterClose(line string) string {
	var b strings.Builder
	depth := 0
	inQuote := false
	skipping := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if skipping {
			if c == ' ' || c == '\t' || c == '-' || c == '|' {
				skipping = false
			} else {
				continue
			}
		}
		b.WriteByte(c)
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case isOpener(c):
			depth++
		case isCloser(c) && depth > 0:
			depth--
			if depth == 0 {
				skipping = true
			}
		}
	}
	return b.String()
}

// WrapSpecialLabels quotes node and edge labels that still contain structural
// punctuation. Labels that are already quoted are left alone; nothing else on the line
// changes.
func (d *Document) WrapSpecialLabels() {
	for i, line := range d.lines {
		if classifyLine(line) != lineStatement {
			continue
		}
		d.lines[i] = wrapLine(line)
	}
}

func wrapLine(line string) string {
	var b strings.Builder
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == '"':
			j := strings.IndexByte(line[i+1:], '"')
			if j < 0 {
				b.WriteString(line[i:])
				return b.String()
			}
			b.WriteString(line[i : i+j+2])
			i += j + 2
		case c == '|':
			j := indexUnquoted(line[i+1:], '|')
			if j < 0 {
				b.WriteString(line[i:])
				return b.String()
			}
			b.WriteByte('|')
			b.WriteString(wrapText(line[i+1 : i+1+j]))
			b.WriteByte('|')
			i += j + 2
		case isIdentByte(c):
			_, n := scanIdent(line[i:])
			k := i + n
			if k < len(line) && isOpener(line[k]) {
				if inner, end, closed := scanBracket(line, k); closed {
					b.WriteString(line[i : k+1])
					b.WriteString(wrapInner(inner, shapeForOpener(line[k])))
					b.WriteByte(line[end])
					i = end + 1
					continue
				}
			}
			b.WriteString(line[i:k])
			i = k
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func wrapInner(inner string, shape Shape) string {
	if label, in, ok := splitCompound(inner, shape); ok {
		return in.open() + wrapText(label) + in.close()
	}
	return wrapText(inner)
}

func wrapText(s string) string {
	t := strings.TrimSpace(s)
	if t == "" || isQuoted(t) || !needsQuote(t) {
		return s
	}
	return `"` + strings.ReplaceAll(t, `"`, "#quot;") + `"`
}
