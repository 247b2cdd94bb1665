// Package mermaid implements a lenient reader and repairer for Mermaid flowchart markup.
//
// Text produced by a language model is treated as untrusted: the package can pull a
// diagram out of surrounding prose, check it with a cheap heuristic validator, and repair
// it through a sequence of line-oriented passes built on a bracket-depth scanner.
package mermaid

import (
	"strings"
)

type Direction string

const (
	DirectionTD Direction = "TD"
	DirectionTB Direction = "TB"
	DirectionBT Direction = "BT"
	DirectionRL Direction = "RL"
	DirectionLR Direction = "LR"
)

// ParseDirection returns the direction for tok, case-insensitively.
func ParseDirection(tok string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(tok))) {
	case DirectionTD:
		return DirectionTD, true
	case DirectionTB:
		return DirectionTB, true
	case DirectionBT:
		return DirectionBT, true
	case DirectionRL:
		return DirectionRL, true
	case DirectionLR:
		return DirectionLR, true
	default:
		return "", false
	}
}

type Header struct {
	Direction Direction
}

func (h Header) String() string {
	dir := h.Direction
	if dir == "" {
		dir = DirectionTD
	}
	return "flowchart " + string(dir)
}

type Shape int

const (
	ShapeNone Shape = iota
	ShapeRectangle
	ShapeDiamond
	ShapeRounded
)

func (s Shape) String() string {
	switch s {
	case ShapeRectangle:
		return "rectangle"
	case ShapeDiamond:
		return "diamond"
	case ShapeRounded:
		return "rounded"
	default:
		return "none"
	}
}

func (s Shape) open() string {
	switch s {
	case ShapeRectangle:
		return "["
	case ShapeDiamond:
		return "{"
	case ShapeRounded:
		return "("
	default:
		return ""
	}
}

func (s Shape) close() string {
	switch s {
	case ShapeRectangle:
		return "]"
	case ShapeDiamond:
		return "}"
	case ShapeRounded:
		return ")"
	default:
		return ""
	}
}

func shapeForOpener(c byte) Shape {
	switch c {
	case '[':
		return ShapeRectangle
	case '{':
		return ShapeDiamond
	case '(':
		return ShapeRounded
	default:
		return ShapeNone
	}
}

func closerFor(c byte) byte {
	switch c {
	case '[':
		return ']'
	case '{':
		return '}'
	case '(':
		return ')'
	default:
		return 0
	}
}

func isOpener(c byte) bool { return c == '[' || c == '{' || c == '(' }
func isCloser(c byte) bool { return c == ']' || c == '}' || c == ')' }

// Node is a node definition. Inner is set for compound shapes such as ((circle)) or [[subroutine]].
type Node struct {
	ID    string
	Shape Shape
	Inner Shape
	Label string
}

// String renders the definition, quoting the label when it carries structural punctuation.
func (n Node) String() string {
	if n.Shape == ShapeNone {
		return n.ID
	}
	var b strings.Builder
	b.WriteString(n.ID)
	b.WriteString(n.Shape.open())
	b.WriteString(n.Inner.open())
	b.WriteString(quoteLabel(n.Label))
	b.WriteString(n.Inner.close())
	b.WriteString(n.Shape.close())
	return b.String()
}

type Edge struct {
	From  string
	To    string
	Label string
}

func (e Edge) String() string {
	if e.Label == "" {
		return e.From + " " + Arrow + " " + e.To
	}
	return e.From + " " + Arrow + "|" + quoteLabel(e.Label) + "| " + e.To
}

// Arrow is the only edge token emitted by this package.
const Arrow = "-->"

// Document is an ordered sequence of diagram lines. Repair passes mutate it in place.
type Document struct {
	lines []string
}

func NewDocument(text string) *Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if strings.TrimSpace(text) == "" {
		return &Document{}
	}
	return &Document{lines: strings.Split(text, "\n")}
}

func (d *Document) String() string {
	if d == nil {
		return ""
	}
	return strings.Join(d.lines, "\n")
}

func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Header returns the first header line of the document, if any.
func (d *Document) Header() (Header, bool) {
	for _, line := range d.lines {
		if h, ok := parseHeaderLine(line); ok {
			return h, true
		}
	}
	return Header{}, false
}

// Nodes returns every node the document mentions, in order of first appearance.
// The first shaped definition of an identifier wins; identifiers only referenced by
// edges are reported with ShapeNone.
func (d *Document) Nodes() []Node {
	var out []Node
	index := map[string]int{}
	add := func(r ref) {
		if r.ID == "" {
			return
		}
		n := Node{ID: r.ID, Shape: r.Shape, Inner: r.Inner, Label: r.Label}
		if i, ok := index[r.ID]; ok {
			if out[i].Shape == ShapeNone && n.Shape != ShapeNone {
				out[i] = n
			}
			return
		}
		index[r.ID] = len(out)
		out = append(out, n)
	}
	for _, line := range d.lines {
		if classifyLine(line) != lineStatement {
			continue
		}
		ch := parseChain(line)
		for _, r := range ch.refs {
			add(r)
		}
	}
	return out
}

func (d *Document) Edges() []Edge {
	var out []Edge
	for _, line := range d.lines {
		if classifyLine(line) != lineStatement {
			continue
		}
		ch := parseChain(line)
		for i := 0; i+1 < len(ch.refs); i++ {
			if ch.refs[i].ID == "" || ch.refs[i+1].ID == "" {
				continue
			}
			out = append(out, Edge{From: ch.refs[i].ID, To: ch.refs[i+1].ID, Label: ch.labels[i]})
		}
	}
	return out
}
