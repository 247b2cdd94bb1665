package mermaid

import (
	"fmt"
	"sort"
	"strings"
)

// NormalizeHeader makes the first line a canonical header, keeping the first declared
// direction (TD when none is declared) and removing any further header lines.
func (d *Document) NormalizeHeader() {
	h := Header{Direction: DirectionTD}
	found := false
	out := make([]string, 0, len(d.lines)+1)
	for _, line := range d.lines {
		if classifyLine(line) == lineHeader {
			if !found {
				h, _ = parseHeaderLine(line)
				found = true
			}
			continue
		}
		out = append(out, line)
	}
	d.lines = append([]string{h.String()}, out...)
}

// RemoveDuplicateDefinitions keeps the first definition of each identifier, whether it was
// written on its own line or inline in an edge. Later standalone definitions are dropped
// and later inline ones with a different label lose their shape, so the edge itself
// survives as a plain reference. End nodes are left for NormalizeEndNodes.
func (d *Document) RemoveDuplicateDefinitions() {
	labels := map[string]string{}
	out := make([]string, 0, len(d.lines))
	for _, line := range d.lines {
		if classifyLine(line) != lineStatement {
			out = append(out, line)
			continue
		}
		ch := parseChain(line)
		if !ch.isEdge() {
			r := ch.refs[0]
			if r.ID == "" || r.Shape == ShapeNone || isEndLabel(r.Label) {
				out = append(out, line)
				continue
			}
			if _, ok := labels[r.ID]; ok {
				continue
			}
			labels[r.ID] = r.Label
			out = append(out, line)
			continue
		}

		changed := false
		nodes := make([]string, len(ch.refs))
		for i, r := range ch.refs {
			if r.ID != "" && r.Shape != ShapeNone && !isEndLabel(r.Label) {
				if prev, ok := labels[r.ID]; !ok {
					labels[r.ID] = r.Label
				} else if !sameLabel(prev, r.Label) {
					r = ref{ID: r.ID}
					changed = true
				}
			}
			nodes[i] = r.String()
		}
		if changed {
			line = leadingSpace(line) + joinChain(nodes, ch.labels)
		}
		out = append(out, line)
	}
	d.lines = out
}

func sameLabel(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// IDRemap maps an identifier to the identifier that replaced it.
type IDRemap map[string]string

// Keys returns the remapped identifiers, longest first.
func (m IDRemap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (m IDRemap) Resolve(id string) string {
	if to, ok := m[id]; ok {
		return to
	}
	return id
}

// Apply rewrites whole identifier tokens in line. Labels, quoted spans and edge text are
// not touched, so "End" inside "End of process" survives a remap of End.
func (m IDRemap) Apply(line string) string {
	if len(m) == 0 {
		return line
	}
	keys := m.Keys()
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
			b.WriteString(line[i : i+j+2])
			i += j + 2
		case isOpener(c):
			_, end, closed := scanBracket(line, i)
			if !closed {
				b.WriteString(line[i:])
				return b.String()
			}
			b.WriteString(line[i : end+1])
			i = end + 1
		case isIdentByte(c):
			matched := false
			for _, k := range keys {
				e := i + len(k)
				if strings.HasPrefix(line[i:], k) && (e == len(line) || !isIdentByte(line[e])) {
					b.WriteString(m[k])
					i = e
					matched = true
					break
				}
			}
			if !matched {
				j := i
				for j < len(line) && isIdentByte(line[j]) {
					j++
				}
				b.WriteString(line[i:j])
				i = j
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// NormalizeEndNodes gives every End node its own identifier. The first End definition of
// an identifier keeps it; later ones get a numeric suffix (End, End_1, End_2). References
// that follow a renamed definition bind to the newest identifier. End labels take the
// "End: detail" form. The returned remap holds the final binding of every renamed base.
func (d *Document) NormalizeEndNodes() IDRemap {
	taken := map[string]bool{}
	for _, n := range d.Nodes() {
		taken[n.ID] = true
	}
	claims := map[string]int{}
	remap := IDRemap{}

	for i, line := range d.lines {
		switch classifyLine(line) {
		case lineKeyword:
			d.lines[i] = remap.Apply(line)
			continue
		case lineStatement:
		default:
			continue
		}
		ch := parseChain(line)
		if !ch.hasEndDefinition() && len(remap) == 0 {
			continue
		}
		nodes := make([]string, 0, len(ch.refs))
		for _, r := range ch.refs {
			if r.ID != "" && r.Shape != ShapeNone && isEndLabel(r.Label) {
				base := r.ID
				if n, ok := claims[base]; ok {
					for {
						n++
						cand := fmt.Sprintf("%s_%d", base, n)
						if !taken[cand] {
							taken[cand] = true
							claims[base] = n
							remap[base] = cand
							r.ID = cand
							break
						}
					}
				} else {
					claims[base] = 0
				}
				r.Label = canonicalEndLabel(r.Label)
			} else {
				r.ID = remap.Resolve(r.ID)
			}
			nodes = append(nodes, r.String())
		}
		d.lines[i] = leadingSpace(line) + joinChain(nodes, ch.labels)
	}
	return remap
}

func (c chain) hasEndDefinition() bool {
	for _, r := range c.refs {
		if r.ID != "" && r.Shape != ShapeNone && isEndLabel(r.Label) {
			return true
		}
	}
	return false
}

// NormalizeSpacing expands tabs, leaves the header unindented, indents every other
// non-empty line by four spaces and trims trailing blank lines.
func (d *Document) NormalizeSpacing() {
	for i, line := range d.lines {
		t := strings.TrimSpace(strings.ReplaceAll(line, "\t", "    "))
		switch {
		case t == "":
			d.lines[i] = ""
		case classifyLine(t) == lineHeader:
			d.lines[i] = t
		default:
			d.lines[i] = "    " + t
		}
	}
	for len(d.lines) > 0 && d.lines[len(d.lines)-1] == "" {
		d.lines = d.lines[:len(d.lines)-1]
	}
}
