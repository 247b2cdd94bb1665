package mermaid

import (
	"regexp"
	"strings"
)

var (
	headerWithDirection = regexp.MustCompile(`(?i)\b(?:flowchart|graph)\s+(?:TD|TB|BT|RL|LR)\b`)
	headerKeyword       = regexp.MustCompile(`(?i)^graph\b`)
	// headerInline matches "graph TD; A-->B; B-->C" written on a single line.
	headerInline = regexp.MustCompile(`(?i)^((?:flowchart|graph)\s+(?:TD|TB|BT|RL|LR))\s*;\s*(.+)$`)
)

// Extract pulls the flowchart out of raw model output. It strips a surrounding code
// fence, starts at the first header (preferring one with a direction), and stops at a
// closing fence or at prose that follows a blank line. Blank and comment lines are
// dropped. A "graph" header is rewritten to "flowchart", and statements written on the
// header line after a ";" are split onto their own lines. The result is "" when no header
// can be found.
func Extract(raw string) string {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if text == "" {
		return ""
	}
	lines := strings.Split(stripOuterFence(text), "\n")

	start, col := findHeader(lines)
	if start < 0 {
		return ""
	}
	header := strings.TrimSpace(lines[start][col:])
	var inline []string
	if m := headerInline.FindStringSubmatch(header); m != nil {
		header = m[1]
		for _, stmt := range strings.Split(m[2], ";") {
			if t := strings.TrimSpace(stmt); t != "" {
				inline = append(inline, t)
			}
		}
	}
	header = headerKeyword.ReplaceAllString(header, "flowchart")
	out := append([]string{header}, inline...)

	sawBlank := false
	for _, line := range lines[start+1:] {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "```") {
			break
		}
		if t == "" {
			sawBlank = true
			continue
		}
		if strings.HasPrefix(t, "%%") || strings.HasPrefix(t, "#") {
			continue
		}
		if sawBlank && looksLikeProse(t) {
			break
		}
		sawBlank = false
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}

func stripOuterFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")[1:]
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// findHeader returns the line and column where the diagram starts. A header opening its
// line wins over one embedded in prose, and a header with a direction wins over a bare
// keyword.
func findHeader(lines []string) (int, int) {
	for i, line := range lines {
		t := strings.TrimLeft(line, " \t")
		if loc := headerWithDirection.FindStringIndex(t); loc != nil && loc[0] == 0 {
			return i, len(line) - len(t)
		}
	}
	for i, line := range lines {
		if loc := headerWithDirection.FindStringIndex(line); loc != nil {
			return i, loc[0]
		}
	}
	for i, line := range lines {
		t := strings.TrimLeft(line, " \t")
		if _, ok := parseHeaderLine(t); ok {
			return i, len(line) - len(t)
		}
	}
	return -1, 0
}

// looksLikeProse reports whether a line has none of the diagram's structural tokens and
// reads as a sentence.
func looksLikeProse(t string) bool {
	if strings.Contains(t, "--") || strings.Contains(t, "->") || strings.Contains(t, "==>") {
		return false
	}
	if strings.ContainsAny(t, "[]{}()|") {
		return false
	}
	if classifyLine(t) == lineKeyword {
		return false
	}
	return len(strings.Fields(t)) >= 2
}
