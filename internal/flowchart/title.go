package flowchart

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yungbote/flowchart-backend/internal/mermaid"
)

const defaultTitle = "Flowchart Diagram"

var requestPrefixes = []string{
	"create a flowchart",
	"make a flowchart",
	"generate a flowchart",
	"draw a flowchart",
	"create flowchart",
	"make flowchart",
	"generate flowchart",
	"draw flowchart",
	"create a diagram",
	"make a diagram",
	"generate a diagram",
	"draw a diagram",
	"illustrate",
	"show",
	"visualize",
}

var genericLabels = map[string]bool{"start": true, "end": true, "begin": true, "finish": true}

// Title names a diagram. The first descriptive node label wins (rectangles before
// decisions before rounded nodes); otherwise the description with any "create a
// flowchart of" style prefix removed; otherwise a generic title.
func Title(description, code string) string {
	label := firstDescriptiveLabel(code)
	if utf8.RuneCountInString(label) > 5 {
		return ellipsize(label, 40)
	}
	if task := cleanTask(description); task != "" {
		return ellipsize(task, 35)
	}
	return defaultTitle
}

func firstDescriptiveLabel(code string) string {
	nodes := mermaid.NewDocument(code).Nodes()
	for _, shape := range []mermaid.Shape{mermaid.ShapeRectangle, mermaid.ShapeDiamond, mermaid.ShapeRounded} {
		for _, n := range nodes {
			if n.Shape != shape {
				continue
			}
			label := strings.TrimSpace(n.Label)
			if utf8.RuneCountInString(label) > 3 && !genericLabels[strings.ToLower(label)] {
				return label
			}
		}
	}
	return ""
}

func cleanTask(description string) string {
	task := strings.TrimSpace(description)
	lower := strings.ToLower(task)
	for _, p := range requestPrefixes {
		if !strings.HasPrefix(lower, p) {
			continue
		}
		task = strings.TrimSpace(task[len(p):])
		lower = strings.ToLower(task)
		for _, joiner := range []string{"of ", "for ", "about "} {
			if strings.HasPrefix(lower, joiner) {
				task = strings.TrimSpace(task[len(joiner):])
				break
			}
		}
		break
	}
	if task == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(task)
	return string(unicode.ToUpper(r)) + task[size:]
}

func ellipsize(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n])) + "..."
}
