package flowchart

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/flowchart-backend/internal/mermaid"
)

//go:embed templates.yaml
var templatesYAML []byte

const (
	maxFallbackSteps = 8
	maxStepRunes     = 50
	maxTopicRunes    = 40
)

type fallbackTemplate struct {
	Name    string   `yaml:"name"`
	AllOf   []string `yaml:"all_of"`
	AnyOf   []string `yaml:"any_of"`
	Diagram string   `yaml:"diagram"`

	all []*regexp.Regexp
	any []*regexp.Regexp
}

func (t *fallbackTemplate) matches(description string) bool {
	for _, re := range t.all {
		if !re.MatchString(description) {
			return false
		}
	}
	if len(t.any) == 0 {
		return true
	}
	for _, re := range t.any {
		if re.MatchString(description) {
			return true
		}
	}
	return false
}

var fallbackTemplates = mustLoadTemplates(templatesYAML)

func mustLoadTemplates(data []byte) []*fallbackTemplate {
	var file struct {
		Templates []*fallbackTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		panic(fmt.Sprintf("flowchart: embedded templates.yaml: %v", err))
	}
	compile := func(words []string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(words))
		for _, w := range words {
			out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(strings.TrimSpace(w))))
		}
		return out
	}
	for _, t := range file.Templates {
		t.Diagram = strings.TrimRight(t.Diagram, "\n")
		t.all = compile(t.AllOf)
		t.any = compile(t.AnyOf)
	}
	return file.Templates
}

var (
	bulletPrefix    = regexp.MustCompile(`^(?:[-*•+]+|\d+[.)])\s*`)
	clauseSeparator = regexp.MustCompile(`(?i)\s*(?:→|->|=>|;|,\s*then\b|\bthen\b|\.\s+|,)\s*`)
)

// Fallback returns a deterministic diagram for description. A topic template is used when
// one matches; otherwise the description is turned into a linear chain of at most eight
// steps. The result always passes mermaid.Validate.
func Fallback(description string) string {
	for _, t := range fallbackTemplates {
		if t.matches(description) {
			return t.Diagram
		}
	}
	return chainFallback(description)
}

func chainFallback(description string) string {
	steps := fallbackSteps(description)
	if len(steps) < 2 {
		topic := "Process"
		if len(steps) == 1 {
			topic = steps[0]
		} else if t := mermaid.CleanLabel(truncateRunes(strings.TrimSpace(description), maxTopicRunes), mermaid.ShapeRectangle); t != mermaid.PlaceholderLabel {
			topic = t
		}
		steps = []string{"Start", topic, "End"}
	}

	var b strings.Builder
	b.WriteString(mermaid.Header{Direction: mermaid.DirectionTD}.String())
	ids := make([]string, len(steps))
	for i, step := range steps {
		ids[i] = string(rune('A' + i))
		b.WriteString("\n    ")
		b.WriteString(mermaid.Node{ID: ids[i], Shape: mermaid.ShapeRectangle, Label: step}.String())
	}
	for i := 1; i < len(ids); i++ {
		b.WriteString("\n    ")
		b.WriteString(mermaid.Edge{From: ids[i-1], To: ids[i]}.String())
	}
	return b.String()
}

func fallbackSteps(description string) []string {
	var lines []string
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 1 {
		lines = clauseSeparator.Split(lines[0], -1)
	}

	var steps []string
	for _, line := range lines {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		label := mermaid.CleanLabel(truncateRunes(line, maxStepRunes), mermaid.ShapeRectangle)
		if label == mermaid.PlaceholderLabel {
			continue
		}
		steps = append(steps, label)
		if len(steps) == maxFallbackSteps {
			break
		}
	}
	return steps
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
