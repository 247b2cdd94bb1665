// Package mock is a deterministic engine for local runs and tests. It reads the request
// line of the last user message and draws it as a linear flowchart: steps ending in "?"
// become decisions and a following "a | b" step becomes the Yes/No branches.
package mock

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/flowchart-backend/internal/inference/engine"
)

const requestMarker = "USER REQUEST:"

var stepSeparator = regexp.MustCompile(`\s*(?:→|->|;|\bthen\b|,)\s*`)

type Engine struct {
	// Raw, when set, is returned verbatim instead of a generated diagram.
	Raw string
	// Err, when set, is returned by every call.
	Err error
}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	_ = model
	_ = opts
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.Err != nil {
		return "", e.Err
	}
	if e.Raw != "" {
		return e.Raw, nil
	}

	var user string
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, "user") {
			user = messages[i].Content
			break
		}
	}
	return "Here is the flowchart:\n```mermaid\n" + diagram(requestLine(user)) + "\n```", nil
}

func requestLine(user string) string {
	if i := strings.Index(user, requestMarker); i >= 0 {
		user = user[i+len(requestMarker):]
	}
	user = strings.TrimSpace(user)
	if i := strings.IndexByte(user, '\n'); i >= 0 {
		user = user[:i]
	}
	return strings.TrimSpace(user)
}

func diagram(request string) string {
	var steps []string
	for _, s := range stepSeparator.Split(request, -1) {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		steps = []string{"Process"}
	}

	n := 0
	nextID := func() string {
		id := string(rune('A' + n%26))
		if n >= 26 {
			id += fmt.Sprint(n / 26)
		}
		n++
		return id
	}

	lines := []string{"flowchart TD"}
	add := func(format string, args ...any) { lines = append(lines, "    "+fmt.Sprintf(format, args...)) }

	start := nextID()
	prev, prevDef := start, start+"[Start]"
	decision := false
	var tails []string
	for _, step := range steps {
		if decision && strings.Contains(step, "|") {
			branches := strings.SplitN(step, "|", 2)
			for i, b := range branches {
				id := nextID()
				edgeLabel := "Yes"
				if i == 1 {
					edgeLabel = "No"
				}
				add("%s -->|%s| %s[%s]", prev, edgeLabel, id, strings.TrimSpace(b))
				tails = append(tails, id)
			}
			prevDef = ""
			decision = false
			continue
		}
		id := nextID()
		def := id + "[" + step + "]"
		if strings.HasSuffix(step, "?") {
			def = id + "{" + step + "}"
		}
		if len(tails) > 0 {
			for _, t := range tails {
				add("%s --> %s", t, def)
				def = id
			}
			tails = nil
		} else {
			src := prev
			if prevDef != "" {
				src = prevDef
			}
			if decision {
				add("%s -->|Yes| %s", src, def)
			} else {
				add("%s --> %s", src, def)
			}
		}
		prev, prevDef = id, ""
		decision = strings.HasSuffix(step, "?")
	}

	end := nextID()
	if len(tails) == 0 {
		tails = []string{prev}
	}
	def := end + "[End]"
	for _, t := range tails {
		add("%s --> %s", t, def)
		def = end
	}
	return strings.Join(lines, "\n")
}
