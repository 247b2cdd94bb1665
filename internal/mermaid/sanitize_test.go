package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sanitized(text string) []string {
	d := NewDocument(text)
	d.Sanitize()
	return d.Lines()
}

func TestSanitizeClosesUnterminatedLabel(t *testing.T) {
	got := sanitized("flowchart TD\nA[Start --> B[Step 1]\nB --> End")
	assert.Equal(t, []string{"flowchart TD", "A[Start] --> B[Step 1]", "B --> End"}, got)
}

func TestSanitizeStatements(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"label cleaned and quoted", "A[(do X) - extra, stuff;] --> B", `A["(do X) - extra stuff"] --> B`},
		{"decision keeps question mark", "C{Valid user?!} --> D[Ready?]", "C{Valid user?} --> D[Ready]"},
		{"empty label placeholder", "A[!!!] --> B", "A[Label] --> B"},
		{"short arrow", "A -> B", "A --> B"},
		{"thick arrow", "A ==> B", "A --> B"},
		{"dotted arrow", "A -.-> B", "A --> B"},
		{"open link", "A --- B", "A --> B"},
		{"text edge label", "A -- Yes --> B", "A -->|Yes| B"},
		{"edge label quoted", "A -->|Yes, go| B", `A -->|"Yes, go"| B`},
		{"circle kept", "A((Start)) --> B", "A((Start)) --> B"},
		{"junk after closer dropped", "A[Start]]; --> B[Next] extra", "A[Start] --> B[Next]"},
		{"quoted label unwrapped", `A["Plain"] --> B`, "A[Plain] --> B"},
		{"hyphenated id", "check-auth[Check] --> done", "check_auth[Check] --> done"},
		{"chain kept", "A --> B --> C", "A --> B --> C"},
		{"dangling arrow", "A[Start] -->", "A[Start]"},
		{"doubled dashes in label", "A[Send -- now] --> B", "A[Send - now] --> B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitized("flowchart TD\n" + tt.line)
			require.Len(t, got, 2)
			assert.Equal(t, tt.want, got[1])
		})
	}
}

func TestSanitizeSynthesizesIdentifiers(t *testing.T) {
	got := sanitized("flowchart TD\n[Start] --> B\nB --> (Done) \nnode0 --> B")
	assert.Equal(t, []string{"flowchart TD", "node1[Start] --> B", "B --> node2(Done)", "node0 --> B"}, got)
}

func TestSanitizeKeepsOnlyIdentifierOfBareText(t *testing.T) {
	got := sanitized("flowchart TD\nB --> Finish the job")
	assert.Equal(t, []string{"flowchart TD", "B --> Finish"}, got)
}

func TestSanitizeDropsProseAndComments(t *testing.T) {
	got := sanitized("flowchart TD\n%% note\nThis is some prose.\nA --> B\nsubgraph One\nend")
	assert.Equal(t, []string{"flowchart TD", "A --> B", "subgraph One", "end"}, got)
}

func TestFinalCleanup(t *testing.T) {
	d := NewDocument("flowchart TD\n    A[ -- ] --> B[Go -- on]x\n    C[\"Keep: this\"] --> D")
	d.FinalCleanup()
	assert.Equal(t, []string{
		"flowchart TD",
		"    A[Label] --> B[Go - on]",
		`    C["Keep: this"] --> D`,
	}, d.Lines())
}

func TestFixBracketsBalancesReportedLines(t *testing.T) {
	d := NewDocument("flowchart TD\n    A[Start --> B[Step 1]\n    B{Check)) --> C\n    C --> D")
	d.FixBrackets(d.Validate())
	assert.Equal(t, []string{
		"flowchart TD",
		"    A[Start] --> B[Step 1]",
		"    B{Check} --> C",
		"    C --> D",
	}, d.Lines())
}

func TestFixBracketsDropsTrailingText(t *testing.T) {
	d := NewDocument("flowchart TD\n    A[Start]x --> B\n    B --> C")
	d.FixBrackets(d.Validate())
	assert.Equal(t, "    A[Start] --> B", d.Lines()[1])
}

func TestWrapSpecialLabels(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"parentheses", "A[Get data (optional)] --> B[User's data]", `A["Get data (optional)"] --> B["User's data"]`},
		{"already quoted", `A["x: y"] --> B`, `A["x: y"] --> B`},
		{"edge label", "A -->|Yes, go| B", `A -->|"Yes, go"| B`},
		{"circle", "A((Start)) --> B", "A((Start)) --> B"},
		{"decision with colon", "B{Status: ok?} --> C", `B{"Status: ok?"} --> C`},
		{"plain", "A[Start] --> B[Next]", "A[Start] --> B[Next]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDocument("flowchart TD\n    " + tt.line)
			d.WrapSpecialLabels()
			assert.Equal(t, "    "+tt.want, d.Lines()[1])
		})
	}
}

func TestCleanLabel(t *testing.T) {
	assert.Equal(t, "Hello 'world'", CleanLabel(`Hello "world".`, ShapeRectangle))
	assert.Equal(t, "Ok?", CleanLabel("Ok?", ShapeDiamond))
	assert.Equal(t, "Ok", CleanLabel("Ok?", ShapeRectangle))
	assert.Equal(t, PlaceholderLabel, CleanLabel(" ;: ", ShapeRectangle))
	assert.Equal(t, "Café au lait", CleanLabel("Café  au lait", ShapeRounded))
}
