package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"graph keyword and lowercase direction", "graph lr\nA --> B", []string{"flowchart LR", "A --> B"}},
		{"missing header", "A --> B", []string{"flowchart TD", "A --> B"}},
		{"extra headers removed", "flowchart LR\nA --> B\nflowchart TD", []string{"flowchart LR", "A --> B"}},
		{"indented header", "  flowchart BT;\nA --> B", []string{"flowchart BT", "A --> B"}},
		{"unknown direction", "flowchart XY\nA --> B", []string{"flowchart TD", "A --> B"}},
		{"node named Graph kept", "flowchart TD\nA --> Graph[Build]\nGraph --> C", []string{"flowchart TD", "A --> Graph[Build]", "Graph --> C"}},
		{"node named flowchart kept", "flowchart TD\nflowchart[Draw] --> B", []string{"flowchart TD", "flowchart[Draw] --> B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDocument(tt.text)
			d.NormalizeHeader()
			assert.Equal(t, tt.want, d.Lines())
		})
	}
}

func TestRemoveDuplicateDefinitions(t *testing.T) {
	d := NewDocument("flowchart TD\nA[One]\nA[Two]\nA --> B\nA --> B\nEnd[End]\nEnd[End]")
	d.RemoveDuplicateDefinitions()
	assert.Equal(t, []string{"flowchart TD", "A[One]", "A --> B", "A --> B", "End[End]", "End[End]"}, d.Lines())
}

func TestRemoveDuplicateDefinitionsAcrossEdges(t *testing.T) {
	d := NewDocument("flowchart TD\n    A[Start] --> B\n    A[Start again]\n    B --> A[Restart]\n    B --> C[Done]")
	d.RemoveDuplicateDefinitions()
	assert.Equal(t, []string{
		"flowchart TD",
		"    A[Start] --> B",
		"    B --> A",
		"    B --> C[Done]",
	}, d.Lines())
	assert.True(t, d.Validate().OK(), d.Validate().Messages())
}

func TestNormalizeSpacingIndentsGraphNamedNode(t *testing.T) {
	d := NewDocument("flowchart TD\nA --> Graph\nGraph --> C")
	d.NormalizeSpacing()
	assert.Equal(t, []string{"flowchart TD", "    A --> Graph", "    Graph --> C"}, d.Lines())
}

func TestNormalizeEndNodesInlineDefinitions(t *testing.T) {
	d := NewDocument("flowchart TD\n" +
		"    A[Start] --> B{Errors?}\n" +
		"    B -->|No| End[End of process]\n" +
		"    B -->|Yes| End[End with errors]")
	remap := d.NormalizeEndNodes()

	assert.Equal(t, IDRemap{"End": "End_1"}, remap)
	assert.Equal(t, []string{
		"flowchart TD",
		"    A[Start] --> B{Errors?}",
		`    B -->|No| End["End: of process"]`,
		`    B -->|Yes| End_1["End: with errors"]`,
	}, d.Lines())
	assert.True(t, d.Validate().OK())
}

func TestNormalizeEndNodesRebindsLaterReferences(t *testing.T) {
	d := NewDocument("flowchart TD\n" +
		"    End[End of process]\n" +
		"    A[Start] --> End\n" +
		"    End[End with errors]\n" +
		"    B[Fail] --> End")
	d.NormalizeEndNodes()

	assert.Equal(t, []string{
		"flowchart TD",
		`    End["End: of process"]`,
		"    A[Start] --> End",
		`    End_1["End: with errors"]`,
		"    B[Fail] --> End_1",
	}, d.Lines())

	defined := map[string]Node{}
	for _, n := range d.Nodes() {
		defined[n.ID] = n
	}
	for _, e := range d.Edges() {
		require.Contains(t, defined, e.From)
		require.Contains(t, defined, e.To)
		assert.NotEqual(t, ShapeNone, defined[e.To].Shape, e.To)
	}
}

func TestNormalizeEndNodesAvoidsExistingIdentifiers(t *testing.T) {
	d := NewDocument("flowchart TD\n    A --> End[End]\n    End_1[Other] --> End[End now]")
	d.NormalizeEndNodes()
	assert.Equal(t, `    End_1[Other] --> End_2["End: now"]`, d.Lines()[2])
}

func TestIDRemapApply(t *testing.T) {
	m := IDRemap{"End": "End_1", "End2": "X"}
	assert.Equal(t, []string{"End2", "End"}, m.Keys())
	assert.Equal(t, "End_1 --> X[End of End]", m.Apply("End --> End2[End of End]"))
	assert.Equal(t, "Endpoint --> End_1", m.Apply("Endpoint --> End"))
	assert.Equal(t, `A -->|"End"| End_1`, m.Apply(`A -->|"End"| End`))
	assert.Equal(t, "class End_1 done", m.Apply("class End done"))
}

func TestNormalizeSpacing(t *testing.T) {
	d := NewDocument("  flowchart TD\n\tA --> B\n  B --> C\n\n")
	d.NormalizeSpacing()
	assert.Equal(t, "flowchart TD\n    A --> B\n    B --> C", d.String())
}
