package flowchart

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/flowchart-backend/internal/mermaid"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

func newTestController() *Controller {
	return NewController(logger.NewNop())
}

func TestResolveValidInputOnlyNormalizesLayout(t *testing.T) {
	raw := "```mermaid\nflowchart TD\n  A[Start] --> B{Ok?}\n  B -->|Yes| C[Done]\n  B -->|No| A\n```"

	out := newTestController().Resolve(context.Background(), raw, "anything")

	assert.Equal(t, StateEmitted, out.State)
	assert.Equal(t, []State{StateRaw, StateExtracted, StateValid, StateEmitted}, out.Path)
	assert.False(t, out.Degraded)
	assert.Nil(t, out.Reason)
	assert.Equal(t, OutcomeValid, out.Kind())
	assert.Equal(t, "flowchart TD\n    A[Start] --> B{Ok?}\n    B -->|Yes| C[Done]\n    B -->|No| A", out.Code)
	assert.True(t, out.Report.OK())
}

func TestResolveIsStableOnItsOwnOutput(t *testing.T) {
	c := newTestController()
	first := c.Resolve(context.Background(), "flowchart LR\n\tA[Start] --> B[Step]\n\tB --> C[Stop]", "")
	second := c.Resolve(context.Background(), first.Code, "")

	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, OutcomeValid, second.Kind())
	assert.True(t, strings.HasPrefix(second.Code, "flowchart LR\n"))
}

func TestResolveRepairsUnclosedBracket(t *testing.T) {
	raw := "flowchart TD\n    A[Start --> B[Step 1]\n    B --> End"

	out := newTestController().Resolve(context.Background(), raw, "")

	assert.Equal(t, []State{StateRaw, StateExtracted, StateNeedsRepair, StateRepaired, StateValid, StateEmitted}, out.Path)
	assert.Equal(t, OutcomeRepaired, out.Kind())
	assert.False(t, out.Degraded)
	assert.Equal(t, "flowchart TD\n    A[Start] --> B[Step 1]\n    B --> End", out.Code)
}

func TestResolveGivesConflictingEndNodesDistinctIdentifiers(t *testing.T) {
	raw := "flowchart TD\n" +
		"    A[Start] --> B{Errors?}\n" +
		"    B -->|No| End[End of process]\n" +
		"    B -->|Yes| End[End with errors]"

	out := newTestController().Resolve(context.Background(), raw, "")

	require.Equal(t, OutcomeRepaired, out.Kind())
	assert.Equal(t, "flowchart TD\n"+
		"    A[Start] --> B{Errors?}\n"+
		`    B -->|No| End["End: of process"]`+"\n"+
		`    B -->|Yes| End_1["End: with errors"]`, out.Code)

	labels := map[string]string{}
	for _, n := range mermaid.NewDocument(out.Code).Nodes() {
		if n.Shape == mermaid.ShapeNone {
			continue
		}
		prev, seen := labels[n.ID]
		assert.False(t, seen && prev != n.Label, "node %s has two labels", n.ID)
		labels[n.ID] = n.Label
	}
}

func TestResolveAddsMissingHeader(t *testing.T) {
	out := newTestController().Resolve(context.Background(), "A[Start] --> B[Stop]\nB --> C", "")

	assert.False(t, out.Degraded)
	assert.Equal(t, "flowchart TD\n    A[Start] --> B[Stop]\n    B --> C", out.Code)
}

func TestResolveFallsBackWithoutDiagram(t *testing.T) {
	desc := "Receive order; check stock; ship it"

	out := newTestController().Resolve(context.Background(), "Sorry, I can't help with that.", desc)

	assert.Equal(t, []State{StateRaw, StateUnrecoverable, StateFallbackEmitted}, out.Path)
	assert.True(t, out.Degraded)
	assert.Equal(t, OutcomeFallback, out.Kind())
	assert.True(t, errors.Is(out.Reason, ErrExtraction))
	assert.Equal(t, Fallback(desc), out.Code)
	assert.True(t, out.Report.OK())
}

func TestResolveFallsBackWhenRepairFails(t *testing.T) {
	out := newTestController().Resolve(context.Background(), "flowchart TD\n%% nothing here", "Receive order; ship it")

	assert.Equal(t, []State{
		StateRaw, StateExtracted, StateNeedsRepair, StateRepaired, StateUnrecoverable, StateFallbackEmitted,
	}, out.Path)
	assert.True(t, out.Degraded)
	assert.True(t, errors.Is(out.Reason, ErrValidation))
	assert.True(t, mermaid.Validate(out.Code).OK())
}

func TestRecover(t *testing.T) {
	reason := errors.New("upstream timeout")

	out := newTestController().Recover(context.Background(), "User login", reason)

	assert.Equal(t, []State{StateRaw, StateUnrecoverable, StateFallbackEmitted}, out.Path)
	assert.True(t, out.Degraded)
	assert.ErrorIs(t, out.Reason, reason)
	assert.Equal(t, Fallback("User login"), out.Code)
}

func TestResolveKeepsNodesNamedGraph(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "target",
			raw:  "flowchart TD\n    A[Load data] --> Graph[Build graph]\n    Graph --> C[Publish]",
			want: "flowchart TD\n    A[Load data] --> Graph[Build graph]\n    Graph --> C[Publish]",
		},
		{
			name: "first edge",
			raw:  "flowchart TD\nGraph[Load data] --> B[Plot]\nB --> C[Done]",
			want: "flowchart TD\n    Graph[Load data] --> B[Plot]\n    B --> C[Done]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newTestController().Resolve(context.Background(), tt.raw, "")
			assert.Equal(t, OutcomeValid, out.Kind())
			assert.Equal(t, tt.want, out.Code)
		})
	}
}

func TestResolveEmitsOnlyValidCode(t *testing.T) {
	inputs := []string{
		"flowchart TD\n    A[Start] --> B[Next]\n    B --> C[Done]",
		"flowchart TD\n    A[Load data] --> Graph[Build graph]\n    Graph --> C[Publish]",
		"flowchart TD\n    A[Start] --> B\n    A[Start again]\n    B --> C[Done]",
		"flowchart TD\n    A --> B\n    graph LR\n    B --> C[Done]",
		"graph TD; A[One]-->B[Two]; B-->C[Three]",
		"flowchart TD\n    A[Start --> B[Step 1]\n    B --> End",
		"flowchart TD\n    A[Start] --> B{Errors?}\n    B -->|No| End[End of process]\n    B -->|Yes| End[End with errors]",
		"flowchart TD\n    A[Start]x --> B\n    B --> C",
		"flowchart TD\n%% nothing here",
		"no diagram at all",
	}
	c := newTestController()
	for _, raw := range inputs {
		out := c.Resolve(context.Background(), raw, "Receive order; ship it")
		report := mermaid.Validate(out.Code)
		assert.True(t, report.OK(), "input %q emitted %q: %v", raw, out.Code, report.Messages())
		assert.Equal(t, report.OK(), out.Report.OK(), "input %q", raw)

		again := c.Resolve(context.Background(), out.Code, "Receive order; ship it")
		assert.Equal(t, out.Code, again.Code, "input %q", raw)
	}
}

func TestResolveRepairsInlineRedefinition(t *testing.T) {
	out := newTestController().Resolve(context.Background(), "flowchart TD\n    A[Start] --> B\n    A[Start again]\n    B --> C[Done]", "")

	assert.Equal(t, OutcomeRepaired, out.Kind())
	assert.Equal(t, "flowchart TD\n    A[Start] --> B\n    B --> C[Done]", out.Code)
}

func TestResolveRecoversFromPanickingPass(t *testing.T) {
	c := newTestController()
	c.normalize = func(*mermaid.Document) { panic("index out of range") }
	desc := "Receive order; check stock; ship it"

	out := c.Resolve(context.Background(), "flowchart TD\n    A[Start --> B[Step 1]\n    B --> End", desc)

	assert.Equal(t, []State{
		StateRaw, StateExtracted, StateNeedsRepair, StateUnrecoverable, StateFallbackEmitted,
	}, out.Path)
	assert.True(t, out.Degraded)
	assert.True(t, errors.Is(out.Reason, ErrValidation))
	assert.Contains(t, out.Reason.Error(), "index out of range")
	assert.Equal(t, Fallback(desc), out.Code)
}
