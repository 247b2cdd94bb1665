package flowchart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	mode, err := ResolveMode("2")
	require.NoError(t, err)

	msgs := BuildPrompt(mode, "  Order checkout  ")

	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[0].Content, mode.Instructions))
	assert.Contains(t, msgs[0].Content, "CRITICAL SYNTAX RULES")
	assert.Equal(t, "user", msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, RequestMarker+" Order checkout\n"))
	assert.NotContains(t, msgs[1].Content, "At least 10-15 nodes")
}

func TestBuildPromptComplexityHint(t *testing.T) {
	mode, err := ResolveMode("1")
	require.NoError(t, err)

	for _, desc := range []string{"a DETAILED onboarding flow", "full fledged CI pipeline", "complete refund process"} {
		msgs := BuildPrompt(mode, desc)
		assert.Contains(t, msgs[1].Content, "At least 10-15 nodes", desc)
	}
}
