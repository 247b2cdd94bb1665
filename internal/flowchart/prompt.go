package flowchart

import (
	"strings"

	"github.com/yungbote/flowchart-backend/internal/inference/engine"
)

const syntaxRules = `CRITICAL SYNTAX RULES (MUST FOLLOW):
1. Start with exactly "flowchart TD" (or LR/TB/BT/RL) with no semicolon and no extra text
2. Node labels must not contain:
   - Periods, commas or semicolons after a closing bracket or brace
   - Trailing fragments such as "etc.)"
   - Unmatched brackets, braces or parentheses
3. After the symbol that closes a node definition there may only be whitespace, an arrow (-->) or a pipe for an edge label (|)
4. Node IDs use letters, digits and underscores only, and every ID is unique
5. Labels are plain text without trailing punctuation
6. End nodes use the form "End: Description", for example "End: Success" or "End: Error"
7. Indent with 4 spaces, never tabs
8. Every line looks like ID[Label] --> ID or ID{Label} --> ID with no stray characters`

const promptExample = `Example for "notification system":
flowchart TD
    A[User Action] --> B[Trigger Notification]
    B --> C{Permission Granted?}
    C -->|Yes| D[Send Notification]
    C -->|No| E[Request Permission]
    E --> C
    D --> F[User Sees Notification]`

const complexityHintText = `IMPORTANT: the user asked for a full, detailed flowchart. Include:
- Multiple steps and decision points
- All major components and flows
- At least 10-15 nodes
- The complete end-to-end process
- Edge cases and error branches`

// RequestMarker prefixes the description inside the user message.
const RequestMarker = "USER REQUEST:"

var complexityWords = []string{"full", "fledged", "detailed", "complete"}

func wantsDetail(description string) bool {
	lower := strings.ToLower(description)
	for _, w := range complexityWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// BuildPrompt renders the mode instructions and the shared syntax rules as the system
// message and the description as the user message.
func BuildPrompt(mode Mode, description string) []engine.Message {
	var sys strings.Builder
	sys.WriteString(mode.Instructions)
	sys.WriteString("\n\n")
	sys.WriteString(syntaxRules)
	sys.WriteString("\n\n")
	sys.WriteString(promptExample)

	var user strings.Builder
	user.WriteString(RequestMarker)
	user.WriteString(" ")
	user.WriteString(strings.TrimSpace(description))
	if wantsDetail(description) {
		user.WriteString("\n\n")
		user.WriteString(complexityHintText)
	}
	user.WriteString("\n\nYOUR TASK:\n")
	user.WriteString("1. Work out which process or system needs a flowchart\n")
	user.WriteString("2. Break it into clear steps with decision points, loops and branches\n")
	user.WriteString("3. Close every node definition and keep labels short\n")
	user.WriteString("\nOUTPUT: only valid Mermaid code, nothing else.")

	return []engine.Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: user.String()},
	}
}
