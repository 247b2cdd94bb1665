package engine

import (
	"context"
	"errors"
)

// ErrNotConfigured marks an engine that cannot run because a credential or endpoint is missing.
var ErrNotConfigured = errors.New("engine not configured")

type Message struct {
	Role    string `json:"role" msgpack:"role"`
	Content string `json:"content" msgpack:"content"`
}

type GenerateOptions struct {
	Temperature float64
	// MaxTokens caps the completion length; zero leaves the provider default.
	MaxTokens int
}

type Engine interface {
	GenerateText(ctx context.Context, model string, messages []Message, opts GenerateOptions) (string, error)
}

// SplitSystem separates system messages, joined by blank lines, from the conversation.
func SplitSystem(messages []Message) (system string, rest []Message) {
	var sys []byte
	for _, m := range messages {
		if m.Role == "system" {
			if len(sys) > 0 {
				sys = append(sys, "\n\n"...)
			}
			sys = append(sys, m.Content...)
			continue
		}
		rest = append(rest, m)
	}
	return string(sys), rest
}
