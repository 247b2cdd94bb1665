// Package openai generates text through the OpenAI Responses API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/inference/engine"
)

const defaultMaxOutputTokens = 4096

type Engine struct {
	client *openai.Client
	model  string
}

func New(cfg config.EngineConfig, extra ...option.RequestOption) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: api key required: %w", engine.ErrNotConfigured)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout.Duration > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout.Duration))
	}
	opts = append(opts, extra...)

	client := openai.NewClient(opts...)
	return &Engine{client: &client, model: cfg.Model}, nil
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	if model == "" {
		model = e.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	system, rest := engine.SplitSystem(messages)
	input := make(responses.ResponseInputParam, 0, len(rest))
	for _, m := range rest {
		role := responses.EasyInputMessageRoleUser
		if m.Role == "assistant" {
			role = responses.EasyInputMessageRoleAssistant
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Temperature:     openai.Float(opts.Temperature),
	}
	if system != "" {
		params.Instructions = openai.String(system)
	}

	result, err := e.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("openai generate: %w: %w", engine.ErrNotConfigured, err)
		}
		return "", fmt.Errorf("openai generate: %w", err)
	}
	text := result.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("openai generate: empty output")
	}
	return text, nil
}
