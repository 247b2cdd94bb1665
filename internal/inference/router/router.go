package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/inference/engine"
	"github.com/yungbote/flowchart-backend/internal/inference/engine/anthropic"
	"github.com/yungbote/flowchart-backend/internal/inference/engine/gemini"
	"github.com/yungbote/flowchart-backend/internal/inference/engine/mock"
	"github.com/yungbote/flowchart-backend/internal/inference/engine/oaihttp"
	"github.com/yungbote/flowchart-backend/internal/inference/engine/openai"
)

// Route is the engine selected for the configured provider.
type Route struct {
	Type   string
	Model  string
	Engine engine.Engine
	// HasCredential reports whether an API key was supplied.
	HasCredential bool
}

// New builds the engine named by cfg.Type. A missing credential yields an error wrapping
// engine.ErrNotConfigured together with a Route whose Engine is nil, so callers can keep
// serving the parts that do not need generation.
func New(ctx context.Context, cfg config.EngineConfig) (Route, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	route := Route{
		Type:          typ,
		Model:         strings.TrimSpace(cfg.Model),
		HasCredential: strings.TrimSpace(cfg.APIKey) != "",
	}

	var (
		eng engine.Engine
		err error
	)
	switch typ {
	case "mock":
		eng = mock.New()
	case "openai_http", "oai_http":
		route.Type = "oai_http"
		eng, err = oaihttp.New(cfg)
	case "openai":
		eng, err = openai.New(cfg)
	case "anthropic":
		eng, err = anthropic.New(cfg)
	case "gemini":
		eng, err = gemini.New(ctx, cfg, nil)
	default:
		return route, fmt.Errorf("unsupported engine type %q", cfg.Type)
	}
	if err != nil {
		return route, err
	}
	route.Engine = eng
	return route, nil
}
