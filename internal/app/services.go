package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/flowchart-backend/internal/artifact"
	"github.com/yungbote/flowchart-backend/internal/cache"
	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/flowchart"
	"github.com/yungbote/flowchart-backend/internal/inference/engine"
	"github.com/yungbote/flowchart-backend/internal/inference/router"
	"github.com/yungbote/flowchart-backend/internal/observability"
	"github.com/yungbote/flowchart-backend/internal/platform/envutil"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
	"github.com/yungbote/flowchart-backend/internal/render"
)

type Services struct {
	Route     router.Route
	Flowchart *flowchart.Service
	Renderer  *render.Client

	closers []func(context.Context) error
}

func wireMetrics() *observability.Metrics {
	if !envutil.Bool("METRICS_ENABLED", false) {
		return nil
	}
	return observability.NewMetrics()
}

func wireServices(ctx context.Context, log *logger.Logger, cfg *config.Config, metrics *observability.Metrics) (*Services, error) {
	out := &Services{}

	route, err := router.New(ctx, cfg.Engine)
	switch {
	case errors.Is(err, engine.ErrNotConfigured):
		log.Warn("text generation disabled", "engine", route.Type, "error", err)
	case err != nil:
		return nil, fmt.Errorf("init engine: %w", err)
	}
	out.Route = route

	eng := observability.InstrumentEngine(metrics, route.Type, route.Engine)
	backend, err := cache.New(ctx, log, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	if backend != nil {
		out.closers = append(out.closers, func(context.Context) error { return backend.Close() })
		eng = cache.Wrap(log, eng, backend)
	}

	store, err := artifact.New(ctx, log, cfg.Artifacts)
	if err != nil {
		out.close()
		return nil, fmt.Errorf("init artifact store: %w", err)
	}
	out.closers = append(out.closers, func(context.Context) error { return store.Close() })

	out.Renderer = render.New(cfg.Render)

	var renderer flowchart.Renderer = out.Renderer
	out.Flowchart = flowchart.NewService(log, eng, renderer, store, flowchart.ServiceConfig{
		Model:             route.Model,
		DefaultLevel:      cfg.Flowchart.DefaultLevel,
		GenerationTimeout: cfg.Flowchart.GenerationTimeout.Duration,
		Temperature:       cfg.Engine.Temperature,
		MaxTokens:         cfg.Engine.MaxTokens,
		SaveToFile:        cfg.Flowchart.SaveToFile,
	})
	return out, nil
}

func (s *Services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i](context.Background())
	}
}
