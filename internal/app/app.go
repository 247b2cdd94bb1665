package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/flowchart"
	httpapi "github.com/yungbote/flowchart-backend/internal/http"
	"github.com/yungbote/flowchart-backend/internal/inference/router"
	"github.com/yungbote/flowchart-backend/internal/observability"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

const ServiceName = "flowchart"

type App struct {
	Log     *logger.Logger
	Cfg     *config.Config
	Route   router.Route
	Service *flowchart.Service
	Metrics *observability.Metrics

	server  *httpapi.Server
	closers []func(context.Context) error
}

// New wires every component from cfg. A provider without credentials is not fatal: the
// app still serves validate/repair and reports not_configured for generation.
func New(ctx context.Context, log *logger.Logger, cfg *config.Config, version string) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: ServiceName,
		Environment: cfg.Env,
		Version:     version,
	})
	a.closers = append(a.closers, shutdownOTel)
	a.Metrics = wireMetrics()

	svcs, err := wireServices(ctx, log, cfg, a.Metrics)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	a.Route = svcs.Route
	a.Service = svcs.Flowchart
	a.closers = append(a.closers, svcs.closers...)

	a.server = httpapi.NewServer(cfg.HTTP, wireRouter(log, cfg, svcs, a.Metrics))
	return a, nil
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("http server starting", "addr", a.server.Addr(), "engine", a.Route.Type, "model", a.Route.Model)
	return a.server.Run(ctx)
}

// Close releases storage, cache and tracing resources in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.Log.Sync()
	return errors.Join(errs...)
}
