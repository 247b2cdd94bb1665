package app

import (
	"github.com/yungbote/flowchart-backend/internal/config"
	httpapi "github.com/yungbote/flowchart-backend/internal/http"
	httpH "github.com/yungbote/flowchart-backend/internal/http/handlers"
	"github.com/yungbote/flowchart-backend/internal/observability"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg *config.Config, svcs *Services, metrics *observability.Metrics) httpapi.RouterConfig {
	caps := httpH.Capabilities{
		Engine:       svcs.Route.Type,
		Model:        svcs.Route.Model,
		HasAPIKey:    svcs.Route.HasCredential || svcs.Route.Type == "mock",
		DefaultLevel: cfg.Flowchart.DefaultLevel,
		Renderer:     svcs.Renderer.Endpoint(),
	}
	return httpapi.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      ServiceName,
		CORSOrigins:      cfg.HTTP.CORSOrigins,
		MaxRequestBytes:  cfg.HTTP.MaxRequestBytes,
		FlowchartHandler: httpH.NewFlowchartHandler(svcs.Flowchart, caps, metrics),
		HealthHandler:    httpH.NewHealthHandler(),
	}
}
