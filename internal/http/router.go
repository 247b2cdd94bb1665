package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/flowchart-backend/internal/http/handlers"
	httpMW "github.com/yungbote/flowchart-backend/internal/http/middleware"
	"github.com/yungbote/flowchart-backend/internal/observability"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	Metrics         *observability.Metrics
	ServiceName     string
	CORSOrigins     []string
	MaxRequestBytes int64

	FlowchartHandler *httpH.FlowchartHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "flowchart"
	}
	r := gin.New()
	r.Use(httpMW.Recover(cfg.Log))
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(httpMW.MaxBody(cfg.MaxRequestBytes))
	{
		if cfg.FlowchartHandler != nil {
			api.POST("/flowcharts", cfg.FlowchartHandler.Generate)
			api.POST("/flowcharts/repair", cfg.FlowchartHandler.Repair)
			api.POST("/flowcharts/validate", cfg.FlowchartHandler.Validate)
			api.GET("/flowcharts/modes", cfg.FlowchartHandler.Modes)
			api.GET("/flowcharts/capabilities", cfg.FlowchartHandler.Capabilities)
		}
	}

	return r
}
