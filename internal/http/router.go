package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/HamezGuy/libreclinicaapi-sub001/internal/http/handlers"
	httpMW "github.com/HamezGuy/libreclinicaapi-sub001/internal/http/middleware"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/observability"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	RandomizationHandler *httpH.RandomizationHandler
	HealthHandler        *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Ops
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Randomization
	if h := cfg.RandomizationHandler; h != nil {
		api.POST("/randomization/configs", h.SaveConfig)
		api.POST("/randomization/configs/test", h.TestConfig)
		api.GET("/randomization/configs/:configId", h.GetConfigByID)
		api.PATCH("/randomization/configs/:configId", h.UpdateConfig)
		api.POST("/randomization/configs/:configId/generate", h.GenerateList)
		api.POST("/randomization/configs/:configId/activate", h.ActivateConfig)
		api.GET("/randomization/configs/:configId/stats", h.GetListStats)

		api.GET("/studies/:studyId/randomization/config", h.GetConfig)
		api.POST("/studies/:studyId/subjects/:studySubjectId/randomize", h.RandomizeSubject)
	}

	return r
}
