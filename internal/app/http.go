package app

import (
	"gorm.io/gorm"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/http"
	httpH "github.com/HamezGuy/libreclinicaapi-sub001/internal/http/handlers"
	httpMW "github.com/HamezGuy/libreclinicaapi-sub001/internal/http/middleware"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/observability"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health        *httpH.HealthHandler
	Randomization *httpH.RandomizationHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:        httpH.NewHealthHandler(db),
		Randomization: httpH.NewRandomizationHandler(services.Randomization),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set; every /api request will be rejected")
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireServer(log *logger.Logger, cfg Config, otelCfg observability.OtelConfig, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	rc := http.RouterConfig{
		Log:                  log,
		CORSOrigins:          cfg.CORSOrigins,
		AuthMiddleware:       middleware.Auth,
		RandomizationHandler: handlers.Randomization,
		HealthHandler:        handlers.Health,
	}
	if cfg.MetricsEnabled {
		rc.Metrics = metrics
	}
	if otelCfg.Enabled {
		rc.ServiceName = otelCfg.ServiceName
	}
	return http.NewServer(rc)
}
