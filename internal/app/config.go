package app

import (
	"strings"
	"time"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/clients/redis"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/jobs/outbox"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/services"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/utils"
)

type Config struct {
	Port         string
	JWTSecretKey string
	CORSOrigins  []string

	ClaimTxTimeout time.Duration
	PreviewLimit   int

	RedisAddr   string
	AuditStream string
	Outbox      outbox.Config

	MetricsEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	var origins []string
	for _, o := range strings.Split(utils.GetEnv("CORS_ORIGINS", "", log), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		Port:           utils.GetEnv("PORT", "8080", log),
		JWTSecretKey:   utils.GetEnv("JWT_SECRET_KEY", "", log),
		CORSOrigins:    origins,
		ClaimTxTimeout: utils.GetEnvAsMillis("CLAIM_TX_TIMEOUT_MS", 5*time.Second, log),
		PreviewLimit:   utils.GetEnvAsInt("PREVIEW_LIMIT", services.DefaultPreviewLimit, log),
		RedisAddr:      utils.GetEnv("REDIS_ADDR", "", log),
		AuditStream:    utils.GetEnv("AUDIT_STREAM", redis.DefaultAuditStream, log),
		Outbox: outbox.Config{
			Interval:  utils.GetEnvAsMillis("OUTBOX_POLL_INTERVAL_MS", outbox.DefaultInterval, log),
			BatchSize: utils.GetEnvAsInt("OUTBOX_BATCH_SIZE", outbox.DefaultBatchSize, log),
		},
		MetricsEnabled: utils.GetEnvAsBool("METRICS_ENABLED", true, log),
	}
}
