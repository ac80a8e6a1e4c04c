package app

import (
	"fmt"
	"strings"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/clients/redis"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type Clients struct {
	AuditStream redis.AuditStream
}

// Without REDIS_ADDR the outbox still fills; rows wait until a relay is configured.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		log.Warn("REDIS_ADDR not set; audit outbox relay disabled")
		return Clients{}, nil
	}
	stream, err := redis.NewAuditStream(log, cfg.RedisAddr, cfg.AuditStream)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis audit stream: %w", err)
	}
	return Clients{AuditStream: stream}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.AuditStream != nil {
		_ = c.AuditStream.Close()
	}
}
