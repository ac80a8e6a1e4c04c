package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

const DefaultAuditStream = "randomization-audit"

// AuditStream publishes audit outbox rows to a Redis Stream with XADD.
type AuditStream interface {
	Publish(ctx context.Context, row *domain.AuditOutbox) error
	Close() error
}

type auditStream struct {
	log    *logger.Logger
	rdb    *goredis.Client
	stream string
}

func NewAuditStream(log *logger.Logger, addr, stream string) (AuditStream, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = DefaultAuditStream
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &auditStream{
		log:    log.With("service", "RedisAuditStream"),
		rdb:    rdb,
		stream: stream,
	}, nil
}

func (s *auditStream) Publish(ctx context.Context, row *domain.AuditOutbox) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis audit stream not initialized")
	}
	if row == nil {
		return nil
	}
	id, err := s.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.stream,
		Values: StreamValues(row),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	s.log.Debug("audit event published", "audit_id", row.ID, "stream_id", id)
	return nil
}

func (s *auditStream) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// StreamValues flattens an outbox row into stream fields. Consumers
// deduplicate on "id".
func StreamValues(row *domain.AuditOutbox) map[string]any {
	v := map[string]any{
		"id":         row.ID.String(),
		"kind":       string(row.Kind),
		"actor_id":   strconv.Itoa(row.ActorID),
		"created_at": row.CreatedAt.UTC().Format(time.RFC3339Nano),
		"payload":    string(row.Payload),
	}
	if row.StudyID != nil {
		v["study_id"] = strconv.Itoa(*row.StudyID)
	}
	if row.ConfigID != nil {
		v["config_id"] = strconv.FormatUint(uint64(*row.ConfigID), 10)
	}
	if row.StudySubjectID != nil {
		v["study_subject_id"] = strconv.Itoa(*row.StudySubjectID)
	}
	return v
}
