package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

func TestStreamValues(t *testing.T) {
	study := 3
	cfg := uint(12)
	row := &domain.AuditOutbox{
		ID:        uuid.MustParse("5f0c8d1e-7a43-4a55-9e7f-1d2b3c4d5e6f"),
		Kind:      domain.AuditSubjectRandomized,
		ActorID:   7,
		StudyID:   &study,
		ConfigID:  &cfg,
		Payload:   datatypes.JSON(`{"armId":"A"}`),
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	v := StreamValues(row)
	assert.Equal(t, "5f0c8d1e-7a43-4a55-9e7f-1d2b3c4d5e6f", v["id"])
	assert.Equal(t, "subject_randomized", v["kind"])
	assert.Equal(t, "7", v["actor_id"])
	assert.Equal(t, "3", v["study_id"])
	assert.Equal(t, "12", v["config_id"])
	assert.Equal(t, `{"armId":"A"}`, v["payload"])
	assert.Equal(t, "2026-01-02T03:04:05Z", v["created_at"])
	_, hasSubject := v["study_subject_id"]
	assert.False(t, hasSubject)
}

func TestAuditStreamPublish(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	log, err := logger.New("test")
	require.NoError(t, err)

	stream := "test-audit-" + uuid.NewString()
	pub, err := NewAuditStream(log, addr, stream)
	require.NoError(t, err)
	defer pub.Close()

	ctx := context.Background()
	row := &domain.AuditOutbox{ID: uuid.New(), Kind: domain.AuditSchemeCreated, ActorID: 1, Payload: datatypes.JSON(`{}`), CreatedAt: time.Now()}
	require.NoError(t, pub.Publish(ctx, row))

	rdb := pub.(*auditStream).rdb
	defer rdb.Del(ctx, stream)
	msgs, err := rdb.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, row.ID.String(), msgs[0].Values["id"])
}
