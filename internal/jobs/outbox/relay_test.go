package outbox

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/datatypes"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/aggregates"
	rrepo "github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/randomization"
	repotest "github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/testutil"
	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/observability"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
)

type flakyPublisher struct {
	mu     sync.Mutex
	failOn map[uuid.UUID]int
	got    []uuid.UUID
}

func (p *flakyPublisher) Publish(_ context.Context, row *domain.AuditOutbox) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[row.ID] > 0 {
		p.failOn[row.ID]--
		return errors.New("stream unavailable")
	}
	p.got = append(p.got, row.ID)
	return nil
}

func seedOutbox(t *testing.T, repo rrepo.AuditOutboxRepo, n int) []*domain.AuditOutbox {
	t.Helper()
	base := time.Now().UTC().Add(-time.Minute)
	rows := make([]*domain.AuditOutbox, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, &domain.AuditOutbox{
			Kind:      domain.AuditSubjectRandomized,
			ActorID:   1,
			Payload:   datatypes.JSON(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	if err := repo.Append(dbctx.Context{Ctx: context.Background()}, rows...); err != nil {
		t.Fatalf("seed outbox: %v", err)
	}
	return rows
}

func runOnce(t *testing.T, relay *Relay, want int) {
	t.Helper()
	n, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if n != want {
		t.Fatalf("published: want %d got %d", want, n)
	}
}

func TestRelayPublishesInOrderAndStopsAtFirstFailure(t *testing.T) {
	db := repotest.DB(t)
	log := repotest.Logger(t)
	repo := rrepo.NewAuditOutboxRepo(db, log)
	rows := seedOutbox(t, repo, 3)

	pub := &flakyPublisher{failOn: map[uuid.UUID]int{rows[1].ID: 1}}
	metrics := observability.NewMetrics()
	relay := NewRelay(log, aggregates.NewGormTxRunner(db), repo, pub, metrics, Config{BatchSize: 10})

	runOnce(t, relay, 1)
	if !reflect.DeepEqual(pub.got, []uuid.UUID{rows[0].ID}) {
		t.Fatalf("first pass delivered %v", pub.got)
	}
	if got := testutil.ToFloat64(metrics.OutboxBacklog); got != 2 {
		t.Fatalf("backlog after failed pass: want 2 got %v", got)
	}

	runOnce(t, relay, 2)
	if !reflect.DeepEqual(pub.got, []uuid.UUID{rows[0].ID, rows[1].ID, rows[2].ID}) {
		t.Fatalf("rows must be delivered in order, got %v", pub.got)
	}
	runOnce(t, relay, 0)

	if got := testutil.ToFloat64(metrics.OutboxPublished.WithLabelValues("published")); got != 3 {
		t.Fatalf("published counter: want 3 got %v", got)
	}
	if got := testutil.ToFloat64(metrics.OutboxPublished.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed counter: want 1 got %v", got)
	}
	if got := testutil.ToFloat64(metrics.OutboxBacklog); got != 0 {
		t.Fatalf("backlog after drain: want 0 got %v", got)
	}

	var failed domain.AuditOutbox
	if err := db.First(&failed, "id = ?", rows[1].ID).Error; err != nil {
		t.Fatalf("load failed row: %v", err)
	}
	if failed.Attempts != 1 || failed.PublishedAt == nil {
		t.Fatalf("retried row: attempts=%d published=%v", failed.Attempts, failed.PublishedAt)
	}
}

func TestRelayRespectsBatchSize(t *testing.T) {
	db := repotest.DB(t)
	log := repotest.Logger(t)
	repo := rrepo.NewAuditOutboxRepo(db, log)
	seedOutbox(t, repo, 5)

	pub := &flakyPublisher{failOn: map[uuid.UUID]int{}}
	relay := NewRelay(log, aggregates.NewGormTxRunner(db), repo, pub, nil, Config{BatchSize: 2})
	runOnce(t, relay, 2)
}

func TestRelayStartStopsWithContext(t *testing.T) {
	db := repotest.DB(t)
	log := repotest.Logger(t)
	repo := rrepo.NewAuditOutboxRepo(db, log)
	seedOutbox(t, repo, 2)

	pub := &flakyPublisher{failOn: map[uuid.UUID]int{}}
	relay := NewRelay(log, aggregates.NewGormTxRunner(db), repo, pub, nil, Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := repo.CountUnpublished(dbctx.Context{Ctx: context.Background()})
		if err == nil && n == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("relay did not drain the outbox: remaining=%d err=%v", n, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
