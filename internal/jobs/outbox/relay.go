package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/aggregates"
	rrepo "github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/randomization"
	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/observability"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

const (
	DefaultInterval  = time.Second
	DefaultBatchSize = 100
)

// Publisher delivers one audit row downstream. Delivery is at least once.
type Publisher interface {
	Publish(ctx context.Context, row *domain.AuditOutbox) error
}

type Config struct {
	Interval  time.Duration
	BatchSize int
}

// Relay moves committed audit rows from the outbox to a Publisher.
type Relay struct {
	log     *logger.Logger
	runner  aggregates.TxRunner
	repo    rrepo.AuditOutboxRepo
	pub     Publisher
	metrics *observability.Metrics
	cfg     Config
}

func NewRelay(baseLog *logger.Logger, runner aggregates.TxRunner, repo rrepo.AuditOutboxRepo, pub Publisher, metrics *observability.Metrics, cfg Config) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Relay{
		log:     baseLog.With("component", "AuditOutboxRelay"),
		runner:  runner,
		repo:    repo,
		pub:     pub,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Start polls until ctx is done.
func (r *Relay) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
					r.log.Warn("audit relay pass failed", "error", err)
				}
			}
		}
	}()
}

// RunOnce publishes one batch in row order and returns how many rows were
// published. The first publish failure ends the batch so that later rows
// never overtake an earlier one.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var published, failed int
	err := r.runner.InTx(ctx, func(dbc dbctx.Context) error {
		rows, err := r.repo.ClaimUnpublished(dbc, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			if err := r.pub.Publish(ctx, row); err != nil {
				failed++
				r.log.Warn("audit publish failed", "audit_id", row.ID, "kind", row.Kind, "attempts", row.Attempts+1, "error", err)
				if err := r.repo.MarkFailed(dbc, row.ID, err.Error()); err != nil {
					return err
				}
				break
			}
			ids = append(ids, row.ID)
		}
		if err := r.repo.MarkPublished(dbc, ids, time.Now().UTC()); err != nil {
			return err
		}
		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.metrics.IncOutbox("published", published)
	r.metrics.IncOutbox("failed", failed)
	if r.metrics != nil {
		if backlog, err := r.repo.CountUnpublished(dbctx.Context{Ctx: ctx}); err != nil {
			r.log.Warn("audit backlog count failed", "error", err)
		} else {
			r.metrics.SetOutboxBacklog(backlog)
		}
	}
	if published > 0 {
		r.log.Debug("audit rows published", "count", published)
	}
	return published, nil
}
