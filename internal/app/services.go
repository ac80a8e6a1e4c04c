package app

import (
	"gorm.io/gorm"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/aggregates"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/jobs/outbox"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/observability"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/services"
)

type Services struct {
	Randomization services.RandomizationService
	Catalog       services.ArmCatalog
	Audit         services.AuditLogger

	// Nil when no publisher is configured.
	OutboxRelay *outbox.Relay
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	catalog := services.NewArmCatalog(log, reposet.StudyGroup)
	audit := services.NewAuditLogger(log, reposet.AuditOutbox)

	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewMetricsHooks(metrics),
	}
	agg := aggregates.NewRandomizationAggregate(aggregates.RandomizationAggregateDeps{
		Base:        base,
		ClaimRunner: aggregates.NewGormTxRunner(db, aggregates.WithTxTimeout(cfg.ClaimTxTimeout)),
		Schemes:     reposet.Scheme,
		Strata:      reposet.Stratum,
		Entries:     reposet.ListEntry,
		Assignments: reposet.Assignment,
		Audit:       audit,
		Validator:   catalog,
	})

	randomization := services.NewRandomizationService(services.RandomizationServiceDeps{
		Log:          log,
		Aggregate:    agg,
		Schemes:      reposet.Scheme,
		Entries:      reposet.ListEntry,
		Catalog:      catalog,
		Metrics:      metrics,
		PreviewLimit: cfg.PreviewLimit,
	})

	var relay *outbox.Relay
	if clients.AuditStream != nil {
		relay = outbox.NewRelay(log, aggregates.NewGormTxRunner(db), reposet.AuditOutbox, clients.AuditStream, metrics, cfg.Outbox)
	}

	return Services{
		Randomization: randomization,
		Catalog:       catalog,
		Audit:         audit,
		OutboxRelay:   relay,
	}
}
