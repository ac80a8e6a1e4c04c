package services

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/aggregates"
	rrepo "github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/randomization"
	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

// AuditLogger appends audit records to the outbox through the caller's
// transaction. The relay publishes them after commit.
type AuditLogger interface {
	aggregates.AuditAppender
}

type auditLogger struct {
	log    *logger.Logger
	outbox rrepo.AuditOutboxRepo
}

func NewAuditLogger(baseLog *logger.Logger, outbox rrepo.AuditOutboxRepo) AuditLogger {
	return &auditLogger{
		log:    baseLog.With("service", "AuditLogger"),
		outbox: outbox,
	}
}

func (a *auditLogger) Append(dbc dbctx.Context, rec domain.AuditRecord) error {
	if rec.Kind == "" {
		return domain.NewError(domain.CodeInternal, "randomization.audit.append", "audit record kind is required", nil)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	row := &domain.AuditOutbox{
		Kind:           rec.Kind,
		ActorID:        rec.ActorID,
		StudyID:        rec.StudyID,
		ConfigID:       rec.ConfigID,
		StudySubjectID: rec.StudySubjectID,
		Payload:        datatypes.JSON(payload),
	}
	if !rec.OccurredAt.IsZero() {
		row.CreatedAt = rec.OccurredAt
	}
	if err := a.outbox.Append(dbc, row); err != nil {
		return err
	}
	a.log.Debug("audit appended", "kind", rec.Kind, "actor_id", rec.ActorID, "audit_id", row.ID)
	return nil
}
