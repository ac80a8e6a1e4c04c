package randomization

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type AuditOutboxRepo interface {
	Append(dbc dbctx.Context, rows ...*domain.AuditOutbox) error
	ClaimUnpublished(dbc dbctx.Context, limit int) ([]*domain.AuditOutbox, error)
	MarkPublished(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) error
	CountUnpublished(dbc dbctx.Context) (int64, error)
}

type auditOutboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditOutboxRepo(db *gorm.DB, baseLog *logger.Logger) AuditOutboxRepo {
	return &auditOutboxRepo{
		db:  db,
		log: baseLog.With("repo", "AuditOutboxRepo"),
	}
}

func (r *auditOutboxRepo) Append(dbc dbctx.Context, rows ...*domain.AuditOutbox) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return dbc.DB(r.db).Create(&rows).Error
}

// ClaimUnpublished locks the oldest unpublished rows. Concurrent relays skip
// each other's rows. Must run inside a transaction.
func (r *auditOutboxRepo) ClaimUnpublished(dbc dbctx.Context, limit int) ([]*domain.AuditOutbox, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*domain.AuditOutbox
	err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *auditOutboxRepo) MarkPublished(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&domain.AuditOutbox{}).
		Where("id IN ? AND published_at IS NULL", ids).
		Updates(map[string]interface{}{
			"published_at": at.UTC(),
			"last_error":   "",
		}).Error
}

func (r *auditOutboxRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) error {
	return dbc.DB(r.db).
		Model(&domain.AuditOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}

func (r *auditOutboxRepo) CountUnpublished(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&domain.AuditOutbox{}).
		Where("published_at IS NULL").
		Count(&n).Error
	return n, err
}
