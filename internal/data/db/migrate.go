package db

import (
	"fmt"

	"gorm.io/gorm"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

// AutoMigrateAll creates the randomization tables. The study_group taxonomy is
// owned by the surrounding EDC schema and is created only when includeExternal
// is set (SQLite development databases and tests).
func AutoMigrateAll(db *gorm.DB, includeExternal bool) error {
	models := []any{
		// =========================
		// Scheme + sealed list
		// =========================
		&domain.Scheme{},
		&domain.Stratum{},
		&domain.ListEntry{},

		// =========================
		// Assignments + audit outbox
		// =========================
		&domain.Assignment{},
		&domain.AuditOutbox{},
	}
	if includeExternal {
		models = append(models, &domain.StudyGroup{})
	}
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}
	return ensurePartialIndexes(db)
}

// Partial indexes are portable between Postgres and SQLite but not expressible
// through struct tags.
func ensurePartialIndexes(db *gorm.DB) error {
	stmts := []string{
		// At most one active scheme per study.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_rc_one_active_per_study
			ON randomization_config (study_id) WHERE status = 'active'`,
		// Claim path: lowest unused entry of a (config, stratum).
		`CREATE INDEX IF NOT EXISTS idx_rle_unused
			ON randomization_list_entry (config_id, stratum_key, sequence_number) WHERE used = false`,
		// Relay path.
		`CREATE INDEX IF NOT EXISTS idx_rao_unpublished
			ON randomization_audit_outbox (created_at) WHERE published_at IS NULL`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}
