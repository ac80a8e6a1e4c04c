package randomization

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type StratumRepo interface {
	Upsert(dbc dbctx.Context, rows []*domain.Stratum) error
	LockByKey(dbc dbctx.Context, configID uint, key string) (*domain.Stratum, error)
	DeleteByConfig(dbc dbctx.Context, configID uint) (int64, error)
}

type stratumRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStratumRepo(db *gorm.DB, baseLog *logger.Logger) StratumRepo {
	return &stratumRepo{
		db:  db,
		log: baseLog.With("repo", "StratumRepo"),
	}
}

func (r *stratumRepo) Upsert(dbc dbctx.Context, rows []*domain.Stratum) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "config_id"}, {Name: "stratum_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"stratum_index", "total_entries", "updated_at"}),
		}).
		Create(&rows).Error
}

// LockByKey takes the row lock that serializes claims within one stratum.
// SQLite has no row locks; its single writer gives the same ordering.
func (r *stratumRepo) LockByKey(dbc dbctx.Context, configID uint, key string) (*domain.Stratum, error) {
	var row domain.Stratum
	err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("config_id = ? AND stratum_key = ?", configID, key).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

// DeleteByConfig drops the stratum rows of a config whose list is discarded.
func (r *stratumRepo) DeleteByConfig(dbc dbctx.Context, configID uint) (int64, error) {
	res := dbc.DB(r.db).
		Where("config_id = ?", configID).
		Delete(&domain.Stratum{})
	return res.RowsAffected, res.Error
}
