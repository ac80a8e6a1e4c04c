package randomization

import (
	"gorm.io/gorm"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

const listEntryBatchSize = 200

// StratumProgress summarises the entries that exist for one stratum.
type StratumProgress struct {
	StratumKey   string
	LastSequence int
	LastBlock    int
	Count        int
}

type ArmUsage struct {
	ArmID string
	Total int64
	Used  int64
}

type StratumUsage struct {
	StratumKey string
	Total      int64
	Used       int64
}

type ListEntryRepo interface {
	CreateBatch(dbc dbctx.Context, entries []*domain.ListEntry) error
	CountByConfig(dbc dbctx.Context, configID uint) (int64, error)
	NextUnused(dbc dbctx.Context, configID uint, stratumKey string) (*domain.ListEntry, error)
	DeleteUnclaimedBlocks(dbc dbctx.Context, configID uint) (int64, error)
	Progress(dbc dbctx.Context, configID uint) (map[string]StratumProgress, error)
	UsageByArm(dbc dbctx.Context, configID uint) ([]ArmUsage, error)
	UsageByStratum(dbc dbctx.Context, configID uint) ([]StratumUsage, error)
}

type listEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewListEntryRepo(db *gorm.DB, baseLog *logger.Logger) ListEntryRepo {
	return &listEntryRepo{
		db:  db,
		log: baseLog.With("repo", "ListEntryRepo"),
	}
}

func (r *listEntryRepo) CreateBatch(dbc dbctx.Context, entries []*domain.ListEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return dbc.DB(r.db).CreateInBatches(entries, listEntryBatchSize).Error
}

func (r *listEntryRepo) CountByConfig(dbc dbctx.Context, configID uint) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&domain.ListEntry{}).
		Where("config_id = ?", configID).
		Count(&n).Error
	return n, err
}

// NextUnused returns the lowest unused entry of a stratum, or nil when the
// stratum is exhausted. Callers must hold the stratum lock.
func (r *listEntryRepo) NextUnused(dbc dbctx.Context, configID uint, stratumKey string) (*domain.ListEntry, error) {
	var e domain.ListEntry
	err := dbc.DB(r.db).
		Where("config_id = ? AND stratum_key = ? AND used = ?", configID, stratumKey, false).
		Order("sequence_number ASC").
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

// DeleteUnclaimedBlocks removes every block in which no entry has been used.
// Blocks holding a claimed entry stay whole so their balance survives.
func (r *listEntryRepo) DeleteUnclaimedBlocks(dbc dbctx.Context, configID uint) (int64, error) {
	res := dbc.DB(r.db).Exec(`
		DELETE FROM randomization_list_entry
		WHERE config_id = ?
		  AND NOT EXISTS (
		    SELECT 1 FROM randomization_list_entry u
		    WHERE u.config_id = randomization_list_entry.config_id
		      AND u.stratum_key = randomization_list_entry.stratum_key
		      AND u.block_number = randomization_list_entry.block_number
		      AND u.used = ?
		  )`, configID, true)
	return res.RowsAffected, res.Error
}

func (r *listEntryRepo) Progress(dbc dbctx.Context, configID uint) (map[string]StratumProgress, error) {
	var rows []StratumProgress
	err := dbc.DB(r.db).
		Model(&domain.ListEntry{}).
		Select("stratum_key, MAX(sequence_number) AS last_sequence, MAX(block_number) AS last_block, COUNT(*) AS count").
		Where("config_id = ?", configID).
		Group("stratum_key").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]StratumProgress, len(rows))
	for _, row := range rows {
		out[row.StratumKey] = row
	}
	return out, nil
}

func (r *listEntryRepo) UsageByArm(dbc dbctx.Context, configID uint) ([]ArmUsage, error) {
	var rows []ArmUsage
	err := dbc.DB(r.db).
		Model(&domain.ListEntry{}).
		Select("arm_id, COUNT(*) AS total, SUM(CASE WHEN used THEN 1 ELSE 0 END) AS used").
		Where("config_id = ?", configID).
		Group("arm_id").
		Order("arm_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *listEntryRepo) UsageByStratum(dbc dbctx.Context, configID uint) ([]StratumUsage, error) {
	var rows []StratumUsage
	err := dbc.DB(r.db).
		Model(&domain.ListEntry{}).
		Select("stratum_key, COUNT(*) AS total, SUM(CASE WHEN used THEN 1 ELSE 0 END) AS used").
		Where("config_id = ?", configID).
		Group("stratum_key").
		Order("stratum_key ASC").
		Scan(&rows).Error
	return rows, err
}
