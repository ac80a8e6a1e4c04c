package randomization

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type SchemeRepo interface {
	Create(dbc dbctx.Context, s *domain.Scheme) error
	GetByID(dbc dbctx.Context, id uint) (*domain.Scheme, error)
	LockByID(dbc dbctx.Context, id uint) (*domain.Scheme, error)
	GetActiveByStudy(dbc dbctx.Context, studyID int) (*domain.Scheme, error)
	GetLatestByStudy(dbc dbctx.Context, studyID int) (*domain.Scheme, error)
	SaveDefinition(dbc dbctx.Context, s *domain.Scheme) error
}

type schemeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSchemeRepo(db *gorm.DB, baseLog *logger.Logger) SchemeRepo {
	return &schemeRepo{
		db:  db,
		log: baseLog.With("repo", "SchemeRepo"),
	}
}

func (r *schemeRepo) Create(dbc dbctx.Context, s *domain.Scheme) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return dbc.DB(r.db).Create(s).Error
}

func (r *schemeRepo) GetByID(dbc dbctx.Context, id uint) (*domain.Scheme, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

// LockByID reads the scheme FOR UPDATE so concurrent edits, generation and
// activation of one scheme serialize.
func (r *schemeRepo) LockByID(dbc dbctx.Context, id uint) (*domain.Scheme, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *schemeRepo) GetActiveByStudy(dbc dbctx.Context, studyID int) (*domain.Scheme, error) {
	if studyID <= 0 {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).
		Where("study_id = ? AND status = ?", studyID, domain.StatusActive))
}

func (r *schemeRepo) GetLatestByStudy(dbc dbctx.Context, studyID int) (*domain.Scheme, error) {
	if studyID <= 0 {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).
		Where("study_id = ?", studyID).
		Order("created_at DESC").
		Order("id DESC"))
}

var definitionColumns = []string{
	"name", "description", "randomization_type", "blinding_level",
	"block_size", "block_size_varied", "block_sizes_list",
	"allocation_ratios", "stratification_factors", "study_group_class_id",
	"total_slots", "slot_policy", "drug_kit_management", "drug_kit_prefix",
	"site_specific", "status", "updated_by", "generated_at", "updated_at",
}

// SaveDefinition writes the editable columns of s, zero values included.
func (r *schemeRepo) SaveDefinition(dbc dbctx.Context, s *domain.Scheme) error {
	s.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&domain.Scheme{ID: s.ID}).
		Select(definitionColumns).
		Updates(s).Error
}

func (r *schemeRepo) first(q *gorm.DB) (*domain.Scheme, error) {
	var s domain.Scheme
	if err := q.Limit(1).Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}
