package randomization

import (
	"gorm.io/gorm"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type AssignmentRepo interface {
	// Create inserts the row. The unique index on study_subject_id is the
	// guard against double randomization; callers map its violation.
	Create(dbc dbctx.Context, a *domain.Assignment) error
	GetBySubject(dbc dbctx.Context, studySubjectID int) (*domain.Assignment, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{
		db:  db,
		log: baseLog.With("repo", "AssignmentRepo"),
	}
}

func (r *assignmentRepo) Create(dbc dbctx.Context, a *domain.Assignment) error {
	return dbc.DB(r.db).Create(a).Error
}

func (r *assignmentRepo) GetBySubject(dbc dbctx.Context, studySubjectID int) (*domain.Assignment, error) {
	var a domain.Assignment
	err := dbc.DB(r.db).
		Where("study_subject_id = ?", studySubjectID).
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}
