package randomization

import (
	"gorm.io/gorm"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

// StudyGroupRepo reads the EDC's study_group taxonomy. It never writes.
type StudyGroupRepo interface {
	ListByClass(dbc dbctx.Context, classID int) ([]*domain.StudyGroup, error)
}

type studyGroupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyGroupRepo(db *gorm.DB, baseLog *logger.Logger) StudyGroupRepo {
	return &studyGroupRepo{
		db:  db,
		log: baseLog.With("repo", "StudyGroupRepo"),
	}
}

func (r *studyGroupRepo) ListByClass(dbc dbctx.Context, classID int) ([]*domain.StudyGroup, error) {
	var out []*domain.StudyGroup
	if classID <= 0 {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("study_group_class_id = ?", classID).
		Order("study_group_id ASC").
		Find(&out).Error
	return out, err
}
