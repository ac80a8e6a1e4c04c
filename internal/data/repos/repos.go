package repos

import (
	"gorm.io/gorm"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type SchemeRepo = randomization.SchemeRepo
type StratumRepo = randomization.StratumRepo
type ListEntryRepo = randomization.ListEntryRepo

type AssignmentRepo = randomization.AssignmentRepo
type AuditOutboxRepo = randomization.AuditOutboxRepo

type StudyGroupRepo = randomization.StudyGroupRepo

func NewSchemeRepo(db *gorm.DB, baseLog *logger.Logger) SchemeRepo {
	return randomization.NewSchemeRepo(db, baseLog)
}
func NewStratumRepo(db *gorm.DB, baseLog *logger.Logger) StratumRepo {
	return randomization.NewStratumRepo(db, baseLog)
}
func NewListEntryRepo(db *gorm.DB, baseLog *logger.Logger) ListEntryRepo {
	return randomization.NewListEntryRepo(db, baseLog)
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return randomization.NewAssignmentRepo(db, baseLog)
}
func NewAuditOutboxRepo(db *gorm.DB, baseLog *logger.Logger) AuditOutboxRepo {
	return randomization.NewAuditOutboxRepo(db, baseLog)
}

func NewStudyGroupRepo(db *gorm.DB, baseLog *logger.Logger) StudyGroupRepo {
	return randomization.NewStudyGroupRepo(db, baseLog)
}
