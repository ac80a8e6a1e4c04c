package app

import (
	"gorm.io/gorm"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

type Repos struct {
	Scheme      repos.SchemeRepo
	Stratum     repos.StratumRepo
	ListEntry   repos.ListEntryRepo
	Assignment  repos.AssignmentRepo
	AuditOutbox repos.AuditOutboxRepo
	StudyGroup  repos.StudyGroupRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Scheme:      repos.NewSchemeRepo(db, log),
		Stratum:     repos.NewStratumRepo(db, log),
		ListEntry:   repos.NewListEntryRepo(db, log),
		Assignment:  repos.NewAssignmentRepo(db, log),
		AuditOutbox: repos.NewAuditOutboxRepo(db, log),
		StudyGroup:  repos.NewStudyGroupRepo(db, log),
	}
}
