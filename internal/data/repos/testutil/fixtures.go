package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

// SeedStudyGroups inserts one study_group row per name under classID and
// returns them in order. IDs start at firstID.
func SeedStudyGroups(tb testing.TB, ctx context.Context, tx *gorm.DB, classID, firstID int, names ...string) []*domain.StudyGroup {
	tb.Helper()
	out := make([]*domain.StudyGroup, 0, len(names))
	for i, name := range names {
		g := &domain.StudyGroup{
			StudyGroupID:      firstID + i,
			Name:              name,
			StudyGroupClassID: classID,
		}
		if err := tx.WithContext(ctx).Create(g).Error; err != nil {
			tb.Fatalf("seed study group: %v", err)
		}
		out = append(out, g)
	}
	return out
}

// Scheme returns an unsaved two-arm 1:1 scheme with defaults applied.
func Scheme(studyID, totalSlots int) *domain.Scheme {
	s := &domain.Scheme{
		StudyID:    studyID,
		Name:       "Primary allocation",
		Arms:       []domain.ArmRatio{{ArmID: "A", Weight: 1}, {ArmID: "B", Weight: 1}},
		BlockSize:  4,
		TotalSlots: totalSlots,
	}
	s.ApplyDefaults()
	return s
}

// AuditRows returns the outbox rows of one config in write order.
func AuditRows(tb testing.TB, tx *gorm.DB, configID uint) []*domain.AuditOutbox {
	tb.Helper()
	var out []*domain.AuditOutbox
	if err := tx.Where("config_id = ?", configID).Order("created_at ASC").Find(&out).Error; err != nil {
		tb.Fatalf("list audit rows: %v", err)
	}
	return out
}
