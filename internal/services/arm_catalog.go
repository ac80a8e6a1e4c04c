package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/aggregates"
	rrepo "github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/randomization"
	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

// ArmCatalog resolves arms against the EDC's study group taxonomy.
type ArmCatalog interface {
	Arms(ctx context.Context, classID int) ([]*domain.StudyGroup, error)
	// ArmNames maps every arm id of s to a display name. Arms without a
	// study group fall back to their id.
	ArmNames(ctx context.Context, s *domain.Scheme) (map[string]string, error)
	aggregates.SchemeValidator
}

type armCatalog struct {
	log    *logger.Logger
	groups rrepo.StudyGroupRepo
}

func NewArmCatalog(baseLog *logger.Logger, groups rrepo.StudyGroupRepo) ArmCatalog {
	return &armCatalog{
		log:    baseLog.With("service", "ArmCatalog"),
		groups: groups,
	}
}

func (c *armCatalog) Arms(ctx context.Context, classID int) ([]*domain.StudyGroup, error) {
	return c.groups.ListByClass(dbctx.Context{Ctx: ctx}, classID)
}

func (c *armCatalog) ArmNames(ctx context.Context, s *domain.Scheme) (map[string]string, error) {
	out := make(map[string]string, len(s.Arms))
	for _, a := range s.Arms {
		out[a.ArmID] = a.ArmID
	}
	if s.StudyGroupClassID == nil {
		return out, nil
	}
	groups, err := c.Arms(ctx, *s.StudyGroupClassID)
	if err != nil {
		return nil, err
	}
	byKey := groupIndex(groups)
	for id := range out {
		if g, ok := byKey[id]; ok && g.Name != "" {
			out[id] = g.Name
		}
	}
	return out, nil
}

// ValidateScheme requires every arm to name a study group of the scheme's
// class when a class is set. Arms match by study_group_id or by name.
func (c *armCatalog) ValidateScheme(dbc dbctx.Context, s *domain.Scheme) error {
	const op = "randomization.arm_catalog.validate"
	if s.StudyGroupClassID == nil {
		return nil
	}
	groups, err := c.groups.ListByClass(dbc, *s.StudyGroupClassID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return domain.ValidationError(op, fmt.Sprintf("study group class %d has no study groups", *s.StudyGroupClassID))
	}
	byKey := groupIndex(groups)
	for _, a := range s.Arms {
		if _, ok := byKey[a.ArmID]; !ok {
			return domain.ValidationError(op, fmt.Sprintf("arm %q is not a study group of class %d", a.ArmID, *s.StudyGroupClassID))
		}
	}
	return nil
}

func groupIndex(groups []*domain.StudyGroup) map[string]*domain.StudyGroup {
	out := make(map[string]*domain.StudyGroup, 2*len(groups))
	for _, g := range groups {
		out[strconv.Itoa(g.StudyGroupID)] = g
		if g.Name != "" {
			if _, taken := out[g.Name]; !taken {
				out[g.Name] = g
			}
		}
	}
	return out
}
