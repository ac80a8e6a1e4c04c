package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	rrepo "github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
)

type ArmStats struct {
	ArmID     string `json:"armId"`
	Total     int64  `json:"total"`
	Used      int64  `json:"used"`
	Available int64  `json:"available"`
}

type StratumStats struct {
	StratumKey string `json:"stratumKey"`
	Total      int64  `json:"total"`
	Used       int64  `json:"used"`
	Available  int64  `json:"available"`
}

// ListStats is a read-only snapshot of list consumption. Under concurrent
// claims the arm and stratum breakdowns may come from slightly different
// moments.
type ListStats struct {
	ConfigID  uint           `json:"configId"`
	Total     int64          `json:"total"`
	Used      int64          `json:"used"`
	Available int64          `json:"available"`
	ByGroup   []ArmStats     `json:"byGroup"`
	ByStratum []StratumStats `json:"byStratum"`
}

func (s *randomizationService) stats(ctx context.Context, configID uint) (*ListStats, error) {
	var (
		byArm     []rrepo.ArmUsage
		byStratum []rrepo.StratumUsage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byArm, err = s.entries.UsageByArm(dbctx.Context{Ctx: gctx}, configID)
		return err
	})
	g.Go(func() error {
		var err error
		byStratum, err = s.entries.UsageByStratum(dbctx.Context{Ctx: gctx}, configID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &ListStats{
		ConfigID:  configID,
		ByGroup:   make([]ArmStats, 0, len(byArm)),
		ByStratum: make([]StratumStats, 0, len(byStratum)),
	}
	for _, a := range byArm {
		out.Total += a.Total
		out.Used += a.Used
		out.ByGroup = append(out.ByGroup, ArmStats{
			ArmID:     a.ArmID,
			Total:     a.Total,
			Used:      a.Used,
			Available: a.Total - a.Used,
		})
	}
	out.Available = out.Total - out.Used
	for _, st := range byStratum {
		out.ByStratum = append(out.ByStratum, StratumStats{
			StratumKey: st.StratumKey,
			Total:      st.Total,
			Used:       st.Used,
			Available:  st.Total - st.Used,
		})
	}
	return out, nil
}
