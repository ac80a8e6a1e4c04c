package listgen

import (
	"math"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

type ArmShare struct {
	ArmID      string  `json:"armId"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type StratumCount struct {
	StratumKey string `json:"stratumKey"`
	Count      int    `json:"count"`
}

type Preview struct {
	Entries      []Entry        `json:"preview"`
	TotalEntries int            `json:"totalEntries"`
	Arms         []ArmShare     `json:"stats"`
	Strata       []StratumCount `json:"strata"`
}

// Preview runs the generator without persistence and summarises the result.
// Only the first limit entries are returned; counts cover the whole list.
func (g *Generator) Preview(s *domain.Scheme, limit int) (*Preview, error) {
	entries, strata, err := g.Generate(s, nil)
	if err != nil {
		return nil, err
	}
	return Summarize(s.Arms, strata, entries, limit), nil
}

func Summarize(arms []domain.ArmRatio, strata []Stratum, entries []Entry, limit int) *Preview {
	byArm := make(map[string]int, len(arms))
	byStratum := make(map[string]int, len(strata))
	for _, e := range entries {
		byArm[e.ArmID]++
		byStratum[e.StratumKey]++
	}

	p := &Preview{TotalEntries: len(entries)}
	if limit < 0 || limit > len(entries) {
		limit = len(entries)
	}
	p.Entries = append([]Entry(nil), entries[:limit]...)
	for _, a := range arms {
		p.Arms = append(p.Arms, ArmShare{
			ArmID:      a.ArmID,
			Count:      byArm[a.ArmID],
			Percentage: percentage(byArm[a.ArmID], len(entries)),
		})
	}
	for _, st := range strata {
		p.Strata = append(p.Strata, StratumCount{StratumKey: st.Key, Count: byStratum[st.Key]})
	}
	return p
}

func percentage(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*10000/float64(total)) / 100
}
