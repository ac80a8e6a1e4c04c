package listgen

import (
	"fmt"
	"strings"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

const (
	MaxStrata           = 999
	MaxEntriesPerStrata = 99999
)

// Stratum is one sub-list to generate: its canonical key, its 1-based position
// in factor cross-product order and the number of slots it must cover.
type Stratum struct {
	Key    string
	Index  int
	Target int
}

// Strata enumerates the cross-product of factor values, first factor slowest.
// No factors yields the single "default" stratum.
func Strata(s *domain.Scheme) ([]Stratum, error) {
	const op = "listgen.Strata"
	keys := []string{domain.DefaultStratumKey}
	if len(s.Factors) > 0 {
		n := 1
		for _, f := range s.Factors {
			n *= len(f.Values)
			if n > MaxStrata {
				return nil, domain.ConfigError(op, fmt.Sprintf("stratification produces more than %d strata", MaxStrata))
			}
		}
		keys = []string{""}
		for _, f := range s.Factors {
			next := make([]string, 0, len(keys)*len(f.Values))
			for _, prefix := range keys {
				for _, v := range f.Values {
					part := f.Name + "=" + strings.TrimSpace(v)
					if prefix != "" {
						part = prefix + "|" + part
					}
					next = append(next, part)
				}
			}
			keys = next
		}
	}

	target := s.TotalSlots
	if s.SlotPolicy == domain.SlotsAcrossStrata {
		target = (s.TotalSlots + len(keys) - 1) / len(keys)
	}
	if target > MaxEntriesPerStrata {
		return nil, domain.ConfigError(op, fmt.Sprintf("a stratum may hold at most %d entries", MaxEntriesPerStrata))
	}

	out := make([]Stratum, 0, len(keys))
	for i, k := range keys {
		out = append(out, Stratum{Key: k, Index: i + 1, Target: target})
	}
	return out, nil
}

// IndexOf returns the 1-based index of key, or 0 when it is not a stratum of s.
func IndexOf(strata []Stratum, key string) int {
	for _, st := range strata {
		if st.Key == key {
			return st.Index
		}
	}
	return 0
}
