package randomization

import (
	"fmt"
	"strings"
)

type RandomizationType string

const (
	TypeSimple     RandomizationType = "simple"
	TypeBlock      RandomizationType = "block"
	TypeStratified RandomizationType = "stratified"
)

func (t RandomizationType) Valid() bool {
	switch t {
	case TypeSimple, TypeBlock, TypeStratified:
		return true
	}
	return false
}

type BlindingLevel string

const (
	OpenLabel   BlindingLevel = "open_label"
	SingleBlind BlindingLevel = "single_blind"
	DoubleBlind BlindingLevel = "double_blind"
)

func (b BlindingLevel) Valid() bool {
	switch b {
	case OpenLabel, SingleBlind, DoubleBlind:
		return true
	}
	return false
}

// SlotPolicy decides how TotalSlots is spread over strata.
type SlotPolicy string

const (
	// SlotsPerStratum gives every stratum TotalSlots entries.
	SlotsPerStratum SlotPolicy = "per_stratum"
	// SlotsAcrossStrata divides TotalSlots over the strata, rounding up.
	SlotsAcrossStrata SlotPolicy = "across_strata"
)

func (p SlotPolicy) Valid() bool {
	return p == SlotsPerStratum || p == SlotsAcrossStrata
}

const (
	DefaultStratumKey    = "default"
	DefaultBlockSize     = 4
	DefaultTotalSlots    = 100
	DefaultDrugKitPrefix = "KIT"
	DefaultNumberPrefix  = "RND"
	SiteFactorName       = "site"

	// MaxBlockSize bounds blockSize and every blockSizesList entry. A block
	// never holds more entries than a stratum may.
	MaxBlockSize = 99999
	// MaxArmWeight bounds each allocation weight so RatioSum cannot overflow.
	MaxArmWeight = MaxBlockSize
)

// ArmRatio is one arm and its allocation weight. Order is significant.
type ArmRatio struct {
	ArmID  string `json:"armId" yaml:"armId"`
	Weight int    `json:"weight" yaml:"weight"`
}

// StratificationFactor is a named baseline characteristic with a finite value set.
type StratificationFactor struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// ValidateArms checks cardinality, distinct IDs and positive weights.
func ValidateArms(op string, arms []ArmRatio) error {
	if len(arms) < 2 {
		return ValidationError(op, "at least 2 treatment arms are required")
	}
	seen := make(map[string]struct{}, len(arms))
	for _, a := range arms {
		id := strings.TrimSpace(a.ArmID)
		if id == "" {
			return ValidationError(op, "arm id is required")
		}
		if _, dup := seen[id]; dup {
			return ValidationError(op, fmt.Sprintf("arm %q is listed twice", id))
		}
		seen[id] = struct{}{}
		if a.Weight < 1 {
			return ValidationError(op, fmt.Sprintf("arm %q weight must be a positive integer", id))
		}
		if a.Weight > MaxArmWeight {
			return ValidationError(op, fmt.Sprintf("arm %q weight may be at most %d", id, MaxArmWeight))
		}
	}
	return nil
}

func ValidateFactors(op string, factors []StratificationFactor) error {
	names := make(map[string]struct{}, len(factors))
	for _, f := range factors {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return ValidationError(op, "stratification factor name is required")
		}
		if strings.ContainsAny(name, "=|") {
			return ValidationError(op, fmt.Sprintf("stratification factor %q contains a reserved character", name))
		}
		if _, dup := names[name]; dup {
			return ValidationError(op, fmt.Sprintf("stratification factor %q is listed twice", name))
		}
		names[name] = struct{}{}
		if len(f.Values) == 0 {
			return ValidationError(op, fmt.Sprintf("stratification factor %q has no values", name))
		}
		vals := make(map[string]struct{}, len(f.Values))
		for _, v := range f.Values {
			v = strings.TrimSpace(v)
			if v == "" || strings.ContainsAny(v, "=|") {
				return ValidationError(op, fmt.Sprintf("stratification factor %q has an invalid value %q", name, v))
			}
			if _, dup := vals[v]; dup {
				return ValidationError(op, fmt.Sprintf("stratification factor %q lists value %q twice", name, v))
			}
			vals[v] = struct{}{}
		}
	}
	return nil
}

// RatioSum is the block unit: every block size must be a multiple of it.
func RatioSum(arms []ArmRatio) int {
	sum := 0
	for _, a := range arms {
		sum += a.Weight
	}
	return sum
}

// StratumKey builds the canonical key from supplied values in declared factor order.
// Undeclared keys in values are ignored.
func StratumKey(op string, factors []StratificationFactor, values map[string]string) (string, error) {
	if len(factors) == 0 {
		return DefaultStratumKey, nil
	}
	parts := make([]string, 0, len(factors))
	for _, f := range factors {
		v, ok := values[f.Name]
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return "", ValidationError(op, fmt.Sprintf("stratification value for %q is required", f.Name))
		}
		if !containsString(f.Values, v) {
			return "", ValidationError(op, fmt.Sprintf("%q is not a declared value of %q", v, f.Name))
		}
		parts = append(parts, f.Name+"="+v)
	}
	return strings.Join(parts, "|"), nil
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if strings.TrimSpace(x) == s {
			return true
		}
	}
	return false
}
