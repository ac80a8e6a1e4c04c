package listgen

import (
	"fmt"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

// Entry is one generated slot, not yet persisted.
type Entry struct {
	StratumKey          string `json:"stratumKey"`
	StratumIndex        int    `json:"-"`
	BlockNumber         int    `json:"blockNumber"`
	SequenceNumber      int    `json:"sequenceNumber"`
	ArmID               string `json:"armId"`
	RandomizationNumber string `json:"randomizationNumber"`
}

// Resume describes the entries of a stratum that survive a regeneration.
// New entries continue after LastSequence and LastBlock, and Kept counts
// towards the stratum target.
type Resume struct {
	LastSequence int
	LastBlock    int
	Kept         int
}

type Generator struct {
	rng RNG
}

// New returns a generator drawing from rng, or from a secure stream when nil.
func New(rng RNG) *Generator {
	if rng == nil {
		rng = NewSecureRNG()
	}
	return &Generator{rng: rng}
}

// Generate builds the complete list for every stratum of s. Either the whole
// list is returned or a ConfigError; there is no partial result.
func (g *Generator) Generate(s *domain.Scheme, resume map[string]Resume) ([]Entry, []Stratum, error) {
	const op = "listgen.Generate"
	if err := domain.ValidateArms(op, s.Arms); err != nil {
		return nil, nil, domain.ConfigError(op, domain.MessageOf(err))
	}
	sizes, err := BlockSizes(s)
	if err != nil {
		return nil, nil, err
	}
	strata, err := Strata(s)
	if err != nil {
		return nil, nil, err
	}

	prefix := s.NumberPrefix()
	var out []Entry
	for _, st := range strata {
		r := resume[st.Key]
		var entries []Entry
		if s.RandomizationType == domain.TypeSimple {
			entries = g.simple(s.Arms, st, r)
		} else {
			entries = g.blocks(s.Arms, sizes, st, r)
		}
		if n := len(entries); n > 0 && entries[n-1].SequenceNumber > MaxEntriesPerStrata {
			return nil, nil, domain.ConfigError(op, fmt.Sprintf("stratum %s would exceed %d entries", st.Key, MaxEntriesPerStrata))
		}
		for i := range entries {
			entries[i].RandomizationNumber = Number(prefix, s.ID, st.Index, entries[i].SequenceNumber)
		}
		out = append(out, entries...)
	}
	return out, strata, nil
}

// BlockSizes returns the admissible block sizes of s, each a multiple of the
// ratio sum and no larger than a stratum. Simple randomization has no blocks
// and returns nil.
func BlockSizes(s *domain.Scheme) ([]int, error) {
	const op = "listgen.BlockSizes"
	if s.RandomizationType == domain.TypeSimple {
		return nil, nil
	}
	unit := domain.RatioSum(s.Arms)
	if unit <= 0 {
		return nil, domain.ConfigError(op, "allocation ratios must sum to a positive value")
	}
	sizes := []int{s.BlockSize}
	if s.BlockSizeVaried {
		sizes = append([]int(nil), s.BlockSizes...)
		if len(sizes) == 0 {
			return nil, domain.ConfigError(op, "blockSizesList is empty")
		}
	}
	for _, bs := range sizes {
		if bs > MaxEntriesPerStrata {
			return nil, domain.ConfigError(op, fmt.Sprintf("block size %d exceeds the stratum limit of %d entries", bs, MaxEntriesPerStrata))
		}
		if bs < 2 || bs%unit != 0 {
			return nil, domain.ConfigError(op, fmt.Sprintf("block size %d is not a multiple of the allocation ratio sum %d", bs, unit))
		}
	}
	return sizes, nil
}

// blocks fills st with permuted blocks. Block k takes sizes[(k-1)%len(sizes)],
// so a resumed stratum keeps cycling the list where it left off.
func (g *Generator) blocks(arms []domain.ArmRatio, sizes []int, st Stratum, r Resume) []Entry {
	unit := domain.RatioSum(arms)
	seq, block := r.LastSequence, r.LastBlock
	var out []Entry
	for produced := r.Kept; produced < st.Target; {
		block++
		size := sizes[(block-1)%len(sizes)]
		for _, armID := range g.permutedBlock(arms, size/unit) {
			seq++
			out = append(out, Entry{
				StratumKey:     st.Key,
				StratumIndex:   st.Index,
				BlockNumber:    block,
				SequenceNumber: seq,
				ArmID:          armID,
			})
		}
		produced += size
	}
	return out
}

// permutedBlock lays out multiplier×weight copies of each arm and applies a
// Fisher-Yates shuffle.
func (g *Generator) permutedBlock(arms []domain.ArmRatio, multiplier int) []string {
	var block []string
	for _, a := range arms {
		for i := 0; i < a.Weight*multiplier; i++ {
			block = append(block, a.ArmID)
		}
	}
	for i := len(block) - 1; i > 0; i-- {
		j := g.rng.IntN(i + 1)
		block[i], block[j] = block[j], block[i]
	}
	return block
}

// simple draws every slot independently with probability weight/sum.
func (g *Generator) simple(arms []domain.ArmRatio, st Stratum, r Resume) []Entry {
	unit := domain.RatioSum(arms)
	seq := r.LastSequence
	var out []Entry
	for produced := r.Kept; produced < st.Target; produced++ {
		pick := g.rng.IntN(unit)
		armID := arms[len(arms)-1].ArmID
		for _, a := range arms {
			if pick < a.Weight {
				armID = a.ArmID
				break
			}
			pick -= a.Weight
		}
		seq++
		out = append(out, Entry{
			StratumKey:     st.Key,
			StratumIndex:   st.Index,
			BlockNumber:    1,
			SequenceNumber: seq,
			ArmID:          armID,
		})
	}
	return out
}
