package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

// schemeFile is the on-disk form of a scheme definition.
type schemeFile struct {
	StudyID           int                           `yaml:"studyId"`
	ConfigID          uint                          `yaml:"configId"`
	Name              string                        `yaml:"name"`
	RandomizationType domain.RandomizationType      `yaml:"randomizationType"`
	BlindingLevel     domain.BlindingLevel          `yaml:"blindingLevel"`
	BlockSize         int                           `yaml:"blockSize"`
	BlockSizeVaried   bool                          `yaml:"blockSizeVaried"`
	BlockSizesList    []int                         `yaml:"blockSizesList"`
	AllocationRatios  []domain.ArmRatio             `yaml:"allocationRatios"`
	Factors           []domain.StratificationFactor `yaml:"stratificationFactors"`
	TotalSlots        int                           `yaml:"totalSlots"`
	SlotPolicy        domain.SlotPolicy             `yaml:"slotPolicy"`
	DrugKitManagement bool                          `yaml:"drugKitManagement"`
	DrugKitPrefix     string                        `yaml:"drugKitPrefix"`
	SiteSpecific      bool                          `yaml:"siteSpecific"`
}

func loadScheme(r io.Reader) (*domain.Scheme, error) {
	var f schemeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode scheme: %w", err)
	}
	s := &domain.Scheme{
		ID:                f.ConfigID,
		StudyID:           f.StudyID,
		Name:              f.Name,
		RandomizationType: f.RandomizationType,
		BlindingLevel:     f.BlindingLevel,
		BlockSize:         f.BlockSize,
		BlockSizeVaried:   f.BlockSizeVaried,
		BlockSizes:        f.BlockSizesList,
		Arms:              f.AllocationRatios,
		Factors:           f.Factors,
		TotalSlots:        f.TotalSlots,
		SlotPolicy:        f.SlotPolicy,
		DrugKitManagement: f.DrugKitManagement,
		DrugKitPrefix:     f.DrugKitPrefix,
		SiteSpecific:      f.SiteSpecific,
	}
	s.ApplyDefaults()
	if err := s.ValidateDefinition("scheme-preview"); err != nil {
		return nil, err
	}
	return s, nil
}
