package randomization

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Scheme struct {
	ID                uint                                      `gorm:"primaryKey;autoIncrement" json:"configId"`
	StudyID           int                                       `gorm:"column:study_id;not null;index" json:"studyId"`
	Name              string                                    `gorm:"column:name;not null" json:"name"`
	Description       string                                    `gorm:"column:description" json:"description,omitempty"`
	RandomizationType RandomizationType                         `gorm:"column:randomization_type;not null" json:"randomizationType"`
	BlindingLevel     BlindingLevel                             `gorm:"column:blinding_level;not null" json:"blindingLevel"`
	BlockSize         int                                       `gorm:"column:block_size;not null" json:"blockSize"`
	BlockSizeVaried   bool                                      `gorm:"column:block_size_varied;not null" json:"blockSizeVaried"`
	BlockSizes        datatypes.JSONSlice[int]                  `gorm:"column:block_sizes_list" json:"blockSizesList,omitempty"`
	Arms              datatypes.JSONSlice[ArmRatio]             `gorm:"column:allocation_ratios;not null" json:"allocationRatios"`
	Factors           datatypes.JSONSlice[StratificationFactor] `gorm:"column:stratification_factors" json:"stratificationFactors"`
	StudyGroupClassID *int                                      `gorm:"column:study_group_class_id" json:"studyGroupClassId,omitempty"`
	TotalSlots        int                                       `gorm:"column:total_slots;not null" json:"totalSlots"`
	SlotPolicy        SlotPolicy                                `gorm:"column:slot_policy;not null" json:"slotPolicy"`
	DrugKitManagement bool                                      `gorm:"column:drug_kit_management;not null" json:"drugKitManagement"`
	DrugKitPrefix     string                                    `gorm:"column:drug_kit_prefix" json:"drugKitPrefix,omitempty"`
	SiteSpecific      bool                                      `gorm:"column:site_specific;not null" json:"siteSpecific"`
	Status            SchemeStatus                              `gorm:"column:status;not null;index" json:"status"`
	CreatedBy         int                                       `gorm:"column:created_by" json:"createdBy"`
	UpdatedBy         int                                       `gorm:"column:updated_by" json:"updatedBy,omitempty"`
	GeneratedAt       *time.Time                                `gorm:"column:generated_at" json:"generatedAt,omitempty"`
	ActivatedAt       *time.Time                                `gorm:"column:activated_at" json:"activatedAt,omitempty"`
	CreatedAt         time.Time                                 `gorm:"column:created_at;not null;index" json:"createdAt"`
	UpdatedAt         time.Time                                 `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Scheme) TableName() string { return "randomization_config" }

// ApplyDefaults fills the creation defaults for unset fields.
func (s *Scheme) ApplyDefaults() {
	if s.BlockSize == 0 {
		s.BlockSize = DefaultBlockSize
	}
	if s.BlindingLevel == "" {
		s.BlindingLevel = DoubleBlind
	}
	if s.TotalSlots == 0 {
		s.TotalSlots = DefaultTotalSlots
	}
	if s.RandomizationType == "" {
		if len(s.Factors) > 0 {
			s.RandomizationType = TypeStratified
		} else {
			s.RandomizationType = TypeBlock
		}
	}
	if s.SlotPolicy == "" {
		s.SlotPolicy = SlotsPerStratum
	}
	if s.DrugKitManagement && strings.TrimSpace(s.DrugKitPrefix) == "" {
		s.DrugKitPrefix = DefaultDrugKitPrefix
	}
	if s.Status == "" {
		s.Status = StatusDraft
	}
}

// Validate checks a scheme before it is stored: its owning study and name
// plus every definition rule.
func (s *Scheme) Validate(op string) error {
	if s.StudyID <= 0 {
		return ValidationError(op, "studyId is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return ValidationError(op, "name is required")
	}
	return s.ValidateDefinition(op)
}

// ValidateDefinition checks the rules that decide whether a list can be
// generated, except block arithmetic. Divisibility is checked by the list
// generator and reported as ConfigError. Unsaved previews need no study or name.
func (s *Scheme) ValidateDefinition(op string) error {
	if err := ValidateArms(op, s.Arms); err != nil {
		return err
	}
	if err := ValidateFactors(op, s.Factors); err != nil {
		return err
	}
	if !s.RandomizationType.Valid() {
		return ValidationError(op, "unknown randomizationType "+string(s.RandomizationType))
	}
	if !s.BlindingLevel.Valid() {
		return ValidationError(op, "unknown blindingLevel "+string(s.BlindingLevel))
	}
	if !s.SlotPolicy.Valid() {
		return ValidationError(op, "unknown slotPolicy "+string(s.SlotPolicy))
	}
	if s.BlockSize < 2 || s.BlockSize > MaxBlockSize {
		return ValidationError(op, fmt.Sprintf("blockSize must be between 2 and %d", MaxBlockSize))
	}
	if s.BlockSizeVaried && len(s.BlockSizes) == 0 {
		return ValidationError(op, "blockSizesList is required when blockSizeVaried is set")
	}
	for _, bs := range s.BlockSizes {
		if bs < 2 || bs > MaxBlockSize {
			return ValidationError(op, fmt.Sprintf("every entry of blockSizesList must be between 2 and %d", MaxBlockSize))
		}
	}
	if s.TotalSlots < 1 {
		return ValidationError(op, "totalSlots must be positive")
	}
	if s.RandomizationType == TypeStratified && len(s.Factors) == 0 {
		return ValidationError(op, "stratified randomization requires at least one stratification factor")
	}
	if s.SiteSpecific && !s.HasFactor(SiteFactorName) {
		return ValidationError(op, "site-specific randomization requires a stratification factor named \"site\"")
	}
	return nil
}

func (s *Scheme) HasFactor(name string) bool {
	for _, f := range s.Factors {
		if f.Name == name {
			return true
		}
	}
	return false
}

// NumberPrefix is the prefix of generated randomization numbers.
func (s *Scheme) NumberPrefix() string {
	if s.DrugKitManagement {
		if p := strings.TrimSpace(s.DrugKitPrefix); p != "" {
			return p
		}
		return DefaultDrugKitPrefix
	}
	return DefaultNumberPrefix
}

// ArmIDs returns arm identifiers in declared order.
func (s *Scheme) ArmIDs() []string {
	out := make([]string, 0, len(s.Arms))
	for _, a := range s.Arms {
		out = append(out, a.ArmID)
	}
	return out
}
