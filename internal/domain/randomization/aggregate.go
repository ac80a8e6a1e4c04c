package randomization

import (
	"context"
	"time"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/pointers"
)

// Aggregate owns every write to a scheme and its sealed list. Each method is
// one transaction; a returned error means nothing was written.
type Aggregate interface {
	Create(ctx context.Context, s *Scheme, actorID int) (*Scheme, error)
	Update(ctx context.Context, configID uint, patch SchemePatch, actorID int) (*Scheme, error)
	Generate(ctx context.Context, configID uint, actorID int) (GenerateResult, error)
	Activate(ctx context.Context, configID uint, actorID int) (*Scheme, error)
	Claim(ctx context.Context, in ClaimInput) (ClaimResult, error)
}

type GenerateResult struct {
	Scheme       *Scheme
	TotalEntries int64
	NewEntries   int
	Strata       int
}

type ClaimInput struct {
	StudyID        int
	StudySubjectID int
	ActorID        int
	StratumValues  map[string]string
}

type ClaimResult struct {
	Scheme     *Scheme
	Assignment *Assignment
	Entry      *ListEntry
}

// SchemePatch carries the fields an update may change. Nil means unchanged.
type SchemePatch struct {
	Name              *string                 `json:"name,omitempty"`
	Description       *string                 `json:"description,omitempty"`
	RandomizationType *RandomizationType      `json:"randomizationType,omitempty"`
	BlindingLevel     *BlindingLevel          `json:"blindingLevel,omitempty"`
	BlockSize         *int                    `json:"blockSize,omitempty"`
	BlockSizeVaried   *bool                   `json:"blockSizeVaried,omitempty"`
	BlockSizes        *[]int                  `json:"blockSizesList,omitempty"`
	Arms              *[]ArmRatio             `json:"allocationRatios,omitempty"`
	Factors           *[]StratificationFactor `json:"stratificationFactors,omitempty"`
	StudyGroupClassID *int                    `json:"studyGroupClassId,omitempty"`
	TotalSlots        *int                    `json:"totalSlots,omitempty"`
	SlotPolicy        *SlotPolicy             `json:"slotPolicy,omitempty"`
	DrugKitManagement *bool                   `json:"drugKitManagement,omitempty"`
	DrugKitPrefix     *string                 `json:"drugKitPrefix,omitempty"`
	SiteSpecific      *bool                   `json:"siteSpecific,omitempty"`
}

// Apply merges p into s.
func (p SchemePatch) Apply(s *Scheme) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.RandomizationType != nil {
		s.RandomizationType = *p.RandomizationType
	}
	if p.BlindingLevel != nil {
		s.BlindingLevel = *p.BlindingLevel
	}
	if p.BlockSize != nil {
		s.BlockSize = *p.BlockSize
	}
	if p.BlockSizeVaried != nil {
		s.BlockSizeVaried = *p.BlockSizeVaried
	}
	if p.BlockSizes != nil {
		s.BlockSizes = *p.BlockSizes
	}
	if p.Arms != nil {
		s.Arms = *p.Arms
	}
	if p.Factors != nil {
		s.Factors = *p.Factors
	}
	if p.StudyGroupClassID != nil {
		s.StudyGroupClassID = nil
		if id := *p.StudyGroupClassID; id > 0 {
			s.StudyGroupClassID = pointers.Ptr(id)
		}
	}
	if p.TotalSlots != nil {
		s.TotalSlots = *p.TotalSlots
	}
	if p.SlotPolicy != nil {
		s.SlotPolicy = *p.SlotPolicy
	}
	if p.DrugKitManagement != nil {
		s.DrugKitManagement = *p.DrugKitManagement
	}
	if p.DrugKitPrefix != nil {
		s.DrugKitPrefix = *p.DrugKitPrefix
	}
	if p.SiteSpecific != nil {
		s.SiteSpecific = *p.SiteSpecific
	}
}

// AuditRecord is what the audit collaborator receives. It is never blinded.
type AuditRecord struct {
	Kind           AuditEventKind `json:"kind"`
	ActorID        int            `json:"actorId"`
	StudyID        *int           `json:"studyId,omitempty"`
	ConfigID       *uint          `json:"configId,omitempty"`
	StudySubjectID *int           `json:"studySubjectId,omitempty"`
	EntityRefs     map[string]any `json:"entityRefs,omitempty"`
	OldValue       any            `json:"oldValue,omitempty"`
	NewValue       any            `json:"newValue,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
}
