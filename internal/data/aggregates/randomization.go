package aggregates

import (
	"context"
	"fmt"
	"time"

	rrepo "github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/randomization"
	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/randomization/listgen"
)

// AuditAppender records an audit event through the caller's transaction.
type AuditAppender interface {
	Append(dbc dbctx.Context, rec domain.AuditRecord) error
}

// SchemeValidator checks a scheme against data outside the aggregate, such
// as the study's arm catalog. It runs inside the write transaction.
type SchemeValidator interface {
	ValidateScheme(dbc dbctx.Context, s *domain.Scheme) error
}

type RandomizationAggregateDeps struct {
	Base BaseDeps
	// ClaimRunner bounds claim transactions separately from list generation.
	ClaimRunner TxRunner

	Schemes     rrepo.SchemeRepo
	Strata      rrepo.StratumRepo
	Entries     rrepo.ListEntryRepo
	Assignments rrepo.AssignmentRepo
	Audit       AuditAppender
	Validator   SchemeValidator
	Generator   *listgen.Generator
}

type randomizationAggregate struct {
	deps RandomizationAggregateDeps
}

var _ domain.Aggregate = (*randomizationAggregate)(nil)

func NewRandomizationAggregate(deps RandomizationAggregateDeps) domain.Aggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.ClaimRunner == nil {
		deps.ClaimRunner = deps.Base.Runner
	}
	if deps.Generator == nil {
		deps.Generator = listgen.New(nil)
	}
	return &randomizationAggregate{deps: deps}
}

func (a *randomizationAggregate) ready(op string) error {
	d := a.deps
	if d.Schemes == nil || d.Strata == nil || d.Entries == nil || d.Assignments == nil || d.Audit == nil {
		return domain.NewError(domain.CodeInternal, op, "randomization aggregate not configured", nil)
	}
	return nil
}

func (a *randomizationAggregate) Create(ctx context.Context, s *domain.Scheme, actorID int) (*domain.Scheme, error) {
	const op = "randomization.scheme.create"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ValidationError(op, "scheme is required")
	}
	s.ID = 0
	s.ApplyDefaults()
	s.Status = domain.StatusDraft
	s.CreatedBy = actorID
	s.UpdatedBy = actorID
	s.GeneratedAt = nil
	s.ActivatedAt = nil
	if err := s.Validate(op); err != nil {
		return nil, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.validate(dbc, s); err != nil {
			return err
		}
		if err := a.deps.Schemes.Create(dbc, s); err != nil {
			return err
		}
		return a.audit(dbc, domain.AuditRecord{
			Kind:     domain.AuditSchemeCreated,
			ActorID:  actorID,
			StudyID:  &s.StudyID,
			ConfigID: &s.ID,
			NewValue: s,
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *randomizationAggregate) Update(ctx context.Context, configID uint, patch domain.SchemePatch, actorID int) (*domain.Scheme, error) {
	const op = "randomization.scheme.update"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	var out *domain.Scheme
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, err := a.deps.Schemes.LockByID(dbc, configID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.NotFoundError(op, fmt.Sprintf("randomization config %d", configID))
		}
		next, err := s.Next(op, domain.EventEdit)
		if err != nil {
			return err
		}
		before := *s

		patch.Apply(s)
		s.ApplyDefaults()
		if err := s.Validate(op); err != nil {
			return err
		}
		if err := a.validate(dbc, s); err != nil {
			return err
		}

		// An edit invalidates any generated list.
		if before.Status == domain.StatusGenerated {
			if _, err := a.deps.Entries.DeleteUnclaimedBlocks(dbc, s.ID); err != nil {
				return err
			}
			if _, err := a.deps.Strata.DeleteByConfig(dbc, s.ID); err != nil {
				return err
			}
			s.GeneratedAt = nil
		}
		s.Status = next
		s.UpdatedBy = actorID
		if err := a.deps.Schemes.SaveDefinition(dbc, s); err != nil {
			return err
		}
		out = s
		return a.audit(dbc, domain.AuditRecord{
			Kind:     domain.AuditSchemeUpdated,
			ActorID:  actorID,
			StudyID:  &s.StudyID,
			ConfigID: &s.ID,
			OldValue: &before,
			NewValue: s,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *randomizationAggregate) Generate(ctx context.Context, configID uint, actorID int) (domain.GenerateResult, error) {
	const op = "randomization.list.generate"
	var out domain.GenerateResult
	if err := a.ready(op); err != nil {
		return out, err
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, err := a.deps.Schemes.LockByID(dbc, configID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.NotFoundError(op, fmt.Sprintf("randomization config %d", configID))
		}
		if _, err := s.Next(op, domain.EventGenerate); err != nil {
			return err
		}

		if _, err := a.deps.Entries.DeleteUnclaimedBlocks(dbc, s.ID); err != nil {
			return err
		}
		progress, err := a.deps.Entries.Progress(dbc, s.ID)
		if err != nil {
			return err
		}
		resume := make(map[string]listgen.Resume, len(progress))
		for key, p := range progress {
			resume[key] = listgen.Resume{LastSequence: p.LastSequence, LastBlock: p.LastBlock, Kept: p.Count}
		}

		generated, strata, err := a.deps.Generator.Generate(s, resume)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		rows := make([]*domain.ListEntry, 0, len(generated))
		perStratum := make(map[string]int, len(strata))
		for _, e := range generated {
			rows = append(rows, &domain.ListEntry{
				ConfigID:            s.ID,
				StratumKey:          e.StratumKey,
				BlockNumber:         e.BlockNumber,
				SequenceNumber:      e.SequenceNumber,
				ArmID:               e.ArmID,
				RandomizationNumber: e.RandomizationNumber,
				CreatedAt:           now,
			})
			perStratum[e.StratumKey]++
		}
		if err := a.deps.Entries.CreateBatch(dbc, rows); err != nil {
			return err
		}

		strataRows := make([]*domain.Stratum, 0, len(strata))
		for _, st := range strata {
			strataRows = append(strataRows, &domain.Stratum{
				ConfigID:     s.ID,
				StratumKey:   st.Key,
				StratumIndex: st.Index,
				TotalEntries: resume[st.Key].Kept + perStratum[st.Key],
			})
		}
		if err := a.deps.Strata.Upsert(dbc, strataRows); err != nil {
			return err
		}

		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, domain.Scheme{}.TableName(), s.ID,
			[]domain.SchemeStatus{domain.StatusDraft, domain.StatusGenerated},
			map[string]any{
				"status":       domain.StatusGenerated,
				"generated_at": now,
				"updated_by":   actorID,
				"updated_at":   now,
			})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "randomization config changed during generation"); err != nil {
			return err
		}
		s.Status = domain.StatusGenerated
		s.GeneratedAt = &now
		s.UpdatedBy = actorID
		s.UpdatedAt = now

		total, err := a.deps.Entries.CountByConfig(dbc, s.ID)
		if err != nil {
			return err
		}
		blockSizes, _ := listgen.BlockSizes(s)
		out = domain.GenerateResult{
			Scheme:       s,
			TotalEntries: total,
			NewEntries:   len(rows),
			Strata:       len(strata),
		}
		return a.audit(dbc, domain.AuditRecord{
			Kind:     domain.AuditListGenerated,
			ActorID:  actorID,
			StudyID:  &s.StudyID,
			ConfigID: &s.ID,
			NewValue: map[string]any{
				"totalEntries": total,
				"newEntries":   len(rows),
				"strata":       len(strata),
				"blockSizes":   blockSizes,
			},
		})
	})
	if err != nil {
		return domain.GenerateResult{}, err
	}
	a.deps.Base.Hooks.AddGeneratedEntries(out.NewEntries)
	return out, nil
}

func (a *randomizationAggregate) Activate(ctx context.Context, configID uint, actorID int) (*domain.Scheme, error) {
	const op = "randomization.scheme.activate"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	var out *domain.Scheme
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, err := a.deps.Schemes.LockByID(dbc, configID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.NotFoundError(op, fmt.Sprintf("randomization config %d", configID))
		}
		if _, err := s.Next(op, domain.EventActivate); err != nil {
			return err
		}
		n, err := a.deps.Entries.CountByConfig(dbc, s.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NoListError(op, s.ID)
		}

		now := time.Now().UTC()
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, domain.Scheme{}.TableName(), s.ID,
			[]domain.SchemeStatus{domain.StatusGenerated},
			map[string]any{
				"status":       domain.StatusActive,
				"activated_at": now,
				"updated_by":   actorID,
				"updated_at":   now,
			})
		if err != nil {
			if IsUniqueViolation(err) {
				return domain.NewError(domain.CodeActiveSchemeExists, op,
					fmt.Sprintf("study %d already has an active randomization scheme", s.StudyID), err)
			}
			return err
		}
		if err := RequireCASSuccess(ok, "randomization config changed during activation"); err != nil {
			return err
		}
		before := s.Status
		s.Status = domain.StatusActive
		s.ActivatedAt = &now
		s.UpdatedBy = actorID
		s.UpdatedAt = now
		out = s
		return a.audit(dbc, domain.AuditRecord{
			Kind:     domain.AuditSchemeActivated,
			ActorID:  actorID,
			StudyID:  &s.StudyID,
			ConfigID: &s.ID,
			OldValue: map[string]any{"status": before},
			NewValue: map[string]any{"status": s.Status, "totalEntries": n},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Claim consumes the next unused entry of the subject's stratum. Claims in one
// stratum serialize on the stratum row; claims in different strata do not
// contend.
func (a *randomizationAggregate) Claim(ctx context.Context, in domain.ClaimInput) (domain.ClaimResult, error) {
	const op = "randomization.subject.claim"
	var out domain.ClaimResult
	if err := a.ready(op); err != nil {
		return out, err
	}
	if in.StudyID <= 0 {
		return out, domain.ValidationError(op, "studyId is required")
	}
	if in.StudySubjectID <= 0 {
		return out, domain.ValidationError(op, "studySubjectId is required")
	}

	var (
		scheme *domain.Scheme
		key    string
	)
	deps := a.deps.Base
	deps.Runner = a.deps.ClaimRunner
	err := executeWrite(ctx, deps, op, func(dbc dbctx.Context) error {
		s, err := a.deps.Schemes.GetActiveByStudy(dbc, in.StudyID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.NoActiveSchemeError(op, in.StudyID)
		}
		scheme = s
		key, err = domain.StratumKey(op, s.Factors, in.StratumValues)
		if err != nil {
			return err
		}

		st, err := a.deps.Strata.LockByKey(dbc, s.ID, key)
		if err != nil {
			return err
		}
		if st == nil {
			return domain.ExhaustedError(op, key)
		}

		existing, err := a.deps.Assignments.GetBySubject(dbc, in.StudySubjectID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.DuplicateAssignmentError(op, in.StudySubjectID)
		}

		entry, err := a.deps.Entries.NextUnused(dbc, s.ID, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ExhaustedError(op, key)
		}

		now := time.Now().UTC()
		subjectID := in.StudySubjectID
		ok, err := a.deps.Base.CASGuard.ClaimUnused(dbc, domain.ListEntry{}.TableName(), entry.ID, map[string]any{
			"used_by_subject_id": subjectID,
			"used_at":            now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("list entry %d was claimed concurrently", entry.ID)); err != nil {
			return err
		}
		entry.Used = true
		entry.UsedBySubjectID = &subjectID
		entry.UsedAt = &now

		asg := &domain.Assignment{
			StudySubjectID:      subjectID,
			StudyID:             s.StudyID,
			ConfigID:            s.ID,
			ListEntryID:         entry.ID,
			ArmID:               entry.ArmID,
			StratumKey:          key,
			SequenceNumber:      entry.SequenceNumber,
			RandomizationNumber: entry.RandomizationNumber,
			AssignedBy:          in.ActorID,
			AssignedAt:          now,
		}
		if err := a.deps.Assignments.Create(dbc, asg); err != nil {
			if IsUniqueViolation(err) {
				return domain.DuplicateAssignmentError(op, subjectID)
			}
			return err
		}

		out = domain.ClaimResult{Scheme: s, Assignment: asg, Entry: entry}
		return a.audit(dbc, domain.AuditRecord{
			Kind:           domain.AuditSubjectRandomized,
			ActorID:        in.ActorID,
			StudyID:        &s.StudyID,
			ConfigID:       &s.ID,
			StudySubjectID: &subjectID,
			EntityRefs: map[string]any{
				"listEntryId":  entry.ID,
				"assignmentId": asg.ID,
			},
			NewValue: map[string]any{
				"armId":               entry.ArmID,
				"stratumKey":          key,
				"sequenceNumber":      entry.SequenceNumber,
				"blockNumber":         entry.BlockNumber,
				"randomizationNumber": entry.RandomizationNumber,
			},
		})
	})
	if err != nil {
		if failErr := a.auditFailure(ctx, in, scheme, key, err); failErr != nil {
			a.deps.Base.Log.Error("failed to audit randomization failure",
				"study_id", in.StudyID,
				"study_subject_id", in.StudySubjectID,
				"error", failErr,
			)
		}
		return domain.ClaimResult{}, err
	}
	return out, nil
}

// auditFailure records a refused claim in its own transaction, after the
// claim's transaction rolled back.
func (a *randomizationAggregate) auditFailure(ctx context.Context, in domain.ClaimInput, s *domain.Scheme, key string, cause error) error {
	switch domain.CodeOf(cause) {
	case domain.CodeDuplicate, domain.CodeExhausted, domain.CodeNoActiveScheme:
	default:
		return nil
	}
	subjectID := in.StudySubjectID
	studyID := in.StudyID
	rec := domain.AuditRecord{
		Kind:           domain.AuditRandomizeFailed,
		ActorID:        in.ActorID,
		StudyID:        &studyID,
		StudySubjectID: &subjectID,
		Reason:         domain.MessageOf(cause),
		NewValue: map[string]any{
			"code":       domain.CodeOf(cause),
			"stratumKey": key,
		},
	}
	if s != nil {
		id := s.ID
		rec.ConfigID = &id
	}
	return executeWrite(ctx, a.deps.Base, "randomization.subject.claim_failed", func(dbc dbctx.Context) error {
		return a.audit(dbc, rec)
	})
}

func (a *randomizationAggregate) validate(dbc dbctx.Context, s *domain.Scheme) error {
	if a.deps.Validator == nil {
		return nil
	}
	return a.deps.Validator.ValidateScheme(dbc, s)
}

func (a *randomizationAggregate) audit(dbc dbctx.Context, rec domain.AuditRecord) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	return a.deps.Audit.Append(dbc, rec)
}
