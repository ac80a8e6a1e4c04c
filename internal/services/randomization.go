package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rrepo "github.com/HamezGuy/libreclinicaapi-sub001/internal/data/repos/randomization"
	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/observability"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/randomization/blinding"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/randomization/listgen"
)

const DefaultPreviewLimit = 100

type RandomizationService interface {
	SaveConfig(ctx context.Context, s *domain.Scheme, actorID int) (*domain.Scheme, error)
	UpdateConfig(ctx context.Context, configID uint, patch domain.SchemePatch, actorID int) (*domain.Scheme, error)
	GetConfig(ctx context.Context, studyID int) (*ConfigView, error)
	GetConfigByID(ctx context.Context, configID uint) (*ConfigView, error)
	GenerateList(ctx context.Context, configID uint, actorID int) (*GenerateListResult, error)
	ActivateConfig(ctx context.Context, configID uint, actorID int) (*domain.Scheme, error)
	TestConfig(ctx context.Context, s *domain.Scheme) (*listgen.Preview, error)
	GetListStats(ctx context.Context, configID uint) (*ListStats, error)
	RandomizeSubject(ctx context.Context, in domain.ClaimInput) (*RandomizeResult, error)
}

// ConfigView is a scheme as callers see it. Stats are attached while active.
type ConfigView struct {
	*domain.Scheme
	IsActive bool       `json:"isActive"`
	IsLocked bool       `json:"isLocked"`
	Stats    *ListStats `json:"stats,omitempty"`
}

type GenerateListResult struct {
	ConfigID     uint  `json:"configId"`
	TotalEntries int64 `json:"totalEntries"`
	Strata       int   `json:"strata"`
}

// RandomizeResult is the caller-facing outcome of a claim, already passed
// through the blinding presenter.
type RandomizeResult struct {
	ConfigID            uint                 `json:"configId"`
	StudySubjectID      int                  `json:"studySubjectId"`
	RandomizationNumber string               `json:"randomizationNumber"`
	ArmID               string               `json:"armId"`
	Label               string               `json:"label"`
	IsBlinded           bool                 `json:"isBlinded"`
	BlindingLevel       domain.BlindingLevel `json:"blindingLevel"`
	SequenceNumber      int                  `json:"sequenceNumber"`
	StratumKey          string               `json:"stratumKey"`
	AssignedAt          time.Time            `json:"assignedAt"`
}

type RandomizationServiceDeps struct {
	Log       *logger.Logger
	Aggregate domain.Aggregate
	Schemes   rrepo.SchemeRepo
	Entries   rrepo.ListEntryRepo
	Catalog   ArmCatalog
	Metrics   *observability.Metrics
	// Preview draws test lists. It never shares a stream with generation.
	Preview      *listgen.Generator
	PreviewLimit int
}

type randomizationService struct {
	log          *logger.Logger
	agg          domain.Aggregate
	schemes      rrepo.SchemeRepo
	entries      rrepo.ListEntryRepo
	catalog      ArmCatalog
	metrics      *observability.Metrics
	preview      *listgen.Generator
	previewLimit int
}

func NewRandomizationService(deps RandomizationServiceDeps) RandomizationService {
	if deps.Preview == nil {
		deps.Preview = listgen.New(nil)
	}
	if deps.PreviewLimit <= 0 {
		deps.PreviewLimit = DefaultPreviewLimit
	}
	return &randomizationService{
		log:          deps.Log.With("service", "RandomizationService"),
		agg:          deps.Aggregate,
		schemes:      deps.Schemes,
		entries:      deps.Entries,
		catalog:      deps.Catalog,
		metrics:      deps.Metrics,
		preview:      deps.Preview,
		previewLimit: deps.PreviewLimit,
	}
}

func (s *randomizationService) SaveConfig(ctx context.Context, in *domain.Scheme, actorID int) (*domain.Scheme, error) {
	const op = "saveConfig"
	ctx, span := observability.StartSpan(ctx, "randomization.save_config")
	defer span.End()

	out, err := s.agg.Create(ctx, in, actorID)
	if err != nil {
		s.fail(span, op, err, "actor_id", actorID)
		return nil, err
	}
	s.log.Info("randomization config saved", "config_id", out.ID, "study_id", out.StudyID, "actor_id", actorID)
	return out, nil
}

func (s *randomizationService) UpdateConfig(ctx context.Context, configID uint, patch domain.SchemePatch, actorID int) (*domain.Scheme, error) {
	const op = "updateConfig"
	ctx, span := observability.StartSpan(ctx, "randomization.update_config", attribute.Int64("config.id", int64(configID)))
	defer span.End()

	out, err := s.agg.Update(ctx, configID, patch, actorID)
	if err != nil {
		s.fail(span, op, err, "config_id", configID, "actor_id", actorID)
		return nil, err
	}
	s.log.Info("randomization config updated", "config_id", configID, "status", out.Status, "actor_id", actorID)
	return out, nil
}

func (s *randomizationService) GetConfig(ctx context.Context, studyID int) (*ConfigView, error) {
	const op = "getConfig"
	if studyID <= 0 {
		return nil, domain.ValidationError(op, "studyId is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	sc, err := s.schemes.GetActiveByStudy(dbc, studyID)
	if err == nil && sc == nil {
		sc, err = s.schemes.GetLatestByStudy(dbc, studyID)
	}
	if err != nil {
		s.fail(nil, op, err, "study_id", studyID)
		return nil, err
	}
	if sc == nil {
		return nil, nil
	}
	return s.view(ctx, sc)
}

func (s *randomizationService) GetConfigByID(ctx context.Context, configID uint) (*ConfigView, error) {
	const op = "getConfigById"
	sc, err := s.schemes.GetByID(dbctx.Context{Ctx: ctx}, configID)
	if err != nil {
		s.fail(nil, op, err, "config_id", configID)
		return nil, err
	}
	if sc == nil {
		return nil, nil
	}
	return s.view(ctx, sc)
}

func (s *randomizationService) view(ctx context.Context, sc *domain.Scheme) (*ConfigView, error) {
	v := &ConfigView{Scheme: sc, IsActive: sc.IsActive(), IsLocked: sc.IsLocked()}
	if !sc.IsActive() {
		return v, nil
	}
	stats, err := s.stats(ctx, sc.ID)
	if err != nil {
		return nil, err
	}
	v.Stats = stats
	return v, nil
}

func (s *randomizationService) GenerateList(ctx context.Context, configID uint, actorID int) (*GenerateListResult, error) {
	const op = "generateList"
	ctx, span := observability.StartSpan(ctx, "randomization.generate_list", attribute.Int64("config.id", int64(configID)))
	defer span.End()

	start := time.Now()
	res, err := s.agg.Generate(ctx, configID, actorID)
	if err != nil {
		s.fail(span, op, err, "config_id", configID, "actor_id", actorID)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("list.total_entries", res.TotalEntries), attribute.Int("list.strata", res.Strata))
	s.log.Info("randomization list generated",
		"config_id", configID,
		"total_entries", res.TotalEntries,
		"strata", res.Strata,
		"actor_id", actorID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &GenerateListResult{ConfigID: configID, TotalEntries: res.TotalEntries, Strata: res.Strata}, nil
}

func (s *randomizationService) ActivateConfig(ctx context.Context, configID uint, actorID int) (*domain.Scheme, error) {
	const op = "activateConfig"
	ctx, span := observability.StartSpan(ctx, "randomization.activate_config", attribute.Int64("config.id", int64(configID)))
	defer span.End()

	out, err := s.agg.Activate(ctx, configID, actorID)
	if err != nil {
		s.fail(span, op, err, "config_id", configID, "actor_id", actorID)
		return nil, err
	}
	s.log.Info("randomization config activated", "config_id", configID, "study_id", out.StudyID, "actor_id", actorID)
	return out, nil
}

// TestConfig previews an unsaved scheme. Nothing is read or written. A
// definition that saveConfig would reject fails here as a config error.
func (s *randomizationService) TestConfig(ctx context.Context, in *domain.Scheme) (*listgen.Preview, error) {
	const op = "testConfig"
	_, span := observability.StartSpan(ctx, "randomization.test_config")
	defer span.End()

	if in == nil {
		return nil, domain.ValidationError(op, "scheme is required")
	}
	sc := *in
	sc.ApplyDefaults()
	if err := sc.ValidateDefinition(op); err != nil {
		err = domain.ConfigError(op, domain.MessageOf(err))
		s.fail(span, op, err)
		return nil, err
	}
	p, err := s.preview.Preview(&sc, s.previewLimit)
	if err != nil {
		s.fail(span, op, err)
		return nil, err
	}
	return p, nil
}

func (s *randomizationService) GetListStats(ctx context.Context, configID uint) (*ListStats, error) {
	const op = "getListStats"
	sc, err := s.schemes.GetByID(dbctx.Context{Ctx: ctx}, configID)
	if err == nil && sc == nil {
		err = domain.NotFoundError(op, fmt.Sprintf("randomization config %d", configID))
	}
	if err != nil {
		s.fail(nil, op, err, "config_id", configID)
		return nil, err
	}
	stats, err := s.stats(ctx, configID)
	if err != nil {
		s.fail(nil, op, err, "config_id", configID)
		return nil, err
	}
	return stats, nil
}

func (s *randomizationService) RandomizeSubject(ctx context.Context, in domain.ClaimInput) (*RandomizeResult, error) {
	const op = "randomizeSubject"
	ctx, span := observability.StartSpan(ctx, "randomization.randomize_subject", attribute.Int("study.id", in.StudyID))
	defer span.End()

	start := time.Now()
	res, err := s.agg.Claim(ctx, in)
	s.metrics.ObserveClaim(outcomeOf(err), time.Since(start))
	if err != nil {
		s.fail(span, op, err, "study_id", in.StudyID, "study_subject_id", in.StudySubjectID, "actor_id", in.ActorID)
		return nil, err
	}

	asg := res.Assignment
	name := asg.ArmID
	if s.catalog != nil {
		names, nerr := s.catalog.ArmNames(ctx, res.Scheme)
		if nerr != nil {
			s.log.Warn("arm names unavailable", "config_id", res.Scheme.ID, "error", nerr)
		} else if n, ok := names[asg.ArmID]; ok {
			name = n
		}
	}
	shown := blinding.Present(asg.ArmID, name, res.Scheme.BlindingLevel)

	span.SetAttributes(attribute.Int64("config.id", int64(res.Scheme.ID)), attribute.String("stratum.key", asg.StratumKey))
	s.log.Info("subject randomized",
		"outcome", "success",
		"study_id", in.StudyID,
		"study_subject_id", in.StudySubjectID,
		"config_id", res.Scheme.ID,
		"sequence_number", asg.SequenceNumber,
		"actor_id", in.ActorID,
	)
	return &RandomizeResult{
		ConfigID:            res.Scheme.ID,
		StudySubjectID:      asg.StudySubjectID,
		RandomizationNumber: asg.RandomizationNumber,
		ArmID:               shown.ArmID,
		Label:               shown.Label,
		IsBlinded:           shown.IsBlinded,
		BlindingLevel:       res.Scheme.BlindingLevel,
		SequenceNumber:      asg.SequenceNumber,
		StratumKey:          asg.StratumKey,
		AssignedAt:          asg.AssignedAt,
	}, nil
}

// fail logs err at Info when it is an expected business outcome and at Error
// otherwise, and marks the span accordingly.
func (s *randomizationService) fail(span trace.Span, op string, err error, kv ...any) {
	outcome := outcomeOf(err)
	kv = append(kv, "op", op, "outcome", outcome, "error", err)
	if domain.IsBusinessOutcome(err) {
		if span != nil {
			span.SetAttributes(attribute.String("randomization.outcome", outcome))
		}
		s.log.Info("randomization request refused", kv...)
		return
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	s.log.Error("randomization request failed", kv...)
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	if code := domain.CodeOf(err); code != "" {
		return string(code)
	}
	return string(domain.CodeInternal)
}
