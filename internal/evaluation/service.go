package evaluation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scorewise/internal/audit"
	"scorewise/internal/evaluation/metrics"
	"scorewise/internal/scorecard/models"
	id "scorewise/pkg/domain"
)

var tracer = otel.Tracer("scorewise/evaluation")

// Fallback score bounds used when even the scorecard config is unreachable.
const (
	defaultMinScore = 300
	defaultMaxScore = 850
)

// SnapshotSource provides the active config+version snapshot an evaluation
// runs against. Implemented by the scorecard service.
type SnapshotSource interface {
	ActiveSnapshot(ctx context.Context, scorecardID id.ScorecardID) (*models.Snapshot, error)
}

// AuditPublisher records the evaluation log. An evaluation without its audit
// entry must not return a real score, so emit failures trigger the fallback.
type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.EvaluationLog) error
}

// Service orchestrates one evaluation end to end: load snapshot, score each
// factor in configuration order, aggregate, classify, and audit.
type Service struct {
	snapshots SnapshotSource
	publisher AuditPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	budget    time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBudget caps how long one evaluation may take. A blown budget cancels
// the snapshot load or audit write, which degrades the evaluation to the
// neutral fallback instead of holding the caller.
func WithBudget(budget time.Duration) Option {
	return func(s *Service) {
		s.budget = budget
	}
}

// New constructs an evaluation Service.
func New(snapshots SnapshotSource, publisher AuditPublisher, opts ...Option) *Service {
	s := &Service{snapshots: snapshots, publisher: publisher}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Evaluate scores one applicant against the active version of the requested
// scorecard. Individual rule failures are contained to zero-point factors;
// only an unreachable snapshot or audit sink degrades the whole evaluation
// to the neutral fallback result.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer s.metrics.ObserveEvaluate(start)

	if s.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.budget)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "evaluation.Evaluate",
		trace.WithAttributes(
			attribute.String("scorecard_id", req.ScorecardID.String()),
			attribute.String("request_id", req.RequestID),
			attribute.String("source_system", req.SourceSystem),
		))
	defer span.End()

	snap, err := s.snapshots.ActiveSnapshot(ctx, req.ScorecardID)
	if err != nil {
		s.logger.ErrorContext(ctx, "active snapshot unavailable, serving fallback",
			"error", err,
			"scorecard_id", req.ScorecardID,
			"request_id", req.RequestID)
		return s.fallback(ctx, req, nil, start), nil
	}

	factors := make([]FactorResult, 0, len(snap.Version.Factors))
	ruleErrors := 0
	for _, factor := range snap.Version.Factors {
		fr := EvaluateFactor(factor, req.Data)
		if fr.RuleError {
			ruleErrors++
			s.logger.WarnContext(ctx, "factor rule failed, scored zero",
				"factor", fr.Code,
				"reason", fr.Reasoning,
				"request_id", req.RequestID)
		}
		factors = append(factors, fr)
	}
	s.metrics.AddRuleErrors(ruleErrors)

	total, completeness, confidence := Aggregate(factors, snap.Config.MinScore, snap.Config.MaxScore)
	eligible := total >= snap.Config.PassingScore
	status := StatusIneligible
	if eligible {
		status = StatusEligible
	}

	result := &Result{
		EvaluationID:    id.NewEvaluationID(),
		ScorecardID:     snap.Config.ID,
		VersionID:       snap.Version.ID,
		VersionNumber:   snap.Version.Number,
		TotalScore:      total,
		Grade:           Classify(total, snap.Version.Bands),
		Eligible:        eligible,
		Status:          status,
		Factors:         factors,
		Completeness:    completeness,
		Confidence:      confidence,
		Recommendations: Recommendations(factors),
		EvaluatedAt:     start.UTC(),
		Duration:        time.Since(start),
	}

	if err := s.audit(ctx, req, result); err != nil {
		s.logger.ErrorContext(ctx, "audit write failed, serving fallback",
			"error", err,
			"scorecard_id", req.ScorecardID,
			"request_id", req.RequestID)
		return s.fallback(ctx, req, snap, start), nil
	}

	s.metrics.IncrementEvaluation(string(result.Status))
	span.SetAttributes(
		attribute.Int("total_score", result.TotalScore),
		attribute.String("status", string(result.Status)),
	)
	s.logger.InfoContext(ctx, "evaluation completed",
		"evaluation_id", result.EvaluationID,
		"scorecard_id", result.ScorecardID,
		"version_number", result.VersionNumber,
		"total_score", result.TotalScore,
		"grade", result.Grade,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", req.RequestID)
	return result, nil
}

func (s *Service) audit(ctx context.Context, req Request, result *Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.publisher.Emit(ctx, audit.EvaluationLog{
		ID:            result.EvaluationID,
		ScorecardID:   result.ScorecardID,
		VersionID:     result.VersionID,
		VersionNumber: result.VersionNumber,
		ApplicantID:   req.ApplicantID,
		RequestID:     req.RequestID,
		SourceSystem:  req.SourceSystem,
		ApplicantData: req.Data,
		Result:        resultJSON,
		TotalScore:    result.TotalScore,
		Grade:         result.Grade,
		Status:        string(result.Status),
		CreatedAt:     result.EvaluatedAt,
	})
}

// fallback builds the documented neutral result: mid-range score, grade C,
// status pending, generic recommendations. Snapshot bounds are used when
// known, the conventional 300-850 range otherwise. Fallbacks are not
// audited; the audit path is exactly what failed.
func (s *Service) fallback(ctx context.Context, req Request, snap *models.Snapshot, start time.Time) *Result {
	minScore, maxScore := defaultMinScore, defaultMaxScore
	scorecardID := req.ScorecardID
	versionID := id.VersionID{}
	versionNumber := 0
	if snap != nil {
		minScore, maxScore = snap.Config.MinScore, snap.Config.MaxScore
		scorecardID = snap.Config.ID
		versionID = snap.Version.ID
		versionNumber = snap.Version.Number
	}

	s.metrics.IncrementFallback()
	s.metrics.IncrementEvaluation(string(StatusPending))
	s.logger.WarnContext(ctx, "neutral fallback served",
		"scorecard_id", scorecardID,
		"request_id", req.RequestID)

	return &Result{
		EvaluationID:    id.NewEvaluationID(),
		ScorecardID:     scorecardID,
		VersionID:       versionID,
		VersionNumber:   versionNumber,
		TotalScore:      (minScore + maxScore) / 2,
		Grade:           "C",
		Eligible:        false,
		Status:          StatusPending,
		Factors:         []FactorResult{},
		Completeness:    0,
		Confidence:      0,
		Recommendations: GenericRecommendations(),
		Fallback:        true,
		EvaluatedAt:     start.UTC(),
		Duration:        time.Since(start),
	}
}
