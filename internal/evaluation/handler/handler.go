package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"scorewise/internal/audit"
	"scorewise/internal/evaluation"
	dErrors "scorewise/pkg/domain-errors"
	"scorewise/pkg/platform/httputil"
	"scorewise/pkg/requestcontext"
)

// Service defines the interface for evaluation operations.
type Service interface {
	Evaluate(ctx context.Context, req evaluation.Request) (*evaluation.Result, error)
}

// History reads back persisted evaluation logs for one applicant.
type History interface {
	ListByApplicant(ctx context.Context, applicantID string) ([]audit.EvaluationLog, error)
}

// Handler wires evaluation endpoints to the evaluation service.
type Handler struct {
	service Service
	history History
	logger  *slog.Logger
}

// New constructs an evaluation handler with its dependencies.
func New(service Service, history History, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		history: history,
		logger:  logger,
	}
}

// Register mounts evaluation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/evaluations", h.HandleEvaluate)
	r.Get("/applicants/{applicantID}/evaluations", h.HandleHistory)
}

// HandleEvaluate handles POST /evaluations requests.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sourceSystem := requestcontext.SourceSystem(ctx)
	if sourceSystem == "" {
		sourceSystem = requestcontext.Caller(ctx)
	}

	result, err := h.service.Evaluate(ctx, evaluation.Request{
		ScorecardID:  req.ParsedScorecardID(),
		ApplicantID:  req.ApplicantID,
		RequestID:    requestID,
		SourceSystem: sourceSystem,
		Data:         req.ApplicantData,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluation failed",
			"request_id", requestID,
			"scorecard_id", req.ScorecardID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evaluation served",
		"request_id", requestID,
		"evaluation_id", result.EvaluationID,
		"status", result.Status,
		"fallback", result.Fallback,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleHistory handles GET /applicants/{applicantID}/evaluations requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	applicantID := strings.TrimSpace(chi.URLParam(r, "applicantID"))
	if applicantID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "applicant id is required"))
		return
	}

	logs, err := h.history.ListByApplicant(ctx, applicantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "history lookup failed",
			"request_id", requestID,
			"applicant_id", applicantID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evaluation history"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromLogs(applicantID, logs))
}
