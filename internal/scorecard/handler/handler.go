// Package handler exposes the scorecard administration API: config
// creation, version lifecycle, activation, cloning, and cleanup.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scorewise/internal/scorecard/models"
	"scorewise/internal/scorecard/service"
	id "scorewise/pkg/domain"
	"scorewise/pkg/platform/httputil"
	"scorewise/pkg/requestcontext"
)

// Service defines the interface for scorecard administration.
type Service interface {
	CreateScorecard(ctx context.Context, in service.CreateScorecardInput) (*models.ScorecardConfig, error)
	GetScorecard(ctx context.Context, scorecardID id.ScorecardID) (*models.ScorecardConfig, error)
	ListScorecards(ctx context.Context) ([]*models.ScorecardConfig, error)
	CreateVersion(ctx context.Context, scorecardID id.ScorecardID, factors []models.ScoringFactor, bands []models.GradeBand) (*models.ScorecardVersion, error)
	ListVersions(ctx context.Context, scorecardID id.ScorecardID) ([]*models.ScorecardVersion, error)
	Activate(ctx context.Context, scorecardID id.ScorecardID, versionID id.VersionID) error
	Clone(ctx context.Context, scorecardID id.ScorecardID, versionID id.VersionID) (*models.ScorecardVersion, error)
	Cleanup(ctx context.Context, scorecardID id.ScorecardID, retain int) (*service.CleanupResult, error)
}

// Handler wires scorecard administration endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a scorecard handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts scorecard endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/scorecards", func(r chi.Router) {
		r.Post("/", h.HandleCreateScorecard)
		r.Get("/", h.HandleListScorecards)
		r.Route("/{scorecardID}", func(r chi.Router) {
			r.Get("/", h.HandleGetScorecard)
			r.Route("/versions", func(r chi.Router) {
				r.Post("/", h.HandleCreateVersion)
				r.Get("/", h.HandleListVersions)
				r.Post("/cleanup", h.HandleCleanup)
				r.Post("/{versionID}/activate", h.HandleActivate)
				r.Post("/{versionID}/clone", h.HandleClone)
			})
		})
	})
}

// HandleCreateScorecard handles POST /scorecards requests.
func (h *Handler) HandleCreateScorecard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateScorecardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cfg, err := h.service.CreateScorecard(ctx, service.CreateScorecardInput{
		InstitutionID: req.ParsedInstitutionID(),
		Name:          req.Name,
		MinScore:      req.MinScore,
		MaxScore:      req.MaxScore,
		PassingScore:  req.PassingScore,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromConfig(cfg))
}

// HandleGetScorecard handles GET /scorecards/{scorecardID} requests.
func (h *Handler) HandleGetScorecard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scorecardID, err := id.ParseScorecardID(chi.URLParam(r, "scorecardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cfg, err := h.service.GetScorecard(ctx, scorecardID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

// HandleListScorecards handles GET /scorecards requests.
func (h *Handler) HandleListScorecards(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListScorecards(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfigs(configs))
}

// HandleCreateVersion handles POST /scorecards/{scorecardID}/versions requests.
func (h *Handler) HandleCreateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	scorecardID, err := id.ParseScorecardID(chi.URLParam(r, "scorecardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateVersionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	version, err := h.service.CreateVersion(ctx, scorecardID, req.Factors, req.Bands)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromVersion(version))
}

// HandleListVersions handles GET /scorecards/{scorecardID}/versions requests.
func (h *Handler) HandleListVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scorecardID, err := id.ParseScorecardID(chi.URLParam(r, "scorecardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	versions, err := h.service.ListVersions(ctx, scorecardID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVersions(versions))
}

// HandleActivate handles POST /scorecards/{scorecardID}/versions/{versionID}/activate requests.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	scorecardID, err := id.ParseScorecardID(chi.URLParam(r, "scorecardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	versionID, err := id.ParseVersionID(chi.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Activate(ctx, scorecardID, versionID); err != nil {
		h.logger.ErrorContext(ctx, "activation failed",
			"request_id", requestID,
			"scorecard_id", scorecardID,
			"version_id", versionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "version activated",
		"request_id", requestID,
		"scorecard_id", scorecardID,
		"version_id", versionID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleClone handles POST /scorecards/{scorecardID}/versions/{versionID}/clone requests.
func (h *Handler) HandleClone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scorecardID, err := id.ParseScorecardID(chi.URLParam(r, "scorecardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	versionID, err := id.ParseVersionID(chi.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	clone, err := h.service.Clone(ctx, scorecardID, versionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromVersion(clone))
}

// HandleCleanup handles POST /scorecards/{scorecardID}/versions/cleanup requests.
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	scorecardID, err := id.ParseScorecardID(chi.URLParam(r, "scorecardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CleanupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Cleanup(ctx, scorecardID, req.RetainCount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCleanupResult(result))
}
