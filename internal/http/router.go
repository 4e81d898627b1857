// Package httpapi assembles the HTTP surface: middleware stack, versioned
// API routes, health and metrics endpoints. It delegates to the domain
// handlers; no business logic lives here.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	evaluationhandler "scorewise/internal/evaluation/handler"
	scorecardhandler "scorewise/internal/scorecard/handler"
	"scorewise/pkg/platform/middleware/auth"
	"scorewise/pkg/platform/middleware/requestmeta"
)

// Deps carries everything the router mounts.
type Deps struct {
	Evaluations *evaluationhandler.Handler
	Scorecards  *scorecardhandler.Handler
	Auth        *auth.Validator
	Logger      *slog.Logger
}

// NewRouter wires all endpoints. The v1 API sits behind the service-token
// middleware; health and metrics stay open for the platform probes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestmeta.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(auth.RequireServiceToken(deps.Auth, deps.Logger))
		}
		deps.Evaluations.Register(r)
		deps.Scorecards.Register(r)
	})

	return r
}
