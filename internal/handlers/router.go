package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vintora/catalog-api/internal/platform/auth"
	"github.com/vintora/catalog-api/internal/platform/httpx"
	"github.com/vintora/catalog-api/internal/platform/observability"
)

const (
	defaultAPIPrefix     = "/api/v1"
	defaultTimeout       = 60 * time.Second
	maxEditRequestBody   = 256 * 1024
	acceptLanguageHeader = "Accept-Language"
)

// RouterDeps wires the handler sets and cross-cutting middleware inputs.
type RouterDeps struct {
	Logger   *zap.Logger
	Verifier *auth.Verifier
	Products *ProductHandlers
	Tasks    *TaskHandlers
	Health   *HealthHandlers
	Timeout  time.Duration
}

// NewRouter constructs the chi router with the shared middleware stack.
// Health probes stay outside the authenticated API group.
func NewRouter(deps RouterDeps) chi.Router {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.InjectLoggerMiddleware(logger))
	r.Use(observability.TraceMiddleware())
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(logger))
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, http.StatusNotFound, fmt.Sprintf("no route for %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path))
	})

	if deps.Health != nil {
		r.Get("/healthz", deps.Health.Healthz)
		r.Get("/readyz", deps.Health.Readyz)
	}

	r.Route(defaultAPIPrefix, func(api chi.Router) {
		api.Use(auth.RequireSession(deps.Verifier))
		if deps.Products != nil {
			deps.Products.Routes(api)
		}
		if deps.Tasks != nil {
			deps.Tasks.Routes(api)
		}
	})

	return r
}
