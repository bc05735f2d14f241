package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"astraea-backend/infrastructure/di"
	"astraea-backend/interfaces/http/rest/handlers"
	"astraea-backend/interfaces/http/rest/middleware"
	v1 "astraea-backend/interfaces/http/rest/v1"
	"astraea-backend/pkg/auth"
)

// Router builds the HTTP surface from a wired container.
type Router struct {
	container *di.Container
}

// NewRouter creates a new router instance.
func NewRouter(container *di.Container) *Router {
	return &Router{container: container}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	c := rt.container
	cfg := c.Config

	router := chi.NewRouter()

	// Global middleware. The error handler sits early so panics anywhere
	// below it render through the standard error path.
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(c.ErrorHandler.Middleware)
	router.Use(middleware.RequestContext())
	router.Use(middleware.Logger(c.Logger))
	if c.Metrics != nil {
		router.Use(middleware.Metrics(c.Metrics))
	}
	router.Use(versionMiddleware)

	if cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.astraea.app"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if c.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", c.Metrics.Handler())
	}

	analysisHandler := handlers.NewAnalysisHandler(
		c.AnalysisService,
		c.GenerateHandler,
		c.BulkDeleteHandler,
		c.CommandBus,
		c.QueryBus,
		c.Storage.EventBus,
		c.ErrorHandler,
		c.Metrics,
		c.Tracer,
		c.Logger,
	)
	chartHandler := handlers.NewChartHandler(
		c.AnalysisService,
		c.Synastry,
		c.Composite,
		c.QueryBus,
		c.ErrorHandler,
		c.Metrics,
		c.Logger,
	)

	authn := rt.authMiddleware()

	// API v2 routes (current)
	router.Route("/api/v2", func(r chi.Router) {
		r.Use(authn)
		if cfg.RateLimit.Enabled {
			r.Use(middleware.RateLimit(c.RateLimiter, c.ErrorHandler, c.Logger))
		}

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", analysisHandler.GenerateAnalysis)
			r.Get("/", analysisHandler.ListAnalyses)
			r.Post("/preview", analysisHandler.PreviewAnalysis)
			r.Post("/bulk-delete", analysisHandler.BulkDelete)
			r.Get("/{analysisID}", analysisHandler.GetAnalysis)
			r.Delete("/{analysisID}", analysisHandler.DeleteAnalysis)
		})

		r.Post("/synastry", chartHandler.Synastry)
		r.Post("/composite", chartHandler.Composite)
		r.Post("/charts/summary", chartHandler.NatalSummary)
	})

	// Legacy v1 API, still served for the old frontend. Same auth and
	// limits as v2; the mux router matches on the full request path.
	legacy := v1.NewHandler(c.QueryBus, c.Synastry, c.Composite, c.Logger)
	router.Group(func(r chi.Router) {
		r.Use(authn)
		if cfg.RateLimit.Enabled {
			r.Use(middleware.RateLimit(c.RateLimiter, c.ErrorHandler, c.Logger))
		}
		r.Mount("/api/v1", v1.NewRouter(legacy))
	})

	return router
}

// authMiddleware picks the auth strategy for this deployment. Behind API
// Gateway the JWT has already been validated by the authorizer, so the
// middleware only lifts the stamped identity headers.
func (rt *Router) authMiddleware() func(http.Handler) http.Handler {
	c := rt.container

	if c.Config.IsLambda {
		return middleware.AuthenticateFromGateway(c.ErrorHandler, c.Logger)
	}

	validator, err := auth.NewTokenValidator(c.Config.JWTSecret, c.Config.JWTIssuer)
	if err != nil {
		// Refuse every request rather than run an unauthenticated API.
		c.Logger.Error("token validator unavailable, rejecting all API requests", zap.Error(err))
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.ErrorHandler.HandleStatus(w, r, http.StatusServiceUnavailable, "authentication unavailable")
			})
		}
	}
	return middleware.Authenticate(validator, c.ErrorHandler, c.Logger)
}

// healthCheck handles liveness probes.
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"astraea-backend"}`))
}

// readinessCheck reports whether the process can serve traffic. The memory
// driver is always ready; sqlite gets pinged. DynamoDB is intentionally not
// probed here: a per-request ping would cost more than it tells.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if store := rt.container.Storage.SQLite; store != nil {
		if err := store.Ping(req.Context()); err != nil {
			rt.container.Logger.Warn("readiness probe failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds API version headers to all responses.
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.Contains(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")

		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
			w.Header().Set("X-API-Deprecation-Date", "2026-01-15")
			w.Header().Set("X-API-Sunset-Date", "2026-12-31")
		}

		next.ServeHTTP(w, r)
	})
}
