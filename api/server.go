/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through zap
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/liability/*   Projection, sensitivity, history, PDF report
  /api/stress/*      Stress catalog and Monte Carlo
  /api/simulations   Stored simulation runs
  /api/agents/*      Agent status, execution, daily analysis
  /api/market/*      Exchange rates and indicators
  /api/costs         Historical cost table
  /api/assistant/*   Keyword assistant
  /api/defaults      Dashboard defaults
  /api/admin/reset   Audit table reset (dev only)
  /healthz           Liveness + database check

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	origins := h.Config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Liability routes
		r.Route("/liability", func(r chi.Router) {
			r.Post("/project", h.ProjectLiability)
			r.Post("/sensitivity", h.AnalyzeSensitivity)
			r.Post("/report", h.LiabilityReport)
			r.Get("/history", h.ListCalculations)
			r.Get("/history/{id}", h.GetCalculation)
		})

		// Stress routes
		r.Route("/stress", func(r chi.Router) {
			r.Post("/scenarios", h.RunStressScenarios)
			r.Post("/montecarlo", h.RunMonteCarlo)
			r.Get("/catalog", h.StressCatalog)
		})
		r.Get("/simulations", h.ListSimulations)

		// Agent routes
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/daily", h.RunDailyAnalysis)
			r.Get("/performance", h.AgentPerformance)
			r.Post("/{name}/execute", h.ExecuteAgent)
		})

		// Reference data routes
		r.Route("/market", func(r chi.Router) {
			r.Get("/rates", h.ExchangeRates)
			r.Get("/indicators", h.EconomicIndicators)
		})
		r.Get("/costs", h.ListHajjCosts)
		r.Get("/defaults", h.Defaults)
		r.Post("/assistant/ask", h.Ask)

		// Admin routes
		r.Post("/admin/reset", h.ResetDatabase)
	})

	return r
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
