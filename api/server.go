/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     Structured request logging (zerolog)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Prometheus request counters by route pattern
  6. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/due-dates            Installment calendar
  /api/analyze              Stateless analysis
  /api/estimates/*          Estimate management and payments
  /api/payments/*           Payment corrections
  /api/recalculate          Manual recalculation pass
  /api/recalculation/*      Recalculation audit
  /api/scenarios/*          Demo scenarios
  /healthz                  Liveness + database ping
  /metrics                  Prometheus exposition

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !containsWildcard(allowedOrigins),
	}))

	r.Get("/healthz", h.Health)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/due-dates", h.GetDueDates)
		r.Post("/analyze", h.Analyze)

		// Estimate routes
		r.Route("/estimates", func(r chi.Router) {
			r.Get("/", h.ListEstimates)
			r.Post("/", h.CreateEstimate)
			r.Get("/{id}", h.GetEstimate)
			r.Put("/{id}", h.UpdateEstimate)
			r.Delete("/{id}", h.DeleteEstimate)
			r.Get("/{id}/schedule", h.GetSchedule)
			r.Get("/{id}/analysis", h.GetAnalysis)
			r.Post("/{id}/recalculate", h.RecalculateEstimate)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.AddPayment)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Put("/{id}", h.UpdatePayment)
			r.Delete("/{id}", h.DeletePayment)
		})

		// Recalculation routes
		r.Post("/recalculate", h.RecalculateAll)
		r.Get("/recalculation/runs", h.ListRecalculationRuns)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			event := log.Info()
			switch {
			case status >= 500:
				event = log.Error()
			case status >= 400:
				event = log.Warn()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg("request")
		})
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
