/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/users/*       Ledger entries and coin operations
  /api/actions       Action catalog
  /api/questions/*   Forum questions and answers
  /api/answers/*     Rating and voting
  /api/coach/*       AI coach
  /health            Liveness probe
  /metrics           Prometheus metrics

SECURITY NOTE:
  No authentication middleware. The engine expects to sit behind the
  main application gateway, which owns identity.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Post("/{id}/login", h.DailyLogin)
			r.Post("/{id}/allocation", h.MonthlyAllocation)
			r.Post("/{id}/actions/{action}", h.EarnAction)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Get("/{id}/stats", h.GetStats)
			r.Get("/{id}/recommendations", h.GetRecommendations)
			r.Get("/{id}/questions", h.ListUserQuestions)
		})

		// Catalog routes
		r.Get("/actions", h.ListActions)

		// Global activity feed
		r.Get("/transactions", h.RecentActivity)

		// Forum routes
		r.Route("/questions", func(r chi.Router) {
			r.Get("/", h.ListQuestions)
			r.Post("/", h.AskQuestion)
			r.Get("/{id}", h.GetQuestion)
			r.Get("/{id}/answers", h.ListAnswers)
			r.Post("/{id}/answers", h.PostAnswer)
		})
		r.Route("/answers", func(r chi.Router) {
			r.Post("/{id}/rate", h.RateAnswer)
			r.Post("/{id}/vote", h.VoteAnswer)
		})

		// Coach routes
		r.Route("/coach", func(r chi.Router) {
			r.Get("/personas", h.ListPersonas)
			r.Post("/chat", h.CoachChat)
		})
	})

	// Operational endpoints
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
