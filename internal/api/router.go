// Package api exposes the console's REST surface: CRUD for the product
// catalog, the assistant chat endpoint, and the news/earnings feeds.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires all routes onto a chi mux. allowedOrigins feeds the CORS
// middleware; an empty list falls back to localhost development origins.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
			r.Get("/{id}/coverages", h.ListCoverages)
			r.Post("/{id}/coverages", h.CreateCoverage)
			r.Get("/{id}/pricing-steps", h.ListPricingSteps)
			r.Post("/{id}/pricing-steps", h.CreatePricingStep)
		})

		r.Route("/coverages", func(r chi.Router) {
			r.Get("/", h.ListAllCoverages)
			r.Get("/{id}", h.GetCoverage)
			r.Put("/{id}", h.UpdateCoverage)
			r.Delete("/{id}", h.DeleteCoverage)
		})

		r.Delete("/pricing-steps/{id}", h.DeletePricingStep)

		r.Route("/forms", func(r chi.Router) {
			r.Get("/", h.ListForms)
			r.Post("/", h.CreateForm)
			r.Delete("/{id}", h.DeleteForm)
			r.Get("/{id}/links", h.ListFormLinks)
			r.Post("/{id}/links", h.LinkForm)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
			r.Delete("/{id}", h.DeleteRule)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Put("/{id}", h.UpdateTask)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", h.Chat)
			r.Get("/{sessionID}/history", h.ChatHistory)
		})

		r.Get("/news", h.News)
		r.Get("/news/summaries", h.NewsSummaries)
		r.Get("/earnings", h.Earnings)
	})

	return r
}
