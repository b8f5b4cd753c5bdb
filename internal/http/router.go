package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paperlift/paperlift/internal/http/account"
	"github.com/paperlift/paperlift/internal/http/billing"
	"github.com/paperlift/paperlift/internal/http/pricing"
)

func New(
	accountsV1 *account.Handler,
	billingV1 *billing.Handler,
	pricingV1 *pricing.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			accountsV1.Routes(r)
			billingV1.AccountRoutes(r)
		})

		r.Route("/billing", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			billingV1.Routes(r)
		})

		r.Route("/pricing", pricingV1.Routes)
	})

	return router
}
