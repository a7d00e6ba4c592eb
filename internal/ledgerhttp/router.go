package ledgerhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bloodbank/bloodbank/internal/ledger"
)

func NewRouter(h *Handler, allowOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.Health)

	// Service-to-service contract consumed by the request service.
	r.Get("/availability", h.CheckAvailability)
	r.Get("/low-stock", h.ListLowStock)
	r.Get("/counters/{bloodGroup}", h.GetCounter)
	r.Post("/transactions", h.ApplyTransaction)

	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/", h.ListCounters)
		r.Post("/", h.Register)
		r.Get("/low-stock", h.ListLowStock)
		r.Get("/transactions", h.ListTransactions)
		r.Post("/transactions", h.ApplyTransaction)
		r.Get("/{bloodGroup}", h.GetCounter)
		r.Get("/{bloodGroup}/check", h.CheckAvailability)
		r.Post("/{bloodGroup}/donate", h.ApplyEffect(ledger.EffectDonation))
		r.Post("/{bloodGroup}/request", h.ApplyEffect(ledger.EffectRequest))
		r.Post("/{bloodGroup}/discard", h.ApplyEffect(ledger.EffectDiscard))
	})

	return r
}
