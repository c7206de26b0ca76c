/*
server.go - HTTP router setup

PURPOSE:
  Builds the chi router: middleware stack, CORS policy, and the /api
  route tree over the handlers.

SEE ALSO:
  - handlers.go: The handlers mounted here
  - cmd/server/main.go: Server lifecycle
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the API router. allowedOrigins feeds the CORS
// policy; empty means same-origin only.
func NewRouter(h *Handler, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/apartments", func(r chi.Router) {
			r.Get("/", h.ListApartments)
			r.Post("/", h.CreateApartment)
			r.Get("/{id}", h.GetApartment)
			r.Delete("/{id}", h.DeleteApartment)
			r.Get("/{id}/balance", h.GetApartmentBalance)
			r.Get("/{id}/charges", h.ListApartmentCharges)
			r.Get("/{id}/payments", h.ListApartmentPayments)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.ApplyPayment)
			r.Delete("/{id}", h.ReversePayment)
			r.Post("/{id}/match", h.MatchPayment)
		})

		r.Route("/charges", func(r chi.Router) {
			r.Post("/", h.CreateCharge)
			r.Delete("/{id}", h.DeleteCharge)
		})

		r.Post("/transactions", h.CreateTransaction)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}/balance", h.GetAccountBalance)
			r.Get("/{id}/movements", h.ListAccountMovements)
		})
		r.Get("/treasury", h.GetTreasuryBalance)

		r.Route("/movements", func(r chi.Router) {
			r.Post("/", h.CreateMovement)
			r.Put("/{id}", h.UpdateMovement)
			r.Delete("/{id}", h.DeleteMovement)
			r.Post("/{id}/link", h.LinkMovement)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly", h.GetMonthlyReport)
			r.Get("/accumulated", h.GetAccumulatedReport)
			r.Get("/combined", h.GetCombinedReport)
			r.Put("/notes", h.SavePeriodNote)
		})

		r.Post("/generate", h.GenerateCharges)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/{name}", h.LoadScenario)
		})
	})

	return r
}
