/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:       Request logging
  2. Recoverer:    Panic recovery (500 instead of crash)
  3. RequestID:    Unique ID per request for tracing
  4. CORS:         Cross-origin requests for frontend
  5. RequireOwner: X-Owner-ID on every /api route (401 otherwise)

ROUTE GROUPS:
  /api/wallets/*        Wallets, mutation history, verification
  /api/incomes/*        Incomes
  /api/transactions/*   Expenses and split bills
  /api/transfers/*      Wallet-to-wallet transfers
  /api/debts/*          Receivables, payables and payments
  /api/mutations        Mutations by origin record
  /api/summary          Per-owner totals
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus (when enabled, no owner needed)

SEE ALSO:
  - handlers.go: Handler implementations
  - identity.go: Owner middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/wallet-ledger/config"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", OwnerHeader},
		AllowCredentials: true,
	}))

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(RequireOwner)

		// Wallet routes
		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", h.ListWallets)
			r.Post("/", h.CreateWallet)
			r.Get("/{id}", h.GetWallet)
			r.Put("/{id}", h.UpdateWallet)
			r.Delete("/{id}", h.DeleteWallet)
			r.Get("/{id}/mutations", h.WalletMutations)
			r.Get("/{id}/verify", h.VerifyWallet)
		})

		r.Get("/mutations", h.OriginMutations)

		// Income routes
		r.Route("/incomes", func(r chi.Router) {
			r.Get("/", h.ListIncomes)
			r.Post("/", h.CreateIncome)
			r.Get("/{id}", h.GetIncome)
			r.Put("/{id}", h.UpdateIncome)
			r.Delete("/{id}", h.DeleteIncome)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Get("/{id}/debt", h.TransactionDebt)
		})

		// Transfer routes
		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Post("/", h.CreateTransfer)
			r.Get("/{id}", h.GetTransfer)
		})

		// Debt routes
		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.ListDebts)
			r.Post("/", h.CreateDebt)
			r.Get("/{id}", h.GetDebt)
			r.Put("/{id}", h.UpdateDebt)
			r.Delete("/{id}", h.DeleteDebt)
			r.Get("/targets/{id}/payments", h.ListPayments)
			r.Post("/targets/{id}/payments", h.RecordPayment)
		})

		r.Get("/summary", h.Summary)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
