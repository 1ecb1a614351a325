// Package httpapi wires the HTTP surface of the bookkeeping service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/service/registry"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	transfers transfer.Service
	accounts  registry.Service
	idem      IdempotencyStore
	store     Store
	log       *slog.Logger
	rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(store Store, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		transfers: transfer.New(store, store, store, store.Currency()),
		accounts:  registry.New(store, store),
		idem:      store,
		store:     store,
		log:       logger,
		rt:        r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Companies
	s.rt.With(s.validatePostCompany()).Post("/v1/companies", s.postCompany)
	s.rt.Get("/v1/companies", s.listCompanies)
	s.rt.Get("/v1/companies/{id}", s.getCompany)
	s.rt.Patch("/v1/companies/{id}", s.updateCompany)
	s.rt.Delete("/v1/companies/{id}", s.deleteCompany)
	s.rt.Get("/v1/companies/{id}/balance", s.getBalance(books.KindCompany))
	s.rt.Get("/v1/companies/{id}/ledger", s.getLedger(books.KindCompany))
	// Users
	s.rt.With(s.validatePostUser()).Post("/v1/users", s.postUser)
	s.rt.Get("/v1/users", s.listUsers)
	s.rt.Get("/v1/users/{id}", s.getUser)
	s.rt.Patch("/v1/users/{id}", s.updateUser)
	s.rt.Delete("/v1/users/{id}", s.deleteUser)
	s.rt.Get("/v1/users/{id}/balance", s.getBalance(books.KindUser))
	s.rt.Get("/v1/users/{id}/ledger", s.getLedger(books.KindUser))
	// Transactions
	s.rt.With(s.validatePostTransaction()).Post("/v1/transactions", s.postTransaction)
	s.rt.Get("/v1/transactions", s.listTransactions)
	s.rt.Get("/v1/transactions/{id}", s.getTransaction)
	s.rt.Delete("/v1/transactions/{id}", s.deleteTransaction)
	// Cash flows
	s.rt.With(s.validateCashflow()).Post("/v1/deposits", s.postDeposit)
	s.rt.With(s.validateCashflow()).Post("/v1/withdrawals", s.postWithdrawal)
	// Reports
	s.rt.Get("/v1/reports/totals", s.getTotals)
	s.rt.Get("/v1/reports/summary", s.getSummary)
	// Dictionary (UI pickers)
	s.rt.Get("/v1/dictionary/kinds", s.getKinds)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
