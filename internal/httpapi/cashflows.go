package httpapi

import (
	"net/http"

	"github.com/tinoosan/bookkeeper/internal/books"
)

func (s *Server) postDeposit(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyCashflow)
	req, ok := v.(cashflowRequest)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated request missing", "internal_error")
		return
	}
	amount := books.MustAmount(s.store.Currency(), req.AmountMinor)
	saved, err := s.transfers.Deposit(r.Context(), req.Endpoint.toDomain(), amount, req.Description)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	transactionsTotal.WithLabelValues("create").Inc()
	toJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) postWithdrawal(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyCashflow)
	req, ok := v.(cashflowRequest)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated request missing", "internal_error")
		return
	}
	amount := books.MustAmount(s.store.Currency(), req.AmountMinor)
	saved, err := s.transfers.Withdraw(r.Context(), req.Endpoint.toDomain(), amount, req.Description)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	transactionsTotal.WithLabelValues("create").Inc()
	toJSON(w, http.StatusCreated, toTransactionResponse(saved))
}
