package httpapi

import (
	"net/http"

	"github.com/tinoosan/bookkeeper/internal/books"
)

// getBalance serves GET /v1/{companies|users}/{id}/balance from the stored
// running balance, no replay involved.
func (s *Server) getBalance(kind books.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		ep := books.Endpoint{Kind: kind, ID: id}
		bal, err := s.transfers.Balance(r.Context(), ep)
		if err != nil {
			s.writeDomainErr(w, err)
			return
		}
		minor := books.Minor(bal)
		toJSON(w, http.StatusOK, balanceResponse{
			Kind:         string(kind),
			ID:           id,
			Currency:     bal.Curr().Code(),
			BalanceMinor: minor,
			Balance:      books.FormatMinor(minor),
		})
	}
}

// getLedger serves GET /v1/{companies|users}/{id}/ledger: the derived
// statement, newest entry first.
func (s *Server) getLedger(kind books.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		ep := books.Endpoint{Kind: kind, ID: id}
		entries, err := s.transfers.Ledger(r.Context(), ep)
		if err != nil {
			s.writeDomainErr(w, err)
			return
		}
		resp := ledgerResponse{
			Kind:     string(kind),
			ID:       id,
			Currency: s.store.Currency(),
			Entries:  make([]ledgerEntryResponse, 0, len(entries)),
		}
		for _, e := range entries {
			resp.Entries = append(resp.Entries, toLedgerEntryResponse(e))
		}
		toJSON(w, http.StatusOK, resp)
	}
}
