package httpapi

import (
	"net/http"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/dictionary"
)

func (s *Server) getTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.transfers.Totals(r.Context())
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, totalsResponse{
		Currency:     s.store.Currency(),
		CompanyMinor: totals.CompanyMinor,
		CompanyTotal: books.FormatMinor(totals.CompanyMinor),
		UserMinor:    totals.UserMinor,
		UserTotal:    books.FormatMinor(totals.UserMinor),
		GrandMinor:   totals.GrandMinor,
		GrandTotal:   books.FormatMinor(totals.GrandMinor),
	})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.transfers.Summary(r.Context())
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, summaryResponse{
		Count:        summary.Count,
		TotalMinor:   summary.TotalMinor,
		Total:        books.FormatMinor(summary.TotalMinor),
		AverageMinor: summary.AverageMinor,
		Average:      books.FormatMinor(summary.AverageMinor),
	})
}

// getKinds serves the endpoint-kind dictionary for UI pickers.
func (s *Server) getKinds(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, dictionary.Kinds())
}
