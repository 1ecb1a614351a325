package httpapi

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeper/internal/books"
)

func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyPostTransaction)
	t, ok := v.(books.Transaction)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated request missing", "internal_error")
		return
	}

	// An Idempotency-Key makes retried creates safe: the first request wins
	// and replays get the original transaction back.
	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		if _, err := uuid.Parse(key); err != nil {
			badRequest(w, "Idempotency-Key must be a UUID")
			return
		}
		if prev, found, err := s.idem.TransactionByIdempotencyKey(r.Context(), key); err != nil {
			s.writeDomainErr(w, err)
			return
		} else if found {
			toJSON(w, http.StatusOK, toTransactionResponse(prev))
			return
		}
	}

	saved, err := s.transfers.Create(r.Context(), t)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	if key != "" {
		if err := s.idem.SaveIdempotencyKey(r.Context(), key, saved.ID); err != nil {
			s.log.Error("save idempotency key", "err", err)
		}
	}
	transactionsTotal.WithLabelValues("create").Inc()
	toJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		txs []books.Transaction
		err error
	)
	if term := q.Get("q"); term != "" {
		txs, err = s.transfers.Search(r.Context(), term)
	} else {
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			n, perr := strconv.Atoi(raw)
			if perr != nil || n <= 0 {
				badRequest(w, "invalid limit")
				return
			}
			limit = n
		}
		txs, err = s.transfers.List(r.Context(), limit)
	}
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.transfers.Get(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.transfers.Delete(r.Context(), id); err != nil {
		s.writeDomainErr(w, err)
		return
	}
	transactionsTotal.WithLabelValues("delete").Inc()
	w.WriteHeader(http.StatusNoContent)
}
