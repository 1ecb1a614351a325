package httpapi

import (
	"errors"
	"net/http"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/errs"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func conflict(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusConflict, msg, code)
}
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// insufficientBalanceResponse carries both amounts so clients can render a
// precise message without parsing the error string.
type insufficientBalanceResponse struct {
	Error          string `json:"error"`
	Code           string `json:"code"`
	BalanceMinor   int64  `json:"balance_minor"`
	RequestedMinor int64  `json:"requested_minor"`
}

// writeDomainErr maps service errors onto HTTP statuses and stable codes.
func (s *Server) writeDomainErr(w http.ResponseWriter, err error) {
	var ib *transfer.InsufficientBalanceError
	if errors.As(err, &ib) {
		toJSON(w, http.StatusUnprocessableEntity, insufficientBalanceResponse{
			Error:          ib.Error(),
			Code:           "insufficient_balance",
			BalanceMinor:   books.Minor(ib.Balance),
			RequestedMinor: books.Minor(ib.Requested),
		})
		return
	}
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrHasTransactions):
		conflict(w, err.Error(), "has_transactions")
	case errors.Is(err, errs.ErrDuplicateName):
		conflict(w, err.Error(), "duplicate_name")
	case errors.Is(err, errs.ErrInvalidAmount):
		unprocessable(w, err.Error(), "invalid_amount")
	case errors.Is(err, errs.ErrSameEndpoint):
		unprocessable(w, err.Error(), "same_endpoint")
	case errors.Is(err, errs.ErrCashToCash):
		unprocessable(w, err.Error(), "cash_to_cash")
	case errors.Is(err, errs.ErrUnknownEndpoint):
		unprocessable(w, err.Error(), "unknown_endpoint")
	case errors.Is(err, errs.ErrCashNotAnAccount):
		unprocessable(w, err.Error(), "cash_not_an_account")
	case errors.Is(err, errs.ErrNameRequired), errors.Is(err, errs.ErrInvalid):
		badRequest(w, err.Error())
	default:
		s.log.Error("internal error", "err", err)
		writeErr(w, http.StatusInternalServerError, "internal_error", "internal_error")
	}
}
