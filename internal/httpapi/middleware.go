package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/meta"
)

type ctxKey string

const ctxKeyPostCompany ctxKey = "validatedPostCompany"
const ctxKeyPostUser ctxKey = "validatedPostUser"
const ctxKeyPostTransaction ctxKey = "validatedPostTransaction"
const ctxKeyCashflow ctxKey = "validatedCashflow"

// validatePostCompany parses and validates POST /v1/companies and stores the
// domain value in the request context for the handler to use.
func (s *Server) validatePostCompany() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postCompanyRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					unprocessable(w, err.Error(), "validation_error")
					return
				}
			}
			c := books.Company{
				Name:     req.Name,
				Address:  req.Address,
				Phone:    req.Phone,
				Email:    req.Email,
				Metadata: meta.New(req.Metadata),
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostCompany, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostUser parses and validates POST /v1/users.
func (s *Server) validatePostUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postUserRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					unprocessable(w, err.Error(), "validation_error")
					return
				}
			}
			u := books.User{
				CompanyID:  req.CompanyID,
				Name:       req.Name,
				Email:      req.Email,
				Role:       req.Role,
				Department: req.Department,
				Metadata:   meta.New(req.Metadata),
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostUser, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostTransaction parses POST /v1/transactions, converts it to the
// domain transaction and runs service validation so the handler only persists.
func (s *Server) validatePostTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postTransactionRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					unprocessable(w, err.Error(), "validation_error")
					return
				}
			}
			date, ok := parseDate(w, req.Date)
			if !ok {
				return
			}
			t := books.Transaction{
				Date:        date,
				Amount:      books.MustAmount(s.store.Currency(), req.AmountMinor),
				From:        req.From.toDomain(),
				To:          req.To.toDomain(),
				Description: req.Description,
				Reference:   req.Reference,
				Metadata:    meta.New(req.Metadata),
			}
			if err := s.transfers.Validate(r.Context(), t); err != nil {
				s.writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostTransaction, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateCashflow parses the shared body of POST /v1/deposits and
// POST /v1/withdrawals.
func (s *Server) validateCashflow() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req cashflowRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			ep := req.Endpoint.toDomain()
			if !ep.Valid() || ep.IsCash() {
				badRequest(w, "endpoint must be an existing company or user")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyCashflow, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseDate interprets an optional YYYY-MM-DD value; empty means today (UTC).
func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		badRequest(w, "invalid date, want YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}
