package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/meta"
)

func (s *Server) postCompany(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyPostCompany)
	c, ok := v.(books.Company)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated request missing", "internal_error")
		return
	}
	saved, err := s.accounts.CreateCompany(r.Context(), c)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCompanyResponse(saved))
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.accounts.ListCompanies(r.Context())
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	out := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, toCompanyResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := s.accounts.GetCompany(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCompanyResponse(c))
}

// patchCompanyRequest uses pointers so absent fields are left untouched.
type patchCompanyRequest struct {
	Name     *string           `json:"name,omitempty"`
	Address  *string           `json:"address,omitempty"`
	Phone    *string           `json:"phone,omitempty"`
	Email    *string           `json:"email,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) updateCompany(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchCompanyRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	c, err := s.accounts.GetCompany(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Address != nil {
		c.Address = *req.Address
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.Metadata != nil {
		md := meta.New(req.Metadata)
		if err := md.Validate(); err != nil {
			unprocessable(w, err.Error(), "validation_error")
			return
		}
		c.Metadata = md
	}
	saved, err := s.accounts.UpdateCompany(r.Context(), c)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCompanyResponse(saved))
}

func (s *Server) deleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.DeleteCompany(r.Context(), id); err != nil {
		s.writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}
