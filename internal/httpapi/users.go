package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/meta"
)

func (s *Server) postUser(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyPostUser)
	u, ok := v.(books.User)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated request missing", "internal_error")
		return
	}
	saved, err := s.accounts.CreateUser(r.Context(), u)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toUserResponse(saved))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	var (
		users []books.User
		err   error
	)
	if raw := r.URL.Query().Get("company_id"); raw != "" {
		companyID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || companyID <= 0 {
			badRequest(w, "invalid company_id")
			return
		}
		users, err = s.accounts.ListUsersByCompany(r.Context(), companyID)
	} else {
		users, err = s.accounts.ListUsers(r.Context())
	}
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := s.accounts.GetUser(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toUserResponse(u))
}

type patchUserRequest struct {
	CompanyID  *int64            `json:"company_id,omitempty"`
	Name       *string           `json:"name,omitempty"`
	Email      *string           `json:"email,omitempty"`
	Role       *string           `json:"role,omitempty"`
	Department *string           `json:"department,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchUserRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	u, err := s.accounts.GetUser(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	if req.CompanyID != nil {
		u.CompanyID = *req.CompanyID
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.Department != nil {
		u.Department = *req.Department
	}
	if req.Metadata != nil {
		md := meta.New(req.Metadata)
		if err := md.Validate(); err != nil {
			unprocessable(w, err.Error(), "validation_error")
			return
		}
		u.Metadata = md
	}
	saved, err := s.accounts.UpdateUser(r.Context(), u)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toUserResponse(saved))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.DeleteUser(r.Context(), id); err != nil {
		s.writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
