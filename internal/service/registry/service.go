// Package registry implements the account-management rules: required and
// unique names for companies, weak company references on users, and a
// referential guard that forbids deleting an account with recorded
// transactions.
package registry

import (
	"context"
	"strings"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/errs"
	"github.com/tinoosan/bookkeeper/internal/slug"
)

type Repo interface {
	Company(ctx context.Context, id int64) (books.Company, error)
	Companies(ctx context.Context) ([]books.Company, error)
	User(ctx context.Context, id int64) (books.User, error)
	Users(ctx context.Context) ([]books.User, error)
	UsersByCompany(ctx context.Context, companyID int64) ([]books.User, error)
	// HasTransactions reports whether any transaction references ep.
	HasTransactions(ctx context.Context, ep books.Endpoint) (bool, error)
}

type Writer interface {
	CreateCompany(ctx context.Context, c books.Company) (books.Company, error)
	UpdateCompany(ctx context.Context, c books.Company) (books.Company, error)
	DeleteCompany(ctx context.Context, id int64) error
	CreateUser(ctx context.Context, u books.User) (books.User, error)
	UpdateUser(ctx context.Context, u books.User) (books.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type Service interface {
	CreateCompany(ctx context.Context, c books.Company) (books.Company, error)
	UpdateCompany(ctx context.Context, c books.Company) (books.Company, error)
	DeleteCompany(ctx context.Context, id int64) error
	GetCompany(ctx context.Context, id int64) (books.Company, error)
	ListCompanies(ctx context.Context) ([]books.Company, error)
	CreateUser(ctx context.Context, u books.User) (books.User, error)
	UpdateUser(ctx context.Context, u books.User) (books.User, error)
	DeleteUser(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (books.User, error)
	ListUsers(ctx context.Context) ([]books.User, error)
	ListUsersByCompany(ctx context.Context, companyID int64) ([]books.User, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) CreateCompany(ctx context.Context, c books.Company) (books.Company, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return books.Company{}, errs.ErrNameRequired
	}
	if err := c.Metadata.Validate(); err != nil {
		return books.Company{}, err
	}
	if err := s.ensureUniqueCompanyName(ctx, c.Name, 0); err != nil {
		return books.Company{}, err
	}
	return s.writer.CreateCompany(ctx, c)
}

func (s *service) UpdateCompany(ctx context.Context, c books.Company) (books.Company, error) {
	if c.ID <= 0 {
		return books.Company{}, errs.ErrInvalid
	}
	current, err := s.repo.Company(ctx, c.ID)
	if err != nil {
		return books.Company{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return books.Company{}, errs.ErrNameRequired
	}
	if err := c.Metadata.Validate(); err != nil {
		return books.Company{}, err
	}
	if slug.Slugify(c.Name) != slug.Slugify(current.Name) {
		if err := s.ensureUniqueCompanyName(ctx, c.Name, c.ID); err != nil {
			return books.Company{}, err
		}
	}
	// Balance is owned by the transfer service and never edited here.
	c.Balance = current.Balance
	c.CreatedAt = current.CreatedAt
	return s.writer.UpdateCompany(ctx, c)
}

// DeleteCompany removes a company with no recorded transactions. Deleting
// one that any transaction references is forbidden so the log never holds
// orphaned endpoints.
func (s *service) DeleteCompany(ctx context.Context, id int64) error {
	if _, err := s.repo.Company(ctx, id); err != nil {
		return err
	}
	referenced, err := s.repo.HasTransactions(ctx, books.CompanyRef(id))
	if err != nil {
		return err
	}
	if referenced {
		return errs.ErrHasTransactions
	}
	return s.writer.DeleteCompany(ctx, id)
}

func (s *service) GetCompany(ctx context.Context, id int64) (books.Company, error) {
	return s.repo.Company(ctx, id)
}

func (s *service) ListCompanies(ctx context.Context) ([]books.Company, error) {
	return s.repo.Companies(ctx)
}

func (s *service) CreateUser(ctx context.Context, u books.User) (books.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return books.User{}, errs.ErrNameRequired
	}
	if err := u.Metadata.Validate(); err != nil {
		return books.User{}, err
	}
	if u.CompanyID != 0 {
		if _, err := s.repo.Company(ctx, u.CompanyID); err != nil {
			return books.User{}, err
		}
	}
	return s.writer.CreateUser(ctx, u)
}

func (s *service) UpdateUser(ctx context.Context, u books.User) (books.User, error) {
	if u.ID <= 0 {
		return books.User{}, errs.ErrInvalid
	}
	current, err := s.repo.User(ctx, u.ID)
	if err != nil {
		return books.User{}, err
	}
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return books.User{}, errs.ErrNameRequired
	}
	if err := u.Metadata.Validate(); err != nil {
		return books.User{}, err
	}
	if u.CompanyID != 0 && u.CompanyID != current.CompanyID {
		if _, err := s.repo.Company(ctx, u.CompanyID); err != nil {
			return books.User{}, err
		}
	}
	u.Balance = current.Balance
	u.CreatedAt = current.CreatedAt
	return s.writer.UpdateUser(ctx, u)
}

func (s *service) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.repo.User(ctx, id); err != nil {
		return err
	}
	referenced, err := s.repo.HasTransactions(ctx, books.UserRef(id))
	if err != nil {
		return err
	}
	if referenced {
		return errs.ErrHasTransactions
	}
	return s.writer.DeleteUser(ctx, id)
}

func (s *service) GetUser(ctx context.Context, id int64) (books.User, error) {
	return s.repo.User(ctx, id)
}

func (s *service) ListUsers(ctx context.Context) ([]books.User, error) {
	return s.repo.Users(ctx)
}

func (s *service) ListUsersByCompany(ctx context.Context, companyID int64) ([]books.User, error) {
	return s.repo.UsersByCompany(ctx, companyID)
}

func (s *service) ensureUniqueCompanyName(ctx context.Context, name string, excludeID int64) error {
	desired := slug.Slugify(name)
	existing, err := s.repo.Companies(ctx)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		if slug.Slugify(other.Name) == desired {
			return errs.ErrDuplicateName
		}
	}
	return nil
}
