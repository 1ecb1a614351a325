package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/errs"
	"github.com/tinoosan/bookkeeper/internal/service/registry"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
	"github.com/tinoosan/bookkeeper/internal/storage/memory"
)

func setup(t *testing.T) (*memory.Store, registry.Service) {
	t.Helper()
	store := memory.New("USD")
	return store, registry.New(store, store)
}

func TestCreateCompanyValidation(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	if _, err := svc.CreateCompany(ctx, books.Company{Name: "   "}); !errors.Is(err, errs.ErrNameRequired) {
		t.Fatalf("blank name err = %v, want ErrNameRequired", err)
	}

	c, err := svc.CreateCompany(ctx, books.Company{Name: "  Acme Ltd.  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Acme Ltd." {
		t.Fatalf("name = %q, want trimmed", c.Name)
	}
	if books.Minor(c.Balance) != 0 {
		t.Fatalf("new company balance = %d, want 0", books.Minor(c.Balance))
	}

	// Same name under slug normalization collides.
	if _, err := svc.CreateCompany(ctx, books.Company{Name: "acme ltd"}); !errors.Is(err, errs.ErrDuplicateName) {
		t.Fatalf("duplicate err = %v, want ErrDuplicateName", err)
	}
	// A genuinely different name is fine.
	if _, err := svc.CreateCompany(ctx, books.Company{Name: "Globex"}); err != nil {
		t.Fatalf("create globex: %v", err)
	}
}

func TestUpdateCompanyPreservesBalance(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()

	c, err := svc.CreateCompany(ctx, books.Company{Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Give it a balance through the transfer service.
	tsvc := transfer.New(store, store, store, "USD")
	if _, err := tsvc.Deposit(ctx, books.CompanyRef(c.ID), books.MustAmount("USD", 5000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Updates carry descriptive fields only; balance sticks.
	c.Phone = "0123456789"
	c.Balance = books.MustAmount("USD", 0)
	updated, err := svc.UpdateCompany(ctx, c)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if books.Minor(updated.Balance) != 5000 {
		t.Fatalf("balance after update = %d, want 5000", books.Minor(updated.Balance))
	}
	if updated.Phone != "0123456789" {
		t.Fatalf("phone = %q after update", updated.Phone)
	}

	// Renaming onto another company's name is rejected.
	if _, err := svc.CreateCompany(ctx, books.Company{Name: "Globex"}); err != nil {
		t.Fatalf("create globex: %v", err)
	}
	c.Name = "GLOBEX"
	if _, err := svc.UpdateCompany(ctx, c); !errors.Is(err, errs.ErrDuplicateName) {
		t.Fatalf("rename err = %v, want ErrDuplicateName", err)
	}
}

func TestDeleteGuardedByTransactions(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()

	c, _ := svc.CreateCompany(ctx, books.Company{Name: "Acme"})
	u, err := svc.CreateUser(ctx, books.User{Name: "Alice", CompanyID: c.ID})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	tsvc := transfer.New(store, store, store, "USD")
	saved, err := tsvc.Create(ctx, books.Transaction{
		Date:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount: books.MustAmount("USD", 1000),
		From:   books.CompanyRef(c.ID),
		To:     books.UserRef(u.ID),
	})
	if err != nil {
		t.Fatalf("create tx: %v", err)
	}

	if err := svc.DeleteCompany(ctx, c.ID); !errors.Is(err, errs.ErrHasTransactions) {
		t.Fatalf("delete company err = %v, want ErrHasTransactions", err)
	}
	if err := svc.DeleteUser(ctx, u.ID); !errors.Is(err, errs.ErrHasTransactions) {
		t.Fatalf("delete user err = %v, want ErrHasTransactions", err)
	}

	// Removing the transaction unblocks deletion.
	if err := tsvc.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete tx: %v", err)
	}
	if err := svc.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := svc.DeleteCompany(ctx, c.ID); err != nil {
		t.Fatalf("delete company: %v", err)
	}
	if err := svc.DeleteCompany(ctx, c.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestUserCompanyWeakReference(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	// Unknown company reference is rejected at create time.
	if _, err := svc.CreateUser(ctx, books.User{Name: "Bob", CompanyID: 42}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("create err = %v, want ErrNotFound", err)
	}
	// No company at all is fine.
	solo, err := svc.CreateUser(ctx, books.User{Name: "Bob"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if solo.CompanyID != 0 {
		t.Fatalf("solo company id = %d, want 0", solo.CompanyID)
	}

	c, _ := svc.CreateCompany(ctx, books.Company{Name: "Acme"})
	member, err := svc.CreateUser(ctx, books.User{Name: "Alice", CompanyID: c.ID})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	byCompany, err := svc.ListUsersByCompany(ctx, c.ID)
	if err != nil || len(byCompany) != 1 || byCompany[0].ID != member.ID {
		t.Fatalf("by company = %+v (%v)", byCompany, err)
	}

	// Deleting the company does not cascade: the user survives with a
	// dangling weak reference.
	if err := svc.DeleteCompany(ctx, c.ID); err != nil {
		t.Fatalf("delete company: %v", err)
	}
	got, err := svc.GetUser(ctx, member.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if got.CompanyID != c.ID {
		t.Fatalf("member company id = %d, want %d", got.CompanyID, c.ID)
	}
}
