package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn, "USD")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn, "USD")
	if err != nil {
		t.Fatalf("open for init: %v", err)
	}
	defer s.Close()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	path := filepath.Join(repoRoot, "db", "migrations", "0001_init.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn, "USD")
	if err != nil {
		t.Fatalf("open for truncate: %v", err)
	}
	defer s.Close()
	_, _ = s.pool.Exec(ctx, `truncate table idempotency, transactions, users, companies cascade`)
}

func TestStore_AccountsAndTransactions(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	c, u, err := s.SeedDev(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if c.ID == 0 || u.ID == 0 {
		t.Fatalf("unexpected seed: company=%d user=%d", c.ID, u.ID)
	}

	// Registry reads + update
	companies, err := s.Companies(ctx)
	if err != nil || len(companies) == 0 {
		t.Fatalf("companies: %v (%d)", err, len(companies))
	}
	got, err := s.Company(ctx, c.ID)
	if err != nil {
		t.Fatalf("company: %v", err)
	}
	got.Phone = "0123456789"
	if _, err := s.UpdateCompany(ctx, got); err != nil {
		t.Fatalf("update company: %v", err)
	}
	byCompany, err := s.UsersByCompany(ctx, c.ID)
	if err != nil || len(byCompany) != 1 {
		t.Fatalf("users by company: %v (%d)", err, len(byCompany))
	}

	// Atomic write: record + balance deltas
	tx := books.Transaction{
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:      books.MustAmount("USD", 5000),
		From:        books.CompanyRef(c.ID),
		To:          books.UserRef(u.ID),
		Description: "Salary",
	}
	deltas := []transfer.BalanceDelta{
		{Endpoint: books.CompanyRef(c.ID), Minor: -5000},
		{Endpoint: books.UserRef(u.ID), Minor: 5000},
	}
	saved, err := s.SaveTransaction(ctx, tx, deltas)
	if err != nil {
		t.Fatalf("save tx: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("saved transaction has no id")
	}
	gotU, _ := s.User(ctx, u.ID)
	if books.Minor(gotU.Balance) != 5000 {
		t.Fatalf("user balance = %d, want 5000", books.Minor(gotU.Balance))
	}

	ok, err := s.HasTransactions(ctx, books.CompanyRef(c.ID))
	if err != nil || !ok {
		t.Fatalf("has transactions: %v ok=%v", err, ok)
	}
	found, err := s.SearchTransactions(ctx, "salary")
	if err != nil || len(found) != 1 {
		t.Fatalf("search: %v (%d)", err, len(found))
	}

	// Idempotency mapping
	key := "test-key-1"
	if err := s.SaveIdempotencyKey(ctx, key, saved.ID); err != nil {
		t.Fatalf("save idem: %v", err)
	}
	if _, ok, err := s.TransactionByIdempotencyKey(ctx, key); err != nil || !ok {
		t.Fatalf("get idem: %v ok=%v", err, ok)
	}

	// Reversal removes the record and restores balances
	reversal := []transfer.BalanceDelta{
		{Endpoint: books.CompanyRef(c.ID), Minor: 5000},
		{Endpoint: books.UserRef(u.ID), Minor: -5000},
	}
	if err := s.RemoveTransaction(ctx, saved.ID, reversal); err != nil {
		t.Fatalf("remove tx: %v", err)
	}
	gotC, _ := s.Company(ctx, c.ID)
	if books.Minor(gotC.Balance) != 0 {
		t.Fatalf("company balance after reversal = %d, want 0", books.Minor(gotC.Balance))
	}
}
