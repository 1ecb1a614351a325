package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/errs"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
	"github.com/tinoosan/bookkeeper/internal/storage/memory"
)

func setup(t *testing.T) (*memory.Store, transfer.Service, books.Company, books.User) {
	t.Helper()
	store := memory.New("USD")
	c := store.SeedCompany(books.Company{Name: "Acme Ltd"})
	u := store.SeedUser(books.User{Name: "Alice", CompanyID: c.ID})
	svc := transfer.New(store, store, store, "USD")
	return store, svc, c, u
}

func usd(minor int64) books.Transaction {
	return books.Transaction{
		Date:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount: books.MustAmount("USD", minor),
	}
}

func balanceMinor(t *testing.T, svc transfer.Service, ep books.Endpoint) int64 {
	t.Helper()
	bal, err := svc.Balance(context.Background(), ep)
	if err != nil {
		t.Fatalf("balance %v: %v", ep, err)
	}
	return books.Minor(bal)
}

func TestTransferConservesGrandTotal(t *testing.T) {
	_, svc, c, u := setup(t)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, books.CompanyRef(c.ID), books.MustAmount("USD", 100000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	before, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}

	tx := usd(30000)
	tx.From = books.CompanyRef(c.ID)
	tx.To = books.UserRef(u.ID)
	if _, err := svc.Create(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	after, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if after.GrandMinor != before.GrandMinor {
		t.Fatalf("grand total changed by transfer: %d -> %d", before.GrandMinor, after.GrandMinor)
	}
	if got := balanceMinor(t, svc, books.CompanyRef(c.ID)); got != 70000 {
		t.Fatalf("company balance = %d, want 70000", got)
	}
	if got := balanceMinor(t, svc, books.UserRef(u.ID)); got != 30000 {
		t.Fatalf("user balance = %d, want 30000", got)
	}
}

func TestDepositThenWithdrawRoundTrips(t *testing.T) {
	_, svc, _, u := setup(t)
	ctx := context.Background()
	ep := books.UserRef(u.ID)

	if _, err := svc.Deposit(ctx, ep, books.MustAmount("USD", 12345), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := balanceMinor(t, svc, ep); got != 12345 {
		t.Fatalf("after deposit balance = %d, want 12345", got)
	}
	if _, err := svc.Withdraw(ctx, ep, books.MustAmount("USD", 12345), ""); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := balanceMinor(t, svc, ep); got != 0 {
		t.Fatalf("after withdraw balance = %d, want 0", got)
	}
}

func TestDeleteReversesTransaction(t *testing.T) {
	_, svc, c, u := setup(t)
	ctx := context.Background()

	tx := usd(50000)
	tx.From = books.CompanyRef(c.ID)
	tx.To = books.UserRef(u.ID)
	saved, err := svc.Create(ctx, tx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := balanceMinor(t, svc, books.CompanyRef(c.ID)); got != 0 {
		t.Fatalf("company balance after delete = %d, want 0", got)
	}
	if got := balanceMinor(t, svc, books.UserRef(u.ID)); got != 0 {
		t.Fatalf("user balance after delete = %d, want 0", got)
	}
	if _, err := svc.Get(ctx, saved.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("get deleted tx err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, saved.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestWithdrawalGuardLeavesBalanceIntact(t *testing.T) {
	_, svc, _, u := setup(t)
	ctx := context.Background()
	ep := books.UserRef(u.ID)

	if _, err := svc.Deposit(ctx, ep, books.MustAmount("USD", 10000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	_, err := svc.Withdraw(ctx, ep, books.MustAmount("USD", 15000), "")
	var ib *transfer.InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("withdraw err = %v, want InsufficientBalanceError", err)
	}
	if books.Minor(ib.Balance) != 10000 || books.Minor(ib.Requested) != 15000 {
		t.Fatalf("error amounts = %d/%d, want 10000/15000", books.Minor(ib.Balance), books.Minor(ib.Requested))
	}
	if got := balanceMinor(t, svc, ep); got != 10000 {
		t.Fatalf("balance after rejected withdrawal = %d, want 10000", got)
	}
	// Ledger must show only the deposit.
	entries, err := svc.Ledger(ctx, ep)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
}

func TestTransfersMayOverdraw(t *testing.T) {
	_, svc, c, u := setup(t)
	ctx := context.Background()

	// A transfer between two real accounts is not balance-checked.
	tx := usd(50000)
	tx.From = books.UserRef(u.ID)
	tx.To = books.CompanyRef(c.ID)
	if _, err := svc.Create(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := balanceMinor(t, svc, books.UserRef(u.ID)); got != -50000 {
		t.Fatalf("user balance = %d, want -50000", got)
	}
	if got := balanceMinor(t, svc, books.CompanyRef(c.ID)); got != 50000 {
		t.Fatalf("company balance = %d, want 50000", got)
	}
}

func TestLedgerRunningBalances(t *testing.T) {
	_, svc, c, u := setup(t)
	ctx := context.Background()
	subject := books.UserRef(u.ID)

	day := func(d int) time.Time { return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC) }
	mk := func(date time.Time, minor int64, from, to books.Endpoint) {
		t.Helper()
		tx := books.Transaction{Date: date, Amount: books.MustAmount("USD", minor), From: from, To: to}
		if _, err := svc.Create(ctx, tx); err != nil {
			t.Fatalf("create %s: %v", date.Format("2006-01-02"), err)
		}
	}
	// Created out of date order to exercise the chronological sort.
	mk(day(10), 75000, books.CompanyRef(c.ID), subject) // credit
	mk(day(5), 30000, subject, books.CompanyRef(c.ID))  // debit
	mk(day(20), 50000, books.CompanyRef(c.ID), subject) // credit
	mk(day(15), 25000, subject, books.CompanyRef(c.ID)) // debit

	entries, err := svc.Ledger(ctx, subject)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(entries))
	}
	// Newest first; running balances were accumulated oldest first.
	wantRunning := []int64{70000, 20000, 45000, -30000}
	wantSide := []books.Side{books.SideCredit, books.SideDebit, books.SideCredit, books.SideDebit}
	for i, e := range entries {
		if books.Minor(e.Running) != wantRunning[i] {
			t.Fatalf("entry %d running = %d, want %d", i, books.Minor(e.Running), wantRunning[i])
		}
		if e.Side != wantSide[i] {
			t.Fatalf("entry %d side = %s, want %s", i, e.Side, wantSide[i])
		}
		if e.OtherParty != "Acme Ltd" {
			t.Fatalf("entry %d other party = %q, want Acme Ltd", i, e.OtherParty)
		}
	}
	// Property: newest entry's running balance equals the stored balance.
	if got := balanceMinor(t, svc, subject); got != 70000 {
		t.Fatalf("stored balance = %d, want 70000", got)
	}
	if err := svc.CheckConsistency(ctx, subject); err != nil {
		t.Fatalf("consistency: %v", err)
	}
}

func TestLedgerCashLabels(t *testing.T) {
	_, svc, _, u := setup(t)
	ctx := context.Background()
	ep := books.UserRef(u.ID)

	if _, err := svc.Deposit(ctx, ep, books.MustAmount("USD", 5000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Withdraw(ctx, ep, books.MustAmount("USD", 2000), ""); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	entries, err := svc.Ledger(ctx, ep)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].OtherParty != "Cash Withdrawal" || entries[0].Side != books.SideDebit {
		t.Fatalf("newest entry = %q/%s, want Cash Withdrawal/debit", entries[0].OtherParty, entries[0].Side)
	}
	if entries[1].OtherParty != "Cash Deposit" || entries[1].Side != books.SideCredit {
		t.Fatalf("oldest entry = %q/%s, want Cash Deposit/credit", entries[1].OtherParty, entries[1].Side)
	}
}

func TestValidateRejections(t *testing.T) {
	_, svc, c, u := setup(t)
	ctx := context.Background()

	cases := []struct {
		name string
		tx   books.Transaction
		want error
	}{
		{
			name: "zero amount",
			tx: books.Transaction{
				Amount: books.MustAmount("USD", 0),
				From:   books.CompanyRef(c.ID), To: books.UserRef(u.ID),
			},
			want: errs.ErrInvalidAmount,
		},
		{
			name: "negative amount",
			tx: books.Transaction{
				Amount: books.MustAmount("USD", -100),
				From:   books.CompanyRef(c.ID), To: books.UserRef(u.ID),
			},
			want: errs.ErrInvalidAmount,
		},
		{
			name: "same endpoint",
			tx: books.Transaction{
				Amount: books.MustAmount("USD", 100),
				From:   books.UserRef(u.ID), To: books.UserRef(u.ID),
			},
			want: errs.ErrSameEndpoint,
		},
		{
			name: "cash to cash",
			tx: books.Transaction{
				Amount: books.MustAmount("USD", 100),
				From:   books.Cash(), To: books.Cash(),
			},
			want: errs.ErrCashToCash,
		},
		{
			name: "unknown endpoint",
			tx: books.Transaction{
				Amount: books.MustAmount("USD", 100),
				From:   books.CompanyRef(c.ID), To: books.UserRef(9999),
			},
			want: errs.ErrUnknownEndpoint,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.tx.Date = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			if _, err := svc.Create(ctx, tc.tx); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	// Nothing persisted, balances untouched.
	if got := balanceMinor(t, svc, books.CompanyRef(c.ID)); got != 0 {
		t.Fatalf("company balance = %d, want 0", got)
	}
	txs, err := svc.List(ctx, 0)
	if err != nil || len(txs) != 0 {
		t.Fatalf("list = %d txs (%v), want 0", len(txs), err)
	}
}

func TestCheckConsistencyDetectsCorruption(t *testing.T) {
	store, svc, c, u := setup(t)
	ctx := context.Background()

	tx := usd(40000)
	tx.From = books.CompanyRef(c.ID)
	tx.To = books.UserRef(u.ID)
	if _, err := svc.Create(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.CheckConsistency(ctx, books.UserRef(u.ID)); err != nil {
		t.Fatalf("consistency before corruption: %v", err)
	}

	// Corrupt the stored balance behind the service's back.
	u.Balance = books.MustAmount("USD", 99999)
	store.SeedUser(u)

	err := svc.CheckConsistency(ctx, books.UserRef(u.ID))
	var ce *transfer.ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConsistencyError", err)
	}
	if books.Minor(ce.Stored) != 99999 || books.Minor(ce.Derived) != 40000 {
		t.Fatalf("stored/derived = %d/%d, want 99999/40000", books.Minor(ce.Stored), books.Minor(ce.Derived))
	}
}

func TestListNewestFirstAndSearch(t *testing.T) {
	_, svc, c, u := setup(t)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC) }
	first := books.Transaction{Date: day(1), Amount: books.MustAmount("USD", 100), From: books.CompanyRef(c.ID), To: books.UserRef(u.ID), Description: "January payroll"}
	second := books.Transaction{Date: day(10), Amount: books.MustAmount("USD", 200), From: books.CompanyRef(c.ID), To: books.UserRef(u.ID), Description: "Bonus"}
	if _, err := svc.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}

	txs, err := svc.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 || txs[0].Description != "Bonus" {
		t.Fatalf("list order unexpected: %+v", txs)
	}
	limited, err := svc.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited list = %d (%v), want 1", len(limited), err)
	}

	found, err := svc.Search(ctx, "payroll")
	if err != nil || len(found) != 1 {
		t.Fatalf("search payroll = %d (%v), want 1", len(found), err)
	}
	// Party names match too.
	found, err = svc.Search(ctx, "alice")
	if err != nil || len(found) != 2 {
		t.Fatalf("search alice = %d (%v), want 2", len(found), err)
	}
}

func TestSummaryAndTotals(t *testing.T) {
	_, svc, c, u := setup(t)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, books.CompanyRef(c.ID), books.MustAmount("USD", 30000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	tx := usd(10000)
	tx.From = books.CompanyRef(c.ID)
	tx.To = books.UserRef(u.ID)
	if _, err := svc.Create(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Count != 2 || sum.TotalMinor != 40000 || sum.AverageMinor != 20000 {
		t.Fatalf("summary = %+v", sum)
	}

	totals, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.CompanyMinor != 20000 || totals.UserMinor != 10000 || totals.GrandMinor != 30000 {
		t.Fatalf("totals = %+v", totals)
	}
}

func TestBalanceAndLedgerRejectCash(t *testing.T) {
	_, svc, _, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Balance(ctx, books.Cash()); !errors.Is(err, errs.ErrCashNotAnAccount) {
		t.Fatalf("balance(cash) err = %v, want ErrCashNotAnAccount", err)
	}
	if _, err := svc.Ledger(ctx, books.Cash()); !errors.Is(err, errs.ErrCashNotAnAccount) {
		t.Fatalf("ledger(cash) err = %v, want ErrCashNotAnAccount", err)
	}
}
