package transfer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/govalues/money"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/dictionary"
	"github.com/tinoosan/bookkeeper/internal/errs"
)

// Repo defines transaction read operations needed by the service.
type Repo interface {
	Transaction(ctx context.Context, id int64) (books.Transaction, error)
	// Transactions returns transactions newest-first; limit <= 0 means all.
	Transactions(ctx context.Context, limit int) ([]books.Transaction, error)
	// TransactionsByEndpoint returns every transaction where the endpoint is
	// either side, in no particular order.
	TransactionsByEndpoint(ctx context.Context, ep books.Endpoint) ([]books.Transaction, error)
	// SearchTransactions matches term against description, reference and
	// party names, newest-first.
	SearchTransactions(ctx context.Context, term string) ([]books.Transaction, error)
}

// AccountReader resolves real endpoints to their stored accounts.
type AccountReader interface {
	Company(ctx context.Context, id int64) (books.Company, error)
	User(ctx context.Context, id int64) (books.User, error)
	Companies(ctx context.Context) ([]books.Company, error)
	Users(ctx context.Context) ([]books.User, error)
}

// BalanceDelta is one signed balance adjustment for a real endpoint,
// applied by the writer in the same commit as the record mutation.
type BalanceDelta struct {
	Endpoint books.Endpoint
	Minor    int64
}

// Writer defines the atomic write operations needed by the service.
// Implementations must apply the record mutation and every delta as one
// all-or-nothing unit.
type Writer interface {
	// SaveTransaction inserts t (assigning ID and CreatedAt) and applies
	// deltas atomically, returning the stored transaction.
	SaveTransaction(ctx context.Context, t books.Transaction, deltas []BalanceDelta) (books.Transaction, error)
	// RemoveTransaction deletes the record and applies deltas atomically.
	RemoveTransaction(ctx context.Context, id int64, deltas []BalanceDelta) error
}

// Totals aggregates stored balances across the book.
type Totals struct {
	CompanyMinor int64
	UserMinor    int64
	GrandMinor   int64
}

// Summary holds transaction log statistics.
type Summary struct {
	Count        int64
	TotalMinor   int64
	AverageMinor int64
}

// Service is the balance maintainer and ledger deriver: it owns the rules
// that keep stored balances equal to the net of all live transactions, and
// derives per-account running-balance statements by replay.
type Service interface {
	Validate(ctx context.Context, t books.Transaction) error
	Create(ctx context.Context, t books.Transaction) (books.Transaction, error)
	Delete(ctx context.Context, id int64) error
	Deposit(ctx context.Context, ep books.Endpoint, amount money.Amount, description string) (books.Transaction, error)
	Withdraw(ctx context.Context, ep books.Endpoint, amount money.Amount, description string) (books.Transaction, error)
	Get(ctx context.Context, id int64) (books.Transaction, error)
	List(ctx context.Context, limit int) ([]books.Transaction, error)
	Search(ctx context.Context, term string) ([]books.Transaction, error)
	Balance(ctx context.Context, ep books.Endpoint) (money.Amount, error)
	Ledger(ctx context.Context, ep books.Endpoint) ([]books.LedgerEntry, error)
	CheckConsistency(ctx context.Context, ep books.Endpoint) error
	Totals(ctx context.Context) (Totals, error)
	Summary(ctx context.Context) (Summary, error)
}

type service struct {
	repo     Repo
	accounts AccountReader
	writer   Writer
	currency string
}

// New constructs the transfer service. currency is the book's single
// currency code; every amount passing through must carry it.
func New(repo Repo, accounts AccountReader, writer Writer, currency string) Service {
	return &service{repo: repo, accounts: accounts, writer: writer, currency: currency}
}

func (s *service) Validate(ctx context.Context, t books.Transaction) error {
	if books.Minor(t.Amount) <= 0 {
		return errs.ErrInvalidAmount
	}
	if !t.From.Valid() {
		return fmt.Errorf("from: %w", errs.ErrInvalid)
	}
	if !t.To.Valid() {
		return fmt.Errorf("to: %w", errs.ErrInvalid)
	}
	if t.From.IsCash() && t.To.IsCash() {
		return errs.ErrCashToCash
	}
	if t.From.Same(t.To) {
		return errs.ErrSameEndpoint
	}
	if err := s.ensureExists(ctx, t.From); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := s.ensureExists(ctx, t.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	return nil
}

// Create validates t, applies the withdrawal guard, and persists the record
// together with both balance adjustments as one atomic unit.
func (s *service) Create(ctx context.Context, t books.Transaction) (books.Transaction, error) {
	if err := s.Validate(ctx, t); err != nil {
		return books.Transaction{}, err
	}
	minor := books.Minor(t.Amount)
	// Withdrawals are the only balance-checked movement. Transfers between
	// two real accounts may drive the sender negative: this is a book of
	// record, not a wallet.
	if !t.From.IsCash() && t.To.IsCash() {
		bal, err := s.Balance(ctx, t.From)
		if err != nil {
			return books.Transaction{}, err
		}
		if books.Minor(bal) < minor {
			return books.Transaction{}, &InsufficientBalanceError{Endpoint: t.From, Balance: bal, Requested: t.Amount}
		}
	}
	saved, err := s.writer.SaveTransaction(ctx, t, applyDeltas(t, minor))
	if err != nil {
		return books.Transaction{}, err
	}
	return saved, nil
}

// Delete reverses the balance adjustments applied at creation and removes
// the record, atomically. No sufficiency check: reversal must always be able
// to restore the prior state.
func (s *service) Delete(ctx context.Context, id int64) error {
	t, err := s.repo.Transaction(ctx, id)
	if err != nil {
		return err
	}
	return s.writer.RemoveTransaction(ctx, id, applyDeltas(t, -books.Minor(t.Amount)))
}

// applyDeltas builds the two signed balance adjustments for minor: the
// sender loses it, the receiver gains it, and cash is never stored.
func applyDeltas(t books.Transaction, minor int64) []BalanceDelta {
	deltas := make([]BalanceDelta, 0, 2)
	if !t.From.IsCash() {
		deltas = append(deltas, BalanceDelta{Endpoint: t.From, Minor: -minor})
	}
	if !t.To.IsCash() {
		deltas = append(deltas, BalanceDelta{Endpoint: t.To, Minor: minor})
	}
	return deltas
}

func (s *service) Deposit(ctx context.Context, ep books.Endpoint, amount money.Amount, description string) (books.Transaction, error) {
	if description == "" {
		description = dictionary.CashDepositLabel
	}
	return s.Create(ctx, books.Transaction{
		Date:        today(),
		Amount:      amount,
		From:        books.Cash(),
		To:          ep,
		Description: description,
	})
}

func (s *service) Withdraw(ctx context.Context, ep books.Endpoint, amount money.Amount, description string) (books.Transaction, error) {
	if description == "" {
		description = dictionary.CashWithdrawalLabel
	}
	return s.Create(ctx, books.Transaction{
		Date:        today(),
		Amount:      amount,
		From:        ep,
		To:          books.Cash(),
		Description: description,
	})
}

func (s *service) Get(ctx context.Context, id int64) (books.Transaction, error) {
	return s.repo.Transaction(ctx, id)
}

func (s *service) List(ctx context.Context, limit int) ([]books.Transaction, error) {
	return s.repo.Transactions(ctx, limit)
}

func (s *service) Search(ctx context.Context, term string) ([]books.Transaction, error) {
	return s.repo.SearchTransactions(ctx, term)
}

// Balance is the O(1) read of the incrementally maintained balance.
func (s *service) Balance(ctx context.Context, ep books.Endpoint) (money.Amount, error) {
	zero := books.MustAmount(s.currency, 0)
	switch ep.Kind {
	case books.KindCompany:
		c, err := s.accounts.Company(ctx, ep.ID)
		if err != nil {
			return zero, err
		}
		return c.Balance, nil
	case books.KindUser:
		u, err := s.accounts.User(ctx, ep.ID)
		if err != nil {
			return zero, err
		}
		return u.Balance, nil
	}
	return zero, errs.ErrCashNotAnAccount
}

// Ledger replays every transaction touching ep in chronological order,
// classifying each as credit or debit and accumulating the running balance,
// then returns the entries newest-first for display.
func (s *service) Ledger(ctx context.Context, ep books.Endpoint) ([]books.LedgerEntry, error) {
	if ep.IsCash() {
		return nil, errs.ErrCashNotAnAccount
	}
	if _, err := s.Balance(ctx, ep); err != nil {
		return nil, err
	}
	txs, err := s.repo.TransactionsByEndpoint(ctx, ep)
	if err != nil {
		return nil, err
	}
	// Canonical chronological order: date, then insertion order. IDs alone
	// are not date-monotonic because transactions can be back-dated.
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return txs[i].ID < txs[j].ID
	})

	names := map[books.Endpoint]string{}
	entries := make([]books.LedgerEntry, 0, len(txs))
	var running int64
	for _, t := range txs {
		entry := books.LedgerEntry{
			TransactionID: t.ID,
			Date:          t.Date,
			Amount:        t.Amount,
			Description:   t.Description,
			Reference:     t.Reference,
			CreatedAt:     t.CreatedAt,
		}
		if t.To.Same(ep) {
			entry.Side = books.SideCredit
			entry.Other = t.From
			running += books.Minor(t.Amount)
		} else {
			entry.Side = books.SideDebit
			entry.Other = t.To
			running -= books.Minor(t.Amount)
		}
		entry.Running = books.MustAmount(s.currency, running)
		if entry.Other.IsCash() {
			if entry.Side == books.SideCredit {
				entry.OtherParty = dictionary.CashDepositLabel
			} else {
				entry.OtherParty = dictionary.CashWithdrawalLabel
			}
		} else {
			name, err := s.endpointName(ctx, entry.Other, names)
			if err != nil {
				return nil, err
			}
			entry.OtherParty = name
		}
		entries = append(entries, entry)
	}
	// Newest first for display; the running balances above were computed on
	// the forward pass.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// CheckConsistency replays the ledger and compares its final running balance
// with the stored one. Any disagreement is a ConsistencyError.
func (s *service) CheckConsistency(ctx context.Context, ep books.Endpoint) error {
	stored, err := s.Balance(ctx, ep)
	if err != nil {
		return err
	}
	entries, err := s.Ledger(ctx, ep)
	if err != nil {
		return err
	}
	var derived int64
	if len(entries) > 0 {
		derived = books.Minor(entries[0].Running)
	}
	if derived != books.Minor(stored) {
		return &ConsistencyError{Endpoint: ep, Stored: stored, Derived: books.MustAmount(s.currency, derived)}
	}
	return nil
}

func (s *service) Totals(ctx context.Context) (Totals, error) {
	companies, err := s.accounts.Companies(ctx)
	if err != nil {
		return Totals{}, err
	}
	users, err := s.accounts.Users(ctx)
	if err != nil {
		return Totals{}, err
	}
	var out Totals
	for _, c := range companies {
		out.CompanyMinor += books.Minor(c.Balance)
	}
	for _, u := range users {
		out.UserMinor += books.Minor(u.Balance)
	}
	out.GrandMinor = out.CompanyMinor + out.UserMinor
	return out, nil
}

func (s *service) Summary(ctx context.Context) (Summary, error) {
	txs, err := s.repo.Transactions(ctx, 0)
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	for _, t := range txs {
		out.Count++
		out.TotalMinor += books.Minor(t.Amount)
	}
	if out.Count > 0 {
		out.AverageMinor = out.TotalMinor / out.Count
	}
	return out, nil
}

func (s *service) ensureExists(ctx context.Context, ep books.Endpoint) error {
	if ep.IsCash() {
		return nil
	}
	if _, err := s.Balance(ctx, ep); err != nil {
		return errs.ErrUnknownEndpoint
	}
	return nil
}

func (s *service) endpointName(ctx context.Context, ep books.Endpoint, cache map[books.Endpoint]string) (string, error) {
	if name, ok := cache[ep]; ok {
		return name, nil
	}
	var name string
	switch ep.Kind {
	case books.KindCompany:
		c, err := s.accounts.Company(ctx, ep.ID)
		if err != nil {
			return "", err
		}
		name = c.Name
	case books.KindUser:
		u, err := s.accounts.User(ctx, ep.ID)
		if err != nil {
			return "", err
		}
		name = u.Name
	}
	cache[ep] = name
	return name, nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
