package memory

// Package memory provides a simple in-memory implementation used for
// development and tests. It keeps code paths easy to follow while allowing
// us to plug in a real DB later.
import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/errs"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

// Store is an in-memory implementation of the repository+writer interfaces
// used by the services and the API. It is guarded by an RWMutex; write
// methods apply record mutation and balance deltas under one lock, which is
// the atomicity unit for this backend.
type Store struct {
	mu        sync.RWMutex
	currency  string
	companies map[int64]books.Company
	users     map[int64]books.User
	txs       map[int64]books.Transaction
	// Idempotency: key -> transaction id
	idem map[string]int64

	nextCompanyID int64
	nextUserID    int64
	nextTxID      int64
}

// New constructs an empty in-memory store holding amounts in currency.
func New(currency string) *Store {
	return &Store{
		currency:  currency,
		companies: make(map[int64]books.Company),
		users:     make(map[int64]books.User),
		txs:       make(map[int64]books.Transaction),
		idem:      make(map[string]int64),
	}
}

// Currency returns the book's currency code.
func (s *Store) Currency() string { return s.currency }

// Seed helpers for local dev/tests.
func (s *Store) SeedCompany(c books.Company) books.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.nextCompanyID++
		c.ID = s.nextCompanyID
	} else if c.ID > s.nextCompanyID {
		s.nextCompanyID = c.ID
	}
	// Normalize the balance onto the book's currency.
	c.Balance = books.MustAmount(s.currency, books.Minor(c.Balance))
	s.companies[c.ID] = c
	return c
}

func (s *Store) SeedUser(u books.User) books.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextUserID++
		u.ID = s.nextUserID
	} else if u.ID > s.nextUserID {
		s.nextUserID = u.ID
	}
	u.Balance = books.MustAmount(s.currency, books.Minor(u.Balance))
	s.users[u.ID] = u
	return u
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.companies = map[int64]books.Company{}
	s.users = map[int64]books.User{}
	s.txs = map[int64]books.Transaction{}
	s.idem = map[string]int64{}
	s.nextCompanyID, s.nextUserID, s.nextTxID = 0, 0, 0
	s.mu.Unlock()
}

// --- Company reads/writes ---

func (s *Store) Company(_ context.Context, id int64) (books.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return books.Company{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) Companies(_ context.Context) ([]books.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateCompany(_ context.Context, c books.Company) (books.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCompanyID++
	c.ID = s.nextCompanyID
	c.Balance = books.MustAmount(s.currency, 0)
	c.CreatedAt = time.Now().UTC()
	s.companies[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCompany(_ context.Context, c books.Company) (books.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[c.ID]; !ok {
		return books.Company{}, errs.ErrNotFound
	}
	s.companies[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCompany(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.companies, id)
	return nil
}

// --- User reads/writes ---

func (s *Store) User(_ context.Context, id int64) (books.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return books.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (s *Store) Users(_ context.Context) ([]books.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UsersByCompany(_ context.Context, companyID int64) ([]books.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.User, 0)
	for _, u := range s.users {
		if u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u books.User) (books.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u.ID = s.nextUserID
	u.Balance = books.MustAmount(s.currency, 0)
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u books.User) (books.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return books.User{}, errs.ErrNotFound
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// --- Transaction reads ---

func (s *Store) Transaction(_ context.Context, id int64) (books.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok {
		return books.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

func (s *Store) Transactions(_ context.Context, limit int) ([]books.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sortedNewestFirstLocked()
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) TransactionsByEndpoint(_ context.Context, ep books.Endpoint) ([]books.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.Transaction, 0)
	for _, t := range s.txs {
		if t.Touches(ep) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) SearchTransactions(_ context.Context, term string) ([]books.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return s.sortedNewestFirstLocked(), nil
	}
	out := make([]books.Transaction, 0)
	for _, t := range s.sortedNewestFirstLocked() {
		if strings.Contains(strings.ToLower(t.Description), needle) ||
			strings.Contains(strings.ToLower(t.Reference), needle) ||
			strings.Contains(strings.ToLower(s.partyNameLocked(t.From)), needle) ||
			strings.Contains(strings.ToLower(s.partyNameLocked(t.To)), needle) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) HasTransactions(_ context.Context, ep books.Endpoint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.txs {
		if t.Touches(ep) {
			return true, nil
		}
	}
	return false, nil
}

// --- Transaction writes ---

// SaveTransaction inserts t and applies the balance deltas under one lock.
func (s *Store) SaveTransaction(_ context.Context, t books.Transaction, deltas []transfer.BalanceDelta) (books.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDeltasLocked(deltas); err != nil {
		return books.Transaction{}, err
	}
	s.nextTxID++
	t.ID = s.nextTxID
	t.CreatedAt = time.Now().UTC()
	s.txs[t.ID] = t
	s.applyDeltasLocked(deltas)
	return t, nil
}

// RemoveTransaction deletes the record and applies the reversal deltas
// under one lock.
func (s *Store) RemoveTransaction(_ context.Context, id int64, deltas []transfer.BalanceDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return errs.ErrNotFound
	}
	if err := s.checkDeltasLocked(deltas); err != nil {
		return err
	}
	delete(s.txs, id)
	s.applyDeltasLocked(deltas)
	return nil
}

// --- Idempotency ---

func (s *Store) TransactionByIdempotencyKey(_ context.Context, key string) (books.Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.idem[key]; ok {
		if t, ok2 := s.txs[id]; ok2 {
			return t, true, nil
		}
	}
	return books.Transaction{}, false, nil
}

func (s *Store) SaveIdempotencyKey(_ context.Context, key string, txID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Only set if absent to preserve idempotency
	if _, exists := s.idem[key]; !exists {
		s.idem[key] = txID
	}
	return nil
}

// --- helpers (caller holds s.mu) ---

func (s *Store) checkDeltasLocked(deltas []transfer.BalanceDelta) error {
	for _, d := range deltas {
		switch d.Endpoint.Kind {
		case books.KindCompany:
			if _, ok := s.companies[d.Endpoint.ID]; !ok {
				return errs.ErrNotFound
			}
		case books.KindUser:
			if _, ok := s.users[d.Endpoint.ID]; !ok {
				return errs.ErrNotFound
			}
		default:
			return errs.ErrInvalid
		}
	}
	return nil
}

func (s *Store) applyDeltasLocked(deltas []transfer.BalanceDelta) {
	for _, d := range deltas {
		switch d.Endpoint.Kind {
		case books.KindCompany:
			c := s.companies[d.Endpoint.ID]
			c.Balance = books.MustAmount(s.currency, books.Minor(c.Balance)+d.Minor)
			s.companies[d.Endpoint.ID] = c
		case books.KindUser:
			u := s.users[d.Endpoint.ID]
			u.Balance = books.MustAmount(s.currency, books.Minor(u.Balance)+d.Minor)
			s.users[d.Endpoint.ID] = u
		}
	}
}

func (s *Store) sortedNewestFirstLocked() []books.Transaction {
	out := make([]books.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) partyNameLocked(ep books.Endpoint) string {
	switch ep.Kind {
	case books.KindCompany:
		return s.companies[ep.ID].Name
	case books.KindUser:
		return s.users[ep.ID].Name
	}
	return ""
}
