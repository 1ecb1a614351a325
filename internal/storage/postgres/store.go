package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP/API and services.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. This package focuses on mapping between the
// domain entities and SQL rows and running the necessary statements/transactions.

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/errs"
	"github.com/tinoosan/bookkeeper/internal/meta"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

const dateLayout = "2006-01-02"

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	currency string
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn, currency string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, currency: currency}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Currency returns the book's currency code.
func (s *Store) Currency() string { return s.currency }

// SeedDev inserts a demo company and user for quick local testing.
func (s *Store) SeedDev(ctx context.Context) (books.Company, books.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return books.Company{}, books.User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	now := time.Now().UTC()
	c := books.Company{Name: "Demo Trading Co", Email: "accounts@demo.test", CreatedAt: now}
	err = tx.QueryRow(ctx, `
		insert into companies (name, address, phone, email, created_at)
		values ($1, $2, $3, $4, $5) returning id
	`, c.Name, c.Address, c.Phone, c.Email, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return books.Company{}, books.User{}, err
	}
	u := books.User{CompanyID: c.ID, Name: "Demo Clerk", Role: "bookkeeper", CreatedAt: now}
	err = tx.QueryRow(ctx, `
		insert into users (company_id, name, email, role, department, created_at)
		values ($1, $2, $3, $4, $5, $6) returning id
	`, u.CompanyID, u.Name, u.Email, u.Role, u.Department, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		return books.Company{}, books.User{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return books.Company{}, books.User{}, err
	}
	c.Balance = books.MustAmount(s.currency, 0)
	u.Balance = books.MustAmount(s.currency, 0)
	return c, u, nil
}

// --- Company reads ---

func (s *Store) Company(ctx context.Context, id int64) (books.Company, error) {
	var c books.Company
	var minor int64
	var mdBytes []byte
	err := s.pool.QueryRow(ctx, `
		select id, name, address, phone, email, balance_minor, metadata, created_at
		from companies where id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &minor, &mdBytes, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Company{}, errs.ErrNotFound
	}
	if err != nil {
		return books.Company{}, err
	}
	c.Balance = books.MustAmount(s.currency, minor)
	c.Metadata = decodeMeta(mdBytes)
	return c, nil
}

func (s *Store) Companies(ctx context.Context) ([]books.Company, error) {
	rows, err := s.pool.Query(ctx, `
		select id, name, address, phone, email, balance_minor, metadata, created_at
		from companies order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]books.Company, 0)
	for rows.Next() {
		var c books.Company
		var minor int64
		var mdBytes []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &minor, &mdBytes, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Balance = books.MustAmount(s.currency, minor)
		c.Metadata = decodeMeta(mdBytes)
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Company writes ---

func (s *Store) CreateCompany(ctx context.Context, c books.Company) (books.Company, error) {
	md, _ := c.Metadata.MarshalStableJSON()
	c.CreatedAt = time.Now().UTC()
	err := s.pool.QueryRow(ctx, `
		insert into companies (name, address, phone, email, metadata, created_at)
		values ($1,$2,$3,$4,$5,$6) returning id
	`, c.Name, c.Address, c.Phone, c.Email, md, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return books.Company{}, err
	}
	c.Balance = books.MustAmount(s.currency, 0)
	return c, nil
}

func (s *Store) UpdateCompany(ctx context.Context, c books.Company) (books.Company, error) {
	md, _ := c.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update companies set name=$1, address=$2, phone=$3, email=$4, metadata=$5
		where id=$6
	`, c.Name, c.Address, c.Phone, c.Email, md, c.ID)
	if err != nil {
		return books.Company{}, err
	}
	if ct.RowsAffected() == 0 {
		return books.Company{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) DeleteCompany(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `delete from companies where id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- User reads ---

func (s *Store) User(ctx context.Context, id int64) (books.User, error) {
	var u books.User
	var minor int64
	var mdBytes []byte
	err := s.pool.QueryRow(ctx, `
		select id, company_id, name, email, role, department, balance_minor, metadata, created_at
		from users where id = $1
	`, id).Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &u.Department, &minor, &mdBytes, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.User{}, errs.ErrNotFound
	}
	if err != nil {
		return books.User{}, err
	}
	u.Balance = books.MustAmount(s.currency, minor)
	u.Metadata = decodeMeta(mdBytes)
	return u, nil
}

func (s *Store) Users(ctx context.Context) ([]books.User, error) {
	return s.queryUsers(ctx, `
		select id, company_id, name, email, role, department, balance_minor, metadata, created_at
		from users order by id
	`)
}

func (s *Store) UsersByCompany(ctx context.Context, companyID int64) ([]books.User, error) {
	return s.queryUsers(ctx, `
		select id, company_id, name, email, role, department, balance_minor, metadata, created_at
		from users where company_id = $1 order by id
	`, companyID)
}

func (s *Store) queryUsers(ctx context.Context, q string, args ...any) ([]books.User, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]books.User, 0)
	for rows.Next() {
		var u books.User
		var minor int64
		var mdBytes []byte
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &u.Department, &minor, &mdBytes, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Balance = books.MustAmount(s.currency, minor)
		u.Metadata = decodeMeta(mdBytes)
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- User writes ---

func (s *Store) CreateUser(ctx context.Context, u books.User) (books.User, error) {
	md, _ := u.Metadata.MarshalStableJSON()
	u.CreatedAt = time.Now().UTC()
	err := s.pool.QueryRow(ctx, `
		insert into users (company_id, name, email, role, department, metadata, created_at)
		values ($1,$2,$3,$4,$5,$6,$7) returning id
	`, u.CompanyID, u.Name, u.Email, u.Role, u.Department, md, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		return books.User{}, err
	}
	u.Balance = books.MustAmount(s.currency, 0)
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u books.User) (books.User, error) {
	md, _ := u.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update users set company_id=$1, name=$2, email=$3, role=$4, department=$5, metadata=$6
		where id=$7
	`, u.CompanyID, u.Name, u.Email, u.Role, u.Department, md, u.ID)
	if err != nil {
		return books.User{}, err
	}
	if ct.RowsAffected() == 0 {
		return books.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Transaction reads ---

const txColumns = `id, tx_date, amount_minor, from_kind, from_id, to_kind, to_id,
	description, reference, metadata, created_at`

func (s *Store) Transaction(ctx context.Context, id int64) (books.Transaction, error) {
	row := s.pool.QueryRow(ctx, `select `+txColumns+` from transactions where id = $1`, id)
	t, err := s.scanTx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Transaction{}, errs.ErrNotFound
	}
	return t, err
}

func (s *Store) Transactions(ctx context.Context, limit int) ([]books.Transaction, error) {
	q := `select ` + txColumns + ` from transactions
		order by tx_date desc, created_at desc, id desc`
	if limit > 0 {
		return s.queryTxs(ctx, q+` limit $1`, limit)
	}
	return s.queryTxs(ctx, q)
}

func (s *Store) TransactionsByEndpoint(ctx context.Context, ep books.Endpoint) ([]books.Transaction, error) {
	if ep.IsCash() {
		return s.queryTxs(ctx, `select `+txColumns+` from transactions
			where from_kind = 'cash' or to_kind = 'cash'`)
	}
	return s.queryTxs(ctx, `select `+txColumns+` from transactions
		where (from_kind = $1 and from_id = $2) or (to_kind = $1 and to_id = $2)`,
		string(ep.Kind), ep.ID)
}

func (s *Store) SearchTransactions(ctx context.Context, term string) ([]books.Transaction, error) {
	pattern := "%" + term + "%"
	return s.queryTxs(ctx, `
		select t.id, t.tx_date, t.amount_minor, t.from_kind, t.from_id, t.to_kind, t.to_id,
			t.description, t.reference, t.metadata, t.created_at
		from transactions t
		left join companies fc on t.from_kind = 'company' and t.from_id = fc.id
		left join users fu on t.from_kind = 'user' and t.from_id = fu.id
		left join companies tc on t.to_kind = 'company' and t.to_id = tc.id
		left join users tu on t.to_kind = 'user' and t.to_id = tu.id
		where t.description ilike $1
			or t.reference ilike $1
			or fc.name ilike $1 or fu.name ilike $1
			or tc.name ilike $1 or tu.name ilike $1
		order by t.tx_date desc, t.created_at desc, t.id desc
	`, pattern)
}

func (s *Store) HasTransactions(ctx context.Context, ep books.Endpoint) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `
		select 1 from transactions
		where (from_kind = $1 and from_id = $2) or (to_kind = $1 and to_id = $2)
		limit 1
	`, string(ep.Kind), ep.ID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) queryTxs(ctx context.Context, q string, args ...any) ([]books.Transaction, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]books.Transaction, 0)
	for rows.Next() {
		t, err := s.scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) scanTx(row pgx.Row) (books.Transaction, error) {
	var t books.Transaction
	var dateStr, fromKind, toKind string
	var minor int64
	var mdBytes []byte
	err := row.Scan(&t.ID, &dateStr, &minor, &fromKind, &t.From.ID, &toKind, &t.To.ID,
		&t.Description, &t.Reference, &mdBytes, &t.CreatedAt)
	if err != nil {
		return books.Transaction{}, err
	}
	t.Date, err = time.Parse(dateLayout, dateStr)
	if err != nil {
		return books.Transaction{}, err
	}
	t.Amount = books.MustAmount(s.currency, minor)
	t.From.Kind = books.Kind(fromKind)
	t.To.Kind = books.Kind(toKind)
	t.Metadata = decodeMeta(mdBytes)
	return t, nil
}

// --- Transaction writes ---

// SaveTransaction inserts the record and applies the balance deltas in one
// database transaction.
func (s *Store) SaveTransaction(ctx context.Context, t books.Transaction, deltas []transfer.BalanceDelta) (books.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return books.Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	md, _ := t.Metadata.MarshalStableJSON()
	t.CreatedAt = time.Now().UTC()
	err = tx.QueryRow(ctx, `
		insert into transactions (tx_date, amount_minor, from_kind, from_id, to_kind, to_id,
			description, reference, metadata, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) returning id
	`, t.Date.Format(dateLayout), books.Minor(t.Amount),
		string(t.From.Kind), t.From.ID, string(t.To.Kind), t.To.ID,
		t.Description, t.Reference, md, t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return books.Transaction{}, err
	}
	if err := applyDeltas(ctx, tx, deltas); err != nil {
		return books.Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return books.Transaction{}, err
	}
	return t, nil
}

// RemoveTransaction deletes the record and applies the reversal deltas in one
// database transaction.
func (s *Store) RemoveTransaction(ctx context.Context, id int64, deltas []transfer.BalanceDelta) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `delete from transactions where id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if err := applyDeltas(ctx, tx, deltas); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func applyDeltas(ctx context.Context, tx pgx.Tx, deltas []transfer.BalanceDelta) error {
	for _, d := range deltas {
		table := ""
		switch d.Endpoint.Kind {
		case books.KindCompany:
			table = "companies"
		case books.KindUser:
			table = "users"
		default:
			return errs.ErrInvalid
		}
		ct, err := tx.Exec(ctx,
			`update `+table+` set balance_minor = balance_minor + $1 where id = $2`,
			d.Minor, d.Endpoint.ID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
	}
	return nil
}

// --- Idempotency ---

func (s *Store) TransactionByIdempotencyKey(ctx context.Context, key string) (books.Transaction, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `select tx_id from idempotency where key = $1`, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Transaction{}, false, nil
	}
	if err != nil {
		return books.Transaction{}, false, err
	}
	t, err := s.Transaction(ctx, id)
	if err != nil {
		return books.Transaction{}, false, err
	}
	return t, true, nil
}

func (s *Store) SaveIdempotencyKey(ctx context.Context, key string, txID int64) error {
	_, err := s.pool.Exec(ctx, `
		insert into idempotency (key, tx_id)
		values ($1,$2)
		on conflict (key) do nothing
	`, key, txID)
	return err
}

func decodeMeta(raw []byte) meta.Metadata {
	if len(raw) == 0 {
		return meta.New(nil)
	}
	var m meta.Metadata
	if err := m.UnmarshalJSON(raw); err != nil {
		return meta.New(nil)
	}
	return m
}
