// Package sqlite provides the durable single-file store used by the desktop
// profile. It maps domain entities to rows via database/sql and keeps every
// balance mutation in the same transaction as the record it belongs to.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	// Import sqlite driver
	_ "modernc.org/sqlite"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/errs"
	"github.com/tinoosan/bookkeeper/internal/meta"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

const dateLayout = "2006-01-02"

// Store wraps a sql.DB connection to a sqlite file.
type Store struct {
	conn     *sql.DB
	currency string
}

// Open opens (creating if needed) the database at path and runs migrations.
// Use ":memory:" for an ephemeral database in tests.
func Open(path, currency string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: the book has a single writer and sqlite serializes
	// through it, which is also the atomicity story for reads vs writes.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	s := &Store{conn: conn, currency: currency}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// Ready pings the database to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.conn.PingContext(ctx) }

// Currency returns the book's currency code.
func (s *Store) Currency() string { return s.currency }

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			balance_minor INTEGER NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			company_id INTEGER NOT NULL DEFAULT 0,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			balance_minor INTEGER NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tx_date TEXT NOT NULL,
			amount_minor INTEGER NOT NULL CHECK (amount_minor > 0),
			from_kind TEXT NOT NULL CHECK (from_kind IN ('company','user','cash')),
			from_id INTEGER NOT NULL DEFAULT 0,
			to_kind TEXT NOT NULL CHECK (to_kind IN ('company','user','cash')),
			to_id INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			reference TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS idempotency (
			key TEXT PRIMARY KEY,
			tx_id INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_from ON transactions (from_kind, from_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_to ON transactions (to_kind, to_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_date ON transactions (tx_date)`,
		`CREATE INDEX IF NOT EXISTS idx_users_company ON users (company_id)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// --- Company reads/writes ---

func (s *Store) Company(ctx context.Context, id int64) (books.Company, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, address, phone, email, balance_minor, metadata, created_at
		FROM companies WHERE id = ?`, id)
	return s.scanCompany(row)
}

func (s *Store) Companies(ctx context.Context) ([]books.Company, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, address, phone, email, balance_minor, metadata, created_at
		FROM companies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]books.Company, 0)
	for rows.Next() {
		c, err := s.scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCompany(ctx context.Context, c books.Company) (books.Company, error) {
	md, _ := c.Metadata.MarshalStableJSON()
	c.CreatedAt = time.Now().UTC()
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO companies (name, address, phone, email, balance_minor, metadata, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		c.Name, c.Address, c.Phone, c.Email, string(md), c.CreatedAt)
	if err != nil {
		return books.Company{}, err
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return books.Company{}, err
	}
	c.Balance = books.MustAmount(s.currency, 0)
	return c, nil
}

func (s *Store) UpdateCompany(ctx context.Context, c books.Company) (books.Company, error) {
	md, _ := c.Metadata.MarshalStableJSON()
	res, err := s.conn.ExecContext(ctx, `
		UPDATE companies SET name=?, address=?, phone=?, email=?, metadata=? WHERE id=?`,
		c.Name, c.Address, c.Phone, c.Email, string(md), c.ID)
	if err != nil {
		return books.Company{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return books.Company{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) DeleteCompany(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM companies WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- User reads/writes ---

func (s *Store) User(ctx context.Context, id int64) (books.User, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, company_id, name, email, role, department, balance_minor, metadata, created_at
		FROM users WHERE id = ?`, id)
	return s.scanUser(row)
}

func (s *Store) Users(ctx context.Context) ([]books.User, error) {
	return s.queryUsers(ctx, `
		SELECT id, company_id, name, email, role, department, balance_minor, metadata, created_at
		FROM users ORDER BY id`)
}

func (s *Store) UsersByCompany(ctx context.Context, companyID int64) ([]books.User, error) {
	return s.queryUsers(ctx, `
		SELECT id, company_id, name, email, role, department, balance_minor, metadata, created_at
		FROM users WHERE company_id = ? ORDER BY id`, companyID)
}

func (s *Store) CreateUser(ctx context.Context, u books.User) (books.User, error) {
	md, _ := u.Metadata.MarshalStableJSON()
	u.CreatedAt = time.Now().UTC()
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO users (company_id, name, email, role, department, balance_minor, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		u.CompanyID, u.Name, u.Email, u.Role, u.Department, string(md), u.CreatedAt)
	if err != nil {
		return books.User{}, err
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return books.User{}, err
	}
	u.Balance = books.MustAmount(s.currency, 0)
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u books.User) (books.User, error) {
	md, _ := u.Metadata.MarshalStableJSON()
	res, err := s.conn.ExecContext(ctx, `
		UPDATE users SET company_id=?, name=?, email=?, role=?, department=?, metadata=? WHERE id=?`,
		u.CompanyID, u.Name, u.Email, u.Role, u.Department, string(md), u.ID)
	if err != nil {
		return books.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return books.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Transaction reads ---

const txColumns = `id, tx_date, amount_minor, from_kind, from_id, to_kind, to_id,
	description, reference, metadata, created_at`

func (s *Store) Transaction(ctx context.Context, id int64) (books.Transaction, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	return s.scanTx(row)
}

func (s *Store) Transactions(ctx context.Context, limit int) ([]books.Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM transactions
		ORDER BY tx_date DESC, created_at DESC, id DESC`
	if limit > 0 {
		return s.queryTxs(ctx, q+` LIMIT ?`, limit)
	}
	return s.queryTxs(ctx, q)
}

func (s *Store) TransactionsByEndpoint(ctx context.Context, ep books.Endpoint) ([]books.Transaction, error) {
	if ep.IsCash() {
		return s.queryTxs(ctx, `SELECT `+txColumns+` FROM transactions
			WHERE from_kind = 'cash' OR to_kind = 'cash'`)
	}
	return s.queryTxs(ctx, `SELECT `+txColumns+` FROM transactions
		WHERE (from_kind = ? AND from_id = ?) OR (to_kind = ? AND to_id = ?)`,
		string(ep.Kind), ep.ID, string(ep.Kind), ep.ID)
}

// SearchTransactions matches term against description, reference and the
// names of either party.
func (s *Store) SearchTransactions(ctx context.Context, term string) ([]books.Transaction, error) {
	pattern := "%" + term + "%"
	return s.queryTxs(ctx, `
		SELECT t.id, t.tx_date, t.amount_minor, t.from_kind, t.from_id, t.to_kind, t.to_id,
			t.description, t.reference, t.metadata, t.created_at
		FROM transactions t
		LEFT JOIN companies fc ON t.from_kind = 'company' AND t.from_id = fc.id
		LEFT JOIN users fu ON t.from_kind = 'user' AND t.from_id = fu.id
		LEFT JOIN companies tc ON t.to_kind = 'company' AND t.to_id = tc.id
		LEFT JOIN users tu ON t.to_kind = 'user' AND t.to_id = tu.id
		WHERE t.description LIKE ?
			OR t.reference LIKE ?
			OR fc.name LIKE ? OR fu.name LIKE ?
			OR tc.name LIKE ? OR tu.name LIKE ?
		ORDER BY t.tx_date DESC, t.created_at DESC, t.id DESC`,
		pattern, pattern, pattern, pattern, pattern, pattern)
}

func (s *Store) HasTransactions(ctx context.Context, ep books.Endpoint) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx, `
		SELECT 1 FROM transactions
		WHERE (from_kind = ? AND from_id = ?) OR (to_kind = ? AND to_id = ?)
		LIMIT 1`,
		string(ep.Kind), ep.ID, string(ep.Kind), ep.ID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- Transaction writes ---

// SaveTransaction inserts the record and applies the balance deltas in one
// database transaction: a crash between the two steps can never leave the
// stored balances out of step with the log.
func (s *Store) SaveTransaction(ctx context.Context, t books.Transaction, deltas []transfer.BalanceDelta) (books.Transaction, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return books.Transaction{}, err
	}
	defer tx.Rollback()

	md, _ := t.Metadata.MarshalStableJSON()
	t.CreatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (tx_date, amount_minor, from_kind, from_id, to_kind, to_id,
			description, reference, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Date.Format(dateLayout), books.Minor(t.Amount),
		string(t.From.Kind), t.From.ID, string(t.To.Kind), t.To.ID,
		t.Description, t.Reference, string(md), t.CreatedAt)
	if err != nil {
		return books.Transaction{}, err
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return books.Transaction{}, err
	}
	if err := applyDeltas(ctx, tx, deltas); err != nil {
		return books.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return books.Transaction{}, err
	}
	return t, nil
}

// RemoveTransaction deletes the record and applies the reversal deltas in
// one database transaction.
func (s *Store) RemoveTransaction(ctx context.Context, id int64, deltas []transfer.BalanceDelta) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	if err := applyDeltas(ctx, tx, deltas); err != nil {
		return err
	}
	return tx.Commit()
}

func applyDeltas(ctx context.Context, tx *sql.Tx, deltas []transfer.BalanceDelta) error {
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
		res, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET balance_minor = balance_minor + ? WHERE id = ?`,
			d.Minor, d.Endpoint.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.ErrNotFound
		}
	}
	return nil
}

// --- Idempotency ---

func (s *Store) TransactionByIdempotencyKey(ctx context.Context, key string) (books.Transaction, bool, error) {
	var id int64
	err := s.conn.QueryRowContext(ctx, `SELECT tx_id FROM idempotency WHERE key = ?`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
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
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO idempotency (key, tx_id) VALUES (?, ?)
		ON CONFLICT (key) DO NOTHING`, key, txID)
	return err
}

// --- row mapping ---

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanCompany(row scanner) (books.Company, error) {
	var c books.Company
	var minor int64
	var mdRaw string
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &minor, &mdRaw, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return books.Company{}, errs.ErrNotFound
	}
	if err != nil {
		return books.Company{}, err
	}
	c.Balance = books.MustAmount(s.currency, minor)
	c.Metadata = decodeMeta(mdRaw)
	return c, nil
}

func (s *Store) scanUser(row scanner) (books.User, error) {
	var u books.User
	var minor int64
	var mdRaw string
	err := row.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &u.Department, &minor, &mdRaw, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return books.User{}, errs.ErrNotFound
	}
	if err != nil {
		return books.User{}, err
	}
	u.Balance = books.MustAmount(s.currency, minor)
	u.Metadata = decodeMeta(mdRaw)
	return u, nil
}

func (s *Store) scanTx(row scanner) (books.Transaction, error) {
	var t books.Transaction
	var dateStr, fromKind, toKind, mdRaw string
	var minor int64
	err := row.Scan(&t.ID, &dateStr, &minor, &fromKind, &t.From.ID, &toKind, &t.To.ID,
		&t.Description, &t.Reference, &mdRaw, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return books.Transaction{}, errs.ErrNotFound
	}
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
	t.Metadata = decodeMeta(mdRaw)
	return t, nil
}

func (s *Store) queryUsers(ctx context.Context, q string, args ...any) ([]books.User, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]books.User, 0)
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) queryTxs(ctx context.Context, q string, args ...any) ([]books.Transaction, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
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

func decodeMeta(raw string) meta.Metadata {
	var m meta.Metadata
	if raw == "" {
		return meta.New(nil)
	}
	if err := m.UnmarshalJSON([]byte(raw)); err != nil {
		return meta.New(nil)
	}
	return m
}
