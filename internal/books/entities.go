package books

import (
	"time"

	"github.com/govalues/money"
	"github.com/tinoosan/bookkeeper/internal/meta"
)

// Side classifies a ledger entry relative to the account being viewed.
type Side string

const (
	// SideDebit marks money leaving the account; it decreases the balance.
	SideDebit Side = "debit"
	// SideCredit marks money arriving at the account; it increases the balance.
	SideCredit Side = "credit"
)

// Kind enumerates the endpoint variants a transaction can reference.
type Kind string

const (
	// KindCompany refers to a stored Company account.
	KindCompany Kind = "company"
	// KindUser refers to a stored User account.
	KindUser Kind = "user"
	// KindCash is the virtual pool for money entering or leaving the book.
	// It has no stored balance and no id.
	KindCash Kind = "cash"
)

// Endpoint identifies one side of a transaction: a real account or the
// virtual cash pool. ID is 0 and carries no meaning when Kind is KindCash.
type Endpoint struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

// Cash is the canonical cash endpoint.
func Cash() Endpoint { return Endpoint{Kind: KindCash} }

// CompanyRef returns an endpoint for a company id.
func CompanyRef(id int64) Endpoint { return Endpoint{Kind: KindCompany, ID: id} }

// UserRef returns an endpoint for a user id.
func UserRef(id int64) Endpoint { return Endpoint{Kind: KindUser, ID: id} }

// IsCash reports whether the endpoint is the virtual cash pool.
func (e Endpoint) IsCash() bool { return e.Kind == KindCash }

// Same reports endpoint identity. There is exactly one cash pool, so cash
// endpoints compare by kind alone and any stale id is ignored.
func (e Endpoint) Same(other Endpoint) bool {
	if e.Kind == KindCash || other.Kind == KindCash {
		return e.Kind == other.Kind
	}
	return e.Kind == other.Kind && e.ID == other.ID
}

// Valid reports whether the kind is one of the known variants and a real
// endpoint carries a positive id.
func (e Endpoint) Valid() bool {
	switch e.Kind {
	case KindCompany, KindUser:
		return e.ID > 0
	case KindCash:
		return true
	}
	return false
}

// Company is a stored account with a running balance.
// Name is unique among companies (compared slug-normalized).
type Company struct {
	ID      int64
	Name    string
	Address string
	Phone   string
	Email   string
	// Balance is maintained incrementally by the transfer service and must
	// equal the net of all live transactions touching this company.
	Balance   money.Amount
	Metadata  meta.Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time
}

// User is a stored account with a running balance. CompanyID is a weak
// reference for lookup only (0 means none); deleting the company does not
// cascade to the user.
type User struct {
	ID         int64
	CompanyID  int64
	Name       string
	Email      string
	Role       string
	Department string
	Balance    money.Amount
	Metadata   meta.Metadata `json:"metadata,omitempty"`
	CreatedAt  time.Time
}

// Transaction records one movement of money between two endpoints.
// Amount is always positive; direction is carried by From/To.
type Transaction struct {
	ID          int64
	Date        time.Time
	Amount      money.Amount
	From        Endpoint
	To          Endpoint
	Description string
	Reference   string
	Metadata    meta.Metadata `json:"metadata,omitempty"`
	// CreatedAt is the insertion timestamp, used only to break ordering ties
	// between transactions sharing the same Date.
	CreatedAt time.Time
}

// Touches reports whether ep is one of the transaction's endpoints.
func (t Transaction) Touches(ep Endpoint) bool {
	return t.From.Same(ep) || t.To.Same(ep)
}

// LedgerEntry is one row of an account's derived statement: the transaction
// seen from the account's side, with the balance immediately after it.
type LedgerEntry struct {
	TransactionID int64
	Date          time.Time
	Side          Side
	Amount        money.Amount
	Description   string
	Reference     string
	// OtherParty is the display label of the opposite endpoint
	// ("Cash Deposit"/"Cash Withdrawal" when it is the cash pool).
	OtherParty string
	Other      Endpoint
	// Running is the account balance after applying this entry in
	// chronological order.
	Running   money.Amount
	CreatedAt time.Time
}
