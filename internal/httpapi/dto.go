package httpapi

import (
	"time"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/dictionary"
)

const dateLayout = "2006-01-02"

// endpointRef is the wire form of a transaction endpoint. ID is omitted for
// the cash pool.
type endpointRef struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id,omitempty"`
}

func (e endpointRef) toDomain() books.Endpoint {
	return books.Endpoint{Kind: books.Kind(e.Kind), ID: e.ID}
}

func toEndpointRef(ep books.Endpoint) endpointRef {
	if ep.IsCash() {
		return endpointRef{Kind: string(books.KindCash)}
	}
	return endpointRef{Kind: string(ep.Kind), ID: ep.ID}
}

// Companies

type postCompanyRequest struct {
	Name     string            `json:"name"`
	Address  string            `json:"address"`
	Phone    string            `json:"phone"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type companyResponse struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Address      string            `json:"address"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email"`
	Currency     string            `json:"currency"`
	BalanceMinor int64             `json:"balance_minor"`
	Balance      string            `json:"balance"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toCompanyResponse(c books.Company) companyResponse {
	minor := books.Minor(c.Balance)
	return companyResponse{
		ID:           c.ID,
		Name:         c.Name,
		Address:      c.Address,
		Phone:        c.Phone,
		Email:        c.Email,
		Currency:     c.Balance.Curr().Code(),
		BalanceMinor: minor,
		Balance:      books.FormatMinor(minor),
		Metadata:     c.Metadata,
		CreatedAt:    c.CreatedAt,
	}
}

// Users

type postUserRequest struct {
	CompanyID  int64             `json:"company_id,omitempty"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Role       string            `json:"role"`
	Department string            `json:"department"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type userResponse struct {
	ID           int64             `json:"id"`
	CompanyID    int64             `json:"company_id,omitempty"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Role         string            `json:"role"`
	Department   string            `json:"department"`
	Currency     string            `json:"currency"`
	BalanceMinor int64             `json:"balance_minor"`
	Balance      string            `json:"balance"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toUserResponse(u books.User) userResponse {
	minor := books.Minor(u.Balance)
	return userResponse{
		ID:           u.ID,
		CompanyID:    u.CompanyID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Department:   u.Department,
		Currency:     u.Balance.Curr().Code(),
		BalanceMinor: minor,
		Balance:      books.FormatMinor(minor),
		Metadata:     u.Metadata,
		CreatedAt:    u.CreatedAt,
	}
}

// Transactions

type postTransactionRequest struct {
	// Date is YYYY-MM-DD; empty means today.
	Date        string            `json:"date,omitempty"`
	AmountMinor int64             `json:"amount_minor"`
	From        endpointRef       `json:"from"`
	To          endpointRef       `json:"to"`
	Description string            `json:"description"`
	Reference   string            `json:"reference,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type transactionResponse struct {
	ID          int64             `json:"id"`
	Date        string            `json:"date"`
	AmountMinor int64             `json:"amount_minor"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	From        endpointRef       `json:"from"`
	To          endpointRef       `json:"to"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Reference   string            `json:"reference,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toTransactionResponse(t books.Transaction) transactionResponse {
	minor := books.Minor(t.Amount)
	return transactionResponse{
		ID:          t.ID,
		Date:        t.Date.Format(dateLayout),
		AmountMinor: minor,
		Amount:      books.FormatMinor(minor),
		Currency:    t.Amount.Curr().Code(),
		From:        toEndpointRef(t.From),
		To:          toEndpointRef(t.To),
		Type:        dictionary.TransferType(t.From.Kind, t.To.Kind),
		Description: t.Description,
		Reference:   t.Reference,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
	}
}

// Cash flows (deposits and withdrawals)

type cashflowRequest struct {
	Endpoint    endpointRef `json:"endpoint"`
	AmountMinor int64       `json:"amount_minor"`
	Description string      `json:"description,omitempty"`
}

// Balance and ledger

type balanceResponse struct {
	Kind         string `json:"kind"`
	ID           int64  `json:"id"`
	Currency     string `json:"currency"`
	BalanceMinor int64  `json:"balance_minor"`
	Balance      string `json:"balance"`
}

type ledgerEntryResponse struct {
	TransactionID int64       `json:"transaction_id"`
	Date          string      `json:"date"`
	Side          string      `json:"side"`
	AmountMinor   int64       `json:"amount_minor"`
	Amount        string      `json:"amount"`
	Description   string      `json:"description"`
	Reference     string      `json:"reference,omitempty"`
	OtherParty    string      `json:"other_party"`
	Other         endpointRef `json:"other"`
	RunningMinor  int64       `json:"running_balance_minor"`
	Running       string      `json:"running_balance"`
	CreatedAt     time.Time   `json:"created_at"`
}

type ledgerResponse struct {
	Kind     string                `json:"kind"`
	ID       int64                 `json:"id"`
	Currency string                `json:"currency"`
	Entries  []ledgerEntryResponse `json:"entries"`
}

func toLedgerEntryResponse(e books.LedgerEntry) ledgerEntryResponse {
	minor := books.Minor(e.Amount)
	running := books.Minor(e.Running)
	return ledgerEntryResponse{
		TransactionID: e.TransactionID,
		Date:          e.Date.Format(dateLayout),
		Side:          string(e.Side),
		AmountMinor:   minor,
		Amount:        books.FormatMinor(minor),
		Description:   e.Description,
		Reference:     e.Reference,
		OtherParty:    e.OtherParty,
		Other:         toEndpointRef(e.Other),
		RunningMinor:  running,
		Running:       books.FormatMinor(running),
		CreatedAt:     e.CreatedAt,
	}
}

// Reports

type totalsResponse struct {
	Currency     string `json:"currency"`
	CompanyMinor int64  `json:"company_total_minor"`
	CompanyTotal string `json:"company_total"`
	UserMinor    int64  `json:"user_total_minor"`
	UserTotal    string `json:"user_total"`
	GrandMinor   int64  `json:"grand_total_minor"`
	GrandTotal   string `json:"grand_total"`
}

type summaryResponse struct {
	Count        int64  `json:"count"`
	TotalMinor   int64  `json:"total_minor"`
	Total        string `json:"total"`
	AverageMinor int64  `json:"average_minor"`
	Average      string `json:"average"`
}
