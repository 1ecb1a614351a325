package dictionary

import "github.com/tinoosan/bookkeeper/internal/books"

// KindDef describes an endpoint kind for UI pickers.
type KindDef struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	// Virtual marks kinds with no stored account behind them.
	Virtual bool `json:"virtual"`
}

var kinds = []KindDef{
	{Code: string(books.KindCompany), Label: "Company"},
	{Code: string(books.KindUser), Label: "User"},
	{Code: string(books.KindCash), Label: "Cash", Virtual: true},
}

// Kinds returns the known endpoint kinds.
func Kinds() []KindDef {
	out := make([]KindDef, len(kinds))
	copy(out, kinds)
	return out
}

// KindLabel returns the display label for a kind, or "Unknown".
func KindLabel(k books.Kind) string {
	for _, d := range kinds {
		if d.Code == string(k) {
			return d.Label
		}
	}
	return "Unknown"
}

// Cash-pool labels used on statements in place of a counterpart name.
const (
	CashDepositLabel    = "Cash Deposit"
	CashWithdrawalLabel = "Cash Withdrawal"
)

// TransferType renders a human-readable label for a from/to kind pair,
// e.g. "Company to User" or "Cash Deposit".
func TransferType(from, to books.Kind) string {
	switch {
	case from == books.KindCash:
		return CashDepositLabel
	case to == books.KindCash:
		return CashWithdrawalLabel
	}
	return KindLabel(from) + " to " + KindLabel(to)
}
