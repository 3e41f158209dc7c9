package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger row. Exactly one of AmountIn and
// AmountOut is non-zero, except for the zero posting of an approved
// event with no net effect.
type Transaction struct {
	ID             string          `json:"id"`
	FundID         int64           `json:"fund_id"`
	ChurchID       *int64          `json:"church_id,omitempty"`
	ReportID       *string         `json:"report_id,omitempty"`
	EventID        *string         `json:"event_id,omitempty"`
	TransferID     *string         `json:"transfer_id,omitempty"`
	Concept        string          `json:"concept"`
	AmountIn       decimal.Decimal `json:"amount_in"`
	AmountOut      decimal.Decimal `json:"amount_out"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	Date           string          `json:"date"`
	Provider       string          `json:"provider,omitempty"`
	DocumentNumber string          `json:"document_number,omitempty"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Net returns AmountIn - AmountOut.
func (t *Transaction) Net() decimal.Decimal {
	return t.AmountIn.Sub(t.AmountOut)
}

// PostRequest is the input of a single ledger posting.
type PostRequest struct {
	FundID         int64           `json:"fund_id"`
	AmountIn       decimal.Decimal `json:"amount_in"`
	AmountOut      decimal.Decimal `json:"amount_out"`
	Concept        string          `json:"concept"`
	Date           string          `json:"date,omitempty"`
	ChurchID       *int64          `json:"church_id,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	DocumentNumber string          `json:"document_number,omitempty"`

	// Set by the engine, never by API callers.
	ReportID   *string `json:"-"`
	EventID    *string `json:"-"`
	TransferID *string `json:"-"`
	AllowZero  bool    `json:"-"`
}

// DateLayout is the layout of every calendar date field.
const DateLayout = "2006-01-02"

// Validate checks the posting invariants that do not need the database.
func (p *PostRequest) Validate() error {
	if p.FundID <= 0 {
		return Validation("fund_id", "fund id is required")
	}
	p.Concept = strings.TrimSpace(p.Concept)
	if p.Concept == "" {
		return Validation("concept", "concept is required")
	}
	if err := CheckNonNegative("amount_in", p.AmountIn); err != nil {
		return err
	}
	if err := CheckNonNegative("amount_out", p.AmountOut); err != nil {
		return err
	}
	in, out := p.AmountIn.IsPositive(), p.AmountOut.IsPositive()
	switch {
	case in && out:
		return Validation("amount_out", "amount_in and amount_out cannot both be set")
	case !in && !out && !p.AllowZero:
		return Validation("amount_in", "one of amount_in or amount_out must be greater than zero")
	}
	if p.Date != "" {
		if _, err := time.Parse(DateLayout, p.Date); err != nil {
			return Validation("date", "date must be YYYY-MM-DD")
		}
	}
	return nil
}

// TransferRequest moves money directly between two funds.
type TransferRequest struct {
	SourceFundID      int64           `json:"source_fund_id"`
	DestinationFundID int64           `json:"destination_fund_id"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Date              string          `json:"date,omitempty"`
}

func (r *TransferRequest) Validate() error {
	if r.SourceFundID <= 0 {
		return Validation("source_fund_id", "source fund is required")
	}
	if r.DestinationFundID <= 0 {
		return Validation("destination_fund_id", "destination fund is required")
	}
	if r.SourceFundID == r.DestinationFundID {
		return Validation("destination_fund_id", "source and destination funds must differ")
	}
	if err := CheckPositive("amount", r.Amount); err != nil {
		return err
	}
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		return Validation("description", "description is required")
	}
	if r.Date != "" {
		if _, err := time.Parse(DateLayout, r.Date); err != nil {
			return Validation("date", "date must be YYYY-MM-DD")
		}
	}
	return nil
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	TransferID string       `json:"transfer_id"`
	Debit      *Transaction `json:"debit"`
	Credit     *Transaction `json:"credit"`
}

// Today returns the current date in DateLayout.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}
