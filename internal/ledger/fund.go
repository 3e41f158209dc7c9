package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type FundType string

const (
	FundTypeNational   FundType = "national"
	FundTypeDesignated FundType = "designated"
	FundTypeGeneral    FundType = "general"
	FundTypeSpecial    FundType = "special"
)

var AllFundTypes = []FundType{
	FundTypeNational,
	FundTypeDesignated,
	FundTypeGeneral,
	FundTypeSpecial,
}

// ValidFundType checks if a fund type string is valid.
func ValidFundType(t FundType) bool {
	for _, ft := range AllFundTypes {
		if ft == t {
			return true
		}
	}
	return false
}

type Fund struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Type           FundType        `json:"type"`
	Description    string          `json:"description,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Validate checks the fields an administrator supplies on creation.
func (f *Fund) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return Validation("name", "fund name is required")
	}
	if f.Type == "" {
		f.Type = FundTypeGeneral
	}
	if !ValidFundType(f.Type) {
		return Validation("type", "unknown fund type %q", f.Type)
	}
	return nil
}

// Church is master data imported by administrators.
type Church struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city,omitempty"`
	Pastor    string    `json:"pastor,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Church) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Validation("name", "church name is required")
	}
	return nil
}

// FundBalance is the balance projection returned by the query surface.
type FundBalance struct {
	FundID   int64           `json:"fund_id"`
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
	IsActive bool            `json:"is_active"`
}

// Reconciliation compares a fund's stored balance with the sum of its
// transaction rows.
type Reconciliation struct {
	FundID        int64           `json:"fund_id"`
	StoredBalance decimal.Decimal `json:"stored_balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Transactions  int             `json:"transactions"`
	Balanced      bool            `json:"balanced"`
}
