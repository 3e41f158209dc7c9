package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type ActivityKind string

const (
	ActivityPosting    ActivityKind = "posting"
	ActivityTransition ActivityKind = "transition"
)

// Activity is one line of the audit trail: either a ledger posting or
// an event status transition.
type Activity struct {
	Kind      ActivityKind     `json:"kind"`
	At        time.Time        `json:"at"`
	Actor     string           `json:"actor"`
	FundID    *int64           `json:"fund_id,omitempty"`
	EventID   *string          `json:"event_id,omitempty"`
	RefID     string           `json:"ref_id"`
	Summary   string           `json:"summary"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	NewStatus EventStatus      `json:"new_status,omitempty"`
}
