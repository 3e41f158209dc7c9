package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	StatusDraft           EventStatus = "draft"
	StatusPendingRevision EventStatus = "pending_revision"
	StatusSubmitted       EventStatus = "submitted"
	StatusApproved        EventStatus = "approved"
	StatusRejected        EventStatus = "rejected"
	StatusCancelled       EventStatus = "cancelled"
)

var AllEventStatuses = []EventStatus{
	StatusDraft,
	StatusPendingRevision,
	StatusSubmitted,
	StatusApproved,
	StatusRejected,
	StatusCancelled,
}

func ValidEventStatus(s EventStatus) bool {
	for _, v := range AllEventStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Editable reports whether the event and its lines may still change.
func (s EventStatus) Editable() bool {
	return s == StatusDraft || s == StatusPendingRevision
}

func (s EventStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Transition is one allowed edge of the event state machine together
// with the action that drives it.
type Transition struct {
	From   EventStatus
	To     EventStatus
	Action Action
}

var Transitions = []Transition{
	{From: StatusDraft, To: StatusSubmitted, Action: ActionSubmitEvent},
	{From: StatusPendingRevision, To: StatusSubmitted, Action: ActionSubmitEvent},
	{From: StatusDraft, To: StatusCancelled, Action: ActionCancelEvent},
	{From: StatusPendingRevision, To: StatusCancelled, Action: ActionCancelEvent},
	{From: StatusSubmitted, To: StatusApproved, Action: ActionApproveEvent},
	{From: StatusSubmitted, To: StatusRejected, Action: ActionRejectEvent},
	{From: StatusSubmitted, To: StatusPendingRevision, Action: ActionRejectEvent},
}

// CheckTransition returns a conflict error when the edge is not in
// Transitions.
func CheckTransition(from, to EventStatus) error {
	for _, t := range Transitions {
		if t.From == from && t.To == to {
			return nil
		}
	}
	return Conflict("event cannot move from %s to %s", from, to)
}

type FundEvent struct {
	ID              string      `json:"id"`
	FundID          int64       `json:"fund_id"`
	ChurchID        *int64      `json:"church_id,omitempty"`
	Name            string      `json:"name"`
	Description     string      `json:"description,omitempty"`
	EventDate       string      `json:"event_date"`
	Status          EventStatus `json:"status"`
	CreatedBy       string      `json:"created_by"`
	ApprovedBy      string      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	SubmittedAt     *time.Time  `json:"submitted_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Resource returns the ownership descriptor used by Authorize.
func (e *FundEvent) Resource() Resource {
	return Resource{ChurchID: e.ChurchID, OwnerID: e.CreatedBy}
}

type BudgetItem struct {
	ID              string          `json:"id"`
	EventID         string          `json:"event_id"`
	Category        string          `json:"category"`
	Description     string          `json:"description,omitempty"`
	ProjectedAmount decimal.Decimal `json:"projected_amount"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type LineType string

const (
	LineIncome  LineType = "income"
	LineExpense LineType = "expense"
)

type EventActual struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	LineType    LineType        `json:"line_type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	RecordedBy  string          `json:"recorded_by"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

type EventAuditEntry struct {
	ID             int64       `json:"id"`
	EventID        string      `json:"event_id"`
	PreviousStatus EventStatus `json:"previous_status"`
	NewStatus      EventStatus `json:"new_status"`
	ChangedBy      string      `json:"changed_by"`
	Comment        string      `json:"comment,omitempty"`
	ChangedAt      time.Time   `json:"changed_at"`
}

// EventTotals summarises budget and actual lines.
type EventTotals struct {
	Projected decimal.Decimal `json:"projected"`
	Income    decimal.Decimal `json:"income"`
	Expense   decimal.Decimal `json:"expense"`
	Net       decimal.Decimal `json:"net"`
	Variance  decimal.Decimal `json:"variance"`
}

// EventDetail is the read projection of an event with all its lines.
type EventDetail struct {
	Event       FundEvent         `json:"event"`
	BudgetItems []BudgetItem      `json:"budget_items"`
	Actuals     []EventActual     `json:"actuals"`
	Audit       []EventAuditEntry `json:"audit"`
	Totals      EventTotals       `json:"totals"`
	Transaction *Transaction      `json:"transaction,omitempty"`
}

// ComputeTotals derives the totals from the lines. Net is the amount the
// approval posts: positive is income to the fund, negative an outflow.
func ComputeTotals(items []BudgetItem, actuals []EventActual) EventTotals {
	t := EventTotals{
		Projected: decimal.Zero,
		Income:    decimal.Zero,
		Expense:   decimal.Zero,
	}
	for _, it := range items {
		t.Projected = t.Projected.Add(it.ProjectedAmount)
	}
	for _, a := range actuals {
		switch a.LineType {
		case LineIncome:
			t.Income = t.Income.Add(a.Amount)
		case LineExpense:
			t.Expense = t.Expense.Add(a.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	t.Variance = t.Projected.Sub(t.Expense)
	return t
}

// EventInput creates an event in draft.
type EventInput struct {
	FundID      int64             `json:"fund_id"`
	ChurchID    *int64            `json:"church_id,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	EventDate   string            `json:"event_date"`
	BudgetItems []BudgetItemInput `json:"budget_items,omitempty"`
}

func (in *EventInput) Validate() error {
	if in.FundID <= 0 {
		return Validation("fund_id", "fund id is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Validation("name", "event name is required")
	}
	if _, err := time.Parse(DateLayout, in.EventDate); err != nil {
		return Validation("event_date", "event date must be YYYY-MM-DD")
	}
	for i := range in.BudgetItems {
		if err := in.BudgetItems[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EventUpdate changes header fields of an editable event. Nil fields
// are left untouched.
type EventUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	EventDate   *string `json:"event_date,omitempty"`
}

// Apply validates the update and writes it onto e.
func (u *EventUpdate) Apply(e *FundEvent) error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return Validation("name", "event name is required")
		}
		e.Name = name
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.EventDate != nil {
		if _, err := time.Parse(DateLayout, *u.EventDate); err != nil {
			return Validation("event_date", "event date must be YYYY-MM-DD")
		}
		e.EventDate = *u.EventDate
	}
	return nil
}

type BudgetItemInput struct {
	Category        string          `json:"category"`
	Description     string          `json:"description,omitempty"`
	ProjectedAmount decimal.Decimal `json:"projected_amount"`
	Notes           string          `json:"notes,omitempty"`
}

func (in *BudgetItemInput) Validate() error {
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		return Validation("category", "budget category is required")
	}
	return CheckPositive("projected_amount", in.ProjectedAmount)
}

type ActualInput struct {
	LineType    LineType        `json:"line_type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

func (in *ActualInput) Validate() error {
	if in.LineType != LineIncome && in.LineType != LineExpense {
		return Validation("line_type", "line type must be income or expense")
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return Validation("description", "description is required")
	}
	return CheckPositive("amount", in.Amount)
}

// RejectInput carries the approver's decision on a submitted event.
// Resubmit sends the event back to pending_revision instead of the
// terminal rejected state.
type RejectInput struct {
	Reason   string `json:"reason"`
	Resubmit bool   `json:"resubmit"`
}

func (in *RejectInput) Validate() error {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return Validation("reason", "a rejection reason is required")
	}
	return nil
}

// ApprovalPosting converts the net actual amount into a posting request
// against the event's fund.
func ApprovalPosting(e *FundEvent, net decimal.Decimal) PostRequest {
	req := PostRequest{
		FundID:    e.FundID,
		AmountIn:  decimal.Zero,
		AmountOut: decimal.Zero,
		Concept:   "Event: " + e.Name,
		Date:      e.EventDate,
		ChurchID:  e.ChurchID,
		AllowZero: true,
	}
	id := e.ID
	req.EventID = &id
	if net.IsNegative() {
		req.AmountOut = net.Neg()
	} else {
		req.AmountIn = net
	}
	return req
}
