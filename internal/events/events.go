package events

import (
	"context"
	"time"
)

const (
	TransactionPosted = "ledger.transaction_posted"
	EventTransitioned = "fund_event.transitioned"
	WorshipRecorded   = "worship.recorded"
	ReportSubmitted   = "report.submitted"
)

// Event is a post-commit notification. Key groups related events on
// the same partition, e.g. all postings of one fund.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(typ, key string, payload any) Event {
	return Event{Type: typ, Key: key, OccurredAt: time.Now().UTC(), Payload: payload}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
