package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyReport is a church's monthly rollup of its worship records.
// At most one exists per church, month and year.
type MonthlyReport struct {
	ID           string          `json:"id"`
	ChurchID     int64           `json:"church_id"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	Totals       BucketTotals    `json:"totals"`
	Total        decimal.Decimal `json:"total"`
	WorshipCount int             `json:"worship_count"`
	Status       string          `json:"status"`
	SubmittedBy  string          `json:"submitted_by"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	Transactions []Transaction   `json:"transactions,omitempty"`
}

const ReportSubmitted = "submitted"

// ReportRequest submits a month. Postings maps each ledger bucket to
// the fund its total is credited to; unmapped buckets are recorded on
// the report but not posted.
type ReportRequest struct {
	ChurchID int64            `json:"church_id"`
	Month    int              `json:"month"`
	Year     int              `json:"year"`
	Postings map[Bucket]int64 `json:"postings,omitempty"`
}

func (r *ReportRequest) Validate() error {
	if r.ChurchID <= 0 {
		return Validation("church_id", "church id is required")
	}
	if r.Month < 1 || r.Month > 12 {
		return Validation("month", "month must be between 1 and 12")
	}
	if r.Year < 2000 || r.Year > 2100 {
		return Validation("year", "year %d is out of range", r.Year)
	}
	for b, fundID := range r.Postings {
		if !ValidBucket(b) {
			return Validation("postings", "unknown bucket %q", b)
		}
		if fundID <= 0 {
			return Validation("postings."+string(b), "fund id is required")
		}
	}
	return nil
}

// Period returns the first day of the report month and of the next one,
// both in DateLayout.
func (r *ReportRequest) Period() (string, string) {
	start := time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC)
	return start.Format(DateLayout), start.AddDate(0, 1, 0).Format(DateLayout)
}

// ReportConcept is the concept written on a report's ledger postings.
func ReportConcept(b Bucket, month, year int) string {
	return "Monthly report " + time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01") + " " + string(b)
}
