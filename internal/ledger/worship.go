package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ServiceType string

const (
	ServiceSunday  ServiceType = "sunday"
	ServiceMidweek ServiceType = "midweek"
	ServiceYouth   ServiceType = "youth"
	ServiceSpecial ServiceType = "special"
	ServiceOther   ServiceType = "other"
)

var AllServiceTypes = []ServiceType{ServiceSunday, ServiceMidweek, ServiceYouth, ServiceSpecial, ServiceOther}

func ValidServiceType(t ServiceType) bool {
	for _, v := range AllServiceTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Attendance struct {
	Members  int `json:"members"`
	Visitors int `json:"visitors"`
	Children int `json:"children"`
	Youth    int `json:"youth"`
}

func (a Attendance) Total() int {
	return a.Members + a.Visitors + a.Children + a.Youth
}

// BucketTotals holds one amount per ledger bucket.
type BucketTotals struct {
	Tithe    decimal.Decimal `json:"tithe"`
	Offering decimal.Decimal `json:"offering"`
	Missions decimal.Decimal `json:"missions"`
	Other    decimal.Decimal `json:"other"`
}

func (t *BucketTotals) Add(b Bucket, amount decimal.Decimal) {
	switch b {
	case BucketTithe:
		t.Tithe = t.Tithe.Add(amount)
	case BucketOffering:
		t.Offering = t.Offering.Add(amount)
	case BucketMissions:
		t.Missions = t.Missions.Add(amount)
	case BucketOther:
		t.Other = t.Other.Add(amount)
	}
}

func (t BucketTotals) Get(b Bucket) decimal.Decimal {
	switch b {
	case BucketTithe:
		return t.Tithe
	case BucketOffering:
		return t.Offering
	case BucketMissions:
		return t.Missions
	case BucketOther:
		return t.Other
	}
	return decimal.Zero
}

func (t BucketTotals) Sum() decimal.Decimal {
	return t.Tithe.Add(t.Offering).Add(t.Missions).Add(t.Other)
}

// ContributionLine is one entry on the service sheet. The donor is
// named either by DonorID or by DonorName plus optional NationalID; a
// line naming no donor is an anonymous offering. Amounts is the
// per-category breakdown; Total is used only when the breakdown is empty.
type ContributionLine struct {
	DonorID    *int64                       `json:"donor_id,omitempty"`
	DonorName  string                       `json:"donor_name,omitempty"`
	NationalID string                       `json:"national_id,omitempty"`
	Amounts    map[Category]decimal.Decimal `json:"amounts,omitempty"`
	Total      decimal.Decimal              `json:"total"`
}

type WorshipInput struct {
	ChurchID          int64              `json:"church_id"`
	ServiceDate       string             `json:"service_date"`
	ServiceType       ServiceType        `json:"service_type"`
	Preacher          string             `json:"preacher,omitempty"`
	AnonymousOffering decimal.Decimal    `json:"anonymous_offering"`
	Attendance        Attendance         `json:"attendance"`
	Lines             []ContributionLine `json:"lines"`
}

// AllocatedRow is one exploded contribution: a single category amount of
// a single line.
type AllocatedRow struct {
	Line     int
	Category Category
	Bucket   Bucket
	Amount   decimal.Decimal
}

type Allocation struct {
	Rows       []AllocatedRow
	Totals     BucketTotals
	Anonymous  decimal.Decimal
	GrandTotal decimal.Decimal
}

// AllocateContributions validates a service sheet, explodes every line
// into per-category rows and sums them into bucket totals. Rows come out
// in line order, and within a line in BucketGroups order, so the result
// is deterministic.
func AllocateContributions(in *WorshipInput) (*Allocation, error) {
	if in.ChurchID <= 0 {
		return nil, Validation("church_id", "church id is required")
	}
	if _, err := time.Parse(DateLayout, in.ServiceDate); err != nil {
		return nil, Validation("service_date", "service date must be YYYY-MM-DD")
	}
	if in.ServiceType == "" {
		in.ServiceType = ServiceSunday
	}
	if !ValidServiceType(in.ServiceType) {
		return nil, Validation("service_type", "unknown service type %q", in.ServiceType)
	}
	if err := CheckNonNegative("anonymous_offering", in.AnonymousOffering); err != nil {
		return nil, err
	}
	a := in.Attendance
	if a.Members < 0 || a.Visitors < 0 || a.Children < 0 || a.Youth < 0 {
		return nil, Validation("attendance", "attendance counts must not be negative")
	}

	alloc := &Allocation{Anonymous: in.AnonymousOffering}
	for i := range in.Lines {
		line := &in.Lines[i]
		rows, err := explodeLine(i, line)
		if err != nil {
			return nil, err
		}
		if line.anonymous() {
			for _, r := range rows {
				alloc.Anonymous = alloc.Anonymous.Add(r.Amount)
			}
			continue
		}
		for _, r := range rows {
			alloc.Totals.Add(r.Bucket, r.Amount)
		}
		alloc.Rows = append(alloc.Rows, rows...)
	}

	if len(alloc.Rows) == 0 && !alloc.Anonymous.IsPositive() {
		return nil, Validation("lines", "no donor contributions and no anonymous offering recorded")
	}
	alloc.GrandTotal = alloc.Totals.Sum().Add(alloc.Anonymous)
	return alloc, nil
}

func explodeLine(i int, line *ContributionLine) ([]AllocatedRow, error) {
	field := fmt.Sprintf("lines[%d]", i)

	for cat, amt := range line.Amounts {
		if _, ok := BucketFor(cat); !ok {
			return nil, Validation(field+".amounts", "unknown category %q", cat)
		}
		if err := CheckNonNegative(field+".amounts."+string(cat), amt); err != nil {
			return nil, err
		}
	}
	if err := CheckNonNegative(field+".total", line.Total); err != nil {
		return nil, err
	}

	var rows []AllocatedRow
	sum := decimal.Zero
	for _, g := range BucketGroups {
		amt, ok := line.Amounts[g.Category]
		if !ok || amt.IsZero() {
			continue
		}
		sum = sum.Add(amt)
		rows = append(rows, AllocatedRow{Line: i, Category: g.Category, Bucket: g.Bucket, Amount: amt})
	}

	switch {
	case len(rows) == 0 && line.Total.IsPositive():
		rows = append(rows, AllocatedRow{Line: i, Category: CategoryOther, Bucket: BucketOther, Amount: line.Total})
	case len(rows) > 0 && !line.Total.IsZero() && !line.Total.Equal(sum):
		return nil, Validation(field+".total", "total %s does not match breakdown %s",
			FormatAmount(line.Total), FormatAmount(sum))
	}

	line.DonorName = strings.TrimSpace(line.DonorName)
	line.NationalID = strings.TrimSpace(line.NationalID)
	if line.DonorID == nil && line.DonorName == "" && line.NationalID != "" {
		return nil, Validation(field+".donor_name", "donor name is required with a national id")
	}
	return rows, nil
}

func (l *ContributionLine) anonymous() bool {
	return l.DonorID == nil && l.DonorName == ""
}

type WorshipRecord struct {
	ID                string                `json:"id"`
	ChurchID          int64                 `json:"church_id"`
	ServiceDate       string                `json:"service_date"`
	ServiceType       ServiceType           `json:"service_type"`
	Preacher          string                `json:"preacher,omitempty"`
	Totals            BucketTotals          `json:"totals"`
	AnonymousOffering decimal.Decimal       `json:"anonymous_offering"`
	GrandTotal        decimal.Decimal       `json:"grand_total"`
	Attendance        Attendance            `json:"attendance"`
	TotalAttendance   int                   `json:"total_attendance"`
	CreatedBy         string                `json:"created_by"`
	CreatedAt         time.Time             `json:"created_at"`
	Contributions     []WorshipContribution `json:"contributions,omitempty"`
}

type WorshipContribution struct {
	ID              int64           `json:"id"`
	WorshipRecordID string          `json:"worship_record_id"`
	DonorID         int64           `json:"donor_id"`
	DonorName       string          `json:"donor_name"`
	Category        Category        `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Donor struct {
	ID         int64     `json:"id"`
	ChurchID   int64     `json:"church_id"`
	Name       string    `json:"name"`
	NationalID string    `json:"national_id,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (d *Donor) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.NationalID = strings.TrimSpace(d.NationalID)
	if d.ChurchID <= 0 {
		return Validation("church_id", "church id is required")
	}
	if d.Name == "" {
		return Validation("name", "donor name is required")
	}
	return nil
}
