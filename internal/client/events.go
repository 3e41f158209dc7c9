package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/simonvc/fundledger/internal/ledger"
)

// Approval is the result of approving an event: the event and the ledger
// posting it produced.
type Approval struct {
	Event       *ledger.FundEvent   `json:"event"`
	Transaction *ledger.Transaction `json:"transaction"`
}

type EventQuery struct {
	FundID   int64
	ChurchID int64
	Status   ledger.EventStatus
	Limit    int
	Offset   int
}

func eventPath(id string, suffix ...string) string {
	p := "/api/v1/events/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + url.PathEscape(s)
	}
	return p
}

func (c *Client) CreateEvent(ctx context.Context, in ledger.EventInput) (*ledger.FundEvent, error) {
	var result ledger.FundEvent
	if err := c.post(ctx, "/api/v1/events", in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListEvents(ctx context.Context, q EventQuery) ([]ledger.FundEvent, error) {
	v := url.Values{}
	setInt(v, "fund_id", q.FundID)
	setInt(v, "church_id", q.ChurchID)
	setStr(v, "status", string(q.Status))
	setInt(v, "limit", int64(q.Limit))
	setInt(v, "offset", int64(q.Offset))
	var result []ledger.FundEvent
	if err := c.get(ctx, "/api/v1/events", v, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (*ledger.EventDetail, error) {
	var result ledger.EventDetail
	if err := c.get(ctx, eventPath(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id string, u ledger.EventUpdate) (*ledger.FundEvent, error) {
	var result ledger.FundEvent
	if err := c.send(ctx, http.MethodPatch, eventPath(id), u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AddBudgetItem(ctx context.Context, eventID string, in ledger.BudgetItemInput) (*ledger.BudgetItem, error) {
	var result ledger.BudgetItem
	if err := c.post(ctx, eventPath(eventID, "budget-items"), in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateBudgetItem(ctx context.Context, eventID, itemID string, in ledger.BudgetItemInput) (*ledger.BudgetItem, error) {
	var result ledger.BudgetItem
	if err := c.send(ctx, http.MethodPut, eventPath(eventID, "budget-items", itemID), in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteBudgetItem(ctx context.Context, eventID, itemID string) error {
	return c.send(ctx, http.MethodDelete, eventPath(eventID, "budget-items", itemID), nil, nil)
}

func (c *Client) AddActual(ctx context.Context, eventID string, in ledger.ActualInput) (*ledger.EventActual, error) {
	var result ledger.EventActual
	if err := c.post(ctx, eventPath(eventID, "actuals"), in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateActual(ctx context.Context, eventID, actualID string, in ledger.ActualInput) (*ledger.EventActual, error) {
	var result ledger.EventActual
	if err := c.send(ctx, http.MethodPut, eventPath(eventID, "actuals", actualID), in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteActual(ctx context.Context, eventID, actualID string) error {
	return c.send(ctx, http.MethodDelete, eventPath(eventID, "actuals", actualID), nil, nil)
}

func (c *Client) SubmitEvent(ctx context.Context, id string) (*ledger.FundEvent, error) {
	var result ledger.FundEvent
	if err := c.post(ctx, eventPath(id, "submit"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ApproveEvent(ctx context.Context, id, comment string) (*Approval, error) {
	var result Approval
	if err := c.post(ctx, eventPath(id, "approve"), map[string]string{"comment": comment}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RejectEvent(ctx context.Context, id string, in ledger.RejectInput) (*ledger.FundEvent, error) {
	var result ledger.FundEvent
	if err := c.post(ctx, eventPath(id, "reject"), in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CancelEvent(ctx context.Context, id, comment string) (*ledger.FundEvent, error) {
	var result ledger.FundEvent
	if err := c.post(ctx, eventPath(id, "cancel"), map[string]string{"comment": comment}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Worship, donors and monthly reports

type WorshipQuery struct {
	ChurchID int64
	From     string
	To       string
	Limit    int
	Offset   int
}

func (c *Client) CreateWorshipRecord(ctx context.Context, in ledger.WorshipInput) (*ledger.WorshipRecord, error) {
	var result ledger.WorshipRecord
	if err := c.post(ctx, "/api/v1/worship", in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListWorshipRecords(ctx context.Context, q WorshipQuery) ([]ledger.WorshipRecord, error) {
	v := url.Values{}
	setInt(v, "church_id", q.ChurchID)
	setStr(v, "from", q.From)
	setStr(v, "to", q.To)
	setInt(v, "limit", int64(q.Limit))
	setInt(v, "offset", int64(q.Offset))
	var result []ledger.WorshipRecord
	if err := c.get(ctx, "/api/v1/worship", v, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetWorshipRecord(ctx context.Context, id string) (*ledger.WorshipRecord, error) {
	var result ledger.WorshipRecord
	if err := c.get(ctx, "/api/v1/worship/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CreateDonor(ctx context.Context, d *ledger.Donor) (*ledger.Donor, error) {
	var result ledger.Donor
	if err := c.post(ctx, "/api/v1/donors", d, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ResolveDonor(ctx context.Context, churchID int64, name, nationalID string) (*ledger.Donor, error) {
	body := map[string]any{"church_id": churchID, "name": name, "national_id": nationalID}
	var result ledger.Donor
	if err := c.post(ctx, "/api/v1/donors/resolve", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListDonors(ctx context.Context, churchID int64, search string) ([]ledger.Donor, error) {
	v := url.Values{}
	setInt(v, "church_id", churchID)
	setStr(v, "q", search)
	var result []ledger.Donor
	if err := c.get(ctx, "/api/v1/donors", v, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) DeactivateDonor(ctx context.Context, id int64) error {
	return c.post(ctx, "/api/v1/donors/"+strconv.FormatInt(id, 10)+"/deactivate", nil, nil)
}

func (c *Client) SubmitReport(ctx context.Context, req ledger.ReportRequest) (*ledger.MonthlyReport, error) {
	var result ledger.MonthlyReport
	if err := c.post(ctx, "/api/v1/reports", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListReports(ctx context.Context, churchID int64, year int) ([]ledger.MonthlyReport, error) {
	v := url.Values{}
	setInt(v, "church_id", churchID)
	setInt(v, "year", int64(year))
	var result []ledger.MonthlyReport
	if err := c.get(ctx, "/api/v1/reports", v, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetReport(ctx context.Context, id string) (*ledger.MonthlyReport, error) {
	var result ledger.MonthlyReport
	if err := c.get(ctx, "/api/v1/reports/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
