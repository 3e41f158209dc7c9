package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simonvc/fundledger/internal/events"
	"github.com/simonvc/fundledger/internal/ledger"
)

type ReportFilter struct {
	ChurchID int64
	Year     int
}

const reportColumns = `id, church_id, month, year, total_tithe, total_offering, total_missions, total_other,
	total, worship_count, status, submitted_by, submitted_at`

// SubmitReport closes a church's month: it rolls up the month's worship
// records per ledger bucket, stores the report and credits each mapped
// bucket total to its fund. A second report for the same church and
// month fails with a conflict and posts nothing.
func (s *Store) SubmitReport(ctx context.Context, actor ledger.Actor, req ledger.ReportRequest) (*ledger.MonthlyReport, error) {
	churchID := req.ChurchID
	if err := ledger.Authorize(actor, ledger.ActionSubmitReport, ledger.Resource{ChurchID: &churchID}); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start, next := req.Period()
	nextDay, _ := time.Parse(ledger.DateLayout, next)
	postingDate := nextDay.AddDate(0, 0, -1).Format(ledger.DateLayout)

	ts := now()
	rep := &ledger.MonthlyReport{
		ID:          uuid.Must(uuid.NewV7()).String(),
		ChurchID:    req.ChurchID,
		Month:       req.Month,
		Year:        req.Year,
		Status:      ledger.ReportSubmitted,
		SubmittedBy: actor.ID,
		SubmittedAt: ts,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireChurch(ctx, tx, req.ChurchID); err != nil {
			return err
		}

		var tithe, offering, missions, other, anon int64
		err := tx.QueryRowContext(ctx, s.q(
			`SELECT COALESCE(SUM(total_tithe), 0), COALESCE(SUM(total_offering), 0), COALESCE(SUM(total_missions), 0),
				COALESCE(SUM(total_other), 0), COALESCE(SUM(anonymous_offering), 0), COUNT(*)
			FROM worship_records WHERE church_id = ? AND service_date >= ? AND service_date < ?`),
			req.ChurchID, start, next,
		).Scan(&tithe, &offering, &missions, &other, &anon, &rep.WorshipCount)
		if err != nil {
			return fmt.Errorf("sum worship records: %w", err)
		}
		// Anonymous offerings have no donor and are reported as offering.
		rep.Totals = ledger.BucketTotals{
			Tithe:    ledger.FromMinor(tithe),
			Offering: ledger.FromMinor(offering + anon),
			Missions: ledger.FromMinor(missions),
			Other:    ledger.FromMinor(other),
		}
		rep.Total = rep.Totals.Sum()
		if err := ledger.CheckAmount("total", rep.Total); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, s.q(
			`INSERT INTO monthly_reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			rep.ID, rep.ChurchID, rep.Month, rep.Year,
			ledger.ToMinor(rep.Totals.Tithe), ledger.ToMinor(rep.Totals.Offering),
			ledger.ToMinor(rep.Totals.Missions), ledger.ToMinor(rep.Totals.Other),
			ledger.ToMinor(rep.Total), rep.WorshipCount, rep.Status, rep.SubmittedBy, formatTime(ts),
		)
		if err != nil {
			return fmt.Errorf("insert report: %w", translate(err))
		}

		reportID := rep.ID
		for _, b := range ledger.AllBuckets {
			fundID, ok := req.Postings[b]
			amount := rep.Totals.Get(b)
			if !ok || !amount.IsPositive() {
				continue
			}
			txn, err := s.post(ctx, tx, actor, ledger.PostRequest{
				FundID:    fundID,
				AmountIn:  amount,
				AmountOut: decimal.Zero,
				Concept:   ledger.ReportConcept(b, rep.Month, rep.Year),
				Date:      postingDate,
				ChurchID:  &churchID,
				ReportID:  &reportID,
			})
			if err != nil {
				return err
			}
			rep.Transactions = append(rep.Transactions, *txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	evts := []events.Event{events.New(events.ReportSubmitted, "church-"+strconv.FormatInt(rep.ChurchID, 10), rep)}
	for i := range rep.Transactions {
		evts = append(evts, postedEvent(&rep.Transactions[i]))
	}
	s.publish(ctx, evts...)
	return rep, nil
}

func (s *Store) GetReport(ctx context.Context, actor ledger.Actor, id string) (*ledger.MonthlyReport, error) {
	row := s.reader.QueryRowContext(ctx, s.q(`SELECT `+reportColumns+` FROM monthly_reports WHERE id = ?`), id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("report", id)
	}
	if err != nil {
		return nil, err
	}
	if err := ledger.Authorize(actor, ledger.ActionViewChurch, ledger.Resource{ChurchID: &rep.ChurchID}); err != nil {
		return nil, err
	}
	rep.Transactions, err = s.ListTransactions(ctx, TxnFilter{ReportID: id})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *Store) ListReports(ctx context.Context, actor ledger.Actor, filter ReportFilter) ([]ledger.MonthlyReport, error) {
	if err := ledger.Authorize(actor, ledger.ActionViewChurch, ledger.Resource{ChurchID: &filter.ChurchID}); err != nil {
		return nil, err
	}
	query := `SELECT ` + reportColumns + ` FROM monthly_reports WHERE church_id = ?`
	args := []any{filter.ChurchID}
	if filter.Year > 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	query += ` ORDER BY year DESC, month DESC`

	rows, err := s.reader.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []ledger.MonthlyReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	return reports, rows.Err()
}

func scanReport(row scanner) (*ledger.MonthlyReport, error) {
	var r ledger.MonthlyReport
	var tithe, offering, missions, other, total int64
	var submittedAt string
	err := row.Scan(&r.ID, &r.ChurchID, &r.Month, &r.Year, &tithe, &offering, &missions, &other,
		&total, &r.WorshipCount, &r.Status, &r.SubmittedBy, &submittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	r.Totals = ledger.BucketTotals{
		Tithe:    ledger.FromMinor(tithe),
		Offering: ledger.FromMinor(offering),
		Missions: ledger.FromMinor(missions),
		Other:    ledger.FromMinor(other),
	}
	r.Total = ledger.FromMinor(total)
	r.SubmittedAt = parseTime(submittedAt)
	return &r, nil
}
