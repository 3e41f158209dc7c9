package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/simonvc/fundledger/internal/events"
	"github.com/simonvc/fundledger/internal/ledger"
)

type WorshipFilter struct {
	ChurchID int64
	From     string
	To       string
	Limit    int
	Offset   int
}

const worshipColumns = `id, church_id, service_date, service_type, preacher, total_tithe, total_offering,
	total_missions, total_other, anonymous_offering, grand_total, members, visitors, children, youth,
	total_attendance, created_by, created_at`

// CreateWorshipRecord stores a service sheet: the record with its
// bucket totals and one contribution row per donor category amount.
// Nothing is posted to the ledger here; monthly reports do that.
func (s *Store) CreateWorshipRecord(ctx context.Context, actor ledger.Actor, in ledger.WorshipInput) (*ledger.WorshipRecord, error) {
	churchID := in.ChurchID
	if err := ledger.Authorize(actor, ledger.ActionRecordWorship, ledger.Resource{ChurchID: &churchID}); err != nil {
		return nil, err
	}
	alloc, err := ledger.AllocateContributions(&in)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckAmount("grand_total", alloc.GrandTotal); err != nil {
		return nil, err
	}

	ts := now()
	rec := &ledger.WorshipRecord{
		ID:                uuid.Must(uuid.NewV7()).String(),
		ChurchID:          in.ChurchID,
		ServiceDate:       in.ServiceDate,
		ServiceType:       in.ServiceType,
		Preacher:          in.Preacher,
		Totals:            alloc.Totals,
		AnonymousOffering: alloc.Anonymous,
		GrandTotal:        alloc.GrandTotal,
		Attendance:        in.Attendance,
		TotalAttendance:   in.Attendance.Total(),
		CreatedBy:         actor.ID,
		CreatedAt:         ts,
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireChurch(ctx, tx, in.ChurchID); err != nil {
			return err
		}

		// One donor per line, resolved once even when the line explodes
		// into several rows.
		donors := make(map[int]*ledger.Donor)
		for _, row := range alloc.Rows {
			if _, ok := donors[row.Line]; ok {
				continue
			}
			d, err := s.resolveDonor(ctx, tx, in.ChurchID, in.Lines[row.Line])
			if err != nil {
				var le *ledger.Error
				if errors.As(err, &le) && le.Kind == ledger.KindValidation {
					le.Field = fmt.Sprintf("lines[%d].%s", row.Line, le.Field)
				}
				return err
			}
			donors[row.Line] = d
		}

		_, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO worship_records (`+worshipColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			rec.ID, rec.ChurchID, rec.ServiceDate, string(rec.ServiceType), rec.Preacher,
			ledger.ToMinor(rec.Totals.Tithe), ledger.ToMinor(rec.Totals.Offering),
			ledger.ToMinor(rec.Totals.Missions), ledger.ToMinor(rec.Totals.Other),
			ledger.ToMinor(rec.AnonymousOffering), ledger.ToMinor(rec.GrandTotal),
			rec.Attendance.Members, rec.Attendance.Visitors, rec.Attendance.Children, rec.Attendance.Youth,
			rec.TotalAttendance, rec.CreatedBy, formatTime(ts),
		)
		if err != nil {
			return fmt.Errorf("insert worship record: %w", err)
		}

		for _, row := range alloc.Rows {
			d := donors[row.Line]
			c := ledger.WorshipContribution{
				WorshipRecordID: rec.ID,
				DonorID:         d.ID,
				DonorName:       d.Name,
				Category:        row.Category,
				Amount:          row.Amount,
				CreatedAt:       ts,
			}
			err := tx.QueryRowContext(ctx, s.q(
				`INSERT INTO worship_contributions (worship_record_id, donor_id, donor_name, category, amount, created_at)
				VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
				c.WorshipRecordID, c.DonorID, c.DonorName, string(c.Category), ledger.ToMinor(c.Amount), formatTime(ts),
			).Scan(&c.ID)
			if err != nil {
				return fmt.Errorf("insert contribution: %w", err)
			}
			rec.Contributions = append(rec.Contributions, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.WorshipRecorded, "church-"+strconv.FormatInt(rec.ChurchID, 10), rec))
	return rec, nil
}

func (s *Store) GetWorshipRecord(ctx context.Context, actor ledger.Actor, id string) (*ledger.WorshipRecord, error) {
	row := s.reader.QueryRowContext(ctx, s.q(`SELECT `+worshipColumns+` FROM worship_records WHERE id = ?`), id)
	rec, err := scanWorship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("worship record", id)
	}
	if err != nil {
		return nil, err
	}
	if err := ledger.Authorize(actor, ledger.ActionViewChurch, ledger.Resource{ChurchID: &rec.ChurchID}); err != nil {
		return nil, err
	}

	rows, err := s.reader.QueryContext(ctx, s.q(
		`SELECT id, worship_record_id, donor_id, donor_name, category, amount, created_at
		FROM worship_contributions WHERE worship_record_id = ? ORDER BY id`), id)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ledger.WorshipContribution
		var amount int64
		var createdAt string
		if err := rows.Scan(&c.ID, &c.WorshipRecordID, &c.DonorID, &c.DonorName, &c.Category, &amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		c.Amount = ledger.FromMinor(amount)
		c.CreatedAt = parseTime(createdAt)
		rec.Contributions = append(rec.Contributions, c)
	}
	return rec, rows.Err()
}

// ListWorshipRecords lists a church's services by date, newest first.
func (s *Store) ListWorshipRecords(ctx context.Context, actor ledger.Actor, filter WorshipFilter) ([]ledger.WorshipRecord, error) {
	if err := ledger.Authorize(actor, ledger.ActionViewChurch, ledger.Resource{ChurchID: &filter.ChurchID}); err != nil {
		return nil, err
	}
	query := `SELECT ` + worshipColumns + ` FROM worship_records WHERE church_id = ?`
	args := []any{filter.ChurchID}
	if filter.From != "" {
		query += ` AND service_date >= ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND service_date <= ?`
		args = append(args, filter.To)
	}
	query += ` ORDER BY service_date DESC, created_at DESC`
	query += limitClause(filter.Limit, filter.Offset)

	rows, err := s.reader.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list worship records: %w", err)
	}
	defer rows.Close()

	var records []ledger.WorshipRecord
	for rows.Next() {
		rec, err := scanWorship(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanWorship(row scanner) (*ledger.WorshipRecord, error) {
	var r ledger.WorshipRecord
	var tithe, offering, missions, other, anon, grand int64
	var createdAt string
	err := row.Scan(&r.ID, &r.ChurchID, &r.ServiceDate, &r.ServiceType, &r.Preacher,
		&tithe, &offering, &missions, &other, &anon, &grand,
		&r.Attendance.Members, &r.Attendance.Visitors, &r.Attendance.Children, &r.Attendance.Youth,
		&r.TotalAttendance, &r.CreatedBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan worship record: %w", err)
	}
	r.Totals = ledger.BucketTotals{
		Tithe:    ledger.FromMinor(tithe),
		Offering: ledger.FromMinor(offering),
		Missions: ledger.FromMinor(missions),
		Other:    ledger.FromMinor(other),
	}
	r.AnonymousOffering = ledger.FromMinor(anon)
	r.GrandTotal = ledger.FromMinor(grand)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}
