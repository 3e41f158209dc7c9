package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/simonvc/fundledger/internal/ledger"
)

const donorColumns = `id, church_id, name, national_id, phone, is_active, created_at`

// nameKey is the case- and whitespace-insensitive form donors are
// matched on when no national id is given.
func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func (s *Store) CreateDonor(ctx context.Context, actor ledger.Actor, d *ledger.Donor) error {
	if err := ledger.Authorize(actor, ledger.ActionManageDonors, ledger.Resource{ChurchID: &d.ChurchID}); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireChurch(ctx, tx, d.ChurchID); err != nil {
			return err
		}
		return s.insertDonor(ctx, tx, d)
	})
}

// ResolveDonor finds a church's donor by national id, or by name when
// no national id is given, and creates one when nothing matches.
func (s *Store) ResolveDonor(ctx context.Context, actor ledger.Actor, churchID int64, name, nationalID string) (*ledger.Donor, error) {
	if err := ledger.Authorize(actor, ledger.ActionManageDonors, ledger.Resource{ChurchID: &churchID}); err != nil {
		return nil, err
	}
	var d *ledger.Donor
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireChurch(ctx, tx, churchID); err != nil {
			return err
		}
		var err error
		d, err = s.resolveDonor(ctx, tx, churchID, ledger.ContributionLine{DonorName: name, NationalID: nationalID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) GetDonor(ctx context.Context, actor ledger.Actor, id int64) (*ledger.Donor, error) {
	row := s.reader.QueryRowContext(ctx, s.q(`SELECT `+donorColumns+` FROM donors WHERE id = ?`), id)
	d, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("donor", id)
	}
	if err != nil {
		return nil, err
	}
	if err := ledger.Authorize(actor, ledger.ActionViewChurch, ledger.Resource{ChurchID: &d.ChurchID}); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDonors lists a church's active donors, optionally narrowed to
// names containing search.
func (s *Store) ListDonors(ctx context.Context, actor ledger.Actor, churchID int64, search string) ([]ledger.Donor, error) {
	if err := ledger.Authorize(actor, ledger.ActionViewChurch, ledger.Resource{ChurchID: &churchID}); err != nil {
		return nil, err
	}
	query := `SELECT ` + donorColumns + ` FROM donors WHERE church_id = ? AND is_active = 1`
	args := []any{churchID}
	if key := nameKey(search); key != "" {
		query += ` AND name_key LIKE ?`
		args = append(args, "%"+key+"%")
	}
	query += ` ORDER BY name_key, id`

	rows, err := s.reader.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()

	var donors []ledger.Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, *d)
	}
	return donors, rows.Err()
}

// DeactivateDonor hides a donor from lookups. Past contributions keep
// pointing at the row.
func (s *Store) DeactivateDonor(ctx context.Context, actor ledger.Actor, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var churchID int64
		err := tx.QueryRowContext(ctx, s.q(`SELECT church_id FROM donors WHERE id = ?`), id).Scan(&churchID)
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.NotFound("donor", id)
		}
		if err != nil {
			return fmt.Errorf("get donor: %w", err)
		}
		if err := ledger.Authorize(actor, ledger.ActionManageDonors, ledger.Resource{ChurchID: &churchID}); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE donors SET is_active = 0 WHERE id = ?`), id); err != nil {
			return fmt.Errorf("deactivate donor: %w", err)
		}
		return nil
	})
}

// resolveDonor maps a contribution line onto a donor row of churchID.
// An explicit donor id must belong to the church.
func (s *Store) resolveDonor(ctx context.Context, tx *sql.Tx, churchID int64, line ledger.ContributionLine) (*ledger.Donor, error) {
	if line.DonorID != nil {
		row := tx.QueryRowContext(ctx, s.q(`SELECT `+donorColumns+` FROM donors WHERE id = ?`), *line.DonorID)
		d, err := scanDonor(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.Validation("donor_id", "donor %d does not exist", *line.DonorID)
		}
		if err != nil {
			return nil, err
		}
		if d.ChurchID != churchID {
			return nil, ledger.Validation("donor_id", "donor %d does not belong to church %d", d.ID, churchID)
		}
		return d, nil
	}

	name := strings.TrimSpace(line.DonorName)
	nationalID := strings.TrimSpace(line.NationalID)
	if name == "" {
		return nil, ledger.Validation("donor_name", "donor name is required")
	}

	var row *sql.Row
	if nationalID != "" {
		row = tx.QueryRowContext(ctx, s.q(
			`SELECT `+donorColumns+` FROM donors WHERE church_id = ? AND national_id = ?`), churchID, nationalID)
	} else {
		row = tx.QueryRowContext(ctx, s.q(
			`SELECT `+donorColumns+` FROM donors WHERE church_id = ? AND name_key = ? ORDER BY id LIMIT 1`),
			churchID, nameKey(name))
	}
	d, err := scanDonor(row)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	d = &ledger.Donor{ChurchID: churchID, Name: name, NationalID: nationalID}
	if err := s.insertDonor(ctx, tx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) insertDonor(ctx context.Context, tx *sql.Tx, d *ledger.Donor) error {
	ts := now()
	err := tx.QueryRowContext(ctx, s.q(
		`INSERT INTO donors (church_id, name, name_key, national_id, phone, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?) RETURNING id`),
		d.ChurchID, d.Name, nameKey(d.Name), d.NationalID, d.Phone, formatTime(ts),
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert donor: %w", translate(err))
	}
	d.IsActive = true
	d.CreatedAt = ts
	return nil
}

func scanDonor(row scanner) (*ledger.Donor, error) {
	var d ledger.Donor
	var isActive int
	var createdAt string
	err := row.Scan(&d.ID, &d.ChurchID, &d.Name, &d.NationalID, &d.Phone, &isActive, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan donor: %w", err)
	}
	d.IsActive = isActive == 1
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}
