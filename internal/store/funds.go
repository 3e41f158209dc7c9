package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonvc/fundledger/internal/ledger"
)

type FundFilter struct {
	Type       ledger.FundType
	ActiveOnly bool
	Limit      int
	Offset     int
}

type scanner interface {
	Scan(dest ...any) error
}

const fundColumns = `id, name, type, description, current_balance, is_active, created_by, created_at, updated_at`

// CreateFund registers a new fund with a zero balance. Money only enters
// it through postings.
func (s *Store) CreateFund(ctx context.Context, actor ledger.Actor, f *ledger.Fund) error {
	if err := ledger.Authorize(actor, ledger.ActionManageFunds, ledger.Resource{}); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	ts := now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, s.q(
			`INSERT INTO funds (name, type, description, current_balance, is_active, created_by, created_at, updated_at)
			VALUES (?, ?, ?, 0, 1, ?, ?, ?) RETURNING id`),
			f.Name, string(f.Type), f.Description, actor.ID, formatTime(ts), formatTime(ts),
		).Scan(&f.ID)
	})
	if err != nil {
		return fmt.Errorf("insert fund: %w", err)
	}
	f.CurrentBalance = ledger.FromMinor(0)
	f.IsActive = true
	f.CreatedBy = actor.ID
	f.CreatedAt, f.UpdatedAt = ts, ts
	return nil
}

func (s *Store) GetFund(ctx context.Context, id int64) (*ledger.Fund, error) {
	row := s.reader.QueryRowContext(ctx, s.q(`SELECT `+fundColumns+` FROM funds WHERE id = ?`), id)
	f, err := scanFund(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("fund", id)
	}
	return f, err
}

func (s *Store) ListFunds(ctx context.Context, filter FundFilter) ([]ledger.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE 1=1`
	args := []any{}

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.ActiveOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`
	query += limitClause(filter.Limit, filter.Offset)

	rows, err := s.reader.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	var funds []ledger.Fund
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		funds = append(funds, *f)
	}
	return funds, rows.Err()
}

// FundBalance returns the current balance of a fund.
func (s *Store) FundBalance(ctx context.Context, id int64) (*ledger.FundBalance, error) {
	f, err := s.GetFund(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ledger.FundBalance{FundID: f.ID, Name: f.Name, Balance: f.CurrentBalance, IsActive: f.IsActive}, nil
}

// DeactivateFund soft-deletes a fund. Funds are never removed, and a
// fund still holding money cannot be deactivated.
func (s *Store) DeactivateFund(ctx context.Context, actor ledger.Actor, id int64) error {
	if err := ledger.Authorize(actor, ledger.ActionManageFunds, ledger.Resource{}); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		f, err := s.lockFund(ctx, tx, id)
		if err != nil {
			return err
		}
		if !f.IsActive {
			return nil
		}
		if !f.CurrentBalance.IsZero() {
			return ledger.Conflict("fund %d still holds %s", id, ledger.FormatAmount(f.CurrentBalance))
		}
		_, err = tx.ExecContext(ctx, s.q(`UPDATE funds SET is_active = 0, updated_at = ? WHERE id = ?`),
			formatTime(now()), id)
		if err != nil {
			return fmt.Errorf("deactivate fund: %w", err)
		}
		return nil
	})
}

// SeedDefaultFunds creates the national catalogue funds that do not
// exist yet and returns the ones it created.
func (s *Store) SeedDefaultFunds(ctx context.Context, actor ledger.Actor) ([]ledger.Fund, error) {
	if err := ledger.Authorize(actor, ledger.ActionManageFunds, ledger.Resource{}); err != nil {
		return nil, err
	}
	var created []ledger.Fund
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, entry := range ledger.DefaultFunds {
			var exists int
			err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM funds WHERE name = ?`), entry.Name).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check fund %s: %w", entry.Name, err)
			}
			if exists > 0 {
				continue
			}
			ts := now()
			f := ledger.Fund{
				Name:           entry.Name,
				Type:           entry.Type,
				Description:    entry.Description,
				CurrentBalance: ledger.FromMinor(0),
				IsActive:       true,
				CreatedBy:      actor.ID,
				CreatedAt:      ts,
				UpdatedAt:      ts,
			}
			err = tx.QueryRowContext(ctx, s.q(
				`INSERT INTO funds (name, type, description, current_balance, is_active, created_by, created_at, updated_at)
				VALUES (?, ?, ?, 0, 1, ?, ?, ?) RETURNING id`),
				f.Name, string(f.Type), f.Description, actor.ID, formatTime(ts), formatTime(ts),
			).Scan(&f.ID)
			if err != nil {
				return fmt.Errorf("seed fund %s: %w", entry.Name, err)
			}
			created = append(created, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// lockFund reads a fund row inside tx, holding a row lock on Postgres.
func (s *Store) lockFund(ctx context.Context, tx *sql.Tx, id int64) (*ledger.Fund, error) {
	row := tx.QueryRowContext(ctx, s.q(`SELECT `+fundColumns+` FROM funds WHERE id = ?`+s.forUpdate()), id)
	f, err := scanFund(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("fund", id)
	}
	return f, err
}

func scanFund(row scanner) (*ledger.Fund, error) {
	var f ledger.Fund
	var balance int64
	var isActive int
	var createdAt, updatedAt string
	err := row.Scan(&f.ID, &f.Name, &f.Type, &f.Description, &balance, &isActive, &f.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan fund: %w", err)
	}
	f.CurrentBalance = ledger.FromMinor(balance)
	f.IsActive = isActive == 1
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	clause := fmt.Sprintf(` LIMIT %d`, limit)
	if offset > 0 {
		clause += fmt.Sprintf(` OFFSET %d`, offset)
	}
	return clause
}
