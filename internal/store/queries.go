package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonvc/fundledger/internal/ledger"
)

type TxnFilter struct {
	FundID   int64
	ChurchID int64
	EventID  string
	ReportID string
	From     string // inclusive, YYYY-MM-DD
	To       string // inclusive, YYYY-MM-DD
	Limit    int
	Offset   int
}

const txnColumns = `id, fund_id, church_id, report_id, event_id, transfer_id, concept, amount_in, amount_out,
	balance_after, date, provider, document_number, created_by, created_at`

func (s *Store) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	row := s.reader.QueryRowContext(ctx, s.q(`SELECT `+txnColumns+` FROM transactions WHERE id = ?`), id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("transaction", id)
	}
	return txn, err
}

// ListTransactions returns ledger rows oldest first, which is the order
// in which balance_after values chain.
func (s *Store) ListTransactions(ctx context.Context, filter TxnFilter) ([]ledger.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE 1=1`
	args := []any{}

	if filter.FundID > 0 {
		query += ` AND fund_id = ?`
		args = append(args, filter.FundID)
	}
	if filter.ChurchID > 0 {
		query += ` AND church_id = ?`
		args = append(args, filter.ChurchID)
	}
	if filter.EventID != "" {
		query += ` AND event_id = ?`
		args = append(args, filter.EventID)
	}
	if filter.ReportID != "" {
		query += ` AND report_id = ?`
		args = append(args, filter.ReportID)
	}
	if filter.From != "" {
		query += ` AND date >= ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND date <= ?`
		args = append(args, filter.To)
	}
	query += ` ORDER BY created_at, id`
	query += limitClause(filter.Limit, filter.Offset)

	return s.queryTransactions(ctx, s.reader, query, args...)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) queryTransactions(ctx context.Context, db querier, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []ledger.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// ReconcileFund recomputes a fund's balance from its transaction rows
// and compares it with the stored balance.
func (s *Store) ReconcileFund(ctx context.Context, fundID int64) (*ledger.Reconciliation, error) {
	f, err := s.GetFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	var sum int64
	var count int
	err = s.reader.QueryRowContext(ctx, s.q(
		`SELECT COALESCE(SUM(amount_in - amount_out), 0), COUNT(*) FROM transactions WHERE fund_id = ?`), fundID,
	).Scan(&sum, &count)
	if err != nil {
		return nil, fmt.Errorf("reconcile fund: %w", err)
	}
	ledgerBalance := ledger.FromMinor(sum)
	return &ledger.Reconciliation{
		FundID:        fundID,
		StoredBalance: f.CurrentBalance,
		LedgerBalance: ledgerBalance,
		Transactions:  count,
		Balanced:      ledgerBalance.Equal(f.CurrentBalance),
	}, nil
}

func scanTransaction(row scanner) (*ledger.Transaction, error) {
	var t ledger.Transaction
	var churchID sql.NullInt64
	var reportID, eventID, transferID sql.NullString
	var in, out, after int64
	var createdAt string
	err := row.Scan(&t.ID, &t.FundID, &churchID, &reportID, &eventID, &transferID, &t.Concept,
		&in, &out, &after, &t.Date, &t.Provider, &t.DocumentNumber, &t.CreatedBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.ChurchID = intPtr(churchID)
	t.ReportID = stringPtr(reportID)
	t.EventID = stringPtr(eventID)
	t.TransferID = stringPtr(transferID)
	t.AmountIn = ledger.FromMinor(in)
	t.AmountOut = ledger.FromMinor(out)
	t.BalanceAfter = ledger.FromMinor(after)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}
