package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/simonvc/fundledger/internal/events"
	"github.com/simonvc/fundledger/internal/ledger"
)

// post is the only code path that changes a fund balance. Inside tx it
// locks the fund, checks that the balance stays non-negative, writes the
// new balance and appends the transaction row carrying that balance.
// Callers own tx; on any error they must roll back.
func (s *Store) post(ctx context.Context, tx *sql.Tx, actor ledger.Actor, req ledger.PostRequest) (*ledger.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f, err := s.lockFund(ctx, tx, req.FundID)
	if err != nil {
		return nil, err
	}
	if !f.IsActive {
		return nil, &ledger.Error{Kind: ledger.KindNotFound, Message: fmt.Sprintf("fund %d is inactive", f.ID)}
	}
	if req.ChurchID != nil {
		if err := s.requireChurch(ctx, tx, *req.ChurchID); err != nil {
			return nil, err
		}
	}

	balance := f.CurrentBalance.Add(req.AmountIn).Sub(req.AmountOut)
	if balance.IsNegative() {
		return nil, &ledger.InsufficientFundsError{
			FundID:    f.ID,
			Available: f.CurrentBalance,
			Requested: req.AmountOut,
		}
	}

	minor, err := ledger.MinorUnits("amount_in", balance)
	if err != nil {
		return nil, err
	}

	ts := now()
	if _, err := tx.ExecContext(ctx, s.q(`UPDATE funds SET current_balance = ?, updated_at = ? WHERE id = ?`),
		minor, formatTime(ts), f.ID); err != nil {
		return nil, fmt.Errorf("update fund balance: %w", err)
	}

	date := req.Date
	if date == "" {
		date = ts.Format(ledger.DateLayout)
	}
	txn := &ledger.Transaction{
		ID:             uuid.Must(uuid.NewV7()).String(),
		FundID:         f.ID,
		ChurchID:       req.ChurchID,
		ReportID:       req.ReportID,
		EventID:        req.EventID,
		TransferID:     req.TransferID,
		Concept:        req.Concept,
		AmountIn:       req.AmountIn,
		AmountOut:      req.AmountOut,
		BalanceAfter:   balance,
		Date:           date,
		Provider:       req.Provider,
		DocumentNumber: req.DocumentNumber,
		CreatedBy:      actor.ID,
		CreatedAt:      ts,
	}
	_, err = tx.ExecContext(ctx, s.q(
		`INSERT INTO transactions (id, fund_id, church_id, report_id, event_id, transfer_id, concept,
			amount_in, amount_out, balance_after, date, provider, document_number, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		txn.ID, txn.FundID, nullInt(txn.ChurchID), nullString(txn.ReportID), nullString(txn.EventID),
		nullString(txn.TransferID), txn.Concept,
		ledger.ToMinor(txn.AmountIn), ledger.ToMinor(txn.AmountOut), minor,
		txn.Date, txn.Provider, txn.DocumentNumber, txn.CreatedBy, formatTime(txn.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return txn, nil
}

// Post records a manual income or expense entry against a fund.
func (s *Store) Post(ctx context.Context, actor ledger.Actor, req ledger.PostRequest) (*ledger.Transaction, error) {
	if err := ledger.Authorize(actor, ledger.ActionPostManual, ledger.Resource{ChurchID: req.ChurchID}); err != nil {
		return nil, err
	}
	req.ReportID, req.EventID, req.TransferID = nil, nil, nil
	req.AllowZero = false

	var txn *ledger.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		txn, err = s.post(ctx, tx, actor, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, postedEvent(txn))
	return txn, nil
}

func postedEvent(txn *ledger.Transaction) events.Event {
	return events.New(events.TransactionPosted, "fund-"+strconv.FormatInt(txn.FundID, 10), txn)
}
