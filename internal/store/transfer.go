package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simonvc/fundledger/internal/ledger"
)

// Transfer debits the source fund and credits the destination inside
// one transaction. If the debit would overdraw the source, nothing is
// written and the credit is never attempted.
func (s *Store) Transfer(ctx context.Context, actor ledger.Actor, req ledger.TransferRequest) (*ledger.TransferResult, error) {
	if err := ledger.Authorize(actor, ledger.ActionTransfer, ledger.Resource{}); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	transferID := uuid.Must(uuid.NewV7()).String()
	result := &ledger.TransferResult{TransferID: transferID}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Lock in ascending id order so two opposite transfers cannot
		// deadlock each other.
		first, second := req.SourceFundID, req.DestinationFundID
		if second < first {
			first, second = second, first
		}
		src, err := s.lockFund(ctx, tx, first)
		if err != nil {
			return err
		}
		dst, err := s.lockFund(ctx, tx, second)
		if err != nil {
			return err
		}
		if first != req.SourceFundID {
			src, dst = dst, src
		}

		debit, err := s.post(ctx, tx, actor, ledger.PostRequest{
			FundID:     req.SourceFundID,
			AmountIn:   decimal.Zero,
			AmountOut:  req.Amount,
			Concept:    "Transfer to " + dst.Name + ": " + req.Description,
			Date:       req.Date,
			TransferID: &transferID,
		})
		if err != nil {
			return err
		}
		credit, err := s.post(ctx, tx, actor, ledger.PostRequest{
			FundID:     req.DestinationFundID,
			AmountIn:   req.Amount,
			AmountOut:  decimal.Zero,
			Concept:    "Transfer from " + src.Name + ": " + req.Description,
			Date:       req.Date,
			TransferID: &transferID,
		})
		if err != nil {
			return err
		}
		result.Debit, result.Credit = debit, credit
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, postedEvent(result.Debit), postedEvent(result.Credit))
	return result, nil
}
