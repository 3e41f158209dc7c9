package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simonvc/fundledger/internal/events"
	"github.com/simonvc/fundledger/internal/ledger"
)

type EventFilter struct {
	FundID   int64
	ChurchID int64
	Status   ledger.EventStatus
	Limit    int
	Offset   int
}

const eventColumns = `id, fund_id, church_id, name, description, event_date, status, created_by,
	approved_by, approved_at, submitted_at, rejection_reason, created_at, updated_at`

// CreateEvent opens a new event in draft, optionally with its initial
// budget lines.
func (s *Store) CreateEvent(ctx context.Context, actor ledger.Actor, in ledger.EventInput) (*ledger.FundEvent, error) {
	if err := ledger.Authorize(actor, ledger.ActionCreateEvent, ledger.Resource{ChurchID: in.ChurchID}); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ts := now()
	e := &ledger.FundEvent{
		ID:          uuid.Must(uuid.NewV7()).String(),
		FundID:      in.FundID,
		ChurchID:    in.ChurchID,
		Name:        in.Name,
		Description: in.Description,
		EventDate:   in.EventDate,
		Status:      ledger.StatusDraft,
		CreatedBy:   actor.ID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		f, err := s.lockFund(ctx, tx, in.FundID)
		if err != nil {
			return err
		}
		if !f.IsActive {
			return &ledger.Error{Kind: ledger.KindNotFound, Message: fmt.Sprintf("fund %d is inactive", f.ID)}
		}
		if in.ChurchID != nil {
			if err := s.requireChurch(ctx, tx, *in.ChurchID); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, s.q(
			`INSERT INTO fund_events (id, fund_id, church_id, name, description, event_date, status, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			e.ID, e.FundID, nullInt(e.ChurchID), e.Name, e.Description, e.EventDate, string(e.Status),
			e.CreatedBy, formatTime(ts), formatTime(ts),
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		for _, item := range in.BudgetItems {
			if _, err := s.insertBudgetItem(ctx, tx, e.ID, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEvent changes the header of an editable event.
func (s *Store) UpdateEvent(ctx context.Context, actor ledger.Actor, id string, u ledger.EventUpdate) (*ledger.FundEvent, error) {
	var e *ledger.FundEvent
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		e, err = s.editableEvent(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := u.Apply(e); err != nil {
			return err
		}
		e.UpdatedAt = now()
		_, err = tx.ExecContext(ctx, s.q(
			`UPDATE fund_events SET name = ?, description = ?, event_date = ?, updated_at = ? WHERE id = ?`),
			e.Name, e.Description, e.EventDate, formatTime(e.UpdatedAt), e.ID)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) AddBudgetItem(ctx context.Context, actor ledger.Actor, eventID string, in ledger.BudgetItemInput) (*ledger.BudgetItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var item *ledger.BudgetItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.editableEvent(ctx, tx, actor, eventID); err != nil {
			return err
		}
		var err error
		item, err = s.insertBudgetItem(ctx, tx, eventID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) UpdateBudgetItem(ctx context.Context, actor ledger.Actor, eventID, itemID string, in ledger.BudgetItemInput) (*ledger.BudgetItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ts := now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.editableEvent(ctx, tx, actor, eventID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(
			`UPDATE fund_event_budget_items SET category = ?, description = ?, projected_amount = ?, notes = ?, updated_at = ?
			WHERE id = ? AND event_id = ?`),
			in.Category, in.Description, ledger.ToMinor(in.ProjectedAmount), in.Notes, formatTime(ts), itemID, eventID)
		if err != nil {
			return fmt.Errorf("update budget item: %w", err)
		}
		return requireAffected(res, "budget item", itemID)
	})
	if err != nil {
		return nil, err
	}
	return s.getBudgetItem(ctx, itemID)
}

func (s *Store) DeleteBudgetItem(ctx context.Context, actor ledger.Actor, eventID, itemID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.editableEvent(ctx, tx, actor, eventID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM fund_event_budget_items WHERE id = ? AND event_id = ?`), itemID, eventID)
		if err != nil {
			return fmt.Errorf("delete budget item: %w", err)
		}
		return requireAffected(res, "budget item", itemID)
	})
}

func (s *Store) AddActual(ctx context.Context, actor ledger.Actor, eventID string, in ledger.ActualInput) (*ledger.EventActual, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a := &ledger.EventActual{
		ID:          uuid.Must(uuid.NewV7()).String(),
		EventID:     eventID,
		LineType:    in.LineType,
		Description: in.Description,
		Amount:      in.Amount,
		ReceiptURL:  in.ReceiptURL,
		Notes:       in.Notes,
		RecordedBy:  actor.ID,
		RecordedAt:  now(),
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.editableEvent(ctx, tx, actor, eventID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO fund_event_actuals (id, event_id, line_type, description, amount, receipt_url, notes, recorded_by, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			a.ID, a.EventID, string(a.LineType), a.Description, ledger.ToMinor(a.Amount), a.ReceiptURL, a.Notes,
			a.RecordedBy, formatTime(a.RecordedAt),
		)
		if err != nil {
			return fmt.Errorf("insert actual: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) UpdateActual(ctx context.Context, actor ledger.Actor, eventID, actualID string, in ledger.ActualInput) (*ledger.EventActual, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.editableEvent(ctx, tx, actor, eventID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(
			`UPDATE fund_event_actuals SET line_type = ?, description = ?, amount = ?, receipt_url = ?, notes = ?
			WHERE id = ? AND event_id = ?`),
			string(in.LineType), in.Description, ledger.ToMinor(in.Amount), in.ReceiptURL, in.Notes, actualID, eventID)
		if err != nil {
			return fmt.Errorf("update actual: %w", err)
		}
		return requireAffected(res, "actual", actualID)
	})
	if err != nil {
		return nil, err
	}
	return s.getActual(ctx, actualID)
}

func (s *Store) DeleteActual(ctx context.Context, actor ledger.Actor, eventID, actualID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.editableEvent(ctx, tx, actor, eventID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM fund_event_actuals WHERE id = ? AND event_id = ?`), actualID, eventID)
		if err != nil {
			return fmt.Errorf("delete actual: %w", err)
		}
		return requireAffected(res, "actual", actualID)
	})
}

// SubmitEvent sends a draft or revised event for approval. Only the
// creator submits, and only with at least one budget line.
func (s *Store) SubmitEvent(ctx context.Context, actor ledger.Actor, id string) (*ledger.FundEvent, error) {
	var e *ledger.FundEvent
	var audit *ledger.EventAuditEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		e, err = s.lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ledger.Authorize(actor, ledger.ActionSubmitEvent, e.Resource()); err != nil {
			return err
		}
		if err := ledger.CheckTransition(e.Status, ledger.StatusSubmitted); err != nil {
			return err
		}
		var items int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM fund_event_budget_items WHERE event_id = ?`), id).Scan(&items); err != nil {
			return fmt.Errorf("count budget items: %w", err)
		}
		if items == 0 {
			return ledger.Validation("budget_items", "an event needs at least one budget item before submission")
		}
		ts := now()
		audit, err = s.transition(ctx, tx, e, ledger.StatusSubmitted, actor, "",
			`submitted_at = ?, rejection_reason = ''`, formatTime(ts))
		if err != nil {
			return err
		}
		e.SubmittedAt = &ts
		e.RejectionReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitionedEvent(audit))
	return e, nil
}

// ApproveEvent posts the event's net actual amount to its fund and
// closes the event as approved. The posting, the status change and the
// audit entry commit together or not at all.
func (s *Store) ApproveEvent(ctx context.Context, actor ledger.Actor, id, comment string) (*ledger.FundEvent, *ledger.Transaction, error) {
	var e *ledger.FundEvent
	var txn *ledger.Transaction
	var audit *ledger.EventAuditEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		e, err = s.lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ledger.Authorize(actor, ledger.ActionApproveEvent, e.Resource()); err != nil {
			return err
		}
		if err := ledger.CheckTransition(e.Status, ledger.StatusApproved); err != nil {
			return err
		}

		actuals, err := s.listActuals(ctx, tx, id)
		if err != nil {
			return err
		}
		totals := ledger.ComputeTotals(nil, actuals)

		txn, err = s.post(ctx, tx, actor, ledger.ApprovalPosting(e, totals.Net))
		if err != nil {
			return err
		}

		ts := now()
		audit, err = s.transition(ctx, tx, e, ledger.StatusApproved, actor, comment,
			`approved_by = ?, approved_at = ?`, actor.ID, formatTime(ts))
		if err != nil {
			return err
		}
		e.ApprovedBy = actor.ID
		e.ApprovedAt = &ts
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, postedEvent(txn), transitionedEvent(audit))
	return e, txn, nil
}

// RejectEvent turns down a submitted event, either for good or back to
// pending_revision when resubmission is allowed.
func (s *Store) RejectEvent(ctx context.Context, actor ledger.Actor, id string, in ledger.RejectInput) (*ledger.FundEvent, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	to := ledger.StatusRejected
	if in.Resubmit {
		to = ledger.StatusPendingRevision
	}

	var e *ledger.FundEvent
	var audit *ledger.EventAuditEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		e, err = s.lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ledger.Authorize(actor, ledger.ActionRejectEvent, e.Resource()); err != nil {
			return err
		}
		if err := ledger.CheckTransition(e.Status, to); err != nil {
			return err
		}
		audit, err = s.transition(ctx, tx, e, to, actor, in.Reason, `rejection_reason = ?`, in.Reason)
		if err != nil {
			return err
		}
		e.RejectionReason = in.Reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitionedEvent(audit))
	return e, nil
}

func (s *Store) CancelEvent(ctx context.Context, actor ledger.Actor, id, comment string) (*ledger.FundEvent, error) {
	var e *ledger.FundEvent
	var audit *ledger.EventAuditEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		e, err = s.lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ledger.Authorize(actor, ledger.ActionCancelEvent, e.Resource()); err != nil {
			return err
		}
		if err := ledger.CheckTransition(e.Status, ledger.StatusCancelled); err != nil {
			return err
		}
		audit, err = s.transition(ctx, tx, e, ledger.StatusCancelled, actor, comment, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitionedEvent(audit))
	return e, nil
}

// GetEventDetail returns an event with its lines, history, totals and
// the approval posting when there is one.
func (s *Store) GetEventDetail(ctx context.Context, actor ledger.Actor, id string) (*ledger.EventDetail, error) {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ledger.Authorize(actor, ledger.ActionViewEvent, e.Resource()); err != nil {
		return nil, err
	}

	d := &ledger.EventDetail{Event: *e}
	if d.BudgetItems, err = s.listBudgetItems(ctx, s.reader, id); err != nil {
		return nil, err
	}
	if d.Actuals, err = s.listActuals(ctx, s.reader, id); err != nil {
		return nil, err
	}
	if d.Audit, err = s.listEventAudit(ctx, id); err != nil {
		return nil, err
	}
	d.Totals = ledger.ComputeTotals(d.BudgetItems, d.Actuals)

	txns, err := s.ListTransactions(ctx, TxnFilter{EventID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(txns) > 0 {
		d.Transaction = &txns[0]
	}
	return d, nil
}

// ListEvents returns events matching filter. Church-scoped actors only
// see their own church's events.
func (s *Store) ListEvents(ctx context.Context, actor ledger.Actor, filter EventFilter) ([]ledger.FundEvent, error) {
	res := ledger.Resource{}
	if filter.ChurchID > 0 {
		res.ChurchID = &filter.ChurchID
	}
	if actor.ChurchScoped(ledger.ActionViewEvent) {
		if actor.ChurchID != nil && filter.ChurchID == 0 {
			filter.ChurchID = *actor.ChurchID
		}
		res.ChurchID = &filter.ChurchID
	}
	if err := ledger.Authorize(actor, ledger.ActionViewEvent, res); err != nil {
		return nil, err
	}

	query := `SELECT ` + eventColumns + ` FROM fund_events WHERE 1=1`
	args := []any{}
	if filter.FundID > 0 {
		query += ` AND fund_id = ?`
		args = append(args, filter.FundID)
	}
	if filter.ChurchID > 0 {
		query += ` AND church_id = ?`
		args = append(args, filter.ChurchID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query += limitClause(filter.Limit, filter.Offset)

	rows, err := s.reader.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var list []ledger.FundEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// transition moves e to the given status with a compare-and-set on the
// status it was read in, then appends the audit entry. extra is an
// optional SET fragment whose placeholders take extraArgs.
func (s *Store) transition(ctx context.Context, tx *sql.Tx, e *ledger.FundEvent, to ledger.EventStatus, actor ledger.Actor, comment, extra string, extraArgs ...any) (*ledger.EventAuditEntry, error) {
	from := e.Status
	ts := now()

	query := `UPDATE fund_events SET status = ?, updated_at = ?`
	args := []any{string(to), formatTime(ts)}
	if extra != "" {
		query += `, ` + extra
		args = append(args, extraArgs...)
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, e.ID, string(from))

	res, err := tx.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("update event status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update event status: %w", err)
	}
	if n == 0 {
		return nil, ledger.Conflict("event %s is no longer %s", e.ID, from)
	}
	e.Status = to
	e.UpdatedAt = ts
	return s.insertEventAudit(ctx, tx, e.ID, from, to, actor, comment)
}

// editableEvent locks an event for a line or header change and checks
// that the actor may edit it in its current state.
func (s *Store) editableEvent(ctx context.Context, tx *sql.Tx, actor ledger.Actor, id string) (*ledger.FundEvent, error) {
	e, err := s.lockEvent(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := ledger.Authorize(actor, ledger.ActionEditEvent, e.Resource()); err != nil {
		return nil, err
	}
	if !e.Status.Editable() {
		return nil, ledger.Conflict("event %s is %s and can no longer be edited", e.ID, e.Status)
	}
	return e, nil
}

func (s *Store) lockEvent(ctx context.Context, tx *sql.Tx, id string) (*ledger.FundEvent, error) {
	row := tx.QueryRowContext(ctx, s.q(`SELECT `+eventColumns+` FROM fund_events WHERE id = ?`+s.forUpdate()), id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("event", id)
	}
	return e, err
}

func (s *Store) getEvent(ctx context.Context, id string) (*ledger.FundEvent, error) {
	row := s.reader.QueryRowContext(ctx, s.q(`SELECT `+eventColumns+` FROM fund_events WHERE id = ?`), id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("event", id)
	}
	return e, err
}

func scanEvent(row scanner) (*ledger.FundEvent, error) {
	var e ledger.FundEvent
	var churchID sql.NullInt64
	var approvedAt, submittedAt sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.FundID, &churchID, &e.Name, &e.Description, &e.EventDate, &e.Status, &e.CreatedBy,
		&e.ApprovedBy, &approvedAt, &submittedAt, &e.RejectionReason, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.ChurchID = intPtr(churchID)
	e.ApprovedAt = parseNullTime(approvedAt)
	e.SubmittedAt = parseNullTime(submittedAt)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func (s *Store) insertBudgetItem(ctx context.Context, tx *sql.Tx, eventID string, in ledger.BudgetItemInput) (*ledger.BudgetItem, error) {
	ts := now()
	item := &ledger.BudgetItem{
		ID:              uuid.Must(uuid.NewV7()).String(),
		EventID:         eventID,
		Category:        in.Category,
		Description:     in.Description,
		ProjectedAmount: in.ProjectedAmount,
		Notes:           in.Notes,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	_, err := tx.ExecContext(ctx, s.q(
		`INSERT INTO fund_event_budget_items (id, event_id, category, description, projected_amount, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		item.ID, eventID, item.Category, item.Description, ledger.ToMinor(item.ProjectedAmount), item.Notes,
		formatTime(ts), formatTime(ts),
	)
	if err != nil {
		return nil, fmt.Errorf("insert budget item: %w", err)
	}
	return item, nil
}

const budgetItemColumns = `id, event_id, category, description, projected_amount, notes, created_at, updated_at`

func (s *Store) getBudgetItem(ctx context.Context, id string) (*ledger.BudgetItem, error) {
	row := s.reader.QueryRowContext(ctx, s.q(`SELECT `+budgetItemColumns+` FROM fund_event_budget_items WHERE id = ?`), id)
	item, err := scanBudgetItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("budget item", id)
	}
	return item, err
}

func (s *Store) listBudgetItems(ctx context.Context, db querier, eventID string) ([]ledger.BudgetItem, error) {
	rows, err := db.QueryContext(ctx, s.q(`SELECT `+budgetItemColumns+` FROM fund_event_budget_items WHERE event_id = ? ORDER BY created_at, id`), eventID)
	if err != nil {
		return nil, fmt.Errorf("list budget items: %w", err)
	}
	defer rows.Close()

	var items []ledger.BudgetItem
	for rows.Next() {
		item, err := scanBudgetItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanBudgetItem(row scanner) (*ledger.BudgetItem, error) {
	var item ledger.BudgetItem
	var amount int64
	var createdAt, updatedAt string
	err := row.Scan(&item.ID, &item.EventID, &item.Category, &item.Description, &amount, &item.Notes, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan budget item: %w", err)
	}
	item.ProjectedAmount = ledger.FromMinor(amount)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return &item, nil
}

const actualColumns = `id, event_id, line_type, description, amount, receipt_url, notes, recorded_by, recorded_at`

func (s *Store) getActual(ctx context.Context, id string) (*ledger.EventActual, error) {
	row := s.reader.QueryRowContext(ctx, s.q(`SELECT `+actualColumns+` FROM fund_event_actuals WHERE id = ?`), id)
	a, err := scanActual(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("actual", id)
	}
	return a, err
}

func (s *Store) listActuals(ctx context.Context, db querier, eventID string) ([]ledger.EventActual, error) {
	rows, err := db.QueryContext(ctx, s.q(`SELECT `+actualColumns+` FROM fund_event_actuals WHERE event_id = ? ORDER BY recorded_at, id`), eventID)
	if err != nil {
		return nil, fmt.Errorf("list actuals: %w", err)
	}
	defer rows.Close()

	var actuals []ledger.EventActual
	for rows.Next() {
		a, err := scanActual(rows)
		if err != nil {
			return nil, err
		}
		actuals = append(actuals, *a)
	}
	return actuals, rows.Err()
}

func scanActual(row scanner) (*ledger.EventActual, error) {
	var a ledger.EventActual
	var amount int64
	var recordedAt string
	err := row.Scan(&a.ID, &a.EventID, &a.LineType, &a.Description, &amount, &a.ReceiptURL, &a.Notes, &a.RecordedBy, &recordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan actual: %w", err)
	}
	a.Amount = ledger.FromMinor(amount)
	a.RecordedAt = parseTime(recordedAt)
	return &a, nil
}

func requireAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.NotFound(entity, id)
	}
	return nil
}

func transitionedEvent(entry *ledger.EventAuditEntry) events.Event {
	return events.New(events.EventTransitioned, "event-"+entry.EventID, entry)
}
