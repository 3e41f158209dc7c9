package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/simonvc/fundledger/internal/ledger"
)

type ActivityFilter struct {
	FundID   int64
	ChurchID int64
	EventID  string
	ActorID string
	Since   time.Time
	Limit   int
}

// insertEventAudit appends one status change to the event audit trail.
func (s *Store) insertEventAudit(ctx context.Context, tx *sql.Tx, eventID string, prev, next ledger.EventStatus, actor ledger.Actor, comment string) (*ledger.EventAuditEntry, error) {
	entry := &ledger.EventAuditEntry{
		EventID:        eventID,
		PreviousStatus: prev,
		NewStatus:      next,
		ChangedBy:      actor.ID,
		Comment:        comment,
		ChangedAt:      now(),
	}
	err := tx.QueryRowContext(ctx, s.q(
		`INSERT INTO fund_event_audit (event_id, previous_status, new_status, changed_by, comment, changed_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		eventID, string(prev), string(next), actor.ID, comment, formatTime(entry.ChangedAt),
	).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("insert event audit: %w", err)
	}
	return entry, nil
}

// ListEventAudit returns the status history of an event, oldest first.
func (s *Store) ListEventAudit(ctx context.Context, actor ledger.Actor, eventID string) ([]ledger.EventAuditEntry, error) {
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := ledger.Authorize(actor, ledger.ActionViewEvent, e.Resource()); err != nil {
		return nil, err
	}
	return s.listEventAudit(ctx, eventID)
}

func (s *Store) listEventAudit(ctx context.Context, eventID string) ([]ledger.EventAuditEntry, error) {
	rows, err := s.reader.QueryContext(ctx, s.q(
		`SELECT id, event_id, previous_status, new_status, changed_by, comment, changed_at
		FROM fund_event_audit WHERE event_id = ? ORDER BY id`), eventID)
	if err != nil {
		return nil, fmt.Errorf("list event audit: %w", err)
	}
	defer rows.Close()

	var entries []ledger.EventAuditEntry
	for rows.Next() {
		var e ledger.EventAuditEntry
		var changedAt string
		if err := rows.Scan(&e.ID, &e.EventID, &e.PreviousStatus, &e.NewStatus, &e.ChangedBy, &e.Comment, &changedAt); err != nil {
			return nil, fmt.Errorf("scan event audit: %w", err)
		}
		e.ChangedAt = parseTime(changedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ActivityLog merges ledger postings and event transitions into one
// list of who changed what, newest first. Church-scoped actors only see
// activity of their own church.
func (s *Store) ActivityLog(ctx context.Context, actor ledger.Actor, filter ActivityFilter) ([]ledger.Activity, error) {
	if err := ledger.Authorize(actor, ledger.ActionViewLedger, ledger.Resource{}); err != nil {
		return nil, err
	}
	if actor.ChurchScoped(ledger.ActionViewEvent) {
		if actor.ChurchID != nil && filter.ChurchID == 0 {
			filter.ChurchID = *actor.ChurchID
		}
		if err := ledger.Authorize(actor, ledger.ActionViewEvent, ledger.Resource{ChurchID: &filter.ChurchID}); err != nil {
			return nil, err
		}
	}

	out, err := s.postingActivity(ctx, filter)
	if err != nil {
		return nil, err
	}
	transitions, err := s.transitionActivity(ctx, filter)
	if err != nil {
		return nil, err
	}
	out = append(out, transitions...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) postingActivity(ctx context.Context, filter ActivityFilter) ([]ledger.Activity, error) {
	query := `SELECT id, fund_id, event_id, concept, amount_in, amount_out, created_by, created_at FROM transactions WHERE 1=1`
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
	if filter.ActorID != "" {
		query += ` AND created_by = ?`
		args = append(args, filter.ActorID)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(filter.Since))
	}
	query += ` ORDER BY created_at DESC`
	query += limitClause(filter.Limit, 0)

	rows, err := s.reader.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("posting activity: %w", err)
	}
	defer rows.Close()

	var out []ledger.Activity
	for rows.Next() {
		var id, concept, createdBy, createdAt string
		var fundID, in, out64 int64
		var eventID sql.NullString
		if err := rows.Scan(&id, &fundID, &eventID, &concept, &in, &out64, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan posting activity: %w", err)
		}
		amount := ledger.FromMinor(in - out64)
		fid := fundID
		out = append(out, ledger.Activity{
			Kind:    ledger.ActivityPosting,
			At:      parseTime(createdAt),
			Actor:   createdBy,
			FundID:  &fid,
			EventID: stringPtr(eventID),
			RefID:   id,
			Summary: concept,
			Amount:  &amount,
		})
	}
	return out, rows.Err()
}

func (s *Store) transitionActivity(ctx context.Context, filter ActivityFilter) ([]ledger.Activity, error) {
	query := `SELECT a.id, a.event_id, e.fund_id, e.name, a.previous_status, a.new_status, a.changed_by, a.comment, a.changed_at
		FROM fund_event_audit a JOIN fund_events e ON e.id = a.event_id WHERE 1=1`
	args := []any{}
	if filter.FundID > 0 {
		query += ` AND e.fund_id = ?`
		args = append(args, filter.FundID)
	}
	if filter.ChurchID > 0 {
		query += ` AND e.church_id = ?`
		args = append(args, filter.ChurchID)
	}
	if filter.EventID != "" {
		query += ` AND a.event_id = ?`
		args = append(args, filter.EventID)
	}
	if filter.ActorID != "" {
		query += ` AND a.changed_by = ?`
		args = append(args, filter.ActorID)
	}
	if !filter.Since.IsZero() {
		query += ` AND a.changed_at >= ?`
		args = append(args, formatTime(filter.Since))
	}
	query += ` ORDER BY a.changed_at DESC`
	query += limitClause(filter.Limit, 0)

	rows, err := s.reader.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("transition activity: %w", err)
	}
	defer rows.Close()

	var out []ledger.Activity
	for rows.Next() {
		var id, fundID int64
		var eventID, name, prev, next, changedBy, comment, changedAt string
		if err := rows.Scan(&id, &eventID, &fundID, &name, &prev, &next, &changedBy, &comment, &changedAt); err != nil {
			return nil, fmt.Errorf("scan transition activity: %w", err)
		}
		summary := fmt.Sprintf("%s: %s -> %s", name, prev, next)
		if comment != "" {
			summary += " (" + comment + ")"
		}
		fid, eid := fundID, eventID
		out = append(out, ledger.Activity{
			Kind:      ledger.ActivityTransition,
			At:        parseTime(changedAt),
			Actor:     changedBy,
			FundID:    &fid,
			EventID:   &eid,
			RefID:     fmt.Sprintf("%d", id),
			Summary:   summary,
			NewStatus: ledger.EventStatus(next),
		})
	}
	return out, rows.Err()
}
