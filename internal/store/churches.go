package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonvc/fundledger/internal/ledger"
)

// CreateChurch imports a church into the master data. The engine itself
// never creates churches.
func (s *Store) CreateChurch(ctx context.Context, actor ledger.Actor, c *ledger.Church) error {
	if err := ledger.Authorize(actor, ledger.ActionManageChurches, ledger.Resource{}); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	ts := now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, s.q(
			`INSERT INTO churches (name, city, pastor, is_active, created_at) VALUES (?, ?, ?, 1, ?) RETURNING id`),
			c.Name, c.City, c.Pastor, formatTime(ts),
		).Scan(&c.ID)
	})
	if err != nil {
		return fmt.Errorf("insert church: %w", err)
	}
	c.IsActive = true
	c.CreatedAt = ts
	return nil
}

func (s *Store) GetChurch(ctx context.Context, id int64) (*ledger.Church, error) {
	var c ledger.Church
	var isActive int
	var createdAt string
	err := s.reader.QueryRowContext(ctx, s.q(
		`SELECT id, name, city, pastor, is_active, created_at FROM churches WHERE id = ?`), id,
	).Scan(&c.ID, &c.Name, &c.City, &c.Pastor, &isActive, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFound("church", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get church: %w", err)
	}
	c.IsActive = isActive == 1
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *Store) ListChurches(ctx context.Context) ([]ledger.Church, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT id, name, city, pastor, is_active, created_at FROM churches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list churches: %w", err)
	}
	defer rows.Close()

	var churches []ledger.Church
	for rows.Next() {
		var c ledger.Church
		var isActive int
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.City, &c.Pastor, &isActive, &createdAt); err != nil {
			return nil, fmt.Errorf("scan church: %w", err)
		}
		c.IsActive = isActive == 1
		c.CreatedAt = parseTime(createdAt)
		churches = append(churches, c)
	}
	return churches, rows.Err()
}

// requireChurch fails with NotFound unless the church exists and is active.
func (s *Store) requireChurch(ctx context.Context, tx *sql.Tx, id int64) error {
	var isActive int
	err := tx.QueryRowContext(ctx, s.q(`SELECT is_active FROM churches WHERE id = ?`), id).Scan(&isActive)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && isActive != 1) {
		return ledger.NotFound("church", id)
	}
	if err != nil {
		return fmt.Errorf("check church: %w", err)
	}
	return nil
}
