package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if err := s.migrateV1(ctx, tx); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}
	if version < 2 {
		if err := s.migrateV2(ctx, tx); err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
	}

	return tx.Commit()
}

// schemaV1 is shared by both dialects; {{pk}} expands to the dialect's
// auto-increment primary key.
var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS churches (
		id         {{pk}},
		name       TEXT NOT NULL UNIQUE,
		city       TEXT NOT NULL DEFAULT '',
		pastor     TEXT NOT NULL DEFAULT '',
		is_active  INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS funds (
		id              {{pk}},
		name            TEXT NOT NULL UNIQUE,
		type            TEXT NOT NULL CHECK (type IN ('national','designated','general','special')),
		description     TEXT NOT NULL DEFAULT '',
		current_balance BIGINT NOT NULL DEFAULT 0 CONSTRAINT funds_balance_non_negative CHECK (current_balance >= 0),
		is_active       INTEGER NOT NULL DEFAULT 1,
		created_by      TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS fund_events (
		id               TEXT PRIMARY KEY,
		fund_id          BIGINT NOT NULL REFERENCES funds(id),
		church_id        BIGINT REFERENCES churches(id),
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		event_date       TEXT NOT NULL,
		status           TEXT NOT NULL CHECK (status IN ('draft','pending_revision','submitted','approved','rejected','cancelled')),
		created_by       TEXT NOT NULL,
		approved_by      TEXT NOT NULL DEFAULT '',
		approved_at      TEXT,
		submitted_at     TEXT,
		rejection_reason TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fund_events_fund ON fund_events(fund_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fund_events_status ON fund_events(status)`,

	`CREATE TABLE IF NOT EXISTS fund_event_budget_items (
		id               TEXT PRIMARY KEY,
		event_id         TEXT NOT NULL REFERENCES fund_events(id),
		category         TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		projected_amount BIGINT NOT NULL CHECK (projected_amount > 0),
		notes            TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_budget_items_event ON fund_event_budget_items(event_id)`,

	`CREATE TABLE IF NOT EXISTS fund_event_actuals (
		id          TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL REFERENCES fund_events(id),
		line_type   TEXT NOT NULL CHECK (line_type IN ('income','expense')),
		description TEXT NOT NULL,
		amount      BIGINT NOT NULL CHECK (amount > 0),
		receipt_url TEXT NOT NULL DEFAULT '',
		notes       TEXT NOT NULL DEFAULT '',
		recorded_by TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_actuals_event ON fund_event_actuals(event_id)`,

	`CREATE TABLE IF NOT EXISTS fund_event_audit (
		id              {{pk}},
		event_id        TEXT NOT NULL REFERENCES fund_events(id),
		previous_status TEXT NOT NULL,
		new_status      TEXT NOT NULL,
		changed_by      TEXT NOT NULL,
		comment         TEXT NOT NULL DEFAULT '',
		changed_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_audit_event ON fund_event_audit(event_id)`,

	`CREATE TABLE IF NOT EXISTS donors (
		id          {{pk}},
		church_id   BIGINT NOT NULL REFERENCES churches(id),
		name        TEXT NOT NULL,
		name_key    TEXT NOT NULL,
		national_id TEXT NOT NULL DEFAULT '',
		phone       TEXT NOT NULL DEFAULT '',
		is_active   INTEGER NOT NULL DEFAULT 1,
		created_at  TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_donors_national_id ON donors(church_id, national_id) WHERE national_id <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_donors_name ON donors(church_id, name_key)`,

	`CREATE TABLE IF NOT EXISTS worship_records (
		id                 TEXT PRIMARY KEY,
		church_id          BIGINT NOT NULL REFERENCES churches(id),
		service_date       TEXT NOT NULL,
		service_type       TEXT NOT NULL,
		preacher           TEXT NOT NULL DEFAULT '',
		total_tithe        BIGINT NOT NULL DEFAULT 0,
		total_offering     BIGINT NOT NULL DEFAULT 0,
		total_missions     BIGINT NOT NULL DEFAULT 0,
		total_other        BIGINT NOT NULL DEFAULT 0,
		anonymous_offering BIGINT NOT NULL DEFAULT 0,
		grand_total        BIGINT NOT NULL DEFAULT 0,
		members            INTEGER NOT NULL DEFAULT 0,
		visitors           INTEGER NOT NULL DEFAULT 0,
		children           INTEGER NOT NULL DEFAULT 0,
		youth              INTEGER NOT NULL DEFAULT 0,
		total_attendance   INTEGER NOT NULL DEFAULT 0,
		created_by         TEXT NOT NULL,
		created_at         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_worship_church_date ON worship_records(church_id, service_date)`,

	`CREATE TABLE IF NOT EXISTS worship_contributions (
		id                {{pk}},
		worship_record_id TEXT NOT NULL REFERENCES worship_records(id),
		donor_id          BIGINT NOT NULL REFERENCES donors(id),
		donor_name        TEXT NOT NULL,
		category          TEXT NOT NULL,
		amount            BIGINT NOT NULL CHECK (amount > 0),
		created_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contributions_record ON worship_contributions(worship_record_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contributions_donor ON worship_contributions(donor_id)`,

	`CREATE TABLE IF NOT EXISTS monthly_reports (
		id             TEXT PRIMARY KEY,
		church_id      BIGINT NOT NULL REFERENCES churches(id),
		month          INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		year           INTEGER NOT NULL,
		total_tithe    BIGINT NOT NULL DEFAULT 0,
		total_offering BIGINT NOT NULL DEFAULT 0,
		total_missions BIGINT NOT NULL DEFAULT 0,
		total_other    BIGINT NOT NULL DEFAULT 0,
		total          BIGINT NOT NULL DEFAULT 0,
		worship_count  INTEGER NOT NULL DEFAULT 0,
		status         TEXT NOT NULL,
		submitted_by   TEXT NOT NULL,
		submitted_at   TEXT NOT NULL,
		CONSTRAINT uq_reports_church_period UNIQUE (church_id, month, year)
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id              TEXT PRIMARY KEY,
		fund_id         BIGINT NOT NULL REFERENCES funds(id),
		church_id       BIGINT REFERENCES churches(id),
		report_id       TEXT REFERENCES monthly_reports(id),
		event_id        TEXT REFERENCES fund_events(id),
		transfer_id     TEXT,
		concept         TEXT NOT NULL,
		amount_in       BIGINT NOT NULL DEFAULT 0,
		amount_out      BIGINT NOT NULL DEFAULT 0,
		balance_after   BIGINT NOT NULL CONSTRAINT transactions_balance_after_non_negative CHECK (balance_after >= 0),
		date            TEXT NOT NULL,
		provider        TEXT NOT NULL DEFAULT '',
		document_number TEXT NOT NULL DEFAULT '',
		created_by      TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		CONSTRAINT transactions_amounts_non_negative CHECK (amount_in >= 0 AND amount_out >= 0),
		CONSTRAINT transactions_single_direction CHECK (amount_in = 0 OR amount_out = 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_fund ON transactions(fund_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_church ON transactions(church_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_event ON transactions(event_id) WHERE event_id IS NOT NULL`,
}

// Append-only tables reject UPDATE and DELETE at the database level.
var sqliteTriggersV1 = []string{
	`CREATE TRIGGER IF NOT EXISTS trg_transactions_no_update
	BEFORE UPDATE ON transactions
	BEGIN
		SELECT RAISE(ABORT, 'transactions are append-only');
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_transactions_no_delete
	BEFORE DELETE ON transactions
	BEGIN
		SELECT RAISE(ABORT, 'transactions are append-only');
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_event_audit_no_update
	BEFORE UPDATE ON fund_event_audit
	BEGIN
		SELECT RAISE(ABORT, 'event audit entries are append-only');
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_event_audit_no_delete
	BEFORE DELETE ON fund_event_audit
	BEGIN
		SELECT RAISE(ABORT, 'event audit entries are append-only');
	END`,
	// Actual lines are frozen once the event leaves draft or
	// pending_revision. Budget lines follow in v2.
	`CREATE TRIGGER IF NOT EXISTS trg_actuals_frozen_insert
	BEFORE INSERT ON fund_event_actuals
	WHEN (SELECT status FROM fund_events WHERE id = NEW.event_id) NOT IN ('draft','pending_revision')
	BEGIN
		SELECT RAISE(ABORT, 'event lines are read-only after submission');
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_actuals_frozen_update
	BEFORE UPDATE ON fund_event_actuals
	WHEN (SELECT status FROM fund_events WHERE id = OLD.event_id) NOT IN ('draft','pending_revision')
	BEGIN
		SELECT RAISE(ABORT, 'event lines are read-only after submission');
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_actuals_frozen_delete
	BEFORE DELETE ON fund_event_actuals
	WHEN (SELECT status FROM fund_events WHERE id = OLD.event_id) NOT IN ('draft','pending_revision')
	BEGIN
		SELECT RAISE(ABORT, 'event lines are read-only after submission');
	END`,
}

var postgresTriggersV1 = []string{
	`CREATE OR REPLACE FUNCTION forbid_mutation() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION '% is append-only', TG_TABLE_NAME;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_transactions_immutable ON transactions`,
	`CREATE TRIGGER trg_transactions_immutable
	BEFORE UPDATE OR DELETE ON transactions
	FOR EACH ROW EXECUTE FUNCTION forbid_mutation()`,
	`DROP TRIGGER IF EXISTS trg_event_audit_immutable ON fund_event_audit`,
	`CREATE TRIGGER trg_event_audit_immutable
	BEFORE UPDATE OR DELETE ON fund_event_audit
	FOR EACH ROW EXECUTE FUNCTION forbid_mutation()`,
	`CREATE OR REPLACE FUNCTION forbid_frozen_actual() RETURNS trigger AS $$
	DECLARE
		st TEXT;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			SELECT status INTO st FROM fund_events WHERE id = OLD.event_id;
		ELSE
			SELECT status INTO st FROM fund_events WHERE id = NEW.event_id;
		END IF;
		IF st NOT IN ('draft','pending_revision') THEN
			RAISE EXCEPTION 'event lines are read-only after submission';
		END IF;
		IF TG_OP = 'DELETE' THEN
			RETURN OLD;
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_actuals_frozen ON fund_event_actuals`,
	`CREATE TRIGGER trg_actuals_frozen
	BEFORE INSERT OR UPDATE OR DELETE ON fund_event_actuals
	FOR EACH ROW EXECUTE FUNCTION forbid_frozen_actual()`,
}

func (s *Store) migrateV1(ctx context.Context, tx *sql.Tx) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	triggers := sqliteTriggersV1
	if s.dialect == dialectPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
		triggers = postgresTriggersV1
	}

	stmts := make([]string, 0, len(schemaV1)+len(triggers)+1)
	for _, stmt := range schemaV1 {
		stmts = append(stmts, strings.ReplaceAll(stmt, "{{pk}}", pk))
	}
	stmts = append(stmts, triggers...)
	stmts = append(stmts, `INSERT INTO schema_version (version) VALUES (1)`)

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

var sqliteTriggersV2 = []string{
	`CREATE TRIGGER IF NOT EXISTS trg_budget_items_frozen_insert
	BEFORE INSERT ON fund_event_budget_items
	WHEN (SELECT status FROM fund_events WHERE id = NEW.event_id) NOT IN ('draft','pending_revision')
	BEGIN
		SELECT RAISE(ABORT, 'event lines are read-only after submission');
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_budget_items_frozen_update
	BEFORE UPDATE ON fund_event_budget_items
	WHEN (SELECT status FROM fund_events WHERE id = OLD.event_id) NOT IN ('draft','pending_revision')
	BEGIN
		SELECT RAISE(ABORT, 'event lines are read-only after submission');
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_budget_items_frozen_delete
	BEFORE DELETE ON fund_event_budget_items
	WHEN (SELECT status FROM fund_events WHERE id = OLD.event_id) NOT IN ('draft','pending_revision')
	BEGIN
		SELECT RAISE(ABORT, 'event lines are read-only after submission');
	END`,
}

// forbid_frozen_actual only looks at event_id, so it serves budget lines
// as well.
var postgresTriggersV2 = []string{
	`DROP TRIGGER IF EXISTS trg_budget_items_frozen ON fund_event_budget_items`,
	`CREATE TRIGGER trg_budget_items_frozen
	BEFORE INSERT OR UPDATE OR DELETE ON fund_event_budget_items
	FOR EACH ROW EXECUTE FUNCTION forbid_frozen_actual()`,
}

// migrateV2 freezes budget lines after submission the same way v1 froze
// actual lines.
func (s *Store) migrateV2(ctx context.Context, tx *sql.Tx) error {
	stmts := sqliteTriggersV2
	if s.dialect == dialectPostgres {
		stmts = postgresTriggersV2
	}
	stmts = append(stmts[:len(stmts):len(stmts)], `INSERT INTO schema_version (version) VALUES (2)`)

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i > 0 {
		return stmt[:i]
	}
	return stmt
}
