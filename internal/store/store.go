package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/simonvc/fundledger/internal/events"
	"github.com/simonvc/fundledger/internal/ledger"
	_ "modernc.org/sqlite"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

type Store struct {
	writer  *sql.DB
	reader  *sql.DB
	dialect dialect
	pub     events.Publisher
	log     *slog.Logger
}

type Option func(*Store)

// WithPublisher sends post-commit notifications to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.pub = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open connects to the database named by dsn and migrates it. A
// postgres:// or postgresql:// URL selects Postgres; anything else is a
// SQLite file path.
func Open(dsn string, opts ...Option) (*Store, error) {
	var s *Store
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(4 * runtime.NumCPU())
		db.SetConnMaxIdleTime(5 * time.Minute)
		s = &Store{writer: db, reader: db, dialect: dialectPostgres}
	} else {
		sqliteDSN := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dsn)

		writer, err := sql.Open("sqlite", sqliteDSN)
		if err != nil {
			return nil, fmt.Errorf("open writer: %w", err)
		}
		// A single writer connection serializes every read-then-write of a
		// fund balance, which is SQLite's equivalent of a row lock.
		writer.SetMaxOpenConns(1)

		reader, err := sql.Open("sqlite", sqliteDSN)
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("open reader: %w", err)
		}
		reader.SetMaxOpenConns(runtime.NumCPU())
		s = &Store{writer: writer, reader: reader, dialect: dialectSQLite}
	}

	s.pub = events.Nop{}
	s.log = slog.Default()
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	err1 := s.writer.Close()
	if s.reader == s.writer {
		return err1
	}
	err2 := s.reader.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.reader.PingContext(ctx)
}

// q rewrites ? placeholders to $n for Postgres.
func (s *Store) q(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate is appended to SELECTs that read a row before writing it.
func (s *Store) forUpdate() string {
	if s.dialect == dialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// withTx runs fn inside a write transaction. Any error rolls the whole
// unit back, including a cancelled context.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return translate(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// publish sends notifications after a successful commit. Failures are
// logged; the committed state is authoritative.
func (s *Store) publish(ctx context.Context, evts ...events.Event) {
	for _, e := range evts {
		if err := s.pub.Publish(ctx, e); err != nil {
			s.log.Warn("publish event failed", "type", e.Type, "key", e.Key, "err", err)
		}
	}
}

// translate maps constraint violations onto the error taxonomy. The
// constraints are the second line of defense behind the checks made in
// code, so reaching them usually means a concurrent writer won a race.
func translate(err error) error {
	if err == nil || ledger.KindOf(err) != "" {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return conflictFor(pqErr.Constraint, err)
		case "23514":
			return checkFor(pqErr.Constraint, err)
		}
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return conflictFor(msg, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return checkFor(msg, err)
	}
	return err
}

func conflictFor(constraint string, err error) error {
	switch {
	case strings.Contains(constraint, "monthly_reports"), strings.Contains(constraint, "uq_reports_church_period"):
		return ledger.Conflict("a report for this church and period already exists")
	case strings.Contains(constraint, "transactions.event_id"), strings.Contains(constraint, "uq_transactions_event"):
		return ledger.Conflict("event has already been posted")
	case strings.Contains(constraint, "funds.name"), strings.Contains(constraint, "funds_name"):
		return ledger.Conflict("a fund with this name already exists")
	case strings.Contains(constraint, "churches.name"), strings.Contains(constraint, "churches_name"):
		return ledger.Conflict("a church with this name already exists")
	case strings.Contains(constraint, "donors.church_id"), strings.Contains(constraint, "uq_donors_national_id"):
		return ledger.Conflict("a donor with this national id already exists in the church")
	}
	return ledger.Conflict("duplicate record: %v", err)
}

func checkFor(constraint string, err error) error {
	if strings.Contains(constraint, "balance") {
		return &ledger.Error{Kind: ledger.KindInsufficientFunds, Message: "posting would make the fund balance negative"}
	}
	return ledger.Validation("", "constraint violated: %v", err)
}

func now() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
