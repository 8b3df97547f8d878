// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit records the governance trail of every analysis: the query,
// each worker action, every cited evidence source, and generated report
// versions. Records are kept in a SQLite database.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when an audit id is not in the store.
var ErrNotFound = errors.New("audit record not found")

// Status is the lifecycle state of an audited query.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// ActionAnalyze is the action type of a recorded worker invocation.
const ActionAnalyze = "analyze"

// timeLayout is the on-disk timestamp format. Fixed width so that text
// ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the audit SQLite database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens or creates the audit database at path and creates the
// schema if it does not exist. The parent directory is created as needed.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS query_audit (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			conversation_id TEXT,
			query_text TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			completed_at TEXT,
			response TEXT,
			confidence_score REAL,
			regulatory_readiness REAL,
			patent_risk TEXT,
			report_id TEXT,
			error_message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_query_audit_user ON query_audit(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_query_audit_conversation ON query_audit(conversation_id)`,
		`CREATE TABLE IF NOT EXISTS agent_actions (
			id TEXT PRIMARY KEY,
			query_audit_id TEXT NOT NULL REFERENCES query_audit(id) ON DELETE CASCADE,
			agent_name TEXT NOT NULL,
			action_type TEXT NOT NULL,
			input_data TEXT,
			output_data TEXT,
			reasoning TEXT,
			timestamp TEXT NOT NULL,
			execution_time_ms INTEGER,
			success INTEGER NOT NULL,
			error_message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_actions_query ON agent_actions(query_audit_id)`,
		`CREATE TABLE IF NOT EXISTS evidence_sources (
			id TEXT PRIMARY KEY,
			query_audit_id TEXT NOT NULL REFERENCES query_audit(id) ON DELETE CASCADE,
			agent_name TEXT NOT NULL,
			source_type TEXT NOT NULL,
			source_url TEXT,
			source_id TEXT,
			title TEXT,
			abstract TEXT,
			relevance_score REAL,
			extracted_data TEXT,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_sources_query ON evidence_sources(query_audit_id)`,
		`CREATE TABLE IF NOT EXISTS report_versions (
			id TEXT PRIMARY KEY,
			query_audit_id TEXT NOT NULL REFERENCES query_audit(id) ON DELETE CASCADE,
			version INTEGER NOT NULL,
			report_type TEXT NOT NULL,
			content TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			UNIQUE(query_audit_id, version)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartQuery records a new query in the processing state and returns its id.
func (s *Store) StartQuery(ctx context.Context, userID, conversationID, query string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_audit (id, user_id, conversation_id, query_text, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, nullString(conversationID), query, string(StatusProcessing), s.timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting query audit: %w", err)
	}
	return id, nil
}

// exists returns ErrNotFound when id has no query_audit row.
func (s *Store) exists(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM query_audit WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("looking up audit %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("audit %s: %w", id, ErrNotFound)
	}
	return nil
}

// updateQuery runs an UPDATE against one query_audit row and maps a zero
// row count to ErrNotFound.
func (s *Store) updateQuery(ctx context.Context, id, stmt string, args ...any) error {
	res, err := s.db.ExecContext(ctx, stmt, append(args, id)...)
	if err != nil {
		return fmt.Errorf("updating audit %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating audit %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("audit %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetReportID attaches a generated report id to the audit record.
func (s *Store) SetReportID(ctx context.Context, id, reportID string) error {
	return s.updateQuery(ctx, id, `UPDATE query_audit SET report_id = ? WHERE id = ?`, reportID)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(timeLayout, v)
	return t
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
