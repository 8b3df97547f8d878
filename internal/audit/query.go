// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Query is one audited analysis request.
type Query struct {
	ID                  string     `json:"id" yaml:"id"`
	UserID              string     `json:"user_id" yaml:"user_id"`
	ConversationID      string     `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
	QueryText           string     `json:"query_text" yaml:"query_text"`
	Status              Status     `json:"status" yaml:"status"`
	CreatedAt           time.Time  `json:"created_at" yaml:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Response            string     `json:"response,omitempty" yaml:"response,omitempty"`
	ConfidenceScore     *float64   `json:"confidence_score,omitempty" yaml:"confidence_score,omitempty"`
	RegulatoryReadiness *float64   `json:"regulatory_readiness,omitempty" yaml:"regulatory_readiness,omitempty"`
	PatentRisk          string     `json:"patent_risk,omitempty" yaml:"patent_risk,omitempty"`
	ReportID            string     `json:"report_id,omitempty" yaml:"report_id,omitempty"`
	Error               string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Action is one recorded worker action.
type Action struct {
	ID              string         `json:"id" yaml:"id"`
	AgentName       string         `json:"agent_name" yaml:"agent_name"`
	ActionType      string         `json:"action_type" yaml:"action_type"`
	InputData       map[string]any `json:"input_data,omitempty" yaml:"input_data,omitempty"`
	OutputData      map[string]any `json:"output_data,omitempty" yaml:"output_data,omitempty"`
	Reasoning       string         `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Timestamp       time.Time      `json:"timestamp" yaml:"timestamp"`
	ExecutionTimeMS int64          `json:"execution_time_ms" yaml:"execution_time_ms"`
	Success         bool           `json:"success" yaml:"success"`
	Error           string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// Evidence is one recorded evidence source with its attribution.
type Evidence struct {
	ID                 string    `json:"id" yaml:"id"`
	AgentName          string    `json:"agent_name" yaml:"agent_name"`
	types.EvidenceItem `yaml:",inline"`
	Timestamp          time.Time `json:"timestamp" yaml:"timestamp"`
}

// ReportVersion is one stored report rendering.
type ReportVersion struct {
	ID          string         `json:"id" yaml:"id"`
	Version     int            `json:"version" yaml:"version"`
	ReportType  string         `json:"report_type" yaml:"report_type"`
	Content     map[string]any `json:"content" yaml:"content"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
}

// QueryStatus is the progress summary of one audited query.
type QueryStatus struct {
	ID            string     `json:"id" yaml:"id"`
	Status        Status     `json:"status" yaml:"status"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	AgentsUsed    []string   `json:"agents_used" yaml:"agents_used"`
	EvidenceCount int        `json:"evidence_count" yaml:"evidence_count"`
}

// Trail is the complete governance record of one query.
type Trail struct {
	Query    Query           `json:"query" yaml:"query"`
	Actions  []Action        `json:"agent_actions" yaml:"agent_actions"`
	Evidence []Evidence      `json:"evidence_sources" yaml:"evidence_sources"`
	Reports  []ReportVersion `json:"reports" yaml:"reports"`
}

const queryColumns = `id, user_id, conversation_id, query_text, status, created_at, completed_at,
	response, confidence_score, regulatory_readiness, patent_risk, report_id, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (Query, error) {
	var (
		q                                       Query
		conversation, completed, response, risk sql.NullString
		reportID, errMsg                        sql.NullString
		status, created                         string
		confidence, readiness                   sql.NullFloat64
	)
	if err := row.Scan(&q.ID, &q.UserID, &conversation, &q.QueryText, &status, &created, &completed,
		&response, &confidence, &readiness, &risk, &reportID, &errMsg); err != nil {
		return Query{}, err
	}
	q.ConversationID = conversation.String
	q.Status = Status(status)
	q.CreatedAt = parseTime(created)
	if completed.Valid {
		t := parseTime(completed.String)
		q.CompletedAt = &t
	}
	q.Response = response.String
	q.ConfidenceScore = floatPtr(confidence)
	q.RegulatoryReadiness = floatPtr(readiness)
	q.PatentRisk = risk.String
	q.ReportID = reportID.String
	q.Error = errMsg.String
	return q, nil
}

// Get returns the audit record for id.
func (s *Store) Get(ctx context.Context, id string) (Query, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+queryColumns+` FROM query_audit WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Query{}, fmt.Errorf("audit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Query{}, fmt.Errorf("reading audit %s: %w", id, err)
	}
	return q, nil
}

// ListOptions filters List.
type ListOptions struct {
	UserID         string
	ConversationID string
	Status         Status
	Limit          int
}

// List returns audited queries, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Query, error) {
	var (
		where []string
		args  []any
	)
	if opts.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, opts.UserID)
	}
	if opts.ConversationID != "" {
		where = append(where, "conversation_id = ?")
		args = append(args, opts.ConversationID)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}

	stmt := `SELECT ` + queryColumns + ` FROM query_audit`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audits: %w", err)
	}
	defer rows.Close()

	var out []Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning audit: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Status returns the progress summary for id. AgentsUsed lists the agents
// with recorded actions in the order they finished.
func (s *Store) Status(ctx context.Context, id string) (QueryStatus, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return QueryStatus{}, err
	}

	st := QueryStatus{
		ID:          q.ID,
		Status:      q.Status,
		CreatedAt:   q.CreatedAt,
		CompletedAt: q.CompletedAt,
		AgentsUsed:  []string{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_name FROM agent_actions WHERE query_audit_id = ? ORDER BY timestamp, rowid`, id)
	if err != nil {
		return QueryStatus{}, fmt.Errorf("reading agent actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return QueryStatus{}, fmt.Errorf("scanning agent action: %w", err)
		}
		st.AgentsUsed = append(st.AgentsUsed, name)
	}
	if err := rows.Err(); err != nil {
		return QueryStatus{}, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM evidence_sources WHERE query_audit_id = ?`, id,
	).Scan(&st.EvidenceCount); err != nil {
		return QueryStatus{}, fmt.Errorf("counting evidence: %w", err)
	}
	return st, nil
}

// Trail returns the full governance record for id.
func (s *Store) Trail(ctx context.Context, id string) (Trail, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return Trail{}, err
	}
	t := Trail{Query: q}

	if t.Actions, err = s.actions(ctx, id); err != nil {
		return Trail{}, err
	}
	if t.Evidence, err = s.evidence(ctx, id); err != nil {
		return Trail{}, err
	}
	if t.Reports, err = s.Reports(ctx, id); err != nil {
		return Trail{}, err
	}
	return t, nil
}

func (s *Store) actions(ctx context.Context, id string) ([]Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_name, action_type, input_data, output_data, reasoning, timestamp,
			execution_time_ms, success, error_message
		 FROM agent_actions WHERE query_audit_id = ? ORDER BY timestamp, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("reading agent actions: %w", err)
	}
	defer rows.Close()

	out := []Action{}
	for rows.Next() {
		var (
			a                             Action
			input, output, reason, errMsg sql.NullString
			ts                            string
			ms                            sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.AgentName, &a.ActionType, &input, &output, &reason, &ts,
			&ms, &a.Success, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning agent action: %w", err)
		}
		a.InputData = decodeObject(input)
		a.OutputData = decodeObject(output)
		a.Reasoning = reason.String
		a.Timestamp = parseTime(ts)
		a.ExecutionTimeMS = ms.Int64
		a.Error = errMsg.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) evidence(ctx context.Context, id string) ([]Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_name, source_type, source_url, source_id, title, abstract,
			relevance_score, extracted_data, timestamp
		 FROM evidence_sources WHERE query_audit_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("reading evidence sources: %w", err)
	}
	defer rows.Close()

	out := []Evidence{}
	for rows.Next() {
		var (
			e                                         Evidence
			srcURL, srcID, title, abstract, extracted sql.NullString
			score                                     sql.NullFloat64
			ts                                        string
		)
		if err := rows.Scan(&e.ID, &e.AgentName, &e.SourceType, &srcURL, &srcID, &title, &abstract,
			&score, &extracted, &ts); err != nil {
			return nil, fmt.Errorf("scanning evidence source: %w", err)
		}
		e.SourceURL = srcURL.String
		e.SourceID = srcID.String
		e.Title = title.String
		e.Abstract = abstract.String
		e.RelevanceScore = floatPtr(score)
		e.ExtractedData = decodeObject(extracted)
		e.Timestamp = parseTime(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reports returns the stored report versions for id in version order.
func (s *Store) Reports(ctx context.Context, id string) ([]ReportVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, report_type, content, generated_at
		 FROM report_versions WHERE query_audit_id = ? ORDER BY version`, id)
	if err != nil {
		return nil, fmt.Errorf("reading report versions: %w", err)
	}
	defer rows.Close()

	out := []ReportVersion{}
	for rows.Next() {
		var (
			r           ReportVersion
			content, ts string
		)
		if err := rows.Scan(&r.ID, &r.Version, &r.ReportType, &content, &ts); err != nil {
			return nil, fmt.Errorf("scanning report version: %w", err)
		}
		r.Content = decodeObject(sql.NullString{String: content, Valid: true})
		r.GeneratedAt = parseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// decodeObject parses a JSON object column; malformed or empty values yield nil.
func decodeObject(v sql.NullString) map[string]any {
	if !v.Valid || v.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(v.String), &m); err != nil {
		return nil
	}
	return m
}
