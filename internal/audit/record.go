// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// RecordAction stores the provenance record of one worker invocation as an
// analyze action.
func (s *Store) RecordAction(ctx context.Context, id string, rec types.WorkerRecord) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}

	input, err := marshalJSON(map[string]any{
		"started_at": rec.StartedAt,
	})
	if err != nil {
		return err
	}
	output, err := marshalJSON(map[string]any{
		"evidence_count": rec.EvidenceCount,
		"confidence":     rec.Confidence,
		"finished_at":    rec.FinishedAt,
	})
	if err != nil {
		return err
	}

	ts := s.timestamp()
	if !rec.FinishedAt.IsZero() {
		ts = rec.FinishedAt.UTC().Format(timeLayout)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agent_actions (id, query_audit_id, agent_name, action_type, input_data, output_data,
			reasoning, timestamp, execution_time_ms, success, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), id, rec.Worker, ActionAnalyze, input, output,
		nullString(reasoning(rec)), ts, rec.Duration.Milliseconds(), rec.Success, nullString(rec.Error),
	)
	if err != nil {
		return fmt.Errorf("inserting agent action: %w", err)
	}
	return nil
}

func reasoning(rec types.WorkerRecord) string {
	if !rec.Success {
		return ""
	}
	return fmt.Sprintf("returned %d evidence items at confidence %.2f", rec.EvidenceCount, rec.Confidence)
}

// RecordEvidence stores one cited evidence item attributed to agent.
func (s *Store) RecordEvidence(ctx context.Context, id, agent string, item types.EvidenceItem) error {
	return s.RecordEvidenceBatch(ctx, id, agent, []types.EvidenceItem{item})
}

// RecordEvidenceBatch stores several evidence items in one transaction.
func (s *Store) RecordEvidenceBatch(ctx context.Context, id, agent string, items []types.EvidenceItem) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evidence_sources (id, query_audit_id, agent_name, source_type, source_url, source_id,
			title, abstract, relevance_score, extracted_data, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing evidence insert: %w", err)
	}
	defer stmt.Close()

	ts := s.timestamp()
	for _, it := range items {
		var extracted any
		if len(it.ExtractedData) > 0 {
			data, err := marshalJSON(it.ExtractedData)
			if err != nil {
				return err
			}
			extracted = data
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), id, agent, it.SourceType, nullString(it.SourceURL), nullString(it.SourceID),
			nullString(it.Title), nullString(it.Abstract), nullFloat(it.RelevanceScore), extracted, ts,
		); err != nil {
			return fmt.Errorf("inserting evidence %s: %w", it.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing evidence: %w", err)
	}
	return nil
}

// CompleteQuery closes the audit record. On success the result's response
// and scores are stored and the status becomes completed. Otherwise the
// status becomes failed, or cancelled when cause wraps a context error.
func (s *Store) CompleteQuery(ctx context.Context, id string, res types.Result, cause error) error {
	ts := s.timestamp()
	if cause == nil {
		return s.updateQuery(ctx, id,
			`UPDATE query_audit SET status = ?, completed_at = ?, response = ?, confidence_score = ?,
				regulatory_readiness = ?, patent_risk = ?, error_message = NULL
			 WHERE id = ?`,
			string(StatusCompleted), ts, res.Response, res.ConfidenceScore,
			nullFloat(res.RegulatoryReadiness), nullString(string(res.PatentRisk)),
		)
	}

	status := StatusFailed
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		status = StatusCancelled
	}
	return s.updateQuery(ctx, id,
		`UPDATE query_audit SET status = ?, completed_at = ?, error_message = ? WHERE id = ?`,
		string(status), ts, cause.Error(),
	)
}

// SaveReportVersion stores a rendered report. content is serialized as JSON.
func (s *Store) SaveReportVersion(ctx context.Context, id string, version int, reportType string, content any) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	data, err := marshalJSON(content)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO report_versions (id, query_audit_id, version, report_type, content, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(query_audit_id, version) DO UPDATE SET
			report_type = excluded.report_type,
			content = excluded.content,
			generated_at = excluded.generated_at`,
		uuid.NewString(), id, version, reportType, data, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting report version %d: %w", version, err)
	}
	return nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding JSON: %w", err)
	}
	return string(data), nil
}
