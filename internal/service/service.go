// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package service hosts the analysis pipeline behind a request/response API
// that records a governance audit trail and schedules report generation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/audit"
	"github.com/pdiddy/repurposing-engine/internal/orchestrator"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// DefaultUserID is recorded when a request carries no user id.
const DefaultUserID = "anonymous"

// Processor runs the analysis pipeline. *orchestrator.Engine implements it.
type Processor interface {
	Process(ctx context.Context, query, userID string, attrs map[string]any, opts ...orchestrator.ProcessOption) (types.Result, error)
}

// AuditStore records the governance trail. *audit.Store implements it.
type AuditStore interface {
	StartQuery(ctx context.Context, userID, conversationID, query string) (string, error)
	RecordAction(ctx context.Context, id string, rec types.WorkerRecord) error
	RecordEvidenceBatch(ctx context.Context, id, agent string, items []types.EvidenceItem) error
	CompleteQuery(ctx context.Context, id string, res types.Result, cause error) error
	Status(ctx context.Context, id string) (audit.QueryStatus, error)
	Trail(ctx context.Context, id string) (audit.Trail, error)
}

// Reporter schedules report generation. *report.Queue implements it.
type Reporter interface {
	Enqueue(ctx context.Context, auditID string, res types.Result) error
}

// Request is one analysis request.
type Request struct {
	Query          string         `json:"query" yaml:"query"`
	UserID         string         `json:"user_id" yaml:"user_id"`
	ConversationID string         `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
	Context        map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
}

// Response is the result of one analysis together with its audit id.
type Response struct {
	types.Result   `yaml:",inline"`
	AuditID        string `json:"audit_id" yaml:"audit_id"`
	ConversationID string `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
}

// Service runs analyses and keeps their audit trail.
type Service struct {
	engine  Processor
	audit   AuditStore
	reports Reporter
	logger  *zap.Logger
}

// New returns a Service. reports may be nil to skip report generation.
func New(engine Processor, store AuditStore, reports Reporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:  engine,
		audit:   store,
		reports: reports,
		logger:  logger.Named("service"),
	}
}

// Analyze runs req through the pipeline. The audit record is opened before
// the pipeline starts and every finished worker is recorded as it
// completes. On success the cited evidence is recorded, the record is
// completed, and report generation is queued. On failure the record is
// closed as failed or cancelled and the pipeline error is returned with the
// audit id in the Response.
func (s *Service) Analyze(ctx context.Context, req Request) (Response, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = DefaultUserID
	}

	ctx, span := otel.Tracer("repurposing.service").Start(ctx, "service.analyze")
	defer span.End()

	auditID, err := s.audit.StartQuery(ctx, userID, req.ConversationID, req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, fmt.Errorf("starting audit: %w", err)
	}
	span.SetAttributes(attribute.String("repurposing.audit_id", auditID))
	logger := s.logger.With(zap.String("audit_id", auditID), zap.String("user_id", userID))
	resp := Response{AuditID: auditID, ConversationID: req.ConversationID}

	// Audit writes must land even when the caller has gone away.
	auditCtx := context.WithoutCancel(ctx)

	obs := orchestrator.ObserverFunc(func(_ context.Context, rec types.WorkerRecord) {
		if err := s.audit.RecordAction(auditCtx, auditID, rec); err != nil {
			logger.Warn("recording worker action failed", zap.String("worker", rec.Worker), zap.Error(err))
		}
	})

	res, err := s.engine.Process(ctx, req.Query, userID, req.Context, orchestrator.WithObserver(obs))
	if err != nil {
		if cerr := s.audit.CompleteQuery(auditCtx, auditID, types.Result{}, err); cerr != nil {
			logger.Error("closing failed audit record", zap.Error(cerr))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("analysis failed", zap.Error(err))
		return resp, fmt.Errorf("analysis %s: %w", auditID, err)
	}

	s.recordEvidence(auditCtx, logger, auditID, res.Evidence)

	if err := s.audit.CompleteQuery(auditCtx, auditID, res, nil); err != nil {
		logger.Error("completing audit record", zap.Error(err))
	}

	if s.reports != nil {
		if err := s.reports.Enqueue(ctx, auditID, res); err != nil {
			logger.Warn("report generation not scheduled", zap.Error(err))
		}
	}

	span.SetStatus(codes.Ok, "")
	resp.Result = res
	return resp, nil
}

// recordEvidence stores evidence grouped by the agent that produced it,
// keeping first-seen agent order.
func (s *Service) recordEvidence(ctx context.Context, logger *zap.Logger, auditID string, evidence []types.EvidenceItem) {
	var order []string
	groups := make(map[string][]types.EvidenceItem)
	for _, e := range evidence {
		agent := AgentForSource(e.SourceType)
		if _, ok := groups[agent]; !ok {
			order = append(order, agent)
		}
		groups[agent] = append(groups[agent], e)
	}
	for _, agent := range order {
		if err := s.audit.RecordEvidenceBatch(ctx, auditID, agent, groups[agent]); err != nil {
			logger.Warn("recording evidence failed", zap.String("agent", agent), zap.Error(err))
		}
	}
}

// sourceAgents maps evidence source types to the built-in worker that
// emits them.
var sourceAgents = map[string]string{
	types.SourceLiterature: orchestrator.WorkerLiterature,
	types.SourceTrial:      orchestrator.WorkerClinical,
	types.SourcePatent:     orchestrator.WorkerPatent,
	types.SourceRegulatory: orchestrator.WorkerRegulatory,
	types.SourceMarket:     orchestrator.WorkerMarket,
	types.SourceInternal:   orchestrator.WorkerInternal,
}

// AgentForSource returns the worker that produces evidence of sourceType,
// or "unattributed" for source types no built-in worker emits.
func AgentForSource(sourceType string) string {
	if a, ok := sourceAgents[sourceType]; ok {
		return a
	}
	return "unattributed"
}

// Status returns the progress summary of an audited analysis.
func (s *Service) Status(ctx context.Context, auditID string) (audit.QueryStatus, error) {
	return s.audit.Status(ctx, auditID)
}

// Trail returns the full governance record of an audited analysis.
func (s *Service) Trail(ctx context.Context, auditID string) (audit.Trail, error) {
	return s.audit.Trail(ctx, auditID)
}

// IsNotFound reports whether err means the audit id is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, audit.ErrNotFound)
}
