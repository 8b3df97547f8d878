// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Stage identifies a step of the pipeline state machine.
type Stage int

const (
	StageParseIntent Stage = iota
	StageDecomposeTask
	StageExecuteWorkers
	StageValidateEvidence
	StageSynthesizeResponse
	StageDone
)

var stageNames = [...]string{
	StageParseIntent:        "parse_intent",
	StageDecomposeTask:      "decompose_task",
	StageExecuteWorkers:     "execute_workers",
	StageValidateEvidence:   "validate_evidence",
	StageSynthesizeResponse: "synthesize_response",
	StageDone:               "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// PipelineState is the value threaded through the stages of one invocation.
// Each stage receives the previous stage's state and returns it with only
// its own fields set.
type PipelineState struct {
	Query  string
	UserID string
	Attrs  map[string]any

	Intent   types.Intent
	Subtasks []string
	Workers  []string

	// WorkerResults is ordered by completion.
	WorkerResults []WorkerResult

	Evidence            []types.EvidenceItem
	AgentsUsed          []string
	ConfidenceScore     float64
	PatentRisk          types.PatentRisk
	RegulatoryReadiness *float64

	FinalResponse string
	Stage         Stage
}

// Result converts a finished state into the caller-facing result.
func (st PipelineState) Result() types.Result {
	records := make([]types.WorkerRecord, 0, len(st.WorkerResults))
	for _, r := range st.WorkerResults {
		records = append(records, r.Record)
	}
	return types.Result{
		Response:            st.FinalResponse,
		AgentsUsed:          st.AgentsUsed,
		ConfidenceScore:     st.ConfidenceScore,
		RegulatoryReadiness: st.RegulatoryReadiness,
		PatentRisk:          st.PatentRisk,
		Evidence:            st.Evidence,
		Intent:              st.Intent,
		Subtasks:            st.Subtasks,
		Workers:             records,
	}
}

type stageFunc func(ctx context.Context, st PipelineState, obs Observer) (PipelineState, error)

// Engine runs the analysis pipeline. It is safe for concurrent use; every
// Process call owns its own state.
type Engine struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
	metrics    *Metrics
	timeout    time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records pipeline metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithWorkerTimeout bounds each worker invocation.
func WithWorkerTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New returns an Engine dispatching to workers. Worker names must be unique
// and non-empty.
func New(workers []Worker, opts ...Option) (*Engine, error) {
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}
	byName := make(map[string]Worker, len(workers))
	for _, w := range workers {
		if w == nil {
			return nil, errors.New("nil worker")
		}
		name := w.Name()
		if name == "" {
			return nil, errors.New("worker with empty name")
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("duplicate worker %q", name)
		}
		byName[name] = w
	}

	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("orchestrator")
	e.dispatcher = NewDispatcher(byName, e.timeout, e.logger.Named("dispatch"), e.metrics)
	return e, nil
}

// ProcessOption configures a single Process call.
type ProcessOption func(*processConfig)

type processConfig struct {
	observer Observer
}

// WithObserver streams per-worker provenance records to obs.
func WithObserver(obs Observer) ProcessOption {
	return func(c *processConfig) { c.observer = obs }
}

// Process runs the full pipeline for query. It returns either a complete
// Result or an error, never both. Cancelling ctx cancels outstanding
// workers and yields an error wrapping ErrCancelled; other fatal failures
// are reported as *ProcessingError. Individual worker failures are folded
// into the result and never returned as errors.
func (e *Engine) Process(ctx context.Context, query, userID string, attrs map[string]any, opts ...ProcessOption) (res types.Result, err error) {
	var cfg processConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, span := startSpan(ctx, spanProcess, attribute.String(attrUserID, userID))
	e.metrics.IncActive()
	defer func() {
		e.metrics.DecActive()
		e.metrics.ObservePipeline(outcomeStatus(err))
		markSpan(span, err)
		span.End()
	}()

	st := PipelineState{
		Query:  query,
		UserID: userID,
		Attrs:  maps.Clone(attrs),
		Stage:  StageParseIntent,
	}

	stages := []struct {
		stage Stage
		run   stageFunc
	}{
		{StageParseIntent, e.parseIntent},
		{StageDecomposeTask, e.decomposeTask},
		{StageExecuteWorkers, e.executeWorkers},
		{StageValidateEvidence, e.validateEvidence},
		{StageSynthesizeResponse, e.synthesizeResponse},
	}

	for _, s := range stages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Result{}, cancelled(s.stage, ctxErr)
		}
		st.Stage = s.stage
		st, err = e.runStage(ctx, s.stage, s.run, st, cfg.observer)
		if err != nil {
			return types.Result{}, err
		}
	}
	st.Stage = StageDone
	span.SetAttributes(
		attribute.String(attrIntent, string(st.Intent)),
		attribute.Int(attrEvidence, len(st.Evidence)))

	e.logger.Info("pipeline completed",
		zap.String("user_id", userID),
		zap.String("intent", string(st.Intent)),
		zap.Strings("agents_used", st.AgentsUsed),
		zap.Int("evidence", len(st.Evidence)),
		zap.Float64("confidence", st.ConfidenceScore))

	return st.Result(), nil
}

// runStage executes one stage with timing, tracing, and panic recovery.
func (e *Engine) runStage(ctx context.Context, stage Stage, run stageFunc, st PipelineState, obs Observer) (out PipelineState, err error) {
	ctx, span := startSpan(ctx, spanStage, attribute.String(attrStage, stage.String()))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
		status := outcomeStatus(err)
		e.metrics.ObserveStage(stage, status, time.Since(start))
		markSpan(span, err)
		span.End()
		if err != nil {
			e.logger.Warn("stage failed", zap.Stringer("stage", stage), zap.Error(err))
		}
	}()

	out, err = run(ctx, st, obs)
	if err != nil {
		var perr *ProcessingError
		if !errors.Is(err, ErrCancelled) && !errors.As(err, &perr) {
			err = &ProcessingError{Stage: stage, Err: err}
		}
		return st, err
	}
	e.logger.Debug("stage finished", zap.Stringer("stage", stage), zap.Duration("duration", time.Since(start)))
	return out, nil
}

func (e *Engine) parseIntent(ctx context.Context, st PipelineState, _ Observer) (PipelineState, error) {
	if !utf8.ValidString(st.Query) {
		return st, fmt.Errorf("%w: query is not valid UTF-8", ErrInvalidQuery)
	}
	if strings.TrimSpace(st.Query) == "" {
		return st, fmt.Errorf("%w: query is empty", ErrInvalidQuery)
	}
	st.Intent = Classify(st.Query)
	return st, nil
}

func (e *Engine) decomposeTask(ctx context.Context, st PipelineState, _ Observer) (PipelineState, error) {
	st.Subtasks, st.Workers = Decompose(st.Intent)
	if len(st.Workers) == 0 {
		return st, fmt.Errorf("intent %s has no workers", st.Intent)
	}
	return st, nil
}

func (e *Engine) executeWorkers(ctx context.Context, st PipelineState, obs Observer) (PipelineState, error) {
	results, err := e.dispatcher.Dispatch(ctx, st.Workers, st.Query, st.Attrs, obs)
	if err != nil {
		return st, cancelled(StageExecuteWorkers, err)
	}
	st.WorkerResults = results
	return st, nil
}

func (e *Engine) validateEvidence(ctx context.Context, st PipelineState, _ Observer) (PipelineState, error) {
	agg := Aggregate(st.WorkerResults)
	st.Evidence = agg.Evidence
	st.AgentsUsed = agg.AgentsUsed
	st.ConfidenceScore = agg.ConfidenceScore
	st.PatentRisk = agg.PatentRisk
	readiness := agg.RegulatoryReadiness
	st.RegulatoryReadiness = &readiness
	return st, nil
}

func (e *Engine) synthesizeResponse(ctx context.Context, st PipelineState, _ Observer) (PipelineState, error) {
	st.FinalResponse = Synthesize(st)
	return st, nil
}

func outcomeStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "error"
	}
}
