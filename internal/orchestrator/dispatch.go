// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// WorkerResult is the outcome of one dispatched worker with its provenance record.
type WorkerResult struct {
	Worker  string
	Outcome types.WorkerOutcome
	Record  types.WorkerRecord
}

// Dispatcher runs workers concurrently and isolates their failures.
type Dispatcher struct {
	workers map[string]Worker
	timeout time.Duration
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewDispatcher returns a Dispatcher over workers, keyed by Name. timeout
// bounds each invocation; zero means no bound beyond the caller's context.
func NewDispatcher(workers map[string]Worker, timeout time.Duration, logger *zap.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		workers: workers,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Dispatch invokes every named worker concurrently and waits for all of them.
// A failure in one worker never cancels the others: errors, panics,
// timeouts, unregistered names, and malformed outcomes all become error
// outcomes. Results are returned in completion order, one per name.
//
// Each worker receives its own copy of attrs. obs, when non-nil, receives
// each worker's record as it finishes.
//
// If ctx is done when the workers have returned, Dispatch discards every
// outcome and returns the context error.
func (d *Dispatcher) Dispatch(ctx context.Context, names []string, query string, attrs map[string]any, obs Observer) ([]WorkerResult, error) {
	results := make([]WorkerResult, len(names))
	finished := make([]int64, len(names))

	var (
		mu  sync.Mutex
		seq int64
		g   errgroup.Group
	)

	for i, name := range names {
		g.Go(func() error {
			r := d.invoke(ctx, name, query, maps.Clone(attrs))

			// The completion number and the observer call share one critical
			// section, so observers see records in the returned order.
			mu.Lock()
			defer mu.Unlock()
			seq++
			finished[i] = seq
			results[i] = r
			if obs != nil {
				obs.WorkerFinished(ctx, r.Record)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return finished[idx[a]] < finished[idx[b]] })

	ordered := make([]WorkerResult, len(names))
	for pos, i := range idx {
		ordered[pos] = results[i]
	}
	return ordered, nil
}

// invoke runs a single worker and builds its provenance record.
func (d *Dispatcher) invoke(ctx context.Context, name, query string, attrs map[string]any) WorkerResult {
	ctx, span := startSpan(ctx, spanWorker, attribute.String(attrWorker, name))
	defer span.End()

	start := d.now()
	outcome := d.call(ctx, name, query, attrs)
	end := d.now()

	rec := types.WorkerRecord{
		Worker:        name,
		StartedAt:     start,
		FinishedAt:    end,
		Duration:      end.Sub(start),
		Success:       !outcome.IsError(),
		Error:         outcome.Err,
		EvidenceCount: len(outcome.Evidence),
		Confidence:    outcome.Confidence,
	}

	span.SetAttributes(attribute.Int(attrEvidence, rec.EvidenceCount))
	if outcome.IsError() {
		markSpan(span, errors.New(outcome.Err))
		d.logger.Warn("worker failed",
			zap.String("worker", name),
			zap.Duration("duration", rec.Duration),
			zap.String("error", outcome.Err))
	} else {
		markSpan(span, nil)
		d.logger.Debug("worker finished",
			zap.String("worker", name),
			zap.Duration("duration", rec.Duration),
			zap.Int("evidence", rec.EvidenceCount))
	}
	d.metrics.ObserveWorker(name, rec.Success, rec.Duration)

	return WorkerResult{Worker: name, Outcome: outcome, Record: rec}
}

type callResult struct {
	outcome types.WorkerOutcome
	err     error
}

// call invokes the worker on its own goroutine so that a worker ignoring
// ctx still cannot hold the batch past its deadline. The result channel is
// buffered so an abandoned worker can always deliver and exit.
func (d *Dispatcher) call(ctx context.Context, name, query string, attrs map[string]any) types.WorkerOutcome {
	w, ok := d.workers[name]
	if !ok || w == nil {
		return types.Failed(fmt.Sprintf("worker %q is not registered", name))
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("worker panicked",
					zap.String("worker", name),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				done <- callResult{err: fmt.Errorf("worker panicked: %v", r)}
			}
		}()
		out, err := w.Process(ctx, query, attrs)
		done <- callResult{outcome: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() != nil {
				return types.Failed(fmt.Sprintf("worker timed out after %s", d.timeout))
			}
			return types.Failed(res.err.Error())
		}
		if err := validateOutcome(res.outcome); err != nil {
			return types.Failed(fmt.Sprintf("malformed outcome: %v", err))
		}
		return res.outcome
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && d.timeout > 0 {
			return types.Failed(fmt.Sprintf("worker timed out after %s", d.timeout))
		}
		return types.Failed(ctx.Err().Error())
	}
}

// validateOutcome rejects outcomes that break the WorkerOutcome contract.
func validateOutcome(o types.WorkerOutcome) error {
	if o.IsError() {
		if o.Summary != "" || len(o.Evidence) > 0 || len(o.Metadata) > 0 {
			return errors.New("outcome carries both an error and a payload")
		}
		return nil
	}
	if math.IsNaN(o.Confidence) || o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", o.Confidence)
	}
	for i, ev := range o.Evidence {
		if s := ev.RelevanceScore; s != nil && (math.IsNaN(*s) || *s < 0 || *s > 1) {
			return fmt.Errorf("evidence %d relevance %v outside [0,1]", i, *s)
		}
	}
	return nil
}
