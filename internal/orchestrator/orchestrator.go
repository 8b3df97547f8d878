// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator routes a free-text analytical question to a set of
// specialized workers and reconciles their outputs into one scored result.
//
// A call to Engine.Process runs a fixed stage sequence: intent
// classification, task decomposition, concurrent worker dispatch,
// evidence aggregation, and response synthesis. Workers implement the
// Worker interface; the engine knows nothing about their internals.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Worker researches one evidence domain. Implementations should honor ctx
// cancellation and report failures through the returned error or an error
// outcome; the dispatcher also recovers panics.
type Worker interface {
	Name() string
	Process(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error)
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc struct {
	WorkerName string
	Fn         func(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error)
}

// Name returns the worker name.
func (w WorkerFunc) Name() string { return w.WorkerName }

// Process calls Fn.
func (w WorkerFunc) Process(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error) {
	return w.Fn(ctx, query, attrs)
}

// Observer receives a provenance record for every dispatched worker as soon
// as it finishes. Calls for one invocation are serialized.
type Observer interface {
	WorkerFinished(ctx context.Context, rec types.WorkerRecord)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, rec types.WorkerRecord)

// WorkerFinished calls f.
func (f ObserverFunc) WorkerFinished(ctx context.Context, rec types.WorkerRecord) { f(ctx, rec) }

var (
	// ErrCancelled is returned when the caller cancels an invocation or its
	// deadline expires. The context error is wrapped alongside it.
	ErrCancelled = errors.New("pipeline cancelled")

	// ErrInvalidQuery is returned for empty or non-UTF-8 query text.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNoWorkers is returned by New when no workers are supplied.
	ErrNoWorkers = errors.New("no workers registered")
)

// ProcessingError reports a pipeline-fatal failure and the stage it occurred in.
type ProcessingError struct {
	Stage Stage
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed at %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// cancelled wraps ctxErr so both ErrCancelled and the context error match.
func cancelled(stage Stage, ctxErr error) error {
	return fmt.Errorf("%w during %s: %w", ErrCancelled, stage, ctxErr)
}
