// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("report queue closed")

// DefaultJobTimeout bounds a single report job.
const DefaultJobTimeout = 30 * time.Second

// Saver renders and stores reports for one audited result.
type Saver interface {
	Save(ctx context.Context, auditID string, res types.Result) (string, error)
}

// Outcome describes a finished report job.
type Outcome struct {
	AuditID  string
	ReportID string
	Err      error
}

type job struct {
	ctx     context.Context
	auditID string
	res     types.Result
}

// Queue runs report generation in a background goroutine so callers do not
// wait on it. Jobs run in submission order. Close stops intake and waits
// for queued jobs to finish.
type Queue struct {
	saver   Saver
	logger  *zap.Logger
	timeout time.Duration
	onDone  func(Outcome)

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueLogger sets the logger for job failures.
func WithQueueLogger(l *zap.Logger) QueueOption {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithJobTimeout bounds each job; zero or negative disables the bound.
func WithJobTimeout(d time.Duration) QueueOption {
	return func(q *Queue) { q.timeout = d }
}

// WithOnDone registers a callback invoked from the queue goroutine after
// each job.
func WithOnDone(fn func(Outcome)) QueueOption {
	return func(q *Queue) { q.onDone = fn }
}

// NewQueue starts a queue that buffers up to size jobs before Enqueue blocks.
func NewQueue(saver Saver, size int, opts ...QueueOption) *Queue {
	if size < 0 {
		size = 0
	}
	q := &Queue{
		saver:   saver,
		logger:  zap.NewNop(),
		timeout: DefaultJobTimeout,
		jobs:    make(chan job, size),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	go q.run()
	return q
}

// Enqueue schedules report generation for res. The job keeps ctx's values
// but not its cancellation, so it outlives the request that submitted it.
// Enqueue blocks while the buffer is full unless ctx is done first.
func (q *Queue) Enqueue(ctx context.Context, auditID string, res types.Result) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	j := job{ctx: context.WithoutCancel(ctx), auditID: auditID, res: res}
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits until every queued job has run or
// ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for j := range q.jobs {
		q.process(j)
	}
}

func (q *Queue) process(j job) {
	ctx := j.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	out := Outcome{AuditID: j.auditID}
	func() {
		defer func() {
			if r := recover(); r != nil {
				out.Err = errors.New("report job panicked")
				q.logger.Error("report job panicked", zap.String("audit_id", j.auditID), zap.Any("panic", r))
			}
		}()
		out.ReportID, out.Err = q.saver.Save(ctx, j.auditID, j.res)
	}()

	if out.Err != nil {
		q.logger.Error("report generation failed", zap.String("audit_id", j.auditID), zap.Error(out.Err))
	} else {
		q.logger.Info("report generated", zap.String("audit_id", j.auditID), zap.String("report_id", out.ReportID))
	}
	if q.onDone != nil {
		q.onDone(out)
	}
}
