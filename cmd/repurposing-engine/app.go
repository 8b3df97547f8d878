// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/audit"
	"github.com/pdiddy/repurposing-engine/internal/knowledge"
	"github.com/pdiddy/repurposing-engine/internal/orchestrator"
	"github.com/pdiddy/repurposing-engine/internal/report"
	"github.com/pdiddy/repurposing-engine/internal/service"
	"github.com/pdiddy/repurposing-engine/internal/workers"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// app holds the long-lived components behind the analysis commands.
type app struct {
	cfg       types.AppConfig
	registry  *prometheus.Registry
	audit     *audit.Store
	knowledge *knowledge.Store
	reports   *report.Queue
	service   *service.Service
}

// openApp wires the engine, audit store, knowledge base, and report queue
// from cfg. The knowledge base is optional: when its index cannot be opened
// the internal worker reports an error for every query.
func openApp(cfg types.AppConfig, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}

	store, err := audit.NewStore(cfg.Audit.DBPath)
	if err != nil {
		return nil, err
	}
	a.audit = store

	deps := workers.Deps{
		Client: &http.Client{Timeout: cfg.Sources.Timeout},
		Logger: log,
	}
	if kb, err := knowledge.NewStore(cfg.Knowledge); err != nil {
		log.Warn("knowledge base unavailable", zap.Error(err))
	} else {
		a.knowledge = kb
		deps.Knowledge = kb
	}
	if cfg.Cache.Enabled {
		deps.Cache = workers.NewCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithWorkerTimeout(cfg.Engine.WorkerTimeout),
	}
	if cfg.Telemetry.Metrics {
		opts = append(opts, orchestrator.WithMetrics(orchestrator.MustNewMetrics(a.registry)))
	}
	engine, err := orchestrator.New(workers.Registry(cfg, deps), opts...)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	gen := &report.Generator{Store: store}
	a.reports = report.NewQueue(gen, cfg.Report.QueueSize,
		report.WithQueueLogger(log),
		report.WithOnDone(func(o report.Outcome) {
			if o.Err == nil {
				log.Info("reports generated", zap.String("audit_id", o.AuditID), zap.String("report_id", o.ReportID))
			}
		}))

	a.service = service.New(engine, store, a.reports, log)
	return a, nil
}

// Close drains pending report jobs and closes the stores.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.reports != nil {
		if err := a.reports.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("draining reports: %w", err))
		}
	}
	if a.knowledge != nil {
		errs = append(errs, a.knowledge.Close())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	return errors.Join(errs...)
}

// writeMetrics prints the collected pipeline metrics to stderr when
// telemetry is enabled.
func (a *app) writeMetrics() error {
	if !a.cfg.Telemetry.Metrics {
		return nil
	}
	mfs, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	return writeMetricFamilies(os.Stderr, mfs)
}

// openAudit opens only the audit store, for read-side commands.
func openAudit(cfg types.AppConfig) (*audit.Store, error) {
	return audit.NewStore(cfg.Audit.DBPath)
}
