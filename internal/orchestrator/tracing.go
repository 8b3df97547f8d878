// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceScope = "repurposing.orchestrator"

	spanProcess = "pipeline.process"
	spanStage   = "pipeline.stage"
	spanWorker  = "pipeline.worker"

	attrUserID   = "repurposing.user_id"
	attrIntent   = "repurposing.intent"
	attrStage    = "repurposing.stage"
	attrWorker   = "repurposing.worker"
	attrStatus   = "repurposing.status"
	attrEvidence = "repurposing.evidence_count"
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(traceScope).Start(ctx, name, trace.WithAttributes(attrs...))
}

func markSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(attrStatus, "error"))
		return
	}
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.String(attrStatus, "success"))
}
