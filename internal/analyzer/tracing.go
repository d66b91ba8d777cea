package analyzer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("deepsearch.analyzer")

func startBuildSpan(ctx context.Context, seeds int, threshold float64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Analyzer.BuildGraphFromEntities",
		trace.WithAttributes(
			attribute.Int("analyzer.seeds", seeds),
			attribute.Float64("analyzer.threshold", threshold),
		),
	)
}

func startExpandSpan(ctx context.Context, opts ExpandOptions) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Analyzer.ExpandNetwork",
		trace.WithAttributes(
			attribute.Int("analyzer.order", opts.Order),
			attribute.Int("analyzer.max_per_entity", opts.MaxPerEntity),
			attribute.Float64("analyzer.threshold", opts.Threshold),
			attribute.Bool("analyzer.cross_link", opts.CrossLink),
		),
	)
}

func startScoreSpan(ctx context.Context, op, subject string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Scorer."+op,
		trace.WithAttributes(attribute.String("scorer.subject", subject)),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
