package distribution

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	attrOperation   = attribute.Key("distribution.operation")
	attrCaller      = attribute.Key("distribution.caller")
	attrBeneficiary = attribute.Key("distribution.beneficiary")
	attrAmount      = attribute.Key("distribution.amount")
	attrBatchSize   = attribute.Key("distribution.batch_size")
	attrLocked      = attribute.Key("distribution.locked")
)

func (l *Ledger) startSpan(ctx context.Context, op Operation, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attrOperation.String(string(op)))
	return l.tracer.Start(ctx, "distribution."+string(op), trace.WithAttributes(attrs...))
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
