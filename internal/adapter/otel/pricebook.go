package otel

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// TracingPriceBook wraps a domain.PriceBook with OpenTelemetry tracing.
type TracingPriceBook struct {
	next   domain.PriceBook
	tracer trace.Tracer
}

var _ domain.PriceBook = (*TracingPriceBook)(nil)

func NewTracingPriceBook(next domain.PriceBook) *TracingPriceBook {
	return &TracingPriceBook{next: next, tracer: otel.Tracer(tracerName)}
}

func (b *TracingPriceBook) PricePerQuintal(ctx context.Context, grainType string) (price decimal.Decimal, err error) {
	ctx, span := b.tracer.Start(ctx, "PriceBook.PricePerQuintal",
		trace.WithAttributes(attribute.String("grain.type", grainType)),
	)
	defer func() {
		if err == nil {
			span.SetAttributes(attribute.String("price.per_quintal", price.String()))
		}
		endSpan(span, err)
	}()

	return b.next.PricePerQuintal(ctx, grainType)
}
