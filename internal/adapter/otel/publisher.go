package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/grainvault/internal/domain"
)

const meterName = tracerName

// TracingPublisher wraps a domain.EventPublisher with OpenTelemetry tracing.
type TracingPublisher struct {
	next   domain.EventPublisher
	tracer trace.Tracer
}

// Compile-time check: TracingPublisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.EventPublisher) *TracingPublisher {
	return &TracingPublisher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.SlotEvent) (err error) {
	attrs := append(slotAttributes(event.Slot),
		attribute.String("event.type", string(event.Event)),
		attribute.String("customer.id", event.CustomerID),
		attribute.Int("event.bags_delta", event.BagsDelta),
	)
	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish", trace.WithAttributes(attrs...))
	defer func() { endSpan(span, err) }()

	return p.next.Publish(ctx, event)
}

// MetricsPublisher counts slot events and the bags they moved before
// handing them on.
type MetricsPublisher struct {
	next   domain.EventPublisher
	events metric.Int64Counter
	bags   metric.Int64UpDownCounter
}

var _ domain.EventPublisher = (*MetricsPublisher)(nil)

// NewMetricsPublisher registers the slot instruments on the global meter
// provider.
func NewMetricsPublisher(next domain.EventPublisher) (*MetricsPublisher, error) {
	return NewMetricsPublisherWithMeter(next, otel.Meter(meterName))
}

// NewMetricsPublisherWithMeter registers the slot instruments on meter.
func NewMetricsPublisherWithMeter(next domain.EventPublisher, meter metric.Meter) (*MetricsPublisher, error) {
	events, err := meter.Int64Counter("grainvault.slot.events",
		metric.WithDescription("Committed slot allocations and deallocations"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating slot event counter: %w", err)
	}

	bags, err := meter.Int64UpDownCounter("grainvault.slot.bags",
		metric.WithDescription("Net bags stored through the allocation engine"),
		metric.WithUnit("{bag}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bag counter: %w", err)
	}

	return &MetricsPublisher{next: next, events: events, bags: bags}, nil
}

func (p *MetricsPublisher) Publish(ctx context.Context, event domain.SlotEvent) error {
	attrs := metric.WithAttributes(
		attribute.String("event.type", string(event.Event)),
		attribute.String("warehouse.id", event.Slot.WarehouseID),
	)
	p.events.Add(ctx, 1, attrs)
	p.bags.Add(ctx, int64(event.BagsDelta), attrs)

	return p.next.Publish(ctx, event)
}
