package otel

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/grainvault/internal/domain"
)

const tracerName = "github.com/neomorfeo/grainvault/internal/adapter/otel"

// endSpan records err on the span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func slotAttributes(ref domain.SlotRef) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("warehouse.id", ref.WarehouseID),
		attribute.Int("slot.building", ref.Building),
		attribute.String("slot.block", ref.Block),
		attribute.Int("slot.row", ref.Row),
		attribute.Int("slot.col", ref.Col),
	}
}

// TracingWarehouseRepository wraps a domain.WarehouseRepository with
// OpenTelemetry tracing.
type TracingWarehouseRepository struct {
	next   domain.WarehouseRepository
	tracer trace.Tracer
}

// Compile-time check: TracingWarehouseRepository implements domain.WarehouseRepository.
var _ domain.WarehouseRepository = (*TracingWarehouseRepository)(nil)

// NewTracingWarehouseRepository creates a tracing decorator around the given repository.
func NewTracingWarehouseRepository(next domain.WarehouseRepository) *TracingWarehouseRepository {
	return &TracingWarehouseRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingWarehouseRepository) Create(ctx context.Context, w domain.Warehouse) (err error) {
	ctx, span := r.tracer.Start(ctx, "WarehouseRepository.Create",
		trace.WithAttributes(
			attribute.String("warehouse.id", w.ID),
			attribute.String("warehouse.name", w.Name),
			attribute.Int("warehouse.total_slots", w.TotalSlots),
		),
	)
	defer func() { endSpan(span, err) }()

	return r.next.Create(ctx, w)
}

func (r *TracingWarehouseRepository) GetByID(ctx context.Context, id string) (w domain.Warehouse, err error) {
	ctx, span := r.tracer.Start(ctx, "WarehouseRepository.GetByID",
		trace.WithAttributes(attribute.String("warehouse.id", id)),
	)
	defer func() { endSpan(span, err) }()

	return r.next.GetByID(ctx, id)
}

func (r *TracingWarehouseRepository) GetByName(ctx context.Context, name string) (w domain.Warehouse, err error) {
	ctx, span := r.tracer.Start(ctx, "WarehouseRepository.GetByName",
		trace.WithAttributes(attribute.String("warehouse.name", name)),
	)
	defer func() { endSpan(span, err) }()

	return r.next.GetByName(ctx, name)
}

func (r *TracingWarehouseRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Warehouse, error) {
	ctx, span := r.tracer.Start(ctx, "WarehouseRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)

	if filter.OwnerID != "" {
		span.SetAttributes(attribute.String("filter.owner_id", filter.OwnerID))
	}
	if filter.Active != nil {
		span.SetAttributes(attribute.Bool("filter.active", *filter.Active))
	}

	warehouses, err := r.next.List(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(warehouses)))
	}
	endSpan(span, err)
	return warehouses, err
}

func (r *TracingWarehouseRepository) Update(ctx context.Context, w domain.Warehouse) (err error) {
	ctx, span := r.tracer.Start(ctx, "WarehouseRepository.Update",
		trace.WithAttributes(
			attribute.String("warehouse.id", w.ID),
			attribute.String("warehouse.name", w.Name),
		),
	)
	defer func() { endSpan(span, err) }()

	return r.next.Update(ctx, w)
}

func (r *TracingWarehouseRepository) Deactivate(ctx context.Context, id string, at time.Time) (err error) {
	ctx, span := r.tracer.Start(ctx, "WarehouseRepository.Deactivate",
		trace.WithAttributes(attribute.String("warehouse.id", id)),
	)
	defer func() { endSpan(span, err) }()

	return r.next.Deactivate(ctx, id, at)
}

// TracingSlotRepository wraps a domain.SlotRepository with OpenTelemetry
// tracing. Version conflicts are recorded as span events, not errors, since
// the allocation engine retries them.
type TracingSlotRepository struct {
	next   domain.SlotRepository
	tracer trace.Tracer
}

var _ domain.SlotRepository = (*TracingSlotRepository)(nil)

func NewTracingSlotRepository(next domain.SlotRepository) *TracingSlotRepository {
	return &TracingSlotRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingSlotRepository) GetSlot(ctx context.Context, ref domain.SlotRef) (s domain.Slot, err error) {
	ctx, span := r.tracer.Start(ctx, "SlotRepository.GetSlot",
		trace.WithAttributes(slotAttributes(ref)...),
	)
	defer func() { endSpan(span, err) }()

	return r.next.GetSlot(ctx, ref)
}

func (r *TracingSlotRepository) SaveSlot(ctx context.Context, slot domain.Slot) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "SlotRepository.SaveSlot",
		trace.WithAttributes(slotAttributes(slot.Ref)...),
	)
	span.SetAttributes(
		attribute.Int64("slot.version", slot.Version),
		attribute.Int("slot.filled_bags", slot.FilledBags()),
	)

	version, err := r.next.SaveSlot(ctx, slot)
	if errors.Is(err, domain.ErrVersionConflict) {
		span.AddEvent("version conflict")
		span.End()
		return version, err
	}
	endSpan(span, err)
	return version, err
}

func (r *TracingSlotRepository) CustomerHoldings(ctx context.Context, customerID string) ([]domain.Holding, error) {
	ctx, span := r.tracer.Start(ctx, "SlotRepository.CustomerHoldings",
		trace.WithAttributes(attribute.String("customer.id", customerID)),
	)

	holdings, err := r.next.CustomerHoldings(ctx, customerID)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(holdings)))
	}
	endSpan(span, err)
	return holdings, err
}
