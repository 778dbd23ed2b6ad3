package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// SlotEventJobArgs is the JSON payload of one slot notification. It carries
// the committed slot state so the worker never reads the slot again.
type SlotEventJobArgs struct {
	Event       string    `json:"event"`
	WarehouseID string    `json:"warehouse_id"`
	Building    int       `json:"building"`
	Block       string    `json:"block"`
	Row         int       `json:"row"`
	Col         int       `json:"col"`
	CustomerID  string    `json:"customer_id"`
	BagsDelta   int       `json:"bags_delta"`
	Status      string    `json:"status"`
	FilledBags  int       `json:"filled_bags"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (SlotEventJobArgs) Kind() string { return "slot.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a slot event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.SlotEvent) error {
	_, err := p.client.Insert(ctx, argsFor(event), nil)
	if err != nil {
		return fmt.Errorf("enqueuing slot event job: %w", err)
	}
	return nil
}

func argsFor(e domain.SlotEvent) SlotEventJobArgs {
	return SlotEventJobArgs{
		Event:       string(e.Event),
		WarehouseID: e.Slot.WarehouseID,
		Building:    e.Slot.Building,
		Block:       e.Slot.Block,
		Row:         e.Slot.Row,
		Col:         e.Slot.Col,
		CustomerID:  e.CustomerID,
		BagsDelta:   e.BagsDelta,
		Status:      string(e.Status),
		FilledBags:  e.FilledBags,
		OccurredAt:  e.OccurredAt,
	}
}
