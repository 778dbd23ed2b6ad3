package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// SlotEventWorker drains slot notifications from the River queue and logs
// them. A slot that became full is logged at warn level for the operators
// watching capacity.
type SlotEventWorker struct {
	river.WorkerDefaults[SlotEventJobArgs]
}

// Work processes a single slot event job.
func (w *SlotEventWorker) Work(ctx context.Context, job *river.Job[SlotEventJobArgs]) error {
	level := slog.LevelInfo
	if job.Args.Event == string(domain.EventFill) {
		level = slog.LevelWarn
	}

	slog.Log(ctx, level, "processing slot event",
		"event", job.Args.Event,
		"warehouse_id", job.Args.WarehouseID,
		"building", job.Args.Building,
		"block", job.Args.Block,
		"row", job.Args.Row,
		"col", job.Args.Col,
		"customer_id", job.Args.CustomerID,
		"bags_delta", job.Args.BagsDelta,
		"filled_bags", job.Args.FilledBags,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
