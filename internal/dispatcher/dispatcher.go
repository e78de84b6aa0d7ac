package dispatcher

import (
	"context"
	"time"

	"chathub/internal/services"
	"chathub/pkg/logger"

	"go.uber.org/zap"
)

// Dispatcher polls for due scheduled messages on a fixed period and hands
// each to the schedule service for materialization. One row failing never
// stops the rest of the batch.
type Dispatcher struct {
	schedules *services.ScheduleService
	clock     func() time.Time
	period    time.Duration
	batchSize int
	log       *logger.Logger
}

func New(schedules *services.ScheduleService, period time.Duration, batchSize int, log *logger.Logger) *Dispatcher {
	if period <= 0 {
		period = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Dispatcher{
		schedules: schedules,
		clock:     time.Now,
		period:    period,
		batchSize: batchSize,
		log:       log,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs one poll-and-materialize pass. Exported so tests and the loop
// share the same path.
func (d *Dispatcher) Tick(ctx context.Context) {
	due, err := d.schedules.Due(ctx, d.clock(), d.batchSize)
	if err != nil {
		d.log.Logger.Error("polling due scheduled messages failed", zap.Error(err))
		return
	}

	for _, row := range due {
		if err := d.schedules.Materialize(ctx, row); err != nil {
			d.log.Logger.Error("materializing scheduled message failed",
				zap.String("scheduled_id", row.ID.String()), zap.Error(err))
		}
	}
}
