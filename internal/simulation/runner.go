package simulation

import (
	"context"
	"time"
)

// Run ticks immediately and then once per interval until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, clock Clock, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	// Models assume fixed spans and are not rescaled.
	if interval != o.intervals.Flow {
		o.log.Warn().Dur("tick_interval", interval).Dur("flow_interval", o.intervals.Flow).
			Msg("tick interval differs from flow interval; cumulative totals will not match elapsed time")
	}
	if interval != o.intervals.Energy {
		o.log.Warn().Dur("tick_interval", interval).Dur("energy_interval", o.intervals.Energy).
			Msg("tick interval differs from energy interval; energy_kwh reports the configured span")
	}

	o.log.Info().Dur("interval", interval).Msg("continuous generation started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		o.RunTick(ctx, clock.Now())
		select {
		case <-ctx.Done():
			o.log.Info().Msg("continuous generation stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
