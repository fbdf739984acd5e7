package simulation

import (
	"context"
	"fmt"
	"sync"
)

// TotalSeeder returns the last persisted running total for a meter. ok is
// false when the meter has never reported.
type TotalSeeder interface {
	LastTotal(ctx context.Context, meterID string) (total float64, ok bool, err error)
}

// Accumulator keeps one running total per flow meter for the lifetime of the
// process. Totals never decrease.
type Accumulator struct {
	mu     sync.Mutex
	totals map[string]float64
	seeder TotalSeeder
}

func NewAccumulator(seeder TotalSeeder) *Accumulator {
	return &Accumulator{totals: make(map[string]float64), seeder: seeder}
}

// SeedIfAbsent loads the persisted total for meterID on first reference. A
// failed lookup leaves the meter unseeded so the next tick retries it.
func (a *Accumulator) SeedIfAbsent(ctx context.Context, meterID string) error {
	a.mu.Lock()
	_, seeded := a.totals[meterID]
	a.mu.Unlock()
	if seeded {
		return nil
	}

	start := 0.0
	if a.seeder != nil {
		total, ok, err := a.seeder.LastTotal(ctx, meterID)
		if err != nil {
			return fmt.Errorf("seed total for %s: %w", meterID, err)
		}
		if ok && total > 0 {
			start = total
		}
	}

	a.mu.Lock()
	if _, seeded := a.totals[meterID]; !seeded {
		a.totals[meterID] = start
	}
	a.mu.Unlock()
	return nil
}

// Add grows the meter's total by increment and returns the new total.
// Negative increments are ignored.
func (a *Accumulator) Add(meterID string, increment float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if increment > 0 {
		a.totals[meterID] += increment
	}
	return a.totals[meterID]
}

func (a *Accumulator) Total(meterID string) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.totals[meterID]
	return v, ok
}

// Forget drops a meter's state, e.g. after the meter is deleted.
func (a *Accumulator) Forget(meterID string) {
	a.mu.Lock()
	delete(a.totals, meterID)
	a.mu.Unlock()
}
