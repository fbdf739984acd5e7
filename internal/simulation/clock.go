package simulation

import "time"

type Clock interface {
	Now() time.Time
}

// SystemClock reads wall time, optionally in a fixed location so the
// time-of-day regimes follow the deployment's local hours.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Intervals are the reading spans the energy and volume formulas assume.
// Energy readings report kWh over Energy; flow totals grow by one Flow span
// of the current rate per tick.
type Intervals struct {
	Energy time.Duration
	Flow   time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{Energy: time.Hour, Flow: time.Minute}
}

func (iv Intervals) withDefaults() Intervals {
	def := DefaultIntervals()
	if iv.Energy <= 0 {
		iv.Energy = def.Energy
	}
	if iv.Flow <= 0 {
		iv.Flow = def.Flow
	}
	return iv
}
