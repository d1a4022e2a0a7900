// Package fee implements the dynamic fee engine. The required fee rate rises
// linearly with mempool congestion between a base and a maximum rate. All
// arithmetic is integer basis points so every validator computes the exact
// same fee for the same inputs.
package fee

// Default fee schedule: 1% at an empty mempool, 5% at a full one, rounded to
// the nearest 0.1 percentage point.
const (
	DefaultBaseRateBips = 100
	DefaultMaxRateBips  = 500
	DefaultStepBips     = 10
)

// bipsDenom converts basis points into a fraction.
const bipsDenom = 10_000

// Engine computes required fees from the current mempool congestion. An
// Engine is pure configuration; it holds no mutable state.
type Engine struct {
	baseRateBips uint64
	maxRateBips  uint64
	stepBips     uint64
}

// NewEngine constructs an Engine for the specified fee schedule. Zero values
// fall back to the default schedule.
func NewEngine(baseRateBips uint64, maxRateBips uint64, stepBips uint64) Engine {
	if baseRateBips == 0 {
		baseRateBips = DefaultBaseRateBips
	}
	if maxRateBips == 0 {
		maxRateBips = DefaultMaxRateBips
	}
	if stepBips == 0 {
		stepBips = DefaultStepBips
	}

	return Engine{
		baseRateBips: baseRateBips,
		maxRateBips:  maxRateBips,
		stepBips:     stepBips,
	}
}

// RateBips returns the current fee rate in basis points for a mempool
// holding occupied of capacity transactions. The rate scales linearly with
// fullness, rounded half-up to the nearest step, and never exceeds the
// maximum rate.
func (e Engine) RateBips(occupied int, capacity int) uint64 {
	if capacity <= 0 || occupied <= 0 {
		return e.baseRateBips
	}
	if occupied > capacity {
		occupied = capacity
	}

	// steps = round(occupied/capacity × span ÷ step), computed without
	// leaving integer space.
	span := e.maxRateBips - e.baseRateBips
	num := uint64(occupied) * span
	den := uint64(capacity) * e.stepBips
	steps := (num + den/2) / den

	rate := e.baseRateBips + steps*e.stepBips
	if rate > e.maxRateBips {
		rate = e.maxRateBips
	}

	return rate
}

// Compute returns the required fee for a transaction of the specified value
// given the current mempool congestion. The fee is the value at the current
// rate, rounded half-up to the nearest unit. A zero value transaction owes
// no fee.
func (e Engine) Compute(value uint64, occupied int, capacity int) uint64 {
	rate := e.RateBips(occupied, capacity)
	return (value*rate + bipsDenom/2) / bipsDenom
}

// Tolerance returns the largest deviation from the current expected fee that
// admission accepts for the specified value and tolerance in basis points.
func Tolerance(value uint64, toleranceBips uint64) uint64 {
	return (value*toleranceBips + bipsDenom/2) / bipsDenom
}
