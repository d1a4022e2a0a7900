// Package guard implements the anti-centralization penalty. It tracks how
// many blocks each miner produced inside a trailing window and scales the
// effective proof of work target for miners who exceed the threshold, so
// raw hash power cannot monopolize block production.
package guard

import (
	"math/big"
	"sync"
	"time"
)

// Defaults matching the network rules: more than 10 blocks in a trailing
// hour and each excess block adds 50% difficulty.
const (
	DefaultThreshold = 10
	DefaultWindow    = 60 * time.Minute
)

// Status reports the penalty state of a miner for external queries.
type Status struct {
	Penalized      bool    `json:"penalized"`
	Multiplier     float64 `json:"multiplier"`
	BlocksInWindow int     `json:"blocks_in_window"`
}

// Guard tracks per-miner block production inside a sliding window. Recording
// happens only on successful block appends; queries are side-effect free
// apart from pruning expired entries.
type Guard struct {
	mu        sync.Mutex
	miners    map[string][]time.Time
	threshold int
	window    time.Duration
}

// New constructs a guard with the specified threshold and window. Zero
// values fall back to the network defaults.
func New(threshold int, window time.Duration) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &Guard{
		miners:    make(map[string][]time.Time),
		threshold: threshold,
		window:    window,
	}
}

// RecordBlock notes that the specified miner produced a block at the given
// time. Only the chain validator calls this, on successful append.
func (g *Guard) RecordBlock(miner string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.miners[miner] = append(g.prune(miner, now), now)
}

// EffectiveTarget scales the base target for the specified miner. A miner
// inside the threshold keeps the base target. Each block beyond the
// threshold in the window multiplies their required difficulty by an extra
// 0.5, which divides the target:
//
//	effective = base × 2 / (2 + excess)
//
// Integer arithmetic keeps the result identical across validators.
func (g *Guard) EffectiveTarget(miner string, base *big.Int, now time.Time) *big.Int {
	excess := g.excess(miner, now)
	if excess == 0 {
		return new(big.Int).Set(base)
	}

	effective := new(big.Int).Mul(base, big.NewInt(2))
	return effective.Quo(effective, big.NewInt(2+int64(excess)))
}

// CheckAddress reports whether the specified miner is currently penalized
// and by which multiplier. Read-only apart from pruning expired entries.
func (g *Guard) CheckAddress(miner string, now time.Time) Status {
	g.mu.Lock()
	count := len(g.prune(miner, now))
	g.mu.Unlock()

	excess := count - g.threshold
	if excess <= 0 {
		return Status{Multiplier: 1.0, BlocksInWindow: count}
	}

	return Status{
		Penalized:      true,
		Multiplier:     1.0 + 0.5*float64(excess),
		BlocksInWindow: count,
	}
}

// excess returns how many blocks beyond the threshold the miner produced
// inside the window.
func (g *Guard) excess(miner string, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := len(g.prune(miner, now))
	if count <= g.threshold {
		return 0
	}

	return count - g.threshold
}

// prune drops entries older than the window and stores the trimmed slice.
// Lazy pruning on each use keeps the per-miner history bounded without a
// background sweeper. Callers must hold the mutex.
func (g *Guard) prune(miner string, now time.Time) []time.Time {
	stamps := g.miners[miner]
	cutoff := now.Add(-g.window)

	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}

	if i > 0 {
		stamps = append([]time.Time(nil), stamps[i:]...)
	}

	if len(stamps) == 0 {
		delete(g.miners, miner)
	} else {
		g.miners[miner] = stamps
	}

	return stamps
}
