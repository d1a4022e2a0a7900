// Package difficulty maintains the proof of work target and retargets it
// periodically from observed block timing. Retargeting is a pure function of
// chain history so every validator derives the identical target from the
// same chain prefix.
package difficulty

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
)

// ChainReader provides the chain history access needed to retarget.
type ChainReader interface {
	GetBlock(num uint64) (database.Block, error)
}

// Config represents the retargeting rules for a controller.
type Config struct {
	StartingTarget *big.Int      // Target for the first retarget window.
	MinTarget      *big.Int      // Hardest target the controller will set.
	MaxTarget      *big.Int      // Easiest target the controller will set.
	BlockInterval  time.Duration // Intended time between blocks.
	RetargetBlocks uint64        // Number of blocks between retargets.
}

// Controller maintains the current target and the observed block timing.
type Controller struct {
	mu sync.RWMutex

	target       *big.Int
	lastRetarget uint64        // Block number the last retarget ran at.
	avgInterval  time.Duration // Moving average over the last retarget window.

	minTarget      *big.Int
	maxTarget      *big.Int
	blockInterval  time.Duration
	retargetBlocks uint64
}

// New constructs a controller from the specified rules.
func New(cfg Config) (*Controller, error) {
	if cfg.StartingTarget == nil || cfg.MinTarget == nil || cfg.MaxTarget == nil {
		return nil, fmt.Errorf("starting, min and max targets are required")
	}
	if cfg.RetargetBlocks == 0 {
		return nil, fmt.Errorf("retarget blocks must be positive")
	}
	if cfg.BlockInterval <= 0 {
		return nil, fmt.Errorf("block interval must be positive")
	}
	if cfg.MinTarget.Cmp(cfg.MaxTarget) > 0 {
		return nil, fmt.Errorf("min target is above max target")
	}

	c := Controller{
		target:         clamp(new(big.Int).Set(cfg.StartingTarget), cfg.MinTarget, cfg.MaxTarget),
		avgInterval:    cfg.BlockInterval,
		minTarget:      cfg.MinTarget,
		maxTarget:      cfg.MaxTarget,
		blockInterval:  cfg.BlockInterval,
		retargetBlocks: cfg.RetargetBlocks,
	}

	return &c, nil
}

// CurrentTarget returns a copy of the target a block hash must fall below.
func (c *Controller) CurrentTarget() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return new(big.Int).Set(c.target)
}

// AverageInterval returns the moving average of the block intervals observed
// over the last retarget window.
func (c *Controller) AverageInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.avgInterval
}

// RetargetIfDue recomputes the target after the specified block has been
// appended. It acts only on retarget boundaries, once per boundary, so
// calling it twice for the same block is a no-op. The new target is
//
//	newTarget = target × actualAvgInterval / intendedInterval
//
// clamped to the configured band: faster blocks shrink the target (harder),
// slower blocks grow it (easier).
func (c *Controller) RetargetIfDue(latest database.Block, chain ChainReader) error {
	number := latest.Header.Number
	if number == 0 || number%c.retargetBlocks != 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastRetarget == number {
		return nil
	}

	// Measure the span back to the first block of the window. The very
	// first window has no block 0 timestamp, so it measures from block 1:
	// retargetBlocks-1 actual intervals against the full intended span.
	// Every validator applies the same rule, so the derived target stays
	// identical across nodes.
	windowStart := number - c.retargetBlocks
	var startStamp uint64
	if windowStart > 0 {
		startBlock, err := chain.GetBlock(windowStart)
		if err != nil {
			return fmt.Errorf("unable to read block %d for retarget: %w", windowStart, err)
		}
		startStamp = startBlock.Header.TimeStamp
	} else {
		firstBlock, err := chain.GetBlock(1)
		if err != nil {
			return fmt.Errorf("unable to read block 1 for retarget: %w", err)
		}
		startStamp = firstBlock.Header.TimeStamp
	}

	actualSpan := int64(latest.Header.TimeStamp) - int64(startStamp)
	if actualSpan < 1 {
		actualSpan = 1
	}
	intendedSpan := int64(c.blockInterval/time.Second) * int64(c.retargetBlocks)

	newTarget := new(big.Int).Mul(c.target, big.NewInt(actualSpan))
	newTarget.Quo(newTarget, big.NewInt(intendedSpan))

	c.target = clamp(newTarget, c.minTarget, c.maxTarget)
	c.avgInterval = time.Duration(actualSpan/int64(c.retargetBlocks)) * time.Second
	c.lastRetarget = number

	return nil
}

// clamp bounds the target to the configured band to prevent runaway
// divergence in either direction.
func clamp(target *big.Int, min *big.Int, max *big.Int) *big.Int {
	if target.Cmp(min) < 0 {
		return new(big.Int).Set(min)
	}
	if target.Cmp(max) > 0 {
		return new(big.Int).Set(max)
	}
	return target
}
