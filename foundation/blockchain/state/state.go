// Package state is the core API for the blockchain node and implements all
// the business rules and processing.
package state

import (
	"sync"
	"time"

	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
	"github.com/babymu5k/Zedovium/foundation/blockchain/difficulty"
	"github.com/babymu5k/Zedovium/foundation/blockchain/fee"
	"github.com/babymu5k/Zedovium/foundation/blockchain/genesis"
	"github.com/babymu5k/Zedovium/foundation/blockchain/guard"
	"github.com/babymu5k/Zedovium/foundation/blockchain/mempool"
)

// EventHandler defines a function that is called when events occur in the
// processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by
// any package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start the blockchain node.
type Config struct {
	BeneficiaryID database.AccountID
	Genesis       genesis.Genesis
	Storage       database.Serializer
	EvHandler     EventHandler
}

// State manages the blockchain database, the mempool and the consensus
// controllers as one unit. Block acceptance is serialized behind mu so two
// concurrently validated candidates can never both extend the same parent.
type State struct {
	mu sync.Mutex

	beneficiaryID database.AccountID
	evHandler     EventHandler

	genesis    genesis.Genesis
	db         *database.Database
	mempool    *mempool.Mempool
	difficulty *difficulty.Controller
	guard      *guard.Guard

	Worker Worker
}

// New constructs a new blockchain node core for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	gen := cfg.Genesis

	// The fee engine and the mempool admission rules come straight from the
	// genesis file so every node enforces the same economics.
	feeEngine := fee.NewEngine(gen.BaseFeeBips, gen.MaxFeeBips, gen.FeeStepBips)

	mpool, err := mempool.New(mempool.Config{
		MaxSize:       gen.PoolMaxSize,
		FeeEngine:     feeEngine,
		ToleranceBips: gen.FeeToleranceBips,
	})
	if err != nil {
		return nil, err
	}

	startTarget, err := genesis.Target(gen.StartingTarget)
	if err != nil {
		return nil, err
	}
	minTarget, err := genesis.Target(gen.MinTarget)
	if err != nil {
		return nil, err
	}
	maxTarget, err := genesis.Target(gen.MaxTarget)
	if err != nil {
		return nil, err
	}

	diff, err := difficulty.New(difficulty.Config{
		StartingTarget: startTarget,
		MinTarget:      minTarget,
		MaxTarget:      maxTarget,
		BlockInterval:  time.Duration(gen.BlockIntervalSec) * time.Second,
		RetargetBlocks: gen.RetargetBlocks,
	})
	if err != nil {
		return nil, err
	}

	// Load and revalidate all existing blocks from storage, deriving the
	// account balances as we go.
	db, err := database.New(gen, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Replay the retarget schedule so the controller holds the same target
	// any other node derives from this chain prefix. Guard windows are not
	// replayed; miner activity state is in-memory only and starts fresh.
	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		if err := diff.RetargetIfDue(block, db); err != nil {
			return nil, err
		}
	}

	state := State{
		beneficiaryID: cfg.BeneficiaryID,
		evHandler:     ev,
		genesis:       gen,
		db:            db,
		mempool:       mpool,
		difficulty:    diff,
		guard:         guard.New(gen.GuardThreshold, time.Duration(gen.GuardWindowSec)*time.Second),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	defer func() {
		s.db.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}
