// Package mempool maintains the bounded holding area for unconfirmed
// transactions, ordered by fee for block selection.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
	"github.com/babymu5k/Zedovium/foundation/blockchain/fee"
)

// Admission rejection reasons. These are ordinary results for the caller,
// not faults: duplicates and full pools are expected under load.
var (
	ErrDuplicate  = errors.New("transaction already in mempool")
	ErrFull       = errors.New("mempool at capacity")
	ErrInvalidFee = errors.New("transaction fee does not match the current expectation")
)

// Mempool represents a bounded cache of pending transactions keyed by
// transaction id.
type Mempool struct {
	mu   sync.RWMutex
	pool map[string]database.BlockTx

	maxSize       int
	feeEngine     fee.Engine
	toleranceBips uint64
}

// Config represents the tunable admission rules for a mempool.
type Config struct {
	MaxSize       int
	FeeEngine     fee.Engine
	ToleranceBips uint64
}

// New constructs a new mempool with the specified admission rules.
func New(cfg Config) (*Mempool, error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("mempool max size must be positive, got %d", cfg.MaxSize)
	}

	mp := Mempool{
		pool:          make(map[string]database.BlockTx),
		maxSize:       cfg.MaxSize,
		feeEngine:     cfg.FeeEngine,
		toleranceBips: cfg.ToleranceBips,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// MaxSize returns the capacity of the pool.
func (mp *Mempool) MaxSize() int {
	return mp.maxSize
}

// CurrentRateBips returns the fee rate the engine requires at the pool's
// current fullness.
func (mp *Mempool) CurrentRateBips() uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.feeEngine.RateBips(len(mp.pool), mp.maxSize)
}

// ExpectedFee returns the fee the engine currently requires for a
// transaction of the specified value.
func (mp *Mempool) ExpectedFee(value uint64) uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.feeEngine.Compute(value, len(mp.pool), mp.maxSize)
}

// Admit adds a transaction to the pool. It rejects duplicates, rejects
// outright when the pool is at capacity, and rejects fees that deviate from
// the engine's current expectation by more than the configured tolerance.
func (mp *Mempool) Admit(tx database.BlockTx) error {
	txID := tx.TxID()

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[txID]; exists {
		return fmt.Errorf("tx %s: %w", txID, ErrDuplicate)
	}

	if len(mp.pool) >= mp.maxSize {
		return ErrFull
	}

	expected := mp.feeEngine.Compute(tx.Value, len(mp.pool), mp.maxSize)
	tolerance := fee.Tolerance(tx.Value, mp.toleranceBips)
	if diff(tx.Fee, expected) > tolerance {
		return fmt.Errorf("fee %d, expected %d (±%d): %w", tx.Fee, expected, tolerance, ErrInvalidFee)
	}

	mp.pool[txID] = tx

	return nil
}

// PickBest returns up to howMany transactions sorted by fee descending, ties
// broken by the admission timestamp carried on the transaction and finally
// by transaction id. Every key is part of the transaction itself, so two
// nodes selecting from the same pool snapshot produce the same ordered set
// regardless of the order they admitted in. Passing -1 returns everything.
func (mp *Mempool) PickBest(howMany int) []database.BlockTx {
	mp.mu.RLock()
	txs := make([]database.BlockTx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		txs = append(txs, tx)
	}
	mp.mu.RUnlock()

	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Fee != txs[j].Fee {
			return txs[i].Fee > txs[j].Fee
		}
		if txs[i].TimeStamp != txs[j].TimeStamp {
			return txs[i].TimeStamp < txs[j].TimeStamp
		}
		return txs[i].TxID() < txs[j].TxID()
	})

	if howMany == -1 || howMany > len(txs) {
		howMany = len(txs)
	}

	return txs[:howMany]
}

// Remove drops the specified transaction ids from the pool. Ids that are
// not resident are ignored; the caller may be draining a block mined from
// an older snapshot.
func (mp *Mempool) Remove(txIDs []string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, txID := range txIDs {
		delete(mp.pool, txID)
	}
}

// PendingSpend returns the total value plus fees the specified account has
// committed to transactions still waiting in the pool.
func (mp *Mempool) PendingSpend(accountID database.AccountID) uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	var total uint64
	for _, tx := range mp.pool {
		if tx.FromID == accountID {
			total += tx.Cost()
		}
	}

	return total
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.BlockTx)
}

// diff returns the absolute difference of two unsigned values.
func diff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
