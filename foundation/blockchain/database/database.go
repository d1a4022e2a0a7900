// Package database handles the lower level support for maintaining the
// blockchain on disk and maintaining an in-memory database of the account
// balances derived from it.
package database

import (
	"fmt"
	"sync"

	"github.com/babymu5k/Zedovium/foundation/blockchain/genesis"
)

// Serializer interface represents the behavior required to be implemented by
// any package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by
// any package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// ConsistencyError reports a broken invariant detected while reading the
// chain back from storage. It indicates possible corruption and requires
// operator intervention; it is never silently repaired.
type ConsistencyError struct {
	BlockNumber uint64
	Reason      string
}

// Error implements the error interface.
func (ce *ConsistencyError) Error() string {
	return fmt.Sprintf("chain consistency fault at block %d: %s", ce.BlockNumber, ce.Reason)
}

// =============================================================================

// Database manages the append-only chain of blocks and the account balance
// state derived from it.
type Database struct {
	mu sync.RWMutex

	genesis     genesis.Genesis
	latestBlock Block
	accounts    map[AccountID]Account
	confirmed   map[string]uint64 // Transaction id to the block number holding it.

	serializer Serializer
}

// New constructs a new database, applies the genesis balances and replays
// the blockchain from storage, revalidating every block read back.
func New(genesis genesis.Genesis, serializer Serializer, evHandler func(v string, args ...any)) (*Database, error) {
	db := Database{
		genesis:    genesis,
		accounts:   make(map[AccountID]Account),
		confirmed:  make(map[string]uint64),
		serializer: serializer,
	}

	for accountStr, balance := range genesis.Balances {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return nil, err
		}
		db.accounts[accountID] = Account{AccountID: accountID, Balance: balance}
	}

	iter := db.serializer.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block := ToBlock(blockData)

		if err := db.verifyStoredBlock(blockData, block); err != nil {
			return nil, err
		}

		for _, tx := range block.Trans {
			if err := db.ApplyTransaction(tx); err != nil {
				return nil, &ConsistencyError{block.Header.Number, err.Error()}
			}
			db.confirmed[tx.TxID()] = block.Header.Number
		}
		db.ApplyMiningReward(block)

		db.latestBlock = block
	}

	return &db, nil
}

// verifyStoredBlock enforces the chain integrity invariants on a block read
// back from storage. Any violation is a consistency fault.
func (db *Database) verifyStoredBlock(blockData BlockData, block Block) error {
	num := block.Header.Number

	if blockData.Hash != block.Hash() {
		return &ConsistencyError{num, fmt.Sprintf("stored hash %s does not match recomputed hash %s", blockData.Hash, block.Hash())}
	}

	if num != db.latestBlock.Header.Number+1 {
		return &ConsistencyError{num, fmt.Sprintf("block number out of sequence, expected %d", db.latestBlock.Header.Number+1)}
	}

	if block.Header.PrevBlockHash != db.latestBlock.Hash() {
		return &ConsistencyError{num, "hash chain break, previous hash does not match parent"}
	}

	target, err := genesis.Target(block.Header.Target)
	if err != nil {
		return &ConsistencyError{num, fmt.Sprintf("unreadable target: %s", err)}
	}
	if !isHashSolved(target, block.Hash()) {
		return &ConsistencyError{num, "block hash does not satisfy its recorded target"}
	}

	return nil
}

// Close closes the underlying block storage.
func (db *Database) Close() {
	db.serializer.Close()
}

// Reset re-initializes the database back to the genesis state.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.serializer.Reset(); err != nil {
		return err
	}

	db.latestBlock = Block{}
	db.accounts = make(map[AccountID]Account)
	db.confirmed = make(map[string]uint64)
	for accountStr, balance := range db.genesis.Balances {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return err
		}
		db.accounts[accountID] = Account{AccountID: accountID, Balance: balance}
	}

	return nil
}

// =============================================================================

// Balance returns the current balance for the specified account.
func (db *Database) Balance(accountID AccountID) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.accounts[accountID].Balance
}

// CopyAccounts makes a copy of the current account state in the database.
func (db *Database) CopyAccounts() map[AccountID]Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make(map[AccountID]Account, len(db.accounts))
	for accountID, account := range db.accounts {
		accounts[accountID] = account
	}

	return accounts
}

// TotalSupply returns the sum of all account balances.
func (db *Database) TotalSupply() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var total uint64
	for _, account := range db.accounts {
		total += account.Balance
	}

	return total
}

// IsConfirmed reports whether a transaction id is already recorded inside
// an accepted block.
func (db *Database) IsConfirmed(txID string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.confirmed[txID]
	return exists
}

// ConfirmedBlock returns the number of the block holding the specified
// transaction id.
func (db *Database) ConfirmedBlock(txID string) (uint64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	num, exists := db.confirmed[txID]
	return num, exists
}

// =============================================================================

// ApplyMiningReward credits the block's miner with the fixed mining reward
// plus the fees of every transaction included in the block.
func (db *Database) ApplyMiningReward(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	account := db.accounts[block.Header.MinerID]
	account.AccountID = block.Header.MinerID
	account.Balance += db.genesis.MiningReward + block.TotalFees()

	db.accounts[block.Header.MinerID] = account
}

// ApplyTransaction performs the business logic for applying a transaction
// to the account state. The sender pays value plus fee; the fee itself is
// credited to the miner by ApplyMiningReward.
func (db *Database) ApplyTransaction(tx BlockTx) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	from := db.accounts[tx.FromID]
	to := db.accounts[tx.ToID]

	if from.Balance < tx.Cost() {
		return fmt.Errorf("insufficient funds, account %s, bal %d, needed %d", tx.FromID, from.Balance, tx.Cost())
	}

	from.AccountID = tx.FromID
	to.AccountID = tx.ToID
	from.Balance -= tx.Cost()
	to.Balance += tx.Value

	db.accounts[tx.FromID] = from
	db.accounts[tx.ToID] = to

	return nil
}

// MarkConfirmed records that the transactions of the specified block are
// now part of the chain.
func (db *Database) MarkConfirmed(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, tx := range block.Trans {
		db.confirmed[tx.TxID()] = block.Header.Number
	}
}

// =============================================================================

// UpdateLatestBlock provides safe access to update the latest block.
func (db *Database) UpdateLatestBlock(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = block
}

// LatestBlock returns the latest block added to the chain. An empty chain
// returns the zero block, number 0 with the zero hash.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// Height returns the number of the latest block.
func (db *Database) Height() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock.Header.Number
}

// Write adds a new block to the chain on disk.
func (db *Database) Write(block Block) error {
	return db.serializer.Write(NewBlockData(block))
}

// GetBlock locates and returns the contents of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.serializer.GetBlock(num)
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData), nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// block number 1.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.serializer.ForEach()}
}

// =============================================================================

// DatabaseIterator provides support to walk through the blocks on storage
// as database blocks.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData), nil
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}
