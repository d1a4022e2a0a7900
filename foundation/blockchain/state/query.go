package state

import (
	"math/big"
	"time"

	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
	"github.com/babymu5k/Zedovium/foundation/blockchain/genesis"
	"github.com/babymu5k/Zedovium/foundation/blockchain/guard"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// LatestBlock returns a copy of the current latest block.
func (s *State) LatestBlock() database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.LatestBlock()
}

// Height returns the block number of the latest block.
func (s *State) Height() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Height()
}

// Balance returns the confirmed balance of the specified account.
func (s *State) Balance(accountID database.AccountID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Balance(accountID)
}

// Accounts returns a copy of the confirmed account balances. If an account
// is specified, only that account is returned.
func (s *State) Accounts(accountID database.AccountID) map[database.AccountID]database.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.db.CopyAccounts()
	if accountID == "" {
		return accounts
	}

	if account, exists := accounts[accountID]; exists {
		return map[database.AccountID]database.Account{accountID: account}
	}
	return map[database.AccountID]database.Account{}
}

// TotalSupply returns the sum of every confirmed account balance.
func (s *State) TotalSupply() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.TotalSupply()
}

// =============================================================================

// MempoolLength returns the current length of the mempool.
func (s *State) MempoolLength() int {
	return s.mempool.Count()
}

// Mempool returns a copy of the pending transactions ordered the way the
// miner would pick them.
func (s *State) Mempool() []database.BlockTx {
	return s.mempool.PickBest(-1)
}

// FeeEstimate reports the fee the mempool currently expects for a transfer
// of the given value, along with the rate in basis points.
func (s *State) FeeEstimate(value uint64) (fee uint64, rateBips uint64) {
	return s.mempool.ExpectedFee(value), s.mempool.CurrentRateBips()
}

// =============================================================================

// CurrentTarget returns the base proof of work target miners must beat.
func (s *State) CurrentTarget() *big.Int {
	return s.difficulty.CurrentTarget()
}

// GuardStatus reports the penalty standing of the specified miner.
func (s *State) GuardStatus(minerID database.AccountID) guard.Status {
	return s.guard.CheckAddress(string(minerID), time.Now().UTC())
}

// Hashrate estimates the network hash rate in hashes per second from the
// current target and the observed block interval: on average it takes
// 2^256/target attempts to find a solving hash.
func (s *State) Hashrate() *big.Int {
	target := s.difficulty.CurrentTarget()
	interval := s.difficulty.AverageInterval()

	seconds := int64(interval / time.Second)
	if seconds <= 0 {
		seconds = 1
	}

	space := new(big.Int).Lsh(big.NewInt(1), 256)
	expected := new(big.Int).Quo(space, target)

	return expected.Quo(expected, big.NewInt(seconds))
}

// =============================================================================

// QueryBlockByNumber returns the block identified by the specified number.
// Use QueryLatest to retrieve the latest block.
func (s *State) QueryBlockByNumber(number uint64) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if number == QueryLatest {
		return s.db.LatestBlock(), nil
	}

	return s.db.GetBlock(number)
}

// QueryBlocksByNumber returns the set of blocks in the inclusive range
// [from, to]. Use QueryLatest for both to retrieve just the latest block.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) ([]database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.db.LatestBlock().Header.Number
	if from == QueryLatest {
		from = latest
	}
	if to == QueryLatest || to > latest {
		to = latest
	}
	if from > to {
		return nil, nil
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// ConfirmedTx reports whether the specified transaction has been confirmed
// and, if so, the number of the block that carries it.
func (s *State) ConfirmedTx(txID string) (blockNumber uint64, confirmed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.ConfirmedBlock(txID)
}

// =============================================================================

// MiningTemplate carries everything an external miner needs to search for
// the next block: the parent, the transactions to include and the target
// its hash must beat.
type MiningTemplate struct {
	PrevBlockHash   string             `json:"prev_block_hash"`
	NextBlockNumber uint64             `json:"next_block_number"`
	Target          string             `json:"target"`
	EffectiveTarget string             `json:"effective_target"`
	MiningReward    uint64             `json:"mining_reward"`
	Trans           []database.BlockTx `json:"trans"`
}

// BuildMiningTemplate assembles a mining template for the specified miner,
// applying its guard penalty to the advertised effective target.
func (s *State) BuildMiningTemplate(minerID database.AccountID) MiningTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.db.LatestBlock()
	base := s.difficulty.CurrentTarget()
	effective := s.guard.EffectiveTarget(string(minerID), base, time.Now().UTC())

	return MiningTemplate{
		PrevBlockHash:   latest.Hash(),
		NextBlockNumber: latest.Header.Number + 1,
		Target:          hexTarget(base),
		EffectiveTarget: hexTarget(effective),
		MiningReward:    s.genesis.MiningReward,
		Trans:           s.mempool.PickBest(int(s.genesis.TransPerBlock)),
	}
}

// hexTarget formats a target the way block headers carry it.
func hexTarget(target *big.Int) string {
	return "0x" + target.Text(16)
}
