package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
	"github.com/babymu5k/Zedovium/foundation/blockchain/fee"
	"github.com/babymu5k/Zedovium/foundation/blockchain/genesis"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. The POW search can be cancelled when
// a competing block arrives for the same height.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW")

	trans := s.mempool.PickBest(int(s.genesis.TransPerBlock))

	baseTarget := s.difficulty.CurrentTarget()
	effectiveTarget := s.guard.EffectiveTarget(string(s.beneficiaryID), baseTarget, time.Now().UTC())

	block, err := database.POW(ctx, database.POWArgs{
		MinerID:         s.beneficiaryID,
		BaseTarget:      baseTarget,
		EffectiveTarget: effectiveTarget,
		PrevBlock:       s.db.LatestBlock(),
		Trans:           trans,
		EvHandler:       s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	if err := s.validateAcceptBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// SubmitBlock takes a candidate block mined by an external miner, validates
// it against the consensus rules and, if it passes, appends it to the chain.
// Rejected candidates leave no state behind; the miner must refresh and
// re-attempt.
func (s *State) SubmitBlock(block database.Block) error {
	s.evHandler("state: SubmitBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Trans))
	defer s.evHandler("state: SubmitBlock: completed: newBlk[%s]", block.Hash())

	if err := s.validateAcceptBlock(block); err != nil {
		return err
	}

	// Any local mining against the old parent is now wasted work. The G
	// executing the mining operation will not return until done is called,
	// which lets this function finish its state changes first.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer func() {
			s.evHandler("state: SubmitBlock: signal mining to terminate")
			done()
		}()
	}

	return nil
}

// =============================================================================

// validateAcceptBlock runs the full consensus validation sequence and, only
// if every rule passes, applies the block: write to storage, update account
// balances, drain the mempool, record guard activity and retarget. The whole
// unit holds the state mutex so exactly one candidate can extend a parent.
func (s *State) validateAcceptBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	latest := s.db.LatestBlock()

	// Structure and chain linkage.
	if err := block.ValidateStructure(latest, s.evHandler); err != nil {
		return err
	}

	// Transaction validity against current fee expectations and balances.
	if err := s.validateBlockTrans(block); err != nil {
		return err
	}

	// Transaction count limit.
	if len(block.Trans) > int(s.genesis.TransPerBlock) {
		return fmt.Errorf("too many transactions in block, got %d, limit %d", len(block.Trans), s.genesis.TransPerBlock)
	}

	// The header must carry the target the network currently requires. A
	// miner working against an old target has stale work regardless of the
	// hash it found.
	baseTarget := s.difficulty.CurrentTarget()
	declaredTarget, err := genesis.Target(block.Header.Target)
	if err != nil {
		return fmt.Errorf("unreadable block target: %w", err)
	}
	if declaredTarget.Cmp(baseTarget) != 0 {
		return fmt.Errorf("block target %s does not match the current target %#x: %w", block.Header.Target, baseTarget, database.ErrStaleBlock)
	}

	// Proof of work against the miner's effective target. Miners over the
	// guard threshold need a smaller hash than everyone else.
	effectiveTarget := s.guard.EffectiveTarget(string(block.Header.MinerID), baseTarget, now)
	if !block.SolvesTarget(effectiveTarget) {
		return fmt.Errorf("%s does not satisfy the proof of work target %#x", block.Hash(), effectiveTarget)
	}

	s.evHandler("state: validateAcceptBlock: write to disk")

	if err := s.db.Write(block); err != nil {
		return err
	}
	s.db.UpdateLatestBlock(block)

	s.evHandler("state: validateAcceptBlock: update accounts and remove from mempool")

	for _, tx := range block.Trans {
		s.evHandler("state: validateAcceptBlock: tx[%s] apply and remove", tx)

		if err := s.db.ApplyTransaction(tx); err != nil {
			s.evHandler("state: validateAcceptBlock: WARNING : %s", err)
			continue
		}
	}
	s.db.MarkConfirmed(block)

	s.evHandler("state: validateAcceptBlock: apply mining reward")

	s.db.ApplyMiningReward(block)

	s.mempool.Remove(block.TxIDs())
	s.evHandler("state: validateAcceptBlock: EVENT: mempool drained: pool[%d]", s.mempool.Count())

	s.guard.RecordBlock(string(block.Header.MinerID), now)

	if err := s.difficulty.RetargetIfDue(block, s.db); err != nil {
		s.evHandler("state: validateAcceptBlock: WARNING : retarget: %s", err)
	}

	s.evHandler("state: validateAcceptBlock: EVENT: ledger extended: blk[%d] hash[%s]", block.Header.Number, block.Hash())
	s.blockEvent(block)

	return nil
}

// validateBlockTrans checks every transaction in the block against the fee
// engine's current expectation, the confirmed transaction index and a copy
// of the account balances. Nothing is mutated; the copy absorbs the
// cumulative spending of earlier transactions in the same block.
func (s *State) validateBlockTrans(block database.Block) error {
	accounts := s.db.CopyAccounts()

	for _, tx := range block.Trans {
		if err := tx.Validate(); err != nil {
			return err
		}

		txID := tx.TxID()
		if s.db.IsConfirmed(txID) {
			return fmt.Errorf("transaction %s is already confirmed", txID)
		}

		expected := s.mempool.ExpectedFee(tx.Value)
		tolerance := fee.Tolerance(tx.Value, s.genesis.FeeToleranceBips)
		if absDiff(tx.Fee, expected) > tolerance {
			return fmt.Errorf("transaction %s fee %d does not match expectation %d (±%d)", txID, tx.Fee, expected, tolerance)
		}

		from := accounts[tx.FromID]
		if from.Balance < tx.Cost() {
			return fmt.Errorf("transaction %s has insufficient funds, bal %d, needed %d", txID, from.Balance, tx.Cost())
		}
		from.Balance -= tx.Cost()
		accounts[tx.FromID] = from

		to := accounts[tx.ToID]
		to.Balance += tx.Value
		accounts[tx.ToID] = to
	}

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Trans)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}

// absDiff returns the absolute difference of two unsigned values.
func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
