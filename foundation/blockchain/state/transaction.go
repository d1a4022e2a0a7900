package state

import (
	"fmt"

	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
)

// SubmitTransaction validates a user transaction, derives its fee from the
// current mempool congestion, and admits it to the mempool. The returned
// block transaction carries the fee and the transaction id.
func (s *State) SubmitTransaction(tx database.Tx) (database.BlockTx, error) {
	s.evHandler("state: SubmitTransaction: started: %s:%d", tx.FromID, tx.Nonce)
	defer s.evHandler("state: SubmitTransaction: completed")

	if err := tx.Validate(); err != nil {
		return database.BlockTx{}, err
	}

	// The fee engine prices toward the current congestion. The same
	// computation runs again on every validator, so a forged fee is caught
	// at admission and at block validation.
	blockTx := database.NewBlockTx(tx, s.mempool.ExpectedFee(tx.Value))

	// The sender must be able to cover this transaction on top of whatever
	// they already have waiting in the pool.
	pending := s.mempool.PendingSpend(tx.FromID)
	balance := s.db.Balance(tx.FromID)
	if balance < pending+blockTx.Cost() {
		return database.BlockTx{}, fmt.Errorf("insufficient funds, account %s, bal %d, pending %d, needed %d", tx.FromID, balance, pending, blockTx.Cost())
	}

	if err := s.mempool.Admit(blockTx); err != nil {
		return database.BlockTx{}, err
	}

	s.evHandler("state: SubmitTransaction: admitted tx[%s] fee[%d] pool[%d]", blockTx.TxID(), blockTx.Fee, s.mempool.Count())

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return blockTx, nil
}
