package database

import (
	"fmt"
	"time"

	"github.com/babymu5k/Zedovium/foundation/blockchain/hash"
)

// Tx is the transactional information between two parties as submitted
// by a wallet. The fee is not part of this value; it is derived by the fee
// engine at submission time.
type Tx struct {
	FromID AccountID `json:"from"`  // Account sending the money.
	ToID   AccountID `json:"to"`    // Account receiving the money.
	Value  uint64    `json:"value"` // Monetary value in the smallest unit.
	Nonce  uint64    `json:"nonce"` // Unique id for the transaction supplied by the user.
}

// NewTx constructs a new transaction and validates the addresses involved.
func NewTx(fromID string, toID string, value uint64, nonce uint64) (Tx, error) {
	from, err := ToAccountID(fromID)
	if err != nil {
		return Tx{}, fmt.Errorf("from account is not properly formatted")
	}

	to, err := ToAccountID(toID)
	if err != nil {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	tx := Tx{
		FromID: from,
		ToID:   to,
		Value:  value,
		Nonce:  nonce,
	}

	return tx, nil
}

// Validate checks the transaction is well formed independent of chain state.
func (tx Tx) Validate() error {
	if !tx.FromID.IsAccountID() {
		return fmt.Errorf("invalid from account %q", tx.FromID)
	}

	if !tx.ToID.IsAccountID() {
		return fmt.Errorf("invalid to account %q", tx.ToID)
	}

	if tx.FromID == tx.ToID {
		return fmt.Errorf("transaction sends money to itself, account %s", tx.FromID)
	}

	return nil
}

// =============================================================================

// BlockTx represents the transaction as recorded inside a block: the user
// transaction annotated with the derived fee and the admission timestamp.
// A BlockTx is immutable once created; its identity is the TxID.
type BlockTx struct {
	Tx
	Fee       uint64 `json:"fee"`       // Fee derived by the fee engine at submission time.
	TimeStamp uint64 `json:"timestamp"` // The time the transaction was received.
}

// NewBlockTx constructs a new block transaction stamped with the current
// wall clock time.
func NewBlockTx(tx Tx, fee uint64) BlockTx {
	return BlockTx{
		Tx:        tx,
		Fee:       fee,
		TimeStamp: uint64(time.Now().UTC().UnixNano()),
	}
}

// TxID returns the unique id for the transaction: the hash of its canonical
// serialization. Re-hashing the same transaction always reproduces the id.
func (tx BlockTx) TxID() string {
	return hash.Hash(tx)
}

// Cost returns the total amount the sender gives up for this transaction.
func (tx BlockTx) Cost() uint64 {
	return tx.Value + tx.Fee
}

// String implements the fmt.Stringer interface for logging.
func (tx BlockTx) String() string {
	return fmt.Sprintf("%s:%d", tx.FromID, tx.Nonce)
}
