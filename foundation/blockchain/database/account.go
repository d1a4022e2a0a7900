package database

import (
	"errors"

	"github.com/babymu5k/Zedovium/foundation/blockchain/address"
)

// Account represents information stored in the database for an individual
// account.
type Account struct {
	AccountID AccountID
	Balance   uint64
}

// =============================================================================

// AccountID represents the word-phrase address that owns balances and is
// referenced by transactions on the blockchain.
type AccountID string

// ToAccountID converts a string to an AccountID and validates the format
// and checksum.
func ToAccountID(value string) (AccountID, error) {
	a := AccountID(value)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// IsAccountID verifies whether the underlying data represents a properly
// formed address with a valid checksum.
func (a AccountID) IsAccountID() bool {
	return address.Validate(string(a))
}
