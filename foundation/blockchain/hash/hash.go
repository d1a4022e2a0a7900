// Package hash provides the content hashing support used for block hashes
// and transaction ids.
package hash

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// Hash returns a unique string for the value. The value is serialized to
// canonical JSON and digested with BLAKE2b-256 so any node hashing the same
// value produces the same string.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := blake2b.Sum256(data)
	return hexutil.Encode(hash[:])
}

// ToBig converts a hex encoded hash into its 256 bit integer form for
// comparison against a proof of work target.
func ToBig(hexHash string) *big.Int {
	data, err := hexutil.Decode(hexHash)
	if err != nil {
		return new(big.Int)
	}

	return new(big.Int).SetBytes(data)
}
