// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date             time.Time         `json:"date"`
	ChainID          uint16            `json:"chain_id"`           // Unique id for this running instance.
	Symbol           string            `json:"symbol"`             // Currency symbol.
	TransPerBlock    uint16            `json:"trans_per_block"`    // Maximum number of transactions in a block.
	MiningReward     uint64            `json:"mining_reward"`      // Reward for mining a block.
	BaseFeeBips      uint64            `json:"base_fee_bips"`      // Fee rate at an empty mempool, in basis points.
	MaxFeeBips       uint64            `json:"max_fee_bips"`       // Fee rate at a full mempool, in basis points.
	FeeStepBips      uint64            `json:"fee_step_bips"`      // Rounding step for the fee rate.
	FeeToleranceBips uint64            `json:"fee_tolerance_bips"` // Accepted deviation between a submitted fee and the current expectation.
	PoolMaxSize      int               `json:"pool_max_size"`      // Maximum number of transactions held in the mempool.
	BlockIntervalSec uint64            `json:"block_interval_sec"` // Intended seconds between blocks.
	RetargetBlocks   uint64            `json:"retarget_blocks"`    // Number of blocks between difficulty retargets.
	GuardThreshold   int               `json:"guard_threshold"`    // Blocks per window before the guard penalty applies.
	GuardWindowSec   uint64            `json:"guard_window_sec"`   // Length of the guard activity window in seconds.
	StartingTarget   string            `json:"starting_target"`    // Initial proof of work target, hex encoded.
	MinTarget        string            `json:"min_target"`         // Hardest target the retarget can reach.
	MaxTarget        string            `json:"max_target"`         // Easiest target the retarget can reach.
	Balances         map[string]uint64 `json:"balances"`
}

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Target parses one of the hex encoded target fields.
func Target(hexTarget string) (*big.Int, error) {
	target, err := hexutil.DecodeBig(hexTarget)
	if err != nil {
		return nil, fmt.Errorf("unable to decode target %q: %w", hexTarget, err)
	}

	return target, nil
}
