package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/babymu5k/Zedovium/foundation/blockchain/hash"
)

// ErrChainForked is returned from ValidateBlock if another node's chain is
// two or more blocks ahead of ours.
var ErrChainForked = errors.New("blockchain forked, start resync")

// ErrStaleBlock is returned when a candidate block was built against chain
// state that has since been superseded. The caller must refresh and retry.
var ErrStaleBlock = errors.New("block builds on superseded chain state")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64    `json:"number"`          // Block number in the chain, genesis is 0.
	TimeStamp     uint64    `json:"timestamp"`       // Time the block was mined, Unix seconds.
	PrevBlockHash string    `json:"prev_block_hash"` // Hash of the previous block in the chain.
	MinerID       AccountID `json:"miner"`           // The account receiving the reward and fees.
	Nonce         uint64    `json:"nonce"`           // Value identified to solve the hash solution.
	Target        string    `json:"target"`          // Proof of work target this block was mined against, hex encoded.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []BlockTx
}

// blockDigest is the canonical serialization hashed to produce the block
// hash: the header plus the ordered transaction id list.
type blockDigest struct {
	BlockHeader
	TxIDs []string `json:"tx_ids"`
}

// TxIDs returns the ordered list of transaction ids inside the block.
func (b Block) TxIDs() []string {
	ids := make([]string, len(b.Trans))
	for i, tx := range b.Trans {
		ids[i] = tx.TxID()
	}

	return ids
}

// TotalFees returns the sum of the fees of all transactions in the block.
func (b Block) TotalFees() uint64 {
	var total uint64
	for _, tx := range b.Trans {
		total += tx.Fee
	}

	return total
}

// Hash returns the unique hash for the Block. Re-serializing and re-hashing
// an accepted block reproduces its stored hash exactly.
func (b Block) Hash() string {
	if b.Header.Number == 0 {
		return hash.ZeroHash
	}

	return hash.Hash(blockDigest{b.Header, b.TxIDs()})
}

// =============================================================================

// POWArgs represents the set of arguments required to run the POW search.
type POWArgs struct {
	MinerID         AccountID
	BaseTarget      *big.Int // Network target recorded in the header.
	EffectiveTarget *big.Int // Target the hash must fall below, after any guard penalty.
	PrevBlock       Block
	Trans           []BlockTx
	EvHandler       func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce whose
// block hash falls below the effective target.
func POW(ctx context.Context, args POWArgs) (Block, error) {

	// When mining the first block, the previous block's hash will be zero.
	prevBlockHash := hash.ZeroHash
	if args.PrevBlock.Header.Number > 0 {
		prevBlockHash = args.PrevBlock.Hash()
	}

	nb := Block{
		Header: BlockHeader{
			Number:        args.PrevBlock.Header.Number + 1,
			TimeStamp:     uint64(time.Now().UTC().Unix()),
			PrevBlockHash: prevBlockHash,
			MinerID:       args.MinerID,
			Nonce:         0, // Will be identified by the POW search.
			Target:        fmt.Sprintf("%#x", args.BaseTarget),
		},
		Trans: args.Trans,
	}

	if err := nb.performPOW(ctx, args.EffectiveTarget, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, target *big.Int, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started")
	defer ev("database: PerformPOW: MINING: completed")

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return ctx.Err()
	}
	b.Header.Nonce = nBig.Uint64()

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did a competing block arrive or a shutdown start.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		blockHash := b.Hash()
		if !isHashSolved(target, blockHash) {
			b.Header.Nonce++
			continue
		}

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, blockHash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// ValidateStructure takes a block and validates it against the previous
// block: chain linkage, numbering, timestamp ordering and transaction id
// uniqueness inside the block. Chain state rules (fees, balances, confirmed
// duplicates) and the proof of work check are enforced by the state package
// before a block is accepted.
func (b Block) ValidateStructure(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: chain is not forked", b.Header.Number)

	// The node who sent this block has a chain that is two or more blocks
	// ahead of ours. This means there has been a fork and we are on the
	// wrong side.
	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number >= (nextNumber + 2) {
		return ErrChainForked
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	if b.Header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d: %w", b.Header.Number, nextNumber, ErrStaleBlock)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s: %w", b.Header.PrevBlockHash, previousBlock.Hash(), ErrStaleBlock)
	}

	if previousBlock.Header.TimeStamp > 0 {
		evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is greater than parent block's timestamp", b.Header.Number)

		parentTime := time.Unix(int64(previousBlock.Header.TimeStamp), 0)
		blockTime := time.Unix(int64(b.Header.TimeStamp), 0)
		if !blockTime.After(parentTime) {
			return fmt.Errorf("block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: no duplicate transactions inside the block", b.Header.Number)

	ids := make(map[string]struct{}, len(b.Trans))
	for _, tx := range b.Trans {
		txID := tx.TxID()
		if _, exists := ids[txID]; exists {
			return fmt.Errorf("duplicate transaction %s inside block", txID)
		}
		ids[txID] = struct{}{}
	}

	return nil
}

// SolvesTarget reports whether the block hash satisfies the proof of work
// condition for the specified target.
func (b Block) SolvesTarget(target *big.Int) bool {
	return isHashSolved(target, b.Hash())
}

// isHashSolved checks the hash complies with the POW rules: the hash read
// as a 256 bit integer must fall below the target.
func isHashSolved(target *big.Int, hexHash string) bool {
	if target == nil {
		return false
	}

	return hash.ToBig(hexHash).Cmp(target) < 0
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts block data into a block.
func ToBlock(blockData BlockData) Block {
	return Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}
}
