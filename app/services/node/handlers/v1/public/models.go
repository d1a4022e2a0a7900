package public

import "github.com/babymu5k/Zedovium/foundation/blockchain/database"

// submitTx is what a wallet sends to move funds. The seed proves the caller
// controls the from address; it never leaves the request scope. Value has no
// required tag: zero value transfers are legal and carry a zero fee.
type submitTx struct {
	Seed  string `json:"seed" validate:"required"`
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required"`
	Value uint64 `json:"value"`
	Nonce uint64 `json:"nonce"`
}

// tx is the response representation of a pending transaction.
type tx struct {
	TxID      string `json:"txid"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     uint64 `json:"value"`
	Fee       uint64 `json:"fee"`
	Nonce     uint64 `json:"nonce"`
	TimeStamp uint64 `json:"timestamp"`
}

func toTx(blockTx database.BlockTx) tx {
	return tx{
		TxID:      blockTx.TxID(),
		From:      string(blockTx.FromID),
		To:        string(blockTx.ToID),
		Value:     blockTx.Value,
		Fee:       blockTx.Fee,
		Nonce:     blockTx.Nonce,
		TimeStamp: blockTx.TimeStamp,
	}
}

// actInfo carries the account listing plus the chain position it was
// observed at.
type actInfo struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Accounts    []account `json:"accounts"`
}

type account struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// chainStatus summarizes the consensus view of this node.
type chainStatus struct {
	Height          uint64 `json:"height"`
	LatestBlock     string `json:"latest_block"`
	Target          string `json:"target"`
	Hashrate        string `json:"hashrate"`
	TotalSupply     uint64 `json:"total_supply"`
	MempoolSize     int    `json:"mempool_size"`
	CurrentRateBips uint64 `json:"current_fee_rate_bips"`
}

// block is the response representation of a confirmed block.
type block struct {
	Hash          string `json:"hash"`
	PrevBlockHash string `json:"prev_block_hash"`
	Number        uint64 `json:"number"`
	TimeStamp     uint64 `json:"timestamp"`
	MinerID       string `json:"miner"`
	Nonce         uint64 `json:"nonce"`
	Target        string `json:"target"`
	TotalFees     uint64 `json:"total_fees"`
	Trans         []tx   `json:"trans"`
}

func toBlock(dbBlock database.Block) block {
	trans := make([]tx, len(dbBlock.Trans))
	for i, tran := range dbBlock.Trans {
		trans[i] = toTx(tran)
	}

	return block{
		Hash:          dbBlock.Hash(),
		PrevBlockHash: dbBlock.Header.PrevBlockHash,
		Number:        dbBlock.Header.Number,
		TimeStamp:     dbBlock.Header.TimeStamp,
		MinerID:       string(dbBlock.Header.MinerID),
		Nonce:         dbBlock.Header.Nonce,
		Target:        dbBlock.Header.Target,
		TotalFees:     dbBlock.TotalFees(),
		Trans:         trans,
	}
}
