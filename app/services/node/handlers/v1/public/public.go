// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	v1 "github.com/babymu5k/Zedovium/business/web/v1"
	"github.com/babymu5k/Zedovium/foundation/blockchain/address"
	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
	"github.com/babymu5k/Zedovium/foundation/blockchain/mempool"
	"github.com/babymu5k/Zedovium/foundation/blockchain/state"
	"github.com/babymu5k/Zedovium/foundation/events"
	"github.com/babymu5k/Zedovium/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Book  *address.Book
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a new user transaction to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var st submitTx
	if err := web.Decode(r, &st); err != nil {
		return err
	}

	// The seed must derive the from address or the caller does not control
	// those funds.
	if !h.Book.VerifyOwnership(st.From, st.Seed) {
		return v1.NewRequestError(errors.New("seed does not own the from address"), http.StatusUnauthorized)
	}

	dbTx, err := database.NewTx(st.From, st.To, st.Value, st.Nonce)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "from", st.From, "to", st.To, "value", st.Value)

	blockTx, err := h.State.SubmitTransaction(dbTx)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, mempool.ErrFull) {
			status = http.StatusServiceUnavailable
		}
		return v1.NewRequestError(err, status)
	}

	resp := struct {
		Status string `json:"status"`
		TxID   string `json:"txid"`
		Fee    uint64 `json:"fee"`
	}{
		Status: "transaction added to mempool",
		TxID:   blockTx.TxID(),
		Fee:    blockTx.Fee,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// ChainStatus returns a summary of the node's consensus view.
func (h Handlers) ChainStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.LatestBlock()
	_, rateBips := h.State.FeeEstimate(0)

	cs := chainStatus{
		Height:          h.State.Height(),
		LatestBlock:     latest.Hash(),
		Target:          fmt.Sprintf("%#x", h.State.CurrentTarget()),
		Hashrate:        h.State.Hashrate().String(),
		TotalSupply:     h.State.TotalSupply(),
		MempoolSize:     h.State.MempoolLength(),
		CurrentRateBips: rateBips,
	}

	return web.Respond(ctx, w, cs, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions in mining order.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.Mempool()

	trans := make([]tx, len(pool))
	for i, tran := range pool {
		trans[i] = toTx(tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the current balances for all accounts.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var accountID database.AccountID

	if acct := web.Param(r, "account"); acct != "" {
		var err error
		accountID, err = database.ToAccountID(acct)
		if err != nil {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
	}

	blkAccounts := h.State.Accounts(accountID)

	acts := make([]account, 0, len(blkAccounts))
	for id, blkAccount := range blkAccounts {
		acts = append(acts, account{
			Account: string(id),
			Balance: blkAccount.Balance,
		})
	}

	ai := actInfo{
		LatestBlock: h.State.LatestBlock().Hash(),
		Uncommitted: h.State.MempoolLength(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// BlocksByNumber returns the blocks in the specified range.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if from > to {
		return v1.NewRequestError(errors.New("from must not be greater than to"), http.StatusBadRequest)
	}

	dbBlocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, dbBlock := range dbBlocks {
		blocks[i] = toBlock(dbBlock)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// GuardStatus reports the anti-centralization standing of the specified miner.
func (h Handlers) GuardStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, h.State.GuardStatus(accountID), http.StatusOK)
}

// FeeEstimate returns the fee the mempool currently expects for a transfer
// of the specified value.
func (h Handlers) FeeEstimate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	value, err := strconv.ParseUint(web.Param(r, "value"), 10, 64)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	feeAmount, rateBips := h.State.FeeEstimate(value)

	resp := struct {
		Value    uint64 `json:"value"`
		Fee      uint64 `json:"fee"`
		RateBips uint64 `json:"rate_bips"`
	}{
		Value:    value,
		Fee:      feeAmount,
		RateBips: rateBips,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// TxStatus reports whether a transaction is pending, confirmed or unknown.
func (h Handlers) TxStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txID := web.Param(r, "txid")

	resp := struct {
		TxID        string `json:"txid"`
		Status      string `json:"status"`
		BlockNumber uint64 `json:"block_number,omitempty"`
	}{
		TxID:   txID,
		Status: "unknown",
	}

	if blockNumber, confirmed := h.State.ConfirmedTx(txID); confirmed {
		resp.Status = "confirmed"
		resp.BlockNumber = blockNumber
		return web.Respond(ctx, w, resp, http.StatusOK)
	}

	for _, tran := range h.State.Mempool() {
		if tran.TxID() == txID {
			resp.Status = "pending"
			break
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
