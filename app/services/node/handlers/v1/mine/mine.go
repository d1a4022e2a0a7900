// Package mine maintains the group of handlers for external miners.
package mine

import (
	"context"
	"errors"
	"net/http"

	v1 "github.com/babymu5k/Zedovium/business/web/v1"
	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
	"github.com/babymu5k/Zedovium/foundation/blockchain/state"
	"github.com/babymu5k/Zedovium/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of mining endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Routes binds all the mining routes.
func Routes(app *web.App, cfg Config) {
	mnr := Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/mine/template/:account", mnr.Template)
	app.Handle(http.MethodPost, version, "/mine/submit", mnr.Submit)
	app.Handle(http.MethodGet, version, "/mine/signal", mnr.Signal)
}

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Template returns everything an external miner needs to search for the
// next block on behalf of the specified account.
func (h Handlers) Template(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, h.State.BuildMiningTemplate(accountID), http.StatusOK)
}

// Submit accepts a candidate block from an external miner, validates it and
// extends the chain if it passes every consensus rule.
func (h Handlers) Submit(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var blockData database.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return err
	}

	block := database.ToBlock(blockData)

	h.Log.Infow("submit block", "traceid", v.TraceID, "block", block.Header.Number, "miner", block.Header.MinerID)

	if err := h.State.SubmitBlock(block); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, database.ErrStaleBlock) || errors.Is(err, database.ErrChainForked) {
			status = http.StatusConflict
		}
		return v1.NewRequestError(err, status)
	}

	resp := struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
		Number uint64 `json:"number"`
	}{
		Status: "block accepted",
		Hash:   block.Hash(),
		Number: block.Header.Number,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Signal kicks off a local mining operation if transactions are pending.
func (h Handlers) Signal(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker != nil {
		h.State.Worker.SignalStartMining()
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
