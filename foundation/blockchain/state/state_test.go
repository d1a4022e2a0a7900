package state_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/babymu5k/Zedovium/foundation/blockchain/address"
	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
	"github.com/babymu5k/Zedovium/foundation/blockchain/database/storage"
	"github.com/babymu5k/Zedovium/foundation/blockchain/genesis"
	"github.com/babymu5k/Zedovium/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// easyTarget accepts essentially any hash so mining is instant. It is also
// the band min and max, which pins the target across retargets.
var easyTarget = "0x" + strings.Repeat("f", 64)

// testAddresses derives a deterministic set of valid addresses.
func testAddresses(t *testing.T, seeds ...string) []string {
	t.Helper()

	words := make([]string, 2048)
	for i := range words {
		words[i] = fmt.Sprintf("word%04d", i)
	}

	book, err := address.NewBook(words)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the book: %v", failed, err)
	}

	addresses := make([]string, len(seeds))
	for i, seed := range seeds {
		wallet, err := book.FromSeed(seed)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to derive a wallet: %v", failed, err)
		}
		addresses[i] = wallet.Address
	}

	return addresses
}

// testGenesis constructs the network rules the tests run under: the standard
// fee schedule with an instant proof of work.
func testGenesis(funded string) genesis.Genesis {
	return genesis.Genesis{
		Date:             time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:          1,
		Symbol:           "ZED",
		TransPerBlock:    512,
		MiningReward:     80,
		BaseFeeBips:      100,
		MaxFeeBips:       500,
		FeeStepBips:      10,
		FeeToleranceBips: 50,
		PoolMaxSize:      10_000,
		BlockIntervalSec: 300,
		RetargetBlocks:   12,
		GuardThreshold:   10,
		GuardWindowSec:   3_600,
		StartingTarget:   easyTarget,
		MinTarget:        easyTarget,
		MaxTarget:        easyTarget,
		Balances: map[string]uint64{
			funded: 100_000,
		},
	}
}

// newState constructs a node core over in-memory storage.
func newState(t *testing.T, gen genesis.Genesis, beneficiary string) *state.State {
	t.Helper()

	st, err := state.New(state.Config{
		BeneficiaryID: database.AccountID(beneficiary),
		Genesis:       gen,
		Storage:       storage.NewMemory(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

func TestMineNewBlock(t *testing.T) {
	addrs := testAddresses(t, "alice", "bob", "miner")
	alice, bob, miner := addrs[0], addrs[1], addrs[2]

	t.Log("Given the need to validate mining a block from the mempool.")
	{
		t.Logf("\tTest 0:\tWhen the mempool is empty.")
		{
			st := newState(t, testGenesis(alice), miner)

			if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest 0:\tShould refuse to mine an empty block, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould refuse to mine an empty block.", success)
		}

		t.Logf("\tTest 1:\tWhen mining a block holding two transactions.")
		{
			st := newState(t, testGenesis(alice), miner)

			tx1, _ := database.NewTx(alice, bob, 1_000, 1)
			blockTx1, err := st.SubmitTransaction(tx1)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to submit the first transaction: %v", failed, err)
			}

			tx2, _ := database.NewTx(alice, bob, 1_000, 2)
			if _, err := st.SubmitTransaction(tx2); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to submit the second transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to submit the transactions.", success)

			if blockTx1.Fee != 10 {
				t.Fatalf("\t%s\tTest 1:\tShould derive a 1%% fee of 10, got %d.", failed, blockTx1.Fee)
			}
			t.Logf("\t%s\tTest 1:\tShould derive a 1%% fee.", success)

			block, err := st.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine a block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to mine a block.", success)

			if len(block.Trans) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould include both transactions, got %d.", failed, len(block.Trans))
			}
			t.Logf("\t%s\tTest 1:\tShould include both transactions.", success)

			if st.Height() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould be at height 1, got %d.", failed, st.Height())
			}
			t.Logf("\t%s\tTest 1:\tShould be at height 1.", success)

			if st.MempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould drain the mempool, got %d left.", failed, st.MempoolLength())
			}
			t.Logf("\t%s\tTest 1:\tShould drain the mempool.", success)

			if got := st.Balance(database.AccountID(alice)); got != 100_000-2*(1_000+10) {
				t.Fatalf("\t%s\tTest 1:\tShould charge the sender value plus fees, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould charge the sender value plus fees.", success)

			if got := st.Balance(database.AccountID(bob)); got != 2_000 {
				t.Fatalf("\t%s\tTest 1:\tShould credit the receiver, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould credit the receiver.", success)

			if got := st.Balance(database.AccountID(miner)); got != 80+20 {
				t.Fatalf("\t%s\tTest 1:\tShould credit the miner reward plus fees, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould credit the miner reward plus fees.", success)

			if _, confirmed := st.ConfirmedTx(blockTx1.TxID()); !confirmed {
				t.Fatalf("\t%s\tTest 1:\tShould record the transaction as confirmed.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould record the transaction as confirmed.", success)
		}

		t.Logf("\tTest 2:\tWhen the sender overdraws across pending transactions.")
		{
			st := newState(t, testGenesis(alice), miner)

			tx1, _ := database.NewTx(alice, bob, 60_000, 1)
			if _, err := st.SubmitTransaction(tx1); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to submit the first transaction: %v", failed, err)
			}

			// The second transaction fits the balance alone but not on top of
			// the pending spend.
			tx2, _ := database.NewTx(alice, bob, 60_000, 2)
			if _, err := st.SubmitTransaction(tx2); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject spending beyond balance plus pending.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject spending beyond balance plus pending.", success)
		}

		t.Logf("\tTest 3:\tWhen submitting a zero value transfer.")
		{
			st := newState(t, testGenesis(alice), miner)

			tx, _ := database.NewTx(alice, bob, 0, 1)
			blockTx, err := st.SubmitTransaction(tx)
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould accept a zero value transfer: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould accept a zero value transfer.", success)

			if blockTx.Fee != 0 {
				t.Fatalf("\t%s\tTest 3:\tShould owe no fee on a zero value, got %d.", failed, blockTx.Fee)
			}
			t.Logf("\t%s\tTest 3:\tShould owe no fee on a zero value.", success)
		}
	}
}

func TestSubmitBlock(t *testing.T) {
	addrs := testAddresses(t, "alice", "bob", "miner", "rival")
	alice, bob, miner, rival := addrs[0], addrs[1], addrs[2], addrs[3]

	t.Log("Given the need to validate accepting externally mined blocks.")
	{
		t.Logf("\tTest 0:\tWhen a rival submits a well formed block.")
		{
			st := newState(t, testGenesis(alice), miner)

			// The rival prices the fee the same way admission would.
			tx, _ := database.NewTx(alice, bob, 1_000, 1)
			expected, _ := st.FeeEstimate(1_000)
			blockTx := database.NewBlockTx(tx, expected)

			block, err := database.POW(context.Background(), database.POWArgs{
				MinerID:         database.AccountID(rival),
				BaseTarget:      st.CurrentTarget(),
				EffectiveTarget: st.CurrentTarget(),
				PrevBlock:       st.LatestBlock(),
				Trans:           []database.BlockTx{blockTx},
				EvHandler:       func(v string, args ...any) {},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine the rival block: %v", failed, err)
			}

			if err := st.SubmitBlock(block); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the rival block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the rival block.", success)

			if got := st.Balance(database.AccountID(rival)); got != 80+expected {
				t.Fatalf("\t%s\tTest 0:\tShould credit the rival miner, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould credit the rival miner.", success)

			// A replay of the same block now builds on superseded state.
			if err := st.SubmitBlock(block); !errors.Is(err, database.ErrStaleBlock) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a replay as stale, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a replay as stale.", success)
		}

		t.Logf("\tTest 1:\tWhen a block declares the wrong target.")
		{
			st := newState(t, testGenesis(alice), miner)

			tx, _ := database.NewTx(alice, bob, 1_000, 1)
			expected, _ := st.FeeEstimate(1_000)

			staleTarget := new(big.Int).Rsh(st.CurrentTarget(), 1)
			block, err := database.POW(context.Background(), database.POWArgs{
				MinerID:         database.AccountID(rival),
				BaseTarget:      staleTarget,
				EffectiveTarget: st.CurrentTarget(),
				PrevBlock:       st.LatestBlock(),
				Trans:           []database.BlockTx{database.NewBlockTx(tx, expected)},
				EvHandler:       func(v string, args ...any) {},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine the block: %v", failed, err)
			}

			if err := st.SubmitBlock(block); !errors.Is(err, database.ErrStaleBlock) {
				t.Fatalf("\t%s\tTest 1:\tShould reject a mismatched target as stale, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a mismatched target as stale.", success)

			if st.Height() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the chain untouched, got height %d.", failed, st.Height())
			}
			t.Logf("\t%s\tTest 1:\tShould leave the chain untouched.", success)
		}

		t.Logf("\tTest 2:\tWhen a block repeats an already confirmed transaction.")
		{
			st := newState(t, testGenesis(alice), miner)

			tx, _ := database.NewTx(alice, bob, 1_000, 1)
			blockTx, err := st.SubmitTransaction(tx)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to submit the transaction: %v", failed, err)
			}

			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to mine the block: %v", failed, err)
			}

			// Timestamps carry second granularity and must strictly advance.
			time.Sleep(1100 * time.Millisecond)

			replay, err := database.POW(context.Background(), database.POWArgs{
				MinerID:         database.AccountID(rival),
				BaseTarget:      st.CurrentTarget(),
				EffectiveTarget: st.CurrentTarget(),
				PrevBlock:       st.LatestBlock(),
				Trans:           []database.BlockTx{blockTx},
				EvHandler:       func(v string, args ...any) {},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to mine the replay block: %v", failed, err)
			}

			if err := st.SubmitBlock(replay); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject a confirmed transaction.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject a confirmed transaction.", success)

			if st.Height() != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould leave the chain at height 1, got %d.", failed, st.Height())
			}
			t.Logf("\t%s\tTest 2:\tShould leave the chain at height 1.", success)
		}

		t.Logf("\tTest 3:\tWhen a block exceeds the transaction limit.")
		{
			gen := testGenesis(alice)
			gen.TransPerBlock = 1
			st := newState(t, gen, miner)

			tx1, _ := database.NewTx(alice, bob, 1_000, 1)
			tx2, _ := database.NewTx(alice, bob, 1_000, 2)
			expected, _ := st.FeeEstimate(1_000)

			block, err := database.POW(context.Background(), database.POWArgs{
				MinerID:         database.AccountID(rival),
				BaseTarget:      st.CurrentTarget(),
				EffectiveTarget: st.CurrentTarget(),
				PrevBlock:       st.LatestBlock(),
				Trans: []database.BlockTx{
					database.NewBlockTx(tx1, expected),
					database.NewBlockTx(tx2, expected),
				},
				EvHandler: func(v string, args ...any) {},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to mine the block: %v", failed, err)
			}

			if err := st.SubmitBlock(block); err == nil {
				t.Fatalf("\t%s\tTest 3:\tShould reject a block over the transaction limit.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould reject a block over the transaction limit.", success)
		}
	}
}

func TestQueries(t *testing.T) {
	addrs := testAddresses(t, "alice", "bob", "miner")
	alice, bob, miner := addrs[0], addrs[1], addrs[2]

	t.Log("Given the need to validate the chain query surface.")
	{
		t.Logf("\tTest 0:\tWhen querying a mined chain.")
		{
			st := newState(t, testGenesis(alice), miner)

			tx, _ := database.NewTx(alice, bob, 1_000, 1)
			if _, err := st.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit the transaction: %v", failed, err)
			}

			block, err := st.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine a block: %v", failed, err)
			}

			got, err := st.QueryBlockByNumber(1)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to query block 1: %v", failed, err)
			}
			if got.Hash() != block.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould return the mined block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould return the mined block by number.", success)

			blocks, err := st.QueryBlocksByNumber(1, state.QueryLatest)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to query the range: %v", failed, err)
			}
			if len(blocks) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould return one block, got %d.", failed, len(blocks))
			}
			t.Logf("\t%s\tTest 0:\tShould resolve latest in a range query.", success)

			// Mining reward enters the supply on acceptance.
			if got := st.TotalSupply(); got != 100_000+80 {
				t.Fatalf("\t%s\tTest 0:\tShould grow the supply by the reward, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould grow the supply by the reward.", success)
		}

		t.Logf("\tTest 1:\tWhen building a mining template.")
		{
			st := newState(t, testGenesis(alice), miner)

			tx, _ := database.NewTx(alice, bob, 1_000, 1)
			if _, err := st.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to submit the transaction: %v", failed, err)
			}

			tmpl := st.BuildMiningTemplate(database.AccountID(miner))
			if tmpl.NextBlockNumber != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould template block number 1, got %d.", failed, tmpl.NextBlockNumber)
			}
			t.Logf("\t%s\tTest 1:\tShould template the next block number.", success)

			if len(tmpl.Trans) != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould include the pending transaction, got %d.", failed, len(tmpl.Trans))
			}
			t.Logf("\t%s\tTest 1:\tShould include the pending transaction.", success)

			if tmpl.Target != tmpl.EffectiveTarget {
				t.Fatalf("\t%s\tTest 1:\tShould match targets for an unpenalized miner.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould match targets for an unpenalized miner.", success)
		}
	}
}
