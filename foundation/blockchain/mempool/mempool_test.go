package mempool_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/babymu5k/Zedovium/foundation/blockchain/address"
	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
	"github.com/babymu5k/Zedovium/foundation/blockchain/fee"
	"github.com/babymu5k/Zedovium/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// testAddress derives a valid address from the specified seed.
func testAddress(t *testing.T, seed string) string {
	t.Helper()

	words := make([]string, 2048)
	for i := range words {
		words[i] = fmt.Sprintf("word%04d", i)
	}

	book, err := address.NewBook(words)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the book: %v", failed, err)
	}

	wallet, err := book.FromSeed(seed)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to derive a wallet: %v", failed, err)
	}

	return wallet.Address
}

// newPool constructs a mempool with the default fee schedule.
func newPool(t *testing.T, maxSize int, toleranceBips uint64) *mempool.Mempool {
	t.Helper()

	mp, err := mempool.New(mempool.Config{
		MaxSize:       maxSize,
		FeeEngine:     fee.NewEngine(0, 0, 0),
		ToleranceBips: toleranceBips,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the mempool: %v", failed, err)
	}

	return mp
}

// admitTx builds a transaction with the pool's currently expected fee and
// admits it.
func admitTx(t *testing.T, mp *mempool.Mempool, from string, to string, value uint64, nonce uint64) database.BlockTx {
	t.Helper()

	tx, err := database.NewTx(from, to, value, nonce)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the transaction: %v", failed, err)
	}

	blockTx := database.NewBlockTx(tx, mp.ExpectedFee(value))
	if err := mp.Admit(blockTx); err != nil {
		t.Fatalf("\t%s\tShould be able to admit the transaction: %v", failed, err)
	}

	return blockTx
}

func TestAdmission(t *testing.T) {
	alice := testAddress(t, "alice")
	bob := testAddress(t, "bob")

	t.Log("Given the need to validate mempool admission rules.")
	{
		t.Logf("\tTest 0:\tWhen admitting a well formed transaction.")
		{
			mp := newPool(t, 10, 50)
			blockTx := admitTx(t, mp, alice, bob, 1_000, 1)
			t.Logf("\t%s\tTest 0:\tShould be able to admit the transaction: %s", success, blockTx.TxID())

			if mp.Count() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have one transaction in the pool, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould have one transaction in the pool.", success)
		}

		t.Logf("\tTest 1:\tWhen admitting the same transaction twice.")
		{
			mp := newPool(t, 10, 50)
			blockTx := admitTx(t, mp, alice, bob, 1_000, 1)

			if err := mp.Admit(blockTx); !errors.Is(err, mempool.ErrDuplicate) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the duplicate with ErrDuplicate, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the duplicate with ErrDuplicate.", success)
		}

		t.Logf("\tTest 2:\tWhen the pool is at capacity.")
		{
			mp := newPool(t, 2, 50)
			admitTx(t, mp, alice, bob, 1_000, 1)
			admitTx(t, mp, alice, bob, 1_000, 2)

			tx, _ := database.NewTx(alice, bob, 1_000, 3)
			blockTx := database.NewBlockTx(tx, mp.ExpectedFee(1_000))
			if err := mp.Admit(blockTx); !errors.Is(err, mempool.ErrFull) {
				t.Fatalf("\t%s\tTest 2:\tShould reject with ErrFull, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject with ErrFull.", success)

			if mp.Count() != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould still have two transactions, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 2:\tShould still have two transactions.", success)
		}

		t.Logf("\tTest 3:\tWhen the fee deviates beyond the tolerance.")
		{
			mp := newPool(t, 10, 50)

			tx, _ := database.NewTx(alice, bob, 10_000, 1)
			lowball := database.NewBlockTx(tx, mp.ExpectedFee(10_000)-100)
			if err := mp.Admit(lowball); !errors.Is(err, mempool.ErrInvalidFee) {
				t.Fatalf("\t%s\tTest 3:\tShould reject with ErrInvalidFee, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould reject with ErrInvalidFee.", success)
		}

		t.Logf("\tTest 4:\tWhen the fee deviates inside the tolerance.")
		{
			mp := newPool(t, 10, 50)

			tx, _ := database.NewTx(alice, bob, 10_000, 1)
			nearMiss := database.NewBlockTx(tx, mp.ExpectedFee(10_000)-50)
			if err := mp.Admit(nearMiss); err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould accept a fee inside the tolerance, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 4:\tShould accept a fee inside the tolerance.", success)
		}
	}
}

func TestPickBest(t *testing.T) {
	alice := testAddress(t, "alice")
	bob := testAddress(t, "bob")

	t.Log("Given the need to validate deterministic block selection.")
	{
		t.Logf("\tTest 0:\tWhen picking from a pool with distinct fees.")
		{
			// A wide tolerance lets this test pin arbitrary fees.
			mp := newPool(t, 10, 10_000)

			fees := []uint64{10, 100, 50}
			for i, feeAmount := range fees {
				tx, _ := database.NewTx(alice, bob, 1_000, uint64(i+1))
				if err := mp.Admit(database.NewBlockTx(tx, feeAmount)); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to admit the transaction: %v", failed, err)
				}
			}

			best := mp.PickBest(2)
			if len(best) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould get two transactions, got %d.", failed, len(best))
			}
			t.Logf("\t%s\tTest 0:\tShould get two transactions.", success)

			if best[0].Fee != 100 || best[1].Fee != 50 {
				t.Fatalf("\t%s\tTest 0:\tShould order by fee descending, got %d then %d.", failed, best[0].Fee, best[1].Fee)
			}
			t.Logf("\t%s\tTest 0:\tShould order by fee descending.", success)
		}

		t.Logf("\tTest 1:\tWhen fees tie across two nodes holding the same snapshot.")
		{
			first, _ := database.NewTx(alice, bob, 1_000, 1)
			second, _ := database.NewTx(alice, bob, 2_000, 2)

			// Identical fees, distinct admission timestamps carried on the
			// transactions themselves.
			firstTx := database.BlockTx{Tx: first, Fee: 25, TimeStamp: 100}
			secondTx := database.BlockTx{Tx: second, Fee: 25, TimeStamp: 200}

			node1 := newPool(t, 10, 10_000)
			node2 := newPool(t, 10, 10_000)

			for _, tx := range []database.BlockTx{firstTx, secondTx} {
				if err := node1.Admit(tx); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould be able to admit the transaction: %v", failed, err)
				}
			}
			for _, tx := range []database.BlockTx{secondTx, firstTx} {
				if err := node2.Admit(tx); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould be able to admit the transaction: %v", failed, err)
				}
			}

			best1 := node1.PickBest(-1)
			best2 := node2.PickBest(-1)

			if best1[0].TxID() != firstTx.TxID() {
				t.Fatalf("\t%s\tTest 1:\tShould break the tie by the earlier timestamp.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould break the tie by the earlier timestamp.", success)

			for i := range best1 {
				if best1[i].TxID() != best2[i].TxID() {
					t.Fatalf("\t%s\tTest 1:\tShould select the same order on both nodes.", failed)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould select the same order on both nodes.", success)
		}

		t.Logf("\tTest 2:\tWhen fees and timestamps both tie.")
		{
			first, _ := database.NewTx(alice, bob, 1_000, 1)
			second, _ := database.NewTx(alice, bob, 2_000, 2)

			firstTx := database.BlockTx{Tx: first, Fee: 25, TimeStamp: 100}
			secondTx := database.BlockTx{Tx: second, Fee: 25, TimeStamp: 100}

			node1 := newPool(t, 10, 10_000)
			node2 := newPool(t, 10, 10_000)

			for _, tx := range []database.BlockTx{firstTx, secondTx} {
				if err := node1.Admit(tx); err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould be able to admit the transaction: %v", failed, err)
				}
			}
			for _, tx := range []database.BlockTx{secondTx, firstTx} {
				if err := node2.Admit(tx); err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould be able to admit the transaction: %v", failed, err)
				}
			}

			best1 := node1.PickBest(-1)
			best2 := node2.PickBest(-1)
			if best1[0].TxID() != best2[0].TxID() {
				t.Fatalf("\t%s\tTest 2:\tShould fall back to the transaction id for a total order.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould fall back to the transaction id for a total order.", success)
		}

		t.Logf("\tTest 3:\tWhen asking for more than the pool holds.")
		{
			mp := newPool(t, 10, 50)
			admitTx(t, mp, alice, bob, 1_000, 1)

			best := mp.PickBest(512)
			if len(best) != 1 {
				t.Fatalf("\t%s\tTest 3:\tShould get every transaction, got %d.", failed, len(best))
			}
			t.Logf("\t%s\tTest 3:\tShould get every transaction.", success)
		}
	}
}

func TestRemoveAndPending(t *testing.T) {
	alice := testAddress(t, "alice")
	bob := testAddress(t, "bob")

	t.Log("Given the need to validate pool draining and pending spend tracking.")
	{
		t.Logf("\tTest 0:\tWhen removing mined transactions.")
		{
			mp := newPool(t, 10, 50)
			blockTx := admitTx(t, mp, alice, bob, 1_000, 1)
			admitTx(t, mp, alice, bob, 1_000, 2)

			mp.Remove([]string{blockTx.TxID(), "not-a-resident-id"})
			if mp.Count() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have one transaction left, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould have one transaction left and ignore unknown ids.", success)
		}

		t.Logf("\tTest 1:\tWhen summing an account's pending spend.")
		{
			mp := newPool(t, 10, 50)
			tx1 := admitTx(t, mp, alice, bob, 1_000, 1)
			tx2 := admitTx(t, mp, alice, bob, 2_000, 2)
			admitTx(t, mp, bob, alice, 5_000, 1)

			want := tx1.Cost() + tx2.Cost()
			if got := mp.PendingSpend(database.AccountID(alice)); got != want {
				t.Fatalf("\t%s\tTest 1:\tShould get a pending spend of %d, got %d.", failed, want, got)
			}
			t.Logf("\t%s\tTest 1:\tShould get the right pending spend.", success)
		}

		t.Logf("\tTest 2:\tWhen truncating the pool.")
		{
			mp := newPool(t, 10, 50)
			admitTx(t, mp, alice, bob, 1_000, 1)
			admitTx(t, mp, bob, alice, 2_000, 1)

			mp.Truncate()
			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould have an empty pool, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 2:\tShould have an empty pool.", success)

			if got := mp.PendingSpend(database.AccountID(alice)); got != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould have no pending spend, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 2:\tShould have no pending spend.", success)
		}
	}
}
