package guard_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/babymu5k/Zedovium/foundation/blockchain/guard"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const miner = "ZED-test-miner"

// record notes howMany blocks for the miner, one second apart, ending at now.
func record(g *guard.Guard, howMany int, now time.Time) {
	for i := howMany; i > 0; i-- {
		g.RecordBlock(miner, now.Add(-time.Duration(i)*time.Second))
	}
}

func TestPenalty(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	t.Log("Given the need to validate the anti-centralization penalty.")
	{
		t.Logf("\tTest 0:\tWhen a miner stays at the threshold.")
		{
			g := guard.New(10, time.Hour)
			record(g, 10, now)

			status := g.CheckAddress(miner, now)
			if status.Penalized {
				t.Fatalf("\t%s\tTest 0:\tShould not be penalized at the threshold.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not be penalized at the threshold.", success)

			if status.Multiplier != 1.0 {
				t.Fatalf("\t%s\tTest 0:\tShould have a 1.0 multiplier, got %.1f.", failed, status.Multiplier)
			}
			t.Logf("\t%s\tTest 0:\tShould have a 1.0 multiplier.", success)

			base := big.NewInt(1_000)
			if got := g.EffectiveTarget(miner, base, now); got.Cmp(base) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the base target, got %v.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the base target.", success)
		}

		t.Logf("\tTest 1:\tWhen a miner exceeds the threshold by one block.")
		{
			g := guard.New(10, time.Hour)
			record(g, 11, now)

			status := g.CheckAddress(miner, now)
			if !status.Penalized || status.Multiplier != 1.5 {
				t.Fatalf("\t%s\tTest 1:\tShould be penalized with a 1.5 multiplier, got %.1f.", failed, status.Multiplier)
			}
			t.Logf("\t%s\tTest 1:\tShould be penalized with a 1.5 multiplier.", success)

			// One excess block: effective = base × 2/3.
			got := g.EffectiveTarget(miner, big.NewInt(3_000), now)
			if got.Cmp(big.NewInt(2_000)) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould scale the target to 2000, got %v.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould scale the target by two thirds.", success)
		}

		t.Logf("\tTest 2:\tWhen a miner exceeds the threshold by three blocks.")
		{
			g := guard.New(10, time.Hour)
			record(g, 13, now)

			status := g.CheckAddress(miner, now)
			if status.Multiplier != 2.5 {
				t.Fatalf("\t%s\tTest 2:\tShould have a 2.5 multiplier, got %.1f.", failed, status.Multiplier)
			}
			t.Logf("\t%s\tTest 2:\tShould have a 2.5 multiplier.", success)

			if status.BlocksInWindow != 13 {
				t.Fatalf("\t%s\tTest 2:\tShould count 13 blocks in the window, got %d.", failed, status.BlocksInWindow)
			}
			t.Logf("\t%s\tTest 2:\tShould count 13 blocks in the window.", success)

			// Three excess blocks: effective = base × 2/5.
			got := g.EffectiveTarget(miner, big.NewInt(5_000), now)
			if got.Cmp(big.NewInt(2_000)) != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould scale the target to 2000, got %v.", failed, got)
			}
			t.Logf("\t%s\tTest 2:\tShould scale the target by two fifths.", success)
		}

		t.Logf("\tTest 3:\tWhen other miners are unaffected by the penalty.")
		{
			g := guard.New(10, time.Hour)
			record(g, 15, now)

			status := g.CheckAddress("ZED-another-miner", now)
			if status.Penalized || status.BlocksInWindow != 0 {
				t.Fatalf("\t%s\tTest 3:\tShould not penalize an idle miner.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould not penalize an idle miner.", success)
		}
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	t.Log("Given the need to validate the sliding window.")
	{
		t.Logf("\tTest 0:\tWhen older blocks fall out of the window.")
		{
			g := guard.New(10, time.Hour)

			// Eight stale blocks beyond the window plus five recent ones.
			for i := 0; i < 8; i++ {
				g.RecordBlock(miner, now.Add(-2*time.Hour))
			}
			record(g, 5, now)

			status := g.CheckAddress(miner, now)
			if status.BlocksInWindow != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould only count the 5 recent blocks, got %d.", failed, status.BlocksInWindow)
			}
			t.Logf("\t%s\tTest 0:\tShould only count the recent blocks.", success)

			if status.Penalized {
				t.Fatalf("\t%s\tTest 0:\tShould not be penalized after pruning.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not be penalized after pruning.", success)
		}

		t.Logf("\tTest 1:\tWhen a penalty expires with time.")
		{
			g := guard.New(10, time.Hour)
			record(g, 12, now)

			if status := g.CheckAddress(miner, now); !status.Penalized {
				t.Fatalf("\t%s\tTest 1:\tShould be penalized inside the window.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould be penalized inside the window.", success)

			later := now.Add(2 * time.Hour)
			if status := g.CheckAddress(miner, later); status.Penalized || status.BlocksInWindow != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould clear the penalty once the window passes.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould clear the penalty once the window passes.", success)
		}

		t.Logf("\tTest 2:\tWhen the zero value configuration is requested.")
		{
			g := guard.New(0, 0)
			record(g, guard.DefaultThreshold+1, now)

			if status := g.CheckAddress(miner, now); !status.Penalized {
				t.Fatalf("\t%s\tTest 2:\tShould apply the default threshold, got %d blocks.", failed, status.BlocksInWindow)
			}
			t.Logf("\t%s\tTest 2:\tShould apply the default threshold and window.", success)
		}
	}
}
