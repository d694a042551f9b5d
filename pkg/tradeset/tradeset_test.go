package tradeset

import (
	"math/big"
	"testing"
)

func mkTrades(n int) []Trade {
	trades := make([]Trade, n)
	for i := range trades {
		trades[i] = Trade{
			Ticker:     "BTC",
			Source:     "test",
			Method:     "up:0",
			EntryPrice: big.NewInt(int64(100 + i)),
		}
	}
	return trades
}

func TestHashAgreementMerkle(t *testing.T) {
	a := mkTrades(4)
	b := mkTrades(4)

	setA, err := Build("snap-1", a)
	if err != nil {
		t.Fatalf("build a: %v", err)
	}
	setB, err := Build("snap-1", b)
	if err != nil {
		t.Fatalf("build b: %v", err)
	}
	if setA.Root != setB.Root {
		t.Errorf("independent builds diverged: %x != %x", setA.Root, setB.Root)
	}
}

func TestHashAgreementFastHash(t *testing.T) {
	a := mkTrades(1500)
	b := mkTrades(1500)

	setA, err := Build("snap-2", a)
	if err != nil {
		t.Fatalf("build a: %v", err)
	}
	setB, err := Build("snap-2", b)
	if err != nil {
		t.Fatalf("build b: %v", err)
	}
	if setA.Mode != ModeFastHash {
		t.Fatalf("expected fast-hash mode for 1500 trades, got %s", setA.Mode)
	}
	if setA.Root != setB.Root {
		t.Errorf("independent builds diverged: %x != %x", setA.Root, setB.Root)
	}
}

func TestModeSelection(t *testing.T) {
	if ModeFor(999) != ModeMerkle {
		t.Errorf("999 trades should select merkle mode")
	}
	if ModeFor(1000) != ModeFastHash {
		t.Errorf("1000 trades should select fast-hash mode")
	}
}

func TestEmptyTradeSetRoot(t *testing.T) {
	leaves, root, err := BuildMerkleTree(nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if root != EmptyLeaf {
		t.Errorf("empty tree root should equal EmptyLeaf")
	}
	if len(leaves) != 1 || leaves[0] != EmptyLeaf {
		t.Errorf("empty tree should have a single EmptyLeaf entry")
	}
}

func TestMerkleProofRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 16, 100, 1023} {
		trades := mkTrades(n)
		for i := range trades {
			trades[i].TradeID = NewTradeID("snap", i)
		}
		leaves, root, err := BuildMerkleTree(trades)
		if err != nil {
			t.Fatalf("n=%d build: %v", n, err)
		}
		for i := 0; i < n; i++ {
			proof, err := GenerateProof(leaves, i)
			if err != nil {
				t.Fatalf("n=%d i=%d proof: %v", n, i, err)
			}
			if !VerifyProof(leaves[i], proof, root) {
				t.Errorf("n=%d i=%d: proof did not verify", n, i)
			}

			mutated := leaves[i]
			mutated[0] ^= 0xff
			if VerifyProof(mutated, proof, root) {
				t.Errorf("n=%d i=%d: mutated leaf unexpectedly verified", n, i)
			}

			if len(proof.Siblings) > 0 {
				badProof := proof
				badProof.Siblings = append([][32]byte{}, proof.Siblings...)
				badProof.Siblings[0][0] ^= 0xff
				if VerifyProof(leaves[i], badProof, root) {
					t.Errorf("n=%d i=%d: mutated sibling unexpectedly verified", n, i)
				}
			}

			badRoot := root
			badRoot[0] ^= 0xff
			if VerifyProof(leaves[i], proof, badRoot) {
				t.Errorf("n=%d i=%d: mutated root unexpectedly verified", n, i)
			}
		}
	}
}

func TestResolveUpWins(t *testing.T) {
	trade := Trade{Method: "up:0", EntryPrice: big.NewInt(100)}
	if err := ResolveTrade(&trade, big.NewInt(150)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !trade.Won || trade.Cancelled {
		t.Errorf("expected win, got won=%v cancelled=%v", trade.Won, trade.Cancelled)
	}
}

func TestResolveZeroPricesCancel(t *testing.T) {
	trade := Trade{Method: "up:0", EntryPrice: big.NewInt(100)}
	if err := ResolveTrade(&trade, big.NewInt(0)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !trade.Cancelled || trade.Won {
		t.Errorf("zero exit price should cancel the trade")
	}
}

func TestResolveUnrecognizedMethodCancels(t *testing.T) {
	trade := Trade{Method: "sideways:10", EntryPrice: big.NewInt(100)}
	if err := ResolveTrade(&trade, big.NewInt(100)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !trade.Cancelled {
		t.Errorf("unrecognized method should cancel the trade")
	}
}

func TestOutcomeMajorityWinsForCreator(t *testing.T) {
	set, err := Build("snap-3", []Trade{
		{Ticker: "BTC", Method: "up:0", EntryPrice: big.NewInt(100)},
		{Ticker: "ETH", Method: "up:0", EntryPrice: big.NewInt(2000)},
		{Ticker: "SOL", Method: "up:0", EntryPrice: big.NewInt(50)},
		{Ticker: "ADA", Method: "up:0", EntryPrice: big.NewInt(1)},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	outcome, err := Resolve(set, []*big.Int{
		big.NewInt(150), big.NewInt(2100), big.NewInt(40), big.NewInt(2),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.WinsCount != 3 || outcome.ValidTrades != 4 || outcome.IsTie || !outcome.CreatorWon {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestOutcomeFlatExitLosesForUp(t *testing.T) {
	// Mirrors scenario E2: up:0 trades whose exit price exactly equals
	// entry never count as a creator win, only strictly higher exits do.
	set, err := Build("snap-e2", []Trade{
		{Ticker: "BTC", Method: "up:0", EntryPrice: big.NewInt(100)},
		{Ticker: "ETH", Method: "up:0", EntryPrice: big.NewInt(2000)},
		{Ticker: "SOL", Method: "up:0", EntryPrice: big.NewInt(50)},
		{Ticker: "ADA", Method: "up:0", EntryPrice: big.NewInt(1)},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	outcome, err := Resolve(set, []*big.Int{
		big.NewInt(100), big.NewInt(2000), big.NewInt(50), big.NewInt(1),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.WinsCount != 0 || outcome.ValidTrades != 4 || outcome.CreatorWon {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestOutcomeTieGoesToFiller(t *testing.T) {
	set, err := Build("snap-4", []Trade{
		{Ticker: "BTC", Method: "up:0", EntryPrice: big.NewInt(100)},
		{Ticker: "ETH", Method: "up:0", EntryPrice: big.NewInt(100)},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// One win, one loss: tied tally, filler wins.
	outcome, err := Resolve(set, []*big.Int{big.NewInt(150), big.NewInt(50)})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !outcome.IsTie || outcome.CreatorWon {
		t.Errorf("expected tie-to-filler, got %+v", outcome)
	}
}

func TestCancellationInvariantExcludesFromTally(t *testing.T) {
	set, err := Build("snap-5", []Trade{
		{Ticker: "BTC", Method: "up:0", EntryPrice: big.NewInt(100)},
		{Ticker: "ETH", Method: "bogus:0", EntryPrice: big.NewInt(100)},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	outcome, err := Resolve(set, []*big.Int{big.NewInt(150), big.NewInt(150)})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.ValidTrades != 1 || outcome.WinsCount != 1 || !set.Trades[1].Cancelled {
		t.Errorf("cancelled trade should be excluded from tally: %+v", outcome)
	}
}

func TestMaxMerkleTradesCap(t *testing.T) {
	_, _, err := BuildMerkleTree(make([]Trade, MaxMerkleTrades+1))
	if err == nil {
		t.Errorf("expected error exceeding merkle cap")
	}
}
