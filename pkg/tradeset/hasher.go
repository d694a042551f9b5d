package tradeset

import "fmt"

// Build assigns deterministic trade IDs under snapshotID, computes the
// commitment root with the mode selected by trade count, and returns the
// resulting TradeSet. trades is taken by value order; ordering is
// load-bearing and is preserved as given.
func Build(snapshotID string, trades []Trade) (*TradeSet, error) {
	for i := range trades {
		trades[i].TradeID = NewTradeID(snapshotID, i)
	}

	mode := ModeFor(len(trades))
	var root [32]byte
	switch mode {
	case ModeMerkle:
		_, r, err := BuildMerkleTree(trades)
		if err != nil {
			return nil, err
		}
		root = r
	case ModeFastHash:
		root = FastHash(snapshotID, trades)
	default:
		return nil, fmt.Errorf("tradeset: unknown mode %d", mode)
	}

	return &TradeSet{
		SnapshotID: snapshotID,
		Trades:     trades,
		Root:       root,
		Mode:       mode,
	}, nil
}

// Leaves returns the Merkle leaf array for ts, for proof generation. Only
// valid when ts.Mode == ModeMerkle.
func (ts *TradeSet) Leaves() ([][32]byte, error) {
	if ts.Mode != ModeMerkle {
		return nil, fmt.Errorf("tradeset: leaves unavailable in %s mode", ts.Mode)
	}
	leaves, _, err := BuildMerkleTree(ts.Trades)
	return leaves, err
}
