package coordinator

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/tradeset"
	"github.com/hyperlicked/betagent/pkg/wire"
)

// decodeTradeBlob mirrors p2pserver's inbound decode side: gunzip, then
// unmarshal into the shared wireTrade wire shape (spec.md §4.4).
func decodeTradeBlob(blob []byte) ([]tradeset.Trade, error) {
	raw, err := wire.Gunzip(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: coordinator: decompress trade blob: %v", agenterr.ErrValidation, err)
	}
	var wts []wireTrade
	if err := json.Unmarshal(raw, &wts); err != nil {
		return nil, fmt.Errorf("%w: coordinator: decode trade blob: %v", agenterr.ErrValidation, err)
	}
	trades := make([]tradeset.Trade, len(wts))
	for i, wt := range wts {
		entry := big.NewInt(0)
		if wt.EntryPrice != nil {
			entry = &wt.EntryPrice.Int
		}
		trades[i] = tradeset.Trade{
			Ticker:     wt.Ticker,
			Source:     wt.Source,
			Method:     wt.Method,
			EntryPrice: entry,
		}
	}
	return trades, nil
}

// buildAndVerifyTradeSet rebuilds the commitment root from the decoded
// trades and checks it against declared, the same check the P2P server
// makes before ever invoking this handler — repeated here since the
// coordinator is also exercised directly in tests, without an HTTP hop.
func buildAndVerifyTradeSet(snapshotID string, trades []tradeset.Trade, declared [32]byte) (*tradeset.TradeSet, error) {
	ts, err := tradeset.Build(snapshotID, trades)
	if err != nil {
		return nil, fmt.Errorf("%w: coordinator: rebuild trade set: %v", agenterr.ErrValidation, err)
	}
	if ts.Root != declared {
		return nil, fmt.Errorf("%w: coordinator: trades root mismatch", agenterr.ErrValidation)
	}
	return ts, nil
}
