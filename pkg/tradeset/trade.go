// Package tradeset computes the cryptographic commitment over a bet's
// trade list and resolves the bet outcome once exit prices are known.
// Two commitment modes exist: a proof-capable Merkle tree for small trade
// counts, and a streaming fast hash for large ones (spec.md §4.3).
package tradeset

import (
	"math/big"

	"github.com/hyperlicked/betagent/pkg/cryptoutil"
)

// FastHashThreshold is the trade count at or above which the fast-hash
// commitment is used instead of the Merkle tree.
const FastHashThreshold = 1000

// MaxMerkleTrades is the hard cap on trades committed via the Merkle tree.
const MaxMerkleTrades = 1 << 20

// Trade is one element of a bet's portfolio.
type Trade struct {
	TradeID    [32]byte
	Ticker     string
	Source     string
	Method     string // "up:K", "down:K", or "flat:K"
	EntryPrice *big.Int
	ExitPrice  *big.Int
	Won        bool
	Cancelled  bool
}

// TradeSet is an ordered list of trades plus the commitment root over
// them. Ordering is load-bearing: the commitment is position-sensitive.
// The set is not immutable: Resolve rewrites each trade's ExitPrice, Won
// and Cancelled fields in place, and Root is not recomputed afterwards.
type TradeSet struct {
	SnapshotID string
	Trades     []Trade
	Root       [32]byte
	Mode       Mode
}

// Mode identifies which commitment scheme produced Root.
type Mode int

const (
	ModeMerkle Mode = iota
	ModeFastHash
)

func (m Mode) String() string {
	if m == ModeFastHash {
		return "fast-hash"
	}
	return "merkle"
}

// ModeFor returns the commitment mode that applies to a trade list of the
// given length.
func ModeFor(n int) Mode {
	if n >= FastHashThreshold {
		return ModeFastHash
	}
	return ModeMerkle
}

// NewTradeID derives a trade's deterministic identifier from its snapshot
// and position.
func NewTradeID(snapshotID string, index int) [32]byte {
	idxBytes := big.NewInt(int64(index)).Bytes()
	return cryptoutil.Keccak256([]byte(snapshotID), idxBytes)
}
