// Package commitment builds, signs, and verifies the two typed-data
// structs the agent co-signs with a peer: the bilateral bet commitment
// and the settlement agreement (spec.md §4.6, §6.3).
package commitment

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultExpiryWindow is how far in the future a commitment's expiry
// defaults to when the caller doesn't specify one.
const DefaultExpiryWindow = 5 * time.Minute

// BetCommitment is the bilateral contract the two parties co-sign.
// Field order is normative: it is the order the struct hash is computed
// over (spec.md §6.3).
type BetCommitment struct {
	TradesRoot    [32]byte
	Creator       common.Address
	Filler        common.Address
	CreatorAmount *big.Int
	FillerAmount  *big.Int
	Deadline      *big.Int
	Nonce         *big.Int
	Expiry        *big.Int
}

// SettlementAgreement is the bilateral outcome record the two parties
// co-sign at settlement. Field order is normative.
type SettlementAgreement struct {
	BetID           *big.Int
	Winner          common.Address
	WinsCount       *big.Int
	ValidTrades     *big.Int
	IsTie           bool
	Expiry          *big.Int
	SettlementNonce *big.Int
}

// Signed pairs a struct with both parties' signatures over it.
type Signed[T any] struct {
	Value      T
	CreatorSig []byte // or winner-side sig for a SettlementAgreement
	FillerSig  []byte
}

// IsFullySigned reports whether both signatures have been collected.
func (s Signed[T]) IsFullySigned() bool {
	return len(s.CreatorSig) == 65 && len(s.FillerSig) == 65
}
