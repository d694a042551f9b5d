package chainclient

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BetStatus mirrors the settlement contract's on-chain bet status enum.
type BetStatus uint8

const (
	BetStatusPending BetStatus = iota
	BetStatusCommitted
	BetStatusInArbitration
	BetStatusSettled
)

func (s BetStatus) String() string {
	switch s {
	case BetStatusPending:
		return "pending"
	case BetStatusCommitted:
		return "committed"
	case BetStatusInArbitration:
		return "in_arbitration"
	case BetStatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// VaultBalance is an agent's collateral position.
type VaultBalance struct {
	Available *big.Int
	Locked    *big.Int
}

// BetInfo is the on-chain bet record returned by getBet.
type BetInfo struct {
	Status     BetStatus
	Creator    common.Address
	Filler     common.Address
	TradesRoot [32]byte
	Deadline   *big.Int
}

// Commitment mirrors the BetCommitment typed-data struct (spec.md §6.3),
// field order preserved for ABI encoding.
type Commitment struct {
	TradesRoot    [32]byte
	Creator       common.Address
	Filler        common.Address
	CreatorAmount *big.Int
	FillerAmount  *big.Int
	Deadline      *big.Int
	Nonce         *big.Int
	Expiry        *big.Int
}

// SettlementAgreement mirrors the SettlementAgreement typed-data struct.
type SettlementAgreement struct {
	BetID           *big.Int
	Winner          common.Address
	WinsCount       *big.Int
	ValidTrades     *big.Int
	IsTie           bool
	Expiry          *big.Int
	SettlementNonce *big.Int
}
