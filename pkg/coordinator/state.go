package coordinator

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/commitment"
	"github.com/hyperlicked/betagent/pkg/tradeset"
)

// BetState is one of the four states an ActiveBet moves through
// (spec.md §3.3): pending -> committed -> settling -> settled.
type BetState string

const (
	BetStatePending   BetState = "pending"
	BetStateCommitted BetState = "committed"
	BetStateSettling  BetState = "settling"
	BetStateSettled   BetState = "settled"
)

// ActiveBet is the in-memory lifecycle record for one on-chain bet
// (spec.md §3.1), keyed by betId in Coordinator.activeBets.
type ActiveBet struct {
	BetID        uint64
	Commitment   commitment.BetCommitment
	TradeSet     *tradeset.TradeSet
	Counterparty common.Address
	IsMaker      bool
	Deadline     time.Time
	State        BetState
}

// PendingProposal is a proposal a taker has tentatively accepted but not
// yet seen committed on-chain (spec.md §3.1), keyed by tradesRoot.
type PendingProposal struct {
	TradesRoot   [32]byte
	Commitment   commitment.BetCommitment
	TradeSet     *tradeset.TradeSet
	Counterparty common.Address
	OurSignature []byte
	CreatedAt    time.Time
}
