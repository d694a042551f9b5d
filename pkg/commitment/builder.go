package commitment

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/agenterr"
)

// BilateralBetBuilder is a chainable construction API for a BetCommitment.
// It enforces that every required field is present before Build, derives
// fillerAmount from creatorAmount and odds when odds are supplied instead
// of an explicit fillerAmount, and defaults expiry to now + 5 minutes when
// left unset. It also accumulates both parties' signatures once they're
// available.
type BilateralBetBuilder struct {
	tradesRoot    *[32]byte
	creator       *common.Address
	filler        *common.Address
	creatorAmount *big.Int
	fillerAmount  *big.Int
	odds          *big.Rat
	deadline      *big.Int
	nonce         *big.Int
	expiry        *big.Int

	creatorSig []byte
	fillerSig  []byte
}

// NewBuilder returns an empty builder.
func NewBuilder() *BilateralBetBuilder {
	return &BilateralBetBuilder{}
}

func (b *BilateralBetBuilder) WithTradesRoot(root [32]byte) *BilateralBetBuilder {
	b.tradesRoot = &root
	return b
}

func (b *BilateralBetBuilder) WithCreator(addr common.Address) *BilateralBetBuilder {
	b.creator = &addr
	return b
}

func (b *BilateralBetBuilder) WithFiller(addr common.Address) *BilateralBetBuilder {
	b.filler = &addr
	return b
}

func (b *BilateralBetBuilder) WithCreatorAmount(amount *big.Int) *BilateralBetBuilder {
	b.creatorAmount = amount
	return b
}

// WithFillerAmount sets fillerAmount explicitly, taking precedence over
// any odds set via WithOdds.
func (b *BilateralBetBuilder) WithFillerAmount(amount *big.Int) *BilateralBetBuilder {
	b.fillerAmount = amount
	return b
}

// WithOdds records the filler:creator stake ratio (filler stake per unit of
// creator stake); Build derives
// fillerAmount = creatorAmount * odds when fillerAmount wasn't set
// explicitly.
func (b *BilateralBetBuilder) WithOdds(odds *big.Rat) *BilateralBetBuilder {
	b.odds = odds
	return b
}

func (b *BilateralBetBuilder) WithDeadline(deadline time.Time) *BilateralBetBuilder {
	b.deadline = big.NewInt(deadline.Unix())
	return b
}

func (b *BilateralBetBuilder) WithNonce(nonce *big.Int) *BilateralBetBuilder {
	b.nonce = nonce
	return b
}

func (b *BilateralBetBuilder) WithExpiry(expiry time.Time) *BilateralBetBuilder {
	b.expiry = big.NewInt(expiry.Unix())
	return b
}

func (b *BilateralBetBuilder) WithCreatorSignature(sig []byte) *BilateralBetBuilder {
	b.creatorSig = sig
	return b
}

func (b *BilateralBetBuilder) WithFillerSignature(sig []byte) *BilateralBetBuilder {
	b.fillerSig = sig
	return b
}

// IsFullySigned reports whether both signatures have been recorded.
func (b *BilateralBetBuilder) IsFullySigned() bool {
	return len(b.creatorSig) == 65 && len(b.fillerSig) == 65
}

// Signatures returns the recorded creator and filler signatures.
func (b *BilateralBetBuilder) Signatures() (creatorSig, fillerSig []byte) {
	return b.creatorSig, b.fillerSig
}

// Build validates that every required field is present and returns the
// resulting BetCommitment.
func (b *BilateralBetBuilder) Build() (BetCommitment, error) {
	if b.tradesRoot == nil {
		return BetCommitment{}, fmt.Errorf("%w: commitment: tradesRoot is required", agenterr.ErrValidation)
	}
	if b.creator == nil {
		return BetCommitment{}, fmt.Errorf("%w: commitment: creator is required", agenterr.ErrValidation)
	}
	if b.filler == nil {
		return BetCommitment{}, fmt.Errorf("%w: commitment: filler is required", agenterr.ErrValidation)
	}
	if b.creatorAmount == nil {
		return BetCommitment{}, fmt.Errorf("%w: commitment: creatorAmount is required", agenterr.ErrValidation)
	}
	if b.deadline == nil {
		return BetCommitment{}, fmt.Errorf("%w: commitment: deadline is required", agenterr.ErrValidation)
	}
	if b.nonce == nil {
		return BetCommitment{}, fmt.Errorf("%w: commitment: nonce is required", agenterr.ErrValidation)
	}

	fillerAmount := b.fillerAmount
	if fillerAmount == nil {
		if b.odds == nil {
			return BetCommitment{}, fmt.Errorf("%w: commitment: fillerAmount or odds is required", agenterr.ErrValidation)
		}
		derived := new(big.Rat).SetInt(b.creatorAmount)
		derived.Mul(derived, b.odds)
		fillerAmount = new(big.Int).Div(derived.Num(), derived.Denom())
	}

	expiry := b.expiry
	if expiry == nil {
		expiry = big.NewInt(time.Now().Add(DefaultExpiryWindow).Unix())
	}

	return BetCommitment{
		TradesRoot:    *b.tradesRoot,
		Creator:       *b.creator,
		Filler:        *b.filler,
		CreatorAmount: b.creatorAmount,
		FillerAmount:  fillerAmount,
		Deadline:      b.deadline,
		Nonce:         b.nonce,
		Expiry:        expiry,
	}, nil
}
