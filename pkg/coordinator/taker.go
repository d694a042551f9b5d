package coordinator

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hyperlicked/betagent/pkg/commitment"
	"github.com/hyperlicked/betagent/pkg/p2pserver"
	"github.com/hyperlicked/betagent/pkg/wire"
)

// Handlers builds the p2pserver.Handlers callback set backed by this
// Coordinator, for the orchestrator to wire into the P2P server
// (spec.md §4.9.2, §4.11 step 5).
func (c *Coordinator) Handlers() p2pserver.Handlers {
	return p2pserver.Handlers{
		OnBilateralProposal: c.onBilateralProposal,
		OnBetCommitted:      c.onBetCommitted,
	}
}

// onBilateralProposal is the taker-side admission path: reject under
// pressure or insufficient balance, otherwise mirror-sign the proposed
// commitment and park it as a PendingProposal awaiting the maker's
// bet-committed notification (spec.md §4.9.2).
func (c *Coordinator) onBilateralProposal(ctx context.Context, req p2pserver.ProposalRequest, fromAddr common.Address) (p2pserver.ProposalResponse, error) {
	if c.memoryPressure() || c.ActiveBetCount() >= c.cfg.MaxActiveBets {
		return p2pserver.ProposalResponse{Accepted: false, Reason: "resource pressure"}, nil
	}

	balance, err := c.chain.GetVaultBalance(ctx, c.selfAddr)
	if err != nil {
		return p2pserver.ProposalResponse{}, err
	}
	fillerAmount := bigOrZeroP(req.FillerAmount)
	if isInsufficientBalance(balance.Available, fillerAmount) {
		return p2pserver.ProposalResponse{Accepted: false, Reason: "insufficient vault balance"}, nil
	}

	trades, err := decodeTradeBlob(req.TradeBlob)
	if err != nil {
		return p2pserver.ProposalResponse{Accepted: false, Reason: "malformed trade blob"}, nil
	}
	ts, err := buildAndVerifyTradeSet(req.SnapshotID, trades, [32]byte(req.TradesRoot))
	if err != nil {
		return p2pserver.ProposalResponse{Accepted: false, Reason: "tradesRoot mismatch"}, nil
	}

	creator := common.HexToAddress(req.Creator)
	bet := commitment.BetCommitment{
		TradesRoot:    [32]byte(req.TradesRoot),
		Creator:       creator,
		Filler:        c.selfAddr,
		CreatorAmount: bigOrZeroP(req.CreatorAmount),
		FillerAmount:  fillerAmount,
		Deadline:      bigOrZeroP(req.Deadline),
		Nonce:         bigOrZeroP(req.Nonce),
		Expiry:        bigOrZeroP(req.Expiry),
	}

	ourSig, err := commitment.SignBetCommitment(c.signer, c.domain, bet)
	if err != nil {
		return p2pserver.ProposalResponse{}, err
	}

	c.pendingMu.Lock()
	c.pending[bet.TradesRoot] = &PendingProposal{
		TradesRoot:   bet.TradesRoot,
		Commitment:   bet,
		TradeSet:     ts,
		Counterparty: creator,
		OurSignature: ourSig,
		CreatedAt:    time.Now(),
	}
	c.pendingMu.Unlock()

	return p2pserver.ProposalResponse{
		Accepted:  true,
		Signature: ourSig,
		Signer:    c.selfAddr.Hex(),
	}, nil
}

// onBetCommitted promotes a PendingProposal into ActiveBets once the
// maker confirms its on-chain landing, provided this agent really is the
// named filler (spec.md §4.9.2).
func (c *Coordinator) onBetCommitted(ctx context.Context, n p2pserver.BetCommittedNotification) (p2pserver.AckResponse, error) {
	if common.HexToAddress(n.Filler) != c.selfAddr {
		return p2pserver.AckResponse{Acknowledged: false, Reason: "not addressed to us"}, nil
	}

	root := [32]byte(n.TradesRoot)
	c.pendingMu.Lock()
	found, ok := c.pending[root]
	if ok && found.Commitment.Creator.Hex() == n.Creator {
		delete(c.pending, root)
	} else {
		ok = false
	}
	c.pendingMu.Unlock()

	if !ok {
		return p2pserver.AckResponse{Acknowledged: false, Reason: "no matching pending proposal"}, nil
	}

	if err := c.store.Store(n.BetID, found.TradeSet); err != nil {
		c.logError("onBetCommitted: trade set store failed", zap.Uint64("betId", n.BetID), zap.Error(err))
	}

	c.betsMu.Lock()
	c.activeBets[n.BetID] = &ActiveBet{
		BetID:        n.BetID,
		Commitment:   found.Commitment,
		TradeSet:     found.TradeSet,
		Counterparty: found.Commitment.Creator,
		IsMaker:      false,
		Deadline:     time.Unix(found.Commitment.Deadline.Int64(), 0),
		State:        BetStateCommitted,
	}
	c.betsMu.Unlock()

	return p2pserver.AckResponse{Acknowledged: true}, nil
}

func bigOrZeroP(b *wire.BigInt) *big.Int {
	if b == nil {
		return big.NewInt(0)
	}
	v := b.Int
	return &v
}
