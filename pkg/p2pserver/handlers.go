package p2pserver

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/agenterr"
)

var errNotFound = agenterr.ErrNotFound

// Handlers is the callback set the server hands decoded, validated
// requests to. Each field is optional; an unset callback makes its route
// return a default rejection rather than panicking or 500ing (spec.md
// §4.7). The server itself is pure transport — every policy decision
// (admission checks, state transitions) lives in these callbacks, which
// is what lets the coordinator (spec.md §4.9) be tested without standing
// up an HTTP client.
type Handlers struct {
	OnBilateralProposal    func(ctx context.Context, proposal ProposalRequest, fromAddr common.Address) (ProposalResponse, error)
	OnBetCommitted         func(ctx context.Context, n BetCommittedNotification) (AckResponse, error)
	OnTradesReceived       func(ctx context.Context, betID uint64, treeBlob []byte, signer common.Address) error
	OnSettlementProposal   func(ctx context.Context, proposal SettlementProposalRequest) (SettlementResponse, error)
	OnCommitmentSignRequest func(ctx context.Context, req CommitmentSignRequest) (CommitmentSignResponse, error)
	OnSettlementStatus     func(ctx context.Context, betID uint64) (SettlementStatusResponse, error)
	OnTradesPull           func(ctx context.Context, betID uint64, requestor common.Address) (TradesPullResponse, error)
}

func (h Handlers) bilateralProposal(ctx context.Context, req ProposalRequest, from common.Address) (ProposalResponse, error) {
	if h.OnBilateralProposal == nil {
		return ProposalResponse{Accepted: false, Reason: "proposals not accepted by this agent"}, nil
	}
	return h.OnBilateralProposal(ctx, req, from)
}

func (h Handlers) betCommitted(ctx context.Context, n BetCommittedNotification) (AckResponse, error) {
	if h.OnBetCommitted == nil {
		return AckResponse{Acknowledged: false, Reason: "not handled by this agent"}, nil
	}
	return h.OnBetCommitted(ctx, n)
}

func (h Handlers) tradesReceived(ctx context.Context, betID uint64, blob []byte, signer common.Address) error {
	if h.OnTradesReceived == nil {
		return fmt.Errorf("%w: trade pushes not handled by this agent", errNotFound)
	}
	return h.OnTradesReceived(ctx, betID, blob, signer)
}

func (h Handlers) settlementProposal(ctx context.Context, req SettlementProposalRequest) (SettlementResponse, error) {
	if h.OnSettlementProposal == nil {
		return SettlementResponse{Status: "disagree"}, nil
	}
	return h.OnSettlementProposal(ctx, req)
}

func (h Handlers) commitmentSignRequest(ctx context.Context, req CommitmentSignRequest) (CommitmentSignResponse, error) {
	if h.OnCommitmentSignRequest == nil {
		return CommitmentSignResponse{Accepted: false, Reason: "signing not offered by this agent"}, nil
	}
	return h.OnCommitmentSignRequest(ctx, req)
}

func (h Handlers) settlementStatus(ctx context.Context, betID uint64) (SettlementStatusResponse, error) {
	if h.OnSettlementStatus == nil {
		return SettlementStatusResponse{BetID: betID, Status: "unknown"}, nil
	}
	return h.OnSettlementStatus(ctx, betID)
}

func (h Handlers) tradesPull(ctx context.Context, betID uint64, requestor common.Address) (TradesPullResponse, error) {
	if h.OnTradesPull == nil {
		return TradesPullResponse{}, errNotFound
	}
	return h.OnTradesPull(ctx, betID, requestor)
}
