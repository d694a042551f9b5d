package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hyperlicked/betagent/pkg/chainclient"
	"github.com/hyperlicked/betagent/pkg/commitment"
	"github.com/hyperlicked/betagent/pkg/p2pserver"
	"github.com/hyperlicked/betagent/pkg/tradeset"
	"github.com/hyperlicked/betagent/pkg/wire"
)

// wireTrade is the JSON shape of one trade inside a gzip-compressed
// tradeBlob, matching p2pserver's decode side field for field (spec.md
// §4.4): only what's known at proposal time travels over the wire.
type wireTrade struct {
	Ticker     string       `json:"ticker"`
	Source     string       `json:"source"`
	Method     string       `json:"method"`
	EntryPrice *wire.BigInt `json:"entryPrice"`
}

func encodeTradeBlob(trades []tradeset.Trade) (wire.HexBytes, error) {
	wts := make([]wireTrade, len(trades))
	for i, t := range trades {
		wts[i] = wireTrade{
			Ticker:     t.Ticker,
			Source:     t.Source,
			Method:     t.Method,
			EntryPrice: wire.NewBigInt(t.EntryPrice),
		}
	}
	raw, err := json.Marshal(wts)
	if err != nil {
		return nil, fmt.Errorf("coordinator: marshal trade blob: %w", err)
	}
	gz, err := wire.Gzip(raw)
	if err != nil {
		return nil, fmt.Errorf("coordinator: gzip trade blob: %w", err)
	}
	return wire.HexBytes(gz), nil
}

// RunMakerLoop ticks every interval until ctx is cancelled, originating
// one bet proposal per tick (spec.md §4.9.1). Intended to run in its own
// goroutine, started by the orchestrator only when cfg.Role == RoleMaker.
func (c *Coordinator) RunMakerLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.MakerTickOnce(ctx)
		}
	}
}

// MakerTickOnce runs one maker-loop iteration. Every failure is logged
// and aborts only this tick; state is never left partially mutated
// (spec.md §4.9.4).
func (c *Coordinator) MakerTickOnce(ctx context.Context) {
	if !c.makerTickRunning.CompareAndSwap(false, true) {
		c.logWarn("maker tick skipped: previous tick still running")
		return
	}
	defer c.makerTickRunning.Store(false)

	if c.memoryPressure() {
		c.logWarn("maker tick skipped: over memory pressure threshold")
		return
	}

	tickCtx, cancel := ctxWithTimeout(ctx, defaultOutboundTimeout)
	defer cancel()

	balance, err := c.chain.GetVaultBalance(tickCtx, c.selfAddr)
	if err != nil {
		c.logWarn("maker tick: vault balance read failed", zap.Error(err))
		return
	}
	if isInsufficientBalance(balance.Available, c.cfg.StakeAmount) {
		c.logWarn("maker tick skipped: insufficient vault balance",
			zap.String("available", balance.Available.String()),
			zap.String("required", c.cfg.StakeAmount.String()))
		return
	}

	peers := c.discovery.GetHealthyPeers()
	if len(peers) == 0 {
		c.logWarn("maker tick skipped: no healthy peers")
		return
	}
	peer := peers[0]

	prices, err := c.oracle.GetPrices(tickCtx, c.tickers)
	if err != nil {
		c.logWarn("maker tick skipped: oracle fetch failed", zap.Error(err))
		return
	}

	snapshotID := fmt.Sprintf("%s-%d", c.selfAddr.Hex(), time.Now().UnixNano())
	trades := make([]tradeset.Trade, len(c.tickers))
	for i, ticker := range c.tickers {
		trades[i] = tradeset.Trade{
			Ticker:     ticker,
			Source:     c.cfg.DataSource,
			Method:     c.cfg.DefaultMethod,
			EntryPrice: prices[ticker],
		}
	}
	ts, err := tradeset.Build(snapshotID, trades)
	if err != nil {
		c.logWarn("maker tick skipped: trade set build failed", zap.Error(err))
		return
	}

	nonce, err := c.chain.GetVaultNonce(tickCtx, c.selfAddr)
	if err != nil {
		c.logWarn("maker tick skipped: nonce read failed", zap.Error(err))
		return
	}

	deadline := time.Now().Add(time.Duration(c.cfg.DeadlineOffsetSecs) * time.Second)
	fillerAmount := new(big.Int).Set(c.cfg.StakeAmount)
	bet, err := commitment.NewBuilder().
		WithTradesRoot(ts.Root).
		WithCreator(c.selfAddr).
		WithFiller(peer.Address).
		WithCreatorAmount(c.cfg.StakeAmount).
		WithFillerAmount(fillerAmount).
		WithDeadline(deadline).
		WithNonce(nonce).
		Build()
	if err != nil {
		c.logWarn("maker tick skipped: commitment build failed", zap.Error(err))
		return
	}

	ourSig, err := commitment.SignBetCommitment(c.signer, c.domain, bet)
	if err != nil {
		c.logWarn("maker tick skipped: commitment sign failed", zap.Error(err))
		return
	}

	blob, err := encodeTradeBlob(ts.Trades)
	if err != nil {
		c.logWarn("maker tick skipped: trade blob encode failed", zap.Error(err))
		return
	}

	req := p2pserver.ProposalRequest{
		SnapshotID:    snapshotID,
		TradesRoot:    wire.Hash32(ts.Root),
		Creator:       c.selfAddr.Hex(),
		Filler:        peer.Address.Hex(),
		CreatorAmount: wire.NewBigInt(bet.CreatorAmount),
		FillerAmount:  wire.NewBigInt(bet.FillerAmount),
		Deadline:      wire.NewBigInt(bet.Deadline),
		Nonce:         wire.NewBigInt(bet.Nonce),
		Expiry:        wire.NewBigInt(bet.Expiry),
		TradeBlob:     blob,
		Signer:        c.selfAddr.Hex(),
		Signature:     ourSig,
	}

	resp, err := c.postProposal(tickCtx, peer.Endpoint, req)
	if err != nil {
		c.logWarn("maker tick: proposal failed, will try another peer next tick",
			zap.String("peer", peer.Address.Hex()), zap.Error(err))
		return
	}
	if !resp.Accepted {
		c.logInfo("maker tick: proposal declined", zap.String("peer", peer.Address.Hex()), zap.String("reason", resp.Reason))
		return
	}
	fillerSig := []byte(resp.Signature)
	if len(fillerSig) != 65 {
		c.logWarn("maker tick skipped: peer returned malformed signature")
		return
	}

	txHash, err := c.chain.CommitBilateralBet(tickCtx, chainclient.Commitment{
		TradesRoot:    bet.TradesRoot,
		Creator:       bet.Creator,
		Filler:        bet.Filler,
		CreatorAmount: bet.CreatorAmount,
		FillerAmount:  bet.FillerAmount,
		Deadline:      bet.Deadline,
		Nonce:         bet.Nonce,
		Expiry:        bet.Expiry,
	}, ourSig, fillerSig)
	if err != nil {
		c.totalErrors.Add(1)
		c.logError("maker tick: on-chain commit failed", zap.Error(err))
		return
	}
	if _, err := c.chain.WaitMined(tickCtx, txHash); err != nil {
		c.totalErrors.Add(1)
		c.logError("maker tick: commit tx not mined", zap.Error(err))
		return
	}

	// The minimal vault ABI assigns betId == the commitment nonce the
	// creator supplied (spec.md's per-creator nonce counter is already
	// the strictly-increasing identifier ActiveBets are keyed by; no
	// separate event log is read here).
	id := nonce.Uint64()

	if err := c.store.Store(id, ts); err != nil {
		c.logError("maker tick: trade set store failed", zap.Uint64("betId", id), zap.Error(err))
	}

	c.betsMu.Lock()
	c.activeBets[id] = &ActiveBet{
		BetID:        id,
		Commitment:   bet,
		TradeSet:     ts,
		Counterparty: peer.Address,
		IsMaker:      true,
		Deadline:     deadline,
		State:        BetStateCommitted,
	}
	c.betsMu.Unlock()

	notifySig := c.signBetCommittedNotification(id, c.selfAddr, peer.Address, txHash.Hex(), bet.Expiry)
	notification := p2pserver.BetCommittedNotification{
		BetID:      id,
		Creator:    c.selfAddr.Hex(),
		Filler:     peer.Address.Hex(),
		TradesRoot: wire.Hash32(bet.TradesRoot),
		TxHash:     txHash.Hex(),
		Expiry:     wire.NewBigInt(bet.Expiry),
		Signer:     c.selfAddr.Hex(),
		Signature:  notifySig,
	}
	if _, err := c.postBetCommitted(tickCtx, peer.Endpoint, notification); err != nil {
		c.logWarn("maker tick: bet-committed notification failed", zap.Uint64("betId", id), zap.Error(err))
	}

	c.logInfo("maker tick: bet committed", zap.Uint64("betId", id), zap.String("peer", peer.Address.Hex()))
}

func (c *Coordinator) signBetCommittedNotification(betID uint64, creator, filler common.Address, txHash string, expiry *big.Int) wire.HexBytes {
	digest := adHocDigest(uint64Bytes(betID), creator.Bytes(), filler.Bytes(), []byte(txHash), bigBytes(expiry))
	sig, err := c.signer.Sign(digest[:])
	if err != nil {
		return nil
	}
	return wire.HexBytes(sig)
}
