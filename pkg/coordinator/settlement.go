package coordinator

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hyperlicked/betagent/pkg/chainclient"
	"github.com/hyperlicked/betagent/pkg/tradeset"
	"github.com/hyperlicked/betagent/pkg/tradestore"
	"github.com/hyperlicked/betagent/pkg/wire"
)

// RunSettlementScanner ticks every interval until ctx is cancelled,
// resolving deadline-passed bets and polling arbitration status for bets
// already submitted (spec.md §4.9.3). Runs for both roles.
func (c *Coordinator) RunSettlementScanner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SettlementScanTickOnce(ctx)
		}
	}
}

func (c *Coordinator) snapshotBets() []*ActiveBet {
	c.betsMu.Lock()
	defer c.betsMu.Unlock()
	out := make([]*ActiveBet, 0, len(c.activeBets))
	for _, b := range c.activeBets {
		out = append(out, b)
	}
	return out
}

func (c *Coordinator) setBetState(betID uint64, state BetState) {
	c.betsMu.Lock()
	defer c.betsMu.Unlock()
	if b, ok := c.activeBets[betID]; ok {
		b.State = state
	}
}

// SettlementScanTickOnce runs one settlement-scanner iteration: resolve
// every committed bet past its deadline, then poll on-chain status for
// every bet already in settling.
func (c *Coordinator) SettlementScanTickOnce(ctx context.Context) {
	now := time.Now()
	for _, bet := range c.snapshotBets() {
		switch bet.State {
		case BetStateCommitted:
			if bet.Deadline.After(now) {
				continue
			}
			c.resolveBet(ctx, bet)
		case BetStateSettling:
			c.pollSettled(ctx, bet)
		}
	}
}

// resolveBet fetches exit prices, resolves every trade, persists the
// resolution record, and — if this agent is the winner — requests
// arbitration on chain. Any failure leaves the bet in state committed
// for a retry on the next tick (spec.md §4.9.3 step 6).
func (c *Coordinator) resolveBet(ctx context.Context, bet *ActiveBet) {
	tickCtx, cancel := ctxWithTimeout(ctx, defaultOutboundTimeout)
	defer cancel()

	tickers := make([]string, len(bet.TradeSet.Trades))
	for i, t := range bet.TradeSet.Trades {
		tickers[i] = t.Ticker
	}
	prices, err := c.oracle.GetPrices(tickCtx, tickers)
	if err != nil {
		c.logWarn("settlement tick: oracle fetch failed, retrying next tick", zap.Uint64("betId", bet.BetID), zap.Error(err))
		return
	}
	exitPrices := make([]*big.Int, len(tickers))
	for i, ticker := range tickers {
		exitPrices[i] = prices[ticker]
	}

	outcome, err := tradeset.Resolve(bet.TradeSet, exitPrices)
	if err != nil {
		c.logWarn("settlement tick: resolve failed, retrying next tick", zap.Uint64("betId", bet.BetID), zap.Error(err))
		return
	}

	winner := bet.Commitment.Filler
	if outcome.CreatorWon {
		winner = bet.Commitment.Creator
	}

	if err := c.persistResolution(bet, outcome, winner); err != nil {
		c.logWarn("settlement tick: persisting resolution failed, retrying next tick", zap.Uint64("betId", bet.BetID), zap.Error(err))
		return
	}

	if winner == c.selfAddr {
		info, err := c.chain.GetBet(tickCtx, bet.BetID)
		if err != nil {
			c.logWarn("settlement tick: bet status read failed, retrying next tick", zap.Uint64("betId", bet.BetID), zap.Error(err))
			return
		}
		if info.Status == chainclient.BetStatusCommitted {
			if err := c.arb.Request(tickCtx, bet.BetID); err != nil {
				c.logWarn("settlement tick: arbitration request failed, retrying next tick", zap.Uint64("betId", bet.BetID), zap.Error(err))
				return
			}
		}
	}

	c.setBetState(bet.BetID, BetStateSettling)
	c.logInfo("settlement tick: bet moved to settling",
		zap.Uint64("betId", bet.BetID), zap.String("winner", winner.Hex()),
		zap.Int("winsCount", outcome.WinsCount), zap.Int("validTrades", outcome.ValidTrades))
}

func (c *Coordinator) persistResolution(bet *ActiveBet, outcome tradeset.Outcome, winner common.Address) error {
	exitPrices := make([]*wire.BigInt, len(bet.TradeSet.Trades))
	won := make([]bool, len(bet.TradeSet.Trades))
	for i, t := range bet.TradeSet.Trades {
		exitPrices[i] = wire.NewBigInt(t.ExitPrice)
		won[i] = t.Won
	}
	return c.store.StoreResolution(tradestore.ResolutionRecord{
		BetID:       bet.BetID,
		Winner:      winner.Hex(),
		WinsCount:   outcome.WinsCount,
		ValidTrades: outcome.ValidTrades,
		IsTie:       outcome.IsTie,
		ExitPrices:  exitPrices,
		Won:         won,
		SettledAt:   time.Now().Unix(),
	})
}

// pollSettled checks whether a bet in settling has reached the Settled
// on-chain status; if so it's moved locally to settled, where the memory
// manager will evict it (spec.md §4.10).
func (c *Coordinator) pollSettled(ctx context.Context, bet *ActiveBet) {
	tickCtx, cancel := ctxWithTimeout(ctx, defaultOutboundTimeout)
	defer cancel()

	info, err := c.chain.GetBet(tickCtx, bet.BetID)
	if err != nil {
		c.logWarn("settlement tick: status poll failed, retrying next tick", zap.Uint64("betId", bet.BetID), zap.Error(err))
		return
	}
	if info.Status == chainclient.BetStatusSettled {
		c.setBetState(bet.BetID, BetStateSettled)
		c.logInfo("settlement tick: bet settled", zap.Uint64("betId", bet.BetID))
	}
}
