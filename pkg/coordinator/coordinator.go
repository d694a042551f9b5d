// Package coordinator drives one bet from proposal through commit to
// settlement: a maker loop that originates bets, taker handlers that
// accept and mirror them, and a settlement scanner that resolves
// deadline-passed bets and escalates disagreement to arbitration
// (spec.md §4.9).
package coordinator

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/arbitration"
	"github.com/hyperlicked/betagent/pkg/chainclient"
	"github.com/hyperlicked/betagent/pkg/config"
	"github.com/hyperlicked/betagent/pkg/cryptoutil"
	"github.com/hyperlicked/betagent/pkg/discovery"
	"github.com/hyperlicked/betagent/pkg/lifecycle"
	"github.com/hyperlicked/betagent/pkg/oracle"
	"github.com/hyperlicked/betagent/pkg/tradestore"
)

// Coordinator owns the two in-memory maps spec.md §5 requires be
// serialized behind one mutex each, plus every collaborator the maker
// loop, taker handlers, and settlement scanner call into.
type Coordinator struct {
	chain     *chainclient.Client
	oracle    *oracle.Client
	store     *tradestore.Store
	discovery *discovery.Discovery
	arb       *arbitration.Client
	signer    *cryptoutil.Signer
	domain    cryptoutil.Domain
	cfg       config.Config
	logger    *zap.Logger

	selfAddr      common.Address
	advertisedURL string
	tickers       []string

	betsMu     sync.Mutex
	activeBets map[uint64]*ActiveBet

	pendingMu sync.Mutex
	pending   map[[32]byte]*PendingProposal

	makerTickRunning atomic.Bool
	totalErrors      atomic.Int64
}

// New builds a Coordinator. tickers is the fixed asset universe this
// agent trades, generated by the orchestrator from cfg.NumAssets.
func New(
	chain *chainclient.Client,
	oracleClient *oracle.Client,
	store *tradestore.Store,
	disc *discovery.Discovery,
	arb *arbitration.Client,
	signer *cryptoutil.Signer,
	domain cryptoutil.Domain,
	cfg config.Config,
	advertisedURL string,
	tickers []string,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		chain:         chain,
		oracle:        oracleClient,
		store:         store,
		discovery:     disc,
		arb:           arb,
		signer:        signer,
		domain:        domain,
		cfg:           cfg,
		logger:        logger,
		selfAddr:      signer.Address(),
		advertisedURL: advertisedURL,
		tickers:       tickers,
		activeBets:    make(map[uint64]*ActiveBet),
		pending:       make(map[[32]byte]*PendingProposal),
	}
}

// AssetTickers generates the fixed n-asset universe this agent quotes
// bets over. spec.md §6.4 fixes the count (numAssets = 50) but leaves
// the ticker namespace unspecified; a flat, deterministic "ASSET-i"
// sequence keeps the oracle query and trade construction trivially
// reproducible across agents.
func AssetTickers(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("ASSET-%d", i)
	}
	return out
}

// TotalErrors returns the running count of failed maker-loop commit
// attempts (spec.md §4.9.1's totalErrors counter).
func (c *Coordinator) TotalErrors() int64 {
	return c.totalErrors.Load()
}

// ActiveBetCount reports how many bets are currently tracked, regardless
// of state.
func (c *Coordinator) ActiveBetCount() int {
	c.betsMu.Lock()
	defer c.betsMu.Unlock()
	return len(c.activeBets)
}

// memoryPressure reports whether this process is over the soft RSS
// limit, the admission gate both the maker loop and onBilateralProposal
// check before doing any work (spec.md §4.9.1, §4.9.2).
func (c *Coordinator) memoryPressure() bool {
	rss, err := lifecycle.SampleRSSBytes()
	if err != nil {
		return false
	}
	return lifecycle.Pressure(rss, c.cfg.MaxMemoryGb)
}

func (c *Coordinator) logWarn(msg string, fields ...zap.Field) {
	if c.logger != nil {
		c.logger.Warn(msg, fields...)
	}
}

func (c *Coordinator) logInfo(msg string, fields ...zap.Field) {
	if c.logger != nil {
		c.logger.Info(msg, fields...)
	}
}

func (c *Coordinator) logError(msg string, fields ...zap.Field) {
	if c.logger != nil {
		c.logger.Error(msg, fields...)
	}
}

// adHocDigest mirrors p2pserver's signing convention for P2P messages
// outside the two normative EIP-712 schemas: a plain keccak256 over
// concatenated field bytes, since these messages never go on-chain.
func adHocDigest(parts ...[]byte) [32]byte {
	return cryptoutil.Keccak256(parts...)
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func bigBytes(v *big.Int) []byte {
	if v == nil {
		return big.NewInt(0).Bytes()
	}
	return v.Bytes()
}

// EvictSettled drops every ActiveBet in state settled, implementing
// lifecycle.BetStore for the memory manager (spec.md §4.10).
func (c *Coordinator) EvictSettled() int {
	c.betsMu.Lock()
	defer c.betsMu.Unlock()
	n := 0
	for id, bet := range c.activeBets {
		if bet.State == BetStateSettled {
			delete(c.activeBets, id)
			n++
		}
	}
	return n
}

// EvictExpiredProposals drops every PendingProposal older than ttl.
func (c *Coordinator) EvictExpiredProposals(ttl time.Duration) int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	n := 0
	cutoff := time.Now().Add(-ttl)
	for root, p := range c.pending {
		if p.CreatedAt.Before(cutoff) {
			delete(c.pending, root)
			n++
		}
	}
	return n
}

// EvictOldestBetsOverCap evicts ActiveBets with the earliest deadline
// until at most maxActiveBets remain.
func (c *Coordinator) EvictOldestBetsOverCap(maxActiveBets int) int {
	c.betsMu.Lock()
	defer c.betsMu.Unlock()
	if maxActiveBets <= 0 || len(c.activeBets) <= maxActiveBets {
		return 0
	}

	type entry struct {
		id       uint64
		deadline time.Time
	}
	entries := make([]entry, 0, len(c.activeBets))
	for id, bet := range c.activeBets {
		entries = append(entries, entry{id, bet.Deadline})
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].deadline.Before(entries[i].deadline) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	over := len(c.activeBets) - maxActiveBets
	for i := 0; i < over; i++ {
		delete(c.activeBets, entries[i].id)
	}
	return over
}

func isInsufficientBalance(available, needed *big.Int) bool {
	return available.Cmp(needed) < 0
}

var errNoHealthyPeers = fmt.Errorf("%w: coordinator: no healthy peers available", agenterr.ErrTransport)

// ctxWithTimeout is a small convenience wrapper so every outbound call in
// the maker/taker/settlement paths shares one default bound (spec.md §5:
// "every outbound HTTP call uses a bounded timeout").
func ctxWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

const defaultOutboundTimeout = 10 * time.Second
