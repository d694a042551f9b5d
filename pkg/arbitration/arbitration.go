// Package arbitration is a narrow client for the on-chain arbitration
// path: the external arbitrator service itself is out of scope (spec.md
// §1 Out-of-scope); the agent only submits the request and polls the
// settlement contract for the resulting status transition
// (spec.md §4.9.3 step 4).
package arbitration

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/chainclient"
)

// DefaultPollInterval is how often PollUntilSettled re-reads bet status.
const DefaultPollInterval = 5 * time.Second

// chainReader is the narrow slice of chainclient.Client arbitration
// depends on, so it can be exercised without a live RPC connection.
type chainReader interface {
	GetBet(ctx context.Context, betID uint64) (chainclient.BetInfo, error)
}

// Client requests arbitration and tracks a bet's on-chain status until
// the external arbitrator resolves it.
type Client struct {
	chain        *chainclient.Client
	reader       chainReader
	pollInterval time.Duration
}

// New builds a Client around chain, which both submits the
// requestArbitration transaction and is read back for status polling.
func New(chain *chainclient.Client, pollInterval time.Duration) *Client {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Client{chain: chain, reader: chain, pollInterval: pollInterval}
}

// Request submits requestArbitration(betId) on chain.
func (c *Client) Request(ctx context.Context, betID uint64) error {
	_, err := c.chain.RequestArbitration(ctx, betID)
	return err
}

// PollUntilSettled polls GetBet every pollInterval until the bet's status
// reports Settled, ctx is cancelled, or timeout elapses. Returns the last
// observed status either way, so a caller can distinguish "settled" from
// "gave up still in arbitration" (spec.md §4.9.3: retried next tick, not
// blocked here).
func (c *Client) PollUntilSettled(ctx context.Context, betID uint64, timeout time.Duration) (chainclient.BetStatus, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		info, err := c.reader.GetBet(ctx, betID)
		if err != nil {
			return chainclient.BetStatusPending, fmt.Errorf("%w: arbitration: poll bet %d: %v", agenterr.ErrChain, betID, err)
		}
		if info.Status == chainclient.BetStatusSettled {
			return info.Status, nil
		}
		if time.Now().After(deadline) {
			return info.Status, nil
		}
		select {
		case <-ctx.Done():
			return info.Status, ctx.Err()
		case <-ticker.C:
		}
	}
}
