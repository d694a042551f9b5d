package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hyperlicked/betagent/pkg/agenterr"
)

// receiptPollInterval is how often WaitMined re-checks for a transaction
// receipt while it hasn't appeared yet.
const receiptPollInterval = 2 * time.Second

// txOpts builds fresh TransactOpts bound to ctx. Called only while
// writeMu is held, so the pending-nonce lookup inside bind.BoundContract
// and the broadcast it triggers never race with another local write.
func (c *Client) txOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := c.signer.TransactOpts(c.chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: chainclient: transactor: %v", agenterr.ErrChain, err)
	}
	opts.Context = ctx
	return opts, nil
}

// CommitBilateralBet posts a co-signed bet commitment on-chain. The
// caller must have obtained commitment.Nonce from a fresh GetVaultNonce
// read before signing; on revert the nonce is not consumed and the next
// attempt should re-read it.
func (c *Client) CommitBilateralBet(ctx context.Context, commitment Commitment, creatorSig, fillerSig []byte) (txHash common.Hash, err error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	opts, err := c.txOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := c.vault.Transact(opts, "commitBilateralBet", commitment, creatorSig, fillerSig)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: chainclient: commitBilateralBet: %v", agenterr.ErrChain, err)
	}
	return tx.Hash(), nil
}

// SettleByAgreement submits a bilaterally-signed settlement agreement.
func (c *Client) SettleByAgreement(ctx context.Context, agreement SettlementAgreement, sigA, sigB []byte) (common.Hash, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	opts, err := c.txOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := c.vault.Transact(opts, "settleByAgreement", agreement, sigA, sigB)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: chainclient: settleByAgreement: %v", agenterr.ErrChain, err)
	}
	return tx.Hash(), nil
}

// RequestArbitration escalates betID to the external arbitration service.
func (c *Client) RequestArbitration(ctx context.Context, betID uint64) (common.Hash, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	opts, err := c.txOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := c.vault.Transact(opts, "requestArbitration", betID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: chainclient: requestArbitration: %v", agenterr.ErrChain, err)
	}
	return tx.Hash(), nil
}

// WaitMined polls for txHash's receipt every receiptPollInterval until it
// is included in a block, or ctx expires.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if err != ethereum.NotFound {
			return nil, fmt.Errorf("%w: chainclient: wait mined %s: %v", agenterr.ErrChain, txHash, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: chainclient: wait mined %s: %v", agenterr.ErrChain, txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// vaultNonceHint is a convenience helper so callers can pull the next
// commitment nonce in one line; it wraps GetVaultNonce by the signer's
// own address.
func (c *Client) vaultNonceHint(ctx context.Context) (*big.Int, error) {
	return c.GetVaultNonce(ctx, c.signer.Address())
}
