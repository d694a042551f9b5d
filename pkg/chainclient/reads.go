package chainclient

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/agenterr"
)

func (c *Client) callOne(ctx context.Context, contract *bind.BoundContract, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%w: chainclient: call %s: %v", agenterr.ErrChain, method, err)
	}
	return out, nil
}

// GetVaultBalance returns addr's available and locked collateral.
func (c *Client) GetVaultBalance(ctx context.Context, addr common.Address) (VaultBalance, error) {
	out, err := c.callOne(ctx, c.vault, "balances", addr)
	if err != nil {
		return VaultBalance{}, err
	}
	if len(out) != 2 {
		return VaultBalance{}, fmt.Errorf("%w: chainclient: balances returned %d values", agenterr.ErrChain, len(out))
	}
	return VaultBalance{
		Available: out[0].(*big.Int),
		Locked:    out[1].(*big.Int),
	}, nil
}

// GetVaultNonce returns the vault's current replay-protection counter
// for addr, the value the caller signs into its next BetCommitment.
func (c *Client) GetVaultNonce(ctx context.Context, addr common.Address) (*big.Int, error) {
	out, err := c.callOne(ctx, c.vault, "nonces", addr)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// IsBotRegistered reports whether addr is registered in the bot directory.
func (c *Client) IsBotRegistered(ctx context.Context, addr common.Address) (bool, error) {
	out, err := c.callOne(ctx, c.directory, "isRegistered", addr)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// GetRegisteredAddresses returns every address currently registered in
// the bot directory.
func (c *Client) GetRegisteredAddresses(ctx context.Context) ([]common.Address, error) {
	out, err := c.callOne(ctx, c.directory, "getRegisteredAddresses")
	if err != nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

// GetActiveKeeperCount returns the number of currently registered agents.
func (c *Client) GetActiveKeeperCount(ctx context.Context) (*big.Int, error) {
	out, err := c.callOne(ctx, c.directory, "getActiveKeeperCount")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// GetBet fetches the on-chain record for betID.
func (c *Client) GetBet(ctx context.Context, betID uint64) (BetInfo, error) {
	out, err := c.callOne(ctx, c.vault, "getBet", betID)
	if err != nil {
		return BetInfo{}, err
	}
	if len(out) != 1 {
		return BetInfo{}, fmt.Errorf("%w: chainclient: getBet returned %d values", agenterr.ErrChain, len(out))
	}

	// The bound contract decodes the tuple into an anonymous struct;
	// re-shape it field by field via reflection-free accessors is not
	// available, so the ABI's tuple is unpacked into this local struct
	// shape matching the outputs declared in abi.go.
	raw := out[0].(struct {
		Status     uint8
		Creator    common.Address
		Filler     common.Address
		TradesRoot [32]byte
		Deadline   *big.Int
	})

	return BetInfo{
		Status:     BetStatus(raw.Status),
		Creator:    raw.Creator,
		Filler:     raw.Filler,
		TradesRoot: raw.TradesRoot,
		Deadline:   raw.Deadline,
	}, nil
}
