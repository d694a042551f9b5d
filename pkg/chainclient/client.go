// Package chainclient wraps the settlement chain's JSON-RPC endpoint:
// typed reads and writes against the settlement and bot-directory
// contracts, with the local signer's nonce-and-broadcast sequence
// serialized behind one mutex (spec.md §4.5).
package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/cryptoutil"
)

// Client is a single-writer JSON-RPC client for the settlement chain.
// Reads may run concurrently; writes are serialized by writeMu so that
// two concurrent commits from this agent never collide on nonce.
type Client struct {
	eth       *ethclient.Client
	signer    *cryptoutil.Signer
	chainID   *big.Int
	vault     *bind.BoundContract
	directory *bind.BoundContract

	writeMu sync.Mutex
}

// Dial connects to rpcURL and binds the vault and bot-directory
// contracts at the given addresses.
func Dial(ctx context.Context, rpcURL string, chainID *big.Int, vaultAddr, directoryAddr common.Address, signer *cryptoutil.Signer) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: chainclient: dial %s: %v", agenterr.ErrChain, rpcURL, err)
	}

	vaultParsed, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("chainclient: parse vault abi: %w", err)
	}
	dirParsed, err := abi.JSON(strings.NewReader(directoryABI))
	if err != nil {
		return nil, fmt.Errorf("chainclient: parse directory abi: %w", err)
	}

	return &Client{
		eth:       eth,
		signer:    signer,
		chainID:   chainID,
		vault:     bind.NewBoundContract(vaultAddr, vaultParsed, eth, eth, eth),
		directory: bind.NewBoundContract(directoryAddr, dirParsed, eth, eth, eth),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
