// Package discovery maintains a refreshed view of which registered agents
// are currently reachable: periodically re-reads the on-chain bot
// directory, health-probes each known endpoint, and exposes
// GetHealthyPeers() to the coordinator's maker loop (spec.md §4.8).
package discovery

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PeerEndpoint is a statically configured address/endpoint pairing this
// agent was bootstrapped with. The on-chain directory (component 5) only
// carries addresses, not URLs, so the endpoint book is supplied out of
// band (spec.md §6.4 peer list / config) and cross-checked against the
// directory before being probed.
type PeerEndpoint struct {
	Address  common.Address
	Endpoint string
}

// Peer is a reachable counterparty, as enumerated by spec.md's GLOSSARY:
// {address, endpoint, publicKeyHash, lastHealthyAt}.
type Peer struct {
	Address       common.Address
	Endpoint      string
	PubkeyHash    string
	LastHealthyAt time.Time
}

type peerRecord struct {
	peer                Peer
	consecutiveFailures int
}
