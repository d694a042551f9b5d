package config

import (
	"math/big"
	"testing"

	"github.com/hyperlicked/betagent/pkg/agenterr"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	if cfg.P2PPort != 8080 {
		t.Errorf("P2PPort = %d, want 8080", cfg.P2PPort)
	}
	if cfg.RateLimitPerSecond != 10 {
		t.Errorf("RateLimitPerSecond = %d, want 10", cfg.RateLimitPerSecond)
	}
	if cfg.DefaultMethod != "up:0" {
		t.Errorf("DefaultMethod = %q, want up:0", cfg.DefaultMethod)
	}
	if cfg.MaxActiveBets != 5 {
		t.Errorf("MaxActiveBets = %d, want 5", cfg.MaxActiveBets)
	}
	if cfg.FastHashThreshold != 1000 {
		t.Errorf("FastHashThreshold = %d, want 1000", cfg.FastHashThreshold)
	}
}

func TestValidateRequiresKeySource(t *testing.T) {
	cfg := Default()
	cfg.RPCURL = "http://localhost:8545"
	cfg.VaultAddress = "0x1"
	cfg.DirectoryAddress = "0x2"
	cfg.OracleURL = "http://oracle"
	cfg.P2PAdvertisedURL = "http://localhost:8080"
	cfg.ChainID = big.NewInt(1)

	err := cfg.Validate()
	if !isConfigErr(err) {
		t.Fatalf("expected config error for missing key source, got %v", err)
	}

	cfg.PrivateKeyHex = "deadbeef"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestBootstrapPeerListParsesPairs(t *testing.T) {
	cfg := Default()
	cfg.BootstrapPeers = "0xabc@http://peer1:8080, 0xdef@http://peer2:8080,malformed"
	peers := cfg.BootstrapPeerList()
	if len(peers) != 2 {
		t.Fatalf("got %d peers, want 2", len(peers))
	}
	if peers[0].Address != "0xabc" || peers[0].Endpoint != "http://peer1:8080" {
		t.Errorf("peer[0] = %+v", peers[0])
	}
	if peers[1].Address != "0xdef" || peers[1].Endpoint != "http://peer2:8080" {
		t.Errorf("peer[1] = %+v", peers[1])
	}
}

func isConfigErr(err error) bool {
	return err != nil && agenterr.Kind(err) == "config"
}
