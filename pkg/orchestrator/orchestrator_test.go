package orchestrator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/config"
	"github.com/hyperlicked/betagent/pkg/cryptoutil"
)

func TestLoadSignerFromPrivateKey(t *testing.T) {
	const hexKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f36231"
	cfg := config.Config{PrivateKeyHex: hexKey}
	signer, err := loadSigner(cfg)
	if err != nil {
		t.Fatalf("loadSigner: %v", err)
	}
	reloaded, err := cryptoutil.FromPrivateKeyHex(hexKey)
	if err != nil {
		t.Fatalf("FromPrivateKeyHex: %v", err)
	}
	if signer.Address() != reloaded.Address() {
		t.Errorf("address = %s, want %s", signer.Address().Hex(), reloaded.Address().Hex())
	}
}

func TestBootstrapEndpointsMapsConfig(t *testing.T) {
	cfg := config.Config{
		BootstrapPeers: "0x1111111111111111111111111111111111111111@http://peer-a,0x2222222222222222222222222222222222222222@http://peer-b",
	}
	got := bootstrapEndpoints(cfg)
	if len(got) != 2 {
		t.Fatalf("got %d endpoints, want 2", len(got))
	}
	if got[0].Endpoint != "http://peer-a" || got[1].Endpoint != "http://peer-b" {
		t.Errorf("unexpected endpoints: %+v", got)
	}
	wantAddr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	if got[0].Address != wantAddr {
		t.Errorf("address = %s, want %s", got[0].Address.Hex(), wantAddr.Hex())
	}
}

func TestBootstrapEndpointsEmpty(t *testing.T) {
	got := bootstrapEndpoints(config.Config{})
	if len(got) != 0 {
		t.Errorf("got %d endpoints, want 0", len(got))
	}
}

func TestPubkeyHashDeterministic(t *testing.T) {
	signer, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	a := pubkeyHash(signer)
	b := pubkeyHash(signer)
	if a != b {
		t.Error("pubkeyHash should be deterministic for the same signer")
	}
	if len(a) != 2+64 {
		t.Errorf("pubkeyHash length = %d, want 66 (0x + 64 hex chars)", len(a))
	}
}
