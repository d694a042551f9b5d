package chainclient

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func TestVaultABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		t.Fatalf("parse vault abi: %v", err)
	}
	for _, name := range []string{"commitBilateralBet", "settleByAgreement", "requestArbitration", "getBet", "nonces", "balances"} {
		if _, ok := parsed.Methods[name]; !ok {
			t.Errorf("vault abi missing method %q", name)
		}
	}
}

func TestDirectoryABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(directoryABI))
	if err != nil {
		t.Fatalf("parse directory abi: %v", err)
	}
	for _, name := range []string{"isRegistered", "getActiveKeeperCount", "getRegisteredAddresses"} {
		if _, ok := parsed.Methods[name]; !ok {
			t.Errorf("directory abi missing method %q", name)
		}
	}
}

func TestBetStatusString(t *testing.T) {
	cases := map[BetStatus]string{
		BetStatusPending:       "pending",
		BetStatusCommitted:     "committed",
		BetStatusInArbitration: "in_arbitration",
		BetStatusSettled:       "settled",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("status %d: got %q, want %q", status, got, want)
		}
	}
}
