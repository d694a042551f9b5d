package commitment

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/cryptoutil"
)

func testDomain(t *testing.T) cryptoutil.Domain {
	t.Helper()
	vault := common.HexToAddress("0x000000000000000000000000000000000000aa")
	return cryptoutil.StandardDomain(big.NewInt(1), vault)
}

func testCommitment() BetCommitment {
	return BetCommitment{
		TradesRoot:    [32]byte{1, 2, 3},
		Creator:       common.HexToAddress("0x1111111111111111111111111111111111111a"),
		Filler:        common.HexToAddress("0x2222222222222222222222222222222222222b"),
		CreatorAmount: big.NewInt(100),
		FillerAmount:  big.NewInt(100),
		Deadline:      big.NewInt(1000),
		Nonce:         big.NewInt(1),
		Expiry:        big.NewInt(2000),
	}
}

func TestHashBetCommitmentDeterministic(t *testing.T) {
	domain := testDomain(t)
	c := testCommitment()

	h1, err := HashBetCommitment(domain, c)
	if err != nil {
		t.Fatalf("hash 1: %v", err)
	}
	h2, err := HashBetCommitment(domain, c)
	if err != nil {
		t.Fatalf("hash 2: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash is not deterministic: %x != %x", h1, h2)
	}
}

func TestSignAndRecoverBetCommitment(t *testing.T) {
	domain := testDomain(t)
	c := testCommitment()

	signer, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sig, err := SignBetCommitment(signer, domain, c)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := VerifyBetCommitment(domain, c, sig, signer.Address())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Errorf("expected signature to verify")
	}

	recovered, err := RecoverBetCommitmentSigner(domain, c, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered %s, want %s", recovered, signer.Address())
	}
}

func TestSignatureDeterminismAcrossSigners(t *testing.T) {
	// Two independently-computed digests of the same commitment under the
	// same domain must agree, so two agents recover the same signer from
	// the same signature bytes.
	domainA := testDomain(t)
	domainB := testDomain(t)
	c := testCommitment()

	signer, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := SignBetCommitment(signer, domainA, c)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	recoveredA, err := RecoverBetCommitmentSigner(domainA, c, sig)
	if err != nil {
		t.Fatalf("recover A: %v", err)
	}
	recoveredB, err := RecoverBetCommitmentSigner(domainB, c, sig)
	if err != nil {
		t.Fatalf("recover B: %v", err)
	}
	if recoveredA != recoveredB || recoveredA != signer.Address() {
		t.Errorf("independent recovery diverged: %s vs %s", recoveredA, recoveredB)
	}
}

func TestVerifyBetCommitmentRejectsWrongSigner(t *testing.T) {
	domain := testDomain(t)
	c := testCommitment()

	signer, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	other, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sig, err := SignBetCommitment(signer, domain, c)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := VerifyBetCommitment(domain, c, sig, other.Address())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Errorf("expected verification against the wrong signer to fail")
	}
}

func TestBuilderRequiresFields(t *testing.T) {
	_, err := NewBuilder().Build()
	if err == nil {
		t.Fatal("expected an error building with no fields set")
	}
}

func TestBuilderDerivesFillerAmountFromOdds(t *testing.T) {
	creator := common.HexToAddress("0x1111111111111111111111111111111111111a")
	filler := common.HexToAddress("0x2222222222222222222222222222222222222b")

	c, err := NewBuilder().
		WithTradesRoot([32]byte{9}).
		WithCreator(creator).
		WithFiller(filler).
		WithCreatorAmount(big.NewInt(100)).
		WithOdds(big.NewRat(3, 2)).
		WithDeadline(time.Unix(1000, 0)).
		WithNonce(big.NewInt(1)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if c.FillerAmount.Cmp(big.NewInt(150)) != 0 {
		t.Errorf("expected fillerAmount 150, got %s", c.FillerAmount)
	}
}

func TestBuilderDefaultsExpiry(t *testing.T) {
	before := time.Now()
	c, err := NewBuilder().
		WithTradesRoot([32]byte{9}).
		WithCreator(common.HexToAddress("0x1111111111111111111111111111111111111a")).
		WithFiller(common.HexToAddress("0x2222222222222222222222222222222222222b")).
		WithCreatorAmount(big.NewInt(100)).
		WithFillerAmount(big.NewInt(100)).
		WithDeadline(time.Unix(1000, 0)).
		WithNonce(big.NewInt(1)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	wantEarliest := before.Add(DefaultExpiryWindow).Unix()
	if c.Expiry.Int64() < wantEarliest-2 {
		t.Errorf("expiry %d should default to roughly now+%s", c.Expiry.Int64(), DefaultExpiryWindow)
	}
}

func TestBuilderIsFullySigned(t *testing.T) {
	b := NewBuilder()
	if b.IsFullySigned() {
		t.Error("expected not fully signed with no signatures")
	}
	b.WithCreatorSignature(make([]byte, 65))
	if b.IsFullySigned() {
		t.Error("expected not fully signed with only one signature")
	}
	b.WithFillerSignature(make([]byte, 65))
	if !b.IsFullySigned() {
		t.Error("expected fully signed with both signatures")
	}
}
