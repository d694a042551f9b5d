package cryptoutil

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestGenerateKey(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if signer.Address() == (common.Address{}) {
		t.Error("generated zero address")
	}
}

func TestFromPrivateKeyHexRoundTrip(t *testing.T) {
	signer1, _ := GenerateKey()
	hexKey := signer1.privateKeyHex()

	signer2, err := FromPrivateKeyHex(hexKey)
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	if signer2.Address() != signer1.Address() {
		t.Errorf("address mismatch after reload: got %s want %s", signer2.Address().Hex(), signer1.Address().Hex())
	}
}

func TestSignAndRecover(t *testing.T) {
	signer, _ := GenerateKey()

	digest := Keccak256([]byte("bilateral bet commitment"))
	sig, err := signer.Sign(digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 65 {
		t.Errorf("signature length = %d, want 65", len(sig))
	}

	if !Verify(signer.Address(), digest[:], sig) {
		t.Error("verify failed for correct signer")
	}

	wrong := common.HexToAddress("0x0000000000000000000000000000000000000001")
	if Verify(wrong, digest[:], sig) {
		t.Error("verify succeeded for wrong address")
	}
}

func TestSignBadDigestLength(t *testing.T) {
	signer, _ := GenerateKey()
	if _, err := signer.Sign([]byte{1, 2, 3}); err == nil {
		t.Error("expected error signing a non-32-byte digest")
	}
}

func TestSignatureToRSV(t *testing.T) {
	signer, _ := GenerateKey()
	digest := Keccak256([]byte("rsv"))
	sig, _ := signer.Sign(digest[:])

	r, s, v, err := SignatureToRSV(sig)
	if err != nil {
		t.Fatalf("rsv: %v", err)
	}
	if r.Sign() == 0 || s.Sign() == 0 {
		t.Error("r or s is zero")
	}
	if v != sig[64] {
		t.Errorf("v = %d, want %d", v, sig[64])
	}
}
