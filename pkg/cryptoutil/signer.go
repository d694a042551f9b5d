// Package cryptoutil wraps the secp256k1/Keccak primitives the agent signs
// and verifies every wire message with: ECDSA sign/recover over the curve
// used by the settlement chain, Keccak-256 and SHA-256 hashing, EIP-712
// typed-data hashing, and an encrypted local keystore loader.
package cryptoutil

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hyperlicked/betagent/pkg/agenterr"
)

// Signer holds a secp256k1 key pair and the address derived from it.
// Key material never appears in a String()/log call; Zero wipes the
// private scalar once the handle is no longer needed.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	address    common.Address
}

// GenerateKey creates a new random secp256k1 key pair.
func GenerateKey() (*Signer, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return fromPrivateKey(priv)
}

// FromPrivateKeyHex parses a hex-encoded private key ("0x..." or bare hex).
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	priv, err := crypto.HexToECDSA(trim0x(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", agenterr.ErrBadKeystore, err)
	}
	return fromPrivateKey(priv)
}

func fromPrivateKey(priv *ecdsa.PrivateKey) (*Signer, error) {
	pub, ok := priv.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not ECDSA", agenterr.ErrBadCurvePoint)
	}
	return &Signer{
		privateKey: priv,
		publicKey:  pub,
		address:    crypto.PubkeyToAddress(*pub),
	}, nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Address returns the address derived from the public key.
func (s *Signer) Address() common.Address { return s.address }

// privateKeyHex returns the private key as lowercase hex, no "0x" prefix.
// Never logged; used only for keystore round-tripping and tests.
func (s *Signer) privateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(s.privateKey))
}

// TransactOpts builds bind.TransactOpts for submitting transactions
// signed by this key on the chain identified by chainID. The private key
// never leaves this call; go-ethereum's keyed transactor signs in place.
func (s *Signer) TransactOpts(chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	return opts, nil
}

// Zero overwrites the private scalar in place. Call once the signer is no
// longer needed; the handle must not be used afterward.
func (s *Signer) Zero() {
	if s.privateKey == nil {
		return
	}
	b := s.privateKey.D.Bits()
	for i := range b {
		b[i] = 0
	}
	s.privateKey = nil
}

// Sign produces a 65-byte [R||S||V] signature over a 32-byte digest.
func (s *Signer) Sign(digest32 []byte) ([]byte, error) {
	if len(digest32) != 32 {
		return nil, fmt.Errorf("%w: digest must be 32 bytes, got %d", agenterr.ErrBadSignature, len(digest32))
	}
	sig, err := crypto.Sign(digest32, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %v", agenterr.ErrBadSignature, err)
	}
	return sig, nil
}

// RecoverAddress recovers the signer's address from a digest and signature.
func RecoverAddress(digest32 []byte, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("%w: signature must be 65 bytes, got %d", agenterr.ErrBadSignature, len(signature))
	}
	if len(digest32) != 32 {
		return common.Address{}, fmt.Errorf("%w: digest must be 32 bytes, got %d", agenterr.ErrBadSignature, len(digest32))
	}
	pubBytes, err := crypto.Ecrecover(digest32, signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: ecrecover: %v", agenterr.ErrBadSignature, err)
	}
	pub, err := crypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: unmarshal pubkey: %v", agenterr.ErrBadCurvePoint, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether signature over digest32 was produced by addr.
func Verify(addr common.Address, digest32, signature []byte) bool {
	recovered, err := RecoverAddress(digest32, signature)
	if err != nil {
		return false
	}
	return recovered == addr
}

// Keccak256 hashes data with the chain's native hash function.
func Keccak256(data ...[]byte) [32]byte {
	return [32]byte(crypto.Keccak256Hash(data...))
}

// SHA256 hashes data with SHA-256 (used by fast-hash trade commitments).
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// SignatureToRSV splits a 65-byte signature into its R, S, V components.
func SignatureToRSV(signature []byte) (r, s *big.Int, v uint8, err error) {
	if len(signature) != 65 {
		return nil, nil, 0, fmt.Errorf("%w: signature must be 65 bytes, got %d", agenterr.ErrBadSignature, len(signature))
	}
	r = new(big.Int).SetBytes(signature[:32])
	s = new(big.Int).SetBytes(signature[32:64])
	v = signature[64]
	return r, s, v, nil
}
