package cryptoutil

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hyperlicked/betagent/pkg/agenterr"
)

// LoadKeystoreFile decrypts a V3 keystore file (scrypt KDF, AES-CTR cipher,
// MAC-verified) and returns a Signer holding the recovered private key. The
// KDF parameters (N, r, p) are read from the file itself — spec.md §4.1's
// N=2^17 r=8 p=1 defaults apply to keys *created* by this agent, not to
// keys it merely loads, so whatever parameters the ciphertext declares are
// honored here exactly as go-ethereum's own wallets do.
func LoadKeystoreFile(path, passphrase string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read keystore file: %v", agenterr.ErrBadKeystore, err)
	}
	return DecryptKeystore(data, passphrase)
}

// DecryptKeystore decrypts in-memory V3 keystore JSON.
func DecryptKeystore(keyJSON []byte, passphrase string) (*Signer, error) {
	key, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", agenterr.ErrBadKeystore, err)
	}
	defer zeroKey(key)
	priv, err := crypto.ToECDSA(crypto.FromECDSA(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", agenterr.ErrBadKeystore, err)
	}
	return fromPrivateKey(priv)
}

// NewKeystoreFile creates a fresh key and writes it, encrypted under
// passphrase with the N=2^17, r=8, p=1 scrypt parameters spec.md §4.1 calls
// for by default, as a new key file inside the directory path. Intended
// for operator bootstrap, not runtime use.
func NewKeystoreFile(path, passphrase string) (*Signer, error) {
	signer, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	ks := keystore.NewKeyStore(path, 1<<17, 1)
	account, err := ks.ImportECDSA(signer.privateKey, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: import key: %v", agenterr.ErrBadKeystore, err)
	}
	_ = account
	return signer, nil
}

func zeroKey(k *keystore.Key) {
	if k == nil || k.PrivateKey == nil {
		return
	}
	b := k.PrivateKey.D.Bits()
	for i := range b {
		b[i] = 0
	}
}
