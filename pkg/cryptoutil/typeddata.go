package cryptoutil

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain is the EIP-712-style domain separator shared by every signed
// struct in this agent: {name:"CollateralVault", version:"1", chainId,
// verifyingContract} per spec.md §6.3.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

func (d Domain) apiDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(d.ChainID),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// StandardDomain builds the agent's fixed domain for a given chain/vault.
func StandardDomain(chainID *big.Int, vault common.Address) Domain {
	return Domain{Name: "CollateralVault", Version: "1", ChainID: chainID, VerifyingContract: vault}
}

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// HashTypedData implements "\x19\x01" || domainSeparator || structHash,
// byte-compatible with the settlement contract's own EIP-712 verification.
// primaryType must be a key in types, and message must use the field names
// declared there (string keys; numeric values as *big.Int or decimal
// strings, hex-string addresses, bytes32 values as byte arrays — see the
// Hash* wrappers in pkg/commitment for the two concrete schemas).
func HashTypedData(domain Domain, types apitypes.Types, primaryType string, message apitypes.TypedDataMessage) ([32]byte, error) {
	full := apitypes.Types{"EIP712Domain": domainType}
	for k, v := range types {
		full[k] = v
	}

	td := apitypes.TypedData{
		Types:       full,
		PrimaryType: primaryType,
		Domain:      domain.apiDomain(),
		Message:     message,
	}

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return [32]byte{}, fmt.Errorf("hash domain: %w", err)
	}
	structHash, err := td.HashStruct(primaryType, td.Message)
	if err != nil {
		return [32]byte{}, fmt.Errorf("hash struct: %w", err)
	}

	raw := append([]byte{0x19, 0x01}, domainSeparator...)
	raw = append(raw, structHash...)
	return [32]byte(crypto.Keccak256Hash(raw)), nil
}
