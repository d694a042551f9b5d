package commitment

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/cryptoutil"
)

// SignBetCommitment produces the typed-data signature a party contributes
// to a BetCommitment under domain.
func SignBetCommitment(signer *cryptoutil.Signer, domain cryptoutil.Domain, c BetCommitment) ([]byte, error) {
	digest, err := HashBetCommitment(domain, c)
	if err != nil {
		return nil, fmt.Errorf("commitment: hash: %w", err)
	}
	return signer.Sign(digest[:])
}

// VerifyBetCommitment reports whether sig over c under domain was
// produced by expectedSigner.
func VerifyBetCommitment(domain cryptoutil.Domain, c BetCommitment, sig []byte, expectedSigner common.Address) (bool, error) {
	digest, err := HashBetCommitment(domain, c)
	if err != nil {
		return false, fmt.Errorf("commitment: hash: %w", err)
	}
	return cryptoutil.Verify(expectedSigner, digest[:], sig), nil
}

// SignSettlementAgreement produces a party's signature over a.
func SignSettlementAgreement(signer *cryptoutil.Signer, domain cryptoutil.Domain, a SettlementAgreement) ([]byte, error) {
	digest, err := HashSettlementAgreement(domain, a)
	if err != nil {
		return nil, fmt.Errorf("commitment: hash: %w", err)
	}
	return signer.Sign(digest[:])
}

// VerifySettlementAgreement reports whether sig over a under domain was
// produced by expectedSigner.
func VerifySettlementAgreement(domain cryptoutil.Domain, a SettlementAgreement, sig []byte, expectedSigner common.Address) (bool, error) {
	digest, err := HashSettlementAgreement(domain, a)
	if err != nil {
		return false, fmt.Errorf("commitment: hash: %w", err)
	}
	return cryptoutil.Verify(expectedSigner, digest[:], sig), nil
}

// RecoverBetCommitmentSigner recovers the address that produced sig over
// c under domain, failing with agenterr.ErrBadSignature on a malformed
// signature.
func RecoverBetCommitmentSigner(domain cryptoutil.Domain, c BetCommitment, sig []byte) (common.Address, error) {
	digest, err := HashBetCommitment(domain, c)
	if err != nil {
		return common.Address{}, fmt.Errorf("commitment: hash: %w", err)
	}
	addr, err := cryptoutil.RecoverAddress(digest[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: commitment: recover: %v", agenterr.ErrBadSignature, err)
	}
	return addr, nil
}
