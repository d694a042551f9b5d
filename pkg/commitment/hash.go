package commitment

import (
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/hyperlicked/betagent/pkg/cryptoutil"
)

var betCommitmentType = apitypes.Types{
	"BetCommitment": {
		{Name: "tradesRoot", Type: "bytes32"},
		{Name: "creator", Type: "address"},
		{Name: "filler", Type: "address"},
		{Name: "creatorAmount", Type: "uint256"},
		{Name: "fillerAmount", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "expiry", Type: "uint256"},
	},
}

var settlementAgreementType = apitypes.Types{
	"SettlementAgreement": {
		{Name: "betId", Type: "uint256"},
		{Name: "winner", Type: "address"},
		{Name: "winsCount", Type: "uint256"},
		{Name: "validTrades", Type: "uint256"},
		{Name: "isTie", Type: "bool"},
		{Name: "expiry", Type: "uint256"},
		{Name: "settlementNonce", Type: "uint256"},
	},
}

func (c BetCommitment) message() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"tradesRoot":    c.TradesRoot,
		"creator":       c.Creator.Hex(),
		"filler":        c.Filler.Hex(),
		"creatorAmount": c.CreatorAmount,
		"fillerAmount":  c.FillerAmount,
		"deadline":      c.Deadline,
		"nonce":         c.Nonce,
		"expiry":        c.Expiry,
	}
}

func (a SettlementAgreement) message() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"betId":           a.BetID,
		"winner":          a.Winner.Hex(),
		"winsCount":       a.WinsCount,
		"validTrades":     a.ValidTrades,
		"isTie":           a.IsTie,
		"expiry":          a.Expiry,
		"settlementNonce": a.SettlementNonce,
	}
}

// HashBetCommitment computes the typed-data digest for c under domain.
func HashBetCommitment(domain cryptoutil.Domain, c BetCommitment) ([32]byte, error) {
	return cryptoutil.HashTypedData(domain, betCommitmentType, "BetCommitment", c.message())
}

// HashSettlementAgreement computes the typed-data digest for a under domain.
func HashSettlementAgreement(domain cryptoutil.Domain, a SettlementAgreement) ([32]byte, error) {
	return cryptoutil.HashTypedData(domain, settlementAgreementType, "SettlementAgreement", a.message())
}
