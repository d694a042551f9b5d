package p2pserver

import (
	"github.com/hyperlicked/betagent/pkg/wire"
)

// InfoResponse answers GET /p2p/info.
type InfoResponse struct {
	Address    string `json:"address"`
	Endpoint   string `json:"endpoint"`
	PubkeyHash string `json:"pubkeyHash"`
	Version    string `json:"version"`
	UptimeSecs int64  `json:"uptime"`
}

// HealthResponse answers GET /p2p/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	UptimeSecs int64 `json:"uptime"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProposalRequest is the body of POST /p2p/proposal.
type ProposalRequest struct {
	SnapshotID    string       `json:"snapshotId"`
	TradesRoot    wire.Hash32  `json:"tradesRoot"`
	Creator       string       `json:"creator"`
	Filler        string       `json:"filler"`
	CreatorAmount *wire.BigInt `json:"creatorAmount"`
	FillerAmount  *wire.BigInt `json:"fillerAmount"`
	Deadline      *wire.BigInt `json:"deadline"`
	Nonce         *wire.BigInt `json:"nonce"`
	Expiry        *wire.BigInt `json:"expiry"`
	TradeBlob     wire.HexBytes `json:"tradeBlob"`
	Signer        string       `json:"signer"`
	Signature     wire.HexBytes `json:"signature"`
}

// ProposalResponse answers POST /p2p/proposal.
type ProposalResponse struct {
	Accepted  bool          `json:"accepted"`
	Signature wire.HexBytes `json:"signature,omitempty"`
	Signer    string        `json:"signer,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// BetCommittedNotification is the body of POST /p2p/bet-committed.
type BetCommittedNotification struct {
	BetID      uint64        `json:"betId"`
	Creator    string        `json:"creator"`
	Filler     string        `json:"filler"`
	TradesRoot wire.Hash32   `json:"tradesRoot"`
	TxHash     string        `json:"txHash"`
	Expiry     *wire.BigInt  `json:"expiry"`
	Signer     string        `json:"signer"`
	Signature  wire.HexBytes `json:"signature"`
}

// AckResponse acknowledges a notification.
type AckResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	Reason       string `json:"reason,omitempty"`
}

// TradesPushRequest is the body of POST /p2p/trades.
type TradesPushRequest struct {
	BetID      uint64       `json:"betId"`
	SnapshotID string       `json:"snapshotId"`
	TreeBlob   wire.HexBytes `json:"treeBlob"`
	Expiry     *wire.BigInt `json:"expiry"`
	Signer     string       `json:"signer"`
	Signature  wire.HexBytes `json:"signature"`
}

// SettlementProposalRequest is the body of POST /p2p/propose-settlement.
type SettlementProposalRequest struct {
	BetID           uint64        `json:"betId"`
	Winner          string        `json:"winner"`
	WinsCount       *wire.BigInt  `json:"winsCount"`
	ValidTrades     *wire.BigInt  `json:"validTrades"`
	IsTie           bool          `json:"isTie"`
	Expiry          *wire.BigInt  `json:"expiry"`
	SettlementNonce *wire.BigInt  `json:"settlementNonce"`
	Signer          string        `json:"signer"`
	Signature       wire.HexBytes `json:"signature"`
}

// SettlementResponse answers POST /p2p/propose-settlement.
type SettlementResponse struct {
	Status      string `json:"status"` // "agree" | "disagree"
	OurWinner   string `json:"ourWinner,omitempty"`
	OurWinsCount *int  `json:"ourWinsCount,omitempty"`
}

// SettlementStatusResponse answers GET /p2p/settlement/:betId.
type SettlementStatusResponse struct {
	BetID  uint64 `json:"betId"`
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
}

// CommitmentSignRequest is the body of POST /p2p/commitment/sign.
type CommitmentSignRequest struct {
	TradesRoot    wire.Hash32  `json:"tradesRoot"`
	Creator       string       `json:"creator"`
	Filler        string       `json:"filler"`
	CreatorAmount *wire.BigInt `json:"creatorAmount"`
	FillerAmount  *wire.BigInt `json:"fillerAmount"`
	Deadline      *wire.BigInt `json:"deadline"`
	Nonce         *wire.BigInt `json:"nonce"`
	Expiry        *wire.BigInt `json:"expiry"`
	Signer        string       `json:"signer"`
	Signature     wire.HexBytes `json:"signature"`
}

// TradesPullResponse answers GET /p2p/trades/:betId — the compressed
// trade blob plus per-trade Merkle proofs, keyed by trade index.
type TradesPullResponse struct {
	BetID     uint64                 `json:"betId"`
	TreeBlob  wire.HexBytes          `json:"treeBlob"`
	Root      wire.Hash32            `json:"root"`
	Proofs    map[int][]wire.Hash32 `json:"proofs,omitempty"`
}

// CommitmentSignResponse answers POST /p2p/commitment/sign.
type CommitmentSignResponse struct {
	Accepted  bool          `json:"accepted"`
	Signature wire.HexBytes `json:"signature,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}
