package p2pserver

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/commitment"
	"github.com/hyperlicked/betagent/pkg/cryptoutil"
	"github.com/hyperlicked/betagent/pkg/tradeset"
	"github.com/hyperlicked/betagent/pkg/wire"
)

// wireTrade is the JSON shape of one trade inside a gzip-compressed
// tradeBlob/treeBlob: just enough to rebuild the commitment root
// (spec.md §4.4). Exit price, outcome, and cancellation are filled in
// later, at resolution, and never travel over this wire.
type wireTrade struct {
	Ticker     string       `json:"ticker"`
	Source     string       `json:"source"`
	Method     string       `json:"method"`
	EntryPrice *wire.BigInt `json:"entryPrice"`
}

func decodeTradeBlob(blob []byte) ([]tradeset.Trade, error) {
	raw, err := wire.Gunzip(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress trade blob: %v", agenterr.ErrValidation, err)
	}
	var wts []wireTrade
	if err := json.Unmarshal(raw, &wts); err != nil {
		return nil, fmt.Errorf("%w: decode trade blob: %v", agenterr.ErrValidation, err)
	}
	trades := make([]tradeset.Trade, len(wts))
	for i, wt := range wts {
		entry := big.NewInt(0)
		if wt.EntryPrice != nil {
			entry = &wt.EntryPrice.Int
		}
		trades[i] = tradeset.Trade{
			Ticker:     wt.Ticker,
			Source:     wt.Source,
			Method:     wt.Method,
			EntryPrice: entry,
		}
	}
	return trades, nil
}

// verifyTradesRoot reconstructs the commitment root of trades under
// snapshotID and checks it against declared.
func verifyTradesRoot(snapshotID string, trades []tradeset.Trade, declared [32]byte) error {
	built, err := tradeset.Build(snapshotID, trades)
	if err != nil {
		return fmt.Errorf("%w: rebuild trade set: %v", agenterr.ErrValidation, err)
	}
	if built.Root != declared {
		return fmt.Errorf("%w: trades root mismatch", agenterr.ErrValidation)
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not a valid address", agenterr.ErrValidation, s)
	}
	return common.HexToAddress(s), nil
}

// adHocDigest hashes fields not covered by one of the two normative
// EIP-712 schemas (spec.md §6.3): peer notifications that never go
// on-chain still get a signature, just not a typed-data one.
func adHocDigest(parts ...[]byte) [32]byte {
	return cryptoutil.Keccak256(parts...)
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func bigIntBytes(b *wire.BigInt) []byte {
	if b == nil {
		return big.NewInt(0).Bytes()
	}
	return b.Int.Bytes()
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body", "")
		return false
	}
	return true
}

func requireNonEmpty(w http.ResponseWriter, fields map[string]string) bool {
	for name, v := range fields {
		if v == "" {
			writeError(w, http.StatusBadRequest, "missing required field: "+name, "")
			return false
		}
	}
	return true
}

func requirePositive(w http.ResponseWriter, fields map[string]*wire.BigInt) bool {
	for name, v := range fields {
		if v == nil || v.Int.Sign() <= 0 {
			writeError(w, http.StatusBadRequest, "missing or non-positive field: "+name, "")
			return false
		}
	}
	return true
}

func requireFutureExpiry(w http.ResponseWriter, expiry *wire.BigInt) bool {
	if !expiryInFuture(expiry) {
		writeError(w, http.StatusBadRequest, "expiry has already passed", "")
		return false
	}
	return true
}

func betIDFromPath(r *http.Request) (uint64, bool) {
	idStr := mux.Vars(r)["betId"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	return id, err == nil
}

// handleProposal implements POST /p2p/proposal: decode, validate, verify
// the embedded trade blob against the declared commitment root, verify
// the maker's signature over the commitment, then hand off to the
// coordinator (spec.md §4.7, §4.9.2).
func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	var req ProposalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !requireNonEmpty(w, map[string]string{
		"snapshotId": req.SnapshotID,
		"creator":    req.Creator,
		"filler":     req.Filler,
		"signer":     req.Signer,
	}) {
		return
	}
	if !requirePositive(w, map[string]*wire.BigInt{
		"creatorAmount": req.CreatorAmount,
		"fillerAmount":  req.FillerAmount,
		"deadline":      req.Deadline,
		"nonce":         req.Nonce,
	}) {
		return
	}
	if !requireFutureExpiry(w, req.Expiry) {
		return
	}
	if len(req.Signature) != 65 {
		writeError(w, http.StatusBadRequest, "missing or malformed signature", "")
		return
	}

	creator, err := parseAddress(req.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	filler, err := parseAddress(req.Filler)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	signer, err := parseAddress(req.Signer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	c := commitment.BetCommitment{
		TradesRoot:    req.TradesRoot,
		Creator:       creator,
		Filler:        filler,
		CreatorAmount: &req.CreatorAmount.Int,
		FillerAmount:  &req.FillerAmount.Int,
		Deadline:      &req.Deadline.Int,
		Nonce:         &req.Nonce.Int,
		Expiry:        &req.Expiry.Int,
	}
	ok, err := commitment.VerifyBetCommitment(s.domain, c, req.Signature, signer)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "signature does not recover to declared signer", "")
		return
	}

	trades, err := decodeTradeBlob(req.TradeBlob)
	if err != nil {
		writeError(w, agenterr.HTTPStatus(err), err.Error(), "")
		return
	}
	if err := verifyTradesRoot(req.SnapshotID, trades, req.TradesRoot); err != nil {
		writeError(w, agenterr.HTTPStatus(err), err.Error(), "")
		return
	}

	resp, err := s.handlers.bilateralProposal(r.Context(), req, signer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "proposal handling failed", "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBetCommitted implements POST /p2p/bet-committed: a peer informing
// this agent its commitment landed on chain (spec.md §4.9.2).
func (s *Server) handleBetCommitted(w http.ResponseWriter, r *http.Request) {
	var n BetCommittedNotification
	if !decodeAndValidate(w, r, &n) {
		return
	}
	if !requireNonEmpty(w, map[string]string{
		"creator": n.Creator,
		"filler":  n.Filler,
		"txHash":  n.TxHash,
		"signer":  n.Signer,
	}) {
		return
	}
	if !requireFutureExpiry(w, n.Expiry) {
		return
	}
	if len(n.Signature) != 65 {
		writeError(w, http.StatusBadRequest, "missing or malformed signature", "")
		return
	}

	signer, err := parseAddress(n.Signer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	digest := adHocDigest(uint64Bytes(n.BetID), common.HexToAddress(n.Creator).Bytes(),
		common.HexToAddress(n.Filler).Bytes(), []byte(n.TxHash), bigIntBytes(n.Expiry))
	if !cryptoutil.Verify(signer, digest[:], n.Signature) {
		writeError(w, http.StatusUnauthorized, "signature does not recover to declared signer", "")
		return
	}

	resp, err := s.handlers.betCommitted(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "notification handling failed", "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTradesPush implements POST /p2p/trades: the maker delivering the
// full (possibly large) trade set once the bet has been committed, for
// the filler to persist and resolve against independently.
func (s *Server) handleTradesPush(w http.ResponseWriter, r *http.Request) {
	var req TradesPushRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !requireNonEmpty(w, map[string]string{
		"snapshotId": req.SnapshotID,
		"signer":     req.Signer,
	}) {
		return
	}
	if !requireFutureExpiry(w, req.Expiry) {
		return
	}
	if len(req.Signature) != 65 || len(req.TreeBlob) == 0 {
		writeError(w, http.StatusBadRequest, "missing trade blob or signature", "")
		return
	}

	signer, err := parseAddress(req.Signer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	digest := adHocDigest(uint64Bytes(req.BetID), []byte(req.TreeBlob), bigIntBytes(req.Expiry))
	if !cryptoutil.Verify(signer, digest[:], req.Signature) {
		writeError(w, http.StatusUnauthorized, "signature does not recover to declared signer", "")
		return
	}

	raw, err := wire.Gunzip(req.TreeBlob)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed trade blob", "")
		return
	}

	if err := s.handlers.tradesReceived(r.Context(), req.BetID, raw, signer); err != nil {
		writeError(w, agenterr.HTTPStatus(err), err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, AckResponse{Acknowledged: true})
}

// handleTradesPull implements GET /p2p/trades/:betId: an authenticated
// pull of a previously-pushed trade set, gated on a signed header rather
// than a body signature since GET carries no body (spec.md §4.7).
func (s *Server) handleTradesPull(w http.ResponseWriter, r *http.Request) {
	betID, ok := betIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "betId must be an integer", "")
		return
	}

	sigHeader := r.Header.Get("X-Signature")
	requestorHeader := r.Header.Get("X-Requestor")
	tsHeader := r.Header.Get("X-Timestamp")
	if sigHeader == "" || requestorHeader == "" || tsHeader == "" {
		writeError(w, http.StatusBadRequest, "missing X-Signature/X-Requestor/X-Timestamp headers", "")
		return
	}

	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "X-Timestamp must be a unix seconds integer", "")
		return
	}
	age := time.Since(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > HeaderFreshnessWindow {
		writeError(w, http.StatusBadRequest, "X-Timestamp outside freshness window", "")
		return
	}

	requestor, err := parseAddress(requestorHeader)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	sig, err := hexSignature(sigHeader)
	if err != nil {
		writeError(w, http.StatusBadRequest, "X-Signature must be 65-byte hex", "")
		return
	}
	digest := adHocDigest(uint64Bytes(betID), []byte(requestorHeader), []byte(tsHeader))
	if !cryptoutil.Verify(requestor, digest[:], sig) {
		writeError(w, http.StatusUnauthorized, "X-Signature does not recover to X-Requestor", "")
		return
	}

	resp, err := s.handlers.tradesPull(r.Context(), betID, requestor)
	if err != nil {
		writeError(w, agenterr.HTTPStatus(err), err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleProposeSettlement implements POST /p2p/propose-settlement: a peer
// proposing a settlement agreement this agent independently re-resolves
// and either co-signs or disputes (spec.md §4.9.3).
func (s *Server) handleProposeSettlement(w http.ResponseWriter, r *http.Request) {
	var req SettlementProposalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !requireNonEmpty(w, map[string]string{
		"winner": req.Winner,
		"signer": req.Signer,
	}) {
		return
	}
	if !requireFutureExpiry(w, req.Expiry) {
		return
	}
	if len(req.Signature) != 65 {
		writeError(w, http.StatusBadRequest, "missing or malformed signature", "")
		return
	}

	winner, err := parseAddress(req.Winner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	signer, err := parseAddress(req.Signer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	a := commitment.SettlementAgreement{
		BetID:           new(big.Int).SetUint64(req.BetID),
		Winner:          winner,
		WinsCount:       bigOrZero(req.WinsCount),
		ValidTrades:     bigOrZero(req.ValidTrades),
		IsTie:           req.IsTie,
		Expiry:          bigOrZero(req.Expiry),
		SettlementNonce: bigOrZero(req.SettlementNonce),
	}
	ok, err := commitment.VerifySettlementAgreement(s.domain, a, req.Signature, signer)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "signature does not recover to declared signer", "")
		return
	}

	resp, err := s.handlers.settlementProposal(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "settlement proposal handling failed", "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSettlementStatus implements GET /p2p/settlement/:betId.
func (s *Server) handleSettlementStatus(w http.ResponseWriter, r *http.Request) {
	betID, ok := betIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "betId must be an integer", "")
		return
	}
	resp, err := s.handlers.settlementStatus(r.Context(), betID)
	if err != nil {
		writeError(w, agenterr.HTTPStatus(err), err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCommitmentSign implements POST /p2p/commitment/sign: a maker
// asking this agent to counter-sign a BetCommitment as filler, prior to
// either side broadcasting it on chain (spec.md §4.9.2).
func (s *Server) handleCommitmentSign(w http.ResponseWriter, r *http.Request) {
	var req CommitmentSignRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !requireNonEmpty(w, map[string]string{
		"creator": req.Creator,
		"filler":  req.Filler,
		"signer":  req.Signer,
	}) {
		return
	}
	if !requirePositive(w, map[string]*wire.BigInt{
		"creatorAmount": req.CreatorAmount,
		"fillerAmount":  req.FillerAmount,
		"deadline":      req.Deadline,
		"nonce":         req.Nonce,
	}) {
		return
	}
	if !requireFutureExpiry(w, req.Expiry) {
		return
	}
	if len(req.Signature) != 65 {
		writeError(w, http.StatusBadRequest, "missing or malformed signature", "")
		return
	}

	creator, err := parseAddress(req.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	filler, err := parseAddress(req.Filler)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	signer, err := parseAddress(req.Signer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	c := commitment.BetCommitment{
		TradesRoot:    req.TradesRoot,
		Creator:       creator,
		Filler:        filler,
		CreatorAmount: &req.CreatorAmount.Int,
		FillerAmount:  &req.FillerAmount.Int,
		Deadline:      &req.Deadline.Int,
		Nonce:         &req.Nonce.Int,
		Expiry:        &req.Expiry.Int,
	}
	ok, err := commitment.VerifyBetCommitment(s.domain, c, req.Signature, signer)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "signature does not recover to declared signer", "")
		return
	}

	resp, err := s.handlers.commitmentSignRequest(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "commitment sign handling failed", "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func bigOrZero(b *wire.BigInt) *big.Int {
	if b == nil {
		return big.NewInt(0)
	}
	v := b.Int
	return &v
}

func hexSignature(s string) ([]byte, error) {
	var h wire.HexBytes
	if err := json.Unmarshal([]byte(`"`+s+`"`), &h); err != nil {
		return nil, err
	}
	if len(h) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(h))
	}
	return h, nil
}
