package p2pserver

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperlicked/betagent/pkg/commitment"
	"github.com/hyperlicked/betagent/pkg/cryptoutil"
	"github.com/hyperlicked/betagent/pkg/tradeset"
	"github.com/hyperlicked/betagent/pkg/wire"
)

func testDomain() cryptoutil.Domain {
	vault := common.HexToAddress("0x00000000000000000000000000000000000abc")
	return cryptoutil.StandardDomain(big.NewInt(8453), vault)
}

func newTestServer(t *testing.T, handlers Handlers, rateLimit int) *Server {
	t.Helper()
	identity := Identity{Address: "0xagent", Endpoint: "http://localhost:9000", PubkeyHash: "0xhash", Version: "test"}
	return New(identity, testDomain(), handlers, rateLimit, nil)
}

func gzipTrades(t *testing.T, trades []wireTrade) []byte {
	t.Helper()
	raw, err := json.Marshal(trades)
	if err != nil {
		t.Fatalf("marshal trades: %v", err)
	}
	gz, err := wire.Gzip(raw)
	if err != nil {
		t.Fatalf("gzip trades: %v", err)
	}
	return gz
}

func TestHandleInfoAndHealth(t *testing.T) {
	s := newTestServer(t, Handlers{}, 100)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/p2p/info")
	if err != nil {
		t.Fatalf("get info: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/p2p/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp2.StatusCode)
	}
}

func TestHandleProposalAcceptsValidSignedProposal(t *testing.T) {
	domain := testDomain()
	maker, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	filler, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	trades := []wireTrade{
		{Ticker: "BTC-USD", Source: "coinbase", Method: "up:5", EntryPrice: wire.NewBigInt(big.NewInt(100))},
		{Ticker: "ETH-USD", Source: "coinbase", Method: "down:3", EntryPrice: wire.NewBigInt(big.NewInt(200))},
	}
	blob := gzipTrades(t, trades)

	decoded, err := decodeTradeBlob(blob)
	if err != nil {
		t.Fatalf("decode blob: %v", err)
	}
	built, err := buildForTest("snap-1", decoded)
	if err != nil {
		t.Fatalf("build trade set: %v", err)
	}

	c := commitment.BetCommitment{
		TradesRoot:    built,
		Creator:       maker.Address(),
		Filler:        filler.Address(),
		CreatorAmount: big.NewInt(1000),
		FillerAmount:  big.NewInt(2000),
		Deadline:      big.NewInt(time.Now().Add(time.Hour).Unix()),
		Nonce:         big.NewInt(1),
		Expiry:        big.NewInt(time.Now().Add(10 * time.Minute).Unix()),
	}
	sig, err := commitment.SignBetCommitment(maker, domain, c)
	if err != nil {
		t.Fatalf("sign commitment: %v", err)
	}

	var called bool
	handlers := Handlers{
		OnBilateralProposal: func(ctx context.Context, proposal ProposalRequest, from common.Address) (ProposalResponse, error) {
			called = true
			if from != maker.Address() {
				t.Errorf("handler saw signer %s, want %s", from.Hex(), maker.Address().Hex())
			}
			return ProposalResponse{Accepted: true, Signer: filler.Address().Hex()}, nil
		},
	}
	s := newTestServer(t, handlers, 100)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req := ProposalRequest{
		SnapshotID:    "snap-1",
		TradesRoot:    wire.Hash32(built),
		Creator:       maker.Address().Hex(),
		Filler:        filler.Address().Hex(),
		CreatorAmount: wire.NewBigInt(c.CreatorAmount),
		FillerAmount:  wire.NewBigInt(c.FillerAmount),
		Deadline:      wire.NewBigInt(c.Deadline),
		Nonce:         wire.NewBigInt(c.Nonce),
		Expiry:        wire.NewBigInt(c.Expiry),
		TradeBlob:     blob,
		Signer:        maker.Address().Hex(),
		Signature:     sig,
	}
	body, _ := json.Marshal(req)

	resp, err := http.Post(srv.URL+"/p2p/proposal", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post proposal: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("proposal status = %d", resp.StatusCode)
	}
	if !called {
		t.Error("handler was never invoked")
	}

	var out ProposalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Accepted {
		t.Error("expected proposal to be accepted")
	}
}

func TestHandleProposalRejectsTamperedRoot(t *testing.T) {
	domain := testDomain()
	maker, _ := cryptoutil.GenerateKey()
	filler, _ := cryptoutil.GenerateKey()

	trades := []wireTrade{{Ticker: "BTC-USD", Source: "coinbase", Method: "flat:1", EntryPrice: wire.NewBigInt(big.NewInt(100))}}
	blob := gzipTrades(t, trades)

	var fakeRoot [32]byte
	fakeRoot[0] = 0xff

	c := commitment.BetCommitment{
		TradesRoot:    fakeRoot,
		Creator:       maker.Address(),
		Filler:        filler.Address(),
		CreatorAmount: big.NewInt(1000),
		FillerAmount:  big.NewInt(2000),
		Deadline:      big.NewInt(time.Now().Add(time.Hour).Unix()),
		Nonce:         big.NewInt(1),
		Expiry:        big.NewInt(time.Now().Add(10 * time.Minute).Unix()),
	}
	sig, err := commitment.SignBetCommitment(maker, domain, c)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s := newTestServer(t, Handlers{}, 100)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req := ProposalRequest{
		SnapshotID:    "snap-1",
		TradesRoot:    wire.Hash32(fakeRoot),
		Creator:       maker.Address().Hex(),
		Filler:        filler.Address().Hex(),
		CreatorAmount: wire.NewBigInt(c.CreatorAmount),
		FillerAmount:  wire.NewBigInt(c.FillerAmount),
		Deadline:      wire.NewBigInt(c.Deadline),
		Nonce:         wire.NewBigInt(c.Nonce),
		Expiry:        wire.NewBigInt(c.Expiry),
		TradeBlob:     blob,
		Signer:        maker.Address().Hex(),
		Signature:     sig,
	}
	body, _ := json.Marshal(req)

	resp, err := http.Post(srv.URL+"/p2p/proposal", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post proposal: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for root mismatch", resp.StatusCode)
	}
}

func TestHandleProposalRejectsWrongSigner(t *testing.T) {
	domain := testDomain()
	maker, _ := cryptoutil.GenerateKey()
	impostor, _ := cryptoutil.GenerateKey()
	filler, _ := cryptoutil.GenerateKey()

	trades := []wireTrade{{Ticker: "BTC-USD", Source: "coinbase", Method: "flat:1", EntryPrice: wire.NewBigInt(big.NewInt(100))}}
	blob := gzipTrades(t, trades)
	decoded, _ := decodeTradeBlob(blob)
	root, _ := buildForTest("snap-2", decoded)

	c := commitment.BetCommitment{
		TradesRoot:    root,
		Creator:       maker.Address(),
		Filler:        filler.Address(),
		CreatorAmount: big.NewInt(1000),
		FillerAmount:  big.NewInt(2000),
		Deadline:      big.NewInt(time.Now().Add(time.Hour).Unix()),
		Nonce:         big.NewInt(1),
		Expiry:        big.NewInt(time.Now().Add(10 * time.Minute).Unix()),
	}
	// Signed by impostor, but the request declares maker as signer.
	sig, _ := commitment.SignBetCommitment(impostor, domain, c)

	s := newTestServer(t, Handlers{}, 100)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req := ProposalRequest{
		SnapshotID:    "snap-2",
		TradesRoot:    wire.Hash32(root),
		Creator:       maker.Address().Hex(),
		Filler:        filler.Address().Hex(),
		CreatorAmount: wire.NewBigInt(c.CreatorAmount),
		FillerAmount:  wire.NewBigInt(c.FillerAmount),
		Deadline:      wire.NewBigInt(c.Deadline),
		Nonce:         wire.NewBigInt(c.Nonce),
		Expiry:        wire.NewBigInt(c.Expiry),
		TradeBlob:     blob,
		Signer:        maker.Address().Hex(),
		Signature:     sig,
	}
	body, _ := json.Marshal(req)

	resp, err := http.Post(srv.URL+"/p2p/proposal", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post proposal: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for wrong signer", resp.StatusCode)
	}
}

func TestHandleProposalRejectsExpiredMessage(t *testing.T) {
	s := newTestServer(t, Handlers{}, 100)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req := ProposalRequest{
		SnapshotID:    "snap-3",
		Creator:       common.HexToAddress("0x1").Hex(),
		Filler:        common.HexToAddress("0x2").Hex(),
		CreatorAmount: wire.NewBigInt(big.NewInt(1)),
		FillerAmount:  wire.NewBigInt(big.NewInt(1)),
		Deadline:      wire.NewBigInt(big.NewInt(1)),
		Nonce:         wire.NewBigInt(big.NewInt(1)),
		Expiry:        wire.NewBigInt(big.NewInt(time.Now().Add(-time.Hour).Unix())),
		Signer:        common.HexToAddress("0x1").Hex(),
		Signature:     make([]byte, 65),
	}
	body, _ := json.Marshal(req)

	resp, err := http.Post(srv.URL+"/p2p/proposal", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post proposal: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for expired proposal", resp.StatusCode)
	}
}

func TestHandleTradesPullAuthenticatesHeader(t *testing.T) {
	requestor, _ := cryptoutil.GenerateKey()

	handlers := Handlers{
		OnTradesPull: func(ctx context.Context, betID uint64, r common.Address) (TradesPullResponse, error) {
			if r != requestor.Address() {
				t.Errorf("handler saw requestor %s, want %s", r.Hex(), requestor.Address().Hex())
			}
			return TradesPullResponse{BetID: betID, TreeBlob: []byte("blob")}, nil
		},
	}
	s := newTestServer(t, handlers, 100)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	digest := adHocDigest(uint64Bytes(42), []byte(requestor.Address().Hex()), []byte(ts))
	sig, err := requestor.Sign(digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	client := &http.Client{}
	httpReq, _ := http.NewRequest(http.MethodGet, srv.URL+"/p2p/trades/42", nil)
	httpReq.Header.Set("X-Signature", "0x"+hexEncode(sig))
	httpReq.Header.Set("X-Requestor", requestor.Address().Hex())
	httpReq.Header.Set("X-Timestamp", ts)

	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHandleTradesPullRejectsStaleTimestamp(t *testing.T) {
	requestor, _ := cryptoutil.GenerateKey()
	s := newTestServer(t, Handlers{}, 100)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	staleTS := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	digest := adHocDigest(uint64Bytes(42), []byte(requestor.Address().Hex()), []byte(staleTS))
	sig, _ := requestor.Sign(digest[:])

	httpReq, _ := http.NewRequest(http.MethodGet, srv.URL+"/p2p/trades/42", nil)
	httpReq.Header.Set("X-Signature", "0x"+hexEncode(sig))
	httpReq.Header.Set("X-Requestor", requestor.Address().Hex())
	httpReq.Header.Set("X-Timestamp", staleTS)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for stale timestamp", resp.StatusCode)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	s := newTestServer(t, Handlers{}, 10)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var ok, limited int
	for i := 0; i < 15; i++ {
		resp, err := http.Get(srv.URL + "/p2p/health")
		if err != nil {
			t.Fatalf("get health: %v", err)
		}
		switch resp.StatusCode {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		}
		resp.Body.Close()
	}
	if ok != 10 || limited != 5 {
		t.Errorf("ok=%d limited=%d, want 10/5", ok, limited)
	}
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}

// buildForTest computes the commitment root the server will independently
// recompute from the same snapshotID/trades pair.
func buildForTest(snapshotID string, trades []tradeset.Trade) ([32]byte, error) {
	ts, err := tradeset.Build(snapshotID, trades)
	if err != nil {
		return [32]byte{}, err
	}
	return ts.Root, nil
}
