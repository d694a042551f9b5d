package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/p2pserver"
)

var httpClient = &http.Client{Timeout: defaultOutboundTimeout}

func postJSON(ctx context.Context, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: coordinator: marshal request: %v", agenterr.ErrValidation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: coordinator: build request: %v", agenterr.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: coordinator: post %s: %v", agenterr.ErrTransport, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: coordinator: %s returned status %d", agenterr.ErrTransport, url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: coordinator: decode %s response: %v", agenterr.ErrTransport, url, err)
	}
	return nil
}

func (c *Coordinator) postProposal(ctx context.Context, peerURL string, req p2pserver.ProposalRequest) (p2pserver.ProposalResponse, error) {
	var resp p2pserver.ProposalResponse
	err := postJSON(ctx, peerURL+"/p2p/proposal", req, &resp)
	return resp, err
}

func (c *Coordinator) postBetCommitted(ctx context.Context, peerURL string, n p2pserver.BetCommittedNotification) (p2pserver.AckResponse, error) {
	var resp p2pserver.AckResponse
	err := postJSON(ctx, peerURL+"/p2p/bet-committed", n, &resp)
	return resp, err
}
