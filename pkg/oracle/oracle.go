// Package oracle is a narrow client for the external price feed the
// trading loop consults for entry and exit prices (spec.md §1
// Out-of-scope: the feed itself is an external collaborator; the agent
// only needs to fetch and parse prices).
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/wire"
)

// DefaultTimeout bounds a single price-fetch request.
const DefaultTimeout = 5 * time.Second

// Client fetches ticker prices from a configured feed over HTTP.
type Client struct {
	baseURL    string
	dataSource string
	httpClient *http.Client
}

// New builds a Client against baseURL, scoping every request to
// dataSource (spec.md §6.4's dataSource selects an oracle feed).
func New(baseURL, dataSource string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		dataSource: dataSource,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type pricesResponse struct {
	Prices map[string]*wire.BigInt `json:"prices"`
}

// GetPrices fetches the current price for each ticker. A ticker missing
// from the response is an error: the caller (the maker/settlement loop)
// needs a complete set or none at all (spec.md §4.9.4, "oracle failure:
// skip this tick").
func (c *Client) GetPrices(ctx context.Context, tickers []string) (map[string]*big.Int, error) {
	q := url.Values{}
	q.Set("source", c.dataSource)
	for _, t := range tickers {
		q.Add("ticker", t)
	}
	reqURL := c.baseURL + "/prices?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: oracle: build request: %v", agenterr.ErrTransport, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: oracle: request: %v", agenterr.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: oracle: status %d", agenterr.ErrTransport, resp.StatusCode)
	}

	var out pricesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: oracle: decode response: %v", agenterr.ErrTransport, err)
	}

	prices := make(map[string]*big.Int, len(tickers))
	for _, t := range tickers {
		p, ok := out.Prices[t]
		if !ok {
			return nil, fmt.Errorf("%w: oracle: missing price for %s", agenterr.ErrTransport, t)
		}
		v := p.Int
		prices[t] = &v
	}
	return prices, nil
}
