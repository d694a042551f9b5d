package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperlicked/betagent/pkg/p2pserver"
)

// DefaultFreshnessWindow bounds how long a peer is considered healthy
// after its last successful probe.
const DefaultFreshnessWindow = 2 * time.Minute

// DefaultMaxConsecutiveFailures evicts a peer from the cache after this
// many back-to-back failed probes, even inside one freshness window
// (spec.md §4.8 supplement, graceful re-dial).
const DefaultMaxConsecutiveFailures = 3

// DefaultProbeTimeout bounds a single /p2p/info or /p2p/health request.
const DefaultProbeTimeout = 3 * time.Second

// directoryReader is the narrow slice of chainclient.Client discovery
// depends on, so it can be exercised without a live RPC connection.
type directoryReader interface {
	GetRegisteredAddresses(ctx context.Context) ([]common.Address, error)
}

// Discovery periodically reconciles a bootstrap endpoint book against the
// on-chain directory and health-probes every still-registered peer.
type Discovery struct {
	directory directoryReader
	client    *http.Client
	bootstrap []PeerEndpoint

	freshnessWindow        time.Duration
	maxConsecutiveFailures int

	logger *zap.Logger

	mu    sync.Mutex
	cache *lru.Cache[common.Address, *peerRecord]
}

// New builds a Discovery. cacheSize <= 0 uses a cache sized to 4x the
// bootstrap list (minimum 16). freshnessWindow/maxConsecutiveFailures
// <= 0 use their package defaults.
func New(directory directoryReader, bootstrap []PeerEndpoint, cacheSize int, freshnessWindow time.Duration, maxConsecutiveFailures int, logger *zap.Logger) (*Discovery, error) {
	if cacheSize <= 0 {
		cacheSize = len(bootstrap) * 4
		if cacheSize < 16 {
			cacheSize = 16
		}
	}
	if freshnessWindow <= 0 {
		freshnessWindow = DefaultFreshnessWindow
	}
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	cache, err := lru.New[common.Address, *peerRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("discovery: new lru cache: %w", err)
	}
	return &Discovery{
		directory:              directory,
		client:                 &http.Client{Timeout: DefaultProbeTimeout},
		bootstrap:              bootstrap,
		freshnessWindow:        freshnessWindow,
		maxConsecutiveFailures: maxConsecutiveFailures,
		logger:                 logger,
		cache:                  cache,
	}, nil
}

// Run probes every interval until ctx is cancelled. Intended to run in its
// own goroutine, started by the orchestrator (component 11).
func (d *Discovery) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce reads the on-chain directory, drops bootstrap entries no
// longer registered, and probes everything else once. Failures are
// logged and never fatal (spec.md §4.8).
func (d *Discovery) RefreshOnce(ctx context.Context) {
	roundID := uuid.New().String()

	registered, err := d.directory.GetRegisteredAddresses(ctx)
	if err != nil {
		d.logWarn("discovery round failed to read directory", zap.String("round", roundID), zap.Error(err))
		return
	}
	registeredSet := make(map[common.Address]bool, len(registered))
	for _, a := range registered {
		registeredSet[a] = true
	}

	var wg sync.WaitGroup
	for _, ep := range d.bootstrap {
		if !registeredSet[ep.Address] {
			d.evict(ep.Address)
			continue
		}
		ep := ep
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.probe(ctx, ep, roundID)
		}()
	}
	wg.Wait()
}

func (d *Discovery) probe(ctx context.Context, ep PeerEndpoint, roundID string) {
	info, err := d.fetchInfo(ctx, ep.Endpoint)
	if err == nil {
		err = d.fetchHealth(ctx, ep.Endpoint)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.cache.Get(ep.Address)
	if !ok {
		rec = &peerRecord{peer: Peer{Address: ep.Address, Endpoint: ep.Endpoint}}
	}

	if err != nil {
		rec.consecutiveFailures++
		d.logWarn("peer probe failed", zap.String("round", roundID), zap.String("peer", ep.Address.Hex()), zap.Error(err))
		if rec.consecutiveFailures >= d.maxConsecutiveFailures {
			d.cache.Remove(ep.Address)
			return
		}
		d.cache.Add(ep.Address, rec)
		return
	}

	rec.consecutiveFailures = 0
	rec.peer.Endpoint = ep.Endpoint
	rec.peer.PubkeyHash = info.PubkeyHash
	rec.peer.LastHealthyAt = time.Now()
	d.cache.Add(ep.Address, rec)
}

func (d *Discovery) fetchInfo(ctx context.Context, endpoint string) (p2pserver.InfoResponse, error) {
	var out p2pserver.InfoResponse
	err := d.getJSON(ctx, endpoint+"/p2p/info", &out)
	return out, err
}

func (d *Discovery) fetchHealth(ctx context.Context, endpoint string) error {
	var out p2pserver.HealthResponse
	if err := d.getJSON(ctx, endpoint+"/p2p/health", &out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return fmt.Errorf("discovery: peer reports status %q", out.Status)
	}
	return nil
}

func (d *Discovery) getJSON(ctx context.Context, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("discovery: build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discovery: request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discovery: %s returned status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("discovery: decode %s: %w", url, err)
	}
	return nil
}

func (d *Discovery) evict(addr common.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Remove(addr)
}

// GetHealthyPeers returns every cached peer last probed successfully
// within the freshness window, ordered by address for determinism.
func (d *Discovery) GetHealthyPeers() []Peer {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().Add(-d.freshnessWindow)
	var peers []Peer
	for _, addr := range d.cache.Keys() {
		rec, ok := d.cache.Peek(addr)
		if !ok {
			continue
		}
		if rec.peer.LastHealthyAt.After(cutoff) {
			peers = append(peers, rec.peer)
		}
	}
	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Address.Hex() < peers[j].Address.Hex()
	})
	return peers
}

func (d *Discovery) logWarn(msg string, fields ...zap.Field) {
	if d.logger == nil {
		return
	}
	d.logger.Warn(msg, fields...)
}
