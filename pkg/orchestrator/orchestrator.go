// Package orchestrator wires every component together at process start:
// load config, unlock the signer, dial the chain, build every
// collaborator, start the P2P listener and the maker/discovery/
// settlement/lifecycle tickers, and tear them all down in reverse order
// on shutdown (spec.md §4.11, §9).
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/arbitration"
	"github.com/hyperlicked/betagent/pkg/chainclient"
	"github.com/hyperlicked/betagent/pkg/config"
	"github.com/hyperlicked/betagent/pkg/coordinator"
	"github.com/hyperlicked/betagent/pkg/cryptoutil"
	"github.com/hyperlicked/betagent/pkg/discovery"
	"github.com/hyperlicked/betagent/pkg/lifecycle"
	"github.com/hyperlicked/betagent/pkg/logging"
	"github.com/hyperlicked/betagent/pkg/oracle"
	"github.com/hyperlicked/betagent/pkg/p2pserver"
	"github.com/hyperlicked/betagent/pkg/tradestore"
)

// Agent holds every long-lived component started by Run, so Shutdown can
// tear them down in the reverse order they came up.
type Agent struct {
	cfg    config.Config
	logger *zap.Logger

	chain  *chainclient.Client
	server *p2pserver.Server

	cancel context.CancelFunc
}

// Boot loads configuration, validates it, unlocks the signer, dials the
// chain, and constructs every collaborator — everything up to but not
// including starting any goroutine or listener (spec.md §4.11 steps 1-4).
func Boot(envPath string) (*Agent, *coordinator.Coordinator, *discovery.Discovery, *lifecycle.Manager, *arbitration.Client, error) {
	cfg := config.LoadFromEnv(envPath)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, nil, nil, err
	}

	logger, err := logging.NewWithFile(cfg.LogFile)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("%w: orchestrator: build logger: %v", agenterr.ErrConfig, err)
	}

	signer, err := loadSigner(cfg)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	// Every subsequent log line carries this agent's address and role, so
	// logs from many agent processes can be told apart once aggregated.
	logger = logger.With(zap.String("agent", signer.Address().Hex()), zap.String("role", string(cfg.Role)))
	logger.Info("signer loaded")

	ctx := context.Background()
	vaultAddr := common.HexToAddress(cfg.VaultAddress)
	directoryAddr := common.HexToAddress(cfg.DirectoryAddress)

	chain, err := chainclient.Dial(ctx, cfg.RPCURL, cfg.ChainID, vaultAddr, directoryAddr, signer)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	if registered, err := chain.IsBotRegistered(ctx, signer.Address()); err != nil {
		logger.Warn("could not verify on-chain registration", zap.Error(err))
	} else if !registered {
		logger.Warn("this agent's address is not registered in the bot directory",
			zap.String("address", signer.Address().Hex()))
	}

	oracleClient := oracle.New(cfg.OracleURL, cfg.DataSource)

	store, err := tradestore.New(cfg.TradeStorageDir, cfg.CompressionThreshold)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	disc, err := discovery.New(chain, bootstrapEndpoints(cfg), 0, 0, 0, logger)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	arb := arbitration.New(chain, arbitration.DefaultPollInterval)

	domain := cryptoutil.StandardDomain(cfg.ChainID, vaultAddr)
	coord := coordinator.New(
		chain, oracleClient, store, disc, arb,
		signer, domain, cfg, cfg.P2PAdvertisedURL, coordinator.AssetTickers(cfg.NumAssets),
		logger,
	)

	lifecycleMgr := lifecycle.New(coord, cfg.MaxMemoryGb, cfg.MaxActiveBets, cfg.PendingProposalTTL(), logger)

	identity := p2pserver.Identity{
		Address:    signer.Address().Hex(),
		Endpoint:   cfg.P2PAdvertisedURL,
		PubkeyHash: pubkeyHash(signer),
		Version:    "1",
	}
	server := p2pserver.New(identity, domain, coord.Handlers(), cfg.RateLimitPerSecond, logger)

	agent := &Agent{cfg: cfg, logger: logger, chain: chain, server: server}
	return agent, coord, disc, lifecycleMgr, arb, nil
}

// Run starts every ticker and the P2P listener, then blocks until ctx is
// cancelled (spec.md §4.11 steps 5-7). The caller is expected to derive
// ctx from signal.NotifyContext so SIGINT/SIGTERM trigger Shutdown.
func (a *Agent) Run(ctx context.Context, coord *coordinator.Coordinator, disc *discovery.Discovery, lifecycleMgr *lifecycle.Manager) {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.P2PPort)
		if err := a.server.Start(addr); err != nil {
			a.logger.Error("p2p server stopped", zap.Error(err))
		}
	}()

	go disc.Run(runCtx, a.cfg.DiscoveryInterval())
	go coord.RunSettlementScanner(runCtx, a.cfg.SettlementCheckInterval())
	go lifecycleMgr.Run(runCtx)
	go a.compactRateLimiter(runCtx)

	if a.cfg.Role == config.RoleMaker {
		go coord.RunMakerLoop(runCtx, a.cfg.TradingInterval())
	}

	a.logger.Info("agent started",
		zap.String("role", string(a.cfg.Role)),
		zap.Int("p2pPort", a.cfg.P2PPort),
		zap.Int("numAssets", a.cfg.NumAssets))

	<-runCtx.Done()
}

func (a *Agent) compactRateLimiter(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.server.CompactRateLimiter()
		}
	}
}

// Shutdown cancels every ticker, stops the listener, closes the chain
// connection, and flushes logs, in the reverse order components were
// started (spec.md §9).
func (a *Agent) Shutdown(ctx context.Context) {
	shutdownCtx, stop := context.WithTimeout(ctx, 10*time.Second)
	defer stop()

	if a.cancel != nil {
		a.cancel()
	}
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("p2p server shutdown error", zap.Error(err))
	}
	a.chain.Close()
	a.logger.Info("agent shut down")
	_ = a.logger.Sync()
}

func loadSigner(cfg config.Config) (*cryptoutil.Signer, error) {
	if cfg.KeystorePath != "" {
		return cryptoutil.LoadKeystoreFile(cfg.KeystorePath, cfg.KeystorePassword)
	}
	return cryptoutil.FromPrivateKeyHex(cfg.PrivateKeyHex)
}

func bootstrapEndpoints(cfg config.Config) []discovery.PeerEndpoint {
	peers := cfg.BootstrapPeerList()
	out := make([]discovery.PeerEndpoint, len(peers))
	for i, p := range peers {
		out[i] = discovery.PeerEndpoint{Address: common.HexToAddress(p.Address), Endpoint: p.Endpoint}
	}
	return out
}

func pubkeyHash(signer *cryptoutil.Signer) string {
	hash := cryptoutil.Keccak256(signer.Address().Bytes())
	return fmt.Sprintf("0x%x", hash)
}
