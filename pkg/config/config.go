// Package config loads the agent's runtime configuration from environment
// variables (spec.md §6.4), following the teacher's params.Default()/
// LoadFromEnv() split.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hyperlicked/betagent/pkg/agenterr"
)

// Role is which side of a bet this agent plays by default.
type Role string

const (
	RoleMaker Role = "maker"
	RoleTaker Role = "taker"
)

// Config is every tunable and required setting spec.md §6.4 names.
type Config struct {
	// Required
	KeystorePath      string
	KeystorePassword  string
	PrivateKeyHex     string // alternative to KeystorePath/Password
	RPCURL            string
	ChainID           *big.Int
	VaultAddress      string
	DirectoryAddress  string
	OracleURL         string
	P2PAdvertisedURL  string

	// Tunables
	P2PPort                   int
	RateLimitPerSecond        int
	DiscoveryIntervalMs       int
	SettlementCheckIntervalMs int
	TradingIntervalMs         int
	DeadlineOffsetSecs        int
	Role                      Role
	DefaultMethod             string
	StakeAmount               *big.Int
	NumAssets                 int
	DataSource                string
	MaxMemoryGb               float64
	MaxActiveBets             int
	PendingProposalTTLMs      int
	FastHashThreshold         int
	CompressionThreshold      int
	TradeStorageDir           string
	LogFile                   string

	// BootstrapPeers is "address@endpoint,address@endpoint,..." — the
	// address book discovery cross-checks against the on-chain directory.
	BootstrapPeers string
}

// Default returns every tunable at its spec-mandated default, with every
// required field empty — callers must fill those in via LoadFromEnv or
// directly before calling Validate.
func Default() Config {
	return Config{
		P2PPort:                   8080,
		RateLimitPerSecond:        10,
		DiscoveryIntervalMs:       60_000,
		SettlementCheckIntervalMs: 30_000,
		TradingIntervalMs:         120_000,
		DeadlineOffsetSecs:        30,
		Role:                      RoleMaker,
		DefaultMethod:             "up:0",
		StakeAmount:               weiFromDecimalTokens("0.1"),
		NumAssets:                 50,
		DataSource:                "default",
		MaxMemoryGb:               4,
		MaxActiveBets:             5,
		PendingProposalTTLMs:      60_000,
		FastHashThreshold:         1000,
		CompressionThreshold:      1000,
		TradeStorageDir:           "./data/trades",
	}
}

// weiFromDecimalTokens converts a decimal token amount to its 18-decimal
// wei representation, matching the on-chain uint256 amount fields.
func weiFromDecimalTokens(s string) *big.Int {
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		return big.NewInt(0)
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	f.Mul(f, scale)
	out, _ := f.Int(nil)
	return out
}

// LoadFromEnv loads an optional .env file (envPath, or the current
// directory's .env if empty), then overrides Default() with any present
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()

	cfg.KeystorePath = getEnv("AGENT_KEYSTORE_PATH", cfg.KeystorePath)
	cfg.KeystorePassword = getEnv("AGENT_KEYSTORE_PASSWORD", cfg.KeystorePassword)
	cfg.PrivateKeyHex = getEnv("AGENT_PRIVATE_KEY", cfg.PrivateKeyHex)
	cfg.RPCURL = getEnv("AGENT_RPC_URL", cfg.RPCURL)
	cfg.VaultAddress = getEnv("AGENT_VAULT_ADDRESS", cfg.VaultAddress)
	cfg.DirectoryAddress = getEnv("AGENT_DIRECTORY_ADDRESS", cfg.DirectoryAddress)
	cfg.OracleURL = getEnv("AGENT_ORACLE_URL", cfg.OracleURL)
	cfg.P2PAdvertisedURL = getEnv("AGENT_P2P_ADVERTISED_URL", cfg.P2PAdvertisedURL)
	cfg.TradeStorageDir = getEnv("TRADE_STORAGE_DIR", cfg.TradeStorageDir)
	cfg.LogFile = getEnv("AGENT_LOG_FILE", cfg.LogFile)
	cfg.DataSource = getEnv("AGENT_DATA_SOURCE", cfg.DataSource)
	cfg.DefaultMethod = getEnv("AGENT_DEFAULT_METHOD", cfg.DefaultMethod)
	cfg.BootstrapPeers = getEnv("AGENT_BOOTSTRAP_PEERS", cfg.BootstrapPeers)

	if v := os.Getenv("AGENT_CHAIN_ID"); v != "" {
		if id, ok := new(big.Int).SetString(v, 10); ok {
			cfg.ChainID = id
		}
	}
	if v := os.Getenv("AGENT_ROLE"); v == string(RoleTaker) {
		cfg.Role = RoleTaker
	}
	if v := os.Getenv("AGENT_STAKE_AMOUNT_TOKENS"); v != "" {
		cfg.StakeAmount = weiFromDecimalTokens(v)
	}

	cfg.P2PPort = getEnvInt("AGENT_P2P_PORT", cfg.P2PPort)
	cfg.RateLimitPerSecond = getEnvInt("AGENT_RATE_LIMIT_PER_SECOND", cfg.RateLimitPerSecond)
	cfg.DiscoveryIntervalMs = getEnvInt("AGENT_DISCOVERY_INTERVAL_MS", cfg.DiscoveryIntervalMs)
	cfg.SettlementCheckIntervalMs = getEnvInt("AGENT_SETTLEMENT_CHECK_INTERVAL_MS", cfg.SettlementCheckIntervalMs)
	cfg.TradingIntervalMs = getEnvInt("AGENT_TRADING_INTERVAL_MS", cfg.TradingIntervalMs)
	cfg.DeadlineOffsetSecs = getEnvInt("AGENT_DEADLINE_OFFSET_SECS", cfg.DeadlineOffsetSecs)
	cfg.NumAssets = getEnvInt("AGENT_NUM_ASSETS", cfg.NumAssets)
	cfg.MaxActiveBets = getEnvInt("AGENT_MAX_ACTIVE_BETS", cfg.MaxActiveBets)
	cfg.PendingProposalTTLMs = getEnvInt("AGENT_PENDING_PROPOSAL_TTL_MS", cfg.PendingProposalTTLMs)
	cfg.FastHashThreshold = getEnvInt("AGENT_FAST_HASH_THRESHOLD", cfg.FastHashThreshold)
	cfg.CompressionThreshold = getEnvInt("AGENT_COMPRESSION_THRESHOLD", cfg.CompressionThreshold)

	if v := os.Getenv("AGENT_MAX_MEMORY_GB"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxMemoryGb = f
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// TradingInterval, SettlementCheckInterval, DiscoveryInterval, and
// PendingProposalTTL convert their millisecond fields to time.Duration
// for callers wiring up tickers.
func (c Config) TradingInterval() time.Duration {
	return time.Duration(c.TradingIntervalMs) * time.Millisecond
}

func (c Config) SettlementCheckInterval() time.Duration {
	return time.Duration(c.SettlementCheckIntervalMs) * time.Millisecond
}

func (c Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.DiscoveryIntervalMs) * time.Millisecond
}

func (c Config) PendingProposalTTL() time.Duration {
	return time.Duration(c.PendingProposalTTLMs) * time.Millisecond
}

// BootstrapPeerList parses BootstrapPeers ("addr@url,addr@url,...") into
// pairs; malformed entries are skipped.
func (c Config) BootstrapPeerList() []BootstrapPeer {
	if c.BootstrapPeers == "" {
		return nil
	}
	var out []BootstrapPeer
	for _, entry := range strings.Split(c.BootstrapPeers, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "@", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, BootstrapPeer{Address: parts[0], Endpoint: parts[1]})
	}
	return out
}

// BootstrapPeer is one configured address/endpoint pair, as hex strings
// before they're parsed into common.Address by the orchestrator.
type BootstrapPeer struct {
	Address  string
	Endpoint string
}

// Validate checks every field spec.md §6.4 marks required. A non-nil
// error is fatal at startup (spec.md §7, Config kind).
func (c Config) Validate() error {
	if c.KeystorePath == "" && c.PrivateKeyHex == "" {
		return fmt.Errorf("%w: one of AGENT_KEYSTORE_PATH or AGENT_PRIVATE_KEY is required", agenterr.ErrConfig)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("%w: AGENT_RPC_URL is required", agenterr.ErrConfig)
	}
	if c.ChainID == nil {
		return fmt.Errorf("%w: AGENT_CHAIN_ID is required", agenterr.ErrConfig)
	}
	if c.VaultAddress == "" {
		return fmt.Errorf("%w: AGENT_VAULT_ADDRESS is required", agenterr.ErrConfig)
	}
	if c.DirectoryAddress == "" {
		return fmt.Errorf("%w: AGENT_DIRECTORY_ADDRESS is required", agenterr.ErrConfig)
	}
	if c.OracleURL == "" {
		return fmt.Errorf("%w: AGENT_ORACLE_URL is required", agenterr.ErrConfig)
	}
	if c.P2PPort == 0 {
		return fmt.Errorf("%w: AGENT_P2P_PORT must be nonzero", agenterr.ErrConfig)
	}
	if c.P2PAdvertisedURL == "" {
		return fmt.Errorf("%w: AGENT_P2P_ADVERTISED_URL is required", agenterr.ErrConfig)
	}
	if c.Role != RoleMaker && c.Role != RoleTaker {
		return fmt.Errorf("%w: AGENT_ROLE must be %q or %q", agenterr.ErrConfig, RoleMaker, RoleTaker)
	}
	return nil
}
