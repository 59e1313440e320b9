package config

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	DefaultConfigFile   = "script/.deploy-config.json"
	DefaultArtifactsDir = "out"

	NetworkEthereum = "ethereum"
	NetworkFilecoin = "filecoin"
)

// Config holds the process settings of the deployer. Values an operator is
// asked for (keys, addresses, amounts) live in the persisted Record instead.
type Config struct {
	// Persisted record location
	ConfigFile string

	// Build artifacts
	ArtifactsDir string
	ProjectDir   string

	// Chain transport
	Network string
	Token   string

	// Transaction settings
	GasLimit        uint64
	ContractTimeout time.Duration
	PollInterval    time.Duration

	// Logging and test harness
	Verbose    bool
	Antithesis bool
}

// Load creates a new config from environment variables
func Load() *Config {
	return &Config{
		ConfigFile:      getEnv("DEPLOY_CONFIG_FILE", DefaultConfigFile),
		ArtifactsDir:    getEnv("ARTIFACTS_DIR", DefaultArtifactsDir),
		ProjectDir:      getEnv("PROJECT_DIR", "."),
		Network:         getEnv("NETWORK", NetworkEthereum),
		Token:           getEnv("FILECOIN_TOKEN", ""),
		GasLimit:        getUint64("GAS_LIMIT", 0),
		ContractTimeout: getDuration("CONTRACT_TIMEOUT", 0),
		PollInterval:    getDuration("POLL_INTERVAL", 2*time.Second),
		Verbose:         getBool("VERBOSE", false),
		Antithesis:      getBool("ANTITHESIS", false),
	}
}

// Validate checks the settings that do not depend on the operator's record.
func (c *Config) Validate() error {
	if c.ConfigFile == "" {
		return fmt.Errorf("config file path cannot be empty")
	}
	switch c.Network {
	case NetworkEthereum, NetworkFilecoin:
	default:
		return fmt.Errorf("unknown network %q (available: %s, %s)", c.Network, NetworkEthereum, NetworkFilecoin)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

// Connection is the validated result of the startup check on the
// connection parameters an operator supplied.
type Connection struct {
	PrivateKey      *ecdsa.PrivateKey
	From            common.Address
	RPCURL          string
	EtherscanAPIKey string
}

// ValidateConnection fails fast if the signing key or the RPC endpoint is
// absent or malformed.
func ValidateConnection(rec Record) (*Connection, error) {
	if err := Require(rec, KeyPrivateKey, KeyRPCURL); err != nil {
		return nil, err
	}

	key, err := ParsePrivateKey(rec.Get(KeyPrivateKey.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyPrivateKey.Name, err)
	}

	rpcURL := strings.TrimSpace(rec.Get(KeyRPCURL.Name))
	if !strings.Contains(rpcURL, "://") {
		return nil, fmt.Errorf("invalid %s %q: missing scheme", KeyRPCURL.Name, rpcURL)
	}

	return &Connection{
		PrivateKey:      key,
		From:            crypto.PubkeyToAddress(key.PublicKey),
		RPCURL:          rpcURL,
		EtherscanAPIKey: rec.Get(KeyEtherscanAPIKey.Name),
	}, nil
}

// ParsePrivateKey decodes a hex secp256k1 key, 0x prefix optional.
func ParsePrivateKey(privateKeyStr string) (*ecdsa.PrivateKey, error) {
	privateKeyStr = strings.TrimPrefix(strings.TrimSpace(privateKeyStr), "0x")

	privateKeyBytes, err := hex.DecodeString(privateKeyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid hex format: %w", err)
	}

	if len(privateKeyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length: got %d bytes, want 32 bytes", len(privateKeyBytes))
	}

	privateKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return privateKey, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getUint64(key string, fallback uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
