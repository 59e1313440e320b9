package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known anvil/hardhat development key #0.
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DEPLOY_CONFIG_FILE", "ARTIFACTS_DIR", "NETWORK", "GAS_LIMIT", "POLL_INTERVAL", "CONTRACT_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, DefaultConfigFile, cfg.ConfigFile)
	assert.Equal(t, DefaultArtifactsDir, cfg.ArtifactsDir)
	assert.Equal(t, NetworkEthereum, cfg.Network)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Zero(t, cfg.ContractTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DEPLOY_CONFIG_FILE", "/tmp/deploy.json")
	t.Setenv("NETWORK", NetworkFilecoin)
	t.Setenv("GAS_LIMIT", "3000000")
	t.Setenv("CONTRACT_TIMEOUT", "5m")
	t.Setenv("VERBOSE", "true")

	cfg := Load()
	assert.Equal(t, "/tmp/deploy.json", cfg.ConfigFile)
	assert.Equal(t, NetworkFilecoin, cfg.Network)
	assert.Equal(t, uint64(3_000_000), cfg.GasLimit)
	assert.Equal(t, 5*time.Minute, cfg.ContractTimeout)
	assert.True(t, cfg.Verbose)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.Network = "solana"
	assert.ErrorContains(t, cfg.Validate(), "unknown network")

	cfg = Load()
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.ConfigFile = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateConnection(t *testing.T) {
	conn, err := ValidateConnection(Record{
		KeyPrivateKey.Name:      devKey,
		KeyRPCURL.Name:          "http://localhost:8545",
		KeyEtherscanAPIKey.Name: "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), conn.From)
	assert.Equal(t, "abc", conn.EtherscanAPIKey)

	_, err = ValidateConnection(Record{KeyRPCURL.Name: "http://localhost:8545"})
	assert.ErrorIs(t, err, ErrMissingValue)

	_, err = ValidateConnection(Record{KeyPrivateKey.Name: "0x1234", KeyRPCURL.Name: "http://localhost:8545"})
	assert.ErrorContains(t, err, "invalid privateKey")

	_, err = ValidateConnection(Record{KeyPrivateKey.Name: devKey, KeyRPCURL.Name: "localhost:8545"})
	assert.ErrorContains(t, err, "missing scheme")
}

func TestParsePrivateKeyWithoutPrefix(t *testing.T) {
	_, err := ParsePrivateKey(devKey[2:])
	assert.NoError(t, err)

	_, err = ParsePrivateKey("zz")
	assert.Error(t, err)
}

func TestAssertionsDisabledByDefault(t *testing.T) {
	SetAntithesisMode(false)
	assert.False(t, IsAntithesisEnabled())
	assert.NotPanics(t, func() {
		AssertAlways(false, "never evaluated", nil)
		AssertUnreachable("never evaluated", nil)
	})
}
