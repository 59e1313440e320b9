package artifacts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Forge runs the Foundry toolchain inside a project directory.
type Forge struct {
	Dir    string
	Binary string
	Env    map[string]string
}

// NewForge returns a runner for the forge binary on PATH.
func NewForge(dir string) *Forge {
	return &Forge{Dir: dir, Binary: "forge"}
}

// Build compiles the project. The combined compiler output is returned in
// both the success and failure cases.
func (f *Forge) Build(ctx context.Context) ([]byte, error) {
	output, err := f.command(ctx, "build").CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("failed to compile with forge build: %w, output: %s", err, output)
	}
	return output, nil
}

// VerifyRequest describes one deployed contract to submit to Etherscan.
type VerifyRequest struct {
	Address         common.Address
	SourceID        string
	ChainID         uint64
	ConstructorArgs []byte
	EtherscanAPIKey string
	RPCURL          string
}

// Verify submits a deployed contract for source verification.
func (f *Forge) Verify(ctx context.Context, req VerifyRequest) ([]byte, error) {
	if req.SourceID == "" {
		return nil, fmt.Errorf("no source id for %s", req.Address.Hex())
	}
	if req.EtherscanAPIKey == "" {
		return nil, fmt.Errorf("etherscan API key is required for verification")
	}
	output, err := f.command(ctx, buildVerifyArgs(req)...).CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("failed to verify %s: %w, output: %s", req.SourceID, err, output)
	}
	return output, nil
}

func buildVerifyArgs(req VerifyRequest) []string {
	args := []string{"verify-contract", "--watch"}
	if req.ChainID != 0 {
		args = append(args, "--chain-id", strconv.FormatUint(req.ChainID, 10))
	}
	if req.RPCURL != "" {
		args = append(args, "--rpc-url", req.RPCURL)
	}
	args = append(args, "--etherscan-api-key", req.EtherscanAPIKey)
	if len(req.ConstructorArgs) > 0 {
		args = append(args, "--constructor-args", hexutil.Encode(req.ConstructorArgs))
	}
	return append(args, req.Address.Hex(), req.SourceID)
}

func (f *Forge) command(ctx context.Context, args ...string) *exec.Cmd {
	binary := f.Binary
	if binary == "" {
		binary = "forge"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = f.Dir
	if f.Env != nil {
		cmd.Env = os.Environ()
		for key, value := range f.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
		}
	}
	return cmd
}
