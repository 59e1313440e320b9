package deployer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABI = `[
  {"type":"function","name":"approve","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

var parsedERC20 = mustParseABI(erc20ABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid built-in ABI: %v", err))
	}
	return parsed
}

// ContractWrapper sends method calls to a deployed contract through a
// submitter.
type ContractWrapper struct {
	submitter *Submitter
	address   common.Address
	abi       abi.ABI
}

func NewContractWrapper(submitter *Submitter, address common.Address, contractABI abi.ABI) *ContractWrapper {
	return &ContractWrapper{submitter: submitter, address: address, abi: contractABI}
}

// NewERC20 wraps a token contract.
func NewERC20(submitter *Submitter, token common.Address) *ContractWrapper {
	return NewContractWrapper(submitter, token, parsedERC20)
}

func (cw *ContractWrapper) Address() common.Address {
	return cw.address
}

// SendTransaction packs a method call and waits for it to be mined.
func (cw *ContractWrapper) SendTransaction(ctx context.Context, methodName string, args ...interface{}) (*Receipt, error) {
	callData, err := cw.abi.Pack(methodName, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build call data for %s: %w", methodName, err)
	}
	return cw.submitter.Transact(ctx, cw.address, callData)
}

// Approve grants spender an allowance of amount tokens.
func (cw *ContractWrapper) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*Receipt, error) {
	return cw.SendTransaction(ctx, "approve", spender, amount)
}

// EncodeApprove returns the calldata of approve(spender, amount).
func EncodeApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return parsedERC20.Pack("approve", spender, amount)
}
