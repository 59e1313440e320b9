package deployer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

const DefaultPollInterval = 2 * time.Second

type Options struct {
	// GasLimit overrides gas estimation when non-zero.
	GasLimit     uint64
	PollInterval time.Duration
	// Timeout bounds the wait for a receipt. Zero waits until the context
	// is cancelled.
	Timeout time.Duration
	Logger  log.Logger
}

// Payload is a contract creation: linked bytecode followed by the ABI
// encoded constructor arguments.
type Payload struct {
	Bytecode []byte
	Args     []byte
}

func (p Payload) Data() []byte {
	data := make([]byte, 0, len(p.Bytecode)+len(p.Args))
	data = append(data, p.Bytecode...)
	return append(data, p.Args...)
}

// Receipt is the confirmed outcome of a transaction. Address is only set
// for contract creations.
type Receipt struct {
	TxHash      common.Hash
	Address     common.Address
	BlockNumber uint64
	GasUsed     uint64
}

type Submitter struct {
	backend Backend
	signer  Signer
	opts    Options
	logger  log.Logger
}

func NewSubmitter(backend Backend, signer Signer, opts Options) *Submitter {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Root()
	}
	return &Submitter{backend: backend, signer: signer, opts: opts, logger: logger}
}

func (s *Submitter) From() common.Address {
	return s.signer.Address()
}

// Submit creates a contract and waits for it to be mined. Failures are
// never retried.
func (s *Submitter) Submit(ctx context.Context, payload Payload) (*Receipt, error) {
	if len(payload.Bytecode) == 0 {
		return nil, &SubmissionError{Stage: StagePrepare, Err: errors.New("empty bytecode")}
	}

	receipt, err := s.send(ctx, nil, payload.Data())
	if err != nil {
		return nil, err
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, &SubmissionError{Stage: StageReceipt, TxHash: receipt.TxHash, Err: errors.New("receipt has no contract address")}
	}

	return &Receipt{
		TxHash:      receipt.TxHash,
		Address:     receipt.ContractAddress,
		BlockNumber: blockNumber(receipt),
		GasUsed:     receipt.GasUsed,
	}, nil
}

// Transact sends a call to an existing contract and waits for it to be
// mined.
func (s *Submitter) Transact(ctx context.Context, to common.Address, data []byte) (*Receipt, error) {
	receipt, err := s.send(ctx, &to, data)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: blockNumber(receipt),
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (s *Submitter) send(ctx context.Context, to *common.Address, data []byte) (*types.Receipt, error) {
	tx, err := s.buildTx(ctx, to, data)
	if err != nil {
		return nil, &SubmissionError{Stage: StagePrepare, Err: err}
	}

	chainID := tx.ChainId()
	signedTx, err := s.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, &SubmissionError{Stage: StageSign, Err: err}
	}

	s.logger.Debug("Sending transaction", "hash", signedTx.Hash(), "nonce", signedTx.Nonce(), "gas", signedTx.Gas())
	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, &SubmissionError{Stage: StageSend, TxHash: signedTx.Hash(), Err: err}
	}

	receipt, err := s.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		return nil, &SubmissionError{Stage: StageReceipt, TxHash: signedTx.Hash(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &SubmissionError{Stage: StageRevert, TxHash: signedTx.Hash(), Err: errors.New("transaction reverted")}
	}
	if receipt.TxHash == (common.Hash{}) {
		receipt.TxHash = signedTx.Hash()
	}
	return receipt, nil
}

func (s *Submitter) buildTx(ctx context.Context, to *common.Address, data []byte) (*types.Transaction, error) {
	from := s.signer.Address()

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}

	gasLimit := s.opts.GasLimit
	if gasLimit == 0 {
		gasLimit, err = s.backend.EstimateGas(ctx, ethereum.CallMsg{
			From: from,
			To:   to,
			Data: data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	feeCap := new(big.Int).Mul(gasPrice, big.NewInt(2))
	feeCap.Add(feeCap, tip)

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        to,
		Value:     big.NewInt(0),
		Data:      data,
	}), nil
}

// waitForReceipt polls until the receipt is available. A missing receipt
// keeps the loop going; any other backend error ends it.
func (s *Submitter) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			if ctx.Err() != nil {
				return nil, fmt.Errorf("timeout waiting for transaction %s: %w", txHash.Hex(), ctx.Err())
			}
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func blockNumber(r *types.Receipt) uint64 {
	if r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Uint64()
}
