package deployer

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	chainID     *big.Int
	estimate    uint64
	estimateErr error
	sendErr     error
	// pendingPolls is the number of receipt lookups answered with NotFound.
	pendingPolls int
	receiptErr   error
	status       uint64
	contract     common.Address

	sent      []*types.Transaction
	estimated []ethereum.CallMsg
	polls     int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(1337),
		estimate: 500_000,
		status:   types.ReceiptStatusSuccessful,
		contract: common.HexToAddress("0xc0ffee0000000000000000000000000000000001"),
	}
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(10), nil }

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeBackend) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	f.estimated = append(f.estimated, call)
	return f.estimate, f.estimateErr
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.polls++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.polls <= f.pendingPolls {
		return nil, ethereum.NotFound
	}
	r := &types.Receipt{
		Status:      f.status,
		TxHash:      hash,
		BlockNumber: big.NewInt(42),
		GasUsed:     21_000,
	}
	last := f.sent[len(f.sent)-1]
	if last.To() == nil {
		r.ContractAddress = f.contract
	}
	return r, nil
}

func newTestSubmitter(t *testing.T, backend Backend, opts Options) *Submitter {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	opts.Logger = log.NewLogger(log.DiscardHandler())
	return NewSubmitter(backend, NewKeySigner(key), opts)
}

func TestSubmitDeploysContract(t *testing.T) {
	backend := newFakeBackend()
	backend.pendingPolls = 2
	s := newTestSubmitter(t, backend, Options{})

	receipt, err := s.Submit(context.Background(), Payload{Bytecode: []byte{0x60, 0x80}, Args: []byte{0x01}})
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Nil(t, tx.To())
	assert.Equal(t, []byte{0x60, 0x80, 0x01}, tx.Data())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(500_000), tx.Gas())
	assert.Equal(t, big.NewInt(1), tx.GasTipCap())
	assert.Equal(t, big.NewInt(21), tx.GasFeeCap())

	sender, err := types.Sender(types.LatestSignerForChainID(backend.chainID), tx)
	require.NoError(t, err)
	assert.Equal(t, s.From(), sender)

	assert.Equal(t, backend.contract, receipt.Address)
	assert.Equal(t, tx.Hash(), receipt.TxHash)
	assert.Equal(t, uint64(42), receipt.BlockNumber)
	assert.Equal(t, 3, backend.polls)
}

func TestSubmitUsesConfiguredGasLimit(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSubmitter(t, backend, Options{GasLimit: 3_000_000})

	_, err := s.Submit(context.Background(), Payload{Bytecode: []byte{0x00}})
	require.NoError(t, err)
	assert.Empty(t, backend.estimated)
	assert.Equal(t, uint64(3_000_000), backend.sent[0].Gas())
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeBackend)
		stage Stage
	}{
		{"estimate", func(b *fakeBackend) { b.estimateErr = errors.New("execution reverted") }, StagePrepare},
		{"send", func(b *fakeBackend) { b.sendErr = errors.New("nonce too low") }, StageSend},
		{"receipt", func(b *fakeBackend) { b.receiptErr = errors.New("connection refused") }, StageReceipt},
		{"revert", func(b *fakeBackend) { b.status = types.ReceiptStatusFailed }, StageRevert},
		{"no address", func(b *fakeBackend) { b.contract = common.Address{} }, StageReceipt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			tt.setup(backend)
			s := newTestSubmitter(t, backend, Options{})

			_, err := s.Submit(context.Background(), Payload{Bytecode: []byte{0x60}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSubmission)

			var subErr *SubmissionError
			require.ErrorAs(t, err, &subErr)
			assert.Equal(t, tt.stage, subErr.Stage)
			assert.LessOrEqual(t, len(backend.sent), 1)
		})
	}
}

func TestSubmitRejectsEmptyBytecode(t *testing.T) {
	s := newTestSubmitter(t, newFakeBackend(), Options{})
	_, err := s.Submit(context.Background(), Payload{})
	assert.ErrorIs(t, err, ErrSubmission)
}

func TestSubmitTimesOutWaitingForReceipt(t *testing.T) {
	backend := newFakeBackend()
	backend.pendingPolls = 1 << 30
	s := newTestSubmitter(t, backend, Options{Timeout: 20 * time.Millisecond})

	_, err := s.Submit(context.Background(), Payload{Bytecode: []byte{0x60}})
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, StageReceipt, subErr.Stage)
	assert.NotEqual(t, common.Hash{}, subErr.TxHash)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestApprove(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSubmitter(t, backend, Options{})
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	holder := common.HexToAddress("0x3333333333333333333333333333333333333333")

	receipt, err := NewERC20(s, token).Approve(context.Background(), holder, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, receipt.Address)

	tx := backend.sent[0]
	require.NotNil(t, tx.To())
	assert.Equal(t, token, *tx.To())

	want, err := EncodeApprove(holder, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, want, tx.Data())
	assert.Equal(t, crypto.Keccak256([]byte("approve(address,uint256)"))[:4], tx.Data()[:4])
}
