package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/filecoin-project/go-address"
	filbig "github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/lotus/api"
	lotusclient "github.com/filecoin-project/lotus/api/client"
	"github.com/filecoin-project/lotus/chain/types/ethtypes"
	"github.com/ipfs/go-cid"

	"github.com/worldcoin/world-id-example-airdrop/config"
)

// Client talks to the deployment chain, either a standard Ethereum JSON-RPC
// endpoint or a Lotus node serving the FEVM.
type Client struct {
	network string
	eth     *ethclient.Client
	lotus   api.FullNode
	closer  func()
}

// New connects to rpcURL using the transport selected by cfg.Network.
func New(ctx context.Context, cfg *config.Config, rpcURL string) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Network != config.NetworkFilecoin {
		eth, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RPC at %s: %w", rpcURL, err)
		}
		return &Client{network: config.NetworkEthereum, eth: eth, closer: eth.Close}, nil
	}

	// Prepare headers with JWT token
	var headers http.Header
	if cfg.Token != "" {
		headers = http.Header{}
		headers.Add("Authorization", "Bearer "+cfg.Token)
	}

	fullNodeAPI, closer, err := lotusclient.NewFullNodeRPCV1(ctx, rpcURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Lotus node at %s: %w", rpcURL, err)
	}

	return &Client{
		network: config.NetworkFilecoin,
		lotus:   fullNodeAPI,
		closer:  closer,
	}, nil
}

// NewFromLotus wraps an existing Lotus API handle.
func NewFromLotus(node api.FullNode) *Client {
	return &Client{network: config.NetworkFilecoin, lotus: node}
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) Network() string {
	return c.network
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if c.lotus == nil {
		return c.eth.ChainID(ctx)
	}
	id, err := c.lotus.EthChainId(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(uint64(id)), nil
}

// PendingNonceAt reads the mempool nonce of the f410 address backing an
// Ethereum account.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if c.lotus == nil {
		return c.eth.PendingNonceAt(ctx, account)
	}
	filAddr, err := DelegatedAddress(account)
	if err != nil {
		return 0, err
	}
	return c.lotus.MpoolGetNonce(ctx, filAddr)
}

// DelegatedAddress returns the Filecoin address (f410 for ordinary
// accounts) that an Ethereum address maps to on the FEVM.
func DelegatedAddress(account common.Address) (address.Address, error) {
	filAddr, err := ethtypes.EthAddress(account).ToFilecoinAddress()
	if err != nil {
		return address.Undef, fmt.Errorf("failed to convert %s to a filecoin address: %w", account.Hex(), err)
	}
	return filAddr, nil
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if c.lotus == nil {
		return c.eth.SuggestGasPrice(ctx)
	}
	price, err := c.lotus.EthGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return toBig(price), nil
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if c.lotus == nil {
		return c.eth.SuggestGasTipCap(ctx)
	}
	tip, err := c.lotus.EthMaxPriorityFeePerGas(ctx)
	if err != nil {
		return nil, err
	}
	return toBig(tip), nil
}

func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if c.lotus == nil {
		return c.eth.EstimateGas(ctx, call)
	}
	gasParams, err := estimateGasParams(call)
	if err != nil {
		return 0, err
	}
	gas, err := c.lotus.EthEstimateGas(ctx, gasParams)
	if err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if c.lotus == nil {
		return c.eth.SendTransaction(ctx, tx)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	hash, err := c.lotus.EthSendRawTransaction(ctx, ethtypes.EthBytes(raw))
	if err != nil {
		return err
	}
	if common.Hash(hash) != tx.Hash() {
		return fmt.Errorf("node returned hash %s for transaction %s", hash, tx.Hash().Hex())
	}
	return nil
}

// TransactionReceipt returns ethereum.NotFound while the transaction is
// still pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if c.lotus == nil {
		return c.eth.TransactionReceipt(ctx, txHash)
	}
	receipt, err := c.lotus.EthGetTransactionReceipt(ctx, ethtypes.EthHash(txHash))
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, ethereum.NotFound
	}

	converted := &types.Receipt{
		Status:      uint64(receipt.Status),
		TxHash:      common.Hash(receipt.TransactionHash),
		BlockNumber: new(big.Int).SetUint64(uint64(receipt.BlockNumber)),
		GasUsed:     uint64(receipt.GasUsed),
	}
	if receipt.ContractAddress != nil {
		converted.ContractAddress = common.Address(*receipt.ContractAddress)
	}
	return converted, nil
}

// MessageCID returns the Filecoin message CID that carried an Ethereum
// transaction. It is cid.Undef on Ethereum networks.
func (c *Client) MessageCID(ctx context.Context, txHash common.Hash) (cid.Cid, error) {
	if c.lotus == nil {
		return cid.Undef, nil
	}
	hash := ethtypes.EthHash(txHash)
	msgCid, err := c.lotus.EthGetMessageCidByTransactionHash(ctx, &hash)
	if err != nil {
		return cid.Undef, fmt.Errorf("failed to look up message for %s: %w", txHash.Hex(), err)
	}
	if msgCid == nil {
		return cid.Undef, nil
	}
	return *msgCid, nil
}

func estimateGasParams(call ethereum.CallMsg) ([]byte, error) {
	from := ethtypes.EthAddress(call.From)
	ethCall := ethtypes.EthCall{
		From: &from,
		Data: call.Data,
	}
	if call.To != nil {
		to := ethtypes.EthAddress(*call.To)
		ethCall.To = &to
	}
	gasParams, err := json.Marshal(ethtypes.EthEstimateGasParams{Tx: ethCall})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gas params: %w", err)
	}
	return gasParams, nil
}

func toBig(v ethtypes.EthBigInt) *big.Int {
	b := filbig.Int(v)
	if b.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.Int)
}
