package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrNoSigner is returned for write calls when the client was opened
// without a signing key.
var ErrNoSigner = errors.New("no signing key configured")

// Options tunes write submission and receipt polling.
type Options struct {
	PrivateKey      string
	ReceiptInterval time.Duration
	ReceiptTimeout  time.Duration
}

// Client wraps go-ethereum RPC and provides contract read/write helpers.
// Reads are safe for concurrent use; writes are serialized so nonces are
// assigned in submission order.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int

	receiptInterval time.Duration
	receiptTimeout  time.Duration

	writeMu sync.Mutex
}

// NewClient creates a new chain client from the RPC URL. The signing key is
// optional; without it the client is read-only.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	ethClient := ethclient.NewClient(rpcClient)

	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	client := &Client{
		rpcClient:       rpcClient,
		ethClient:       ethClient,
		chainID:         chainID,
		receiptInterval: opts.ReceiptInterval,
		receiptTimeout:  opts.ReceiptTimeout,
	}
	if client.receiptInterval <= 0 {
		client.receiptInterval = time.Second
	}
	if client.receiptTimeout <= 0 {
		client.receiptTimeout = 3 * time.Minute
	}

	if opts.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
		if err != nil {
			rpcClient.Close()
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		client.key = key
		client.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return client, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID observed at dial time.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Account returns the signing account address, zero when read-only.
func (c *Client) Account() common.Address {
	return c.from
}

// ReadContract performs an eth_call against a contract method and returns
// the unpacked values.
func (c *Client) ReadContract(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := c.ethClient.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// WriteContract signs and broadcasts a contract call, returning the
// transaction hash without waiting for confirmation.
func (c *Client) WriteContract(ctx context.Context, to common.Address, parsed abi.ABI, method string, value *big.Int, args ...interface{}) (common.Hash, error) {
	if c.key == nil {
		return common.Hash{}, ErrNoSigner
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	nonce, err := c.ethClient.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := c.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas %s: %w", method, err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := c.ethClient.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send %s: %w", method, err)
	}
	return signed.Hash(), nil
}

// WaitForReceipt polls for the transaction receipt until it lands or the
// receipt timeout elapses. Returns the receipt status.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (uint64, error) {
	deadline := time.Now().Add(c.receiptTimeout)

	for {
		receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt.Status, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return 0, fmt.Errorf("get receipt %s: %w", hash.Hex(), err)
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("receipt %s not found before timeout", hash.Hex())
		}

		timer := time.NewTimer(c.receiptInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
}
