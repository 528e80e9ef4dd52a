// Package chain talks to the certificate registry contract over JSON-RPC.
// Read calls fail over between configured endpoints; transaction submission
// is never retried automatically, failures surface to the caller.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
)

var (
	ErrNoHealthyRPC      = errors.New("no healthy RPC endpoint available")
	ErrNoSigner          = errors.New("no signing key configured")
	ErrInsufficientFunds = errors.New("insufficient funds for transaction")
	ErrTxReverted        = errors.New("transaction reverted")
)

type rpcEndpoint struct {
	url        string
	healthy    bool
	errorCount int
	lastCheck  time.Time
}

type Client struct {
	chainID        *big.Int
	privateKey     *ecdsa.PrivateKey
	address        common.Address
	confirmTimeout time.Duration

	endpoints  []*rpcEndpoint
	currentIdx int
	mu         sync.RWMutex

	client *ethclient.Client
	logger *zap.Logger
}

func NewClient(cfg config.ChainConfig, logger *zap.Logger) (*Client, error) {
	if len(cfg.RPCURLs) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	var privateKey *ecdsa.PrivateKey
	var address common.Address
	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, err
		}
		privateKey = key
		address = crypto.PubkeyToAddress(key.PublicKey)
	}

	endpoints := make([]*rpcEndpoint, len(cfg.RPCURLs))
	for i, url := range cfg.RPCURLs {
		endpoints[i] = &rpcEndpoint{url: url, healthy: true}
	}

	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout == 0 {
		confirmTimeout = 90 * time.Second
	}

	c := &Client{
		chainID:        big.NewInt(cfg.ChainID),
		privateKey:     privateKey,
		address:        address,
		confirmTimeout: confirmTimeout,
		endpoints:      endpoints,
		logger:         logger.With(zap.String("client", "chain")),
	}

	if err := c.connect(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.endpoints {
		idx := (c.currentIdx + i) % len(c.endpoints)
		ep := c.endpoints[idx]

		client, err := ethclient.DialContext(ctx, ep.url)
		if err != nil {
			ep.healthy = false
			ep.errorCount++
			ep.lastCheck = time.Now()
			continue
		}

		if _, err := client.ChainID(ctx); err != nil {
			client.Close()
			ep.healthy = false
			ep.errorCount++
			ep.lastCheck = time.Now()
			continue
		}

		if c.client != nil {
			c.client.Close()
		}
		c.client = client
		c.currentIdx = idx
		ep.healthy = true
		c.logger.Info("Connected to RPC endpoint", zap.String("url", ep.url))
		return nil
	}

	return ErrNoHealthyRPC
}

func (c *Client) failover(ctx context.Context) error {
	c.mu.Lock()
	c.endpoints[c.currentIdx].healthy = false
	c.endpoints[c.currentIdx].errorCount++
	c.currentIdx = (c.currentIdx + 1) % len(c.endpoints)
	c.mu.Unlock()
	return c.connect(ctx)
}

func (c *Client) eth() *ethclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// CallContract executes a read-only call, failing over to the next endpoint
// once before giving up.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	result, err := c.eth().CallContract(ctx, msg, blockNumber)
	if err == nil {
		return result, nil
	}
	if ferr := c.failover(ctx); ferr != nil {
		return nil, err
	}
	return c.eth().CallContract(ctx, msg, blockNumber)
}

// Address returns the signer address, zero when no key is configured.
func (c *Client) Address() common.Address {
	return c.address
}

// SubmitAndWait signs and submits a transaction to the given contract and
// blocks until it is mined or the confirm timeout elapses. No automatic
// retry: a failed submission is returned to the caller as-is.
func (c *Client) SubmitAndWait(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	if c.privateKey == nil {
		return nil, ErrNoSigner
	}

	client := c.eth()

	nonce, err := client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, err
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.address,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, wrapSubmitError(err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return nil, err
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return nil, wrapSubmitError(err)
	}

	c.logger.Info("Transaction submitted",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()))

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, client, signedTx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, ErrTxReverted
	}
	return receipt, nil
}

func wrapSubmitError(err error) error {
	if strings.Contains(err.Error(), "insufficient funds") {
		return ErrInsufficientFunds
	}
	return err
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
	}
}
