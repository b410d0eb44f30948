// Package evm binds the perp market contract on an EVM chain.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/xaut-perp/internal/metrics"
	"github.com/rovshanmuradov/xaut-perp/internal/position"
	"github.com/rovshanmuradov/xaut-perp/internal/trade"
)

const (
	DefaultReadRetries = 3
	DefaultReadTimeout = 10 * time.Second
	maxReadElapsed     = 20 * time.Second
)

// Signer produces transaction options for the connected account.
type Signer interface {
	Address() common.Address
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

// boundContract is the part of *bind.BoundContract the client uses.
type boundContract interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*ethtypes.Transaction, error)
}

// Config describes the contract endpoint.
type Config struct {
	RPCURL      string
	ChainID     int64
	Address     string
	ReadRetries uint
	ReadTimeout time.Duration
}

// PerpClient reads and mutates positions on the perp contract.
type PerpClient struct {
	contract    boundContract
	address     common.Address
	chainID     *big.Int
	readRetries uint
	readTimeout time.Duration
	logger      *zap.Logger
	metrics     *metrics.Collector
	closeFn     func()

	newBackOff func() backoff.BackOff
}

// Dial connects to the RPC node and binds the contract.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger, collector *metrics.Collector) (*PerpClient, error) {
	if !common.IsHexAddress(cfg.Address) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.Address)
	}

	parsed, err := ParsePerpABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	address := common.HexToAddress(cfg.Address)
	contract := bind.NewBoundContract(address, parsed, eth, eth, eth)

	c := newPerpClient(contract, address, cfg, logger, collector)
	c.closeFn = eth.Close

	c.logger.Info("Connected to perp contract",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", address.Hex()),
		zap.Int64("chain_id", cfg.ChainID))

	return c, nil
}

func newPerpClient(contract boundContract, address common.Address, cfg Config,
	logger *zap.Logger, collector *metrics.Collector) *PerpClient {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return &PerpClient{
		contract:    contract,
		address:     address,
		chainID:     big.NewInt(cfg.ChainID),
		readRetries: cfg.ReadRetries,
		readTimeout: cfg.ReadTimeout,
		logger:      logger.Named("perp_contract"),
		metrics:     collector,
		newBackOff:  defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// Address returns the bound contract address.
func (c *PerpClient) Address() common.Address {
	return c.address
}

// Position reads positions(account). Transient node errors are retried
// with exponential backoff; malformed results are not.
func (c *PerpClient) Position(ctx context.Context, account common.Address) (*position.Raw, error) {
	start := time.Now()

	operation := func() (*position.Raw, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
		defer cancel()

		var out []interface{}
		opts := &bind.CallOpts{Context: callCtx, From: account}
		if err := c.contract.Call(opts, &out, methodPositions, account); err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}

		raw, err := decodePosition(out)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return raw, nil
	}

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.readRetries+1),
		backoff.WithMaxElapsedTime(maxReadElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Retrying positions read",
				zap.String("account", account.Hex()),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)

	c.metrics.RecordContractRead(methodPositions, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: positions(%s): %w", ErrContractRead, account.Hex(), err)
	}
	return raw, nil
}

func decodePosition(out []interface{}) (*position.Raw, error) {
	if len(out) != 3 {
		return nil, fmt.Errorf("positions returned %d values, want 3", len(out))
	}

	fields := make([]*big.Int, len(out))
	for i, v := range out {
		n, ok := v.(*big.Int)
		if !ok || n == nil {
			return nil, fmt.Errorf("positions field %d has type %T", i, v)
		}
		fields[i] = n
	}

	return &position.Raw{
		Size:       fields[0],
		EntryPrice: fields[1],
		Margin:     fields[2],
	}, nil
}

// OpenPosition submits openPosition with the margin attached as value.
// It returns once the node accepts the transaction; writes are never retried.
func (c *PerpClient) OpenPosition(ctx context.Context, signer Signer, order trade.OpenOrder) (common.Hash, error) {
	opts, err := c.transactOpts(ctx, signer)
	if err != nil {
		return common.Hash{}, err
	}
	opts.Value = order.Value()

	tx, err := c.contract.Transact(opts, methodOpenPosition, order.IsLong, order.SizeDelta, order.MarginDelta)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: openPosition: %w", ErrContractWrite, err)
	}

	c.logger.Info("openPosition submitted",
		zap.String("tx", tx.Hash().Hex()),
		zap.Bool("is_long", order.IsLong),
		zap.String("size_delta", order.SizeDelta.String()),
		zap.String("margin_delta", order.MarginDelta.String()))

	return tx.Hash(), nil
}

// ClosePosition submits closePosition. Writes are never retried.
func (c *PerpClient) ClosePosition(ctx context.Context, signer Signer, order trade.CloseOrder) (common.Hash, error) {
	opts, err := c.transactOpts(ctx, signer)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := c.contract.Transact(opts, methodClosePosition, order.CloseSizeDelta)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: closePosition: %w", ErrContractWrite, err)
	}

	c.logger.Info("closePosition submitted",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("close_size", order.CloseSizeDelta.String()),
		zap.Int("percent", order.Percent))

	return tx.Hash(), nil
}

func (c *PerpClient) transactOpts(ctx context.Context, signer Signer) (*bind.TransactOpts, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: %w", ErrContractWrite, ErrNoSigner)
	}
	opts, err := signer.TransactOpts(ctx, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: signer: %w", ErrContractWrite, err)
	}
	opts.Context = ctx
	return opts, nil
}

// Close releases the RPC connection.
func (c *PerpClient) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// IsReadFailure reports whether err came from a positions read.
func IsReadFailure(err error) bool {
	return errors.Is(err, ErrContractRead)
}
