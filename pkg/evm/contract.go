package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Sentinel errors for contract reads
var (
	ErrDialFailed       = errors.New("failed to connect to JSON-RPC provider")
	ErrInvalidABI       = errors.New("invalid contract ABI")
	ErrPackFailed       = errors.New("failed to pack contract call")
	ErrCallFailed       = errors.New("contract call failed")
	ErrUnpackFailed     = errors.New("failed to unpack contract result")
	ErrUnexpectedOutput = errors.New("unexpected contract output")
)

// DefaultCallTimeout bounds a single eth_call attempt
const DefaultCallTimeout = 10 * time.Second

// Caller executes read-only message calls. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to a JSON-RPC endpoint (http, ws or ipc)
func Dial(ctx context.Context, rawURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDialFailed, err)
	}
	return client, nil
}

// Option configures a contract binding
// ------------------------------------
type Option func(*contract)

// WithRetryPolicy overrides the default retry budget
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *contract) { c.retry = p }
}

// WithCallTimeout bounds each eth_call attempt
func WithCallTimeout(d time.Duration) Option {
	return func(c *contract) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics records call counts and latency
func WithMetrics(m *Metrics) Option {
	return func(c *contract) { c.metrics = m }
}

// contract packs, executes and unpacks calls against one deployed address
type contract struct {
	address common.Address
	abi     abi.ABI
	caller  Caller
	retry   RetryPolicy
	timeout time.Duration
	metrics *Metrics
}

func newContract(address common.Address, abiJSON string, caller Caller, opts ...Option) (*contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidABI, err)
	}

	c := &contract{
		address: address,
		abi:     parsed,
		caller:  caller,
		retry:   DefaultRetryPolicy(),
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// call runs method at the latest block and returns its decoded outputs
func (c *contract) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPackFailed, method, err)
	}

	msg := ethereum.CallMsg{To: &c.address, Data: data}

	started := time.Now()
	var out []byte
	err = c.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var callErr error
		out, callErr = c.caller.CallContract(callCtx, msg, nil)
		return callErr
	})
	c.metrics.observe(method, started, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, method, err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnpackFailed, method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrUnexpectedOutput, method, len(values))
	}
	return values, nil
}
