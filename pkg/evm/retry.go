package evm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ethereum/go-ethereum/rpc"
)

// Default retry configuration values
const (
	DefaultMaxRetries    = uint64(2)
	DefaultRetryInterval = 250 * time.Millisecond
)

// RetryPolicy bounds how often a failed read is repeated. Reads are never retried
// indefinitely: the caller gets the last error once the budget is spent.
type RetryPolicy struct {
	MaxRetries uint64
	Interval   time.Duration
}

// DefaultRetryPolicy retries twice with a constant 250ms pause
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Interval:   DefaultRetryInterval,
	}
}

func (p RetryPolicy) do(ctx context.Context, op func(context.Context) error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), p.MaxRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || isRevert(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// isRevert reports a contract-level rejection, which a retry cannot fix.
// Nodes attach the revert payload as JSON-RPC error data; the message check
// covers providers that only send the text.
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
