// Package command implements the delegctl subcommands.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/screwyprof/daodelegate/capability"
	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/pkg/evm"
	"github.com/screwyprof/daodelegate/pkg/logger"
)

// Sentinel errors
var (
	ErrNoTokenAddress    = errors.New("token address is required (--token or TOKEN_ADDRESS)")
	ErrNoAccessControl   = errors.New("access control address is required (--access-control or ACCESS_CONTROL_ADDRESS)")
	ErrUnknownOutput     = errors.New("unknown output format")
	ErrDelegationBlocked = errors.New("delegation would be blocked")
)

// Dialer opens a contract caller for rawURL. The returned func releases it.
type Dialer func(ctx context.Context, rawURL string) (evm.Caller, func(), error)

// DialRPC dials a JSON-RPC provider
func DialRPC(ctx context.Context, rawURL string) (evm.Caller, func(), error) {
	client, err := evm.Dial(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// Config holds the flag defaults read from the environment
type Config struct {
	RPCURL               string        `env:"RPC_URL" envDefault:"http://localhost:8545"`
	TokenAddress         string        `env:"TOKEN_ADDRESS"`
	AccessControlAddress string        `env:"ACCESS_CONTROL_ADDRESS"`
	MaxDepth             int           `env:"DELEGATION_MAX_DEPTH" envDefault:"10"`
	HardLimit            int           `env:"DELEGATION_HARD_LIMIT" envDefault:"8"`
	Timeout              time.Duration `env:"DELEGCTL_TIMEOUT" envDefault:"30s"`
	RPCRetries           uint64        `env:"RPC_RETRIES" envDefault:"2"`
	Output               string        `env:"DELEGCTL_OUTPUT" envDefault:"text"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"warn"`
}

// LoadConfig reads flag defaults from the process environment
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// root carries the parsed persistent flags shared by every subcommand
type root struct {
	cfg  Config
	dial Dialer
	log  *slog.Logger
}

// NewRootCommand builds the delegctl command tree
func NewRootCommand(cfg Config, dial Dialer) *cobra.Command {
	r := &root{cfg: cfg, dial: dial}

	cmd := &cobra.Command{
		Use:   "delegctl [command] [flags]",
		Short: "Inspect DAO vote delegation chains and voting power",
		Long: `delegctl queries the governance token contract directly and reports delegation
chains, preflight checks for new delegations, effective voting power and role-gated capabilities.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if r.cfg.Output != outputText && r.cfg.Output != outputJSON {
				return fmt.Errorf("%w: %q", ErrUnknownOutput, r.cfg.Output)
			}
			r.log = logger.NewFromConfig(logger.Config{
				LogLevel:         r.cfg.LogLevel,
				LogHumanFriendly: true,
				Output:           cmd.ErrOrStderr(),
				Service:          "delegctl",
			})
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&r.cfg.RPCURL, "rpc-url", cfg.RPCURL, "JSON-RPC provider URL")
	flags.StringVar(&r.cfg.TokenAddress, "token", cfg.TokenAddress, "governance token contract address")
	flags.StringVar(&r.cfg.AccessControlAddress, "access-control", cfg.AccessControlAddress, "access control contract address")
	flags.IntVar(&r.cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum hops to follow")
	flags.IntVar(&r.cfg.HardLimit, "hard-limit", cfg.HardLimit, "depth at which a delegation is blocked")
	flags.DurationVar(&r.cfg.Timeout, "timeout", cfg.Timeout, "overall deadline for the query")
	flags.Uint64Var(&r.cfg.RPCRetries, "retries", cfg.RPCRetries, "retries per failed contract read")
	flags.StringVarP(&r.cfg.Output, "output", "o", cfg.Output, "output format: text or json")
	flags.StringVar(&r.cfg.LogLevel, "log-level", cfg.LogLevel, "log level for diagnostics on stderr")

	cmd.AddCommand(
		newChainCommand(r),
		newCheckCommand(r),
		newPowerCommand(r),
		newCapabilitiesCommand(r),
	)
	return cmd
}

// withAggregator dials the provider, binds the token and runs fn under the query deadline
func (r *root) withAggregator(ctx context.Context, fn func(context.Context, *delegation.Aggregator) error) error {
	if r.cfg.TokenAddress == "" {
		return ErrNoTokenAddress
	}
	tokenAddr, err := delegation.ParseAddress(r.cfg.TokenAddress)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	return r.withCaller(ctx, func(ctx context.Context, caller evm.Caller) error {
		token, err := evm.NewToken(tokenAddr, caller, r.callOptions()...)
		if err != nil {
			return err
		}
		return fn(ctx, delegation.NewAggregator(token,
			delegation.WithMaxDepth(r.cfg.MaxDepth),
			delegation.WithHardLimit(r.cfg.HardLimit),
		))
	})
}

// withResolver dials the provider, binds the access control contract and runs fn
func (r *root) withResolver(ctx context.Context, fn func(context.Context, *capability.Resolver) error) error {
	if r.cfg.AccessControlAddress == "" {
		return ErrNoAccessControl
	}
	acAddr, err := delegation.ParseAddress(r.cfg.AccessControlAddress)
	if err != nil {
		return fmt.Errorf("access control: %w", err)
	}

	return r.withCaller(ctx, func(ctx context.Context, caller evm.Caller) error {
		roles, err := evm.NewAccessControl(acAddr, caller, r.callOptions()...)
		if err != nil {
			return err
		}
		return fn(ctx, capability.NewResolver(roles))
	})
}

func (r *root) withCaller(ctx context.Context, fn func(context.Context, evm.Caller) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	r.log.DebugContext(ctx, "Dialing JSON-RPC provider", slog.Duration("timeout", r.cfg.Timeout))
	caller, release, err := r.dial(ctx, r.cfg.RPCURL)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx, caller)
}

func (r *root) callOptions() []evm.Option {
	policy := evm.DefaultRetryPolicy()
	policy.MaxRetries = r.cfg.RPCRetries
	return []evm.Option{evm.WithRetryPolicy(policy)}
}

func parseArg(name, raw string) (common.Address, error) {
	addr, err := delegation.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}
