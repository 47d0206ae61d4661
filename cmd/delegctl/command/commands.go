package command

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/screwyprof/daodelegate/capability"
	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/web/handler/bind"
)

func newChainCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <address>",
		Short: "Show the delegation chain starting at an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseArg("address", args[0])
			if err != nil {
				return err
			}

			return r.withAggregator(cmd.Context(), func(ctx context.Context, agg *delegation.Aggregator) error {
				chain := agg.Chain(ctx, addr)
				if err := ctx.Err(); err != nil {
					return err
				}
				resp := bind.ChainResponse(chain, agg.Classify(chain))
				return r.render(cmd.OutOrStdout(), resp, chainText(resp))
			})
		},
	}
}

func newCheckCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "check <from> [to]",
		Short: "Grade a delegation before it is submitted",
		Long: `Grade the delegation from -> to against the depth limit and cycle rule.
Omitting to checks an un-delegation. The command exits non-zero when the delegation is blocked.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseArg("from", args[0])
			if err != nil {
				return err
			}
			var to common.Address
			if len(args) == 2 {
				if to, err = parseArg("to", args[1]); err != nil {
					return err
				}
			}

			return r.withAggregator(cmd.Context(), func(ctx context.Context, agg *delegation.Aggregator) error {
				assessment, err := agg.Check(ctx, from, to)
				if err != nil {
					return err
				}
				resp := bind.CheckResponse(assessment)
				if err := r.render(cmd.OutOrStdout(), resp, checkText(resp)); err != nil {
					return err
				}
				if assessment.Blocked() {
					return ErrDelegationBlocked
				}
				return nil
			})
		},
	}
}

func newPowerCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "power <address>",
		Short: "Compute the effective voting power of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseArg("address", args[0])
			if err != nil {
				return err
			}

			return r.withAggregator(cmd.Context(), func(ctx context.Context, agg *delegation.Aggregator) error {
				power, err := agg.EffectivePower(ctx, addr)
				if err != nil {
					return err
				}
				resp := bind.PowerResponse(cache.NewEntry(power, time.Now().UTC(), 0))
				return r.render(cmd.OutOrStdout(), resp, powerText(resp))
			})
		},
	}
}

func newCapabilitiesCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities <address>",
		Short: "List the role-gated actions an account may take",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseArg("address", args[0])
			if err != nil {
				return err
			}

			return r.withResolver(cmd.Context(), func(ctx context.Context, resolver *capability.Resolver) error {
				set, err := resolver.Resolve(ctx, addr)
				if err != nil {
					return err
				}
				resp := bind.CapabilitiesResponse(addr, cache.NewEntry(set, time.Now().UTC(), 0))
				return r.render(cmd.OutOrStdout(), resp, capabilitiesText(resp))
			})
		},
	}
}
