package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"
)

// newQuoteCmd prices a trade against explicit reserves without a server.
func newQuoteCmd() *cobra.Command {
	var reserveIn, reserveOut, fee, amountIn, amountOut uint64

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against given reserves",
		Example: `  amm quote --reserve-in 50000000000 --reserve-out 50000000000 --amount-in 10000000000
  amm quote --reserve-in 1000 --reserve-out 1000 --fee 0 --amount-out 90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exactIn := cmd.Flags().Changed("amount-in")
			exactOut := cmd.Flags().Changed("amount-out")
			if exactIn == exactOut {
				return errors.New("exactly one of --amount-in or --amount-out is required")
			}

			out := cmd.OutOrStdout()
			if exactIn {
				got, err := amm.GetAmountOut(amountIn, reserveIn, reserveOut, fee)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "amount_in=%d amount_out=%d fee_bps=%d\n", amountIn, got, fee)
				return nil
			}
			got, err := amm.GetAmountIn(amountOut, reserveIn, reserveOut, fee)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "amount_in=%d amount_out=%d fee_bps=%d\n", got, amountOut, fee)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&reserveIn, "reserve-in", 0, "reserve of the input token")
	cmd.Flags().Uint64Var(&reserveOut, "reserve-out", 0, "reserve of the output token")
	cmd.Flags().Uint64Var(&fee, "fee", 30, "fee in basis points")
	cmd.Flags().Uint64Var(&amountIn, "amount-in", 0, "exact input amount")
	cmd.Flags().Uint64Var(&amountOut, "amount-out", 0, "exact output amount")
	_ = cmd.MarkFlagRequired("reserve-in")
	_ = cmd.MarkFlagRequired("reserve-out")
	return cmd
}

func init() {
	rootCmd.AddCommand(newQuoteCmd())
}
