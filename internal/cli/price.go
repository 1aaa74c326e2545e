package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/pricing"
)

// newPriceCmd builds a one-shot pricer for operator sanity checks.
func newPriceCmd(app *App) *cobra.Command {
	var (
		futures float64
		strike  float64
		years   float64
		vol     float64
		rate    float64
		optType string
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a single futures option and print its Greeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			var typ models.OptionType
			switch strings.ToUpper(optType) {
			case "CALL", "C":
				typ = models.OptionCall
			case "PUT", "P":
				typ = models.OptionPut
			default:
				return fmt.Errorf("invalid option type %q (want call or put)", optType)
			}

			kernel := pricing.NewKernel(pricing.StepsFromConfig(app.Config.Pricing))
			g := kernel.Greeks(futures, strike, years, vol, rate, typ)

			cmd.Printf("%s F=%.4f K=%.4f T=%.4f sigma=%.4f r=%.4f\n",
				typ, futures, strike, years, vol, rate)
			cmd.Printf("  price  %12.6f\n", g.Price)
			cmd.Printf("  delta  %12.6f\n", g.Delta)
			cmd.Printf("  gamma  %12.6f\n", g.Gamma)
			cmd.Printf("  vega   %12.6f\n", g.Vega)
			cmd.Printf("  theta  %12.6f\n", g.Theta)
			cmd.Printf("  vanna  %12.6f\n", g.Vanna)
			cmd.Printf("  vomma  %12.6f\n", g.Vomma)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&futures, "futures", "f", 82.5, "futures price")
	cmd.Flags().Float64VarP(&strike, "strike", "k", 82.5, "strike price")
	cmd.Flags().Float64VarP(&years, "expiry", "t", 0.25, "time to expiry in years")
	cmd.Flags().Float64VarP(&vol, "vol", "v", 0.25, "implied volatility")
	cmd.Flags().Float64VarP(&rate, "rate", "r", 0.05, "risk-free rate")
	cmd.Flags().StringVar(&optType, "type", "call", "option type: call or put")

	return cmd
}
