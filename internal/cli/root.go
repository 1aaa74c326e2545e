// Package cli provides the command-line interface for the simulation engine.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "optionsim",
		Short: "Commodity options trading simulation engine",
		Long: `optionsim runs the quantitative core of a multi-participant
derivatives-trading simulation: it prices futures options under Black-76,
fills orders against a synthetic market, aggregates portfolio risk and
converts risk-adjusted performance into a competitive score.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("optionsim %s\n", Version)
		},
	}
}
