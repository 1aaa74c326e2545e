package main

import (
	"fmt"
	"os"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/cli"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/logging"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithConfig(cfg.Logging)

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
