/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/talent-hunters/bookportal/config"
	"github.com/talent-hunters/bookportal/internal/logging"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bookportal",
	Short: "Backend of the Talent Hunters book exchange portal",
	Long: `Backend of the Talent Hunters book exchange portal.

It serves the REST API, runs database migrations and consumes ledger
events. Settings are read from the environment (and .env when ENV=dev).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadLogger reads the configuration and builds the process logger.
func loadLogger() (config.Config, *zap.Logger, error) {
	cfg := config.LoadConfig()
	log, err := logging.New(cfg.Log)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
