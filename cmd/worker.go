/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/talent-hunters/bookportal/internal/mq"
	"go.uber.org/zap"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes ledger events from the message queue",
	Long: `Subscribes to the ledger events channel and logs every order,
sold-out interest, request and donation the API records. Usage:

	MQ_BACKEND=rabbitmq bookportal worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadLogger()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		events, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open message queue: %w", err)
		}
		if events == nil {
			return errors.New("MQ_BACKEND is not set")
		}
		defer func() {
			if err := events.Close(); err != nil {
				log.Warn("close message queue", zap.Error(err))
			}
		}()

		log.Info("consuming ledger events", zap.String("channel", cfg.Ledger.EventsChannel))
		err = events.Subscribe(ctx, cfg.Ledger.EventsChannel, mq.LedgerEventLogger(log))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
