package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equity_sim/internal/app"

	"github.com/spf13/cobra"
)

var activateSessions []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the price engine and the websocket gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		bootstrap := app.NewBootstrap()
		if err := bootstrap.Initialize(cfgFile); err != nil {
			slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
			return err
		}

		// Graceful Shutdown Context
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := bootstrap.Engine.Start(ctx); err != nil {
			return err
		}
		bootstrap.Gateway.Start()

		for _, s := range activateSessions {
			if err := bootstrap.Engine.ActivateSession(s); err != nil {
				slog.Warn("could not activate session", slog.String("session", s), slog.Any("error", err))
			}
		}

		slog.InfoContext(ctx, "✨ Equity Sim fully operational. Press Ctrl+C to exit.")

		<-ctx.Done()

		slog.Info("👋 Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bootstrap.Gateway.Shutdown(shutdownCtx); err != nil {
			slog.Warn("gateway shutdown error", slog.Any("error", err))
		}
		bootstrap.Engine.Stop()
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&activateSessions, "session", nil, "news sessions to activate at startup")
	rootCmd.AddCommand(runCmd)
}
