package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/koscakluka/ema-voice/internal/config"
	"github.com/koscakluka/ema-voice/internal/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

var (
	configPath        string
	cfg               *config.Config
	shutdownTelemetry func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "ema-voice",
	Short: "Talk to an assistant with your voice",
	Long: `ema-voice listens through the default microphone, sends what you say to
a language model and speaks the reply.

Speech synthesis tries the configured network providers in order and falls
back to a local espeak voice when all of them fail.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Options{
			Enabled:     cfg.Telemetry.Stdout,
			ServiceName: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return err
		}
		shutdownTelemetry = shutdown
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./ema-voice.yaml)")

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(voicesCmd)
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)

	if shutdownTelemetry != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		err = errors.Join(err, shutdownTelemetry(flushCtx))
	}
	return err
}
