package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"grocerai/internal/config"
	"grocerai/internal/logging"
	"grocerai/internal/service"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	appConfig *config.AppConfig
	rootCmd   = &cobra.Command{
		Use:   "grocerai",
		Short: "Question answering over grocery transactions and store policies",
		Long: `grocerai answers natural-language questions about a grocery store's
transaction snapshot and policy document. Sales totals for today, yesterday
and the last 7 days are computed directly; everything else is answered from
retrieved passages, optionally rewritten by a language model.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.config/grocerai/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(serveCmd())
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	var err error
	if cfgFile != "" {
		appConfig, err = config.Load(cfgFile)
	} else {
		appConfig, _, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		appConfig.Logging.Level = logLevel
	}
	if logFormat != "" {
		appConfig.Logging.Format = logFormat
	}
	return logging.Setup(appConfig.Logging.Level, appConfig.Logging.Format)
}

// newAssistant builds the assistant and refreshes its indexes.
func newAssistant(ctx context.Context, progress service.Progress) (*service.Assistant, service.RefreshReport, error) {
	a, err := service.New(appConfig)
	if err != nil {
		return nil, service.RefreshReport{}, fmt.Errorf("failed to create assistant: %w", err)
	}
	report, err := a.Refresh(ctx, false, progress)
	if err != nil {
		a.Close()
		return nil, report, fmt.Errorf("failed to index corpora: %w", err)
	}
	return a, report, nil
}
