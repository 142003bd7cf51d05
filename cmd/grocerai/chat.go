package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"grocerai/internal/config"
	"grocerai/internal/logging"
	"grocerai/internal/tui"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive terminal assistant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, report, err := newAssistant(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			// The terminal belongs to the UI from here on.
			closer, path := redirectChatLogs(appConfig)
			defer closer.Close()
			if path != "" {
				slog.Info("chat session started", "log_file", path)
			}

			if appConfig.Corpora.Watch {
				go func() {
					if err := a.Watch(ctx, 500*time.Millisecond); err != nil && ctx.Err() == nil {
						slog.Error("corpus watcher stopped", "error", err)
					}
				}()
			}

			_, err = tea.NewProgram(tui.New(ctx, a, report.Summary), tea.WithContext(ctx)).Run()
			return err
		},
	}
	return cmd
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// redirectChatLogs sends logs to chat.log in the index directory, or
// discards them when that file cannot be opened.
func redirectChatLogs(cfg *config.AppConfig) (io.Closer, string) {
	path := filepath.Join(cfg.Index.Dir, "chat.log")
	closer, err := logging.SetupFile(path, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		_ = logging.SetupWriter(io.Discard, cfg.Logging.Level, cfg.Logging.Format)
		return nopCloser{}, ""
	}
	return closer, path
}
