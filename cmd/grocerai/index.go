package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"grocerai/internal/service"
)

func indexCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the transactions and policies indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := service.New(appConfig)
			if err != nil {
				return fmt.Errorf("failed to create assistant: %w", err)
			}
			defer a.Close()

			bars := newProgressBars(cmd)
			report, err := a.Refresh(cmd.Context(), force, bars.update)
			bars.finish()
			if err != nil {
				return fmt.Errorf("failed to index corpora: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "transactions: %s (%d rows, %d passages%s)\n",
				report.TransactionsPath, report.TransactionRows, report.TransactionPassages, reusedNote(report.TransactionsReused))
			fmt.Fprintf(out, "policies:     %s (%d passages%s)\n",
				report.PoliciesPath, report.PolicyPassages, reusedNote(report.PoliciesReused))
			fmt.Fprintf(out, "took %s\n", report.Duration.Round(time.Millisecond))
			if report.Summary != "" {
				fmt.Fprintf(out, "\nPolicy summary:\n%s\n", report.Summary)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even when the stored fingerprint matches")
	return cmd
}

func reusedNote(reused bool) string {
	if reused {
		return ", reused"
	}
	return ""
}

type progressBars struct {
	cmd  *cobra.Command
	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

func newProgressBars(cmd *cobra.Command) *progressBars {
	return &progressBars{cmd: cmd, bars: make(map[string]*progressbar.ProgressBar)}
}

func (p *progressBars) update(corpus string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bar, ok := p.bars[corpus]
	if !ok {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.cmd.ErrOrStderr()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]Embedding %s...[reset]", corpus)),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.cmd.ErrOrStderr())
			}),
		)
		p.bars[corpus] = bar
	}
	_ = bar.Set(done)
}

func (p *progressBars) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bar := range p.bars {
		if !bar.IsFinished() {
			_ = bar.Finish()
		}
	}
}
