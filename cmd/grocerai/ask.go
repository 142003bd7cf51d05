package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"grocerai/internal/service"
)

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := newAssistant(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			question := strings.Join(args, " ")
			res, err := a.Ask(cmd.Context(), question)
			out := cmd.OutOrStdout()
			if err != nil {
				fmt.Fprintln(out, service.EmptyQueryWarning)
				return nil
			}
			fmt.Fprintln(out, res.Text)
			fmt.Fprintf(out, "\nmode: %s  route: %s\n", res.Mode, res.Route)
			for i, p := range res.Passages {
				fmt.Fprintf(out, "\n[%d] %s\n%s\n", i+1, p.SourceID, p.Content)
			}
			return nil
		},
	}
	return cmd
}
