package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func newUsageCmd(global *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Print token usage and cost per session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, "stderr")
			if err != nil {
				return err
			}
			defer logger.Close()

			store, err := openStore(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.GlobalCostSummary(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := sonic.ConfigStd.MarshalIndent(summary, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tRECORDS\tINPUT\tOUTPUT\tCOST (USD)")
			for _, s := range summary.PerSession {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.4f\n",
					s.SessionID, s.RecordCount, s.TotalInputTokens, s.TotalOutputTokens, s.TotalCostUSD)
			}
			fmt.Fprintf(tw, "TOTAL (%d sessions)\t\t%d\t%d\t%.4f\n",
				summary.SessionCount, summary.TotalInputTokens, summary.TotalOutputTokens, summary.TotalCostUSD)
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}
