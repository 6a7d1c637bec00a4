// Command pasta-inspector is the CLI front end for the three run modes of
// spec §6 (check, view, filter-link), built with spf13/cobra the way
// wandb-wandb's cmd/ctrlc/root.NewRootCmd builds its command tree, while
// process lifecycle (signal handling, timed forced exit) follows the
// teacher's cmd/rtmp-server/main.go shape.
package main

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pasta-inspector <command> [flags] [file]",
		Short: "Validate ALICE-style CRU/GBT readout payloads",
		Long: heredoc.Doc(`
			pasta-inspector scans a GBT-framed readout data file (or stdin),
			replays each link's RDH running fields and CDP word sequence through
			the same checks the online data-quality monitor runs offline, and
			reports, dumps, or filters what it finds.
		`),
		Example: heredoc.Doc(`
			$ pasta-inspector check run.raw
			$ pasta-inspector view --dump-rdhs run.raw
			$ pasta-inspector filter-link 3 run.raw --output link3.raw
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode = 0
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file overlay")
	cmd.PersistentFlags().String("log-level", "", "override PASTA_LOG_LEVEL (debug|info|warn|error)")
	cmd.PersistentFlags().String("output", "", "write output to this path instead of stdout")

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newFilterLinkCmd())

	return cmd
}
