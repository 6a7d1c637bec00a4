package main

import (
	"github.com/spf13/cobra"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/cern-its/pasta-inspector/internal/config"
)

func newCheckCmd() *cobra.Command {
	var sanity bool

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a readout stream without printing per-chunk output",
		Long:  "Runs the RDH running checks and the CDP word-sequence FSM over every link, logging each error as it is found (repeats are suppressed after a few) and printing a final summary.",
		Example: heredoc.Doc(`
			$ pasta-inspector check run.raw
			$ pasta-inspector check --sanity run.raw
			$ cat run.raw | pasta-inspector check
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, config.ModeCheck)
			if err != nil {
				return err
			}
			cfg.SanityChecks = sanity
			return runPipeline(cfg, args)
		},
	}

	cmd.Flags().BoolVar(&sanity, "sanity", false, "also run the per-RDH sanity predicates")
	return cmd
}
