package main

import (
	"github.com/spf13/cobra"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/cern-its/pasta-inspector/internal/config"
)

func newViewCmd() *cobra.Command {
	var dumpRDHs bool

	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Print a human-readable line per RDH (and optionally per word)",
		Long:  "Walks the stream like check, but prints one summary line per RDH instead of staying silent, optionally dumping every GBT word beneath it.",
		Example: heredoc.Doc(`
			$ pasta-inspector view run.raw
			$ pasta-inspector view --dump-rdhs run.raw | less
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, config.ModeView)
			if err != nil {
				return err
			}
			cfg.DumpRDHs = dumpRDHs
			return runPipeline(cfg, args)
		},
	}

	cmd.Flags().BoolVar(&dumpRDHs, "dump-rdhs", false, "also print every GBT word under each RDH")
	return cmd
}
