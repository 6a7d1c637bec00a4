package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/cern-its/pasta-inspector/internal/config"
)

func newFilterLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter-link <link_id> [file]",
		Short: "Re-emit only the CDP chunks belonging to one link_id",
		Long:  "Scans the stream and writes every RDH+payload chunk for the given link_id back out unchanged, discarding the rest (spec §6.2 link_to_filter).",
		Example: heredoc.Doc(`
			$ pasta-inspector filter-link 3 run.raw --output link3.raw
			$ cat run.raw | pasta-inspector filter-link 3 > link3.raw
		`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			linkID, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid link_id %q: %w", args[0], err)
			}
			link := uint8(linkID)

			cfg, err := resolveConfig(cmd, config.ModeFilter)
			if err != nil {
				return err
			}
			cfg.LinkToFilter = &link
			return runPipeline(cfg, args[1:])
		},
	}

	return cmd
}
