package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"taskrecover/pkg/checkpoint"
	"taskrecover/pkg/logger"
	"taskrecover/pkg/ui"
)

func newResetCmd(opts *globalOptions) *cobra.Command {
	var workers []int

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete checkpoints so the next run starts fresh",
		Example: `  # Forget every worker's progress
  taskrecover reset

  # Only reset workers 0 and 2
  taskrecover reset --worker 0 --worker 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := make(map[string]interface{})
			collectStoreFlags(cmd, flags)

			cfg, err := loadConfig(cmd, opts, flags)
			if err != nil {
				return err
			}
			if err := initLogging(cfg, opts); err != nil {
				return err
			}

			store, err := checkpoint.Open(cfg.Checkpoint, logger.GetLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			targets := workers
			if len(targets) == 0 {
				records, err := store.List()
				if err != nil {
					return err
				}
				for id := range records {
					targets = append(targets, id)
				}
				sort.Ints(targets)
			}

			if len(targets) == 0 {
				ui.PrintWarning("No checkpoints to reset")
				return nil
			}

			for _, id := range targets {
				if err := store.Delete(id); err != nil {
					return err
				}
			}
			ui.PrintSuccess(fmt.Sprintf("Reset %d checkpoint(s)", len(targets)))
			return nil
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().IntSliceVarP(&workers, "worker", "w", nil, "worker id to reset (repeatable, default all)")
	return cmd
}
