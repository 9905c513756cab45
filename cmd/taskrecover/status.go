package main

import (
	"github.com/spf13/cobra"
	"taskrecover/pkg/checkpoint"
	"taskrecover/pkg/logger"
	"taskrecover/pkg/ui"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted progress of every worker",
		Long: `Print one row per checkpoint: worker id, task_count, progress towards the
threshold and any additional fields stored in the record.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := make(map[string]interface{})
			collectStoreFlags(cmd, flags)
			if cmd.Flags().Changed("threshold") {
				v, _ := cmd.Flags().GetInt("threshold")
				flags["threshold"] = v
			}

			cfg, err := loadConfig(cmd, opts, flags)
			if err != nil {
				return err
			}

			store, err := checkpoint.Open(cfg.Checkpoint, logger.NewNopLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List()
			if err != nil {
				return err
			}

			ui.Print(ui.RenderStatusTable(records, cfg.Workers.Threshold))
			return nil
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().Int("threshold", 10, "task threshold used to compute progress")
	return cmd
}
