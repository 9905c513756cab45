package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"taskrecover/internal/driver"
	"taskrecover/internal/metrics"
	"taskrecover/internal/worker"
	"taskrecover/pkg/checkpoint"
	"taskrecover/pkg/logger"
	"taskrecover/pkg/ui"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the worker simulation (default command)",
		Long: `Start the worker pool. Each worker loads its checkpoint, processes tasks one at a
time and saves after every task until it reaches the threshold. Injected crashes
send the worker back to its last checkpoint.

Interrupting the run (Ctrl+C) stops the workers; completed tasks stay saved and the
next run resumes from them.`,
		Example: `  # Default simulation: 3 workers, 10 tasks, 20% crash chance, 1s per task
  taskrecover

  # Fast reproducible run with the bolt backend
  taskrecover run --work-delay 0 --seed 42 --backend bolt

  # Expose Prometheus metrics while running
  taskrecover run --metrics-addr :9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("workers", 3, "number of workers")
	f.Int("threshold", 10, "tasks each worker must complete")
	f.Float64("failure-probability", 0.2, "chance of a crash before each task, in [0, 1)")
	f.Duration("work-delay", time.Second, "simulated duration of one task")
	f.Int64("seed", 0, "random seed; 0 picks a time based seed")
	f.String("lock-mode", "", "save lock: worker or global (default \"worker\")")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	addStoreFlags(cmd)
}

// collectRunFlags returns the flags the user set, keyed the way config.MergeCommandLineFlags expects
func collectRunFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	f := cmd.Flags()

	if f.Changed("workers") {
		v, _ := f.GetInt("workers")
		flags["workers"] = v
	}
	if f.Changed("threshold") {
		v, _ := f.GetInt("threshold")
		flags["threshold"] = v
	}
	if f.Changed("failure-probability") {
		v, _ := f.GetFloat64("failure-probability")
		flags["failure-probability"] = v
	}
	if f.Changed("work-delay") {
		v, _ := f.GetDuration("work-delay")
		flags["work-delay"] = v
	}
	if f.Changed("seed") {
		v, _ := f.GetInt64("seed")
		flags["seed"] = v
	}
	for _, name := range []string{"lock-mode", "metrics-addr"} {
		if f.Changed(name) {
			v, _ := f.GetString(name)
			flags[name] = v
		}
	}
	collectStoreFlags(cmd, flags)

	return flags
}

func runSimulation(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := loadConfig(cmd, opts, collectRunFlags(cmd))
	if err != nil {
		return err
	}

	if err := initLogging(cfg, opts); err != nil {
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("taskrecover starting")

	store, err := checkpoint.Open(cfg.Checkpoint, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.Metrics.Address, log); err != nil {
				log.WithError(err).Error("Metrics endpoint failed")
			}
		}()
	}

	ui.PrintBanner()
	ui.PrintInfo("Workers", strconv.Itoa(cfg.Workers.Count))
	ui.PrintInfo("Threshold", strconv.Itoa(cfg.Workers.Threshold))
	ui.PrintInfo("Checkpoints", cfg.Checkpoint.Directory+" ("+cfg.Checkpoint.Backend+")")

	summary, runErr := driver.NewPool(store, driver.FromConfig(cfg), log).Run(ctx)

	rows := summaryRows(summary.Results)
	ui.Print(ui.RenderSummary(rows, cfg.Workers.Threshold, summary.Duration))

	return runErr
}

// summaryRows maps worker results onto summary rows; each row carries only its own worker's error
func summaryRows(results []worker.Result) []ui.SummaryRow {
	rows := make([]ui.SummaryRow, len(results))
	for i, r := range results {
		rows[i] = ui.SummaryRow{
			WorkerID:   r.WorkerID,
			StartCount: r.StartCount,
			FinalCount: r.FinalCount,
			TasksDone:  r.TasksDone,
			Crashes:    r.Crashes,
			Completed:  r.Completed,
			Duration:   r.Duration,
		}
		if r.Err != nil && !errors.Is(r.Err, context.Canceled) {
			rows[i].Err = r.Err
		}
	}
	return rows
}
