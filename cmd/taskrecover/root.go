package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"taskrecover/pkg/config"
	"taskrecover/pkg/logger"
	"taskrecover/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configFile string
	logLevel   string
	noColor    bool
}

// newRootCmd builds the command tree; running it without a subcommand starts a simulation
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "taskrecover",
		Short: "Checkpointed worker simulation with crash recovery",
		Long: `taskrecover runs a pool of workers that each complete a fixed number of tasks,
persisting progress after every task. Workers crash at random and resume from their
last checkpoint, so committed work is never lost.

Configuration is loaded from (highest priority first):
  - Command line flags
  - Environment variables (TASKRECOVER_*), including a .env file
  - Configuration file (.taskrecover.yaml or ~/.config/taskrecover/config.yaml)
  - Default values`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Output = cmd.OutOrStdout()
			ui.SetColor(!opts.noColor && isTerminal(ui.Output))
		},
		Args: cobra.NoArgs,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is .taskrecover.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`taskrecover {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// The root command doubles as "run"
	addRunFlags(rootCmd)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runSimulation(cmd, opts)
	}

	rootCmd.AddCommand(
		newRunCmd(opts),
		newStatusCmd(opts),
		newResetCmd(opts),
		newConfigCmd(opts),
	)

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

// isTerminal reports whether w is a terminal; colors are only written to terminals
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// initLogging installs the global logger; the console writer is plain unless stdout is a terminal
func initLogging(cfg *config.Config, opts *globalOptions) error {
	if opts.noColor || !isTerminal(os.Stdout) {
		cfg.Logging.NoColor = true
	}
	return logger.Initialize(&cfg.Logging)
}

// loadConfig resolves configuration from every source; flags holds only flags the user set
func loadConfig(cmd *cobra.Command, opts *globalOptions, flags map[string]interface{}) (*config.Config, error) {
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = opts.logLevel
	}
	return config.Load(opts.configFile, flags)
}

// storeFlags are accepted by every command that opens the checkpoint store
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("checkpoint-dir", "", "directory holding checkpoints (default \"checkpoints\")")
	cmd.Flags().String("backend", "", "checkpoint backend: file or bolt (default \"file\")")
}

func collectStoreFlags(cmd *cobra.Command, flags map[string]interface{}) {
	for _, name := range []string{"checkpoint-dir", "backend"} {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			flags[name] = v
		}
	}
}
