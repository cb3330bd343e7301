// pipesh - Pipeline Shell
// Line-oriented shell with builtins, pipelines and output redirection.
// Copyright (c) 2026 pipesh project - 0BSD License

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"pipesh/internal/config"
	"pipesh/internal/shell"
)

var (
	buildTime = "unknown"
	gitCommit = "unknown"
)

func newRootCmd(exitCode *int) *cobra.Command {
	cfg := config.New()
	var noColor bool

	cmd := &cobra.Command{
		Use:   "pipesh [flags]",
		Short: "Line-oriented shell with builtins, pipelines and redirection",
		Version: fmt.Sprintf("%s (built %s, commit %s, %s %s/%s)",
			shell.Version, buildTime, gitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags given on the command line win over the environment.
			flagged := *cfg
			if err := cfg.LoadEnv(os.Getenv); err != nil {
				return err
			}
			if cmd.Flags().Changed("histfile") {
				cfg.HistoryFile = flagged.HistoryFile
			}
			if cmd.Flags().Changed("histsize") {
				cfg.HistorySize = flagged.HistorySize
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = flagged.Debug
			}
			cfg.EnableColors = !noColor
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := shell.New(cfg).Run()
			*exitCode = code
			return err
		},
	}

	cmd.SetVersionTemplate("pipesh {{.Version}}\n")

	flags := cmd.Flags()
	flags.StringVarP(&cfg.Command, "command", "c", "", "execute `cmd` and exit")
	flags.BoolVarP(&cfg.Interactive, "interactive", "i", false, "force interactive mode")
	flags.BoolVarP(&cfg.ReadStdin, "stdin", "s", false, "read commands from standard input")
	flags.BoolVar(&cfg.Debug, "debug", false, "log debug output to stderr")
	flags.StringVar(&cfg.HistoryFile, "histfile", cfg.HistoryFile, "history `file`, empty disables persistence")
	flags.IntVar(&cfg.HistorySize, "histsize", cfg.HistorySize, "maximum number of history entries")
	flags.BoolVar(&noColor, "no-color", false, "disable prompt colours")

	return cmd
}

func main() {
	exitCode := 0

	if err := newRootCmd(&exitCode).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pipesh: %v\n", err)
		os.Exit(1)
	}

	os.Exit(exitCode)
}
