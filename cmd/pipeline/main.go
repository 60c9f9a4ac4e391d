package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rawblock/realty-pipeline/internal/config"
	"github.com/rawblock/realty-pipeline/internal/logging"
	"github.com/rawblock/realty-pipeline/internal/runner"
)

// Exit codes per the specification's batch-run contract.
const (
	exitOK           = 0
	exitPropertyFail = 1
	exitCorruptState = 2
	exitNoSources    = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	v := viper.New()

	var (
		configPath string
		all        bool
		test       bool
		fakes      bool
		strict     bool
		fresh      bool
		skipPhases []string
		dev        bool
	)

	root := &cobra.Command{
		Use:          "pipeline [address]",
		Short:        "Run the real-estate kill-switch-and-scoring pipeline",
		SilenceUsage: true,
	}
	exitCode := exitOK

	root.Flags().StringVar(&configPath, "config", "", "path to a config file")
	root.Flags().BoolVar(&all, "all", false, "process every address in the properties CSV (env PIPELINE_INPUT_CSV)")
	root.Flags().BoolVar(&test, "test", false, "cap the run to the first 5 properties instead of the full scope")
	root.Flags().BoolVar(&fakes, "fakes", false, "run against the deterministic in-memory fakes instead of live sources")
	root.Flags().BoolVar(&strict, "strict", false, "abort a property's run on its first fatal prerequisite failure (the batch continues)")
	root.Flags().BoolVar(&fresh, "fresh", false, "discard any existing checkpoint for the given address(es) before running")
	root.Flags().StringSliceVar(&skipPhases, "skip-phase", nil, "phase id to force-skip (repeatable)")
	root.Flags().BoolVar(&dev, "dev", false, "human-readable console logging instead of JSON")
	root.Flags().Bool("resume", true, "resume from existing checkpoints (default)")

	_ = v.BindPFlag("resume", root.Flags().Lookup("resume"))
	_ = v.BindPFlag("strict", root.Flags().Lookup("strict"))
	_ = v.BindPFlag("fresh", root.Flags().Lookup("fresh"))

	root.RunE = func(cmd *cobra.Command, cliArgs []string) error {
		cfg, err := config.Load(v, configPath)
		if err != nil {
			exitCode = exitCorruptState
			return fmt.Errorf("load config: %w", err)
		}
		if strict {
			cfg.Strict = true
		}
		if fresh {
			cfg.Fresh = true
		}
		if len(skipPhases) > 0 {
			cfg.SkipPhases = skipPhases
		}

		log, err := logging.New(dev)
		if err != nil {
			exitCode = exitCorruptState
			return fmt.Errorf("build logger: %w", err)
		}
		defer log.Sync() //nolint:errcheck

		var addresses []string
		switch {
		case all:
			// addresses resolved from the properties CSV by runner.Run.
		case len(cliArgs) == 1:
			addresses = []string{cliArgs[0]}
		case test:
			// --test alone is its own scope selector: first 5 rows of the properties CSV.
		default:
			return fmt.Errorf("expected exactly one address argument, or --all, or --test")
		}

		summary, runErr := runner.Run(cmd.Context(), runner.Options{
			Config:    cfg,
			Log:       log,
			Addresses: addresses,
			All:       all,
			Test:      test,
			Fakes:     fakes,
			Fresh:     cfg.Fresh,
		})
		if runErr != nil {
			code := classifyExit(runErr)
			exitCode = code
			return runErr
		}

		log.Info("run complete",
			zap.Int("attempted", summary.Attempted),
			zap.Int("completed", summary.Completed),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped))

		if summary.Failed > 0 && cfg.Strict {
			exitCode = exitPropertyFail
		}
		return nil
	}

	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "pipeline:", err)
		if exitCode == exitOK {
			exitCode = exitPropertyFail
		}
	}
	return exitCode
}

func classifyExit(err error) int {
	switch {
	case runner.IsCorruptState(err):
		return exitCorruptState
	case runner.IsNoSources(err):
		return exitNoSources
	default:
		return exitPropertyFail
	}
}
