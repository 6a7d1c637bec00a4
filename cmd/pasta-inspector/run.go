package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cern-its/pasta-inspector/internal/config"
	"github.com/cern-its/pasta-inspector/internal/iosource"
	"github.com/cern-its/pasta-inspector/internal/logger"
	"github.com/cern-its/pasta-inspector/internal/orchestrator"
	"github.com/cern-its/pasta-inspector/internal/scanner"
)

// shutdownGrace bounds how long, after SIGINT/SIGTERM, the CLI waits for the
// pipeline to finish on its own before a forced exit (the pipeline itself is
// not cancelled), mirroring the teacher's fixed 5s window in
// cmd/rtmp-server/main.go.
const shutdownGrace = 5 * time.Second

// openInput resolves the positional input argument into a scanner.Reader:
// "-" or no argument means stdin (spec §6.2 input_source), anything else is
// opened as a plain file using native seeking.
func openInput(args []string) (scanner.Reader, func() error, error) {
	if len(args) == 0 || args[0] == "-" {
		return iosource.NewStdin(os.Stdin), func() error { return nil }, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return iosource.NewFile(f), f.Close, nil
}

// inputPathOf mirrors openInput's stdin convention so cfg.InputPath always
// reflects what was actually opened, for logging.
func inputPathOf(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

// openOutput resolves --output into a writer, defaulting to stdout.
func openOutput(path string) (*os.File, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

// resolveConfig builds the run Config from persistent flags, the optional
// TOML overlay, and mode-specific overrides applied by the caller.
func resolveConfig(cmd *cobra.Command, mode config.Mode) (config.Config, error) {
	cfg := config.Default()
	cfg.Mode = mode

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if err := logger.SetLevel(lvl); err != nil {
			return cfg, fmt.Errorf("invalid --log-level: %w", err)
		}
	}

	cfg, err := config.LoadFileOverlay(cfg, cfgFile)
	if err != nil {
		return cfg, err
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.OutputPath = out
	}
	return cfg, nil
}

// runPipeline wires input/output, races the orchestrator against SIGINT/
// SIGTERM the way the teacher's main.go races server.Stop() against a
// shutdown timeout, and sets the process exitCode from the result.
func runPipeline(cfg config.Config, args []string) error {
	cfg.InputPath = inputPathOf(args)
	in, closeIn, err := openInput(args)
	if err != nil {
		exitCode = exitInvocation
		return err
	}
	defer closeIn()

	out, closeOut, err := openOutput(cfg.OutputPath)
	if err != nil {
		exitCode = exitInvocation
		return err
	}
	defer closeOut()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.WithWorker(logger.Logger(), "cli")
	log.Info("starting run", "mode", cfg.Mode, "input", cfg.InputPath)

	type outcome struct {
		res orchestrator.Result
	}
	done := make(chan outcome, 1)
	go func() {
		res := orchestrator.New(cfg).Run(in, out, os.Stderr)
		done <- outcome{res: res}
	}()

	select {
	case o := <-done:
		return finish(o.res)
	case <-ctx.Done():
		log.Warn("shutdown signal received, waiting for pipeline to drain")
		select {
		case o := <-done:
			return finish(o.res)
		case <-time.After(shutdownGrace):
			log.Error("forced exit after timeout")
			exitCode = int(orchestrator.ExitFatal)
			return fmt.Errorf("pipeline did not stop within %s", shutdownGrace)
		}
	}
}

func finish(res orchestrator.Result) error {
	exitCode = int(res.Code)
	if res.FatalErr != nil {
		return res.FatalErr
	}
	return nil
}
