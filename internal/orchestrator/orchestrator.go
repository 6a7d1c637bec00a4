// Package orchestrator wires the scanner, one of {validator, view,
// filterwriter}, and the stats controller into the three-goroutine pipeline
// of spec §2 and §5, and owns its startup/shutdown. Grounded on the
// teacher's internal/rtmp/server/server.go Server: a New/Run-shaped type
// that owns goroutine lifecycle and aggregates per-stage errors, here
// generalized from "accept loop + per-connection goroutine" to "scanner
// goroutine + consumer goroutine + stats goroutine running in the caller".
package orchestrator

import (
	"io"
	"log/slog"
	"sync"

	"github.com/cern-its/pasta-inspector/internal/config"
	protoerr "github.com/cern-its/pasta-inspector/internal/errors"
	"github.com/cern-its/pasta-inspector/internal/filterwriter"
	"github.com/cern-its/pasta-inspector/internal/logger"
	"github.com/cern-its/pasta-inspector/internal/pipeline"
	"github.com/cern-its/pasta-inspector/internal/scanner"
	"github.com/cern-its/pasta-inspector/internal/stats"
	"github.com/cern-its/pasta-inspector/internal/validator"
	"github.com/cern-its/pasta-inspector/internal/view"
)

// ExitCode mirrors spec §6.3's exit-code vocabulary.
type ExitCode int

const (
	ExitSuccess          ExitCode = 0
	ExitValidationErrors ExitCode = 1
	ExitFatal            ExitCode = 2
)

// Result is everything the CLI layer needs to report after one run.
type Result struct {
	Code     ExitCode
	Snapshot stats.Snapshot
	// FatalErr is set when the scanner aborted the pipeline (spec §7).
	FatalErr error
}

// Orchestrator runs exactly one pipeline per call to Run; it holds no
// cross-run state.
type Orchestrator struct {
	cfg config.Config
	log *slog.Logger
}

// New returns an Orchestrator configured per cfg.
func New(cfg config.Config) *Orchestrator {
	return &Orchestrator{cfg: cfg, log: logger.WithWorker(logger.Logger(), "orchestrator")}
}

// Run drives one complete pass over in, writing human/filtered output to
// out and the final summary to summaryOut (spec §4.3, §6.3). It blocks
// until the scanner reaches EOF (or fails fatally) and every consumer has
// drained (spec §5: "Fatal errors short-circuit the pipeline").
func (o *Orchestrator) Run(in scanner.Reader, out, summaryOut io.Writer) Result {
	if err := o.cfg.Validate(); err != nil {
		return Result{Code: ExitFatal, FatalErr: err}
	}

	sc := scanner.New(in)
	inputQ := pipeline.NewQueue[scanner.CdpChunk](o.cfg.InputQCapacity, 1)
	statsQ := pipeline.NewQueue[stats.Event](o.cfg.StatsQCapacity, 2)

	var wg sync.WaitGroup
	var consumerErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		switch o.cfg.Mode {
		case config.ModeView:
			v := view.New(out, view.Config{DumpWords: o.cfg.DumpRDHs})
			v.Run(inputQ, statsQ)
		case config.ModeFilter:
			fw := filterwriter.New(out)
			if err := fw.Run(inputQ, statsQ); err != nil {
				consumerErr = err
			}
		default:
			val := validator.New(validator.Config{SanityChecks: o.cfg.SanityChecks})
			val.Run(inputQ, statsQ)
		}
	}()

	var scanErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanErr = sc.Run(inputQ, statsQ, o.cfg.LinkToFilter)
	}()

	controller := stats.New(summaryOut)
	errCount := controller.Run(statsQ) // third long-running worker, driven on this goroutine

	wg.Wait()

	snap := controller.Snapshot()
	if protoerr.IsFatal(scanErr) {
		o.log.Error("pipeline aborted", "error", scanErr)
		return Result{Code: ExitFatal, Snapshot: snap, FatalErr: scanErr}
	}
	if consumerErr != nil {
		o.log.Error("consumer failed", "error", consumerErr)
		return Result{Code: ExitFatal, Snapshot: snap, FatalErr: consumerErr}
	}
	if errCount > 0 {
		return Result{Code: ExitValidationErrors, Snapshot: snap}
	}
	return Result{Code: ExitSuccess, Snapshot: snap}
}
