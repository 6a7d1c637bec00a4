package stats

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	protoerr "github.com/cern-its/pasta-inspector/internal/errors"
	"github.com/cern-its/pasta-inspector/internal/logger"
	"github.com/cern-its/pasta-inspector/internal/pipeline"
	"github.com/cern-its/pasta-inspector/internal/rdh"
)

// DedupThreshold caps how many times an identical (kind, field, link) error
// is printed immediately before the controller starts silently counting it
// (spec §4.3: "deduplicate by (kind, link) above a threshold").
const DedupThreshold = 5

type linkErrKey struct {
	kind  string
	field string
	link  rdh.LinkKey
}

// Controller is the single consumer of StatsQ (spec §4.3). It is grounded on
// the teacher's single-manager-owns-registration-and-dispatch shape
// (internal/rtmp/server/hooks/manager.go HookManager) and the
// composite-key map idiom of internal/rtmp/server/registry.go's Registry,
// generalized from connections/streams to detector links. Run is intended
// to be the only goroutine mutating Controller state, so the counters
// themselves need no locking; the mutex here guards only the snapshot
// accessors tests and a concurrent progress reporter might call mid-run.
type Controller struct {
	runID string
	out   io.Writer

	mu           sync.Mutex
	rdhCount     uint64
	payloadCount uint64
	errByKind    map[string]uint64
	errByLinkKey map[linkErrKey]uint64
	links        map[rdh.LinkKey]struct{}
	start        time.Time
}

// New creates a Controller that writes its final summary to out (the CLI
// passes stderr; --output redirects only the view/filter-link output).
func New(out io.Writer) *Controller {
	return &Controller{
		runID:        uuid.NewString(),
		out:          out,
		errByKind:    make(map[string]uint64),
		errByLinkKey: make(map[linkErrKey]uint64),
		links:        make(map[rdh.LinkKey]struct{}),
		start:        time.Now(),
	}
}

// Run drains statsQ until all producers (scanner, validator) disconnect,
// then prints the final summary. It returns the count of EventError events
// observed, so the orchestrator can map it to spec §6.3's exit code 1.
func (c *Controller) Run(statsQ *pipeline.Queue[Event]) int {
	log := logger.WithRun(logger.WithWorker(logger.Logger(), "stats"), c.runID)
	errCount := 0
	for {
		ev, ok := statsQ.Recv()
		if !ok {
			break
		}
		c.record(ev, log)
		if ev.Kind == EventError {
			errCount++
		}
	}
	c.printSummary(log)
	return errCount
}

func (c *Controller) record(ev Event, log *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Link != (rdh.LinkKey{}) {
		c.links[ev.Link] = struct{}{}
	}

	switch ev.Kind {
	case EventRDHSeen:
		c.rdhCount++
	case EventPayloadValidated:
		c.payloadCount++
	case EventError:
		kind := errorKind(ev.Err)
		field := errorField(ev.Err)
		c.errByKind[kind]++

		key := linkErrKey{kind: kind, field: field, link: ev.Link}
		c.errByLinkKey[key]++
		if c.errByLinkKey[key] <= DedupThreshold {
			log.Warn("validation error",
				"kind", kind, "field", field,
				"fee_id", ev.Link.FeeID, "link_id", ev.Link.LinkID,
				"mem_pos", ev.MemPos, "error", ev.Err)
		} else if c.errByLinkKey[key] == DedupThreshold+1 {
			log.Warn("further occurrences of this error suppressed",
				"kind", kind, "field", field,
				"fee_id", ev.Link.FeeID, "link_id", ev.Link.LinkID)
		}
	}
}

func errorKind(err error) string {
	switch e := err.(type) {
	case *protoerr.ScannerError:
		return e.Kind
	case *protoerr.ValidationError:
		return e.Kind
	default:
		return "Unknown"
	}
}

func errorField(err error) string {
	if ve, ok := err.(*protoerr.ValidationError); ok {
		return ve.Field
	}
	return ""
}

// printSummary writes the final human-readable totals (spec §4.3: "prints a
// final summary" on all-producers-disconnected).
func (c *Controller) printSummary(log *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.start)
	totalErrs := uint64(0)
	for _, n := range c.errByKind {
		totalErrs += n
	}

	fmt.Fprintf(c.out, "--- pasta-inspector summary (run %s) ---\n", c.runID)
	fmt.Fprintf(c.out, "rdhs seen:        %d\n", c.rdhCount)
	fmt.Fprintf(c.out, "payloads checked: %d\n", c.payloadCount)
	fmt.Fprintf(c.out, "links discovered: %d\n", len(c.links))
	fmt.Fprintf(c.out, "errors:           %d\n", totalErrs)
	for kind, n := range c.errByKind {
		fmt.Fprintf(c.out, "  %-24s %d\n", kind, n)
	}
	fmt.Fprintf(c.out, "elapsed:          %s\n", elapsed.Round(time.Millisecond))

	log.Info("run summary",
		"rdh_count", c.rdhCount, "payload_count", c.payloadCount,
		"link_count", len(c.links), "error_count", totalErrs,
		"elapsed_ms", elapsed.Milliseconds())
}

// Snapshot exposes the accumulated counters for tests and alternate
// consumers (e.g. a future JSON summary writer).
type Snapshot struct {
	RDHCount     uint64
	PayloadCount uint64
	LinkCount    int
	ErrorCount   uint64
	ErrorsByKind map[string]uint64
}

// Snapshot returns a point-in-time copy of the controller's counters.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]uint64, len(c.errByKind))
	total := uint64(0)
	for k, v := range c.errByKind {
		byKind[k] = v
		total += v
	}
	return Snapshot{
		RDHCount:     c.rdhCount,
		PayloadCount: c.payloadCount,
		LinkCount:    len(c.links),
		ErrorCount:   total,
		ErrorsByKind: byKind,
	}
}
