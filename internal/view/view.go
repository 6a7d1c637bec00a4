// Package view is an alternate single consumer of the scanner's CdpChunk
// stream (spec §6.2 "View consumer"): it renders a human-readable dump of
// each RDH and, optionally, the GBT words in its payload to an io.Writer,
// instead of routing chunks through the validator. Grounded on the
// teacher's internal/rtmp/media/recorder.go: a single-goroutine writer over
// an injected io.WriteCloser, graceful on write errors, with an explicit
// "wrote header once" / running byte counter shape generalized here into a
// "printed N chunks" counter.
package view

import (
	"fmt"
	"io"

	"github.com/cern-its/pasta-inspector/internal/gbtword"
	"github.com/cern-its/pasta-inspector/internal/pipeline"
	"github.com/cern-its/pasta-inspector/internal/scanner"
	"github.com/cern-its/pasta-inspector/internal/stats"
)

// Config controls the verbosity of the dump (spec §6.2 Config: dump_rdhs).
type Config struct {
	// DumpWords additionally prints every GBT word's id and kind, not just
	// the RDH summary line.
	DumpWords bool
}

// Writer prints CdpChunks to an underlying io.Writer. Not safe for
// concurrent use — intended to be driven by exactly one goroutine (Run),
// mirroring the teacher's single-relay-loop Recorder.
type Writer struct {
	cfg   Config
	out   io.Writer
	count uint64
}

// New returns a Writer printing to out.
func New(out io.Writer, cfg Config) *Writer { return &Writer{cfg: cfg, out: out} }

// Run drains input until the scanner disconnects, printing each chunk, then
// disconnects statsQ (spec §6.2: "may emit stats events").
func (w *Writer) Run(input *pipeline.Queue[scanner.CdpChunk], statsQ *pipeline.Queue[stats.Event]) {
	defer statsQ.Disconnect()

	for {
		chunk, ok := input.Recv()
		if !ok {
			return
		}
		w.print(chunk)
		statsQ.Send(stats.Event{Kind: stats.EventPayloadValidated, Link: chunk.RDH.Key(), MemPos: chunk.MemPos})
		chunk.Release()
		w.count++
	}
}

func (w *Writer) print(chunk scanner.CdpChunk) {
	r := chunk.RDH
	fmt.Fprintf(w.out, "[%08x] RDHv%d fee=0x%04x link=%d page=%d stop=%d orbit=%d bc=%d trigger=0x%x payload=%dB\n",
		chunk.MemPos, r.Version(), uint16(r.FeeID), r.LinkID, r.PageCounter, r.StopBit,
		r.Orbit, r.BC, r.TriggerType, len(chunk.Payload))

	if !w.cfg.DumpWords {
		return
	}
	n := len(chunk.Payload) / gbtword.Size
	for i := 0; i < n; i++ {
		off := i * gbtword.Size
		word := gbtword.Word(chunk.Payload[off : off+gbtword.Size])
		fmt.Fprintf(w.out, "    %04d id=0x%02x %s\n", off, word.ID(), word.Kind())
	}
}

// Count returns the number of chunks printed so far.
func (w *Writer) Count() uint64 { return w.count }
