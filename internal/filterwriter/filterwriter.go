// Package filterwriter is the other alternate single consumer of the
// scanner's CdpChunk stream (spec §6.2 "Writer consumer", §6.3 "filter-link"
// subcommand): it re-serializes each RDH + payload pair to an output stream
// unchanged, so a downstream tool sees only the requested link's data.
// Grounded the same way as internal/view on the teacher's
// internal/rtmp/media/recorder.go single-goroutine writer shape, but
// round-tripping through internal/rdh.EncodeInto instead of FLV tags.
package filterwriter

import (
	"fmt"
	"io"

	"github.com/cern-its/pasta-inspector/internal/pipeline"
	"github.com/cern-its/pasta-inspector/internal/rdh"
	"github.com/cern-its/pasta-inspector/internal/scanner"
	"github.com/cern-its/pasta-inspector/internal/stats"
)

// Writer re-serializes CdpChunks to out. Not safe for concurrent use —
// intended to be driven by exactly one goroutine (Run).
type Writer struct {
	out           io.Writer
	rdhBuf        [rdh.Size]byte
	chunksWritten uint64
	bytesWritten  uint64
}

// New returns a Writer emitting the filtered stream to out.
func New(out io.Writer) *Writer { return &Writer{out: out} }

// Run drains input until the scanner disconnects, re-serializing each chunk
// to out in arrival order (spec §6.2: "consume CdpChunks in FIFO order"),
// then disconnects statsQ.
func (w *Writer) Run(input *pipeline.Queue[scanner.CdpChunk], statsQ *pipeline.Queue[stats.Event]) error {
	defer statsQ.Disconnect()

	for {
		chunk, ok := input.Recv()
		if !ok {
			return nil
		}
		if err := w.write(chunk); err != nil {
			chunk.Release()
			return fmt.Errorf("filterwriter: %w", err)
		}
		statsQ.Send(stats.Event{Kind: stats.EventPayloadValidated, Link: chunk.RDH.Key(), MemPos: chunk.MemPos})
		chunk.Release()
	}
}

func (w *Writer) write(chunk scanner.CdpChunk) error {
	if err := chunk.RDH.EncodeInto(w.rdhBuf[:]); err != nil {
		return err
	}
	if _, err := w.out.Write(w.rdhBuf[:]); err != nil {
		return err
	}
	if len(chunk.Payload) > 0 {
		if _, err := w.out.Write(chunk.Payload); err != nil {
			return err
		}
	}
	w.chunksWritten++
	w.bytesWritten += uint64(rdh.Size + len(chunk.Payload))
	return nil
}

// ChunksWritten reports how many chunks have been re-serialized so far.
func (w *Writer) ChunksWritten() uint64 { return w.chunksWritten }

// BytesWritten reports the total bytes written so far (RDH + payload).
func (w *Writer) BytesWritten() uint64 { return w.bytesWritten }
