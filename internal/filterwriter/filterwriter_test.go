package filterwriter

import (
	"bytes"
	"testing"

	"github.com/cern-its/pasta-inspector/internal/pipeline"
	"github.com/cern-its/pasta-inspector/internal/rdh"
	"github.com/cern-its/pasta-inspector/internal/scanner"
	"github.com/cern-its/pasta-inspector/internal/stats"
)

func TestRunReserializesRDHAndPayload(t *testing.T) {
	var out bytes.Buffer
	w := New(&out)

	input := pipeline.NewQueue[scanner.CdpChunk](2, 1)
	statsQ := pipeline.NewQueue[stats.Event](2, 1)

	payload := bytes.Repeat([]byte{0x11}, 20)
	r := &rdh.RDH{HeaderID: 7, HeaderSize: 0x40, LinkID: 5, MemorySize: uint16(rdh.Size + len(payload))}

	go func() {
		defer input.Disconnect()
		input.Send(scanner.CdpChunk{RDH: r, Payload: payload})
	}()

	if err := w.Run(input, statsQ); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.ChunksWritten() != 1 {
		t.Fatalf("expected ChunksWritten()==1, got %d", w.ChunksWritten())
	}
	if out.Len() != rdh.Size+len(payload) {
		t.Fatalf("expected %d bytes written, got %d", rdh.Size+len(payload), out.Len())
	}

	decoded, err := rdh.Decode(out.Bytes()[:rdh.Size])
	if err != nil {
		t.Fatalf("decode roundtrip failed: %v", err)
	}
	if decoded.LinkID != 5 {
		t.Fatalf("expected link_id=5 roundtrip, got %d", decoded.LinkID)
	}
	if !bytes.Equal(out.Bytes()[rdh.Size:], payload) {
		t.Fatalf("payload roundtrip mismatch")
	}
}

func TestRunPropagatesWriteErrors(t *testing.T) {
	w := New(failingWriter{})

	input := pipeline.NewQueue[scanner.CdpChunk](1, 1)
	statsQ := pipeline.NewQueue[stats.Event](1, 1)

	go func() {
		defer input.Disconnect()
		input.Send(scanner.CdpChunk{RDH: &rdh.RDH{HeaderID: 7, HeaderSize: 0x40}})
	}()

	if err := w.Run(input, statsQ); err == nil {
		t.Fatalf("expected a propagated write error")
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, bytes.ErrTooLarge }
