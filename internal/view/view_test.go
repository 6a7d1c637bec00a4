package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cern-its/pasta-inspector/internal/pipeline"
	"github.com/cern-its/pasta-inspector/internal/rdh"
	"github.com/cern-its/pasta-inspector/internal/scanner"
	"github.com/cern-its/pasta-inspector/internal/stats"
)

func TestRunPrintsRDHSummary(t *testing.T) {
	var out bytes.Buffer
	w := New(&out, Config{})

	input := pipeline.NewQueue[scanner.CdpChunk](2, 1)
	statsQ := pipeline.NewQueue[stats.Event](2, 1)

	go func() {
		defer input.Disconnect()
		input.Send(scanner.CdpChunk{
			RDH:    &rdh.RDH{HeaderID: 7, LinkID: 3, FeeID: rdh.FeeID(0x4001), Orbit: 42},
			MemPos: 128,
		})
	}()

	w.Run(input, statsQ)

	if ev, ok := statsQ.Recv(); !ok || ev.Kind != stats.EventPayloadValidated {
		t.Fatalf("expected one EventPayloadValidated on statsQ, got %+v ok=%v", ev, ok)
	}
	if _, ok := statsQ.Recv(); ok {
		t.Fatalf("expected statsQ closed by Run's own disconnect accounting")
	}
	if w.Count() != 1 {
		t.Fatalf("expected Count()==1, got %d", w.Count())
	}
	s := out.String()
	if !strings.Contains(s, "link=3") || !strings.Contains(s, "orbit=42") {
		t.Fatalf("summary missing expected fields: %q", s)
	}
}

func TestRunDumpsWordsWhenEnabled(t *testing.T) {
	var out bytes.Buffer
	w := New(&out, Config{DumpWords: true})

	input := pipeline.NewQueue[scanner.CdpChunk](1, 1)
	statsQ := pipeline.NewQueue[stats.Event](1, 1)

	payload := make([]byte, 10)
	payload[0] = 0xE0 // IHW
	go func() {
		defer input.Disconnect()
		input.Send(scanner.CdpChunk{RDH: &rdh.RDH{HeaderID: 7}, Payload: payload})
	}()

	w.Run(input, statsQ)

	if !strings.Contains(out.String(), "IHW") {
		t.Fatalf("expected word dump to include IHW, got %q", out.String())
	}
}
