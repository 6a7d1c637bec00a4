// Package validator consumes CdpChunks from InputQ, routes each to its
// link's rolling state, and drives the RDH running/sanity checks and the
// CDP-FSM over the payload (spec §4.2). It is grounded on the teacher's
// per-CSID routing in internal/rtmp/chunk/reader.go (ReadMessage dispatches
// each chunk to a ChunkStreamState keyed by CSID) generalized to
// per-(fee_id,link_id) routing into internal/linkstate.State.
package validator

import (
	"github.com/cern-its/pasta-inspector/internal/cdpfsm"
	protoerr "github.com/cern-its/pasta-inspector/internal/errors"
	"github.com/cern-its/pasta-inspector/internal/linkstate"
	"github.com/cern-its/pasta-inspector/internal/pipeline"
	"github.com/cern-its/pasta-inspector/internal/rdh"
	"github.com/cern-its/pasta-inspector/internal/scanner"
	"github.com/cern-its/pasta-inspector/internal/stats"
)

// Config holds the validator's runtime options (spec §6.2 Config:
// sanity_checks is consumed here; dump_rdhs goes to the view consumer and
// the rest belong to the CLI layer).
type Config struct {
	// SanityChecks enables the per-RDH sanity predicates of spec §4.2.3.
	// When false only the running checks (§4.2.2) and the CDP-FSM (§4.2.4)
	// execute, matching a "fast" validation pass.
	SanityChecks bool
}

// Validator is the single consumer of InputQ (spec §5). Not safe for
// concurrent use — intended to be driven by exactly one goroutine (Run).
type Validator struct {
	cfg   Config
	links map[rdh.LinkKey]*linkstate.State

	latchedHeaderID uint8
	haveLatch       bool
}

// New returns a Validator configured per cfg.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg, links: make(map[rdh.LinkKey]*linkstate.State)}
}

// Run drains input until the scanner disconnects (or a fatal upstream error
// was already observed), validating every chunk and reporting results on
// statsQ, then disconnects statsQ itself (spec §5: two StatsQ producers).
func (v *Validator) Run(input *pipeline.Queue[scanner.CdpChunk], statsQ *pipeline.Queue[stats.Event]) {
	defer statsQ.Disconnect()

	for {
		chunk, ok := input.Recv()
		if !ok {
			return
		}
		v.validate(chunk, statsQ)
		chunk.Release()
	}
}

func (v *Validator) validate(chunk scanner.CdpChunk, statsQ *pipeline.Queue[stats.Event]) {
	r := chunk.RDH
	key := r.Key()

	link, ok := v.links[key]
	if !ok {
		link = linkstate.New(key)
		v.links[key] = link
	}

	if !v.haveLatch {
		v.latchedHeaderID, v.haveLatch = r.HeaderID, true
	}

	report := func(err error) {
		statsQ.Send(stats.Event{Kind: stats.EventError, Link: key, MemPos: chunk.MemPos, Err: err})
	}

	link.ApplyRunning(r, chunk.MemPos, report)

	if v.cfg.SanityChecks {
		linkstate.ApplySanity(r, v.latchedHeaderID, chunk.MemPos, report)
	}

	link.FSM.Process(r, chunk.Payload, func(viol cdpfsm.Violation) {
		report(violationToError(viol, key, chunk.MemPos))
	})

	statsQ.Send(stats.Event{Kind: stats.EventPayloadValidated, Link: key, MemPos: chunk.MemPos})
}

// violationToError maps an FSM Violation (spec §4.2.4) onto the spec §7
// error-kind vocabulary. Offset is relative to the start of the payload;
// memPos anchors it to the absolute stream position the stats controller
// reports (spec §7 "User visibility": "errors print ... with mem_pos").
func violationToError(v cdpfsm.Violation, key rdh.LinkKey, chunkMemPos uint64) error {
	memPos := chunkMemPos
	if v.Offset >= 0 {
		memPos += uint64(v.Offset)
	}

	var kind string
	switch v.Kind {
	case cdpfsm.ViolationFsmUnexpectedWord:
		kind = protoerr.KindFsmUnexpectedWord
	case cdpfsm.ViolationWordSanity:
		kind = protoerr.KindWordSanity
	case cdpfsm.ViolationInterWordInvariant:
		kind = protoerr.KindInterWordInvariant
	case cdpfsm.ViolationPayloadPadding:
		kind = protoerr.KindPayloadPadding
	default:
		kind = protoerr.KindFsmUnexpectedWord
	}

	return protoerr.NewValidationError("fsm", kind, v.Field, memPos, key.FeeID, key.LinkID, nil)
}
