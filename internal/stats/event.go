// Package stats defines the StatsQ event vocabulary (spec §3.1 Statistics,
// §4.3 StatsController) and the single-consumer controller that accumulates
// them. Both the scanner and the validator are StatsQ producers.
package stats

import (
	"github.com/cern-its/pasta-inspector/internal/rdh"
)

// EventKind enumerates the distinct StatsQ message shapes (spec §2: "emits
// observed-RDH statistics onto StatsQ" for the scanner, "emits error
// reports and counters onto StatsQ" for the validator).
type EventKind uint8

const (
	// EventRDHSeen is emitted by the scanner for every CdpChunk it forwards,
	// regardless of whether the validator later accepts or rejects it. RDHs
	// skipped by a link filter are not counted.
	EventRDHSeen EventKind = iota
	// EventPayloadValidated is emitted by the chunk consumer once it is done
	// with a CdpChunk: by the validator after the CDP-FSM walk, and by the
	// view and filterwriter consumers after printing or writing the chunk.
	EventPayloadValidated
	// EventError carries an error from either producer (spec §7): reported
	// validation errors from the validator, or the fatal scanner error that
	// ends the scan.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRDHSeen:
		return "rdh_seen"
	case EventPayloadValidated:
		return "payload_validated"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the single message type carried on StatsQ (spec §3.1
// Statistics, §3.1 ErrorReport folded into one envelope keyed by Kind).
type Event struct {
	Kind   EventKind
	Link   rdh.LinkKey
	MemPos uint64
	// Err is set when Kind==EventError; its concrete type is one of
	// internal/errors' ScannerError or ValidationError (spec §7 Kinds).
	Err error
}
