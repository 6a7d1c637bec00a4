// Package linkstate tracks per-(fee_id, link_id) rolling state across RDH
// pages: the running-check fields of spec §4.2.2 and §4.2.3, plus the CDP
// grammar FSM that owns a link's payload parsing (spec §3.1 LinkState). This
// generalizes the teacher's per-CSID `ChunkStreamState`
// (internal/rtmp/chunk/state.go) from one rolling struct per chunk stream to
// one per detector link.
package linkstate

import (
	"github.com/cern-its/pasta-inspector/internal/cdpfsm"
	"github.com/cern-its/pasta-inspector/internal/errors"
	"github.com/cern-its/pasta-inspector/internal/rdh"
)

// State is the rolling per-link state the validator consults and mutates for
// every incoming RDH (spec §3.1 LinkState, §4.2.2, §4.2.3).
type State struct {
	Key rdh.LinkKey

	FSM *cdpfsm.FSM

	seen                bool
	expectedPageCounter uint16
	lastOrbit           uint32
	lastTriggerType     uint32
	lastDetectorField   uint32
	lastFeeID           uint16
	lastStopBit         uint8
}

// New returns a fresh per-link state, ready for the link's first RDH.
func New(key rdh.LinkKey) *State {
	return &State{Key: key, FSM: cdpfsm.New()}
}

// ApplyRunning runs the spec §4.2.2 RDH running checks against r, reports any
// violation via report, and unconditionally advances the rolling fields
// (spec §7: "link state is still advanced to the observed values to avoid
// cascading spurious errors").
func (s *State) ApplyRunning(r *rdh.RDH, memPos uint64, report func(error)) {
	if !s.seen {
		s.seen = true
		s.advance(r)
		return
	}

	if r.PageCounter == 0 {
		if s.lastStopBit != 1 {
			report(errors.NewValidationError("rdh.running", errors.KindRdhRunning, "stop_bit",
				memPos, s.Key.FeeID, s.Key.LinkID, nil))
		}
		if r.Orbit == s.lastOrbit {
			report(errors.NewValidationError("rdh.running", errors.KindRdhRunning, "orbit",
				memPos, s.Key.FeeID, s.Key.LinkID, nil))
		}
	} else {
		if r.PageCounter != s.expectedPageCounter {
			report(errors.NewValidationError("rdh.running", errors.KindRdhRunning, "page_counter",
				memPos, s.Key.FeeID, s.Key.LinkID, nil))
		}
		if r.Orbit != s.lastOrbit {
			report(errors.NewValidationError("rdh.running", errors.KindRdhRunning, "orbit",
				memPos, s.Key.FeeID, s.Key.LinkID, nil))
		}
		if r.TriggerType != s.lastTriggerType {
			report(errors.NewValidationError("rdh.running", errors.KindRdhRunning, "trigger_type",
				memPos, s.Key.FeeID, s.Key.LinkID, nil))
		}
		if r.DetectorField != s.lastDetectorField {
			report(errors.NewValidationError("rdh.running", errors.KindRdhRunning, "detector_field",
				memPos, s.Key.FeeID, s.Key.LinkID, nil))
		}
		if uint16(r.FeeID) != s.lastFeeID {
			report(errors.NewValidationError("rdh.running", errors.KindRdhRunning, "fee_id",
				memPos, s.Key.FeeID, s.Key.LinkID, nil))
		}
	}

	s.advance(r)
}

func (s *State) advance(r *rdh.RDH) {
	s.lastOrbit = r.Orbit
	s.lastTriggerType = r.TriggerType
	s.lastDetectorField = r.DetectorField
	s.lastFeeID = uint16(r.FeeID)
	s.lastStopBit = r.StopBit
	if r.StopBit == 1 {
		s.expectedPageCounter = 0
	} else {
		s.expectedPageCounter = r.PageCounter + 1
	}
}

// ApplySanity runs the spec §4.2.3 RDH sanity checks against r when sanity
// mode is enabled by the caller. latchedHeaderID is the process-wide first
// header_id ever observed (spec §9 "Global state").
func ApplySanity(r *rdh.RDH, latchedHeaderID uint8, memPos uint64, report func(error)) {
	key := r.Key()
	bad := func(field string) {
		report(errors.NewValidationError("rdh.sanity", errors.KindRdhSanity, field,
			memPos, key.FeeID, key.LinkID, nil))
	}

	if r.HeaderID != latchedHeaderID {
		bad("header_id")
	}
	if r.HeaderSize != 0x40 {
		bad("header_size")
	}
	if r.FeeID.Layer() > 6 {
		bad("fee_id.layer")
	}
	if r.FeeID.Stave() > 47 {
		bad("fee_id.stave")
	}
	if r.FeeID.Reserved1() != 0 || r.FeeID.Reserved2() != 0 {
		bad("fee_id.reserved")
	}
	if r.FeeID.Priority() != 0 {
		bad("fee_id.priority")
	}
	if r.SystemID != 0x20 {
		bad("system_id")
	}
	for _, b := range r.RDH0.Reserved {
		if b != 0 {
			bad("rdh0.reserved")
			break
		}
	}

	if r.BC >= 0xDEB {
		bad("bc")
	}
	if !r.Rdh1ReservedOK() {
		bad("rdh1.reserved")
	}

	if r.StopBit > 1 {
		bad("stop_bit")
	}
	if r.TriggerType < 1 {
		bad("trigger_type")
	}
	if !r.TriggerTypeSpareOK() {
		bad("trigger_type.spare")
	}
	if !r.Rdh2ReservedOK() {
		bad("rdh2.reserved")
	}

	if r.DetectorField&0x00FFFFF0 != 0 { // bits [23:4]
		bad("detector_field.reserved")
	}
	if !r.Rdh3ReservedOK() {
		bad("rdh3.reserved")
	}
	if !r.TailReservedOK() {
		bad("tail.reserved")
	}

	if r.DW > 1 {
		bad("dw")
	}
	if r.DataFormat > 2 {
		bad("data_format")
	}
}
