// Package cdpfsm implements the continuous-mode CDP payload finite-state
// machine (spec §4.2.4): the grammar of GBT words within a single payload,
// generalized across the page-continuation boundary the same way the
// teacher's handshake package drives the RTMP simple-handshake FSM — an
// explicit state, guarded transitions, and a single-word lookahead instead
// of recursion for the choice points (spec Design Notes).
package cdpfsm

import (
	"github.com/cern-its/pasta-inspector/internal/gbtword"
	"github.com/cern-its/pasta-inspector/internal/rdh"
)

// State enumerates the grammar positions from spec §4.2.4, plus the two
// lookahead "choice" points the prose calls out separately.
type State uint8

const (
	// StateStart accepts an IHW to begin a new event header train. It is
	// also the machine's zero value, i.e. its state before any word has
	// ever been seen.
	StateStart State = iota
	StateAfterIHW
	StateData
	// choiceTDHNoData: after a TDH with no_data==1, next word is TDH or DDW0.
	ChoiceTDHNoData
	// choiceAfterTDT: after a TDT with packet_done==1 (outer or via a
	// continuation TDT routing back), next word is IHW, TDH, or DDW0.
	ChoiceAfterTDT
	StateContStart
	StateContAfterIHW
	StateContData
	StateEnd
)

// ViolationKind mirrors the subset of spec §7 error kinds the FSM itself can
// raise; mem_pos/link identity are attached by the caller (validator).
type ViolationKind uint8

const (
	ViolationFsmUnexpectedWord ViolationKind = iota
	ViolationWordSanity
	ViolationInterWordInvariant
	ViolationPayloadPadding
)

// Violation describes a single detected defect; Offset is the byte offset of
// the offending word within the payload (-1 for payload-level violations
// such as padding).
type Violation struct {
	Kind   ViolationKind
	Field  string
	Offset int
}

// FSM holds the per-link rolling CDP grammar state (spec §3.1 LinkState: CDP
// FSM state, active_lanes, last-TDH trigger_bc, last-CDW user_field). One FSM
// instance lives for the lifetime of a link (validator owns it via
// internal/linkstate.LinkState).
type FSM struct {
	State State

	activeLanes      uint32
	haveActiveLanes  bool
	lastTDHTriggerBC uint16
	haveLastTDHBC    bool
	lastCDWUserField uint64
	haveLastCDWField bool
}

// New returns an FSM ready to validate the first payload of a link.
func New() *FSM { return &FSM{State: StateStart} }

// Reset returns the FSM to its start state. Used at payload-boundary
// recovery (spec §4.2.4 "a full reset occurs only on payload-boundary
// recovery").
func (f *FSM) Reset() { *f = FSM{State: StateStart} }

// Process validates every 10-byte GBT word in payload against the current
// RDH's framing bits (stop_bit, page_counter) and the grammar in spec
// §4.2.4, advancing f.State as words are legally consumed. Illegal words are
// reported via report but do NOT advance the state (spec: "the FSM remains
// in its current state... processing continues with the next word").
//
// Trailing bytes that don't form a complete 10-byte word are end-of-payload
// padding and are expected to be zero-filled; any non-zero byte among them
// is reported as a PayloadPadding violation and resets the FSM (spec §4.2.4
// recovery boundary — a full reset occurs only at a payload boundary).
func (f *FSM) Process(r *rdh.RDH, payload []byte, report func(Violation)) {
	n := len(payload) / gbtword.Size
	for i := 0; i < n; i++ {
		off := i * gbtword.Size
		w := gbtword.Word(payload[off : off+gbtword.Size])
		var peek gbtword.Kind = gbtword.KindUnknown
		if i+1 < n {
			peek = gbtword.KindOf(payload[(i+1)*gbtword.Size])
		}
		f.step(r, w, off, peek, report)
	}

	tailOff := n * gbtword.Size
	for _, b := range payload[tailOff:] {
		if b != 0 {
			report(Violation{Kind: ViolationPayloadPadding, Field: "trailing_bytes", Offset: tailOff})
			f.Reset()
			break
		}
	}
}

func (f *FSM) step(r *rdh.RDH, w gbtword.Word, off int, peek gbtword.Kind, report func(Violation)) {
	kind := w.Kind()
	wordSanity(w, kind, off, report)
	if kind == gbtword.KindUnknown {
		// An unrecognized id is reported once, as WordSanity{id}; the FSM
		// stays in its current state.
		return
	}

	switch f.State {
	case StateStart:
		if kind == gbtword.KindIHW && r.StopBit == 0 && r.PageCounter == 0 {
			f.activeLanes, f.haveActiveLanes = w.ActiveLanes(), true
			f.State = StateAfterIHW
			return
		}
		f.unexpected(kind, off, report)

	case StateAfterIHW:
		if kind == gbtword.KindTDH {
			f.onTDH(w, off, false, report)
			return
		}
		f.unexpected(kind, off, report)

	case StateData:
		switch kind {
		case gbtword.KindData, gbtword.KindCDW:
			f.dataWordCheck(w, kind, off, report)
			return
		case gbtword.KindTDT:
			f.onTDT(w, off, report)
			return
		}
		f.unexpected(kind, off, report)

	case ChoiceTDHNoData:
		switch kind {
		case gbtword.KindTDH:
			f.onTDH(w, off, false, report)
		case gbtword.KindDDW0:
			f.onDDW0(r, off, report)
		default:
			f.unexpected(kind, off, report)
			return
		}

	case ChoiceAfterTDT:
		switch kind {
		case gbtword.KindIHW:
			f.activeLanes, f.haveActiveLanes = w.ActiveLanes(), true
			f.State = StateAfterIHW
		case gbtword.KindTDH:
			f.onTDH(w, off, true, report)
		case gbtword.KindDDW0:
			f.onDDW0(r, off, report)
		default:
			f.unexpected(kind, off, report)
		}

	case StateContStart:
		if kind == gbtword.KindIHW && r.StopBit == 0 && r.PageCounter >= 1 {
			f.activeLanes, f.haveActiveLanes = w.ActiveLanes(), true
			f.State = StateContAfterIHW
			return
		}
		f.unexpected(kind, off, report)

	case StateContAfterIHW:
		if kind == gbtword.KindTDH {
			f.onContTDH(w, off, report)
			return
		}
		f.unexpected(kind, off, report)

	case StateContData:
		switch kind {
		case gbtword.KindData, gbtword.KindCDW:
			f.dataWordCheck(w, kind, off, report)
			return
		case gbtword.KindTDT:
			f.onTDT(w, off, report) // c_TDT routes back to the outer TDT choice
			return
		}
		f.unexpected(kind, off, report)

	case StateEnd:
		f.unexpected(kind, off, report)

	default:
		f.unexpected(kind, off, report)
	}
	_ = peek // lookahead is resolved structurally above; kept for callers that want it
}

func (f *FSM) unexpected(kind gbtword.Kind, off int, report func(Violation)) {
	report(Violation{Kind: ViolationFsmUnexpectedWord, Field: kind.String(), Offset: off})
}

// onTDH handles a TDH word. fromAfterTDT marks the transition out of
// ChoiceAfterTDT (a new event's opening TDH following a packet_done==1 TDT),
// the only TDH position spec §4.2.4 guards against the previous TDH's
// trigger_bc and requires internal_trigger==1, continuation==0.
func (f *FSM) onTDH(w gbtword.Word, off int, fromAfterTDT bool, report func(Violation)) {
	if fromAfterTDT {
		if !w.TDHInternalTrigger() {
			report(Violation{Kind: ViolationInterWordInvariant, Field: "internal_trigger", Offset: off})
		}
		if w.TDHContinuation() {
			report(Violation{Kind: ViolationInterWordInvariant, Field: "continuation", Offset: off})
		}
		if f.haveLastTDHBC && w.TDHTriggerBC() <= f.lastTDHTriggerBC {
			report(Violation{Kind: ViolationInterWordInvariant, Field: "trigger_bc", Offset: off})
		}
	}
	f.lastTDHTriggerBC, f.haveLastTDHBC = w.TDHTriggerBC(), true
	if w.TDHNoData() {
		f.State = ChoiceTDHNoData
		return
	}
	f.State = StateData
}

func (f *FSM) onContTDH(w gbtword.Word, off int, report func(Violation)) {
	if !w.TDHContinuation() {
		report(Violation{Kind: ViolationInterWordInvariant, Field: "continuation", Offset: off})
	}
	f.lastTDHTriggerBC, f.haveLastTDHBC = w.TDHTriggerBC(), true
	f.State = StateContData
}

func (f *FSM) onTDT(w gbtword.Word, off int, report func(Violation)) {
	if w.TDTPacketDone() {
		f.State = ChoiceAfterTDT
		return
	}
	// packet_done==0: event page full; this payload's grammar ends here.
	// Continuation resumes on the next RDH page via StateContStart.
	f.State = StateContStart
}

func (f *FSM) onDDW0(r *rdh.RDH, off int, report func(Violation)) {
	if r.StopBit != 1 || r.PageCounter < 1 {
		report(Violation{Kind: ViolationInterWordInvariant, Field: "ddw0_framing", Offset: off})
	}
	f.State = StateEnd
}

func (f *FSM) dataWordCheck(w gbtword.Word, kind gbtword.Kind, off int, report func(Violation)) {
	if kind == gbtword.KindCDW {
		field := w.CDWUserField()
		if f.haveLastCDWField && field != f.lastCDWUserField {
			if w.CDWIndex() != 0 {
				report(Violation{Kind: ViolationInterWordInvariant, Field: "cdw_index", Offset: off})
			}
		}
		f.lastCDWUserField, f.haveLastCDWField = field, true
		return
	}
	lane := w.Lane()
	if f.haveActiveLanes && (f.activeLanes>>lane)&1 == 0 {
		report(Violation{Kind: ViolationInterWordInvariant, Field: "lane", Offset: off})
	}
	if w.IsOuterLayer() && w.InputConnectorNumber() >= 7 {
		report(Violation{Kind: ViolationInterWordInvariant, Field: "input_connector_number", Offset: off})
	}
}

// wordSanity applies the per-word sanity predicates of spec §4.2.4 regardless
// of FSM state, so a malformed word of a known kind is reported even when it
// also trips an FsmUnexpectedWord violation. A word with an unrecognized id
// is reported here only; step does not pass it to the grammar.
func wordSanity(w gbtword.Word, kind gbtword.Kind, off int, report func(Violation)) {
	switch kind {
	case gbtword.KindIHW:
		if !w.IHWReservedOK() {
			report(Violation{Kind: ViolationWordSanity, Field: "reserved", Offset: off})
		}
	case gbtword.KindTDH:
		if !w.TDHReservedOK() {
			report(Violation{Kind: ViolationWordSanity, Field: "reserved", Offset: off})
		}
		if w.TDHTriggerType() == 0 && !w.TDHInternalTrigger() {
			report(Violation{Kind: ViolationWordSanity, Field: "trigger_type", Offset: off})
		}
	case gbtword.KindTDT:
		if !w.TDTReservedOK() {
			report(Violation{Kind: ViolationWordSanity, Field: "reserved", Offset: off})
		}
	case gbtword.KindDDW0:
		if !w.DDW0ReservedOK() {
			report(Violation{Kind: ViolationWordSanity, Field: "reserved", Offset: off})
		}
		if w.DDW0Index() < 1 {
			report(Violation{Kind: ViolationWordSanity, Field: "index", Offset: off})
		}
	case gbtword.KindUnknown:
		report(Violation{Kind: ViolationWordSanity, Field: "id", Offset: off})
	}
}
