// Package errors defines the Payload Inspector's error kinds: a small set of
// structured, wrapped error types classified as either fatal (the pipeline
// must abort) or reported (surfaced to the stats controller, processing
// continues). See spec §7 ERROR HANDLING DESIGN.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// fatalMarker is implemented by error kinds that must abort the pipeline.
type fatalMarker interface {
	error
	isFatal()
}

// reportedMarker is implemented by error kinds emitted as ErrorReport events
// without aborting the pipeline.
type reportedMarker interface {
	error
	isReported()
}

// ScannerError indicates a framing/I-O failure while reading the RDH+payload
// stream: unsupported RDH version, a short read, or an out-of-range offset.
// Always fatal.
type ScannerError struct {
	Op     string // e.g. "load_rdh", "load_cdp"
	Kind   string // "UnsupportedRdhVersion" | "BadOffset" | "ShortRead"
	MemPos uint64
	Err    error
}

func (e *ScannerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scanner: %s at 0x%x: %s", e.Op, e.MemPos, e.Kind)
	}
	return fmt.Sprintf("scanner: %s at 0x%x: %s: %v", e.Op, e.MemPos, e.Kind, e.Err)
}
func (e *ScannerError) Unwrap() error { return e.Err }
func (e *ScannerError) isFatal()      {}

// ValidationError indicates a structural/protocol violation detected while
// validating RDHs or CDP payloads. Never fatal: the validator reports it and
// continues (spec §7).
type ValidationError struct {
	Op      string // e.g. "rdh.running", "rdh.sanity", "fsm", "word.sanity"
	Kind    string // RdhSanity | RdhRunning | PayloadPadding | FsmUnexpectedWord | WordSanity | InterWordInvariant
	Field   string // field or word name the kind refers to, e.g. "page_counter", "lane"
	MemPos  uint64
	LinkFee uint16
	LinkID  uint8
	Err     error
}

func (e *ValidationError) Error() string {
	base := fmt.Sprintf("validator: %s{%s} link=(fee=0x%x,link=%d) at 0x%x", e.Kind, e.Field, e.LinkFee, e.LinkID, e.MemPos)
	if e.Err == nil {
		return base
	}
	return base + ": " + e.Err.Error()
}
func (e *ValidationError) Unwrap() error { return e.Err }
func (e *ValidationError) isReported()   {}

// Kind constants mirror spec §7 verbatim.
const (
	KindUnsupportedRdhVersion = "UnsupportedRdhVersion"
	KindBadOffset             = "BadOffset"
	KindShortRead             = "ShortRead"
	KindRdhSanity             = "RdhSanity"
	KindRdhRunning            = "RdhRunning"
	KindPayloadPadding        = "PayloadPadding"
	KindFsmUnexpectedWord     = "FsmUnexpectedWord"
	KindWordSanity            = "WordSanity"
	KindInterWordInvariant    = "InterWordInvariant"
)

// NewScannerError constructs a fatal framing error.
func NewScannerError(op, kind string, memPos uint64, cause error) error {
	return &ScannerError{Op: op, Kind: kind, MemPos: memPos, Err: cause}
}

// NewValidationError constructs a reported validation error.
func NewValidationError(op, kind, field string, memPos uint64, fee uint16, link uint8, cause error) error {
	return &ValidationError{Op: op, Kind: kind, Field: field, MemPos: memPos, LinkFee: fee, LinkID: link, Err: cause}
}

// IsFatal reports whether err (or any error it wraps) must abort the pipeline.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fm fatalMarker
	return stdErrors.As(err, &fm)
}

// IsReported reports whether err (or any error it wraps) is a reportable
// validation violation that should not abort the pipeline.
func IsReported(err error) bool {
	if err == nil {
		return false
	}
	var rm reportedMarker
	return stdErrors.As(err, &rm)
}

// Usage pattern:
//
//	if n != len(buf) {
//	    return NewScannerError("load_payload", KindShortRead, pos, fmt.Errorf("read %d of %d bytes", n, len(buf)))
//	}
