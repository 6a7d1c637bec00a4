package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestScannerErrorIsFatal(t *testing.T) {
	root := stdErrors.New("unexpected EOF")
	wrapped := fmt.Errorf("reading RDH0: %w", root)
	se := NewScannerError("load_rdh", KindShortRead, 0x40, wrapped)
	if !IsFatal(se) {
		t.Fatalf("expected IsFatal=true for scanner error")
	}
	if IsReported(se) {
		t.Fatalf("scanner error must not be classified as reported")
	}
	if !stdErrors.Is(se, root) {
		t.Fatalf("expected errors.Is to find root cause")
	}
	var se2 *ScannerError
	if !stdErrors.As(se, &se2) {
		t.Fatalf("expected errors.As to *ScannerError")
	}
	if se2.Kind != KindShortRead {
		t.Fatalf("unexpected kind: %s", se2.Kind)
	}
}

func TestValidationErrorIsReported(t *testing.T) {
	ve := NewValidationError("rdh.running", KindRdhRunning, "page_counter", 0x1000, 0x4001, 3, nil)
	if !IsReported(ve) {
		t.Fatalf("expected IsReported=true for validation error")
	}
	if IsFatal(ve) {
		t.Fatalf("validation error must never be fatal")
	}
	if s := ve.Error(); s == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestUnwrapChain(t *testing.T) {
	base := stdErrors.New("lane mismatch")
	wrapped := fmt.Errorf("check: %w", base)
	ve := NewValidationError("fsm.lane", KindInterWordInvariant, "lane", 0x200, 0x1, 0, wrapped)
	if !stdErrors.Is(ve, base) {
		t.Fatalf("errors.Is should reach base cause")
	}
}

func TestNilSafety(t *testing.T) {
	if IsFatal(nil) {
		t.Fatalf("nil should not be fatal")
	}
	if IsReported(nil) {
		t.Fatalf("nil should not be reported")
	}
}

func TestNegativePredicates(t *testing.T) {
	plain := stdErrors.New("plain")
	if IsFatal(plain) {
		t.Fatalf("plain error shouldn't be fatal")
	}
	if IsReported(plain) {
		t.Fatalf("plain error shouldn't be reported")
	}
}

func TestConstructorsWithoutCause(t *testing.T) {
	se := NewScannerError("load_cdp", KindBadOffset, 0, nil)
	if s := se.Error(); s == "" {
		t.Fatalf("expected non-empty error string")
	}
	ve := NewValidationError("rdh.sanity", KindRdhSanity, "header_size", 0, 0, 0, nil)
	if s := ve.Error(); s == "" {
		t.Fatalf("expected non-empty error string")
	}
}
