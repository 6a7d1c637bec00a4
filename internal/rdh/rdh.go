// Package rdh decodes and encodes the 64-byte Raw Data Header that prefixes
// every payload in the input stream (spec §3.1, §6.1). RDH0 carries the
// version/identity fields; RDHv6 and RDHv7 share an identical 64-byte
// layout (only the header_id byte distinguishes the two).
package rdh

import (
	"encoding/binary"
	"fmt"
)

// Size is the fixed length, in bytes, of every RDH regardless of version.
const Size = 64

// Size0 is the length, in bytes, of the embedded RDH0 sub-header.
const Size0 = 10

// SupportedHeaderID reports whether id is a version this inspector understands.
func SupportedHeaderID(id uint8) bool { return id == 6 || id == 7 }

// FeeID is the 16-bit front-end-electronics identity bitfield carried by RDH0.
// Layout (MSB→LSB): reserved(3) | priority(1) | stave(6) | reserved(3) | layer(3).
type FeeID uint16

func (f FeeID) Layer() uint8     { return uint8(f & 0x7) }
func (f FeeID) Reserved1() uint8 { return uint8((f >> 3) & 0x7) }
func (f FeeID) Stave() uint8     { return uint8((f >> 6) & 0x3F) }
func (f FeeID) Priority() uint8  { return uint8((f >> 12) & 0x1) }
func (f FeeID) Reserved2() uint8 { return uint8((f >> 13) & 0x7) }

// RDH0 is the 10-byte sub-header embedded at the start of every RDH.
type RDH0 struct {
	HeaderID   uint8
	HeaderSize uint8
	FeeID      FeeID
	SystemID   uint8
	Reserved   [5]byte
}

func decodeRDH0(b []byte) RDH0 {
	var r RDH0
	r.HeaderID = b[0]
	r.HeaderSize = b[1]
	r.FeeID = FeeID(binary.BigEndian.Uint16(b[2:4]))
	r.SystemID = b[4]
	copy(r.Reserved[:], b[5:10])
	return r
}

func (r RDH0) encodeInto(b []byte) {
	b[0] = r.HeaderID
	b[1] = r.HeaderSize
	binary.BigEndian.PutUint16(b[2:4], uint16(r.FeeID))
	b[4] = r.SystemID
	copy(b[5:10], r.Reserved[:])
}

// RDH is the full 64-byte Raw Data Header (RDHv6/v7; v6/v7 differ only in
// RDH0.HeaderID). See spec §3.1, §6.1 for field semantics.
type RDH struct {
	RDH0

	// RDH1
	OffsetToNext   uint16
	MemorySize     uint16
	LinkID         uint8
	PacketCounter  uint8
	PageCounter    uint16
	StopBit        uint8 // low bit significant
	rdh1Reserved   uint8
	// RDH2
	TriggerType    uint32
	rdh2Reserved   [6]byte
	// RDH3
	Orbit          uint32
	rdh3Reserved   [6]byte
	// tail (bc / detector_field / dw / data_format)
	BC             uint16 // low 12 bits significant
	tailReserved1  uint16
	DetectorField  uint32
	DW             uint8
	DataFormat     uint8
	tailReserved2  [14]byte
}

// Version returns the RDH0.HeaderID, which doubles as the version discriminator.
func (r *RDH) Version() uint8 { return r.HeaderID }

// Decode parses exactly Size bytes into an RDH. It does not validate field
// ranges — that's the validator's job (spec §4.2.3); Decode only assembles
// the struct so the scanner can compute offsets (spec §4.1).
func Decode(b []byte) (*RDH, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("rdh: need %d bytes, got %d", Size, len(b))
	}
	r := &RDH{RDH0: decodeRDH0(b[0:10])}

	r.OffsetToNext = binary.BigEndian.Uint16(b[10:12])
	r.MemorySize = binary.BigEndian.Uint16(b[12:14])
	r.LinkID = b[14]
	r.PacketCounter = b[15]
	r.PageCounter = binary.BigEndian.Uint16(b[16:18])
	r.StopBit = b[18] & 0x1
	r.rdh1Reserved = b[19]

	r.TriggerType = binary.BigEndian.Uint32(b[20:24])
	copy(r.rdh2Reserved[:], b[24:30])

	r.Orbit = binary.BigEndian.Uint32(b[30:34])
	copy(r.rdh3Reserved[:], b[34:40])

	r.BC = binary.BigEndian.Uint16(b[40:42]) & 0x0FFF
	r.tailReserved1 = binary.BigEndian.Uint16(b[42:44])
	r.DetectorField = binary.BigEndian.Uint32(b[44:48])
	r.DW = b[48]
	r.DataFormat = b[49]
	copy(r.tailReserved2[:], b[50:64])

	return r, nil
}

// EncodeInto serializes r into the first Size bytes of b (used by the
// filter-link re-serializing writer, spec §6.2 Writer consumer).
func (r *RDH) EncodeInto(b []byte) error {
	if len(b) < Size {
		return fmt.Errorf("rdh: encode buffer too small: %d < %d", len(b), Size)
	}
	r.RDH0.encodeInto(b[0:10])

	binary.BigEndian.PutUint16(b[10:12], r.OffsetToNext)
	binary.BigEndian.PutUint16(b[12:14], r.MemorySize)
	b[14] = r.LinkID
	b[15] = r.PacketCounter
	binary.BigEndian.PutUint16(b[16:18], r.PageCounter)
	b[18] = r.StopBit & 0x1
	b[19] = r.rdh1Reserved

	binary.BigEndian.PutUint32(b[20:24], r.TriggerType)
	copy(b[24:30], r.rdh2Reserved[:])

	binary.BigEndian.PutUint32(b[30:34], r.Orbit)
	copy(b[34:40], r.rdh3Reserved[:])

	binary.BigEndian.PutUint16(b[40:42], r.BC&0x0FFF)
	binary.BigEndian.PutUint16(b[42:44], r.tailReserved1)
	binary.BigEndian.PutUint32(b[44:48], r.DetectorField)
	b[48] = r.DW
	b[49] = r.DataFormat
	copy(b[50:64], r.tailReserved2[:])

	return nil
}

// triggerTypeSpareMask covers bits [31:12] of trigger_type: only the low 12
// bits carry defined trigger-type flags (spec §4.2.3 "trigger-type spare
// bits = 0"; the exact spare-bit width isn't spelled out in source docs, see
// DESIGN.md Open Question decisions).
const triggerTypeSpareMask = 0xFFFFF000

// Rdh1ReservedOK reports whether RDH1's reserved byte (spec §4.2.3 "RDH1:
// ... reserved = 0") is zero.
func (r *RDH) Rdh1ReservedOK() bool { return r.rdh1Reserved == 0 }

// TriggerTypeSpareOK reports whether the spare bits of trigger_type (spec
// §4.2.3 "trigger-type spare bits = 0") are zero.
func (r *RDH) TriggerTypeSpareOK() bool { return r.TriggerType&triggerTypeSpareMask == 0 }

// Rdh2ReservedOK reports whether RDH2's reserved bytes (spec §4.2.3 "RDH2:
// ... reserved = 0") are all zero.
func (r *RDH) Rdh2ReservedOK() bool {
	for _, b := range r.rdh2Reserved {
		if b != 0 {
			return false
		}
	}
	return true
}

// Rdh3ReservedOK reports whether RDH3's reserved bytes (spec §4.2.3 "RDH3:
// reserved = 0") are all zero.
func (r *RDH) Rdh3ReservedOK() bool {
	for _, b := range r.rdh3Reserved {
		if b != 0 {
			return false
		}
	}
	return true
}

// TailReservedOK reports whether the reserved bytes straddling bc and
// data_format (spec §4.2.3 "RDH3: reserved = 0", read as covering the whole
// RDH3-adjacent tail block) are all zero.
func (r *RDH) TailReservedOK() bool {
	if r.tailReserved1 != 0 {
		return false
	}
	for _, b := range r.tailReserved2 {
		if b != 0 {
			return false
		}
	}
	return true
}

// PayloadSize returns memory_size - header_size (spec §3.1 CdpChunk.payload).
func (r *RDH) PayloadSize() int { return int(r.MemorySize) - int(r.HeaderSize) }

// SeekDelta returns offset_to_next - memory_size, the number of bytes the
// scanner must skip after reading the payload (spec §4.1 load_cdp).
func (r *RDH) SeekDelta() int { return int(r.OffsetToNext) - int(r.MemorySize) }

// LinkKey uniquely identifies a link by (fee_id, link_id) (spec §3.1 LinkState).
type LinkKey struct {
	FeeID  uint16
	LinkID uint8
}

// Key returns this RDH's link identity.
func (r *RDH) Key() LinkKey { return LinkKey{FeeID: uint16(r.FeeID), LinkID: r.LinkID} }
