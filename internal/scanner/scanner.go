// Package scanner incrementally parses a raw byte stream of RDH+payload
// pairs into CdpChunks (spec §4.1). It is grounded on the teacher's
// internal/rtmp/chunk/reader.go Reader: a single-goroutine, non-concurrent
// decoder that consumes an io.Reader and emits one fully-framed entity at a
// time, wrapping I/O failures in a package-specific error type.
package scanner

import (
	"fmt"
	"io"

	"github.com/cern-its/pasta-inspector/internal/bufpool"
	protoerr "github.com/cern-its/pasta-inspector/internal/errors"
	"github.com/cern-its/pasta-inspector/internal/pipeline"
	"github.com/cern-its/pasta-inspector/internal/rdh"
	"github.com/cern-its/pasta-inspector/internal/stats"
)

// MaxPayloadPlusHeader is the 20480-byte bound the scanner enforces on a
// CdpChunk's payload length (spec §3.2 invariant 1: "0 <= payload.len <=
// 20480"); less one RDH it is also the bound on the post-payload seek (§4.1
// load_cdp: seek_delta "<= 20480-64").
const MaxPayloadPlusHeader = 20480

// MaxSeekDelta is the largest legal gap between the end of a payload and the
// start of the next RDH (spec §4.1 load_cdp).
const MaxSeekDelta = MaxPayloadPlusHeader - rdh.Size

// Reader is the minimal collaborator contract a Scanner needs (spec §6.2):
// sequential reads plus forward-only relative seeking. Over stdin this is
// implemented by the caller as a discarding buffer (spec §6.2).
type Reader interface {
	io.Reader
	SeekRelative(delta int64) error
}

// CdpChunk is the scanner's output unit (spec §3.1): an RDH, its payload
// bytes (zero-copy view owned by this chunk until Release is called), and
// the absolute byte offset at which the RDH began.
type CdpChunk struct {
	RDH     *rdh.RDH
	Payload []byte
	MemPos  uint64
}

// Release returns the chunk's payload buffer to the shared bufpool (spec
// DESIGN.md: "returned by the validator once a chunk is fully checked").
// Safe to call once; safe on a zero-length/nil payload.
func (c *CdpChunk) Release() {
	bufpool.Put(c.Payload)
	c.Payload = nil
}

// Scanner parses RDH0->RDHv6/v7 and their payloads from an underlying
// Reader (spec §4.1). Not safe for concurrent use — it is intended to be
// driven by exactly one goroutine (Run), mirroring the teacher's
// single-reader-goroutine chunk.Reader.
type Scanner struct {
	r      Reader
	memPos uint64

	latchedHeaderID uint8
	haveLatch       bool
}

// New returns a Scanner reading from r.
func New(r Reader) *Scanner { return &Scanner{r: r} }

// MemPos returns the scanner's current logical stream position (spec §4.1
// "memory-position tracker").
func (s *Scanner) MemPos() uint64 { return s.memPos }

// LatchedHeaderID returns the first RDH header_id ever observed by this
// scanner (spec §9 "Global state": "only the latched first header_id is
// process-wide; it is set once and read-only thereafter").
func (s *Scanner) LatchedHeaderID() (uint8, bool) { return s.latchedHeaderID, s.haveLatch }

// LoadRDH reads the next 64-byte RDH (spec §4.1 load_rdh). Returns io.EOF
// (unwrapped) when the stream ends cleanly at an RDH boundary; any other
// read failure, or an unsupported header_id, is a fatal *errors.ScannerError.
func (s *Scanner) LoadRDH() (*rdh.RDH, error) {
	head := bufpool.Get(rdh.Size0)
	n, err := io.ReadFull(s.r, head)
	if err != nil {
		bufpool.Put(head)
		if err == io.EOF && n == 0 {
			return nil, io.EOF
		}
		return nil, protoerr.NewScannerError("load_rdh", protoerr.KindShortRead, s.memPos, err)
	}
	headerID := head[0]
	if !rdh.SupportedHeaderID(headerID) {
		bufpool.Put(head)
		return nil, protoerr.NewScannerError("load_rdh", protoerr.KindUnsupportedRdhVersion, s.memPos,
			fmt.Errorf("header_id=0x%x", headerID))
	}

	full := bufpool.Get(rdh.Size)
	copy(full, head)
	bufpool.Put(head)
	if _, err := io.ReadFull(s.r, full[rdh.Size0:]); err != nil {
		bufpool.Put(full)
		return nil, protoerr.NewScannerError("load_rdh", protoerr.KindShortRead, s.memPos+rdh.Size0, err)
	}

	r, err := rdh.Decode(full)
	bufpool.Put(full)
	if err != nil {
		return nil, protoerr.NewScannerError("load_rdh", protoerr.KindShortRead, s.memPos, err)
	}

	if !s.haveLatch {
		s.latchedHeaderID, s.haveLatch = headerID, true
	}
	s.memPos += rdh.Size
	return r, nil
}

// LoadPayload reads exactly size bytes (spec §4.1 load_payload). size==0
// returns a nil slice with no read performed (spec Open Question: a
// zero-length payload mid-stream is accepted silently).
func (s *Scanner) LoadPayload(size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	buf := bufpool.Get(size)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		bufpool.Put(buf)
		return nil, protoerr.NewScannerError("load_payload", protoerr.KindShortRead, s.memPos, err)
	}
	s.memPos += uint64(size)
	return buf, nil
}

// LoadCdp reads one full RDH+payload pair and advances past any inter-chunk
// gap (spec §4.1 load_cdp). Both payload_size and seek_delta are validated
// against the spec's bounds; any violation is a fatal BadOffset.
func (s *Scanner) LoadCdp() (CdpChunk, error) {
	startPos := s.memPos
	r, err := s.LoadRDH()
	if err != nil {
		return CdpChunk{}, err
	}
	return s.finishCdp(r, startPos)
}

// finishCdp reads r's payload and skips past any inter-chunk gap, assuming
// r's 64-byte header has already been consumed at startPos.
func (s *Scanner) finishCdp(r *rdh.RDH, startPos uint64) (CdpChunk, error) {
	payloadSize := r.PayloadSize()
	if payloadSize < 0 || payloadSize > MaxPayloadPlusHeader {
		return CdpChunk{}, protoerr.NewScannerError("load_cdp", protoerr.KindBadOffset, s.memPos,
			fmt.Errorf("payload_size=%d out of range", payloadSize))
	}

	payload, err := s.LoadPayload(payloadSize)
	if err != nil {
		return CdpChunk{}, err
	}

	seekDelta := r.SeekDelta()
	if seekDelta < 0 || seekDelta > MaxSeekDelta {
		bufpool.Put(payload)
		return CdpChunk{}, protoerr.NewScannerError("load_cdp", protoerr.KindBadOffset, s.memPos,
			fmt.Errorf("seek_delta=%d out of range", seekDelta))
	}
	if seekDelta > 0 {
		if err := s.r.SeekRelative(int64(seekDelta)); err != nil {
			bufpool.Put(payload)
			return CdpChunk{}, protoerr.NewScannerError("load_cdp", protoerr.KindShortRead, s.memPos, err)
		}
		s.memPos += uint64(seekDelta)
	}

	return CdpChunk{RDH: r, Payload: payload, MemPos: startPos}, nil
}

// LoadNextRdhToFilter behaves like LoadRDH but skips (via seek, without
// materializing the payload) any RDH whose link_id does not match linkID
// (spec §4.1 load_next_rdh_to_filter).
func (s *Scanner) LoadNextRdhToFilter(linkID uint8) (*rdh.RDH, error) {
	for {
		r, err := s.LoadRDH()
		if err != nil {
			return nil, err
		}
		if r.LinkID == linkID {
			return r, nil
		}

		skip := int(r.OffsetToNext) - rdh.Size
		if skip < 0 || skip > MaxSeekDelta+rdh.Size {
			return nil, protoerr.NewScannerError("load_next_rdh_to_filter", protoerr.KindBadOffset, s.memPos,
				fmt.Errorf("offset_to_next skip=%d out of range", skip))
		}
		if skip > 0 {
			if err := s.r.SeekRelative(int64(skip)); err != nil {
				return nil, protoerr.NewScannerError("load_next_rdh_to_filter", protoerr.KindShortRead, s.memPos, err)
			}
			s.memPos += uint64(skip)
		}
	}
}

// Run drives the scan loop to completion: it reads CdpChunks until EOF or a
// fatal error, sending each chunk on input and an EventRDHSeen on statsQ for
// every chunk it forwards (spec §2: scanner "emits CdpChunk batches onto
// InputQ; emits observed-RDH statistics onto StatsQ"). When linkFilter is
// non-nil, only chunks for that link_id are materialized and forwarded;
// others are skipped via LoadNextRdhToFilter without a payload read and
// without an EventRDHSeen.
//
// Run always disconnects both queues before returning (spec §5: "the
// scanner closes InputQ, which triggers the validator to drain...").
func (s *Scanner) Run(input *pipeline.Queue[CdpChunk], statsQ *pipeline.Queue[stats.Event], linkFilter *uint8) error {
	defer input.Disconnect()
	defer statsQ.Disconnect()

	for {
		chunk, err := s.next(linkFilter)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			statsQ.Send(stats.Event{Kind: stats.EventError, MemPos: s.memPos, Err: err})
			return err
		}
		statsQ.Send(stats.Event{Kind: stats.EventRDHSeen, Link: chunk.RDH.Key(), MemPos: chunk.MemPos})
		input.Send(chunk)
	}
}

func (s *Scanner) next(linkFilter *uint8) (CdpChunk, error) {
	if linkFilter == nil {
		return s.LoadCdp()
	}

	r, err := s.LoadNextRdhToFilter(*linkFilter)
	if err != nil {
		return CdpChunk{}, err
	}
	return s.finishCdp(r, s.memPos-rdh.Size)
}
