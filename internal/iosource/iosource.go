// Package iosource implements the minimal Reader contract the scanner needs
// (spec §6.2) over a plain file and over stdin. This is explicitly the
// "File and stdin wrappers beyond the minimal reader contract" the spec
// marks out of scope for the core (§1), kept intentionally thin.
package iosource

import (
	"bufio"
	"errors"
	"io"
)

// discardChunk bounds a single io.CopyN call when skipping ahead on a
// non-seekable stream, so a pathological delta can't demand one giant
// allocation-free copy in a single call (io.CopyN itself streams, but this
// keeps the intent explicit).
const discardChunk = 64 * 1024

// File wraps an os.File (or any io.ReadSeeker) to satisfy scanner.Reader via
// native forward seeking.
type File struct {
	r io.ReadSeeker
}

// NewFile wraps rs for use as a scanner.Reader.
func NewFile(rs io.ReadSeeker) *File { return &File{r: rs} }

func (f *File) Read(p []byte) (int, error) { return f.r.Read(p) }

// SeekRelative advances the file position by delta bytes (spec §6.2: "Must
// support >= forward seeking").
func (f *File) SeekRelative(delta int64) error {
	if delta == 0 {
		return nil
	}
	_, err := f.r.Seek(delta, io.SeekCurrent)
	return err
}

// Stdin wraps an arbitrary io.Reader (typically os.Stdin) and implements
// forward seeking by discarding bytes, since stdin can't seek natively
// (spec §6.2: "over stdin, implemented via a discarding buffer").
type Stdin struct {
	r *bufio.Reader
}

// NewStdin wraps r for use as a scanner.Reader.
func NewStdin(r io.Reader) *Stdin {
	return &Stdin{r: bufio.NewReaderSize(r, 256*1024)}
}

func (s *Stdin) Read(p []byte) (int, error) { return s.r.Read(p) }

// SeekRelative discards delta bytes from the stream. Negative deltas are
// rejected: stdin has no backward-seek capability.
func (s *Stdin) SeekRelative(delta int64) error {
	if delta < 0 {
		return errors.New("iosource: cannot seek backward on stdin")
	}
	if delta == 0 {
		return nil
	}
	remaining := delta
	for remaining > 0 {
		n := remaining
		if n > discardChunk {
			n = discardChunk
		}
		copied, err := io.CopyN(io.Discard, s.r, n)
		remaining -= copied
		if err != nil {
			return err
		}
	}
	return nil
}
