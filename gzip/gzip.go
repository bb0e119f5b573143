// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gzip implements the segio.Transformation contract for the
// GZIP wire format (RFC 1952), wrapping flate's raw DEFLATE engine with
// a hand-rolled header/trailer state machine, CRC-32, and size trailer.
package gzip

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"octet.dev/segio"
	"octet.dev/segio/flate"
)

// gzipMagic is the fixed 10-byte header this package emits: ID1 ID2 CM
// FLG MTIME(4) XFL OS. MTIME is always zero (no timestamp is recorded);
// OS is 0xFF (unknown), matching the conservative, information-free
// header real-world tools emit for reproducible output.
var gzipMagic = [10]byte{0x1F, 0x8B, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF}

const (
	flagFHCRC    = 1 << 1
	flagFEXTRA   = 1 << 2
	flagFNAME    = 1 << 3
	flagFCOMMENT = 1 << 4
)

const trailerSize = 8

type writeState int

const (
	writeHeader writeState = iota
	compress
	writeDone
)

// Sink is a segio.Transformation that GZIP-compresses its input.
type Sink struct {
	body   *flate.Sink
	state  writeState
	crc    uint32
	size   uint32
	closed bool
}

// NewSink returns a Sink compressing at level (see the flate package's
// level constants).
func NewSink(level int) (*Sink, error) {
	body, err := flate.NewSink(level)
	if err != nil {
		return nil, fmt.Errorf("gzip: NewSink: %w", err)
	}
	return &Sink{body: body}, nil
}

// TransformAtMostTo drives the WRITE_HEADER -> COMPRESS state machine,
// emitting the fixed header before any compressed bytes and tracking the
// running CRC-32 and uncompressed size of everything consumed.
func (s *Sink) TransformAtMostTo(sink, source *segio.Buffer, byteCount int64) (int64, error) {
	if s.closed {
		return 0, fmt.Errorf("gzip: TransformAtMostTo: %w", segio.ErrClosed)
	}
	if s.state == writeHeader {
		if _, err := sink.Write(gzipMagic[:]); err != nil {
			return 0, err
		}
		s.state = compress
	}
	if source.Len() == 0 || byteCount <= 0 {
		return 0, nil
	}
	n := byteCount
	if n > source.Len() {
		n = source.Len()
	}
	preview, err := snapshotPrefix(source, n)
	if err != nil {
		return 0, err
	}
	consumed, err := s.body.TransformAtMostTo(sink, source, n)
	if err != nil {
		return 0, err
	}
	if consumed > 0 {
		s.crc = crc32.Update(s.crc, crc32.IEEETable, preview[:consumed])
		s.size += uint32(consumed)
	}
	return consumed, nil
}

// snapshotPrefix returns a copy of the first n bytes of source without
// consuming them, so the caller can compute a checksum over exactly the
// bytes a subsequent consuming call will take.
func snapshotPrefix(source *segio.Buffer, n int64) ([]byte, error) {
	var tmp segio.Buffer
	if err := source.CopyTo(&tmp, 0, n); err != nil {
		return nil, err
	}
	return tmp.Snapshot().ToByteArray(), nil
}

// Finish flushes the DEFLATE body, then writes the 8-byte trailer (CRC-32
// and uncompressed size, both little-endian, matching |x| mod 2^32).
// Idempotent.
func (s *Sink) Finish(sink *segio.Buffer) error {
	if s.state == writeDone {
		return nil
	}
	if s.state == writeHeader {
		if _, err := sink.Write(gzipMagic[:]); err != nil {
			return err
		}
		s.state = compress
	}
	if err := s.body.Finish(sink); err != nil {
		return err
	}
	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint32(trailer[0:4], s.crc)
	binary.LittleEndian.PutUint32(trailer[4:8], s.size)
	if _, err := sink.Write(trailer[:]); err != nil {
		return err
	}
	s.state = writeDone
	return nil
}

// Close releases the Sink. Idempotent.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

type readState int

const (
	readHeader readState = iota
	readBody
	readDone
)

// Source is a segio.Transformation that GZIP-decompresses its input. It
// parses the fixed 10-byte header incrementally, then accumulates the
// remaining bytes (optional FEXTRA/FNAME/FCOMMENT/FHCRC fields, DEFLATE
// stream and 8-byte trailer, not yet distinguishable while more input may
// still arrive) and defers skipping the optional fields, inflation and
// trailer verification to Finish, mirroring flate.Source's all-at-once
// strategy.
type Source struct {
	body   *flate.Source
	raw    segio.Buffer // fixed header bytes, accumulated until 10 are present
	tail   segio.Buffer // everything after the fixed header: optional fields + deflate stream + trailer
	state  readState
	flg    byte
	closed bool
}

// NewSource returns a Source ready to decompress a single GZIP stream.
func NewSource() *Source {
	return &Source{body: flate.NewSource()}
}

// TransformAtMostTo consumes up to byteCount bytes, parsing the header
// once enough bytes have arrived and otherwise accumulating everything
// else verbatim for Finish to process.
func (s *Source) TransformAtMostTo(sink, source *segio.Buffer, byteCount int64) (int64, error) {
	if s.closed {
		return 0, fmt.Errorf("gzip: TransformAtMostTo: %w", segio.ErrClosed)
	}
	if source.Len() == 0 || byteCount <= 0 {
		return 0, nil
	}
	var consumed int64
	if s.state == readHeader {
		need := int64(10) - s.raw.Len()
		avail := source.Len()
		n := need
		if n > avail {
			n = avail
		}
		if n > byteCount {
			n = byteCount
		}
		if err := s.raw.WriteFrom(source, n); err != nil {
			return 0, err
		}
		consumed += n
		if s.raw.Len() < 10 {
			return consumed, nil
		}
		if err := s.validateMagic(); err != nil {
			return 0, err
		}
		s.state = readBody
	}
	remaining := byteCount - consumed
	if remaining > 0 && source.Len() > 0 {
		n := remaining
		if n > source.Len() {
			n = source.Len()
		}
		if err := s.tail.WriteFrom(source, n); err != nil {
			return 0, err
		}
		consumed += n
	}
	return consumed, nil
}

func (s *Source) validateMagic() error {
	hdr := s.raw.Snapshot().ToByteArray()
	if hdr[0] != 0x1F || hdr[1] != 0x8B || hdr[2] != 0x08 {
		return fmt.Errorf("gzip: TransformAtMostTo: %w: bad magic", segio.ErrMalformed)
	}
	s.flg = hdr[3]
	return nil
}

// skipOptionalFields removes FEXTRA/FNAME/FCOMMENT/FHCRC bytes from the
// front of s.tail per the flags recorded from the fixed header, without
// surfacing their content, leaving only the DEFLATE stream plus trailer.
func (s *Source) skipOptionalFields() error {
	if s.flg&flagFEXTRA != 0 {
		if s.tail.Len() < 2 {
			return fmt.Errorf("gzip: Finish: %w: truncated FEXTRA length", segio.ErrMalformed)
		}
		xlen, err := s.tail.ReadShortLe()
		if err != nil {
			return err
		}
		if err := s.tail.Skip(int64(uint16(xlen))); err != nil {
			return fmt.Errorf("gzip: Finish: %w: truncated FEXTRA", segio.ErrMalformed)
		}
	}
	if s.flg&flagFNAME != 0 {
		if err := s.skipNulTerminated(); err != nil {
			return err
		}
	}
	if s.flg&flagFCOMMENT != 0 {
		if err := s.skipNulTerminated(); err != nil {
			return err
		}
	}
	if s.flg&flagFHCRC != 0 {
		if s.tail.Len() < 2 {
			return fmt.Errorf("gzip: Finish: %w: truncated FHCRC", segio.ErrMalformed)
		}
		if err := s.tail.Skip(2); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) skipNulTerminated() error {
	idx := s.tail.IndexOf(0, 0, s.tail.Len())
	if idx < 0 {
		return fmt.Errorf("gzip: Finish: %w: unterminated name/comment field", segio.ErrMalformed)
	}
	return s.tail.Skip(idx + 1)
}

// Finish decompresses the accumulated DEFLATE stream, writes the result
// to sink, and verifies the trailer's CRC-32 and size against what was
// actually produced. Idempotent.
func (s *Source) Finish(sink *segio.Buffer) error {
	if s.state == readDone {
		return nil
	}
	if s.state == readHeader {
		return fmt.Errorf("gzip: Finish: %w: truncated header", segio.ErrMalformed)
	}
	if err := s.skipOptionalFields(); err != nil {
		return err
	}
	if s.tail.Len() < trailerSize {
		return fmt.Errorf("gzip: Finish: %w: truncated or corrupt", segio.ErrMalformed)
	}
	bodyLen := s.tail.Len() - trailerSize
	var trailerBuf segio.Buffer
	if err := s.tail.CopyTo(&trailerBuf, bodyLen, trailerSize); err != nil {
		return err
	}
	if bodyLen > 0 {
		if _, err := s.body.TransformAtMostTo(sink, &s.tail, bodyLen); err != nil {
			return err
		}
	}
	// Discard the trailer bytes still sitting in s.tail; they were
	// copied out above and must not reach the DEFLATE engine.
	if err := s.tail.Skip(s.tail.Len()); err != nil {
		return err
	}
	before := sink.Len()
	if err := s.body.Finish(sink); err != nil {
		return err
	}
	produced := sink.Len() - before
	var producedCopy segio.Buffer
	if err := sink.CopyTo(&producedCopy, sink.Len()-produced, produced); err != nil {
		return err
	}
	full := producedCopy.Snapshot().ToByteArray()
	gotCRC := crc32.ChecksumIEEE(full)
	gotSize := uint32(len(full))
	trailer := trailerBuf.Snapshot().ToByteArray()
	wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
	wantSize := binary.LittleEndian.Uint32(trailer[4:8])
	if gotCRC != wantCRC || gotSize != wantSize {
		return fmt.Errorf("gzip: Finish: %w: trailer mismatch", segio.ErrMalformed)
	}
	s.state = readDone
	return nil
}

// Close releases the Source. Idempotent.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
