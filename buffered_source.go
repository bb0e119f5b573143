// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

import (
	"fmt"
	"io"
)

// BufferedSource wraps a RawSource with an internal Buffer, batching
// reads from the underlying source so primitive-typed reads and lookahead
// (Peek) never need more than one upstream call per refill.
type BufferedSource struct {
	_      noCopy
	src    RawSource
	buf    Buffer
	closed bool
}

// NewBufferedSource wraps src.
func NewBufferedSource(src RawSource) *BufferedSource {
	return &BufferedSource{src: src}
}

// Buffer exposes the source's internal buffer for direct inspection.
func (s *BufferedSource) Buffer() *Buffer { return &s.buf }

// Request attempts to ensure at least byteCount bytes are buffered,
// reading from the underlying source as needed. It returns true if that
// many bytes became available, false if upstream was exhausted first.
func (s *BufferedSource) Request(byteCount int64) (bool, error) {
	if s.closed {
		return false, fmt.Errorf("segio: Request: %w", ErrClosed)
	}
	for s.buf.Len() < byteCount {
		n, err := s.src.ReadAtMostTo(&s.buf, segmentSize)
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Require ensures at least byteCount bytes are buffered, failing with
// ErrEndOfInput if upstream is exhausted first.
func (s *BufferedSource) Require(byteCount int64) error {
	ok, err := s.Request(byteCount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("segio: Require: %w", ErrEndOfInput)
	}
	return nil
}

// Peek returns a snapshot of the next byteCount buffered bytes without
// consuming them. It refills the internal buffer from upstream as needed
// but never moves the read position: each Peek call is independent and
// always starts from the buffer's current head, and a later read still
// returns the peeked bytes.
func (s *BufferedSource) Peek(byteCount int64) (ByteString, error) {
	if err := s.Require(byteCount); err != nil {
		return ByteString{}, err
	}
	var tmp Buffer
	if err := s.buf.CopyTo(&tmp, 0, byteCount); err != nil {
		return ByteString{}, err
	}
	return tmp.Snapshot(), nil
}

// IndexOf returns the absolute index of the first occurrence of want at
// or after fromIndex, reading further from upstream as needed, or -1 if
// want never appears before upstream is exhausted.
func (s *BufferedSource) IndexOf(want byte, fromIndex int64) (int64, error) {
	if s.closed {
		return -1, fmt.Errorf("segio: IndexOf: %w", ErrClosed)
	}
	for {
		idx := s.buf.IndexOf(want, fromIndex, s.buf.Len())
		if idx >= 0 {
			return idx, nil
		}
		fromIndex = s.buf.Len()
		n, err := s.src.ReadAtMostTo(&s.buf, segmentSize)
		if err != nil && err != io.EOF {
			return -1, err
		}
		if err == io.EOF || n == 0 {
			return -1, nil
		}
	}
}

// ReadByte consumes and returns the next byte.
func (s *BufferedSource) ReadByte() (byte, error) {
	if err := s.Require(1); err != nil {
		return 0, err
	}
	return s.buf.ReadByte()
}

// ReadShort consumes and returns a big-endian 16-bit integer.
func (s *BufferedSource) ReadShort() (int16, error) {
	if err := s.Require(2); err != nil {
		return 0, err
	}
	return s.buf.ReadShort()
}

// ReadShortLe consumes and returns a little-endian 16-bit integer.
func (s *BufferedSource) ReadShortLe() (int16, error) {
	if err := s.Require(2); err != nil {
		return 0, err
	}
	return s.buf.ReadShortLe()
}

// ReadInt consumes and returns a big-endian 32-bit integer.
func (s *BufferedSource) ReadInt() (int32, error) {
	if err := s.Require(4); err != nil {
		return 0, err
	}
	return s.buf.ReadInt()
}

// ReadIntLe consumes and returns a little-endian 32-bit integer.
func (s *BufferedSource) ReadIntLe() (int32, error) {
	if err := s.Require(4); err != nil {
		return 0, err
	}
	return s.buf.ReadIntLe()
}

// ReadLong consumes and returns a big-endian 64-bit integer.
func (s *BufferedSource) ReadLong() (int64, error) {
	if err := s.Require(8); err != nil {
		return 0, err
	}
	return s.buf.ReadLong()
}

// ReadLongLe consumes and returns a little-endian 64-bit integer.
func (s *BufferedSource) ReadLongLe() (int64, error) {
	if err := s.Require(8); err != nil {
		return 0, err
	}
	return s.buf.ReadLongLe()
}

// ReadAll drains the source into sink until upstream is exhausted,
// returning the total number of bytes transferred.
func (s *BufferedSource) ReadAll(sink *Buffer) (int64, error) {
	var total int64
	for {
		if s.buf.Len() == 0 {
			n, err := s.src.ReadAtMostTo(&s.buf, segmentSize)
			if err != nil && err != io.EOF {
				return total, err
			}
			if err == io.EOF || n == 0 {
				return total, nil
			}
		}
		n := s.buf.Len()
		if err := sink.WriteFrom(&s.buf, n); err != nil {
			return total, err
		}
		total += n
	}
}

// ReadAtMostTo satisfies RawSource, delegating to the internal buffer and
// refilling from upstream when it is empty.
func (s *BufferedSource) ReadAtMostTo(sink *Buffer, byteCount int64) (int64, error) {
	if s.buf.Len() == 0 {
		n, err := s.src.ReadAtMostTo(&s.buf, segmentSize)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
	}
	return s.buf.ReadAtMostTo(sink, byteCount)
}

// Close closes the underlying source. Idempotent.
func (s *BufferedSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.src.Close()
}
