// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

import "fmt"

// BufferedSink wraps a RawSink with an internal Buffer, batching writes
// to the underlying sink so callers can perform many small primitive
// writes without a syscall (or equivalent) per call.
type BufferedSink struct {
	_      noCopy
	sink   RawSink
	buf    Buffer
	closed bool
}

// NewBufferedSink wraps sink.
func NewBufferedSink(sink RawSink) *BufferedSink {
	return &BufferedSink{sink: sink}
}

// Buffer exposes the sink's internal buffer for direct inspection.
func (s *BufferedSink) Buffer() *Buffer { return &s.buf }

// Write appends p to the internal buffer.
func (s *BufferedSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("segio: Write: %w", ErrClosed)
	}
	return s.buf.Write(p)
}

// WriteString appends s's UTF-8 bytes to the internal buffer.
func (s *BufferedSink) WriteString(str string) (int, error) { return s.Write([]byte(str)) }

// WriteByte appends a single byte.
func (s *BufferedSink) WriteByte(c byte) error {
	if s.closed {
		return fmt.Errorf("segio: WriteByte: %w", ErrClosed)
	}
	return s.buf.WriteByte(c)
}

// WriteShort appends v as a big-endian 16-bit integer.
func (s *BufferedSink) WriteShort(v int16) { s.buf.WriteShort(v) }

// WriteShortLe appends v as a little-endian 16-bit integer.
func (s *BufferedSink) WriteShortLe(v int16) { s.buf.WriteShortLe(v) }

// WriteInt appends v as a big-endian 32-bit integer.
func (s *BufferedSink) WriteInt(v int32) { s.buf.WriteInt(v) }

// WriteIntLe appends v as a little-endian 32-bit integer.
func (s *BufferedSink) WriteIntLe(v int32) { s.buf.WriteIntLe(v) }

// WriteLong appends v as a big-endian 64-bit integer.
func (s *BufferedSink) WriteLong(v int64) { s.buf.WriteLong(v) }

// WriteLongLe appends v as a little-endian 64-bit integer.
func (s *BufferedSink) WriteLongLe(v int64) { s.buf.WriteLongLe(v) }

// WriteAll transfers all bytes currently in source into the sink's
// internal buffer, consuming them from source.
func (s *BufferedSink) WriteAll(source *Buffer) (int64, error) {
	if s.closed {
		return 0, fmt.Errorf("segio: WriteAll: %w", ErrClosed)
	}
	n := source.Len()
	if err := s.buf.WriteFrom(source, n); err != nil {
		return 0, err
	}
	return n, nil
}

// Emit flushes the buffer's complete segments to the underlying sink as a
// latency hint, leaving any partial trailing segment buffered for a later
// write to fill out. Unlike Flush, it never forwards a partial segment and
// never flushes the underlying sink.
func (s *BufferedSink) Emit() error {
	if s.closed {
		return fmt.Errorf("segio: Emit: %w", ErrClosed)
	}
	n := s.buf.completeSegmentByteCount()
	if n == 0 {
		return nil
	}
	return s.sink.Write(&s.buf, n)
}

// Flush drains every buffered byte, including a partial trailing segment,
// to the underlying sink and flushes it.
func (s *BufferedSink) Flush() error {
	if s.closed {
		return fmt.Errorf("segio: Flush: %w", ErrClosed)
	}
	if n := s.buf.Len(); n > 0 {
		if err := s.sink.Write(&s.buf, n); err != nil {
			return err
		}
	}
	return s.sink.Flush()
}

// Close flushes and closes the underlying sink. Idempotent.
func (s *BufferedSink) Close() error {
	if s.closed {
		return nil
	}
	err := s.Flush()
	s.closed = true
	if cerr := s.sink.Close(); err == nil {
		err = cerr
	}
	return err
}
