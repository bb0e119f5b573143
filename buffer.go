// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Sentinel error kinds. Wrapped with fmt.Errorf("segio: %s: %w", op, kind)
// at the call site; check with errors.Is.
var (
	// ErrEndOfInput is raised by Require/ReadX when fewer bytes are
	// available than requested and no more will ever arrive.
	ErrEndOfInput = errors.New("end of input")
	// ErrInvalidArgument is raised for negative counts, bad offsets, or
	// unsupported option values (e.g. an out-of-range compression level).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed is raised by an operation attempted after Close on a type
	// that checks for it; not every method of every type does.
	ErrClosed = errors.New("use after close")
	// ErrMalformed is raised for corrupt wire data (bad gzip magic, CRC
	// or size mismatch, truncated DEFLATE stream).
	ErrMalformed = errors.New("malformed input")
)

// RawSource is the unbuffered read half of a byte stream. Implementations
// fill sink's tail with between 0 and byteCount bytes and return the
// number of bytes read, or (0, io.EOF) when the stream is permanently
// exhausted. Read never returns (0, nil) except when byteCount == 0.
type RawSource interface {
	ReadAtMostTo(sink *Buffer, byteCount int64) (int64, error)
	Close() error
}

// RawSink is the unbuffered write half of a byte stream. Write must
// consume exactly byteCount bytes from source's head.
type RawSink interface {
	Write(source *Buffer, byteCount int64) error
	Flush() error
	Close() error
}

// Buffer is an ordered cycle of segments that is simultaneously a
// RawSource and a RawSink: the canonical in-memory byte sequence used by
// every other type in this package. The zero value is an empty buffer
// ready to use.
//
// Buffer is not safe for concurrent use; it is owned by a single logical
// writer/reader pair at a time.
type Buffer struct {
	_    noCopy
	head *segment
	size int64
}

// Len returns the number of bytes currently buffered.
func (b *Buffer) Len() int64 { return b.size }

// completeSegmentByteCount returns the number of bytes that belong to
// full, no-longer-writable segments: b.size minus the tail segment's own
// bytes, but only when that tail is still an owner segment with spare
// capacity (i.e. still a candidate for more Write calls to append into).
// A tail that is full or shared counts as complete like any other
// segment.
func (b *Buffer) completeSegmentByteCount() int64 {
	if b.head == nil {
		return 0
	}
	result := b.size
	tail := b.head.prev
	if tail.owner && !tail.shared && tail.limit < segmentSize {
		result -= int64(tail.size())
	}
	return result
}

// writableTail returns a tail segment with at least minCapacity bytes of
// free room, allocating and appending a new one if needed.
func (b *Buffer) writableTail(minCapacity int) *segment {
	if b.head == nil {
		s := takeSegment()
		s.prev, s.next = s, s
		b.head = s
		return s
	}
	tail := b.head.prev
	if tail.owner && !tail.shared && tail.writableCap() >= minCapacity {
		return tail
	}
	s := takeSegment()
	s.pushAfter(tail)
	return s
}

// Write appends all of p to the buffer. It always returns len(p), nil to
// satisfy io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		tail := b.writableTail(1)
		room := tail.writableCap()
		k := len(p)
		if k > room {
			k = room
		}
		copy(tail.data()[tail.limit:], p[:k])
		tail.limit += k
		p = p[k:]
		b.size += int64(k)
	}
	return n, nil
}

// WriteString appends the UTF-8 bytes of s.
func (b *Buffer) WriteString(s string) (int, error) { return b.Write([]byte(s)) }

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	tail := b.writableTail(1)
	tail.data()[tail.limit] = c
	tail.limit++
	b.size++
	return nil
}

// WriteShort appends v as a big-endian 16-bit integer.
func (b *Buffer) WriteShort(v int16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(v))
	_, _ = b.Write(tmp[:])
}

// WriteShortLe appends v as a little-endian 16-bit integer.
func (b *Buffer) WriteShortLe(v int16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(v))
	_, _ = b.Write(tmp[:])
}

// WriteInt appends v as a big-endian 32-bit integer.
func (b *Buffer) WriteInt(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	_, _ = b.Write(tmp[:])
}

// WriteIntLe appends v as a little-endian 32-bit integer.
func (b *Buffer) WriteIntLe(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	_, _ = b.Write(tmp[:])
}

// WriteLong appends v as a big-endian 64-bit integer.
func (b *Buffer) WriteLong(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	_, _ = b.Write(tmp[:])
}

// WriteLongLe appends v as a little-endian 64-bit integer.
func (b *Buffer) WriteLongLe(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	_, _ = b.Write(tmp[:])
}

// ReadByte consumes and returns the first byte. Fails with ErrEndOfInput
// on an empty buffer.
func (b *Buffer) ReadByte() (byte, error) {
	if b.head == nil {
		return 0, fmt.Errorf("segio: ReadByte: %w", ErrEndOfInput)
	}
	h := b.head
	c := h.data()[h.pos]
	h.pos++
	b.size--
	b.popHeadIfEmpty()
	return c, nil
}

// ReadShort consumes and returns a big-endian 16-bit integer.
func (b *Buffer) ReadShort() (int16, error) {
	var tmp [2]byte
	if err := b.readFull(tmp[:]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(tmp[:])), nil
}

// ReadShortLe consumes and returns a little-endian 16-bit integer.
func (b *Buffer) ReadShortLe() (int16, error) {
	var tmp [2]byte
	if err := b.readFull(tmp[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(tmp[:])), nil
}

// ReadInt consumes and returns a big-endian 32-bit integer.
func (b *Buffer) ReadInt() (int32, error) {
	var tmp [4]byte
	if err := b.readFull(tmp[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(tmp[:])), nil
}

// ReadIntLe consumes and returns a little-endian 32-bit integer.
func (b *Buffer) ReadIntLe() (int32, error) {
	var tmp [4]byte
	if err := b.readFull(tmp[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(tmp[:])), nil
}

// ReadLong consumes and returns a big-endian 64-bit integer.
func (b *Buffer) ReadLong() (int64, error) {
	var tmp [8]byte
	if err := b.readFull(tmp[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(tmp[:])), nil
}

// ReadLongLe consumes and returns a little-endian 64-bit integer.
func (b *Buffer) ReadLongLe() (int64, error) {
	var tmp [8]byte
	if err := b.readFull(tmp[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(tmp[:])), nil
}

func (b *Buffer) readFull(p []byte) error {
	if b.size < int64(len(p)) {
		return fmt.Errorf("segio: read: %w", ErrEndOfInput)
	}
	n, err := b.Read(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("segio: read: %w", ErrEndOfInput)
	}
	return nil
}

// Read consumes up to len(p) bytes. Implements io.Reader; returns
// (0, io.EOF) when the buffer is empty, and (0, nil) only when len(p) == 0.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.head == nil {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && b.head != nil {
		h := b.head
		k := len(p) - n
		if k > h.size() {
			k = h.size()
		}
		copy(p[n:n+k], h.data()[h.pos:h.pos+k])
		h.pos += k
		n += k
		b.size -= int64(k)
		b.popHeadIfEmpty()
	}
	return n, nil
}

func (b *Buffer) popHeadIfEmpty() {
	h := b.head
	if h.size() > 0 {
		return
	}
	next := h.pop()
	if next == h || next == nil {
		b.head = nil
	} else {
		b.head = next
	}
	h.recycle()
}

// ReadAtMostTo copies up to byteCount bytes into sink, consuming them from
// b. Returns (0, io.EOF) exactly when b is empty: per the RawSource
// contract, an empty Buffer is permanently exhausted from the perspective
// of a caller that will never write more into it directly (upstream
// refills happen one layer up, in BufferedSource).
func (b *Buffer) ReadAtMostTo(sink *Buffer, byteCount int64) (int64, error) {
	if byteCount < 0 {
		return 0, fmt.Errorf("segio: ReadAtMostTo: %w", ErrInvalidArgument)
	}
	if b.size == 0 {
		if byteCount == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if byteCount > b.size {
		byteCount = b.size
	}
	if err := sink.WriteFrom(b, byteCount); err != nil {
		return 0, err
	}
	return byteCount, nil
}

// Close is a no-op: a Buffer holds no external resources.
func (b *Buffer) Close() error { return nil }

// Flush is a no-op: a Buffer has no downstream to flush.
func (b *Buffer) Flush() error { return nil }

// WriteFrom transfers exactly count bytes from source's head into b's
// tail, consuming them from source. Segment-aligned transfers are moved
// (spliced) without a byte copy; otherwise segments are split or their
// bytes copied. Fails with ErrInvalidArgument when count is negative or
// exceeds source's size.
func (b *Buffer) WriteFrom(source *Buffer, count int64) error {
	if count < 0 {
		return fmt.Errorf("segio: WriteFrom: %w", ErrInvalidArgument)
	}
	if count > source.size {
		return fmt.Errorf("segio: WriteFrom: %w", ErrInvalidArgument)
	}
	remaining := count
	for remaining > 0 {
		head := source.head
		headSize := int64(head.size())

		if remaining < headSize {
			// Only a prefix of head is wanted. If our own tail can
			// absorb it by copy, do that; otherwise split head so the
			// remainder can be moved as a whole segment next iteration.
			if tail := b.head; tail != nil {
				t := tail.prev
				if t.owner && !t.shared && int64(t.writableCap()) >= remaining {
					head.writeTo(b, int(remaining))
					b.size += remaining
					source.size -= remaining
					remaining = 0
					continue
				}
			}
			prefix := head.split(int(remaining))
			if source.head == head {
				source.head = prefix
			}
			head = prefix
			headSize = remaining
		}

		// Move the whole head segment across without copying bytes.
		moved := head.pop()
		if moved == head {
			moved = nil
		}
		source.head = moved
		if b.head == nil {
			head.prev, head.next = head, head
			b.head = head
		} else {
			tail := b.head.prev
			head.pushAfter(tail)
			if !tail.shared {
				head.compactInto(tail)
			}
		}
		b.size += headSize
		source.size -= headSize
		remaining -= headSize
	}
	return nil
}

// CopyTo copies count bytes starting at offset into sink without
// consuming them from b.
func (b *Buffer) CopyTo(sink *Buffer, offset, count int64) error {
	if offset < 0 || count < 0 || offset+count > b.size {
		return fmt.Errorf("segio: CopyTo: %w", ErrInvalidArgument)
	}
	s := b.head
	pos := int64(0)
	for s != nil && pos+int64(s.size()) <= offset {
		pos += int64(s.size())
		s = s.next
		if s == b.head {
			s = nil
		}
	}
	remaining := count
	localOff := offset - pos
	for remaining > 0 {
		avail := int64(s.size()) - localOff
		k := avail
		if k > remaining {
			k = remaining
		}
		start := s.pos + int(localOff)
		sink.Write(s.data()[start : start+int(k)])
		remaining -= k
		localOff = 0
		s = s.next
	}
	return nil
}

// IndexOf scans for the first occurrence of want at or after fromIndex and
// before toIndex, returning its absolute index or -1.
func (b *Buffer) IndexOf(want byte, fromIndex, toIndex int64) int64 {
	if fromIndex < 0 {
		fromIndex = 0
	}
	if toIndex > b.size {
		toIndex = b.size
	}
	if fromIndex >= toIndex {
		return -1
	}
	s := b.head
	pos := int64(0)
	for s != nil {
		segEnd := pos + int64(s.size())
		if segEnd > fromIndex {
			start := s.pos
			if fromIndex > pos {
				start += int(fromIndex - pos)
			}
			end := s.limit
			if segEnd > toIndex {
				end = s.pos + int(toIndex-pos)
			}
			data := s.data()
			for i := start; i < end; i++ {
				if data[i] == want {
					return pos + int64(i-s.pos)
				}
			}
		}
		pos = segEnd
		s = s.next
		if s == b.head {
			break
		}
	}
	return -1
}

// IndexOfByteString searches for the literal byte sequence of want at or
// after fromIndex. An empty want returns fromIndex clamped to [0, size].
func (b *Buffer) IndexOfByteString(want ByteString, fromIndex int64) int64 {
	n := int64(want.Size())
	if n == 0 {
		if fromIndex < 0 {
			return 0
		}
		if fromIndex > b.size {
			return b.size
		}
		return fromIndex
	}
	if fromIndex < 0 {
		fromIndex = 0
	}
	first := want.data[0]
	for {
		idx := b.IndexOf(first, fromIndex, b.size-n+1)
		if idx < 0 {
			return -1
		}
		if b.regionMatches(idx, want) {
			return idx
		}
		fromIndex = idx + 1
	}
}

func (b *Buffer) regionMatches(start int64, want ByteString) bool {
	n := int64(want.Size())
	if start+n > b.size {
		return false
	}
	var tmp Buffer
	_ = b.CopyTo(&tmp, start, n)
	got := tmp.Snapshot()
	return got.ContentEquals(want)
}

// Snapshot returns an immutable copy of b's current contents.
func (b *Buffer) Snapshot() ByteString {
	out := make([]byte, b.size)
	s := b.head
	pos := 0
	for s != nil {
		pos += copy(out[pos:], s.data()[s.pos:s.limit])
		s = s.next
		if s == b.head {
			break
		}
	}
	return ByteString{data: out}
}

// Clear removes all bytes from b, recycling every segment.
func (b *Buffer) Clear() {
	_ = b.Skip(b.size)
}

// Skip discards n bytes from the head of b.
func (b *Buffer) Skip(n int64) error {
	if n < 0 || n > b.size {
		return fmt.Errorf("segio: Skip: %w", ErrInvalidArgument)
	}
	for n > 0 {
		h := b.head
		k := int64(h.size())
		if k > n {
			k = n
		}
		h.pos += int(k)
		b.size -= k
		n -= k
		b.popHeadIfEmpty()
	}
	return nil
}
