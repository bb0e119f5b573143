// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

import "fmt"

// UnsafeCursor grants direct access to a Buffer's segment-internal byte
// slices without copying, for callers (such as the transformation byte
// array adapter) that must hand a codec library a contiguous []byte
// window. A cursor borrows segments from its buffer for the duration of
// each seek/resize call; the buffer must not be used by any other cursor
// concurrently, and the backing segments must not be mutated by the
// buffer owner while ResizeBuffer has added unacknowledged capacity.
type UnsafeCursor struct {
	_      noCopy
	buf    *Buffer
	seg    *segment
	offset int64 // absolute offset of seg.pos within buf
	Data   []byte
	closed bool
}

// NewUnsafeCursor attaches a cursor to buf with no segment selected; call
// Seek to select one.
func NewUnsafeCursor(buf *Buffer) *UnsafeCursor {
	return &UnsafeCursor{buf: buf}
}

// Seek moves the cursor to absolute offset within the buffer's readable
// bytes and exposes the containing segment's readable bytes as Data,
// returning the number of bytes available from offset to the end of that
// segment, or -1 when offset equals the buffer's size. An offset below 0
// or past the size fails with ErrInvalidArgument.
func (c *UnsafeCursor) Seek(offset int64) (int, error) {
	if c.closed {
		return 0, fmt.Errorf("segio: Seek: %w", ErrClosed)
	}
	if offset < 0 || offset > c.buf.size {
		return 0, fmt.Errorf("segio: Seek: %w", ErrInvalidArgument)
	}
	if offset == c.buf.size {
		c.seg = nil
		c.Data = nil
		return -1, nil
	}
	s := c.buf.head
	pos := int64(0)
	for s != nil {
		segEnd := pos + int64(s.size())
		if offset < segEnd {
			c.seg = s
			c.offset = pos
			start := s.pos + int(offset-pos)
			c.Data = s.data()[start:s.limit]
			return s.limit - start, nil
		}
		pos = segEnd
		s = s.next
		if s == c.buf.head {
			break
		}
	}
	return 0, fmt.Errorf("segio: Seek: %w", ErrInvalidArgument)
}

// Next advances from the selected segment to the start of the following
// one, returning its length, or -1 when no segment is selected: before
// the first Seek, or once the cursor has reached the end of the buffer.
func (c *UnsafeCursor) Next() (int, error) {
	if c.seg == nil {
		return -1, nil
	}
	return c.Seek(c.offset + int64(c.seg.size()))
}

// ResizeBuffer grows or shrinks the underlying buffer's total size to
// newSize, recycling trailing segments on shrink or appending fresh
// writable segments on grow, and returns the previous size.
func (c *UnsafeCursor) ResizeBuffer(newSize int64) (int64, error) {
	if c.closed {
		return 0, fmt.Errorf("segio: ResizeBuffer: %w", ErrClosed)
	}
	if newSize < 0 {
		return 0, fmt.Errorf("segio: ResizeBuffer: %w", ErrInvalidArgument)
	}
	old := c.buf.size
	switch {
	case newSize < old:
		_ = tailTrim(c.buf, old-newSize)
	case newSize > old:
		grow := newSize - old
		for grow > 0 {
			tail := c.buf.writableTail(1)
			room := int64(tail.writableCap())
			if room > grow {
				room = grow
			}
			tail.limit += int(room)
			c.buf.size += room
			grow -= room
		}
	}
	return old, nil
}

// tailTrim discards n bytes from the tail of buf (as opposed to Skip,
// which discards from the head).
func tailTrim(buf *Buffer, n int64) error {
	if n < 0 || n > buf.size {
		return fmt.Errorf("segio: tailTrim: %w", ErrInvalidArgument)
	}
	for n > 0 {
		tail := buf.head.prev
		k := int64(tail.size())
		if k > n {
			k = n
		}
		tail.limit -= int(k)
		buf.size -= k
		n -= k
		if tail.size() == 0 {
			prev := tail.prev
			tail.pop()
			if tail == buf.head {
				if prev == tail {
					buf.head = nil
				} else {
					buf.head = prev.next
				}
			}
			tail.recycle()
		}
	}
	return nil
}

// Close releases the cursor's borrowed references. Idempotent.
func (c *UnsafeCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.seg = nil
	c.Data = nil
	return nil
}
