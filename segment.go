// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

import "sync/atomic"

// sharedArray is the reference-counted backing array for one or more
// segments. refs counts outstanding segment wrappers; the array returns to
// a pool tier only when the last wrapper releases it.
type sharedArray struct {
	data [segmentSize]byte
	refs atomic.Int32

	// l2idx is the BoundedPool indirect index this array was obtained
	// from, or -1 if it came from L1 (sync.Pool) or a fresh allocation.
	l2idx int
}

func newSharedArray() *sharedArray {
	sa := &sharedArray{l2idx: -1}
	sa.refs.Store(1)
	return sa
}

// acquire adds one more live reference to the array, marking it shared.
func (sa *sharedArray) acquire() {
	sa.refs.Add(1)
}

// release drops one live reference, returning true when the count reaches
// zero (the array may be returned to a pool tier).
func (sa *sharedArray) release() bool {
	return sa.refs.Add(-1) == 0
}

// shared reports whether more than one segment currently references this
// array.
func (sa *sharedArray) shared() bool {
	return sa.refs.Load() > 1
}

// segment is a node in a buffer's circular doubly linked list of readable
// bytes. pos is the first readable index, limit is one past the last
// readable/first writable index. shared segments must not be written to;
// owner segments may extend limit.
type segment struct {
	arr    *sharedArray
	pos    int
	limit  int
	shared bool
	owner  bool

	prev, next *segment
}

func (s *segment) data() *[segmentSize]byte { return &s.arr.data }

// size is the number of readable bytes in this segment.
func (s *segment) size() int { return s.limit - s.pos }

// writableCap is how many more bytes may be appended before reallocating.
func (s *segment) writableCap() int { return segmentSize - s.limit }

// writeTo copies byteCount bytes (byteCount must be <= s.size()) from the
// head of s into the tail of dst, allocating a new tail segment when the
// current one lacks room, and advances s.pos. This is the copying half of
// Buffer's transfer algorithm; Buffer.WriteFrom decides separately when a
// whole segment can instead be spliced across without copying (see the
// move/copy tie-break in Buffer.WriteFrom).
func (s *segment) writeTo(dst *Buffer, byteCount int) {
	if byteCount <= 0 || byteCount > s.size() {
		panic("segio: invalid writeTo byteCount")
	}
	tail := dst.writableTail(byteCount)
	copy(tail.data()[tail.limit:], s.data()[s.pos:s.pos+byteCount])
	tail.limit += byteCount
	s.pos += byteCount
}

// split returns a new segment sharing s's backing array, limited to
// [s.pos, s.pos+offset) - the bytes that come before what remains of s in
// read order. The new segment is spliced into s's cycle immediately
// before s, so it becomes the new head when s was the head; s.pos
// advances by offset to cover only the remainder. Both segments are
// marked shared. Used for zero-copy prefix hand-off.
func (s *segment) split(offset int) *segment {
	if offset <= 0 || offset > s.size() {
		panic("segio: invalid split offset")
	}
	s.arr.acquire()
	prefix := &segment{
		arr:    s.arr,
		pos:    s.pos,
		limit:  s.pos + offset,
		shared: true,
		owner:  false,
	}
	s.shared = true
	s.pos += offset

	prefix.prev = s.prev
	prefix.next = s
	s.prev.next = prefix
	s.prev = prefix
	return prefix
}

// compactInto copies s's bytes into prev's tail and releases s, when the
// combined used bytes fit in prev's capacity and neither is shared.
// Returns true when the compaction happened.
func (s *segment) compactInto(prev *segment) bool {
	if prev.shared || s.shared || !prev.owner {
		return false
	}
	if prev.limit+s.size() > segmentSize {
		return false
	}
	copy(prev.data()[prev.limit:], s.data()[s.pos:s.limit])
	prev.limit += s.size()
	s.pop()
	s.recycle()
	return true
}

// pushAfter splices s into the cycle immediately after other.
func (s *segment) pushAfter(other *segment) {
	s.prev = other
	s.next = other.next
	s.next.prev = s
	other.next = s
}

// pop removes s from its cycle and returns the segment that followed it.
// Callers are responsible for fixing up the buffer's head pointer when s
// was the head.
func (s *segment) pop() *segment {
	next := s.next
	if next == s {
		next = nil
	} else {
		s.prev.next = s.next
		s.next.prev = s.prev
	}
	s.prev, s.next = nil, nil
	return next
}

// recycle returns s's backing array to the pool when this was the last
// live reference, and drops the segment wrapper.
func (s *segment) recycle() {
	if s.arr == nil {
		return
	}
	if s.arr.release() {
		recycleSharedArray(s.arr)
	}
	s.arr = nil
}
