// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package segio provides a segmented byte buffer, buffered source/sink
// stream adapters, an immutable byte-string type, and a streaming
// byte-transformation pipeline (DEFLATE/GZIP).
//
// # Segments
//
// Buffer is a cycle of fixed-size (8 KiB) segments. Segments are the unit
// of both storage and transfer: moving bytes between two buffers can
// detach a whole segment from one cycle and splice it into another without
// copying, or split a segment's backing array so a prefix can be handed
// off while the remainder stays behind. A segment's backing array is
// reference-counted (sharedArray) so a split segment and its sibling can
// both reference the same bytes until both are recycled.
//
// # Pool
//
// Segment backing arrays are recycled through a two-tier pool: a per-P
// sync.Pool (L1, hot path) and a bounded lock-free overflow tier (L2,
// BoundedPool) sized from SetPoolCapacity. Neither tier blocks; on
// exhaustion the pool falls through to a fresh allocation, and on overflow
// it drops the array for the garbage collector to reclaim.
//
//	segio.SetPoolCapacity(64 << 10 * runtime.NumCPU())
//	buf := new(segio.Buffer)
//	buf.WriteString("hello")
//
// # Streams
//
// BufferedSource and BufferedSink wrap a RawSource/RawSink (the only
// external collaborators this package depends on) with an internal
// Buffer, providing Request/Require/Peek/IndexOf on the read side and
// Emit/Flush/WriteAll on the write side.
//
//	src := segio.NewBufferedSource(rawSource)
//	if err := src.Require(4); err != nil {
//	    // not enough bytes before upstream was exhausted
//	}
//	n, _ := src.ReadInt()
//
// # ByteString
//
// ByteString is an immutable, comparable, hashable byte sequence with
// substring/index/prefix helpers and hex/base64 encoding.
//
// # Transformations
//
// Transformation is the contract a byte-in/byte-out codec implements;
// TransformingSource/TransformingSink drive one over a RawSource/RawSink.
// The flate and gzip subpackages are concrete Transformations built on
// github.com/klauspost/compress/flate, implementing RFC 1951 raw DEFLATE
// and the RFC 1952 GZIP header/trailer state machine described in this
// package's design notes.
//
// # Concurrency
//
// Buffer, BufferedSource, and BufferedSink are single-owner types: no
// instance is safe for concurrent mutation by more than one goroutine at a
// time (enforced by go vet via an embedded noCopy sentinel). The segment
// pool is the only process-wide shared state and is safe for concurrent
// use from any number of goroutines.
//
// # Dependencies
//
// segio depends on:
//   - code.hybscloud.com/iox: semantic error types (ErrWouldBlock) and
//     adaptive backoff used by BoundedPool's blocking mode (the segment
//     pool itself runs BoundedPool nonblocking).
//   - code.hybscloud.com/spin: spin-wait primitives used by the pool's
//     lock-free CAS retry loops.
//   - github.com/klauspost/compress: the DEFLATE engine backing the flate
//     and gzip subpackages.
package segio
