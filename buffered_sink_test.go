// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio_test

import (
	"testing"

	"octet.dev/segio"
)

// recordingSink is a RawSink that appends everything written to it into
// an in-memory buffer, tracking Flush/Close calls.
type recordingSink struct {
	out        segio.Buffer
	flushCount int
	closed     bool
}

func (r *recordingSink) Write(source *segio.Buffer, byteCount int64) error {
	return r.out.WriteFrom(source, byteCount)
}

func (r *recordingSink) Flush() error {
	r.flushCount++
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestBufferedSink_WritePrimitivesAndEmit(t *testing.T) {
	rec := &recordingSink{}
	sink := segio.NewBufferedSink(rec)

	if _, err := sink.WriteString("hi"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	sink.WriteByte('!')
	sink.WriteIntLe(42)

	if rec.out.Len() != 0 {
		t.Fatalf("bytes reached underlying sink before Emit: %d", rec.out.Len())
	}
	if err := sink.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if rec.flushCount != 0 {
		t.Fatalf("Emit must not call Flush, flushCount = %d", rec.flushCount)
	}
	// The buffered bytes are all part of the still-writable tail segment,
	// well under one full segment, so Emit must leave them buffered rather
	// than forward a partial segment.
	if rec.out.Len() != 0 {
		t.Fatalf("Emit forwarded a partial segment, out.Len() = %d", rec.out.Len())
	}
	if got := sink.Buffer().Len(); got != 7 {
		t.Fatalf("buffered Len() = %d, want 7", got)
	}

	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got := rec.out.Snapshot().ToByteArray()
	if string(got[:3]) != "hi!" {
		t.Fatalf("flushed prefix = %q, want %q", got[:3], "hi!")
	}
}

// TestBufferedSink_Emit_ForwardsOnlyCompleteSegments writes one full
// segment's worth of bytes plus a few extra bytes, and asserts Emit
// forwards the complete segment but leaves the partial tail buffered.
func TestBufferedSink_Emit_ForwardsOnlyCompleteSegments(t *testing.T) {
	rec := &recordingSink{}
	sink := segio.NewBufferedSink(rec)

	full := make([]byte, segio.SegmentSize)
	for i := range full {
		full[i] = byte(i)
	}
	if _, err := sink.Write(full); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := sink.WriteString("tail"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}

	if err := sink.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if rec.out.Len() != int64(len(full)) {
		t.Fatalf("Emit forwarded %d bytes, want exactly the complete segment (%d)", rec.out.Len(), len(full))
	}
	if got := sink.Buffer().Len(); got != 4 {
		t.Fatalf("buffered remainder after Emit = %d, want 4 (\"tail\")", got)
	}

	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sink.Buffer().Len() != 0 {
		t.Fatalf("Flush left %d bytes buffered, want 0", sink.Buffer().Len())
	}
}

func TestBufferedSink_FlushCallsUnderlyingFlush(t *testing.T) {
	rec := &recordingSink{}
	sink := segio.NewBufferedSink(rec)
	sink.WriteByte('x')
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if rec.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", rec.flushCount)
	}
}

func TestBufferedSink_Close_FlushesAndClosesOnce(t *testing.T) {
	rec := &recordingSink{}
	sink := segio.NewBufferedSink(rec)
	sink.WriteByte('y')
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !rec.closed {
		t.Fatalf("underlying sink was not closed")
	}
	if rec.out.Len() != 1 {
		t.Fatalf("pending byte was not flushed before close, out.Len() = %d", rec.out.Len())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second Close should be idempotent, got %v", err)
	}
}

func TestBufferedSink_WriteAll(t *testing.T) {
	rec := &recordingSink{}
	sink := segio.NewBufferedSink(rec)

	var source segio.Buffer
	source.WriteString("payload")
	n, err := sink.WriteAll(&source)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if n != 7 {
		t.Fatalf("WriteAll returned %d, want 7", n)
	}
	if source.Len() != 0 {
		t.Fatalf("source not fully consumed, Len() = %d", source.Len())
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := rec.out.Snapshot().DecodeToString(); got != "payload" {
		t.Fatalf("flushed = %q, want %q", got, "payload")
	}
}
