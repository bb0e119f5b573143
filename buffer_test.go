// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"octet.dev/segio"
)

func TestBuffer_WriteRead_RoundTrip(t *testing.T) {
	var buf segio.Buffer
	want := []byte("the quick brown fox jumps over the lazy dog")
	if _, err := buf.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != int64(len(want)) {
		t.Fatalf("Len() = %d, want %d", buf.Len(), len(want))
	}
	got := make([]byte, len(want))
	n, err := buf.Read(got)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(want) || !bytes.Equal(got, want) {
		t.Fatalf("Read = %q, want %q", got[:n], want)
	}
	if buf.Len() != 0 {
		t.Fatalf("Len() after drain = %d, want 0", buf.Len())
	}
	if _, err := buf.Read(got); !errors.Is(err, io.EOF) {
		t.Fatalf("Read on empty buffer = %v, want io.EOF", err)
	}
}

func TestBuffer_FixedWidthIntegers(t *testing.T) {
	var buf segio.Buffer
	buf.WriteShort(0x1234)
	buf.WriteIntLe(0x0A0B0C0D)
	buf.WriteLong(-1)

	v16, err := buf.ReadShort()
	if err != nil || v16 != 0x1234 {
		t.Fatalf("ReadShort = %d, %v; want 0x1234", v16, err)
	}
	v32, err := buf.ReadIntLe()
	if err != nil || v32 != 0x0A0B0C0D {
		t.Fatalf("ReadIntLe = %#x, %v; want 0x0A0B0C0D", v32, err)
	}
	v64, err := buf.ReadLong()
	if err != nil || v64 != -1 {
		t.Fatalf("ReadLong = %d, %v; want -1", v64, err)
	}
}

func TestBuffer_ReadShort_EndOfInput(t *testing.T) {
	var buf segio.Buffer
	buf.WriteByte(0x01)
	if _, err := buf.ReadShort(); !errors.Is(err, segio.ErrEndOfInput) {
		t.Fatalf("ReadShort on short buffer = %v, want ErrEndOfInput", err)
	}
}

// TestBuffer_WriteFrom_AcrossSegmentBoundary transfers a payload that
// straddles an 8192-byte segment boundary from one buffer to another,
// exercising the split/splice path in WriteFrom and segment.split.
func TestBuffer_WriteFrom_AcrossSegmentBoundary(t *testing.T) {
	const segSize = segio.SegmentSize
	payload := make([]byte, segSize+100)
	for i := range payload {
		payload[i] = byte(i)
	}

	var src, dst segio.Buffer
	if _, err := src.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Transfer a count that lands in the middle of the first segment,
	// forcing WriteFrom to split rather than move a whole segment.
	const first = segSize/2 + 37
	if err := dst.WriteFrom(&src, first); err != nil {
		t.Fatalf("WriteFrom first chunk: %v", err)
	}
	if dst.Len() != first {
		t.Fatalf("dst.Len() = %d, want %d", dst.Len(), first)
	}
	if src.Len() != int64(len(payload))-first {
		t.Fatalf("src.Len() = %d, want %d", src.Len(), int64(len(payload))-first)
	}

	// Drain the rest, crossing the segment boundary a second time.
	rest := src.Len()
	if err := dst.WriteFrom(&src, rest); err != nil {
		t.Fatalf("WriteFrom rest: %v", err)
	}
	if src.Len() != 0 {
		t.Fatalf("src.Len() after full drain = %d, want 0", src.Len())
	}

	got := dst.Snapshot().ToByteArray()
	if !bytes.Equal(got, payload) {
		t.Fatalf("round-tripped payload mismatch (len got=%d want=%d)", len(got), len(payload))
	}
}

func TestBuffer_WriteFrom_InvalidCount(t *testing.T) {
	var src, dst segio.Buffer
	src.WriteByte(1)
	if err := dst.WriteFrom(&src, -1); !errors.Is(err, segio.ErrInvalidArgument) {
		t.Fatalf("WriteFrom(-1) = %v, want ErrInvalidArgument", err)
	}
	if err := dst.WriteFrom(&src, 2); !errors.Is(err, segio.ErrInvalidArgument) {
		t.Fatalf("WriteFrom(2) on 1-byte source = %v, want ErrInvalidArgument", err)
	}
}

// TestBuffer_IndexOf_AcrossSegmentBoundary places the needle so it spans
// an 8192-byte segment boundary.
func TestBuffer_IndexOf_AcrossSegmentBoundary(t *testing.T) {
	const segSize = segio.SegmentSize
	var buf segio.Buffer
	filler := bytes.Repeat([]byte{'x'}, segSize-3)
	buf.Write(filler)
	buf.Write([]byte("NEEDLE"))

	idx := buf.IndexOf('N', 0, buf.Len())
	want := int64(segSize - 3)
	if idx != want {
		t.Fatalf("IndexOf = %d, want %d", idx, want)
	}

	needle := segio.ByteStringFromString("NEEDLE")
	bidx := buf.IndexOfByteString(needle, 0)
	if bidx != want {
		t.Fatalf("IndexOfByteString = %d, want %d", bidx, want)
	}
}

func TestBuffer_CopyTo_DoesNotConsume(t *testing.T) {
	var buf segio.Buffer
	buf.WriteString("hello world")

	var dst segio.Buffer
	if err := buf.CopyTo(&dst, 6, 5); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if got := dst.Snapshot().DecodeToString(); got != "world" {
		t.Fatalf("CopyTo result = %q, want %q", got, "world")
	}
	if buf.Len() != 11 {
		t.Fatalf("source Len() after CopyTo = %d, want 11 (unconsumed)", buf.Len())
	}
}

func TestBuffer_Skip_And_Clear(t *testing.T) {
	var buf segio.Buffer
	buf.WriteString("0123456789")
	if err := buf.Skip(3); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if got := buf.Snapshot().DecodeToString(); got != "3456789" {
		t.Fatalf("after Skip(3) = %q, want %q", got, "3456789")
	}
	buf.Clear()
	if buf.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", buf.Len())
	}
}
