// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio_test

import (
	"io"
	"testing"

	"octet.dev/segio"
)

// repeaterTransform doubles every input byte, so consumed and produced
// byte counts diverge - the scenario TransformingSource.ReadAtMostTo
// must measure via the sink's size delta rather than trust the
// transformation's return value as "bytes ready."
type repeaterTransform struct{}

func (repeaterTransform) TransformAtMostTo(sink, source *segio.Buffer, byteCount int64) (int64, error) {
	if source.Len() == 0 || byteCount <= 0 {
		return 0, nil
	}
	n := byteCount
	if n > source.Len() {
		n = source.Len()
	}
	tmp := make([]byte, n)
	read, err := source.Read(tmp)
	if err != nil {
		return 0, err
	}
	for _, b := range tmp[:read] {
		_ = sink.WriteByte(b)
		_ = sink.WriteByte(b)
	}
	return int64(read), nil
}

func (repeaterTransform) Finish(*segio.Buffer) error { return nil }
func (repeaterTransform) Close() error               { return nil }

func TestTransformingSource_ConsumedVsProducedDelta(t *testing.T) {
	src := &chunkSource{data: []byte("AB"), chunkSize: 1}
	ts := segio.NewTransformingSource(src, repeaterTransform{})
	defer ts.Close()

	var out segio.Buffer
	for {
		n, err := ts.ReadAtMostTo(&out, 4096)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadAtMostTo: %v", err)
		}
		if n == 0 {
			break
		}
	}
	if got := out.Snapshot().DecodeToString(); got != "AABB" {
		t.Fatalf("transformed output = %q, want %q", got, "AABB")
	}
}

func TestTransformingSink_Write(t *testing.T) {
	rec := &recordingSink{}
	sink := segio.NewTransformingSink(rec, repeaterTransform{})

	var source segio.Buffer
	source.WriteString("hi")
	if err := sink.Write(&source, source.Len()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := rec.out.Snapshot().DecodeToString(); got != "hhii" {
		t.Fatalf("sink output = %q, want %q", got, "hhii")
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !rec.closed {
		t.Fatalf("downstream was not closed")
	}
}

// upperCodec implements ByteArrayCodec directly, for testing
// ByteArrayAdapter without a real third-party streaming encoder.
type upperCodec struct{}

func (upperCodec) TransformInto(src, sink []byte) (segio.TransformResult, error) {
	if len(src) == 0 {
		return segio.TransformResult{}, nil
	}
	if len(src) > len(sink) {
		return segio.TransformResult{OutputRequired: true, NeedOutput: len(src)}, nil
	}
	for i, b := range src {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		sink[i] = b
	}
	return segio.TransformResult{Consumed: len(src), Produced: len(src)}, nil
}

func (upperCodec) FinalizeInto([]byte) (segio.FinalizeResult, error) {
	return segio.FinalizeResult{Done: true}, nil
}

func TestByteArrayAdapter_TransformAtMostTo(t *testing.T) {
	adapter := segio.NewByteArrayAdapter(upperCodec{})
	defer adapter.Close()

	var source, sink segio.Buffer
	source.WriteString("hello")

	n, err := adapter.TransformAtMostTo(&sink, &source, source.Len())
	if err != nil {
		t.Fatalf("TransformAtMostTo: %v", err)
	}
	if n != 5 {
		t.Fatalf("TransformAtMostTo consumed = %d, want 5", n)
	}
	if got := sink.Snapshot().DecodeToString(); got != "HELLO" {
		t.Fatalf("sink = %q, want %q", got, "HELLO")
	}
	if err := adapter.Finish(&sink); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}
