// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flate_test

import (
	"bytes"
	"errors"
	"testing"

	"octet.dev/segio"
	"octet.dev/segio/flate"
)

func compressAll(t *testing.T, level int, data []byte) []byte {
	t.Helper()
	sink, err := flate.NewSink(level)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	defer sink.Close()

	var source, out segio.Buffer
	source.Write(data)
	for source.Len() > 0 {
		n, err := sink.TransformAtMostTo(&out, &source, source.Len())
		if err != nil {
			t.Fatalf("TransformAtMostTo: %v", err)
		}
		if n == 0 {
			break
		}
	}
	if err := sink.Finish(&out); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return out.Snapshot().ToByteArray()
}

func decompressAll(t *testing.T, compressed []byte) ([]byte, error) {
	t.Helper()
	src := flate.NewSource()
	defer src.Close()

	var source, out segio.Buffer
	source.Write(compressed)
	for source.Len() > 0 {
		n, err := src.TransformAtMostTo(&out, &source, source.Len())
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	if err := src.Finish(&out); err != nil {
		return nil, err
	}
	return out.Snapshot().ToByteArray(), nil
}

func TestFlate_RoundTrip(t *testing.T) {
	want := []byte("the quick brown fox jumps over the lazy dog, repeated: " +
		"the quick brown fox jumps over the lazy dog")
	compressed := compressAll(t, flate.DefaultLevel, want)
	if bytes.Equal(compressed, want) {
		t.Fatalf("compressed output equals input verbatim, compression did not run")
	}
	got, err := decompressAll(t, compressed)
	if err != nil {
		t.Fatalf("decompressAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, want)
	}
}

func TestFlate_Level0_NoSmallerThanInput(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz")
	compressed := compressAll(t, flate.NoCompression, data)
	if len(compressed) < len(data) {
		t.Fatalf("level 0 output shorter than input: got %d bytes, want >= %d", len(compressed), len(data))
	}
	got, err := decompressAll(t, compressed)
	if err != nil {
		t.Fatalf("decompressAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch at level 0")
	}
}

func TestFlate_InvalidLevel(t *testing.T) {
	if _, err := flate.NewSink(-1); !errors.Is(err, segio.ErrInvalidArgument) {
		t.Fatalf("NewSink(-1) = %v, want ErrInvalidArgument", err)
	}
	if _, err := flate.NewSink(10); !errors.Is(err, segio.ErrInvalidArgument) {
		t.Fatalf("NewSink(10) = %v, want ErrInvalidArgument", err)
	}
	if _, err := flate.NewSink(0); err != nil {
		t.Fatalf("NewSink(0) = %v, want no error", err)
	}
}
