// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package flate implements the segio.Transformation contract for raw
// DEFLATE (RFC 1951) compression and decompression, built on
// github.com/klauspost/compress/flate.
package flate

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	kflate "github.com/klauspost/compress/flate"

	"octet.dev/segio"
)

// Compression level constants, re-exported from the underlying engine.
// Valid levels are the closed range [NoCompression, BestCompression]; the
// engine's -1 "use the library default" sentinel is not accepted here, so
// DefaultLevel spells out an explicit numeric default instead.
const (
	NoCompression   = kflate.NoCompression
	BestSpeed       = kflate.BestSpeed
	BestCompression = kflate.BestCompression
	DefaultLevel    = 6
)

func validLevel(level int) bool {
	return level >= NoCompression && level <= BestCompression
}

// writerCodec adapts a *kflate.Writer to segio.ByteArrayCodec: it writes
// and flushes whatever src it's given straight into an internal buffer,
// then copies that buffer into the caller's sink window when it fits. When
// it doesn't, it asks for a bigger window via OutputRequired and keeps the
// compressed bytes pending, so the adapter's retry with the same src
// delivers them without feeding src to the encoder a second time.
type writerCodec struct {
	zw     *kflate.Writer
	out    bytes.Buffer
	closed bool
}

func (c *writerCodec) TransformInto(src, sink []byte) (segio.TransformResult, error) {
	if len(src) > 0 {
		n := len(src)
		// Pending output means src was already encoded by the call that
		// returned OutputRequired; this is the retry with a larger sink.
		if c.out.Len() == 0 {
			written, err := c.zw.Write(src)
			if err != nil {
				return segio.TransformResult{}, fmt.Errorf("flate: %w", err)
			}
			if err := c.zw.Flush(); err != nil {
				return segio.TransformResult{}, fmt.Errorf("flate: %w", err)
			}
			n = written
		}
		if c.out.Len() > len(sink) {
			return segio.TransformResult{OutputRequired: true, NeedOutput: c.out.Len()}, nil
		}
		produced := copy(sink, c.out.Bytes())
		c.out.Reset()
		return segio.TransformResult{Consumed: n, Produced: produced}, nil
	}
	if c.out.Len() > 0 {
		if c.out.Len() > len(sink) {
			return segio.TransformResult{OutputRequired: true, NeedOutput: c.out.Len()}, nil
		}
		produced := copy(sink, c.out.Bytes())
		c.out.Reset()
		return segio.TransformResult{Produced: produced}, nil
	}
	return segio.TransformResult{}, nil
}

func (c *writerCodec) FinalizeInto(sink []byte) (segio.FinalizeResult, error) {
	if !c.closed {
		if err := c.zw.Close(); err != nil {
			return segio.FinalizeResult{}, fmt.Errorf("flate: %w", err)
		}
		c.closed = true
	}
	if c.out.Len() > len(sink) {
		return segio.FinalizeResult{OutputRequired: true, NeedOutput: c.out.Len()}, nil
	}
	produced := copy(sink, c.out.Bytes())
	c.out.Reset()
	return segio.FinalizeResult{Done: true, Produced: produced}, nil
}

// Sink is a segio.Transformation that DEFLATE-compresses its input,
// built on segio's ByteArrayAdapter driving a writerCodec.
type Sink struct {
	adapter *segio.ByteArrayAdapter
}

// NewSink returns a Sink compressing at level, which must fall in
// [NoCompression, BestCompression]; any other value, including the
// underlying engine's own -1 default sentinel, fails with
// segio.ErrInvalidArgument.
func NewSink(level int) (*Sink, error) {
	if !validLevel(level) {
		return nil, fmt.Errorf("flate: NewSink: %w", segio.ErrInvalidArgument)
	}
	codec := &writerCodec{}
	zw, err := kflate.NewWriter(&codec.out, level)
	if err != nil {
		return nil, fmt.Errorf("flate: NewSink: %w", err)
	}
	codec.zw = zw
	return &Sink{adapter: segio.NewByteArrayAdapter(codec)}, nil
}

// TransformAtMostTo consumes up to byteCount bytes from source, feeding
// them through the DEFLATE encoder via the ByteArrayAdapter, and appends
// any resulting compressed bytes to sink.
func (s *Sink) TransformAtMostTo(sink, source *segio.Buffer, byteCount int64) (int64, error) {
	return s.adapter.TransformAtMostTo(sink, source, byteCount)
}

// Finish closes the DEFLATE encoder, flushing its final block, and
// appends the remaining bytes to sink. Idempotent.
func (s *Sink) Finish(sink *segio.Buffer) error {
	return s.adapter.Finish(sink)
}

// Close releases the Sink. Idempotent.
func (s *Sink) Close() error {
	return s.adapter.Close()
}

// Source is a segio.Transformation that DEFLATE-decompresses its input.
// It accumulates compressed bytes across calls to TransformAtMostTo and
// performs the actual inflation once, in Finish, since the underlying
// engine's Reader cannot be fed incrementally without risking a false
// end-of-stream once any read on it returns an error.
type Source struct {
	in       bytes.Buffer
	closed   bool
	finished bool
}

// NewSource returns a Source ready to decompress a single DEFLATE stream.
func NewSource() *Source { return &Source{} }

// TransformAtMostTo consumes up to byteCount bytes from source into an
// internal accumulator. It never produces output directly; output
// appears all at once from Finish.
func (s *Source) TransformAtMostTo(sink, source *segio.Buffer, byteCount int64) (int64, error) {
	if s.closed {
		return 0, fmt.Errorf("flate: TransformAtMostTo: %w", segio.ErrClosed)
	}
	if source.Len() == 0 || byteCount <= 0 {
		return 0, nil
	}
	n := byteCount
	if n > source.Len() {
		n = source.Len()
	}
	tmp := make([]byte, n)
	read, err := source.Read(tmp)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	s.in.Write(tmp[:read])
	return int64(read), nil
}

// Finish runs the DEFLATE decoder once over all accumulated compressed
// bytes and writes the decompressed result to sink. Truncated or corrupt
// input fails with segio.ErrMalformed. Idempotent.
func (s *Source) Finish(sink *segio.Buffer) error {
	if s.finished {
		return nil
	}
	zr := kflate.NewReader(&s.in)
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("flate: Finish: %w: %v", segio.ErrMalformed, err)
	}
	if len(out) > 0 {
		if _, werr := sink.Write(out); werr != nil {
			return werr
		}
	}
	s.finished = true
	return nil
}

// Close releases the Source. Idempotent.
func (s *Source) Close() error {
	s.closed = true
	return nil
}
