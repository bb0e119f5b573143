// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

import (
	"fmt"
	"io"
)

// Transformation is a stateful byte-in/byte-out operation with a
// finalization step: compression, decompression, encryption, and the
// like. Implementations are single-use and owned by one logical
// goroutine at a time.
type Transformation interface {
	// TransformAtMostTo consumes at least one and at most byteCount
	// bytes from source, producing transformed output to sink. Returns
	// the number of bytes consumed, or -1 when the transformation has
	// permanently terminated and will produce no more output. 0 is
	// returned only when neither input nor output could advance and
	// more input is required before progress is possible.
	//
	// Implementations signal permanent termination only by returning -1
	// from this method (Finish reports nothing but an error);
	// subsequent calls after a -1 must be idempotent no-ops returning
	// -1 again.
	TransformAtMostTo(sink, source *Buffer, byteCount int64) (int64, error)
	// Finish signals end-of-input: flush remaining output including any
	// trailer. Idempotent after the first call that succeeds in
	// draining (subsequent calls do nothing and return nil).
	Finish(sink *Buffer) error
	// Close releases resources. Further use of the Transformation after
	// Close is prohibited.
	Close() error
}

// scratchRefillSize is the amount TransformingSource reads from upstream
// per refill: one segment, matching the teacher's segment-aligned I/O
// convention.
const scratchRefillSize = segmentSize

// TransformingSource drives a Transformation over an upstream RawSource,
// presenting the transformed output as a RawSource in its own right.
type TransformingSource struct {
	_        noCopy
	upstream RawSource
	t        Transformation
	scratch  Buffer
	finished bool
	closed   bool
}

// NewTransformingSource returns a RawSource that reads raw bytes from
// upstream and yields t's transformed output.
func NewTransformingSource(upstream RawSource, t Transformation) *TransformingSource {
	return &TransformingSource{upstream: upstream, t: t}
}

// ReadAtMostTo implements RawSource.
func (s *TransformingSource) ReadAtMostTo(sink *Buffer, byteCount int64) (int64, error) {
	if s.closed {
		return 0, fmt.Errorf("segio: ReadAtMostTo: %w", ErrClosed)
	}
	if byteCount < 0 {
		return 0, fmt.Errorf("segio: ReadAtMostTo: %w", ErrInvalidArgument)
	}
	for {
		if s.finished {
			return 0, io.EOF
		}
		if s.scratch.Len() > 0 {
			before := sink.Len()
			n, err := s.t.TransformAtMostTo(sink, &s.scratch, byteCount)
			if err != nil {
				return 0, err
			}
			if n == -1 {
				s.finished = true
				return 0, io.EOF
			}
			// TransformAtMostTo's return value counts bytes consumed
			// from scratch, not bytes produced into sink; a consuming
			// call that produced no output yet (e.g. a decompressor
			// still buffering a partial block) must not be mistaken
			// for real progress by the caller.
			if produced := sink.Len() - before; produced > 0 {
				return produced, nil
			}
			// Consumed (or not) but produced nothing: more input is
			// needed before output is possible; fall through to refill.
		}
		n, err := s.upstream.ReadAtMostTo(&s.scratch, scratchRefillSize)
		if err != nil && err != io.EOF {
			return 0, err
		}
		if err == io.EOF || n == 0 {
			before := sink.Len()
			if ferr := s.t.Finish(sink); ferr != nil {
				return 0, ferr
			}
			s.finished = true
			produced := sink.Len() - before
			if produced == 0 {
				return 0, io.EOF
			}
			return produced, nil
		}
	}
}

// Close closes the Transformation (without calling Finish) and the
// upstream source.
func (s *TransformingSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.t.Close()
	if cerr := s.upstream.Close(); err == nil {
		err = cerr
	}
	return err
}

// TransformingSink drives a Transformation over a downstream RawSink,
// presenting the pre-transform input side as a RawSink in its own right.
type TransformingSink struct {
	_          noCopy
	downstream RawSink
	t          Transformation
	scratch    Buffer
	output     Buffer
	closed     bool
}

// NewTransformingSink returns a RawSink that accepts raw bytes, feeds
// them through t, and forwards t's output to downstream.
func NewTransformingSink(downstream RawSink, t Transformation) *TransformingSink {
	return &TransformingSink{downstream: downstream, t: t}
}

// Write implements RawSink: it pulls byteCount bytes from source into a
// scratch buffer, then loops TransformAtMostTo until the scratch is
// drained or the transformation terminates.
func (s *TransformingSink) Write(source *Buffer, byteCount int64) error {
	if s.closed {
		return fmt.Errorf("segio: Write: %w", ErrClosed)
	}
	if err := s.scratch.WriteFrom(source, byteCount); err != nil {
		return err
	}
	for s.scratch.Len() > 0 {
		n, err := s.t.TransformAtMostTo(&s.output, &s.scratch, s.scratch.Len())
		if err != nil {
			return err
		}
		if n == -1 {
			break
		}
		if n == 0 {
			break
		}
	}
	return s.flushOutput()
}

func (s *TransformingSink) flushOutput() error {
	if s.output.Len() == 0 {
		return nil
	}
	n := s.output.Len()
	return s.downstream.Write(&s.output, n)
}

// Flush forwards pending output and flushes downstream.
func (s *TransformingSink) Flush() error {
	if s.closed {
		return fmt.Errorf("segio: Flush: %w", ErrClosed)
	}
	if err := s.flushOutput(); err != nil {
		return err
	}
	return s.downstream.Flush()
}

// Close calls Finish on the Transformation, forwards the trailer bytes,
// closes the Transformation, then closes downstream. Any error from an
// earlier step is retained; later steps still run; the first error is
// returned.
func (s *TransformingSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	finishErr := s.t.Finish(&s.output)
	flushErr := s.flushOutput()
	closeErr := s.t.Close()
	downErr := s.downstream.Close()
	switch {
	case finishErr != nil:
		return finishErr
	case flushErr != nil:
		return flushErr
	case closeErr != nil:
		return closeErr
	default:
		return downErr
	}
}

// TransformResult is the outcome of one ByteArrayCodec.TransformInto
// call.
type TransformResult struct {
	// Done marks permanent termination: no further output will ever be
	// produced.
	Done bool
	// NeedOutput is set (with OutputRequired true) when the provided
	// sink window was too small; at least this many bytes are needed.
	NeedOutput     int
	OutputRequired bool
	Consumed       int
	Produced       int
}

// FinalizeResult is the outcome of one ByteArrayCodec.FinalizeInto call.
type FinalizeResult struct {
	Done           bool
	NeedOutput     int
	OutputRequired bool
	Produced       int
}

// ByteArrayCodec is implemented by codecs whose native engine operates on
// raw []byte windows (e.g. klauspost/compress's flate.Writer), bridged
// into the buffer world by ByteArrayAdapter. TransformInto consumes as
// much of src as it can, producing into sink; when sink is too small to
// hold what's ready, it returns an OutputRequired result naming the
// needed size instead of producing a truncated chunk.
type ByteArrayCodec interface {
	TransformInto(src, sink []byte) (TransformResult, error)
	FinalizeInto(sink []byte) (FinalizeResult, error)
}

// ByteArrayAdapter bridges a ByteArrayCodec into the Transformation
// contract, handling partial input/output, output-window growth, and
// segment-aligned reads from the source Buffer without an intermediate
// copy. It is the adapter spec'd for codecs implemented imperatively
// against native byte-array APIs (e.g. wrapping a third-party streaming
// writer); see the flate package for a concrete user.
type ByteArrayAdapter struct {
	codec      ByteArrayCodec
	scratchOut []byte
}

// NewByteArrayAdapter returns a Transformation driving codec.
func NewByteArrayAdapter(codec ByteArrayCodec) *ByteArrayAdapter {
	return &ByteArrayAdapter{codec: codec, scratchOut: make([]byte, scratchSizeFor(segmentSize))}
}

// TransformAtMostTo implements Transformation.TransformAtMostTo in terms
// of the wrapped ByteArrayCodec.
func (a *ByteArrayAdapter) TransformAtMostTo(sink, source *Buffer, byteCount int64) (int64, error) {
	if source.Len() == 0 {
		return 0, nil
	}
	cur := NewUnsafeCursor(source)
	defer cur.Close()
	avail, err := cur.Seek(0)
	if err != nil {
		return 0, err
	}
	if avail < 0 {
		return 0, nil
	}
	srcWindow := cur.Data
	if int64(len(srcWindow)) > byteCount {
		srcWindow = srcWindow[:byteCount]
	}

	for {
		result, err := a.codec.TransformInto(srcWindow, a.scratchOut)
		if err != nil {
			return 0, err
		}
		switch {
		case result.OutputRequired:
			a.growScratch(result.NeedOutput)
			continue
		case result.Done:
			return -1, nil
		default:
			if result.Produced > 0 {
				if _, werr := sink.Write(a.scratchOut[:result.Produced]); werr != nil {
					return 0, werr
				}
			}
			if result.Consumed > 0 {
				if serr := source.Skip(int64(result.Consumed)); serr != nil {
					return 0, serr
				}
			}
			return int64(result.Consumed), nil
		}
	}
}

// Finish loops the wrapped codec's FinalizeInto until Done or no further
// bytes are produced, handling output-window growth the same way as
// TransformAtMostTo.
func (a *ByteArrayAdapter) Finish(sink *Buffer) error {
	for {
		result, err := a.codec.FinalizeInto(a.scratchOut)
		if err != nil {
			return err
		}
		if result.OutputRequired {
			a.growScratch(result.NeedOutput)
			continue
		}
		if result.Produced > 0 {
			if _, werr := sink.Write(a.scratchOut[:result.Produced]); werr != nil {
				return werr
			}
		}
		if result.Done || result.Produced == 0 {
			return nil
		}
	}
}

// Close is a no-op: the wrapped codec owns its own resources and is
// closed by the caller that constructed it.
func (a *ByteArrayAdapter) Close() error { return nil }

func (a *ByteArrayAdapter) growScratch(need int) {
	size := scratchSizeFor(need)
	if size <= len(a.scratchOut) {
		size = len(a.scratchOut) * 2
	}
	a.scratchOut = make([]byte, size)
}
