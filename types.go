// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

// segmentSize is the canonical fixed capacity of every segment's backing
// array. Segments are the single transfer/storage unit of a Buffer.
const segmentSize = 8192

// scratchTier is a power-of-4 progression of scratch-array sizes used by
// the transformation byte-array adapter when a codec reports it needs a
// larger output window than the current tail segment provides
// (TransformResult.NeedOutput / FinalizeResult.NeedOutput).
type scratchTier int

const (
	tierSegment scratchTier = iota // 8 KiB, one segment
	tierBig                        // 32 KiB
	tierLarge                      // 128 KiB
	tierGreat                      // 512 KiB
	tierEnd
)

var scratchSizes = [tierEnd]int{
	tierSegment: segmentSize,
	tierBig:     segmentSize << 2,
	tierLarge:   segmentSize << 4,
	tierGreat:   segmentSize << 6,
}

// scratchSizeFor returns the smallest scratch tier size that can hold need
// bytes, growing geometrically beyond the largest tier when necessary.
func scratchSizeFor(need int) int {
	for _, sz := range scratchSizes {
		if need <= sz {
			return sz
		}
	}
	sz := scratchSizes[tierEnd-1]
	for sz < need {
		sz <<= 1
	}
	return sz
}

// noCopy is a sentinel used to prevent copying of synchronization primitives.
// Embedding it lets go vet's copylocks check flag accidental copies of
// single-owner, non-concurrent-safe types such as Buffer, BufferedSource,
// and BufferedSink.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
