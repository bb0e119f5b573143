// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio_test

import (
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"

	"octet.dev/segio"
)

// Segment pool benchmarks (exercised indirectly through Buffer, which is
// the only exported path to segment Take/Recycle).

func BenchmarkBuffer_SegmentChurn(b *testing.B) {
	buf := new(segio.Buffer)
	payload := make([]byte, segio.SegmentSize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Write(payload)
		buf.Clear()
	}
}

func BenchmarkBoundedPool_GetPut(b *testing.B) {
	pool := segio.NewBoundedPool[int](1024)
	pool.Fill(func() int { return 0 })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx, err := pool.Get()
			if err != nil {
				b.Fatal(err)
			}
			// Simulate I/O latency
			spin.Yield()
			_ = pool.Put(idx)
		}
	})
}

// Buffer benchmarks

func BenchmarkBuffer_WriteByte(b *testing.B) {
	buf := new(segio.Buffer)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.WriteByte(byte(i))
		if buf.Len() > 1<<20 {
			buf.Clear()
		}
	}
}

func BenchmarkBuffer_WriteReadLong(b *testing.B) {
	buf := new(segio.Buffer)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.WriteLong(int64(i))
		_, _ = buf.ReadLong()
	}
}

func BenchmarkBuffer_Transfer(b *testing.B) {
	src := new(segio.Buffer)
	dst := new(segio.Buffer)
	payload := make([]byte, 64*1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src.Write(payload)
		_ = dst.WriteFrom(src, int64(len(payload)))
		dst.Clear()
	}
}

// High-contention benchmarks demonstrating Backoff behavior
//
// These benchmarks simulate buffer exhaustion scenarios where multiple
// goroutines compete for a small pool. When the pool is empty, Get() uses
// iox.Backoff (linear block-backoff with jitter) to wait for buffer
// release, acknowledging that buffer availability is an external I/O event
// (network/disk completion).

func BenchmarkBoundedPool_HighContention_SmallPool(b *testing.B) {
	pool := segio.NewBoundedPool[int](16)
	pool.Fill(func() int { return 0 })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		var ba iox.Backoff
		for pb.Next() {
			idx, err := pool.Get()
			if err != nil {
				b.Fatal(err)
			}
			ba.Wait()
			_ = pool.Put(idx)
		}
	})
}

func BenchmarkBoundedPool_HighContention_TinyPool(b *testing.B) {
	pool := segio.NewBoundedPool[int](4)
	pool.Fill(func() int { return 0 })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx, err := pool.Get()
			if err != nil {
				b.Fatal(err)
			}
			spin.Yield()
			_ = pool.Put(idx)
		}
	})
}
