// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

import (
	"runtime"
	"sync"
)

// Pool is a generic object pool interface with configurable blocking
// semantics, mirroring the iox-backed Put/Get contract used throughout
// this module's lower layers.
//
// Implementations may operate in blocking or non-blocking mode. In
// blocking mode, Get blocks until an item is available and Put blocks
// until space is available. In non-blocking mode, both operations return
// iox.ErrWouldBlock instead of blocking.
type Pool[T any] interface {
	// Put returns the item to the pool.
	Put(item T) error
	// Get acquires an item from the pool.
	Get() (item T, err error)
}

const defaultL2CapacityPerCore = 64 << 10 // 64 KiB per core

var (
	poolMu          sync.Mutex
	poolCapBytes    = defaultL2CapacityPerCore * runtime.NumCPU()
	l2Pool          *BoundedPool[*sharedArray]
	l2Initialized   bool
	l1              sync.Pool
)

// SetPoolCapacity sets the process-wide segment pool's L2 (overflow tier)
// total capacity in bytes. It must be called before the first segment is
// taken to have effect on the L2 tier's size; values <= 0 disable the L2
// tier entirely (L1, the per-P sync.Pool, remains active).
//
// This mirrors the teacher's PageSize/SetPageSize package-variable-plus-
// setter convention: a single process-wide value, read once lazily.
func SetPoolCapacity(bytes int) {
	poolMu.Lock()
	defer poolMu.Unlock()
	poolCapBytes = bytes
	l2Initialized = false
	l2Pool = nil
}

func ensureL2() *BoundedPool[*sharedArray] {
	poolMu.Lock()
	defer poolMu.Unlock()
	if l2Initialized {
		return l2Pool
	}
	l2Initialized = true
	if poolCapBytes <= 0 {
		return nil
	}
	n := poolCapBytes / segmentSize
	if n < 1 {
		n = 1
	}
	pool := NewBoundedPool[*sharedArray](n)
	pool.SetNonblock(true)
	// L2 starts as a pool of free slots with no backing array yet; the
	// first recycle into each slot supplies the array (see
	// recycleSharedArray), so Fill never allocates arrays that would be
	// thrown away immediately.
	pool.Fill(func() *sharedArray { return nil })
	l2Pool = pool
	return pool
}

// takeSegment returns a fresh segment with pos == limit == 0, shared ==
// false, owner == true, backed by a recycled array when one is available.
//
// takeSegment never fails: on L1 and L2 exhaustion it falls through to a fresh
// allocation, per the segment pool's no-user-visible-failure contract.
func takeSegment() *segment {
	sa, _ := l1.Get().(*sharedArray)
	if sa == nil {
		if l2 := ensureL2(); l2 != nil {
			if idx, err := l2.Get(); err == nil {
				if v := l2.Value(idx); v != nil {
					sa = v
					sa.l2idx = idx
				} else {
					sa = newSharedArray()
					sa.l2idx = idx
				}
			}
		}
	}
	if sa == nil {
		sa = newSharedArray()
	} else {
		sa.refs.Store(1)
	}
	return &segment{arr: sa, owner: true}
}

// recycleSharedArray returns arr to the pool tier it was most recently
// drawn from (L2 if tracked, otherwise L1). Non-blocking; on L2 fullness
// the array is simply dropped for the garbage collector to reclaim.
func recycleSharedArray(arr *sharedArray) {
	if arr.l2idx >= 0 {
		if l2 := ensureL2(); l2 != nil {
			l2.SetValue(arr.l2idx, arr)
			_ = l2.Put(arr.l2idx) // nonblocking; drop silently if this can't happen
			return
		}
	}
	arr.l2idx = -1
	l1.Put(arr)
}

// SegmentSize is the canonical fixed capacity of every segment's backing
// array (8192 bytes), exported so callers can size their own scratch
// buffers to align with segment boundaries.
const SegmentSize = segmentSize
