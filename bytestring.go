// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segio

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// ByteString is an immutable, comparable byte sequence. Unlike Buffer it
// owns a single contiguous backing array and never mutates after
// construction, making it safe to share across goroutines and to use as
// a map key once converted to a comparable form via its hex String.
type ByteString struct {
	data []byte
}

// NewByteString copies p into a new ByteString.
func NewByteString(p []byte) ByteString {
	cp := make([]byte, len(p))
	copy(cp, p)
	return ByteString{data: cp}
}

// ByteStringFromString copies the bytes of s into a new ByteString.
func ByteStringFromString(s string) ByteString {
	return ByteString{data: []byte(s)}
}

// FromHex decodes hex-encoded text into a ByteString.
func FromHex(s string) (ByteString, error) {
	p, err := hex.DecodeString(s)
	if err != nil {
		return ByteString{}, fmt.Errorf("segio: FromHex: %w: %v", ErrMalformed, err)
	}
	return ByteString{data: p}, nil
}

// FromBase64 decodes standard base64 text into a ByteString.
func FromBase64(s string) (ByteString, error) {
	p, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ByteString{}, fmt.Errorf("segio: FromBase64: %w: %v", ErrMalformed, err)
	}
	return ByteString{data: p}, nil
}

// Size returns the number of bytes in bs.
func (bs ByteString) Size() int { return len(bs.data) }

// Get returns the byte at index i. Panics if i is out of range, matching
// the teacher's behavior for direct indexed array access.
func (bs ByteString) Get(i int) byte { return bs.data[i] }

// Substring returns the byte range [from, to) as a new ByteString sharing
// no backing storage with bs.
func (bs ByteString) Substring(from, to int) (ByteString, error) {
	if from < 0 || to > len(bs.data) || from > to {
		return ByteString{}, fmt.Errorf("segio: Substring: %w", ErrInvalidArgument)
	}
	return NewByteString(bs.data[from:to]), nil
}

// ToByteArray returns a copy of bs's bytes.
func (bs ByteString) ToByteArray() []byte {
	cp := make([]byte, len(bs.data))
	copy(cp, bs.data)
	return cp
}

// CopyInto copies bs's bytes starting at offset into dst.
func (bs ByteString) CopyInto(offset int, dst []byte) int {
	return copy(dst, bs.data[offset:])
}

// IndexOf returns the index of the first occurrence of want at or after
// fromIndex, or -1 if not present.
func (bs ByteString) IndexOf(want ByteString, fromIndex int) int {
	if fromIndex < 0 {
		fromIndex = 0
	}
	if len(want.data) == 0 {
		if fromIndex > len(bs.data) {
			return -1
		}
		return fromIndex
	}
	for i := fromIndex; i+len(want.data) <= len(bs.data); i++ {
		if bytesEqual(bs.data[i:i+len(want.data)], want.data) {
			return i
		}
	}
	return -1
}

// LastIndexOf returns the index of the last occurrence of want at or
// before fromIndex, or -1 if not present.
func (bs ByteString) LastIndexOf(want ByteString, fromIndex int) int {
	if len(want.data) == 0 {
		if fromIndex < 0 {
			return 0
		}
		return fromIndex
	}
	top := fromIndex
	if top > len(bs.data)-len(want.data) {
		top = len(bs.data) - len(want.data)
	}
	for i := top; i >= 0; i-- {
		if bytesEqual(bs.data[i:i+len(want.data)], want.data) {
			return i
		}
	}
	return -1
}

// StartsWith reports whether bs begins with prefix.
func (bs ByteString) StartsWith(prefix ByteString) bool {
	if len(prefix.data) > len(bs.data) {
		return false
	}
	return bytesEqual(bs.data[:len(prefix.data)], prefix.data)
}

// EndsWith reports whether bs ends with suffix.
func (bs ByteString) EndsWith(suffix ByteString) bool {
	if len(suffix.data) > len(bs.data) {
		return false
	}
	return bytesEqual(bs.data[len(bs.data)-len(suffix.data):], suffix.data)
}

// ContentEquals reports whether bs and other hold identical bytes.
func (bs ByteString) ContentEquals(other ByteString) bool {
	return bytesEqual(bs.data, other.data)
}

// CompareTo returns -1, 0, or 1 as bs is lexicographically less than,
// equal to, or greater than other, comparing byte-by-byte with shorter-
// is-less on a common prefix.
func (bs ByteString) CompareTo(other ByteString) int {
	n := len(bs.data)
	if len(other.data) < n {
		n = len(other.data)
	}
	for i := 0; i < n; i++ {
		if bs.data[i] != other.data[i] {
			if bs.data[i] < other.data[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(bs.data) < len(other.data):
		return -1
	case len(bs.data) > len(other.data):
		return 1
	default:
		return 0
	}
}

// String renders bs as "ByteString(size=N hex=...)" with uppercase hex
// content, a deterministic, copy-pasteable debug representation.
func (bs ByteString) String() string {
	return fmt.Sprintf("ByteString(size=%d hex=%s)", len(bs.data), strings.ToUpper(hex.EncodeToString(bs.data)))
}

// ToBase64 renders bs as standard base64 text.
func (bs ByteString) ToBase64() string { return base64.StdEncoding.EncodeToString(bs.data) }

// DecodeToString interprets bs's bytes as UTF-8 text.
func (bs ByteString) DecodeToString() string { return string(bs.data) }

// EncodeToByteString returns the ByteString holding s's UTF-8 bytes.
func EncodeToByteString(s string) ByteString { return ByteStringFromString(s) }

// HashCode returns a hash of bs's content suitable for use as a map key
// component; two ByteStrings with equal content hash equal.
func (bs ByteString) HashCode() uint32 {
	var h uint32 = 2166136261
	for _, c := range bs.data {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
