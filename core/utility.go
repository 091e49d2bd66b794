// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"strings"
	"unsafe"
)

// SliceUint32 reslices bytes into a uint32, that is used
// to sumbit vulkan shaders for processing. Trailing bytes
// that don't fill a whole word are dropped.
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return []uint32{}
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// safeString null terminates s for the C side, once.
func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(sgs []string) []string {
	safe := make([]string, 0, len(sgs))
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}

// uniqueStrings keeps the first occurrence of every string, in order.
func uniqueStrings(sgs []string) []string {
	seen := make(map[string]struct{}, len(sgs))
	out := make([]string, 0, len(sgs))
	for _, s := range sgs {
		key := strings.TrimSuffix(s, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// missingNames returns the required names that aren't available.
func missingNames(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, a := range available {
		have[strings.TrimSuffix(a, "\x00")] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := have[strings.TrimSuffix(r, "\x00")]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// copyToMapped copies size bytes starting at src into mapped device memory.
func copyToMapped(dst unsafe.Pointer, src unsafe.Pointer, size int) {
	if size == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}
