// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"encoding/binary"
	"testing"
	"unsafe"

	qt "github.com/frankban/quicktest"
)

func TestSliceUint32(t *testing.T) {
	c := qt.New(t)
	data := make([]byte, 10)
	binary.NativeEndian.PutUint32(data[0:], 0x07230203)
	binary.NativeEndian.PutUint32(data[4:], 0x00010000)

	words := SliceUint32(data)
	c.Assert(words, qt.DeepEquals, []uint32{0x07230203, 0x00010000})
	c.Assert(SliceUint32([]byte{1, 2, 3}), qt.HasLen, 0)
	c.Assert(SliceUint32(nil), qt.HasLen, 0)
}

func TestSafeStrings(t *testing.T) {
	c := qt.New(t)
	c.Assert(safeString("VK_KHR_surface"), qt.Equals, "VK_KHR_surface\x00")
	c.Assert(safeString("VK_KHR_surface\x00"), qt.Equals, "VK_KHR_surface\x00")
	c.Assert(safeStrings([]string{"a", "b\x00"}), qt.DeepEquals, []string{"a\x00", "b\x00"})
	c.Assert(safeStrings(nil), qt.HasLen, 0)
}

func TestUniqueStrings(t *testing.T) {
	c := qt.New(t)
	c.Assert(uniqueStrings([]string{
		"VK_KHR_surface", "VK_KHR_xcb_surface\x00", "VK_KHR_surface\x00", "VK_EXT_debug_report",
	}), qt.DeepEquals, []string{"VK_KHR_surface", "VK_KHR_xcb_surface", "VK_EXT_debug_report"})
}

func TestMissingNames(t *testing.T) {
	c := qt.New(t)
	available := []string{"VK_KHR_swapchain\x00", "VK_KHR_maintenance1"}
	c.Assert(missingNames([]string{"VK_KHR_swapchain"}, available), qt.HasLen, 0)
	c.Assert(missingNames([]string{"VK_KHR_swapchain", "VK_KHR_ray_query"}, available),
		qt.DeepEquals, []string{"VK_KHR_ray_query"})
	c.Assert(missingNames([]string{"VK_KHR_swapchain"}, nil), qt.DeepEquals, []string{"VK_KHR_swapchain"})
}

func TestCopyToMapped(t *testing.T) {
	c := qt.New(t)
	src := [4]float32{1, 2, 3, 4}
	var dst [4]float32
	copyToMapped(unsafe.Pointer(&dst), unsafe.Pointer(&src), int(unsafe.Sizeof(src)))
	c.Assert(dst, qt.Equals, src)

	copyToMapped(unsafe.Pointer(&dst), nil, 0)
	c.Assert(dst, qt.Equals, src)
}

func benchmarkSliceUint32(b *testing.B, size int) {
	data := make([]byte, size)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SliceUint32(data)
	}
}

func BenchmarkSliceUint32Small(b *testing.B)  { benchmarkSliceUint32(b, 1024) }
func BenchmarkSliceUint32Medium(b *testing.B) { benchmarkSliceUint32(b, 65536) }
func BenchmarkSliceUint32Big(b *testing.B)    { benchmarkSliceUint32(b, 16777216) }
