// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFrameRingAdvance(t *testing.T) {
	c := qt.New(t)
	ring := newFrameRing(MaxFramesInFlight)
	c.Assert(ring.current, qt.Equals, 0)

	var visited []int
	for i := 0; i < 5; i++ {
		visited = append(visited, ring.current)
		ring.advance()
	}
	c.Assert(visited, qt.DeepEquals, []int{0, 1, 0, 1, 0})
}

func TestFrameRingClaim(t *testing.T) {
	c := qt.New(t)
	ring := newFrameRing(2)
	ring.resetImages(3)

	_, ok := ring.claim(0)
	c.Assert(ok, qt.IsFalse)
	ring.advance()

	_, ok = ring.claim(1)
	c.Assert(ok, qt.IsFalse)
	ring.advance()

	// Slot 0 again, image 0 was last used by slot 0
	previous, ok := ring.claim(0)
	c.Assert(ok, qt.IsTrue)
	c.Assert(previous, qt.Equals, 0)
	ring.advance()

	// Slot 1 takes image 0 from slot 0
	previous, ok = ring.claim(0)
	c.Assert(ok, qt.IsTrue)
	c.Assert(previous, qt.Equals, 0)
	c.Assert(ring.owners, qt.DeepEquals, []int{1, 1, -1})
}

func TestFrameRingResetImages(t *testing.T) {
	c := qt.New(t)
	ring := newFrameRing(2)
	ring.resetImages(2)
	ring.claim(0)
	ring.claim(1)

	ring.resetImages(4)
	c.Assert(ring.owners, qt.DeepEquals, []int{-1, -1, -1, -1})
	_, ok := ring.claim(3)
	c.Assert(ok, qt.IsFalse)
}
