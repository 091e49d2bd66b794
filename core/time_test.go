// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Add(d time.Duration) { f.now = f.now.Add(d) }

func newTestTime(c *qt.C, cfg TimeConfiguration) (*Time, *fakeClock) {
	clock := &fakeClock{now: time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)}
	t := NewTime(cfg)
	c.Cleanup(t.Stop)
	t.now = clock.Now
	t.start = clock.now
	t.windowStart = clock.now
	return t, clock
}

func TestTimeElapsed(t *testing.T) {
	c := qt.New(t)
	tm, clock := newTestTime(c, TimeConfiguration{FramesPerSecond: 60, EventPollDelay: 10})

	c.Assert(tm.Fps(), qt.Equals, 60)
	c.Assert(tm.Elapsed(), qt.Equals, time.Duration(0))
	clock.Add(1500 * time.Millisecond)
	c.Assert(tm.Elapsed(), qt.Equals, 1500*time.Millisecond)
}

func TestTimeFrameRate(t *testing.T) {
	c := qt.New(t)
	tm, clock := newTestTime(c, TimeConfiguration{FramesPerSecond: 60, EventPollDelay: 10})

	for i := 0; i < 29; i++ {
		clock.Add(20 * time.Millisecond)
		_, ok := tm.Frame()
		c.Assert(ok, qt.IsFalse)
	}

	// 50 frames over one second
	for i := 0; i < 20; i++ {
		clock.Add(20 * time.Millisecond)
		_, ok := tm.Frame()
		c.Assert(ok, qt.IsFalse)
	}
	clock.Add(20 * time.Millisecond)
	rate, ok := tm.Frame()
	c.Assert(ok, qt.IsTrue)
	c.Assert(rate, qt.Equals, 50.0)

	// The window restarts after a report
	clock.Add(500 * time.Millisecond)
	_, ok = tm.Frame()
	c.Assert(ok, qt.IsFalse)
}

func TestTimeUnlimited(t *testing.T) {
	c := qt.New(t)
	tm, _ := newTestTime(c, TimeConfiguration{})
	c.Assert(tm.Fps(), qt.Equals, 0)
	c.Assert(tm.FpsTicker(), qt.Not(qt.IsNil))
	c.Assert(tm.EventTicker(), qt.Not(qt.IsNil))
}
