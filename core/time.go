// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

// NewTime creates a new time service. The clock starts now.
func NewTime(cfg TimeConfiguration) *Time {
	var interval time.Duration
	if cfg.FramesPerSecond <= 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / (time.Duration)(cfg.FramesPerSecond)
	}

	pollDelay := time.Duration(cfg.EventPollDelay) * time.Millisecond
	if pollDelay <= 0 {
		pollDelay = time.Millisecond
	}

	t := &Time{
		fps:            cfg.FramesPerSecond,
		fpsTicker:      time.NewTicker(interval),
		eventPollDelay: cfg.EventPollDelay,
		eventTicker:    time.NewTicker(pollDelay),
		now:            time.Now,
	}
	t.start = t.now()
	t.windowStart = t.start
	return t
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay int
	eventTicker    *time.Ticker

	now         func() time.Time
	start       time.Time
	windowStart time.Time
	frames      int
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Elapsed is the time since the service was created
func (t *Time) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// Frame counts a drawn frame. Once a second has passed since the
// last report it returns the measured rate and true.
func (t *Time) Frame() (float64, bool) {
	t.frames++
	now := t.now()
	window := now.Sub(t.windowStart)
	if window < time.Second {
		return 0, false
	}
	rate := float64(t.frames) / window.Seconds()
	t.frames = 0
	t.windowStart = now
	return rate, true
}

// Stop stops the tickers
func (t *Time) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}
