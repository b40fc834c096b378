// Package clock implements the presentation clock: it maps media timestamps
// to target wall-clock delivery times, anchored at the first frame decoded
// after a start, seek or loop.
package clock

import (
	"time"

	"context"

	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/xsync"
)

// PresentationClock holds the anchor pair (wall clock at start, media PTS at
// start), the last-presented PTS and the playback-rate multiplier.
//
// The anchor pair is only mutated by Reset, which is called once per playback
// start and once per completed seek/loop; it is never touched during
// steady-state playback. All reads and writes go through one lock.
type PresentationClock struct {
	locker xsync.Mutex

	wallStart    time.Time
	mediaStartUS int64
	lastPTSUS    int64
	lastWall     time.Time
	playbackRate float64
	armed        bool

	// now is swappable for tests.
	now func() time.Time
}

func New() *PresentationClock {
	return &PresentationClock{
		playbackRate: 1.0,
		now:          time.Now,
	}
}

// Reset re-anchors the clock: wall-clock anchor = now, media anchor = startPTS
// (microseconds). It is invoked on the first successfully decoded frame after
// start/seek/loop, not at the seek request itself.
func (c *PresentationClock) Reset(ctx context.Context, startPTSUS int64) {
	c.locker.Do(ctx, func() {
		c.wallStart = c.now()
		c.mediaStartUS = startPTSUS
		c.lastPTSUS = startPTSUS
		c.lastWall = c.wallStart
		c.armed = true
		logger.Debugf(ctx, "clock reset: wall_start=%v, media_start=%dus", c.wallStart, startPTSUS)
	})
}

// TargetTime returns the wall-clock time at which the frame with the given
// PTS (microseconds) should be delivered. The second return value is false
// until the first Reset has run; callers must not present frames before that.
func (c *PresentationClock) TargetTime(ctx context.Context, ptsUS int64) (_ time.Time, _armed bool) {
	var target time.Time
	var armed bool
	c.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		armed = c.armed
		if !armed {
			return
		}
		delta := time.Duration(float64(ptsUS-c.mediaStartUS)/c.playbackRate) * time.Microsecond
		target = c.wallStart.Add(delta)
	})
	return target, armed
}

// Update records the last-presented PTS for diagnostics; it does not affect
// target-time computation.
func (c *PresentationClock) Update(ctx context.Context, ptsUS int64) {
	c.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		c.lastPTSUS = ptsUS
		c.lastWall = c.now()
	})
}

// LastPTS returns the PTS (microseconds) of the most recently presented frame.
func (c *PresentationClock) LastPTS(ctx context.Context) int64 {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() int64 {
		return c.lastPTSUS
	})
}

// SetPlaybackRate sets the playback speed multiplier applied to subsequent
// target-time computations.
func (c *PresentationClock) SetPlaybackRate(ctx context.Context, rate float64) {
	c.locker.Do(ctx, func() {
		c.playbackRate = rate
	})
}

// Disarm marks the clock as waiting for its next Reset; TargetTime reports
// not-armed until then. Used when a seek or loop invalidates the anchor.
func (c *PresentationClock) Disarm(ctx context.Context) {
	c.locker.Do(ctx, func() {
		c.armed = false
	})
}

// IsArmed reports whether Reset has run since the last Disarm.
func (c *PresentationClock) IsArmed(ctx context.Context) bool {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() bool {
		return c.armed
	})
}
