// Package timeline provides the shared wall-clock anchor that playlist
// players schedule against. Every player computes "where should playback be
// right now" as the time elapsed since the anchor; because the anchor is set
// once by whichever player activates first, independently started players
// land on the same playlist position.
package timeline

import (
	"context"
	"time"

	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/xsync"
)

type Anchor struct {
	locker xsync.Mutex

	at  time.Time
	set bool

	// now is swappable for tests.
	now func() time.Time
}

func NewAnchor() *Anchor {
	return &Anchor{
		now: time.Now,
	}
}

// Acquire returns the anchor time, establishing it at the current moment if
// nobody did yet. The first caller wins; everyone after observes the same
// value.
func (a *Anchor) Acquire(ctx context.Context) time.Time {
	return xsync.DoR1(ctx, &a.locker, func() time.Time {
		if !a.set {
			a.at = a.now()
			a.set = true
			logger.Debugf(ctx, "timeline anchor established: %v", a.at)
		}
		return a.at
	})
}

// Get returns the anchor without establishing it.
func (a *Anchor) Get(ctx context.Context) (time.Time, bool) {
	var at time.Time
	var set bool
	a.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		at, set = a.at, a.set
	})
	return at, set
}

// Elapsed reports how far the shared schedule has progressed, establishing
// the anchor if needed.
func (a *Anchor) Elapsed(ctx context.Context) time.Duration {
	at := a.Acquire(ctx)
	return a.now().Sub(at)
}

// Reset forgets the anchor; the next Acquire re-establishes it. Called when
// the whole schedule is restarted.
func (a *Anchor) Reset(ctx context.Context) {
	a.locker.Do(ctx, func() {
		logger.Debugf(ctx, "timeline anchor reset")
		a.set = false
		a.at = time.Time{}
	})
}
