package decoder

import (
	"context"
	"runtime"
	"time"

	"github.com/xaionaro-go/avplayback/logger"
)

// Pacing thresholds for the display worker. A frame whose target already
// passed by more than dropThreshold is discarded; one within deliverWindow
// of its target is handed out. Earlier frames put the worker to sleep in
// coarse or fine steps, and close to the target it yields the CPU between
// re-checks so delivery lands within scheduler granularity.
const (
	dropThreshold   = 500 * time.Millisecond
	deliverWindow   = 3 * time.Millisecond
	coarseSleepOver = 15 * time.Millisecond
	coarseSleep     = 10 * time.Millisecond
	fineSleepOver   = 8 * time.Millisecond
	fineSleep       = 4 * time.Millisecond
)

// displayWorker drains the frame buffer at presentation pace. While the
// decoder is paused-ready it leaves the staged frames untouched.
func (d *Decoder) displayWorker(ctx context.Context) {
	logger.Debugf(ctx, "displayWorker")
	defer logger.Debugf(ctx, "/displayWorker")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if d.State(ctx) != StatePlaying {
			time.Sleep(coarseSleep)
			continue
		}

		f, ok := d.buffer.Peek()
		if !ok {
			select {
			case <-ctx.Done():
				return
			default:
				continue
			}
		}

		target, armed := d.clock.TargetTime(ctx, f.PTSUS)
		if !armed {
			d.anchorClock(ctx, f.PTSUS)
			continue
		}

		delay := time.Until(target)
		switch paceDecision(delay) {
		case paceDrop:
			logger.Debugf(ctx, "dropping a frame that is %v late (pts=%dus)", -delay, f.PTSUS)
			d.Stats.FramesDropped.Inc()
			d.buffer.Consume()
		case paceDeliver:
			d.deliver(ctx, f.PTSUS)
		case paceSleepCoarse:
			time.Sleep(coarseSleep)
		case paceSleepFine:
			time.Sleep(fineSleep)
		case paceYield:
			runtime.Gosched()
		}
	}
}

type paceAction int

const (
	paceDrop paceAction = iota
	paceDeliver
	paceSleepCoarse
	paceSleepFine
	paceYield
)

func paceDecision(delay time.Duration) paceAction {
	switch {
	case delay < -dropThreshold:
		return paceDrop
	case delay <= deliverWindow:
		return paceDeliver
	case delay >= coarseSleepOver:
		return paceSleepCoarse
	case delay >= fineSleepOver:
		return paceSleepFine
	default:
		return paceYield
	}
}

// anchorClock re-anchors the disarmed presentation clock at the given frame
// and shows it immediately; the first frame after start/seek/loop lands here.
// The frame is re-validated against the buffer first: a seek running on the
// decode worker may have invalidated it after it was peeked, and anchoring at
// a pre-seek timestamp would stall delivery until the wall clock caught up
// with the stale anchor.
func (d *Decoder) anchorClock(ctx context.Context, ptsUS int64) {
	f, ok := d.buffer.TryPeek()
	if !ok || f.PTSUS != ptsUS {
		logger.Debugf(ctx, "the peeked frame is gone, not anchoring at pts=%dus", ptsUS)
		return
	}
	d.clock.Reset(ctx, ptsUS)
	d.deliver(ctx, ptsUS)
}

func (d *Decoder) deliver(ctx context.Context, ptsUS int64) {
	f, ok := d.buffer.TryPeek()
	if !ok || f.PTSUS != ptsUS {
		return
	}
	if d.cfg.OnVideoFrame != nil {
		vid := f.Video
		vid.Timestamp = time.Now()
		d.cfg.OnVideoFrame(ctx, vid)
	}
	d.clock.Update(ctx, ptsUS)
	d.Stats.FramesDelivered.Inc()
	d.buffer.Consume()
}
