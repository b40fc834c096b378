package decoder

import (
	"context"
	"fmt"
	"time"

	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

type State int

const (
	StateStopped State = iota
	StatePausedReady
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePausedReady:
		return "paused_ready"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// pausedReadyMaxAge is how long a pre-decoded first frame stays trustworthy;
// resuming later than this re-seeks instead of presenting stale content.
const pausedReadyMaxAge = 10 * time.Second

// workersJoinTimeout bounds each phase of the worker shutdown escalation.
const workersJoinTimeout = time.Second

// Play starts the decode and display workers and begins presenting
// immediately.
func (d *Decoder) Play(ctx context.Context) error {
	return d.startWorkers(ctx, StatePlaying)
}

// PauseReady starts the workers but holds presentation: the decode worker
// fills the frame buffer and blocks, so the first frame is ready for an
// instant later Resume.
func (d *Decoder) PauseReady(ctx context.Context) error {
	if err := d.startWorkers(ctx, StatePausedReady); err != nil {
		return err
	}
	d.pausedReadyAt.Store(time.Now())
	return nil
}

// Pause holds presentation while keeping the workers and the staged frames,
// so a later Resume presents instantly. The display worker idles; the decode
// worker keeps filling the buffer until it blocks on a full slot.
func (d *Decoder) Pause(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Pause")
	defer func() { logger.Debugf(ctx, "/Pause: %v", _err) }()
	return xsync.DoR1(ctx, &d.locker, func() error {
		if d.state != StatePlaying {
			return fmt.Errorf("cannot pause from state '%s'", d.state)
		}
		d.state = StatePausedReady
		d.pausedReadyAt.Store(time.Now())
		return nil
	})
}

// Resume switches a paused-ready decoder to presenting. If the pre-decoded
// content got stale the decoder re-seeks to its requested position first.
func (d *Decoder) Resume(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Resume")
	defer func() { logger.Debugf(ctx, "/Resume: %v", _err) }()
	return xsync.DoR1(ctx, &d.locker, func() error {
		if d.state != StatePausedReady {
			return fmt.Errorf("cannot resume from state '%s'", d.state)
		}
		if age := time.Since(d.pausedReadyAt.Load()); age > pausedReadyMaxAge {
			logger.Debugf(ctx, "paused-ready content is %v old, re-seeking", age)
			d.buffer.Invalidate(ctx)
			d.clock.Disarm(ctx)
			d.seekToUS.Store(d.clock.LastPTS(ctx))
		}
		d.state = StatePlaying
		return nil
	})
}

func (d *Decoder) startWorkers(ctx context.Context, initial State) (_err error) {
	logger.Debugf(ctx, "startWorkers: %s", initial)
	defer func() { logger.Debugf(ctx, "/startWorkers: %v", _err) }()
	return xsync.DoR1(ctx, &d.locker, func() error {
		if d.fmtCtx == nil {
			return fmt.Errorf("not initialized")
		}
		if d.workersDone != nil {
			return fmt.Errorf("workers are already running")
		}

		d.state = initial
		d.buffer.Resume()
		if d.interrupter != nil {
			// re-arm demuxer IO after a previous stop
			d.interrupter.Resume()
		}

		workersCtx, cancel := context.WithCancel(xcontext.DetachDone(ctx))
		d.workersCancel = cancel
		done := make(chan struct{}, 2)
		d.workersDone = make(chan struct{})

		observability.Go(workersCtx, func(ctx context.Context) {
			defer func() { done <- struct{}{} }()
			d.decodeWorker(ctx)
		})
		observability.Go(workersCtx, func(ctx context.Context) {
			defer func() { done <- struct{}{} }()
			d.displayWorker(ctx)
		})
		observability.Go(workersCtx, func(ctx context.Context) {
			<-done
			<-done
			close(d.workersDone)
		})
		return nil
	})
}

// StopWorkers winds the workers down: cooperative cancel plus an immediate
// interrupt of both blocking points (demuxer IO and the frame buffer), since
// neither a blocked ReadFrame nor a worker parked on the buffer's condition
// variable ever observes the context. It is idempotent.
func (d *Decoder) StopWorkers(ctx context.Context) {
	logger.Debugf(ctx, "StopWorkers")
	defer logger.Debugf(ctx, "/StopWorkers")

	var doneCh chan struct{}
	d.locker.Do(ctx, func() {
		doneCh = d.workersDone
		if d.workersCancel != nil {
			d.workersCancel()
		}
		if d.interrupter != nil {
			d.interrupter.Interrupt()
		}
		d.state = StateStopped
	})
	d.buffer.Interrupt()
	if doneCh == nil {
		return
	}

	select {
	case <-doneCh:
	case <-time.After(workersJoinTimeout):
		logger.Errorf(ctx, "workers are stuck, waiting unboundedly")
		<-doneCh
	}

	d.locker.Do(ctx, func() {
		d.workersCancel = nil
		d.workersDone = nil
	})
}

// FreeScalers drops the cached conversion contexts; used while paused for
// long periods to give the memory back.
func (d *Decoder) FreeScalers(ctx context.Context) {
	d.locker.Do(ctx, func() {
		if d.conv != nil {
			d.conv.ReleaseScalers(ctx)
		}
	})
}
