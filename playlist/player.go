package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/xaionaro-go/avplayback/decoder"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/timeline"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

const (
	// shutdownGrace delays tearing the decoder down after deactivation;
	// quick re-activations resume instantly instead of reinitializing.
	shutdownGrace = 2 * time.Second

	// Loop wraparound detection: the expected offset jumping from past
	// loopNearEnd back under loopNearStart means the schedule wrapped.
	loopNearEnd   = 60 * time.Second
	loopNearStart = 5 * time.Second

	// DefaultTickInterval is how often the player compares actual playback
	// against the schedule.
	DefaultTickInterval = 500 * time.Millisecond
)

// mediaDecoder is what the player needs from a decoder; *decoder.Decoder
// implements it.
type mediaDecoder interface {
	Initialize(ctx context.Context) error
	Reinitialize(ctx context.Context, path string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PauseReady(ctx context.Context) error
	Resume(ctx context.Context) error
	SeekTo(ctx context.Context, pos time.Duration)
	StopWorkers(ctx context.Context)
	FreeScalers(ctx context.Context)
	Close(ctx context.Context) error
	State(ctx context.Context) decoder.State
	Position(ctx context.Context) time.Duration
	Duration(ctx context.Context) time.Duration
	CurrentPath() string
}

type PlayerConfig struct {
	Playlist *Playlist
	Anchor   *timeline.Anchor
	Loop     bool

	// Decoder is the per-file configuration template; Path and Loop are
	// filled in by the player.
	Decoder decoder.Config

	TickInterval time.Duration

	// newDecoder and elapsed are swappable for tests.
	newDecoder func(cfg decoder.Config) mediaDecoder
	elapsed    func(ctx context.Context) time.Duration
}

// Player keeps one decoder aligned with the shared schedule: it switches
// files when the timeline crosses a boundary, seeks when the loop wraps, and
// defers decoder shutdown across short deactivations.
type Player struct {
	cfg PlayerConfig

	locker             xsync.Mutex
	current            mediaDecoder
	currentIndex       int
	lastExpectedOffset time.Duration
	active             bool
	deactivateSeq      uint64
}

func NewPlayer(cfg PlayerConfig) (*Player, error) {
	if cfg.Playlist == nil || len(cfg.Playlist.Items) == 0 {
		return nil, fmt.Errorf("the playlist is empty")
	}
	if cfg.Anchor == nil {
		return nil, fmt.Errorf("a timeline anchor is required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.newDecoder == nil {
		cfg.newDecoder = func(dcfg decoder.Config) mediaDecoder {
			return decoder.New(dcfg)
		}
	}
	if cfg.elapsed == nil {
		cfg.elapsed = cfg.Anchor.Elapsed
	}
	return &Player{
		cfg:          cfg,
		currentIndex: -1,
	}, nil
}

// Activate joins the shared schedule (establishing it if this player is
// first) and starts or resumes playback at the synchronized position.
func (p *Player) Activate(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Activate")
	defer func() { logger.Debugf(ctx, "/Activate: %v", _err) }()
	return xsync.DoR1(ctx, &p.locker, func() error {
		p.active = true
		p.deactivateSeq++ // cancels a pending deferred shutdown

		p.cfg.Anchor.Acquire(ctx)

		if p.current != nil && p.current.State(ctx) == decoder.StatePausedReady {
			if err := p.current.Resume(ctx); err == nil {
				logger.Debugf(ctx, "resumed from the paused-ready state")
				return nil
			} else {
				logger.Warnf(ctx, "unable to resume, restarting playback: %v", err)
			}
		}
		return p.startPlayback(ctx)
	})
}

// Deactivate pauses presentation right away and keeps the decoder warm for
// shutdownGrace in case the player comes right back.
func (p *Player) Deactivate(ctx context.Context) {
	logger.Debugf(ctx, "Deactivate")
	defer logger.Debugf(ctx, "/Deactivate")
	var seq uint64
	p.locker.Do(ctx, func() {
		p.active = false
		p.deactivateSeq++
		seq = p.deactivateSeq
		if p.current != nil && p.current.State(ctx) == decoder.StatePlaying {
			if err := p.current.Pause(ctx); err != nil {
				logger.Warnf(ctx, "unable to pause the decoder: %v", err)
			}
		}
	})

	observability.Go(xcontext.DetachDone(ctx), func(ctx context.Context) {
		time.Sleep(shutdownGrace)
		p.locker.Do(ctx, func() {
			if p.deactivateSeq != seq || p.active {
				logger.Debugf(ctx, "deferred shutdown cancelled")
				return
			}
			if p.current != nil {
				logger.Debugf(ctx, "deferred shutdown: stopping the decoder")
				p.current.StopWorkers(ctx)
				p.current.FreeScalers(ctx)
			}
		})
	})
}

// Serve ticks the player until ctx is cancelled.
func (p *Player) Serve(ctx context.Context) {
	logger.Debugf(ctx, "Serve")
	defer logger.Debugf(ctx, "/Serve")

	t := time.NewTicker(p.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := p.Tick(ctx); err != nil {
				logger.Errorf(ctx, "tick: %v", err)
			}
		}
	}
}

// Tick realigns playback with the schedule: switching files when the
// expected index moved, seeking back when the loop wrapped within the same
// file.
func (p *Player) Tick(ctx context.Context) (_err error) {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &p.locker, func() error {
		if !p.active || p.current == nil {
			return nil
		}

		elapsed := p.cfg.elapsed(ctx)
		expectedIndex, expectedOffset := p.cfg.Playlist.Position(elapsed, p.cfg.Loop)

		loopSeek := false
		if p.cfg.Loop && expectedIndex == 0 && p.currentIndex == 0 &&
			p.lastExpectedOffset > loopNearEnd && expectedOffset < loopNearStart {
			logger.Infof(ctx, "loop detected: restarting from %v (was at %v)",
				expectedOffset, p.lastExpectedOffset)
			loopSeek = true
		}
		p.lastExpectedOffset = expectedOffset

		if expectedIndex == p.currentIndex && !loopSeek {
			return nil
		}

		if expectedIndex != p.currentIndex {
			logger.Infof(ctx, "timeline sync: switching from file %d to %d",
				p.currentIndex, expectedIndex)
			return p.switchTo(ctx, expectedIndex, expectedOffset)
		}

		// same file, loop wrap: just seek
		p.current.SeekTo(ctx, ClampSeek(ctx, expectedOffset, p.cfg.Playlist.Items[p.currentIndex].Duration))
		return nil
	})
}

// startPlayback loads and plays whatever file the schedule says should be on
// screen right now. Must be called with the lock held.
func (p *Player) startPlayback(ctx context.Context) error {
	elapsed := p.cfg.elapsed(ctx)
	index, offset := p.cfg.Playlist.Position(elapsed, p.cfg.Loop)
	logger.Infof(ctx, "using the synchronized position: file %d, offset %v", index, offset)
	return p.switchTo(ctx, index, offset)
}

// switchTo replaces (or reuses) the decoder for the given playlist entry and
// starts playing at offset. Must be called with the lock held.
func (p *Player) switchTo(ctx context.Context, index int, offset time.Duration) error {
	item := p.cfg.Playlist.Items[index]

	if p.current != nil && p.current.CurrentPath() == item.Path {
		logger.Debugf(ctx, "the file is already loaded, seeking to %v", offset)
		p.currentIndex = index
		p.current.SeekTo(ctx, ClampSeek(ctx, offset, item.Duration))
		if p.current.State(ctx) == decoder.StateStopped {
			return p.current.Play(ctx)
		}
		return nil
	}

	if p.current != nil {
		// reuse the instance: its callbacks, its buffer and its counters
		// survive the transition
		p.current.StopWorkers(ctx)
		if err := p.current.Reinitialize(ctx, item.Path); err == nil {
			p.currentIndex = index
			if offset > 0 {
				p.current.SeekTo(ctx, ClampSeek(ctx, offset, item.Duration))
			}
			return p.current.Play(ctx)
		} else {
			logger.Warnf(ctx, "unable to reinitialize the decoder, recreating it: %v", err)
			old := p.current
			p.current = nil
			observability.Go(xcontext.DetachDone(ctx), func(ctx context.Context) {
				if err := old.Close(ctx); err != nil {
					logger.Errorf(ctx, "unable to close the old decoder: %v", err)
				}
			})
		}
	}

	dcfg := p.cfg.Decoder
	dcfg.Path = item.Path
	d := p.cfg.newDecoder(dcfg)
	if err := d.Initialize(ctx); err != nil {
		return fmt.Errorf("unable to initialize a decoder for '%s': %w", item.Path, err)
	}
	if offset > 0 {
		d.SeekTo(ctx, ClampSeek(ctx, offset, item.Duration))
	}
	if err := d.Play(ctx); err != nil {
		_ = d.Close(ctx)
		return fmt.Errorf("unable to start playback of '%s': %w", item.Path, err)
	}
	p.current = d
	p.currentIndex = index
	return nil
}

// Close stops and releases the current decoder.
func (p *Player) Close(ctx context.Context) error {
	return xsync.DoR1(ctx, &p.locker, func() error {
		p.active = false
		if p.current == nil {
			return nil
		}
		p.current.StopWorkers(ctx)
		err := p.current.Close(ctx)
		p.current = nil
		p.currentIndex = -1
		return err
	})
}
