// Package playlist maps a shared timeline onto a sequence of media files:
// it probes durations, computes which file and offset correspond to an
// elapsed schedule time, and drives the decoder switches and seeks needed to
// stay on that schedule.
package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/dustin/go-humanize"
	"github.com/xaionaro-go/avplayback/decoder"
	"github.com/xaionaro-go/avplayback/logger"
)

// FallbackItemDuration substitutes for files whose duration cannot be
// probed; the seek clamp and position math need some value to work with.
const FallbackItemDuration = 30 * time.Minute

type Item struct {
	Path     string
	Duration time.Duration
}

type Playlist struct {
	Items []Item
	Total time.Duration
}

// Probe opens every file just far enough to learn its duration. Files that
// cannot be opened or probed get FallbackItemDuration instead of failing
// the whole playlist.
func Probe(ctx context.Context, paths []string) *Playlist {
	p := &Playlist{}
	for i, path := range paths {
		dur, err := probeDuration(ctx, path)
		if err != nil {
			logger.Warnf(ctx, "unable to probe '%s', assuming %v: %v", path, FallbackItemDuration, err)
			dur = FallbackItemDuration
		}
		logger.Debugf(ctx, "file #%d: '%s', duration: %v", i, path, dur)
		p.Items = append(p.Items, Item{Path: path, Duration: dur})
		p.Total += dur
	}
	logger.Infof(ctx, "playlist: %d file(s), total duration: %v",
		len(p.Items), p.Total)
	return p
}

func probeDuration(ctx context.Context, path string) (_ time.Duration, _err error) {
	logger.Tracef(ctx, "probeDuration: '%s'", path)
	defer func() { logger.Tracef(ctx, "/probeDuration: %v", _err) }()

	fmtCtx := astiav.AllocFormatContext()
	if fmtCtx == nil {
		return 0, fmt.Errorf("unable to allocate a format context")
	}
	// a dead network path must not hang the whole playlist probe
	interrupter := fmtCtx.SetInterruptCallback()
	openTimer := time.AfterFunc(decoder.DefaultOpenTimeout, interrupter.Interrupt)
	defer openTimer.Stop()
	if err := fmtCtx.OpenInput(path, nil, nil); err != nil {
		fmtCtx.Free()
		return 0, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer func() {
		fmtCtx.CloseInput()
		fmtCtx.Free()
	}()

	if err := fmtCtx.FindStreamInfo(nil); err != nil {
		return 0, fmt.Errorf("unable to get stream info: %w", err)
	}
	durUS := fmtCtx.Duration()
	if durUS <= 0 {
		return 0, fmt.Errorf("the container reports no duration")
	}
	return time.Duration(durUS) * time.Microsecond, nil
}

// Position maps elapsed schedule time to (file index, offset in file). With
// looping the elapsed time wraps modulo the playlist total; without it, time
// past the end pins to the end of the last file.
func (p *Playlist) Position(elapsed time.Duration, loop bool) (int, time.Duration) {
	if len(p.Items) == 0 || p.Total <= 0 {
		return 0, 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if loop {
		elapsed = elapsed % p.Total
	}

	var accumulated time.Duration
	for i, item := range p.Items {
		if elapsed < accumulated+item.Duration {
			return i, elapsed - accumulated
		}
		accumulated += item.Duration
	}

	// past the end without looping
	last := len(p.Items) - 1
	return last, p.Items[last].Duration
}

// ClampSeek bounds a seek target to 95% of the file duration; positions past
// that point risk landing in the tail where some containers have no frames
// left to decode.
func ClampSeek(ctx context.Context, offset, duration time.Duration) time.Duration {
	if duration <= 0 {
		duration = FallbackItemDuration
	}
	maxSeek := duration * 95 / 100
	if offset > maxSeek {
		logger.Warnf(ctx, "clamping seek from %v to %v (95%% of duration)", offset, maxSeek)
		return maxSeek
	}
	return offset
}

func (p *Playlist) String() string {
	return fmt.Sprintf("Playlist(%d files, %s)",
		len(p.Items), humanize.RelTime(time.Time{}, time.Time{}.Add(p.Total), "", ""))
}
