// Package decoder ties the playback pipeline together for one media file:
// demuxing, video and audio decoding (hardware when possible), format
// conversion, the frame buffer, the presentation clock and the two workers
// that feed and drain it.
package decoder

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/avplayback/clock"
	"github.com/xaionaro-go/avplayback/converter"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/framebuffer"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/resampler"
	"github.com/xaionaro-go/avplayback/scaler"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// DefaultOpenTimeout bounds how long opening and probing an input may take
// before the demuxer is interrupted.
const DefaultOpenTimeout = 5 * time.Second

// audioChunkSize is the number of samples per delivered audio block.
const audioChunkSize = 1024

// VideoFrameCallback receives each presentable video frame at its delivery
// time. The descriptor is only valid for the duration of the call.
type VideoFrameCallback func(ctx context.Context, f frame.Video)

// AudioChunkCallback receives resampled audio as soon as it is decoded.
type AudioChunkCallback func(ctx context.Context, a frame.Audio)

type Config struct {
	Path string

	// Output is the delivery geometry; zero means native (after aspect
	// correction).
	Output scaler.Resolution

	// HardwareDeviceType selects the decode acceleration backend;
	// HardwareDeviceTypeNone disables acceleration.
	HardwareDeviceType astiav.HardwareDeviceType
	HardwareDeviceName string

	NV12ZeroCopy bool
	EnableAudio  bool
	Loop         bool

	// PlaybackRate is the speed multiplier; zero means 1.0.
	PlaybackRate float64

	OnVideoFrame VideoFrameCallback
	OnAudioChunk AudioChunkCallback

	// OnEndOfStream fires when the input is exhausted and Loop is false.
	OnEndOfStream func(ctx context.Context)

	OpenTimeout time.Duration
}

// Stats are live counters exported for diagnostics.
type Stats struct {
	FramesDecoded      atomic.Uint64
	FramesDelivered    atomic.Uint64
	FramesDropped      atomic.Uint64
	AudioChunks        atomic.Uint64
	HWTransferFailures atomic.Uint64
	Loops              atomic.Uint64

	// AudioPeak is the largest absolute sample of the most recent audio
	// chunk, in range [0, 1].
	AudioPeak atomic.Float64
}

type Decoder struct {
	cfg   Config
	Stats Stats

	locker xsync.Mutex
	state  State

	fmtCtx      *astiav.FormatContext
	interrupter astiav.IOInterrupter
	videoStream *astiav.Stream
	audioStream *astiav.Stream
	videoCodec  *streamDecoder
	audioCodec  *streamDecoder

	conv      *converter.Converter
	resampler *resampler.Resampler
	clock     *clock.PresentationClock
	buffer    *framebuffer.Buffer

	closer *astikit.Closer

	// seekToUS holds a pending seek position in microseconds, or
	// noSeekRequested.
	seekToUS atomic.Int64

	// softwareFallback is latched after too many consecutive hardware
	// transfer failures; it never resets for the lifetime of the decoder.
	softwareFallback atomic.Bool

	// hwTransferFailStreak, lastVideoPTSUS and lastAudioPTSUS are only
	// touched by the decode worker.
	hwTransferFailStreak int
	lastVideoPTSUS       int64
	lastAudioPTSUS       int64

	pausedReadyAt atomic.Time

	workersCancel context.CancelFunc
	workersDone   chan struct{}
}

const noSeekRequested = int64(-1) << 62

func New(cfg Config) *Decoder {
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	d := &Decoder{
		cfg:    cfg,
		clock:  clock.New(),
		buffer: framebuffer.New(framebuffer.DefaultCapacity),
		closer: astikit.NewCloser(),
	}
	if cfg.PlaybackRate > 0 {
		d.clock.SetPlaybackRate(context.TODO(), cfg.PlaybackRate)
	}
	d.seekToUS.Store(noSeekRequested)
	return d
}

// Initialize opens the input, probes its streams and prepares the codec
// contexts and the conversion stage. It does not start the workers.
func (d *Decoder) Initialize(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Initialize: '%s'", d.cfg.Path)
	defer func() { logger.Debugf(ctx, "/Initialize: %v", _err) }()
	logger.Tracef(ctx, "config: %s", spew.Sdump(d.cfg))
	return xsync.DoR1(ctx, &d.locker, func() error {
		return d.initialize(ctx)
	})
}

func (d *Decoder) initialize(ctx context.Context) (_err error) {
	if d.fmtCtx != nil {
		d.teardownInput(ctx)
	}
	defer func() {
		if _err != nil {
			d.teardownInput(ctx)
		}
	}()

	fmtCtx := astiav.AllocFormatContext()
	if fmtCtx == nil {
		return fmt.Errorf("unable to allocate a format context")
	}

	d.interrupter = fmtCtx.SetInterruptCallback()
	openDeadline := time.Now().Add(d.cfg.OpenTimeout)
	openTimer := time.AfterFunc(time.Until(openDeadline), d.interrupter.Interrupt)

	if err := fmtCtx.OpenInput(d.cfg.Path, nil, nil); err != nil {
		openTimer.Stop()
		fmtCtx.Free()
		return fmt.Errorf("unable to open input '%s': %w", d.cfg.Path, err)
	}
	d.closer.Add(func() {
		fmtCtx.CloseInput()
		fmtCtx.Free()
	})

	if err := fmtCtx.FindStreamInfo(nil); err != nil {
		openTimer.Stop()
		return fmt.Errorf("unable to get stream info: %w", err)
	}
	openTimer.Stop()
	d.fmtCtx = fmtCtx

	for _, stream := range fmtCtx.Streams() {
		switch stream.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if d.videoStream == nil {
				d.videoStream = stream
			}
		case astiav.MediaTypeAudio:
			if d.audioStream == nil && d.cfg.EnableAudio {
				d.audioStream = stream
			}
		}
	}
	if d.videoStream == nil {
		return fmt.Errorf("no video stream in '%s'", d.cfg.Path)
	}
	logger.Debugf(ctx, "video stream #%d, audio stream: %v",
		d.videoStream.Index(), d.audioStream != nil)

	videoCodec, err := d.openVideoCodec(ctx, d.videoStream)
	if err != nil {
		return fmt.Errorf("unable to open a video decoder: %w", err)
	}
	xatomic.StorePointer(&d.videoCodec, videoCodec)

	if d.audioStream != nil {
		audioCodec, err := d.openAudioCodec(ctx, d.audioStream)
		if err != nil {
			logger.Errorf(ctx, "unable to open an audio decoder, continuing without audio: %v", err)
			d.audioStream = nil
		} else {
			d.audioCodec = audioCodec
			r, err := resampler.New(ctx, resampler.FloatStereo(
				d.audioStream.CodecParameters().SampleRate(),
				audioChunkSize,
			))
			if err != nil {
				return fmt.Errorf("unable to create a resampler: %w", err)
			}
			d.resampler = r
		}
	}

	output := d.cfg.Output
	if output == (scaler.Resolution{}) {
		params := d.videoStream.CodecParameters()
		output = displayResolution(
			params.Width(), params.Height(),
			params.SampleAspectRatio(),
		)
	}
	d.conv = converter.New(ctx, converter.Config{
		Output:       output,
		NV12ZeroCopy: d.cfg.NV12ZeroCopy,
	})

	return nil
}

// Duration reports the media duration, or 0 when the container does not
// know it.
func (d *Decoder) Duration(ctx context.Context) time.Duration {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() time.Duration {
		if d.fmtCtx == nil {
			return 0
		}
		durUS := d.fmtCtx.Duration()
		if durUS <= 0 {
			return 0
		}
		return time.Duration(durUS) * time.Microsecond
	})
}

// Position reports the media position of the most recently presented frame.
func (d *Decoder) Position(ctx context.Context) time.Duration {
	return time.Duration(d.clock.LastPTS(ctx)) * time.Microsecond
}

func (d *Decoder) CurrentPath() string {
	return d.cfg.Path
}

func (d *Decoder) State(ctx context.Context) State {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() State {
		return d.state
	})
}

// UsingSoftwareFallback reports whether hardware output transfer was
// abandoned for this decoder.
func (d *Decoder) UsingSoftwareFallback() bool {
	return d.softwareFallback.Load()
}

// SeekTo requests an asynchronous seek; the decode worker performs it before
// reading the next packet. A later request supersedes an unserved one.
func (d *Decoder) SeekTo(ctx context.Context, pos time.Duration) {
	logger.Debugf(ctx, "SeekTo: %v", pos)
	d.seekToUS.Store(pos.Microseconds())
}

// Reinitialize points the instance at a different file, releasing the
// previous input first. The buffer, the clock and the stats survive, so the
// caller keeps its callbacks and counters across a playlist transition. The
// workers must be stopped.
func (d *Decoder) Reinitialize(ctx context.Context, path string) (_err error) {
	logger.Debugf(ctx, "Reinitialize: '%s'", path)
	defer func() { logger.Debugf(ctx, "/Reinitialize: %v", _err) }()
	return xsync.DoR1(ctx, &d.locker, func() error {
		if d.workersDone != nil {
			return fmt.Errorf("the workers are still running")
		}
		d.cfg.Path = path
		return d.initialize(ctx)
	})
}

func (d *Decoder) videoTimeBase() astiav.Rational {
	return d.videoStream.TimeBase()
}

// Close stops the workers if they are still running and releases all native
// resources.
func (d *Decoder) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()

	d.StopWorkers(ctx)
	return xsync.DoR1(ctx, &d.locker, func() error {
		d.teardownInput(ctx)
		return nil
	})
}

// teardownInput releases everything tied to the currently opened input; the
// instance itself (buffer, clock, stats, callbacks) stays usable, so a later
// initialize may open another file. Must be called under d.locker.
func (d *Decoder) teardownInput(ctx context.Context) {
	d.buffer.Invalidate(ctx)
	if d.conv != nil {
		d.conv.ReleaseScalers(ctx)
		d.conv = nil
	}
	if d.resampler != nil {
		if err := d.resampler.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the resampler: %v", err)
		}
		d.resampler = nil
	}
	d.closer.Close()
	d.closer = astikit.NewCloser()
	d.fmtCtx = nil
	d.interrupter = nil
	d.videoStream = nil
	d.audioStream = nil
	d.audioCodec = nil
	xatomic.StorePointer(&d.videoCodec, (*streamDecoder)(nil))
	d.seekToUS.Store(noSeekRequested)
	d.clock.Disarm(ctx)
}
