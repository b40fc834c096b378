package decoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/avplayback/audio"
	"github.com/xaionaro-go/avplayback/avconv"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/framebuffer"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/packet"
)

// hwTransferFailureLimit is the number of consecutive device-to-host copy
// failures after which hardware output is abandoned for good.
const hwTransferFailureLimit = 5

// decodeWorker reads packets, decodes them, converts video frames and pushes
// them into the frame buffer, blocking when the buffer is full. Audio is
// resampled and delivered immediately.
func (d *Decoder) decodeWorker(ctx context.Context) {
	logger.Debugf(ctx, "decodeWorker")
	defer logger.Debugf(ctx, "/decodeWorker")

	pkt := packet.Pool.Get()
	defer packet.Pool.Put(pkt)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := d.serveSeekRequest(ctx); err != nil {
			logger.Errorf(ctx, "unable to seek: %v", err)
		}

		pkt.Unref()
		err := d.fmtCtx.ReadFrame(pkt)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEof), errors.Is(err, astiav.ErrEio):
			if d.cfg.Loop {
				d.Stats.Loops.Inc()
				logger.Debugf(ctx, "end of input, looping")
				d.seekToUS.Store(0)
				continue
			}
			logger.Debugf(ctx, "end of input")
			if d.cfg.OnEndOfStream != nil {
				d.cfg.OnEndOfStream(ctx)
			}
			return
		default:
			logger.Errorf(ctx, "unable to read a packet: %v", err)
			return
		}

		switch pkt.StreamIndex() {
		case d.videoStream.Index():
			if err := d.decodeVideoPacket(ctx, pkt); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Errorf(ctx, "unable to decode a video packet: %v", err)
			}
		default:
			if d.audioStream != nil && pkt.StreamIndex() == d.audioStream.Index() {
				if err := d.decodeAudioPacket(ctx, pkt); err != nil {
					logger.Errorf(ctx, "unable to decode an audio packet: %v", err)
				}
			}
		}
	}
}

// serveSeekRequest executes a pending seek: reposition the demuxer to the
// nearest preceding keyframe, flush the codec buffers, drop the staged
// frames and disarm the clock so the next decoded frame re-anchors it.
func (d *Decoder) serveSeekRequest(ctx context.Context) (_err error) {
	posUS := d.seekToUS.Swap(noSeekRequested)
	if posUS == noSeekRequested {
		return nil
	}
	logger.Debugf(ctx, "serveSeekRequest: %dus", posUS)
	defer func() { logger.Debugf(ctx, "/serveSeekRequest: %v", _err) }()

	ts := avconv.FromMicroseconds(posUS, d.videoTimeBase())
	if err := d.fmtCtx.SeekFrame(d.videoStream.Index(), ts, astiav.SeekFlagBackward); err != nil {
		return fmt.Errorf("unable to seek to %dus: %w", posUS, err)
	}
	xatomic.LoadPointer(&d.videoCodec).FlushBuffers(ctx)
	if d.audioCodec != nil {
		d.audioCodec.FlushBuffers(ctx)
	}
	d.buffer.Invalidate(ctx)
	d.clock.Disarm(ctx)
	d.lastVideoPTSUS = posUS
	d.lastAudioPTSUS = posUS
	return nil
}

func (d *Decoder) decodeVideoPacket(
	ctx context.Context,
	pkt *astiav.Packet,
) error {
	// the software fallback may have swapped the codec under us
	vc := xatomic.LoadPointer(&d.videoCodec)
	if err := vc.SendPacket(ctx, pkt); err != nil {
		return fmt.Errorf("unable to send a packet to the decoder: %w", err)
	}

	decFrame := frame.Pool.Get()
	defer frame.Pool.Put(decFrame)

	for {
		decFrame.Unref()
		err := vc.ReceiveFrame(ctx, decFrame)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
			return nil
		default:
			return fmt.Errorf("unable to receive a frame: %w", err)
		}
		d.Stats.FramesDecoded.Inc()

		presentable := decFrame
		if vc.IsHardware() && !d.softwareFallback.Load() &&
			decFrame.PixelFormat() == vc.hardwarePixelFormat {
			sw, err := d.transferFromDevice(ctx, decFrame)
			if err != nil {
				logger.Errorf(ctx, "unable to transfer a frame from the device: %v", err)
				continue
			}
			defer frame.Pool.Put(sw)
			presentable = sw
		}

		ptsUS := resolvePTSUS(decFrame.Pts(), d.videoTimeBase(), d.lastVideoPTSUS, d.videoFrameDurationUS())
		d.lastVideoPTSUS = ptsUS
		if err := d.stageVideoFrame(ctx, presentable, ptsUS); err != nil {
			return err
		}
	}
}

// resolvePTSUS maps a raw stream timestamp to microseconds. A frame carrying
// no timestamp at all is extrapolated from the previous one plus a nominal
// step, so broken containers keep playing instead of losing frames.
func resolvePTSUS(pts int64, timeBase astiav.Rational, lastUS, stepUS int64) int64 {
	if avconv.NoPTS(pts) {
		return lastUS + stepUS
	}
	return avconv.Microseconds(pts, timeBase)
}

// videoFrameDurationUS derives the nominal frame interval from the stream's
// average frame rate, defaulting to 1/30s when the container does not know it.
func (d *Decoder) videoFrameDurationUS() int64 {
	fr := d.videoStream.AvgFrameRate()
	if fr.Num() <= 0 || fr.Den() <= 0 {
		return 33_333
	}
	return int64(1_000_000 * float64(fr.Den()) / float64(fr.Num()))
}

// transferFromDevice copies a decoded frame out of device memory. Once the
// copy fails more than hwTransferFailureLimit times in a row the decoder
// latches into software fallback and never tries again.
func (d *Decoder) transferFromDevice(
	ctx context.Context,
	hwFrame *astiav.Frame,
) (*astiav.Frame, error) {
	sw := frame.Pool.Get()
	sw.Unref()
	if err := hwFrame.TransferHardwareData(sw); err != nil {
		frame.Pool.Put(sw)
		if d.noteTransferFailure(ctx) {
			d.reopenVideoCodecSoftware(ctx)
		}
		return nil, err
	}
	d.hwTransferFailStreak = 0
	sw.SetPts(hwFrame.Pts())
	return sw, nil
}

// noteTransferFailure records one failed device-to-host copy and reports
// whether the permanent software fallback latched on this exact failure.
func (d *Decoder) noteTransferFailure(ctx context.Context) bool {
	d.Stats.HWTransferFailures.Inc()
	d.hwTransferFailStreak++
	if d.hwTransferFailStreak <= hwTransferFailureLimit {
		return false
	}
	if !d.softwareFallback.CompareAndSwap(false, true) {
		return false
	}
	logger.Errorf(ctx,
		"%d consecutive hardware transfer failures, switching to software decoding permanently",
		d.hwTransferFailStreak)
	return true
}

func (d *Decoder) reopenVideoCodecSoftware(ctx context.Context) {
	sd, err := d.openCodec(ctx, d.videoStream, astiav.HardwareDeviceTypeNone)
	if err != nil {
		logger.Errorf(ctx, "unable to reopen the video decoder in software mode: %v", err)
		return
	}
	xatomic.StorePointer(&d.videoCodec, sd)
	// restart decoding from a keyframe at the current position
	d.seekToUS.Store(d.clock.LastPTS(ctx))
}

func (d *Decoder) stageVideoFrame(
	ctx context.Context,
	f *astiav.Frame,
	ptsUS int64,
) error {
	repr, vid, err := d.conv.Convert(ctx, f)
	if err != nil {
		return fmt.Errorf("unable to convert a frame: %w", err)
	}

	vid.PTSUS = ptsUS
	if !d.buffer.Push(framebuffer.Frame{
		Repr:  repr,
		Video: vid,
		PTSUS: ptsUS,
	}) {
		repr.Release()
		return context.Canceled
	}
	return nil
}

func (d *Decoder) decodeAudioPacket(
	ctx context.Context,
	pkt *astiav.Packet,
) error {
	if err := d.audioCodec.SendPacket(ctx, pkt); err != nil {
		return fmt.Errorf("unable to send a packet to the audio decoder: %w", err)
	}

	decFrame := frame.Pool.Get()
	defer frame.Pool.Put(decFrame)

	for {
		decFrame.Unref()
		err := d.audioCodec.ReceiveFrame(ctx, decFrame)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
			return nil
		default:
			return fmt.Errorf("unable to receive an audio frame: %w", err)
		}

		if err := d.resampler.SendFrame(ctx, decFrame); err != nil {
			return fmt.Errorf("unable to resample: %w", err)
		}
		ptsUS := resolvePTSUS(decFrame.Pts(), d.audioStream.TimeBase(),
			d.lastAudioPTSUS, audioFrameDurationUS(decFrame))
		d.lastAudioPTSUS = ptsUS
		if err := d.deliverAudio(ctx, ptsUS); err != nil {
			return err
		}
	}
}

func audioFrameDurationUS(f *astiav.Frame) int64 {
	if f.SampleRate() <= 0 {
		return 0
	}
	return int64(f.NbSamples()) * 1_000_000 / int64(f.SampleRate())
}

// deliverAudio drains complete chunks out of the resampler and hands them to
// the host immediately; audio is never staged in the frame buffer. The first
// delivered media timestamp may anchor the clock if video did not get there
// first.
func (d *Decoder) deliverAudio(ctx context.Context, ptsUS int64) error {
	for {
		out, err := d.resampler.AllocateOutputFrame(ctx)
		if err != nil {
			return fmt.Errorf("unable to allocate an output frame: %w", err)
		}
		err = d.resampler.ReceiveFrame(ctx, out)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
			frame.Pool.Put(out)
			return nil
		default:
			frame.Pool.Put(out)
			return fmt.Errorf("unable to read resampled audio: %w", err)
		}

		if _, armed := d.clock.TargetTime(ctx, ptsUS); !armed {
			d.clock.Reset(ctx, ptsUS)
		}

		if d.cfg.OnAudioChunk != nil {
			data, err := out.Data().Bytes(1)
			if err != nil {
				frame.Pool.Put(out)
				return fmt.Errorf("unable to extract audio bytes: %w", err)
			}
			d.cfg.OnAudioChunk(ctx, frame.Audio{
				Planes:     [][]byte{data},
				NbSamples:  out.NbSamples(),
				SampleRate: out.SampleRate(),
				Channels:   out.ChannelLayout().Channels(),
				PTSUS:      ptsUS,
				Timestamp:  time.Now(),
			})
		}
		if samples, err := audio.Samples(out, 0); err == nil {
			d.Stats.AudioPeak.Store(audio.Peak(samples))
		}
		d.Stats.AudioChunks.Inc()
		frame.Pool.Put(out)
	}
}
