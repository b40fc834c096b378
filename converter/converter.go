// Package converter implements the per-frame format conversion stage that
// sits between the decoder and the frame buffer. For every decoded video
// frame it picks the cheapest viable path, in order: P010 passthrough,
// NV12 zero-copy, the interleaving fast path for untouched YUV 4:2:0
// geometry, the dedicated 10-bit down-converter, a stride-aware NV12 plane
// copy, and finally a general libswscale conversion.
package converter

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/pixconv"
	"github.com/xaionaro-go/avplayback/scaler"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Config is fixed per opened stream.
type Config struct {
	// Output is the delivery geometry, already aspect-corrected.
	Output scaler.Resolution

	// NV12ZeroCopy permits handing NV12 frames through by reference when
	// no geometry change is needed.
	NV12ZeroCopy bool
}

// Stats counts which conversion path each frame took.
type Stats struct {
	PassthroughP010 atomic.Uint64
	PassthroughNV12 atomic.Uint64
	FastPathYUV420  atomic.Uint64
	BitDepthReduced atomic.Uint64
	PlaneCopiedNV12 atomic.Uint64
	GeneralScaled   atomic.Uint64
}

type Converter struct {
	cfg   Config
	Stats Stats

	locker  xsync.Mutex
	scaler  *scaler.Software // general path, rebuilt on geometry change
	reducer *scaler.Software // 10-bit to NV12, created on first 10-bit frame

	yuvToBGRA pixconv.YUV420ToBGRAFunc
	nv12Copy  pixconv.NV12CopyFunc
}

func New(ctx context.Context, cfg Config) *Converter {
	logger.Debugf(ctx, "converter: output=%s nv12ZeroCopy=%t kernels=%s",
		cfg.Output, cfg.NV12ZeroCopy, pixconv.SelectedName())
	return &Converter{
		cfg:       cfg,
		yuvToBGRA: pixconv.BestYUV420ToBGRA(),
		nv12Copy:  pixconv.BestNV12Copy(),
	}
}

func (c *Converter) sourceResolution(src *astiav.Frame) scaler.Resolution {
	return scaler.Resolution{
		Width:  uint32(src.Width()),
		Height: uint32(src.Height()),
	}
}

// Convert produces the delivery representation of a decoded frame. The
// returned representation owns its pixel data (or a reference on the
// zero-copy paths); src stays owned by the caller.
func (c *Converter) Convert(
	ctx context.Context,
	src *astiav.Frame,
) (_ frame.Representation, _ frame.Video, _err error) {
	logger.Tracef(ctx, "Convert: %s %dx%d", src.PixelFormat(), src.Width(), src.Height())
	defer func() { logger.Tracef(ctx, "/Convert: %v", _err) }()

	srcRes := c.sourceResolution(src)
	identity := srcRes == c.cfg.Output

	switch pf := src.PixelFormat(); {
	case pf == astiav.PixelFormatP010Le:
		// no down-conversion path exists for hardware 10-bit output, it
		// is always handed through by reference
		c.Stats.PassthroughP010.Inc()
		return c.passthrough(ctx, src)
	case pf == astiav.PixelFormatNv12 && c.cfg.NV12ZeroCopy && identity:
		c.Stats.PassthroughNV12.Inc()
		return c.passthrough(ctx, src)
	case pf == astiav.PixelFormatYuv420P && identity:
		c.Stats.FastPathYUV420.Inc()
		return c.fastPathYUV420(ctx, src)
	case pf == astiav.PixelFormatYuv420P10Le || pf == astiav.PixelFormatYuv422P10Le:
		c.Stats.BitDepthReduced.Inc()
		return c.reduceBitDepth(ctx, src)
	case pf == astiav.PixelFormatNv12 && identity:
		c.Stats.PlaneCopiedNV12.Inc()
		return c.planeCopyNV12(ctx, src)
	default:
		c.Stats.GeneralScaled.Inc()
		return c.generalScale(ctx, src)
	}
}

func (c *Converter) passthrough(
	ctx context.Context,
	src *astiav.Frame,
) (frame.Representation, frame.Video, error) {
	ref := frame.CloneAsReferenced(src)
	repr := &frame.Reference{Frame: ref}
	return repr, frame.Video{
		Width:       src.Width(),
		Height:      src.Height(),
		PixelFormat: src.PixelFormat(),
		ColorRange:  astiav.ColorRangeMpeg,
		Reference:   ref,
	}, nil
}

func (c *Converter) fastPathYUV420(
	ctx context.Context,
	src *astiav.Frame,
) (frame.Representation, frame.Video, error) {
	w, h := src.Width(), src.Height()
	packed, err := src.Data().Bytes(1)
	if err != nil {
		return nil, frame.Video{}, fmt.Errorf("unable to extract frame bytes: %w", err)
	}
	cw, ch := (w+1)/2, (h+1)/2
	ySize := w * h
	cSize := cw * ch

	dst := make([]byte, w*h*4)
	c.yuvToBGRA(
		packed[:ySize],
		packed[ySize:ySize+cSize],
		packed[ySize+cSize:ySize+2*cSize],
		w, cw, cw,
		dst, w*4,
		w, h,
	)
	repr := &frame.OwnedInterleaved{
		Data:   dst,
		Stride: w * 4,
	}
	// BGRA output covers the full 0..255 range regardless of the coded range
	return repr, frame.Video{
		Width:       w,
		Height:      h,
		PixelFormat: astiav.PixelFormatBgra,
		ColorRange:  astiav.ColorRangeJpeg,
		Planes:      [][]byte{dst},
		Strides:     []int{w * 4},
	}, nil
}

func (c *Converter) reduceBitDepth(
	ctx context.Context,
	src *astiav.Frame,
) (_ frame.Representation, _ frame.Video, _err error) {
	srcRes := c.sourceResolution(src)
	err := xsync.DoR1(ctx, &c.locker, func() error {
		if scaler.Matches(c.reducer, srcRes, src.PixelFormat(), srcRes, astiav.PixelFormatNv12) {
			return nil
		}
		if c.reducer != nil {
			if err := c.reducer.Close(ctx); err != nil {
				logger.Errorf(ctx, "unable to close the previous down-converter: %v", err)
			}
		}
		reducer, err := scaler.NewBitDepthReducer(ctx, srcRes, src.PixelFormat())
		if err != nil {
			return fmt.Errorf("unable to create the down-converter: %w", err)
		}
		c.reducer = reducer
		return nil
	})
	if err != nil {
		return nil, frame.Video{}, err
	}

	dstFrame := frame.Pool.Get()
	defer frame.Pool.Put(dstFrame)
	if err := c.reducer.ScaleFrame(ctx, src, dstFrame); err != nil {
		return nil, frame.Video{}, fmt.Errorf("unable to down-convert to NV12: %w", err)
	}
	return c.planeCopyNV12(ctx, dstFrame)
}

func (c *Converter) planeCopyNV12(
	ctx context.Context,
	src *astiav.Frame,
) (frame.Representation, frame.Video, error) {
	w, h := src.Width(), src.Height()
	packed, err := src.Data().Bytes(1)
	if err != nil {
		return nil, frame.Video{}, fmt.Errorf("unable to extract frame bytes: %w", err)
	}
	ch := (h + 1) / 2
	ySize := w * h
	uvSize := w * ch

	// trailing padding keeps wide kernels from reading past the chroma tail
	buf := make([]byte, ySize+uvSize+pixconv.TailPadding)
	c.nv12Copy(
		buf[:ySize], buf[ySize:ySize+uvSize],
		w, w,
		packed[:ySize], packed[ySize:ySize+uvSize],
		w, w,
		w, h,
	)
	repr := &frame.OwnedPlanes{
		Buffer:  buf,
		Planes:  [][]byte{buf[:ySize], buf[ySize : ySize+uvSize]},
		Strides: []int{w, w},
		Format:  astiav.PixelFormatNv12,
	}
	return repr, frame.Video{
		Width:       w,
		Height:      h,
		PixelFormat: astiav.PixelFormatNv12,
		ColorRange:  astiav.ColorRangeMpeg,
		Planes:      repr.Planes,
		Strides:     repr.Strides,
	}, nil
}

func (c *Converter) generalScale(
	ctx context.Context,
	src *astiav.Frame,
) (_ frame.Representation, _ frame.Video, _err error) {
	srcRes := c.sourceResolution(src)
	err := xsync.DoR1(ctx, &c.locker, func() error {
		if scaler.Matches(c.scaler, srcRes, src.PixelFormat(), c.cfg.Output, astiav.PixelFormatBgra) {
			return nil
		}
		if c.scaler != nil {
			if err := c.scaler.Close(ctx); err != nil {
				logger.Errorf(ctx, "unable to close the previous scaler: %v", err)
			}
		}
		sws, err := scaler.NewSoftware(
			ctx,
			srcRes, src.PixelFormat(),
			c.cfg.Output, astiav.PixelFormatBgra,
			astiav.SoftwareScaleContextFlagBilinear,
		)
		if err != nil {
			return fmt.Errorf("unable to create a scaler: %w", err)
		}
		c.scaler = sws
		return nil
	})
	if err != nil {
		return nil, frame.Video{}, err
	}

	dstFrame := frame.Pool.Get()
	defer frame.Pool.Put(dstFrame)
	if err := c.scaler.ScaleFrame(ctx, src, dstFrame); err != nil {
		return nil, frame.Video{}, fmt.Errorf("unable to scale: %w", err)
	}

	w, h := int(c.cfg.Output.Width), int(c.cfg.Output.Height)
	packed, err := dstFrame.Data().Bytes(1)
	if err != nil {
		return nil, frame.Video{}, fmt.Errorf("unable to extract scaled bytes: %w", err)
	}
	dst := make([]byte, w*h*4)
	copy(dst, packed)
	repr := &frame.OwnedInterleaved{
		Data:   dst,
		Stride: w * 4,
	}
	return repr, frame.Video{
		Width:       w,
		Height:      h,
		PixelFormat: astiav.PixelFormatBgra,
		ColorRange:  astiav.ColorRangeJpeg,
		Planes:      [][]byte{dst},
		Strides:     []int{w * 4},
	}, nil
}

// ReleaseScalers frees the cached libswscale contexts. Called when playback
// stops or pauses for long; both are rebuilt lazily on the next frame.
func (c *Converter) ReleaseScalers(ctx context.Context) {
	logger.Debugf(ctx, "ReleaseScalers")
	c.locker.Do(ctx, func() {
		if c.scaler != nil {
			if err := c.scaler.Close(ctx); err != nil {
				logger.Errorf(ctx, "unable to close the scaler: %v", err)
			}
			c.scaler = nil
		}
		if c.reducer != nil {
			if err := c.reducer.Close(ctx); err != nil {
				logger.Errorf(ctx, "unable to close the down-converter: %v", err)
			}
			c.reducer = nil
		}
	})
}
