package decoder

import (
	"context"
	"fmt"
	"os"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/xsync"
)

// Environment overrides, checked at codec-open time:
//
//	AVPLAYBACK_FORCE_SW=1         disable hardware decoding entirely
//	AVPLAYBACK_HEVC_MODE=software disable hardware decoding for HEVC only
const (
	envForceSoftware = "AVPLAYBACK_FORCE_SW"
	envHEVCMode      = "AVPLAYBACK_HEVC_MODE"
)

// streamDecoder owns one codec context plus its optional hardware device
// context.
type streamDecoder struct {
	locker xsync.Mutex

	codec        *astiav.Codec
	codecContext *astiav.CodecContext

	hardwareDeviceContext *astiav.HardwareDeviceContext
	hardwarePixelFormat   astiav.PixelFormat
}

func (d *Decoder) hardwareAllowed(codecID astiav.CodecID) bool {
	if d.cfg.HardwareDeviceType == astiav.HardwareDeviceTypeNone {
		return false
	}
	if os.Getenv(envForceSoftware) == "1" {
		logger.Debugf(context.TODO(), "%s=1, disabling hardware decoding", envForceSoftware)
		return false
	}
	if codecID == astiav.CodecIDHevc && os.Getenv(envHEVCMode) == "software" {
		logger.Debugf(context.TODO(), "%s=software, disabling hardware decoding for HEVC", envHEVCMode)
		return false
	}
	return true
}

func (d *Decoder) openVideoCodec(
	ctx context.Context,
	stream *astiav.Stream,
) (_ret *streamDecoder, _err error) {
	params := stream.CodecParameters()
	logger.Debugf(ctx, "openVideoCodec: %s %dx%d", params.CodecID(), params.Width(), params.Height())
	defer func() { logger.Debugf(ctx, "/openVideoCodec: %v", _err) }()

	if d.hardwareAllowed(params.CodecID()) {
		sd, err := d.openCodec(ctx, stream, d.cfg.HardwareDeviceType)
		if err == nil {
			return sd, nil
		}
		logger.Warnf(ctx, "unable to open a hardware decoder, falling back to software: %v", err)
	}
	return d.openCodec(ctx, stream, astiav.HardwareDeviceTypeNone)
}

func (d *Decoder) openAudioCodec(
	ctx context.Context,
	stream *astiav.Stream,
) (*streamDecoder, error) {
	return d.openCodec(ctx, stream, astiav.HardwareDeviceTypeNone)
}

func (d *Decoder) openCodec(
	ctx context.Context,
	stream *astiav.Stream,
	hwType astiav.HardwareDeviceType,
) (_ret *streamDecoder, _err error) {
	params := stream.CodecParameters()

	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("unable to find a decoder for %s", params.CodecID())
	}

	codecContext := astiav.AllocCodecContext(codec)
	if codecContext == nil {
		return nil, fmt.Errorf("unable to allocate a codec context for %s", codec.Name())
	}
	d.closer.Add(codecContext.Free)

	if err := params.ToCodecContext(codecContext); err != nil {
		return nil, fmt.Errorf("unable to copy codec parameters: %w", err)
	}
	codecContext.SetTimeBase(stream.TimeBase())
	codecContext.SetPktTimeBase(stream.TimeBase())

	sd := &streamDecoder{
		codec:        codec,
		codecContext: codecContext,
	}

	if hwType != astiav.HardwareDeviceTypeNone {
		if err := sd.initHardware(ctx, hwType, d.cfg.HardwareDeviceName, d.closer); err != nil {
			return nil, fmt.Errorf("unable to init hardware decoding: %w", err)
		}
	}

	if err := codecContext.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("unable to open codec context (%s): %w", codec.Name(), err)
	}
	return sd, nil
}

func (sd *streamDecoder) initHardware(
	ctx context.Context,
	hwType astiav.HardwareDeviceType,
	hwName string,
	closer interface{ Add(func()) },
) (_err error) {
	logger.Tracef(ctx, "initHardware(%s, '%s')", hwType, hwName)
	defer func() { logger.Tracef(ctx, "/initHardware(%s, '%s'): %v", hwType, hwName, _err) }()

	for _, hwCfg := range sd.codec.HardwareConfigs() {
		if hwCfg.HardwareDeviceType() != hwType {
			continue
		}
		if !hwCfg.MethodFlags().Has(astiav.CodecHardwareConfigMethodFlagHwDeviceCtx) {
			logger.Tracef(ctx, "skipping a config without HW device context support")
			continue
		}
		sd.hardwarePixelFormat = hwCfg.PixelFormat()
		break
	}
	if sd.hardwarePixelFormat == astiav.PixelFormatNone {
		return fmt.Errorf("codec '%s' does not support device-context decoding on '%s'", sd.codec.Name(), hwType)
	}

	sd.codecContext.SetPixelFormatCallback(func(pfs []astiav.PixelFormat) astiav.PixelFormat {
		for _, pf := range pfs {
			if pf == sd.hardwarePixelFormat {
				return pf
			}
		}
		logger.Errorf(ctx, "unable to find an appropriate pixel format")
		return astiav.PixelFormatNone
	})

	hwDevCtx, err := astiav.CreateHardwareDeviceContext(hwType, hwName, nil, 0)
	if err != nil {
		return fmt.Errorf("unable to create a hardware (%s:%s) device context: %w", hwType, hwName, err)
	}
	closer.Add(hwDevCtx.Free)
	sd.hardwareDeviceContext = hwDevCtx
	sd.codecContext.SetHardwareDeviceContext(hwDevCtx)
	return nil
}

// IsHardware reports whether this decoder outputs device-memory frames.
func (sd *streamDecoder) IsHardware() bool {
	return sd.hardwareDeviceContext != nil
}

func (sd *streamDecoder) SendPacket(
	ctx context.Context,
	p *astiav.Packet,
) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &sd.locker, func() error {
		return sd.codecContext.SendPacket(p)
	})
}

func (sd *streamDecoder) ReceiveFrame(
	ctx context.Context,
	f *astiav.Frame,
) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &sd.locker, func() error {
		return sd.codecContext.ReceiveFrame(f)
	})
}

func (sd *streamDecoder) FlushBuffers(ctx context.Context) {
	sd.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		sd.codecContext.FlushBuffers()
	})
}

func (sd *streamDecoder) String() string {
	return fmt.Sprintf("Decoder(%s)", sd.codec.Name())
}
