// Package audio gives sample-level access to decoded audio frames as
// normalized float64 values. The delivery path uses it to measure output
// levels; hosts may use it for their own per-channel processing.
package audio

import (
	"fmt"
	"unsafe"

	"github.com/asticode/go-astiav"
)

func view[T float32 | float64 | int16](plane []byte, n int) []T {
	return unsafe.Slice((*T)(unsafe.Pointer(&plane[0])), n)
}

// Samples reads one channel of an audio frame as float64 values in [-1, 1].
func Samples(f *astiav.Frame, channel int) ([]float64, error) {
	nbSamples := f.NbSamples()
	format := f.SampleFormat()

	res := make([]float64, nbSamples)
	if format.IsPlanar() {
		plane, err := f.Data().Bytes(channel)
		if err != nil {
			return nil, err
		}
		if len(plane) == 0 {
			return res, nil
		}
		switch format {
		case astiav.SampleFormatFltp:
			for i, s := range view[float32](plane, nbSamples) {
				res[i] = float64(s)
			}
		case astiav.SampleFormatDblp:
			copy(res, view[float64](plane, nbSamples))
		case astiav.SampleFormatS16P:
			for i, s := range view[int16](plane, nbSamples) {
				res[i] = float64(s) / 32768.0
			}
		default:
			return nil, fmt.Errorf("unsupported sample format: %v", format)
		}
		return res, nil
	}

	plane, err := f.Data().Bytes(0)
	if err != nil {
		return nil, err
	}
	if len(plane) == 0 {
		return res, nil
	}
	channels := f.ChannelLayout().Channels()
	total := nbSamples * channels
	switch format {
	case astiav.SampleFormatFlt:
		samples := view[float32](plane, total)
		for i := range nbSamples {
			res[i] = float64(samples[i*channels+channel])
		}
	case astiav.SampleFormatDbl:
		samples := view[float64](plane, total)
		for i := range nbSamples {
			res[i] = samples[i*channels+channel]
		}
	case astiav.SampleFormatS16:
		samples := view[int16](plane, total)
		for i := range nbSamples {
			res[i] = float64(samples[i*channels+channel]) / 32768.0
		}
	default:
		return nil, fmt.Errorf("unsupported sample format: %v", format)
	}
	return res, nil
}

// Fill writes samples into one channel of an audio frame, converting from
// float64 to the frame's sample format.
func Fill(f *astiav.Frame, channel int, samples []float64) error {
	format := f.SampleFormat()
	nbSamples := f.NbSamples()

	if format.IsPlanar() {
		plane, err := f.Data().Bytes(channel)
		if err != nil {
			return err
		}
		if len(plane) == 0 {
			return nil
		}
		switch format {
		case astiav.SampleFormatFltp:
			out := view[float32](plane, nbSamples)
			for i, s := range samples {
				out[i] = float32(s)
			}
		case astiav.SampleFormatDblp:
			copy(view[float64](plane, nbSamples), samples)
		case astiav.SampleFormatS16P:
			out := view[int16](plane, nbSamples)
			for i, s := range samples {
				out[i] = int16(s * 32767.0)
			}
		default:
			return fmt.Errorf("unsupported sample format: %v", format)
		}
		return nil
	}

	plane, err := f.Data().Bytes(0)
	if err != nil {
		return err
	}
	if len(plane) == 0 {
		return nil
	}
	channels := f.ChannelLayout().Channels()
	total := nbSamples * channels
	switch format {
	case astiav.SampleFormatFlt:
		out := view[float32](plane, total)
		for i, s := range samples {
			out[i*channels+channel] = float32(s)
		}
	case astiav.SampleFormatDbl:
		out := view[float64](plane, total)
		for i, s := range samples {
			out[i*channels+channel] = s
		}
	case astiav.SampleFormatS16:
		out := view[int16](plane, total)
		for i, s := range samples {
			out[i*channels+channel] = int16(s * 32767.0)
		}
	default:
		return fmt.Errorf("unsupported sample format: %v", format)
	}
	return nil
}

// Peak returns the largest absolute sample value.
func Peak(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
