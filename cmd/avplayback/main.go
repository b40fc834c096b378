package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/avplayback"
	"github.com/xaionaro-go/avplayback/decoder"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/playlist"
	"github.com/xaionaro-go/avplayback/timeline"
	"github.com/xaionaro-go/avplayback/types"
	"github.com/xaionaro-go/observability"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <media-file> [<media-file> ...]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	loop := pflag.Bool("loop", false, "loop the playlist")
	hwDeviceType := pflag.String("hw-device-type", "none", "hardware decoding backend (none, vaapi, cuda, qsv, videotoolbox, ...)")
	hwDeviceName := pflag.String("hw-device-name", "", "hardware device to use (e.g. /dev/dri/renderD128)")
	nv12ZeroCopy := pflag.Bool("nv12-zero-copy", false, "hand NV12 frames through without copying when possible")
	enableAudio := pflag.Bool("audio", true, "decode and deliver audio")
	playbackRate := pflag.String("playback-rate", "1", "speed multiplier; accepts fractions like 30000/1001 and approximations like ~0.5")
	pflag.Parse()
	if len(pflag.Args()) < 1 {
		pflag.Usage()
		os.Exit(1)
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	ctx, cancelFn := context.WithCancel(ctx)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	astiav.SetLogLevel(avplayback.LogLevelToAstiav(l.Level()))
	astiav.SetLogCallback(func(c astiav.Classer, level astiav.LogLevel, fmt, msg string) {
		var cs string
		if c != nil {
			if cl := c.Class(); cl != nil {
				cs = " - class: " + cl.String()
			}
		}
		l.Logf(
			avplayback.LogLevelFromAstiav(level),
			"%s%s",
			strings.TrimSpace(msg), cs,
		)
	})

	hwType := types.HardwareDeviceTypeFromString(*hwDeviceType)
	if hwType < 0 {
		l.Fatalf("unknown hardware device type: '%s'", *hwDeviceType)
	}

	rate, err := types.RationalFromString(*playbackRate)
	if err != nil {
		l.Fatalf("unable to parse the playback rate '%s': %v", *playbackRate, err)
	}

	pl := playlist.Probe(ctx, pflag.Args())

	var stats decoder.Stats
	player, err := playlist.NewPlayer(playlist.PlayerConfig{
		Playlist: pl,
		Anchor:   timeline.NewAnchor(),
		Loop:     *loop,
		Decoder: decoder.Config{
			HardwareDeviceType: astiav.HardwareDeviceType(hwType),
			HardwareDeviceName: *hwDeviceName,
			NV12ZeroCopy:       *nv12ZeroCopy,
			EnableAudio:        *enableAudio,
			PlaybackRate:       rate.Float64(),
			OnVideoFrame: func(ctx context.Context, f frame.Video) {
				stats.FramesDelivered.Inc()
			},
			OnAudioChunk: func(ctx context.Context, a frame.Audio) {
				stats.AudioChunks.Inc()
			},
		},
	})
	if err != nil {
		l.Fatal(err)
	}

	if err := player.Activate(ctx); err != nil {
		l.Fatal(err)
	}
	observability.Go(ctx, func(ctx context.Context) {
		defer cancelFn()
		player.Serve(ctx)
	})
	defer player.Close(ctx)

	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			statsJSON, err := json.Marshal(map[string]uint64{
				"frames_delivered": stats.FramesDelivered.Load(),
				"audio_chunks":     stats.AudioChunks.Load(),
			})
			if err != nil {
				l.Fatal(err)
			}
			fmt.Printf("%s\n", statsJSON)
		}
	}
}
