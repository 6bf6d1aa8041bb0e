package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"studymate/audio"
	"studymate/beep"
	"studymate/config"
	"studymate/log"
	"studymate/payload"
	"studymate/recorder"
	"studymate/transcriber"
)

// app holds the wired pipeline for one process.
type app struct {
	cfg     *config.Config
	audio   audio.Context
	ctrl    *audio.Controller
	client  *transcriber.Client
	enc     *payload.Encoder
	rec     *recorder.Recorder
	monitor *monitor
}

type appOptions struct {
	audio    audio.Context // nil opens the platform backend
	device   *audio.DeviceInfo
	sink     recorder.NotificationSink
	observer func(recorder.Snapshot)
}

func setupLogging(cfg *config.Config) {
	dir, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to resolve log directory: %v\n", err)
		return
	}
	log.SetDir(dir)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
		return
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
		crashFile.Close()
	}
}

// openAudio connects to the platform audio server. When that fails the
// error is deferred to the first recording attempt.
func openAudio() audio.Context {
	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		return audio.Unavailable(err)
	}
	return ctx
}

// resolveDevice picks the configured device, falling back to the system
// default when it is missing.
func resolveDevice(ctx audio.Context, name string, setup bool) *audio.DeviceInfo {
	if name == "" && setup {
		dev, err := audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\nFalling back to default device\n", err)
		}
		return dev
	}
	dev, err := audio.FindDevice(ctx, name)
	if err != nil {
		log.Warnf("device %q unavailable, using default: %v", name, err)
		return nil
	}
	return dev
}

func newApp(cfg *config.Config, o appOptions) (*app, error) {
	client, err := transcriber.NewClient(cfg.Endpoint,
		transcriber.WithTimeout(cfg.Timeout),
		transcriber.WithFormat(cfg.Format),
	)
	if err != nil {
		return nil, err
	}
	enc, err := payload.New(cfg.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, client: client, enc: enc, monitor: newMonitor()}
	a.audio = o.audio
	if a.audio == nil {
		a.audio = openAudio()
	}
	a.ctrl = audio.NewController(a.audio, o.device, audio.WithChunkObserver(a.monitor.Observe))

	sinks := recorder.MultiSink{logSink{}}
	if o.sink != nil {
		sinks = append(sinks, o.sink)
	}
	var sink recorder.NotificationSink = sinks
	if cfg.Beep {
		sink = beep.NewSink(sinks)
	}

	opts := []recorder.Option{recorder.WithUserID(cfg.UserID), recorder.WithSink(sink)}
	if o.observer != nil {
		opts = append(opts, recorder.WithObserver(o.observer))
	}
	a.rec = recorder.New(a.ctrl, enc, client, opts...)

	log.SessionStart(cfg.Endpoint, cfg.Format, a.ctrl.DeviceName())
	return a, nil
}

func (a *app) Start(ctx context.Context) error {
	a.monitor.Reset()
	return a.rec.Start(ctx)
}

func (a *app) Stop(ctx context.Context) error { return a.rec.Stop(ctx) }

func (a *app) Refresh(ctx context.Context) error { return a.rec.RefreshNotes(ctx) }

// SaveLast writes the most recent recording to path, or to
// recorded_audio<ext> in the working directory when path is empty.
func (a *app) SaveLast(path string) (string, error) {
	c, ok := a.rec.LastCapture()
	if !ok {
		return "", fmt.Errorf("no recording to save")
	}
	if path == "" {
		path = "recorded_audio" + c.Extension()
	}
	if err := c.WriteFile(path); err != nil {
		return "", err
	}
	log.Info("capture_saved: " + path)
	return path, nil
}

func (a *app) Close() {
	a.rec.Close()
	a.audio.Close()
}
