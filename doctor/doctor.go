// Package doctor runs the diagnostics behind "studymate doctor".
package doctor

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"studymate/audio"
	"studymate/clipboard"
	"studymate/encoder"
	"studymate/hotkey"
	"studymate/payload"
	"studymate/transcriber"
)

type NotesFetcher interface {
	FetchNotes(ctx context.Context) ([]transcriber.Note, error)
}

type Options struct {
	Audio    audio.Context
	Device   *audio.DeviceInfo
	Client   NotesFetcher
	Format   string
	Out      io.Writer
	Duration time.Duration // microphone sample length, default 1s
}

type check struct {
	name  string
	fatal bool
	run   func(ctx context.Context, o *Options, st *state) (string, error)
}

// state carries results between checks.
type state struct {
	capture audio.Capture
}

var checks = []check{
	{"Audio devices", true, checkDevices},
	{"Microphone capture", true, checkCapture},
	{"Payload encoding", true, checkEncoding},
	{"Notes endpoint", false, checkEndpoint},
	{"Clipboard", false, checkClipboard},
	{"Global hotkey", false, checkHotkey},
}

// Run executes every check in order and returns an exit code (0=all pass,
// 1=any fail). A failing fatal check skips the checks that depend on it.
func Run(ctx context.Context, o Options) int {
	if o.Duration <= 0 {
		o.Duration = time.Second
	}
	fmt.Fprintln(o.Out, "studymate doctor - system diagnostics")
	fmt.Fprintln(o.Out, "=====================================")

	allPass := true
	skip := false
	st := &state{}
	for i, c := range checks {
		fmt.Fprintf(o.Out, "\n[%d/%d] %s\n", i+1, len(checks), c.name)
		if skip && c.fatal {
			fmt.Fprintln(o.Out, "  SKIP: depends on a failed check")
			continue
		}
		msg, err := c.run(ctx, &o, st)
		if err != nil {
			fmt.Fprintf(o.Out, "  FAIL: %v\n", err)
			allPass = false
			if c.fatal {
				skip = true
			}
			continue
		}
		fmt.Fprintf(o.Out, "  PASS: %s\n", msg)
	}

	fmt.Fprintln(o.Out)
	if allPass {
		fmt.Fprintln(o.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(o.Out, "Some checks failed. See details above.")
	return 1
}

func checkDevices(_ context.Context, o *Options, _ *state) (string, error) {
	devices, err := o.Audio.Devices()
	if err != nil {
		return "", fmt.Errorf("cannot list devices: %w", err)
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("no capture devices found")
	}
	name := "system default"
	if o.Device != nil {
		name = o.Device.Name
	}
	msg := fmt.Sprintf("%d device(s), using %s", len(devices), name)
	if audio.IsBluetooth(name) {
		msg += " (bluetooth headsets record at reduced quality)"
	}
	return msg, nil
}

func checkCapture(ctx context.Context, o *Options, st *state) (string, error) {
	c := audio.NewController(o.Audio, o.Device)
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return "", err
	}
	fmt.Fprintf(o.Out, "  Recording for %s...\n", o.Duration)
	select {
	case <-time.After(o.Duration):
	case <-ctx.Done():
	}
	capture, ok := c.Stop()
	if !ok || capture.Len() <= encoder.WAVHeaderSize {
		return "", fmt.Errorf("no audio captured")
	}
	st.capture = capture

	_, pcm, err := encoder.ParseWAV(capture.Bytes())
	if err != nil {
		return "", err
	}
	level := rmsDB(pcm)
	msg := fmt.Sprintf("%.1f KB, %.2fs, level %.0f dBFS", float64(capture.Len())/1024, capture.Duration().Seconds(), level)
	if level < -60 {
		msg += " (very quiet: check the input volume or mute switch)"
	}
	return msg, nil
}

func checkEncoding(_ context.Context, o *Options, st *state) (string, error) {
	enc, err := payload.New(o.Format)
	if err != nil {
		return "", err
	}
	out, err := enc.Encode(st.capture)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s payload %.1f KB", enc.MediaType(st.capture), float64(len(out))/1024), nil
}

func checkEndpoint(ctx context.Context, o *Options, _ *state) (string, error) {
	if o.Client == nil {
		return "", fmt.Errorf("no endpoint configured")
	}
	start := time.Now()
	notes, err := o.Client.FetchNotes(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d note(s) in %s", len(notes), time.Since(start).Round(time.Millisecond)), nil
}

func checkClipboard(context.Context, *Options, *state) (string, error) {
	if !clipboard.Available() {
		return "", fmt.Errorf("no clipboard utility available (install xclip, xsel or wl-clipboard)")
	}
	return "clipboard utility found", nil
}

func checkHotkey(context.Context, *Options, *state) (string, error) {
	return hotkey.Diagnose()
}

// rmsDB is the RMS level of 16-bit PCM relative to full scale.
func rmsDB(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(n))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
