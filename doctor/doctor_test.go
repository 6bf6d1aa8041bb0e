package doctor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"studymate/audio"
	"studymate/transcriber"
)

type fetcher struct {
	notes []transcriber.Note
	err   error
}

func (f fetcher) FetchNotes(context.Context) ([]transcriber.Note, error) { return f.notes, f.err }

func tone(samples int, amp int16) []byte {
	pcm := make([]byte, samples*2)
	for i := range samples {
		v := amp
		if i%2 == 1 {
			v = -amp
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestRunAllPassThroughCapture(t *testing.T) {
	var out bytes.Buffer
	fc := audio.NewFakePCMContext(tone(16000, 8000), false)
	Run(context.Background(), Options{
		Audio:    fc,
		Client:   fetcher{notes: []transcriber.Note{{NoteID: "1"}}},
		Format:   "flac",
		Out:      &out,
		Duration: time.Millisecond,
	})
	s := out.String()
	for _, want := range []string{"[1/6] Audio devices", "PASS: 1 device(s)", "[2/6] Microphone capture", "audio/flac payload", "PASS: 1 note(s)"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if fc.Released() != 1 {
		t.Errorf("released = %d", fc.Released())
	}
}

func TestRunMicDeniedSkipsEncoding(t *testing.T) {
	var out bytes.Buffer
	fc := audio.NewFakePCMContext(nil, false)
	fc.Deny(errors.New("denied"))
	code := Run(context.Background(), Options{Audio: fc, Client: fetcher{}, Out: &out, Duration: time.Millisecond})
	if code != 1 {
		t.Errorf("exit code = %d", code)
	}
	s := out.String()
	if !strings.Contains(s, "FAIL: microphone unavailable: denied") {
		t.Errorf("missing capture failure:\n%s", s)
	}
	if !strings.Contains(s, "SKIP") {
		t.Errorf("encoding not skipped:\n%s", s)
	}
}

func TestRunEndpointFailure(t *testing.T) {
	var out bytes.Buffer
	fc := audio.NewFakePCMContext(tone(1600, 100), false)
	code := Run(context.Background(), Options{
		Audio:    fc,
		Client:   fetcher{err: &transcriber.FetchError{Status: 502}},
		Out:      &out,
		Duration: time.Millisecond,
	})
	if code != 1 {
		t.Errorf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "FAIL: HTTP error! status: 502") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRmsDB(t *testing.T) {
	if got := rmsDB(nil); !math.IsInf(got, -1) {
		t.Errorf("empty = %v", got)
	}
	if got := rmsDB(make([]byte, 100)); !math.IsInf(got, -1) {
		t.Errorf("silence = %v", got)
	}
	got := rmsDB(tone(100, 16384))
	if math.Abs(got-(-6.02)) > 0.1 {
		t.Errorf("half scale = %.2f dB, want about -6", got)
	}
}
