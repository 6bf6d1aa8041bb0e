package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"studymate/audio"
	"studymate/config"
	"studymate/recorder"
	"studymate/transcriber"
)

// notesBackend accepts recordings and serves them back as notes.
type notesBackend struct {
	mu         sync.Mutex
	submitted  []transcriber.Request
	submitCode int
	submitBody string
	fetchCode  int
}

func (b *notesBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var req transcriber.Request
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		b.submitted = append(b.submitted, req)
		if b.submitCode != 0 {
			w.WriteHeader(b.submitCode)
		}
		io.WriteString(w, b.submitBody)
	case http.MethodGet:
		if b.fetchCode != 0 {
			w.WriteHeader(b.fetchCode)
			return
		}
		var notes []transcriber.Note
		for i := len(b.submitted) - 1; i >= 0; i-- {
			notes = append(notes, transcriber.Note{
				NoteID:      "n" + string(rune('1'+i)),
				NoteContent: "spoken note",
				Timestamp:   1714557600000,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"notes": notes})
	}
}

func (b *notesBackend) requests() []transcriber.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]transcriber.Request(nil), b.submitted...)
}

func sinePCM(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := range samples {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func newScriptApp(t *testing.T, endpoint string, ac audio.Context, out io.Writer) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Endpoint = endpoint
	cfg.Beep = false
	a, err := newApp(cfg, appOptions{
		audio:    ac,
		sink:     &printSink{w: out},
		observer: func(s recorder.Snapshot) { io.WriteString(out, stateLine(s)+"\n") },
	})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestScriptRecordSubmitAndList(t *testing.T) {
	backend := &notesBackend{submitBody: `{"message":"Noted"}`}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	fake := audio.NewFakePCMContext(sinePCM(8000), false)
	var buf bytes.Buffer
	out := &lockedWriter{w: &buf}
	a := newScriptApp(t, srv.URL, fake, out)

	savePath := filepath.Join(t.TempDir(), "take.wav")
	script := strings.Join([]string{
		"# one recording",
		"START",
		"STOP",
		"WAIT",
		"NOTES",
		"STATE",
		"SAVE " + savePath,
		"QUIT",
		"START",
	}, "\n")

	if err := runScript(context.Background(), a, strings.NewReader(script), out); err != nil {
		t.Fatalf("runScript: %v", err)
	}
	got := buf.String()

	for _, want := range []string{
		`STATE requesting "Requesting microphone access..."`,
		`STATE recording "Recording... Speak now!"`,
		"NOTIFY info Recording Started: Microphone is active.",
		`STATE submitting "Sending audio for transcription..." loading`,
		"NOTIFY success Transcription Sent!: Noted",
		"NOTES 1",
		"NOTE n1\t",
		`STATE idle "Noted"`,
		"SAVED " + savePath,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
	if strings.Count(got, `STATE recording`) != 1 {
		t.Errorf("commands after QUIT were run:\n%s", got)
	}

	reqs := backend.requests()
	if len(reqs) != 1 {
		t.Fatalf("submitted %d recordings, want 1", len(reqs))
	}
	if reqs[0].UserID != recorder.DefaultUserID {
		t.Errorf("userId = %q", reqs[0].UserID)
	}
	wav, err := base64.StdEncoding.DecodeString(reqs[0].AudioData)
	if err != nil {
		t.Fatalf("audioData is not base64: %v", err)
	}
	if string(wav[:4]) != "RIFF" {
		t.Errorf("payload starts with %q, want RIFF", wav[:4])
	}

	saved, err := os.ReadFile(savePath)
	if err != nil {
		t.Fatalf("reading saved capture: %v", err)
	}
	if !bytes.Equal(saved, wav) {
		t.Error("saved capture differs from the submitted payload")
	}
	if fake.Opened() != 1 || fake.Released() != 1 {
		t.Errorf("opened=%d released=%d, want 1/1", fake.Opened(), fake.Released())
	}
}

func TestScriptSurfacesTypedErrors(t *testing.T) {
	backend := &notesBackend{submitCode: http.StatusInternalServerError, submitBody: `{"message":"boom"}`}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	fake := audio.NewFakePCMContext(sinePCM(4000), false)
	var buf bytes.Buffer
	out := &lockedWriter{w: &buf}
	a := newScriptApp(t, srv.URL, fake, out)

	fake.Deny(errors.New("denied"))
	script := "START\nSTATE\n"
	if err := runScript(context.Background(), a, strings.NewReader(script), out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ERROR permission") {
		t.Errorf("missing permission error:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `STATE idle "Microphone access denied or error occurred."`) {
		t.Errorf("missing idle state after denial:\n%s", buf.String())
	}

	buf.Reset()
	fake.Deny(nil)
	script = "START\nSTOP\nWAIT\nSTATE\n"
	if err := runScript(context.Background(), a, strings.NewReader(script), out); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "ERROR request HTTP error! status: 500 - boom") {
		t.Errorf("missing request error:\n%s", got)
	}
	if !strings.Contains(got, "NOTIFY error Transcription Failed: HTTP error! status: 500 - boom") {
		t.Errorf("missing failure notification:\n%s", got)
	}
	if !strings.Contains(got, `STATE idle "Error: HTTP error! status: 500 - boom"`) {
		t.Errorf("missing error status:\n%s", got)
	}
}

func TestScriptFetchFailureKeepsState(t *testing.T) {
	backend := &notesBackend{fetchCode: http.StatusServiceUnavailable}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	var buf bytes.Buffer
	out := &lockedWriter{w: &buf}
	a := newScriptApp(t, srv.URL, audio.NewFakePCMContext(sinePCM(4000), false), out)

	if err := runScript(context.Background(), a, strings.NewReader("NOTES\n"), out); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "ERROR fetch HTTP error! status: 503") {
		t.Errorf("missing fetch error:\n%s", got)
	}
	if !strings.Contains(got, "NOTES 0") {
		t.Errorf("note list not printed after failure:\n%s", got)
	}
}

func TestScriptCommandErrors(t *testing.T) {
	acts := &fakeActions{
		startErr: &audio.PermissionError{Err: errors.New("no mic")},
		saveErr:  errors.New("no recording to save"),
	}
	var out bytes.Buffer
	script := "bogus\nSLEEP soon\nSLEEP 1\nSTART\nSAVE\n\n"

	if err := runScript(context.Background(), acts, strings.NewReader(script), &out); err != nil {
		t.Fatal(err)
	}
	want := []string{
		`ERROR script unknown command "bogus"`,
		`ERROR script bad SLEEP argument "soon"`,
		"ERROR permission ",
		"ERROR save no recording to save",
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out.String())
	}
	for i, w := range want {
		if !strings.HasPrefix(lines[i], w) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], w)
		}
	}
}

func TestScriptSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runScript(ctx, &fakeActions{}, strings.NewReader("SLEEP 60000\n"), io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNoteLineFlattensContent(t *testing.T) {
	n := transcriber.Note{NoteID: "a", NoteContent: "two\nlines", Timestamp: 0}
	line := noteLine(n)
	if strings.Contains(line, "\n") {
		t.Errorf("noteLine kept a newline: %q", line)
	}
	if !strings.HasPrefix(line, "NOTE a\t") || !strings.HasSuffix(line, "\ttwo lines") {
		t.Errorf("noteLine = %q", line)
	}
}
