package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag absolute", "/tmp/mylog", "", "/tmp/mylog"},
		{"flag relative", "logs", "", filepath.Join(wd, "logs")},
		{"flag beats env", "/tmp/flag", "/tmp/env", "/tmp/flag"},
		{"env", "", "/tmp/studymate-env-log", "/tmp/studymate-env-log"},
		{"env relative", "", "envlogs", filepath.Join(wd, "envlogs")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STUDYMATE_LOG_PATH", tt.env)
			got, err := ResolveDir(tt.flag)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("STUDYMATE_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "studymate") {
		t.Errorf("default dir %q does not mention studymate", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "notes_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestNoteTextOncePerID(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	NoteText("n1", "first\nnote", at)
	NoteText("n1", "first\nnote", at)
	NoteText("n2", "second", at)

	data, err := os.ReadFile(filepath.Join(tmp, "notes_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 4 {
		t.Fatalf("expected 4 tab-separated fields, got %q", lines[0])
	}
	if fields[0] != "2024-03-01 09:30:00" || fields[2] != "n1" || fields[3] != "first note" {
		t.Errorf("unexpected line %q", lines[0])
	}
}

func TestEventsWritten(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	SessionStart("http://x", "wav", "fake")
	State("idle", "requesting")
	Submit(RequestMetrics{Status: 201, ConnReused: true, RequestID: "abc"}, "wav")
	Fetch(RequestMetrics{Status: 200}, 3)
	SessionEnd(1)

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"session_start", "state", "from=idle", "submit", "conn=reused", "request_id=abc", "fetch", "count=3", "session_end"} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnostics log missing %q:\n%s", want, out)
		}
	}
}

func TestHelpersNoopBeforeInit(t *testing.T) {
	Close()
	Info("ignored")
	NoteText("x", "y", time.Now())
	Submit(RequestMetrics{}, "wav")
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
