package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog   zerolog.Logger
	diagFile  *os.File
	notesFile *os.File
	logMu     sync.Mutex
	logReady  bool
	pid       int
	dir       string
	seenNotes = map[string]bool{}
)

// RequestMetrics describes one HTTP round trip to the transcription endpoint.
type RequestMetrics struct {
	Status     int
	ReqBytes   int
	RespBytes  int
	DNSMs      float64
	TLSMs      float64
	TTFBMs     float64
	TotalMs    float64
	ConnReused bool
	TLSProto   string
	RequestID  string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --log-path flag / log_path config key
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: STUDYMATE_LOG_PATH environment variable
	if envPath := os.Getenv("STUDYMATE_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	notesPath := filepath.Join(dir, "notes_log.txt")
	notesFile, err = os.OpenFile(notesPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()
	seenNotes = map[string]bool{}

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if notesFile != nil {
		notesFile.Close()
		notesFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func State(from, to string) {
	if !logReady {
		return
	}
	diagLog.Info().Str("from", from).Str("to", to).Msg("state")
}

func (m RequestMetrics) event(ev *zerolog.Event) *zerolog.Event {
	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}
	ev = ev.Int("status", m.Status).
		Str("conn", connStatus).
		Int("req_bytes", m.ReqBytes).
		Int("resp_bytes", m.RespBytes).
		Float64("dns_ms", m.DNSMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	if m.RequestID != "" {
		ev = ev.Str("request_id", m.RequestID)
	}
	return ev
}

func Submit(m RequestMetrics, format string) {
	if !logReady {
		return
	}
	m.event(diagLog.Info()).Str("format", format).Msg("submit")
}

func Fetch(m RequestMetrics, count int) {
	if !logReady {
		return
	}
	m.event(diagLog.Info()).Int("count", count).Msg("fetch")
}

func Encode(mediaType string, rawBytes, payloadBytes int, elapsed time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("media_type", mediaType).
		Float64("raw_kb", float64(rawBytes)/1024).
		Float64("payload_kb", float64(payloadBytes)/1024).
		Float64("encode_ms", float64(elapsed.Microseconds())/1000).
		Msg("encode")
}

// NoteText appends a note to notes_log.txt the first time its id is seen in
// this process.
func NoteText(noteID, content string, at time.Time) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if seenNotes[noteID] || notesFile == nil {
		return
	}
	seenNotes[noteID] = true
	content = strings.ReplaceAll(content, "\n", " ")
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", at.Format("2006-01-02 15:04:05"), pid, noteID, content)
	notesFile.WriteString(line)
}

func SessionStart(endpoint, format, device string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("endpoint", endpoint).
		Str("format", format).
		Str("device", device).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
