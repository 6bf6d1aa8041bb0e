package transcriber

import (
	"time"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

// Request is the body of one submission. It is built per recording and
// never reused.
type Request struct {
	AudioData string `json:"audioData"`
	UserID    string `json:"userId"`
}

type SubmitResponse struct {
	Message string `json:"message"`
}

// Note is owned by the server; the client only displays it.
type Note struct {
	NoteID      string `json:"noteId"`
	NoteContent string `json:"noteContent"`
	Timestamp   int64  `json:"timestamp"` // epoch milliseconds
}

func (n Note) Time() time.Time {
	return time.UnixMilli(n.Timestamp)
}

type notesResponse struct {
	Notes []Note `json:"notes"`
}

type messageBody struct {
	Message string `json:"message"`
}
