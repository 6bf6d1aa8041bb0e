package recorder

import (
	"errors"

	"studymate/audio"
	"studymate/payload"
	"studymate/transcriber"
)

type State int

const (
	Idle State = iota
	Requesting
	Recording
	Stopping
	Encoding
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case Encoding:
		return "encoding"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of what the view may show. Loading is derived from the
// state, never stored. Seq increases with every change, so a consumer can
// discard a snapshot older than one it already holds.
type Snapshot struct {
	Seq         uint64
	State       State
	StatusText  string
	LastError   error
	Notes       []transcriber.Note
	NotesLoaded bool
	Loading     bool
	Completed   int
}

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindPermission
	KindEncoding
	KindRequest
	KindFetch
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPermission:
		return "permission"
	case KindEncoding:
		return "encoding"
	case KindRequest:
		return "request"
	case KindFetch:
		return "fetch"
	default:
		return "other"
	}
}

func KindOf(err error) ErrorKind {
	var (
		perr *audio.PermissionError
		eerr *payload.EncodingError
		rerr *transcriber.RequestError
		ferr *transcriber.FetchError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &perr):
		return KindPermission
	case errors.As(err, &eerr):
		return KindEncoding
	case errors.As(err, &rerr):
		return KindRequest
	case errors.As(err, &ferr):
		return KindFetch
	default:
		return KindOther
	}
}
