// Package recorder drives one recording at a time through capture, encoding,
// submission and the note-list refresh that follows a successful submit.
package recorder

import (
	"context"
	"errors"
	"sync"

	"studymate/audio"
	"studymate/log"
	"studymate/payload"
	"studymate/transcriber"
)

const (
	DefaultUserID = "studymate_user"

	textIdle       = "Waiting for your voice..."
	textRequesting = "Requesting microphone access..."
	textRecording  = "Recording... Speak now!"
	textStopping   = "Stopping recording..."
	textEncoding   = "Processing audio..."
	textSubmitting = "Sending audio for transcription..."
	textSubmitted  = "Transcription request sent!"
	textMicError   = "Microphone access denied or error occurred."
	textEncodeErr  = "Error processing audio."
)

type Capturer interface {
	Start(ctx context.Context) error
	Stop() (audio.Capture, bool)
	Close()
}

type Encoder interface {
	Encode(c audio.Capture) (string, error)
}

type Client interface {
	Submit(ctx context.Context, r transcriber.Request) (transcriber.SubmitResponse, error)
	FetchNotes(ctx context.Context) ([]transcriber.Note, error)
}

type warmer interface {
	Warm(ctx context.Context)
}

var errNoCapture = errors.New("no audio captured")

type Recorder struct {
	capture  Capturer
	enc      Encoder
	client   Client
	userID   string
	sink     NotificationSink
	observer func(Snapshot)

	// deliver orders observer calls; it is taken before mu.
	deliver sync.Mutex

	mu          sync.Mutex
	seq         uint64
	state       State
	status      string
	lastErr     error
	notes       []transcriber.Note
	notesLoaded bool
	last        audio.Capture
	completed   int
}

type Option func(*Recorder)

func WithUserID(id string) Option {
	return func(r *Recorder) { r.userID = id }
}

func WithSink(s NotificationSink) Option {
	return func(r *Recorder) { r.sink = s }
}

// WithObserver registers fn to receive a snapshot after every change. fn runs
// on the goroutine that made the change, with no lock held.
func WithObserver(fn func(Snapshot)) Option {
	return func(r *Recorder) { r.observer = fn }
}

func New(capture Capturer, enc Encoder, client Client, opts ...Option) *Recorder {
	r := &Recorder{
		capture: capture,
		enc:     enc,
		client:  client,
		userID:  DefaultUserID,
		sink:    NopSink,
		status:  textIdle,
		notes:   []transcriber.Note{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) snapshotLocked() Snapshot {
	notes := make([]transcriber.Note, len(r.notes))
	copy(notes, r.notes)
	return Snapshot{
		Seq:         r.seq,
		State:       r.state,
		StatusText:  r.status,
		LastError:   r.lastErr,
		Notes:       notes,
		NotesLoaded: r.notesLoaded,
		Loading:     r.state == Submitting,
		Completed:   r.completed,
	}
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// LastCapture returns the most recent finished recording, if any.
func (r *Recorder) LastCapture() (audio.Capture, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, !r.last.Empty()
}

// change applies fn under the lock. When fn reports a change, the state
// transition is logged and the observer receives the new snapshot. Observers
// see snapshots in Seq order.
func (r *Recorder) change(fn func() bool) bool {
	r.deliver.Lock()
	defer r.deliver.Unlock()

	r.mu.Lock()
	from := r.state
	if !fn() {
		r.mu.Unlock()
		return false
	}
	r.seq++
	to := r.state
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if from != to {
		log.State(from.String(), to.String())
	}
	if r.observer != nil {
		r.observer(snap)
	}
	return true
}

func (r *Recorder) update(fn func()) {
	r.change(func() bool {
		fn()
		return true
	})
}

func (r *Recorder) transition(to State, status string) {
	r.update(func() {
		r.state = to
		r.status = status
	})
}

func (r *Recorder) fail(err error, status string) {
	r.update(func() {
		r.state = Idle
		r.lastErr = err
		r.status = status
	})
}

// Start acquires the microphone. Outside Idle it does nothing and returns nil.
// A denied microphone returns the session to Idle with a PermissionError.
func (r *Recorder) Start(ctx context.Context) error {
	started := r.change(func() bool {
		if r.state != Idle {
			return false
		}
		r.state = Requesting
		r.status = textRequesting
		r.lastErr = nil
		return true
	})
	if !started {
		return nil
	}

	if err := r.capture.Start(ctx); err != nil {
		var perr *audio.PermissionError
		if !errors.As(err, &perr) {
			err = &audio.PermissionError{Err: err}
		}
		log.Errorf("microphone_error: %v", err)
		r.fail(err, textMicError)
		r.sink.Notify("Microphone Error", "Access denied or an error occurred. Please check permissions.", StatusError)
		return err
	}

	r.transition(Recording, textRecording)
	r.sink.Notify("Recording Started", "Microphone is active.", StatusInfo)
	if w, ok := r.client.(warmer); ok {
		go w.Warm(context.WithoutCancel(ctx))
	}
	return nil
}

// Stop ends the recording and runs encode, submit and the follow-up refresh to
// completion before returning. Outside Recording it does nothing. The returned
// error is the session's last error, or nil on full success.
func (r *Recorder) Stop(ctx context.Context) error {
	stopping := r.change(func() bool {
		if r.state != Recording {
			return false
		}
		r.state = Stopping
		r.status = textStopping
		return true
	})
	if !stopping {
		return nil
	}

	// The microphone is released inside capture.Stop, before any encoding.
	c, ok := r.capture.Stop()
	if !ok {
		c = audio.Capture{}
	}
	r.update(func() {
		r.last = c
		r.state = Encoding
		r.status = textEncoding
	})

	data, err := r.enc.Encode(c)
	if err == nil && !ok {
		err = errNoCapture
	}
	if err != nil {
		var eerr *payload.EncodingError
		if !errors.As(err, &eerr) {
			err = &payload.EncodingError{MediaType: c.MediaType(), Err: err}
		}
		log.Errorf("encode_error: %v", err)
		r.fail(err, textEncodeErr)
		r.sink.Notify("Encoding Failed", err.Error(), StatusError)
		return err
	}

	r.transition(Submitting, textSubmitting)

	// Once submitting, the session runs to completion even if ctx is cancelled.
	netCtx := context.WithoutCancel(ctx)
	resp, err := r.client.Submit(netCtx, transcriber.Request{AudioData: data, UserID: r.userID})
	if err != nil {
		var rerr *transcriber.RequestError
		if !errors.As(err, &rerr) {
			err = &transcriber.RequestError{Err: err}
		}
		log.Errorf("submit_error: %v", err)
		r.fail(err, "Error: "+err.Error())
		r.sink.Notify("Transcription Failed", err.Error(), StatusError)
		return err
	}

	status, desc := resp.Message, resp.Message
	if status == "" {
		status, desc = textSubmitted, "Audio sent for processing."
	}
	r.update(func() {
		r.status = status
		r.completed++
	})
	r.sink.Notify("Transcription Sent!", desc, StatusSuccess)

	notes, ferr := r.fetch(netCtx)
	r.update(func() {
		if ferr == nil {
			r.notes = notes
			r.notesLoaded = true
		} else {
			r.lastErr = ferr
		}
		r.state = Idle
	})
	if ferr != nil {
		r.sink.Notify("Error Fetching Notes", ferr.Error(), StatusError)
	}
	return ferr
}

func (r *Recorder) fetch(ctx context.Context) ([]transcriber.Note, error) {
	notes, err := r.client.FetchNotes(ctx)
	if err != nil {
		var ferr *transcriber.FetchError
		if !errors.As(err, &ferr) {
			err = &transcriber.FetchError{Err: err}
		}
		log.Errorf("fetch_error: %v", err)
		return nil, err
	}
	if notes == nil {
		notes = []transcriber.Note{}
	}
	return notes, nil
}

// RefreshNotes replaces the note collection with the server's current list.
// On failure the previous collection is kept and the error is surfaced.
func (r *Recorder) RefreshNotes(ctx context.Context) error {
	notes, err := r.fetch(context.WithoutCancel(ctx))
	if err != nil {
		r.update(func() { r.lastErr = err })
		r.sink.Notify("Error Fetching Notes", err.Error(), StatusError)
		return err
	}
	r.update(func() {
		r.notes = notes
		r.notesLoaded = true
	})
	return nil
}

// Close releases the microphone if a recording is still in progress.
func (r *Recorder) Close() {
	r.capture.Close()
	r.mu.Lock()
	completed := r.completed
	r.mu.Unlock()
	log.SessionEnd(completed)
}
