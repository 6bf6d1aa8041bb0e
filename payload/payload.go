// Package payload turns a finished recording into the base64 string carried
// in the transcription request body.
package payload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"studymate/audio"
	"studymate/encoder"
	"studymate/log"
)

// EncodingError reports a capture that could not be read. It is kept
// distinct from network failures so the two never share user-facing copy.
type EncodingError struct {
	MediaType string
	Err       error
}

func (e *EncodingError) Error() string {
	if e.MediaType != "" {
		return fmt.Sprintf("cannot encode %s capture: %v", e.MediaType, e.Err)
	}
	return fmt.Sprintf("cannot encode capture: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

var ErrEmptyCapture = errors.New("capture is empty")

// Encoder validates a capture and base64 encodes it. With Format "flac" WAV
// captures are transcoded first; any other value sends the container as is.
type Encoder struct {
	Format string
}

func New(format string) (*Encoder, error) {
	switch format {
	case "", "wav", "flac":
		return &Encoder{Format: format}, nil
	default:
		return nil, fmt.Errorf("unknown payload format %q", format)
	}
}

// Encode is deterministic for a given capture.
func (e *Encoder) Encode(c audio.Capture) (string, error) {
	start := time.Now()
	data, err := e.container(c)
	if err != nil {
		return "", &EncodingError{MediaType: c.MediaType(), Err: err}
	}
	out := base64.StdEncoding.EncodeToString(data)
	log.Encode(c.MediaType(), c.Len(), len(out), time.Since(start))
	return out, nil
}

// MediaType is the container type Encode will produce for c.
func (e *Encoder) MediaType(c audio.Capture) string {
	if e.Format == "flac" && c.MediaType() == "audio/wav" {
		return "audio/flac"
	}
	return c.MediaType()
}

func (e *Encoder) container(c audio.Capture) ([]byte, error) {
	if c.Empty() {
		return nil, ErrEmptyCapture
	}
	data := c.Bytes()
	if c.MediaType() != "audio/wav" {
		return data, nil
	}

	info, pcm, err := encoder.ParseWAV(data)
	if err != nil {
		return nil, err
	}
	if e.Format != "flac" {
		return data, nil
	}
	if info.SampleRate != encoder.SampleRate || info.Channels != encoder.Channels || info.BitsPerSample != encoder.BitsPerSample {
		return nil, fmt.Errorf("flac transcoding needs %d Hz mono 16-bit, got %d Hz %d ch %d-bit",
			encoder.SampleRate, info.SampleRate, info.Channels, info.BitsPerSample)
	}
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}
	if err := encoder.EncodeAll(enc, pcm); err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}
	return enc.Bytes(), nil
}

// Encode validates and encodes c without transcoding.
func Encode(c audio.Capture) (string, error) {
	return (&Encoder{}).Encode(c)
}
