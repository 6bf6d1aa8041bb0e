package audio

import (
	"fmt"
	"os"
	"time"

	"studymate/encoder"
)

// Capture is a finalized recording: the container bytes and their media type.
// The zero value is an empty capture.
type Capture struct {
	data      []byte
	mediaType string
	frames    uint64
}

func NewCapture(data []byte, mediaType string) Capture {
	return Capture{data: append([]byte(nil), data...), mediaType: mediaType}
}

// Bytes returns a copy of the container bytes.
func (c Capture) Bytes() []byte     { return append([]byte(nil), c.data...) }
func (c Capture) Len() int          { return len(c.data) }
func (c Capture) MediaType() string { return c.mediaType }
func (c Capture) Empty() bool       { return len(c.data) == 0 }

// Duration is derived from the number of PCM frames captured; it is zero for
// captures built from foreign containers.
func (c Capture) Duration() time.Duration {
	return time.Duration(c.frames) * time.Second / encoder.SampleRate
}

func (c Capture) Extension() string {
	switch c.mediaType {
	case "audio/wav":
		return ".wav"
	case "audio/flac":
		return ".flac"
	case "audio/webm":
		return ".webm"
	default:
		return ".bin"
	}
}

func (c Capture) WriteFile(path string) error {
	if c.Empty() {
		return fmt.Errorf("no recording to save")
	}
	return os.WriteFile(path, c.data, 0644)
}

// PermissionError reports that the microphone could not be opened: access
// was denied, no device exists, or the audio server is unreachable.
type PermissionError struct {
	Device string
	Err    error
}

func (e *PermissionError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("microphone %q unavailable: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }
