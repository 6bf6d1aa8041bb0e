package encoder

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder turns 16-bit mono PCM blocks into a finished audio container.
// Bytes is only meaningful after Close.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	EncodeTime() time.Duration
	MediaType() string
}

func New(format string) (Encoder, error) {
	switch format {
	case "wav":
		return NewWav(), nil
	case "flac":
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// Samples decodes little-endian 16-bit PCM. A trailing odd byte is dropped.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// EncodeAll feeds pcm to enc in BlockSize blocks and closes it.
func EncodeAll(enc Encoder, pcm []byte) error {
	samples := Samples(pcm)
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return err
		}
	}
	return enc.Close()
}
