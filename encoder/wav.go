package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"
)

const WAVHeaderSize = 44

var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

type WAVInfo struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
}

// WAVHeader returns the canonical 44-byte PCM header for dataSize bytes of samples.
func WAVHeader(dataSize int, sampleRate uint32, channels uint16) []byte {
	blockAlign := channels * BitsPerSample / 8
	h := make([]byte, WAVHeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(WAVHeaderSize-8+dataSize))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], channels)
	binary.LittleEndian.PutUint32(h[24:28], sampleRate)
	binary.LittleEndian.PutUint32(h[28:32], sampleRate*uint32(blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], blockAlign)
	binary.LittleEndian.PutUint16(h[34:36], BitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataSize))
	return h
}

// WrapPCM prefixes raw capture PCM with a header for the package sample format.
func WrapPCM(pcm []byte) []byte {
	out := make([]byte, 0, WAVHeaderSize+len(pcm))
	out = append(out, WAVHeader(len(pcm), SampleRate, Channels)...)
	return append(out, pcm...)
}

// ParseWAV walks the RIFF chunks and returns the format plus the PCM payload.
// Chunks other than "fmt " and "data" are skipped.
func ParseWAV(data []byte) (WAVInfo, []byte, error) {
	var info WAVInfo
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return info, nil, ErrNotWAV
	}
	var haveFmt bool
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			if id == "data" && haveFmt {
				// Streams finalized without a length fixup carry a bogus size.
				return info, data[body:], nil
			}
			return info, nil, fmt.Errorf("chunk %q overruns stream (%d bytes at %d)", id, size, body)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return info, nil, fmt.Errorf("fmt chunk too short: %d", size)
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return info, nil, fmt.Errorf("unsupported wav encoding %d", format)
			}
			info.Channels = binary.LittleEndian.Uint16(data[body+2:])
			info.SampleRate = binary.LittleEndian.Uint32(data[body+4:])
			info.BitsPerSample = binary.LittleEndian.Uint16(data[body+14:])
			haveFmt = true
		case "data":
			if !haveFmt {
				return info, nil, errors.New("data chunk before fmt chunk")
			}
			return info, data[body : body+size], nil
		}
		pos = body + size + size%2
	}
	return info, nil, errors.New("no data chunk")
}

type WavEncoder struct {
	pcm         bytes.Buffer
	out         []byte
	totalFrames uint64
	encodeTime  time.Duration
	mu          sync.Mutex
}

func NewWav() *WavEncoder {
	return &WavEncoder{}
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	var b [2]byte
	for _, s := range block {
		binary.LittleEndian.PutUint16(b[:], uint16(s))
		e.pcm.Write(b[:])
	}
	e.totalFrames += uint64(len(block))
	e.encodeTime += time.Since(start)
	return nil
}

func (e *WavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.out = WrapPCM(e.pcm.Bytes())
	return nil
}

func (e *WavEncoder) Bytes() []byte       { return e.out }
func (e *WavEncoder) TotalFrames() uint64 { return e.totalFrames }
func (e *WavEncoder) MediaType() string   { return "audio/wav" }

func (e *WavEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}
