package main

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"studymate/encoder"
)

const (
	vadMode       = 3
	vadFrameMs    = 20
	vadFrameBytes = encoder.SampleRate * vadFrameMs / 1000 * 2 // 640 bytes
	vadDebounce   = 3                                          // consecutive speech frames to confirm voice
)

type vadProcessor struct {
	vad *webrtcvad.VAD

	mu            sync.Mutex
	buf           []byte
	voiceDetected bool
	speechRun     int
	totalFrames   int
	speechFrames  int
}

func newVADProcessor() (*vadProcessor, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &vadProcessor{vad: v}, nil
}

func (p *vadProcessor) Process(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, data...)
	for len(p.buf) >= vadFrameBytes {
		frame := p.buf[:vadFrameBytes]
		p.buf = p.buf[vadFrameBytes:]

		active, err := p.vad.Process(encoder.SampleRate, frame)
		if err != nil {
			continue
		}
		p.totalFrames++
		if active {
			p.speechFrames++
			p.speechRun++
			if p.speechRun >= vadDebounce {
				p.voiceDetected = true
			}
		} else {
			p.speechRun = 0
		}
	}
}

func (p *vadProcessor) VoiceDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceDetected
}

func (p *vadProcessor) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames, p.speechFrames
}

func (p *vadProcessor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = p.buf[:0]
	p.voiceDetected = false
	p.speechRun = 0
	p.totalFrames = 0
	p.speechFrames = 0
}

// monitor watches live capture chunks for the level meter and the no-voice
// warning. Observe runs on the audio callback; the getters are read by the UI.
type monitor struct {
	vad   *vadProcessor // nil when the VAD could not be created
	level atomic.Uint64
	peak  atomic.Uint64
}

func newMonitor() *monitor {
	m := &monitor{}
	if v, err := newVADProcessor(); err == nil {
		m.vad = v
	}
	return m
}

func (m *monitor) Observe(pcm []byte) {
	lvl := chunkLevel(pcm)
	prev := math.Float64frombits(m.level.Load())
	m.level.Store(math.Float64bits(prev*0.6 + lvl*0.4))
	if lvl > math.Float64frombits(m.peak.Load()) {
		m.peak.Store(math.Float64bits(lvl))
	}
	if m.vad != nil {
		m.vad.Process(pcm)
	}
}

func (m *monitor) Level() float64 { return math.Float64frombits(m.level.Load()) }
func (m *monitor) Peak() float64  { return math.Float64frombits(m.peak.Load()) }

// Voice reports speech seen since the last Reset. Without a VAD it falls
// back to the peak level.
func (m *monitor) Voice() bool {
	if m.vad != nil {
		return m.vad.VoiceDetected()
	}
	return m.Peak() >= 0.02
}

func (m *monitor) Reset() {
	m.level.Store(0)
	m.peak.Store(0)
	if m.vad != nil {
		m.vad.Reset()
	}
}

// chunkLevel is the RMS of 16-bit PCM scaled to 0..1.
func chunkLevel(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
